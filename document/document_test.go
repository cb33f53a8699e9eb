package document_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechiko/pdfkit/config"
	"github.com/mechiko/pdfkit/document"
	"github.com/mechiko/pdfkit/types"
)

func buildDoc() *document.Document {
	xt := types.NewXRefTable(int(config.ValidationRelaxed))

	pages := types.NewDict()
	pages.Insert("Type", types.Name("Pages"))
	pages.Insert("Kids", types.Array{})
	pages.Insert("Count", types.Integer(0))
	pagesRef := xt.InsertNew(pages)

	catalog := types.NewDict()
	catalog.Insert("Type", types.Name("Catalog"))
	catalog.Insert("Pages", pagesRef)
	catRef := xt.InsertNew(catalog)
	xt.Root = &catRef

	return &document.Document{XRef: xt, Config: config.Default()}
}

func TestOpenSaveRoundTrip(t *testing.T) {
	d := buildDoc()

	var buf bytes.Buffer
	_, err := d.Save(&buf)
	require.NoError(t, err)

	d2, err := document.Open(&buf, d.Config)
	require.NoError(t, err)

	root, err := d2.GetObject(*d2.XRef.Root)
	require.NoError(t, err)
	assert.Equal(t, "Catalog", *root.(types.Dict).Type())
}

func TestCreateObject(t *testing.T) {
	d := buildDoc()
	ref := d.CreateObject("Mock")

	obj, err := d.GetObject(ref)
	require.NoError(t, err)
	assert.Equal(t, "Mock", *obj.(types.Dict).Type())
}

func TestCreateStreamRoundTrip(t *testing.T) {
	d := buildDoc()

	content := []byte("BT /F1 12 Tf (Hello) Tj ET")
	ref, err := d.CreateStream("XObject", []types.FilterEntry{{Name: "FlateDecode"}}, content)
	require.NoError(t, err)

	got, err := d.StreamContent(ref)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	var buf bytes.Buffer
	require.NoError(t, d.WriteStreamContent(ref, &buf))
	assert.Equal(t, content, buf.Bytes())

	var out bytes.Buffer
	_, err = d.Save(&out)
	require.NoError(t, err)

	d2, err := document.Open(&out, d.Config)
	require.NoError(t, err)

	got2, err := d2.StreamContent(ref)
	require.NoError(t, err)
	assert.Equal(t, content, got2)
}

func TestCreateRawStreamSkipsEncoding(t *testing.T) {
	d := buildDoc()

	precompressed := []byte{0x78, 0x9c, 0x01, 0x02, 0x03}
	ref := d.CreateRawStream("XObject", []types.FilterEntry{{Name: "FlateDecode"}}, precompressed)

	obj, err := d.GetObject(ref)
	require.NoError(t, err)
	st := obj.(types.Stream)
	assert.Equal(t, precompressed, st.Raw)
	assert.Equal(t, "FlateDecode", *st.Dict.NameEntry("Filter"))
}

func TestEncryptThenReopen(t *testing.T) {
	d := buildDoc()

	cfg := d.Config
	cfg.AllowAES256 = true
	d.Config = cfg

	require.NoError(t, d.Encrypt("userpw", "ownerpw", -4, 128))

	var buf bytes.Buffer
	_, err := d.Save(&buf)
	require.NoError(t, err)

	d2, err := document.OpenEncrypted(bytes.NewReader(buf.Bytes()), cfg, "userpw", "")
	require.NoError(t, err)

	root, err := d2.GetObject(*d2.XRef.Root)
	require.NoError(t, err)
	assert.Equal(t, "Catalog", *root.(types.Dict).Type())
}

func TestSaveIncrementalAppendsRevision(t *testing.T) {
	d := buildDoc()

	var base bytes.Buffer
	_, err := d.Save(&base)
	require.NoError(t, err)

	d2, err := document.Open(bytes.NewReader(base.Bytes()), d.Config)
	require.NoError(t, err)

	extraRef := d2.CreateObject("Mock")

	var full bytes.Buffer
	_, err = d2.SaveIncremental(&full, []int{extraRef.ObjectNumber})
	require.NoError(t, err)

	d3, err := document.Open(bytes.NewReader(full.Bytes()), d.Config)
	require.NoError(t, err)

	added, err := d3.GetObject(extraRef)
	require.NoError(t, err)
	assert.Equal(t, "Mock", *added.(types.Dict).Type())
}
