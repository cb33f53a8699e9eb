package write_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechiko/pdfkit/config"
	"github.com/mechiko/pdfkit/read"
	"github.com/mechiko/pdfkit/types"
	"github.com/mechiko/pdfkit/write"
)

func buildMinimalDocument() *types.XRefTable {

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

	info := types.NewDict()
	info.Insert("Producer", types.StringLiteral("pdfkit"))
	infoRef := xt.InsertNew(info)
	xt.Info = &infoRef

	return xt
}

func TestSaveLoad_ClassicXRefRoundTrip(t *testing.T) {

	xt := buildMinimalDocument()

	cfg := config.Default()
	cfg.XRefMode = config.XRefModeTable

	var buf bytes.Buffer
	n, err := write.Save(xt, &buf, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	xt2, err := read.Load(buf.Bytes(), cfg, "", "")
	require.NoError(t, err)
	require.NotNil(t, xt2.Root)

	root, err := xt2.FindObject(xt2.Root.ObjectNumber)
	require.NoError(t, err)
	d := root.(types.Dict)
	assert.Equal(t, "Catalog", *d.Type())

	pagesRef := d.ReferenceEntry("Pages")
	require.NotNil(t, pagesRef)
	pages, err := xt2.FindObject(pagesRef.ObjectNumber)
	require.NoError(t, err)
	pd := pages.(types.Dict)
	assert.Equal(t, "Pages", *pd.Type())
}

func TestSaveLoad_XRefStreamRoundTrip(t *testing.T) {

	xt := buildMinimalDocument()

	// Force more than one object stream so InsertNew/packing boundary
	// logic is exercised, not just the common single-stream case.
	for i := 0; i < 5; i++ {
		d := types.NewDict()
		d.Insert("Type", types.Name("Mock"))
		d.Insert("Index", types.Integer(i))
		xt.InsertNew(d)
	}

	cfg := config.Default()
	cfg.XRefMode = config.XRefModeStream
	cfg.ObjectStreamMaxObjects = 2

	var buf bytes.Buffer
	_, err := write.Save(xt, &buf, cfg, nil)
	require.NoError(t, err)

	xt2, err := read.Load(buf.Bytes(), cfg, "", "")
	require.NoError(t, err)
	assert.True(t, xt2.UsingObjectStreams)
	assert.True(t, xt2.UsingXRefStreams)

	root, err := xt2.FindObject(xt2.Root.ObjectNumber)
	require.NoError(t, err)
	assert.Equal(t, "Catalog", *root.(types.Dict).Type())
}

func TestSaveIncremental_AppendsNewRevision(t *testing.T) {

	xt := buildMinimalDocument()

	cfg := config.Default()
	cfg.XRefMode = config.XRefModeTable

	var base bytes.Buffer
	_, err := write.Save(xt, &base, cfg, nil)
	require.NoError(t, err)

	xt2, err := read.Load(base.Bytes(), cfg, "", "")
	require.NoError(t, err)

	extra := types.NewDict()
	extra.Insert("Type", types.Name("Mock"))
	extraRef := xt2.InsertNew(extra)

	startOffset := int64(base.Len())
	// The prior revision's xref offset is whatever locateStartXRef would
	// find; for a freshly-built classic-table file it is simply the byte
	// offset where "xref" begins, which Load doesn't expose directly, so
	// recompute it the same way the file itself records it.
	prevXRefOffset := lastStartXRefOffset(t, base.Bytes())

	var inc bytes.Buffer
	_, err = write.SaveIncremental(xt2, &inc, cfg, nil, []int{extraRef.ObjectNumber}, startOffset, prevXRefOffset)
	require.NoError(t, err)

	full := append(append([]byte{}, base.Bytes()...), inc.Bytes()...)

	xt3, err := read.Load(full, cfg, "", "")
	require.NoError(t, err)

	root, err := xt3.FindObject(xt3.Root.ObjectNumber)
	require.NoError(t, err)
	assert.Equal(t, "Catalog", *root.(types.Dict).Type())

	added, err := xt3.FindObject(extraRef.ObjectNumber)
	require.NoError(t, err)
	assert.Equal(t, "Mock", *added.(types.Dict).Type())
}

func lastStartXRefOffset(t *testing.T, buf []byte) int64 {
	t.Helper()
	idx := bytes.LastIndex(buf, []byte("startxref"))
	require.GreaterOrEqual(t, idx, 0)
	rest := buf[idx+len("startxref"):]
	start := 0
	for start < len(rest) && (rest[start] == '\n' || rest[start] == '\r' || rest[start] == ' ') {
		start++
	}
	end := start
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	var v int64
	for _, c := range rest[start:end] {
		v = v*10 + int64(c-'0')
	}
	return v
}
