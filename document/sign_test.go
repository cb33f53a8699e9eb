package document

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mechiko/pdfkit/config"
	"github.com/mechiko/pdfkit/types"
)

func newSignFixture() *Document {
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

	return &Document{XRef: xt, Config: config.Default()}
}

func TestSaveSignedPatchesReservedRange(t *testing.T) {
	d := newSignFixture()

	der := []byte("fake-detached-signature-bytes")
	var signedWith []byte

	var out bytes.Buffer
	_, err := d.SaveSigned(&out, 4096, func(data []byte) ([]byte, error) {
		signedWith = append([]byte(nil), data...)
		return der, nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, signedWith)

	reopened, err := Open(bytes.NewReader(out.Bytes()), config.Default())
	require.NoError(t, err)
	require.NotNil(t, reopened.XRef.Root)

	idx := bytes.Index(out.Bytes(), []byte(hex.EncodeToString(der)))
	require.Greater(t, idx, 0, "patched signature bytes must appear in the written output")
}

func TestFindObjectOffsetAvoidsNumericSuffixCollision(t *testing.T) {
	buf := []byte("1 0 obj\n<<>>\nendobj\n12 0 obj\n<<>>\nendobj\n")
	off, err := findObjectOffset(buf, "\n", 12)
	require.NoError(t, err)
	require.Equal(t, int64(bytes.Index(buf, []byte("12 0 obj"))), off)
}
