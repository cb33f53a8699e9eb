package sign_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechiko/pdfkit/sign"
)

type memWriterAt struct{ buf []byte }

func (m *memWriterAt) WriteAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	if end > len(m.buf) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[off:end], p)
	return len(p), nil
}

func TestPlaceholderReserveLocatePatch(t *testing.T) {

	d := sign.Placeholder(16)
	body := "1 0 obj" + d.PDFString() + "endobj"
	file := []byte(body)

	b, err := sign.Locate(file, 0)
	require.NoError(t, err)
	assert.Equal(t, 32, b.ContentsHexLen)

	w := &memWriterAt{buf: append([]byte{}, file...)}
	der := bytes.Repeat([]byte{0xAB}, 8)
	require.NoError(t, sign.Patch(w, b, [4]int64{0, 10, 50, 20}, der))

	patched := w.buf[b.ContentsHexOffset : b.ContentsHexOffset+int64(b.ContentsHexLen)]
	assert.Equal(t, "abababababababab0000000000000000", string(patched))
}

func TestPatchRejectsOversizedSignature(t *testing.T) {
	d := sign.Placeholder(4)
	file := []byte("1 0 obj" + d.PDFString() + "endobj")

	b, err := sign.Locate(file, 0)
	require.NoError(t, err)

	w := &memWriterAt{buf: append([]byte{}, file...)}
	err = sign.Patch(w, b, [4]int64{}, bytes.Repeat([]byte{0x01}, 5))
	assert.Error(t, err)
}
