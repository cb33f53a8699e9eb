package filter

import (
	"bytes"
	"compress/zlib"
	"io"
	"testing"

	hlzw "github.com/hhrutter/lzw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechiko/pdfkit/types"
)

func TestASCII85Decode_Sample(t *testing.T) {
	// "Man " encodes to "9jqo^" in Adobe's canonical ASCII85 example.
	out, err := Decode("ASCII85Decode", nil, []byte("9jqo^~>"))
	require.NoError(t, err)
	assert.Equal(t, []byte("Man "), out)
}

func TestASCIIHexDecode_OddNibblePadsWithZero(t *testing.T) {
	out, err := Decode("ASCIIHexDecode", nil, []byte("48656C6C6F2>"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x48, 0x65, 0x6C, 0x6C, 0x6F, 0x20}, out)
}

func TestASCIIHexDecode_MissingEODFails(t *testing.T) {
	_, err := Decode("ASCIIHexDecode", nil, []byte("4865"))
	require.Error(t, err)
}

func TestFlateDecode_Roundtrip(t *testing.T) {
	raw := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 50)

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	out, err := Decode("FlateDecode", nil, compressed.Bytes())
	require.NoError(t, err)
	assert.Equal(t, raw, out)
	assert.Less(t, compressed.Len(), len(raw))
}

func TestFlateDecode_PNGUpPredictor(t *testing.T) {
	columns := 4
	rows := [][]byte{
		{10, 20, 30, 40},
		{1, 1, 1, 1},
	}

	var predicted bytes.Buffer
	prev := make([]byte, columns)
	for _, row := range rows {
		predicted.WriteByte(pngTagUp)
		for i, b := range row {
			predicted.WriteByte(b - prev[i])
		}
		prev = row
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err := zw.Write(predicted.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	parms := types.NewDict()
	parms.Insert("Predictor", types.Integer(12))
	parms.Insert("Columns", types.Integer(int64(columns)))

	out, err := Decode("FlateDecode", &parms, compressed.Bytes())
	require.NoError(t, err)
	assert.Equal(t, append(append([]byte{}, rows[0]...), rows[1]...), out)
}

func TestFlateDecode_TIFFPredictorRejectsNon8Bit(t *testing.T) {
	parms := types.NewDict()
	parms.Insert("Predictor", types.Integer(2))
	parms.Insert("Columns", types.Integer(4))
	parms.Insert("BitsPerComponent", types.Integer(4))

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, _ = zw.Write([]byte{1, 2, 3, 4})
	require.NoError(t, zw.Close())

	_, err := Decode("FlateDecode", &parms, compressed.Bytes())
	require.Error(t, err)
}

func TestFlateDecode_Predictor15Rejected(t *testing.T) {
	parms := types.NewDict()
	parms.Insert("Predictor", types.Integer(15))
	parms.Insert("Columns", types.Integer(4))

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, _ = zw.Write([]byte{0, 10, 20, 30, 40})
	require.NoError(t, zw.Close())

	_, err := Decode("FlateDecode", &parms, compressed.Bytes())
	require.Error(t, err)
}

func TestLZWDecode_Roundtrip(t *testing.T) {
	raw := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 50)

	var encoded bytes.Buffer
	wc := hlzw.NewWriter(&encoded, true)
	_, err := io.Copy(wc, bytes.NewReader(raw))
	require.NoError(t, err)
	require.NoError(t, wc.Close())

	out, err := Decode("LZWDecode", nil, encoded.Bytes())
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestLZWDecode_EarlyChangeMismatchCorrupts(t *testing.T) {
	raw := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 50)

	var encoded bytes.Buffer
	wc := hlzw.NewWriter(&encoded, true)
	_, err := io.Copy(wc, bytes.NewReader(raw))
	require.NoError(t, err)
	require.NoError(t, wc.Close())

	parms := types.NewDict()
	parms.Insert("EarlyChange", types.Integer(0))

	out, err := Decode("LZWDecode", &parms, encoded.Bytes())
	if err == nil {
		assert.NotEqual(t, raw, out)
	}
}

func TestRunLengthDecode(t *testing.T) {
	// length=2 -> 3 literal bytes, then length=254 -> repeat next byte 3 times, then EOD.
	in := []byte{2, 'a', 'b', 'c', 254, 'z', 128}
	out, err := Decode("RunLengthDecode", nil, in)
	require.NoError(t, err)
	assert.Equal(t, []byte("abczzz"), out)
}

func TestUnsupportedFilter(t *testing.T) {
	_, err := New("BogusDecode", nil)
	require.Error(t, err)
}
