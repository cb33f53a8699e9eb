package read

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechiko/pdfkit/config"
	"github.com/mechiko/pdfkit/types"
)

func TestParseObjectAt_Scalars(t *testing.T) {
	cases := []struct {
		in   string
		want types.Object
	}{
		{"true", types.Boolean(true)},
		{"false", types.Boolean(false)},
		{"null", types.Null{}},
		{"123", types.Integer(123)},
		{"-17", types.Integer(-17)},
		{"3.14", types.Real(3.14)},
		{"/Name#20Escaped", types.Name("Name Escaped")},
		{"(a literal (nested) string)", types.StringLiteral("a literal (nested) string")},
		{"<48656C6C6F>", types.HexLiteral("48656C6C6F")},
	}
	for _, c := range cases {
		got, _, err := parseObjectAt([]byte(c.in), 0)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseObjectAt_Reference(t *testing.T) {
	got, next, err := parseObjectAt([]byte("12 0 R rest"), 0)
	require.NoError(t, err)
	assert.Equal(t, types.NewReference(12, 0), got)
	assert.Equal(t, 6, next)
}

func TestParseObjectAt_ArrayAndDict(t *testing.T) {
	got, _, err := parseObjectAt([]byte("[1 2 /Foo (bar)]"), 0)
	require.NoError(t, err)
	arr, ok := got.(types.Array)
	require.True(t, ok)
	assert.Len(t, arr, 4)

	got2, _, err := parseObjectAt([]byte("<< /Type /Catalog /Pages 3 0 R >>"), 0)
	require.NoError(t, err)
	d, ok := got2.(types.Dict)
	require.True(t, ok)
	assert.Equal(t, []string{"Type", "Pages"}, d.Keys())
}

func TestParseIndirectObject_SimpleDict(t *testing.T) {
	buf := []byte("7 0 obj\n<< /Type /Catalog >>\nendobj\n")
	obj, n, g, _, err := parseIndirectObject(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, 0, g)
	d := obj.(types.Dict)
	assert.Equal(t, "Catalog", *d.NameEntry("Type"))
}

func TestParseIndirectObject_StreamWithDirectLength(t *testing.T) {
	body := "hello stream body"
	buf := []byte("5 0 obj\n<< /Length 17 >>\nstream\n" + body + "\nendstream\nendobj\n")
	obj, _, _, _, err := parseIndirectObject(buf, 0)
	require.NoError(t, err)
	st := obj.(types.Stream)
	assert.Equal(t, body, string(st.Raw))
}

func buildClassicXRefFile(t *testing.T) []byte {
	t.Helper()

	obj1 := "1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n"
	obj2 := "2 0 obj\n<< /Type /Pages /Kids [] /Count 0 >>\nendobj\n"

	header := "%PDF-1.7\n"
	off1 := int64(len(header))
	off2 := off1 + int64(len(obj1))
	xrefOff := off2 + int64(len(obj2))

	body := header + obj1 + obj2

	xref := "xref\n0 3\n" +
		"0000000000 65535 f \n" +
		padOffset(off1) + " 00000 n \n" +
		padOffset(off2) + " 00000 n \n" +
		"trailer\n<< /Size 3 /Root 1 0 R >>\nstartxref\n" + itoa10(xrefOff) + "\n%%EOF"

	return []byte(body + xref)
}

func padOffset(off int64) string {
	s := itoa10(off)
	for len(s) < 10 {
		s = "0" + s
	}
	return s
}

func itoa10(n int64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func TestLoad_ClassicXRefTable(t *testing.T) {
	buf := buildClassicXRefFile(t)

	xt, err := Load(buf, config.Default(), "", "")
	require.NoError(t, err)
	require.NotNil(t, xt.Root)
	assert.Equal(t, 1, xt.Root.ObjectNumber)

	root, err := xt.FindObject(1)
	require.NoError(t, err)
	d := root.(types.Dict)
	assert.Equal(t, "Catalog", *d.Type())
}

func TestLoad_MissingStartXRefFallsBackWithRelaxedValidation(t *testing.T) {
	buf := []byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")

	cfg := config.Default()
	cfg.Validation = config.ValidationRelaxed

	xt, err := Load(buf, cfg, "", "")
	require.NoError(t, err)
	require.NotNil(t, xt.Root)
}
