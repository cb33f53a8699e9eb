package filter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechiko/pdfkit/types"
)

func TestAppender_RoundtripsThroughFlate(t *testing.T) {
	dict := types.NewDict()
	st := types.NewStream(dict, 0, nil, nil, nil)

	raw := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 20)

	app := BeginAppend(&st, []types.FilterEntry{{Name: "FlateDecode"}})
	app.Append(raw[:10])
	app.Append(raw[10:])
	require.NoError(t, app.EndAppend())

	assert.Equal(t, "FlateDecode", *st.Dict.NameEntry("Filter"))
	assert.Less(t, len(st.Raw), len(raw))

	l := st.Dict.IntEntry("Length")
	require.NotNil(t, l)
	assert.Equal(t, len(st.Raw), *l)

	var out bytes.Buffer
	require.NoError(t, GetFilteredCopy(&st, &out))
	assert.Equal(t, raw, out.Bytes())
}

func TestAppender_ChainedFilters(t *testing.T) {
	dict := types.NewDict()
	st := types.NewStream(dict, 0, nil, nil, nil)

	raw := []byte("Hello, pdfkit!")

	app := BeginAppend(&st, []types.FilterEntry{
		{Name: "ASCIIHexDecode"},
		{Name: "FlateDecode"},
	})
	app.Append(raw)
	require.NoError(t, app.EndAppend())

	filterNames := st.Dict.ArrayEntry("Filter")
	require.NotNil(t, filterNames)
	require.Len(t, *filterNames, 2)

	var out bytes.Buffer
	require.NoError(t, GetFilteredCopy(&st, &out))
	assert.Equal(t, raw, out.Bytes())
}

func TestGetFilteredCopy_NoFilterPassesThrough(t *testing.T) {
	dict := types.NewDict()
	st := types.NewStream(dict, 0, nil, nil, nil)
	st.Raw = []byte("already plain")

	var out bytes.Buffer
	require.NoError(t, GetFilteredCopy(&st, &out))
	assert.Equal(t, st.Raw, out.Bytes())
}

func TestSetRawData_SyncsLength(t *testing.T) {
	dict := types.NewDict()
	st := types.NewStream(dict, 0, nil, nil, []types.FilterEntry{{Name: "FlateDecode"}})

	SetRawData(&st, []byte{1, 2, 3, 4}, nil)

	assert.Equal(t, []byte{1, 2, 3, 4}, st.Raw)
	l := st.Dict.IntEntry("Length")
	require.NotNil(t, l)
	assert.Equal(t, 4, *l)
}

func TestSetRawData_ExplicitLengthOverridesLen(t *testing.T) {
	dict := types.NewDict()
	st := types.NewStream(dict, 0, nil, nil, nil)

	explicit := int64(99)
	SetRawData(&st, []byte{1, 2, 3}, &explicit)

	l := st.Dict.IntEntry("Length")
	require.NotNil(t, l)
	assert.Equal(t, 99, *l)
}
