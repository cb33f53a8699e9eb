package filter

import (
	"io"

	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/types"
)

// Appender accumulates raw content for a stream under construction and
// encodes it through the stream's filter pipeline on EndAppend. It lives
// here rather than as a types.Stream method because encoding needs this
// package's Filter implementations, and types is a lower layer that
// filter itself depends on - a Stream method calling back into filter
// would be an import cycle.
type Appender struct {
	st  *types.Stream
	buf []byte
}

// BeginAppend installs filters as st's encode pipeline, discards any
// previously buffered content, and writes /Filter (and /DecodeParms, for
// stages that carry one) onto st's Dict immediately, so the dict reflects
// the eventual pipeline even before EndAppend runs.
func BeginAppend(st *types.Stream, filters []types.FilterEntry) *Appender {
	st.FilterPipeline = filters
	st.Content = nil
	SetFilterDictEntries(st, filters)
	return &Appender{st: st}
}

// Append buffers p for the pipeline BeginAppend installed.
func (a *Appender) Append(p []byte) {
	a.buf = append(a.buf, p...)
}

// EndAppend runs the buffered content through every stage of the stream's
// filter pipeline in turn, sets Raw and Content, and syncs /Length.
func (a *Appender) EndAppend() error {

	data := append([]byte(nil), a.buf...)

	for _, fe := range a.st.FilterPipeline {
		out, err := Encode(fe.Name, fe.DecodeParms, data)
		if err != nil {
			return errs.Wrap(err, errs.InvalidStream, "encode filter %s", fe.Name)
		}
		data = out
	}

	a.st.Content = a.buf
	a.st.Raw = data

	l := int64(len(data))
	a.st.StreamLength = &l
	a.st.Dict.Update("Length", types.Integer(l))

	return nil
}

// GetFilteredCopy runs st's decode pipeline over its stored bytes into
// sink, last stage first - the inverse of EndAppend's encode order. A
// stream with no filters is copied verbatim.
func GetFilteredCopy(st *types.Stream, sink io.Writer) error {

	data := st.Raw

	for i := len(st.FilterPipeline) - 1; i >= 0; i-- {
		fe := st.FilterPipeline[i]
		out, err := Decode(fe.Name, fe.DecodeParms, data)
		if err != nil {
			return errs.Wrap(err, errs.InvalidStream, "decode filter %s", fe.Name)
		}
		data = out
	}

	_, err := sink.Write(data)
	return err
}

// SetRawData installs src as st's already-encoded bytes without passing
// them through any encoder - for a caller that already holds filter-
// encoded bytes (a pre-compressed image XObject read from elsewhere, for
// instance). length overrides the recorded /Length if non-nil; otherwise
// it is taken from len(src).
func SetRawData(st *types.Stream, src []byte, length *int64) {

	st.Raw = src
	st.Content = nil

	l := length
	if l == nil {
		n := int64(len(src))
		l = &n
	}
	st.StreamLength = l
	st.Dict.Update("Length", types.Integer(*l))
}

// SetFilterDictEntries mirrors filters onto st.Dict's /Filter and
// /DecodeParms entries, using the single-name form for a one-stage
// pipeline and parallel arrays for a chain, per 7.4. BeginAppend calls
// this itself; exported so SetRawData callers that build the pipeline by
// hand (a stream whose bytes arrived already encoded) can sync the dict
// without going through Append at all.
func SetFilterDictEntries(st *types.Stream, filters []types.FilterEntry) {

	switch len(filters) {

	case 0:
		st.Dict.Delete("Filter")
		st.Dict.Delete("DecodeParms")

	case 1:
		st.Dict.Update("Filter", types.Name(filters[0].Name))
		if filters[0].DecodeParms != nil {
			st.Dict.Update("DecodeParms", *filters[0].DecodeParms)
		} else {
			st.Dict.Delete("DecodeParms")
		}

	default:
		names := make(types.Array, len(filters))
		parms := make(types.Array, len(filters))
		anyParms := false
		for i, fe := range filters {
			names[i] = types.Name(fe.Name)
			if fe.DecodeParms != nil {
				parms[i] = *fe.DecodeParms
				anyParms = true
			} else {
				parms[i] = types.Null{}
			}
		}
		st.Dict.Update("Filter", names)
		if anyParms {
			st.Dict.Update("DecodeParms", parms)
		} else {
			st.Dict.Delete("DecodeParms")
		}
	}
}
