package filter

import (
	"io"

	hlzw "github.com/hhrutter/lzw"

	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/types"
)

// lzwFilter implements LZWDecode (7.4.4.3). pdfkit only ever needs to
// decode LZW data - real-world producers write FlateDecode, never
// LZWDecode, so there is no encoder to build or maintain here; attempting
// to encode fails with UnsupportedFilter.
type lzwFilter struct {
	parms *types.Dict
	dec   pipeDecoder

	predOut io.Writer
}

func newLZWFilter(parms *types.Dict) *lzwFilter {
	return &lzwFilter{parms: parms}
}

func (f *lzwFilter) BeginEncode(dst io.Writer) error {
	return errs.New(errs.UnsupportedFilter, "LZWDecode: encoding not supported")
}

func (f *lzwFilter) EncodeBlock(dst io.Writer, block []byte) error {
	return errs.New(errs.UnsupportedFilter, "LZWDecode: encoding not supported")
}

func (f *lzwFilter) EndEncode(dst io.Writer) error {
	return errs.New(errs.UnsupportedFilter, "LZWDecode: encoding not supported")
}

func (f *lzwFilter) BeginDecode(dst io.Writer) error {

	out, err := newPredictorUnwriter(dst, f.parms)
	if err != nil {
		return err
	}
	f.predOut = out

	earlyChange := intParm(f.parms, "EarlyChange", 1) != 0

	f.dec.newRdr = func(r io.Reader) (io.Reader, error) {
		return hlzw.NewReader(r, earlyChange), nil
	}

	return f.dec.BeginDecode(out)
}

func (f *lzwFilter) DecodeBlock(dst io.Writer, block []byte) error {
	return f.dec.DecodeBlock(dst, block)
}

func (f *lzwFilter) EndDecode(dst io.Writer) error {
	if err := f.dec.EndDecode(dst); err != nil {
		return err
	}
	return flushPredictor(f.predOut)
}
