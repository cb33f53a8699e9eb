package filter

import (
	"compress/zlib"
	"io"

	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/types"
)

// flateFilter implements FlateDecode (7.4.4): zlib-compressed data,
// optionally PNG- or TIFF-predicted before compression.
type flateFilter struct {
	parms *types.Dict

	zw  *zlib.Writer
	dec pipeDecoder

	predOut io.Writer
}

func newFlateFilter(parms *types.Dict) *flateFilter {
	return &flateFilter{parms: parms}
}

func (f *flateFilter) BeginEncode(dst io.Writer) error {
	f.zw = zlib.NewWriter(dst)
	return nil
}

func (f *flateFilter) EncodeBlock(dst io.Writer, block []byte) error {
	_, err := f.zw.Write(block)
	return err
}

func (f *flateFilter) EndEncode(dst io.Writer) error {
	return f.zw.Close()
}

func (f *flateFilter) BeginDecode(dst io.Writer) error {

	out, err := newPredictorUnwriter(dst, f.parms)
	if err != nil {
		return err
	}
	f.predOut = out

	f.dec.newRdr = func(r io.Reader) (io.Reader, error) {
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, errs.Wrap(err, errs.FlateError, "invalid zlib stream")
		}
		return zr, nil
	}

	return f.dec.BeginDecode(out)
}

func (f *flateFilter) DecodeBlock(dst io.Writer, block []byte) error {
	if err := f.dec.DecodeBlock(dst, block); err != nil {
		return errs.Wrap(err, errs.FlateError, "decode block")
	}
	return nil
}

func (f *flateFilter) EndDecode(dst io.Writer) error {
	if err := f.dec.EndDecode(dst); err != nil {
		return errs.Wrap(err, errs.FlateError, "end decode")
	}
	return flushPredictor(f.predOut)
}
