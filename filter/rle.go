package filter

import (
	"io"

	"github.com/mechiko/pdfkit/errs"
)

// rleEOD is the length byte marking end-of-data for RunLengthDecode.
const rleEOD = 128

// rleFilter implements RunLengthDecode (7.4.5). Like LZWDecode, pdfkit
// only decodes this filter: no real-world producer in this ecosystem
// writes RunLengthDecode, it only ever needs to be read back.
type rleFilter struct {
	buf    []byte
	sawEOD bool
}

func (f *rleFilter) BeginEncode(dst io.Writer) error {
	return errs.New(errs.UnsupportedFilter, "RunLengthDecode: encoding not supported")
}

func (f *rleFilter) EncodeBlock(dst io.Writer, block []byte) error {
	return errs.New(errs.UnsupportedFilter, "RunLengthDecode: encoding not supported")
}

func (f *rleFilter) EndEncode(dst io.Writer) error {
	return errs.New(errs.UnsupportedFilter, "RunLengthDecode: encoding not supported")
}

func (f *rleFilter) BeginDecode(dst io.Writer) error { return nil }

// DecodeBlock interprets length-prefixed runs as they accumulate. Each
// run starts with a length byte: 0-127 means "copy the next length+1
// literal bytes", 129-255 means "repeat the next byte (257-length)
// times", and 128 is the end-of-data marker.
func (f *rleFilter) DecodeBlock(dst io.Writer, block []byte) error {

	f.buf = append(f.buf, block...)

	for len(f.buf) > 0 && !f.sawEOD {
		length := f.buf[0]

		if length == rleEOD {
			f.sawEOD = true
			f.buf = f.buf[1:]
			break
		}

		if length <= 127 {
			need := int(length) + 1
			if len(f.buf) < 1+need {
				return nil // wait for more data.
			}
			if _, err := dst.Write(f.buf[1 : 1+need]); err != nil {
				return err
			}
			f.buf = f.buf[1+need:]
			continue
		}

		// length in [129, 255]: repeat the next single byte 257-length times.
		if len(f.buf) < 2 {
			return nil
		}
		count := 257 - int(length)
		rep := make([]byte, count)
		for i := range rep {
			rep[i] = f.buf[1]
		}
		if _, err := dst.Write(rep); err != nil {
			return err
		}
		f.buf = f.buf[2:]
	}

	return nil
}

func (f *rleFilter) EndDecode(dst io.Writer) error {
	if !f.sawEOD {
		return errs.New(errs.InvalidStream, "RunLengthDecode: missing end-of-data marker")
	}
	return nil
}
