package filter

import (
	"encoding/hex"
	"io"

	"github.com/mechiko/pdfkit/errs"
)

// eodASCIIHex is the end-of-data marker terminating an ASCIIHexDecode stream.
const eodASCIIHex = '>'

// asciiHexFilter implements ASCIIHexDecode (7.4.2).
type asciiHexFilter struct {
	nibble  []byte // one leftover hex digit carried across DecodeBlock calls.
	sawEOD  bool
}

func (f *asciiHexFilter) BeginEncode(dst io.Writer) error { return nil }

func (f *asciiHexFilter) EncodeBlock(dst io.Writer, block []byte) error {
	enc := make([]byte, hex.EncodedLen(len(block)))
	hex.Encode(enc, block)
	_, err := dst.Write(enc)
	return err
}

func (f *asciiHexFilter) EndEncode(dst io.Writer) error {
	_, err := dst.Write([]byte{eodASCIIHex})
	return err
}

func (f *asciiHexFilter) BeginDecode(dst io.Writer) error { return nil }

// DecodeBlock consumes hex digits two at a time as they accumulate,
// skipping whitespace and stopping at the first '>' end-of-data marker;
// a single leftover digit is held until the next block or EndDecode.
func (f *asciiHexFilter) DecodeBlock(dst io.Writer, block []byte) error {

	digits := f.nibble
	for _, c := range block {
		if f.sawEOD {
			break
		}
		if c == eodASCIIHex {
			f.sawEOD = true
			break
		}
		if isHexSpace(c) {
			continue
		}
		if !isHexDigit(c) {
			return errs.New(errs.InvalidEncoding, "ASCIIHexDecode: illegal character %q", c)
		}
		digits = append(digits, c)
	}

	n := len(digits) - len(digits)%2
	if n > 0 {
		out := make([]byte, n/2)
		if _, err := hex.Decode(out, digits[:n]); err != nil {
			return errs.Wrap(err, errs.InvalidEncoding, "ASCIIHexDecode")
		}
		if _, err := dst.Write(out); err != nil {
			return err
		}
	}
	f.nibble = append([]byte(nil), digits[n:]...)

	return nil
}

func (f *asciiHexFilter) EndDecode(dst io.Writer) error {
	if !f.sawEOD {
		return errs.New(errs.InvalidStream, "ASCIIHexDecode: missing end-of-data marker")
	}
	if len(f.nibble) == 1 {
		// A trailing unpaired digit is completed with an assumed 0, per 7.3.4.3.
		out := make([]byte, 1)
		if _, err := hex.Decode(out, append(f.nibble, '0')); err != nil {
			return errs.Wrap(err, errs.InvalidEncoding, "ASCIIHexDecode")
		}
		_, err := dst.Write(out)
		return err
	}
	return nil
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'A' && c <= 'F' || c >= 'a' && c <= 'f'
}

func isHexSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}
