package filter

import (
	"encoding/ascii85"
	"io"

	"github.com/mechiko/pdfkit/errs"
)

// eodASCII85 is the end-of-data marker terminating an ASCII85Decode stream.
const eodASCII85 = "~>"

// ascii85Filter implements ASCII85Decode (7.4.3).
type ascii85Filter struct {
	enc *ascii85.Encoding
	ew  io.WriteCloser

	dec    pipeDecoder
	tail   []byte // last len(eodASCII85) bytes seen, to detect the marker across block boundaries.
}

func (f *ascii85Filter) BeginEncode(dst io.Writer) error {
	f.ew = ascii85.NewEncoder(dst)
	return nil
}

func (f *ascii85Filter) EncodeBlock(dst io.Writer, block []byte) error {
	_, err := f.ew.Write(block)
	return err
}

func (f *ascii85Filter) EndEncode(dst io.Writer) error {
	if err := f.ew.Close(); err != nil {
		return err
	}
	_, err := dst.Write([]byte(eodASCII85))
	return err
}

func (f *ascii85Filter) BeginDecode(dst io.Writer) error {
	f.dec.newRdr = func(r io.Reader) (io.Reader, error) {
		return ascii85.NewDecoder(r), nil
	}
	return f.dec.BeginDecode(dst)
}

// DecodeBlock strips the "~>" end-of-data marker before it ever reaches
// the ascii85 decoder, which does not understand it, buffering up to
// len(eodASCII85)-1 trailing bytes across calls in case the marker is
// split across a block boundary.
func (f *ascii85Filter) DecodeBlock(dst io.Writer, block []byte) error {

	buf := append(f.tail, block...)

	if idx := indexOf(buf, eodASCII85); idx >= 0 {
		if err := f.dec.DecodeBlock(dst, buf[:idx]); err != nil {
			return err
		}
		f.tail = nil
		return nil
	}

	keep := len(eodASCII85) - 1
	if len(buf) <= keep {
		f.tail = buf
		return nil
	}

	send := buf[:len(buf)-keep]
	f.tail = append([]byte(nil), buf[len(buf)-keep:]...)
	return f.dec.DecodeBlock(dst, send)
}

func (f *ascii85Filter) EndDecode(dst io.Writer) error {
	if len(f.tail) > 0 && indexOf(f.tail, eodASCII85) < 0 {
		return errs.New(errs.InvalidStream, "ASCII85Decode: missing end-of-data marker")
	}
	return f.dec.EndDecode(dst)
}

func indexOf(haystack []byte, needle string) int {
	n := len(needle)
	for i := 0; i+n <= len(haystack); i++ {
		if string(haystack[i:i+n]) == needle {
			return i
		}
	}
	return -1
}
