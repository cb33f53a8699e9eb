package document

import (
	"bytes"
	"fmt"
	"io"

	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/sign"
)

// SaveSigned serializes the document with a freshly reserved signature
// beacon (capacity bytes of hex placeholder), hands the resulting
// /ByteRange-named byte ranges to signFn, and patches the real signature
// into place before writing the final bytes to w. signFn is the
// cryptographic back-end - typically sign.SignPKCS7Detached behind a demo
// build, or a remote signer in a production host.
func (d *Document) SaveSigned(w io.Writer, capacity int, signFn func(data []byte) ([]byte, error)) (int64, error) {

	sigDict := sign.Placeholder(capacity)
	ref := d.XRef.InsertNew(sigDict)

	var buf bytes.Buffer
	if _, err := d.Save(&buf); err != nil {
		return 0, err
	}
	out := buf.Bytes()

	objOffset, err := findObjectOffset(out, d.Config.EOL, ref.ObjectNumber)
	if err != nil {
		return 0, err
	}

	beacon, err := sign.Locate(out, objOffset)
	if err != nil {
		return 0, err
	}

	tail := beacon.ContentsHexOffset + int64(beacon.ContentsHexLen)
	byteRange := [4]int64{0, beacon.ContentsHexOffset, tail, int64(len(out)) - tail}

	signable := make([]byte, 0, byteRange[1]+byteRange[3])
	signable = append(signable, out[byteRange[0]:byteRange[0]+byteRange[1]]...)
	signable = append(signable, out[byteRange[2]:byteRange[2]+byteRange[3]]...)

	der, err := signFn(signable)
	if err != nil {
		return 0, errs.Wrap(err, errs.InvalidEncryptionDict, "sign byte range")
	}

	if err := sign.Patch(&sliceWriterAt{buf: out}, beacon, byteRange, der); err != nil {
		return 0, err
	}

	n, err := w.Write(out)
	if err != nil {
		return int64(n), errs.Wrap(err, errs.IOError, "write signed document")
	}
	return int64(n), nil
}

// findObjectOffset locates the start of "objNr 0 obj" in buf, anchored to
// a preceding EOL so an object number that is a numeric suffix of another
// (e.g. 2 inside 12) can't be matched by accident.
func findObjectOffset(buf []byte, eol string, objNr int) (int64, error) {
	needle := []byte(eol + fmt.Sprintf("%d 0 obj", objNr))
	if idx := bytes.Index(buf, needle); idx >= 0 {
		return int64(idx) + int64(len(eol)), nil
	}

	needle = []byte(fmt.Sprintf("%d 0 obj", objNr))
	if idx := bytes.Index(buf, needle); idx >= 0 {
		return int64(idx), nil
	}
	return 0, errs.New(errs.InvalidObject, "object %d not found in written output", objNr)
}

// sliceWriterAt adapts a fixed-size []byte as an io.WriterAt, for patching
// a signature into an already-serialized in-memory document.
type sliceWriterAt struct {
	buf []byte
}

func (s *sliceWriterAt) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(s.buf)) {
		return 0, errs.New(errs.ValueOutOfRange, "patch offset %d len %d out of bounds (size %d)", off, len(p), len(s.buf))
	}
	copy(s.buf[off:], p)
	return len(p), nil
}
