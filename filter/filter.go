// Package filter implements the PDF stream filter pipeline (7.4).
//
// Every Filter is a streaming, stateful codec: a pipeline stage is built
// fresh per stream via New, fed input through EncodeBlock/DecodeBlock in
// whatever chunk sizes the caller has on hand, and finalized with
// EndEncode/EndDecode. No Filter implementation buffers an entire stream
// in memory by design - large embedded resources (images, fonts, content
// streams) stream through in bounded space.
package filter

import (
	"io"

	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/log"
	"github.com/mechiko/pdfkit/types"
)

// Filter is implemented by every stream filter stage. A single Filter
// value is used for exactly one encode-or-decode pass: BeginEncode/
// BeginDecode is called once, EncodeBlock/DecodeBlock any number of times
// as blocks become available, and EndEncode/EndDecode exactly once to
// flush and finalize.
type Filter interface {
	// BeginEncode prepares the filter to encode, writing any constant
	// header bytes to dst.
	BeginEncode(dst io.Writer) error
	// EncodeBlock encodes one chunk of raw input, writing encoded bytes
	// to dst as they become available.
	EncodeBlock(dst io.Writer, block []byte) error
	// EndEncode flushes any buffered state and writes trailing/EOD bytes.
	EndEncode(dst io.Writer) error

	// BeginDecode prepares the filter to decode.
	BeginDecode(dst io.Writer) error
	// DecodeBlock decodes one chunk of encoded input, writing decoded
	// bytes to dst as they become available.
	DecodeBlock(dst io.Writer, block []byte) error
	// EndDecode signals end of input and flushes any buffered state.
	EndDecode(dst io.Writer) error
}

// New returns a Filter for filterName, configured from the optional
// /DecodeParms dictionary parms (nil is equivalent to an empty dict).
func New(filterName string, parms *types.Dict) (Filter, error) {

	switch filterName {

	case "FlateDecode":
		return newFlateFilter(parms), nil

	case "LZWDecode":
		return newLZWFilter(parms), nil

	case "ASCII85Decode":
		return &ascii85Filter{}, nil

	case "ASCIIHexDecode":
		return &asciiHexFilter{}, nil

	case "RunLengthDecode":
		return &rleFilter{}, nil

	case "DCTDecode", "CCITTFaxDecode", "JBIG2Decode", "JPXDecode", "Crypt":
		// Image/opaque filters: the object model carries the encoded
		// bytes through unmodified; a downstream image codec (outside
		// this package) is responsible for actually decoding pixels.
		return &passthroughFilter{}, nil

	default:
		log.Info.Printf("filter not supported: <%s>", filterName)
		return nil, errs.New(errs.UnsupportedFilter, "unsupported filter %q", filterName)
	}
}

// List returns the names of every filter New recognizes, in the order
// they are commonly chained.
func List() []string {
	return []string{
		"ASCIIHexDecode", "ASCII85Decode", "LZWDecode", "FlateDecode",
		"RunLengthDecode", "CCITTFaxDecode", "DCTDecode", "JPXDecode", "JBIG2Decode", "Crypt",
	}
}

// Decode runs a one-shot, full-buffer decode of p through name with parms.
// It is a convenience wrapper around the streaming contract for callers
// that already hold the whole stream in memory (the common case once a
// parser has read a stream's bytes off disk).
func Decode(name string, parms *types.Dict, p []byte) ([]byte, error) {
	f, err := New(name, parms)
	if err != nil {
		return nil, err
	}

	var out byteSink
	if err := f.BeginDecode(&out); err != nil {
		return nil, errs.Wrap(err, errs.InvalidStream, "%s: begin decode", name)
	}
	if err := f.DecodeBlock(&out, p); err != nil {
		return nil, errs.Wrap(err, errs.InvalidStream, "%s: decode block", name)
	}
	if err := f.EndDecode(&out); err != nil {
		return nil, errs.Wrap(err, errs.InvalidStream, "%s: end decode", name)
	}
	return out.buf, nil
}

// Encode runs a one-shot, full-buffer encode of p through name with parms.
func Encode(name string, parms *types.Dict, p []byte) ([]byte, error) {
	f, err := New(name, parms)
	if err != nil {
		return nil, err
	}

	var out byteSink
	if err := f.BeginEncode(&out); err != nil {
		return nil, errs.Wrap(err, errs.InvalidStream, "%s: begin encode", name)
	}
	if err := f.EncodeBlock(&out, p); err != nil {
		return nil, errs.Wrap(err, errs.InvalidStream, "%s: encode block", name)
	}
	if err := f.EndEncode(&out); err != nil {
		return nil, errs.Wrap(err, errs.InvalidStream, "%s: end encode", name)
	}
	return out.buf, nil
}

// byteSink is the simplest possible io.Writer sink, used by the one-shot
// Encode/Decode helpers above.
type byteSink struct {
	buf []byte
}

func (b *byteSink) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func intParm(parms *types.Dict, key string, dflt int) int {
	if parms == nil {
		return dflt
	}
	if v := parms.IntEntry(key); v != nil {
		return *v
	}
	return dflt
}

func boolParm(parms *types.Dict, key string, dflt bool) bool {
	if parms == nil {
		return dflt
	}
	if v := parms.BooleanEntry(key); v != nil {
		return *v
	}
	return dflt
}
