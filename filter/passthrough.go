package filter

import "io"

// passthroughFilter implements the image/opaque filters (DCTDecode,
// CCITTFaxDecode, JBIG2Decode, JPXDecode, Crypt) as pure pass-through: the
// object model carries the encoded bytes unmodified in both directions.
// Decoding pixels out of a JPEG or CCITT Group 4 stream is an image
// codec's job, not the object model's - a caller that wants pixels
// dereferences the stream's raw bytes and hands them to such a codec
// directly.
type passthroughFilter struct{}

func (passthroughFilter) BeginEncode(dst io.Writer) error                  { return nil }
func (passthroughFilter) EncodeBlock(dst io.Writer, block []byte) error    { _, err := dst.Write(block); return err }
func (passthroughFilter) EndEncode(dst io.Writer) error                    { return nil }
func (passthroughFilter) BeginDecode(dst io.Writer) error                  { return nil }
func (passthroughFilter) DecodeBlock(dst io.Writer, block []byte) error    { _, err := dst.Write(block); return err }
func (passthroughFilter) EndDecode(dst io.Writer) error                    { return nil }
