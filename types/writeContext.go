package types

import (
	"bufio"
	"io"

	"github.com/mechiko/pdfkit/log"
)

// WriteContext tracks everything a Writer needs while streaming a PDF body
// to disk: the running byte offset (used to populate the xref table as
// objects are written), which object numbers have already been written,
// and - for an incremental save - where the previous revision's xref
// section chains in from.
type WriteContext struct {
	*bufio.Writer

	Offset int64         // current write offset.
	Table  map[int]int64 // object number -> write offset, this revision only.

	WriteToObjectStream bool // pack new non-stream objects into an object stream.
	CurrentObjStream    *int // object number of that object stream, once started.

	Eol string

	BinaryTotalSize int64 // stream payload bytes written, for stats.

	// Incremental-update state.
	Incremental    bool
	StartOffset    int64  // byte offset in the original file this revision is appended after.
	PrevXRefOffset *int64 // byte offset of the xref section being chained to via /Prev.

	// Signature beacon: byte offsets (relative to the final file) of the
	// reserved placeholder fields a signing step patches after the fact.
	SignatureByteRangeOffset int64
	SignatureContentsOffset  int64
	SignatureContentsLen     int64
}

// NewWriteContext returns a new WriteContext for a full (non-incremental)
// save, buffering writes to w.
func NewWriteContext(w io.Writer, eol string) *WriteContext {
	return &WriteContext{Writer: bufio.NewWriter(w), Table: map[int]int64{}, Eol: eol}
}

// NewIncrementalWriteContext returns a WriteContext that appends after
// startOffset bytes of an existing file, chaining its new xref section
// back to prevXRefOffset via /Prev.
func NewIncrementalWriteContext(w io.Writer, eol string, startOffset, prevXRefOffset int64) *WriteContext {
	return &WriteContext{
		Writer:         bufio.NewWriter(w),
		Table:          map[int]int64{},
		Eol:            eol,
		Incremental:    true,
		StartOffset:    startOffset,
		Offset:         startOffset,
		PrevXRefOffset: &prevXRefOffset,
	}
}

// SetWriteOffset records the current write offset for objNumber.
func (wc *WriteContext) SetWriteOffset(objNumber int) {
	wc.Table[objNumber] = wc.Offset
}

// HasWriteOffset reports whether objNumber has already been written in
// this revision.
func (wc *WriteContext) HasWriteOffset(objNumber int) bool {
	_, found := wc.Table[objNumber]
	return found
}

// LogStats logs size stats for the just-written file.
func (wc *WriteContext) LogStats(fileSize int64) {
	binaryTotalSize := wc.BinaryTotalSize
	textSize := fileSize - binaryTotalSize

	log.Stats.Println("Save:")
	log.Stats.Printf("File Size        : %s (%d bytes)\n", ByteSize(fileSize), fileSize)
	log.Stats.Printf("Binary Stream Data: %s (%d bytes)\n", ByteSize(binaryTotalSize), binaryTotalSize)
	log.Stats.Printf("Text/Object Data  : %s (%d bytes)\n", ByteSize(textSize), textSize)
}

// WriteEol writes the configured end-of-line sequence.
func (wc *WriteContext) WriteEol() error {
	_, err := wc.WriteString(wc.Eol)
	return err
}
