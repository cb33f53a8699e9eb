package types

// FilterEntry names one stage of a stream's filter pipeline together with
// its optional decode parameters, as found in the /Filter and /DecodeParms
// entries of a stream dictionary.
type FilterEntry struct {
	Name        string
	DecodeParms *Dict
}

// Stream represents a PDF stream object: a dictionary plus the raw bytes
// that follow its "stream"/"endstream" keywords in the file body.
//
// Raw holds the bytes exactly as they appear on disk (still filter-encoded).
// Content holds the fully filter-decoded bytes once DecodedContent has been
// called; it is nil until then, so a Stream that nothing ever reads stays
// cheap to hold in memory.
type Stream struct {
	Dict
	StreamOffset      int64
	StreamLength      *int64
	StreamLengthRef   *int
	FilterPipeline    []FilterEntry
	Raw               []byte
	Content           []byte
	IsPageContent     bool
}

// NewStream wraps dict as a Stream with the given raw-stream location and
// filter pipeline.
func NewStream(dict Dict, streamOffset int64, streamLength *int64, streamLengthRef *int, pipeline []FilterEntry) Stream {
	return Stream{
		Dict:            dict,
		StreamOffset:    streamOffset,
		StreamLength:    streamLength,
		StreamLengthRef: streamLengthRef,
		FilterPipeline:  pipeline,
	}
}

// HasSoleFilterNamed reports whether name is the only filter in the
// pipeline - the common shape for already-compressed resources (images,
// embedded fonts) that a processor should leave untouched.
func (s Stream) HasSoleFilterNamed(name string) bool {
	return len(s.FilterPipeline) == 1 && s.FilterPipeline[0].Name == name
}

// ObjectStream represents an object-stream ("/Type /ObjStm") container:
// several non-stream objects packed into a single compressed stream, each
// addressable by an index recorded in the xref table.
type ObjectStream struct {
	Stream
	Prolog         []byte
	ObjCount       int
	FirstObjOffset int
	Objects        Array
}

// NewObjectStream returns an empty ObjectStream ready to receive objects
// via AddObject, FlateDecode-compressed.
func NewObjectStream() *ObjectStream {

	dict := NewDict()
	dict.Insert("Type", Name("ObjStm"))
	dict.Insert("Filter", Name("FlateDecode"))

	s := Stream{
		Dict:           dict,
		FilterPipeline: []FilterEntry{{Name: "FlateDecode"}},
	}

	return &ObjectStream{Stream: s}
}

// IndexedObject returns the object at the given index within the
// decompressed object stream.
func (os *ObjectStream) IndexedObject(index int) (Object, bool) {
	if index < 0 || index >= len(os.Objects) {
		return nil, false
	}
	return os.Objects[index], true
}

// AddObject appends objNumber's PDFString representation to the object
// stream body, recording its offset in the prolog.
func (os *ObjectStream) AddObject(objNumber int, obj Object) {

	offset := len(os.Content)

	sep := ""
	if os.ObjCount > 0 {
		sep = " "
	}

	os.Prolog = append(os.Prolog, []byte(sep)...)
	os.Prolog = append(os.Prolog, []byte(itoa(objNumber))...)
	os.Prolog = append(os.Prolog, ' ')
	os.Prolog = append(os.Prolog, []byte(itoa(offset))...)

	os.Content = append(os.Content, []byte(obj.PDFString())...)
	os.ObjCount++
}

// Finalize prepends the accumulated prolog to the object-stream body and
// records /First. Must be called exactly once before the stream is
// filter-encoded for writing.
func (os *ObjectStream) Finalize() {
	os.Content = append(os.Prolog, os.Content...)
	os.FirstObjOffset = len(os.Prolog)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// XRefStream represents a cross-reference stream ("/Type /XRef"): the
// PDF 1.5+ binary-packed replacement for the classic xref table, itself
// stored as a Stream.
type XRefStream struct {
	Stream
	Size           int
	Index          []int
	FieldWidths    [3]int
	PreviousOffset *int64
}

// NewXRefStream returns an XRefStream dict skeleton referencing root,
// info and ID from an already-populated trailer-equivalent.
func NewXRefStream(root, info *Reference, id *Array, encrypt *Reference) *XRefStream {

	dict := NewDict()
	dict.Insert("Type", Name("XRef"))
	dict.Insert("Filter", Name("FlateDecode"))

	if root != nil {
		dict.Insert("Root", *root)
	}
	if info != nil {
		dict.Insert("Info", *info)
	}
	if id != nil {
		dict.Insert("ID", *id)
	}
	if encrypt != nil {
		dict.Insert("Encrypt", *encrypt)
	}

	s := Stream{
		Dict:           dict,
		FilterPipeline: []FilterEntry{{Name: "FlateDecode"}},
	}

	return &XRefStream{Stream: s}
}
