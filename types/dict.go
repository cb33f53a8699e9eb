package types

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Dict represents a PDF dictionary object.
//
// Entries preserve insertion order: PDFString and String walk keys in the
// order they were first Inserted, not sorted order. A reader round-tripping
// a file through Load/Save therefore reproduces each dictionary's original
// key order byte-for-byte, which matters for diff-friendliness and for
// producers that rely on /Type (or similarly conventional keys) appearing
// first.
type Dict struct {
	values map[string]Object
	order  []string
}

// NewDict returns an empty Dict.
func NewDict() Dict {
	return Dict{values: map[string]Object{}}
}

// Len returns the number of entries in d.
func (d *Dict) Len() int {
	return len(d.order)
}

// Keys returns the entry keys in insertion order. The returned slice must
// not be mutated.
func (d *Dict) Keys() []string {
	return d.order
}

// Insert adds a new entry (key, value) to d. It is a no-op returning false
// if key is already present; use Update to overwrite.
func (d *Dict) Insert(key string, value Object) bool {
	if d.values == nil {
		d.values = map[string]Object{}
	}
	if _, found := d.values[key]; found {
		return false
	}
	d.values[key] = value
	d.order = append(d.order, key)
	return true
}

// Update overwrites an existing entry, or inserts it at the end of the
// order if key is new.
func (d *Dict) Update(key string, value Object) {
	if value == nil {
		return
	}
	if d.values == nil {
		d.values = map[string]Object{}
	}
	if _, found := d.values[key]; !found {
		d.order = append(d.order, key)
	}
	d.values[key] = value
}

// Find returns the Object for key, and whether it was present.
func (d Dict) Find(key string) (Object, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Delete removes key from d and returns its prior value, or nil if absent.
func (d *Dict) Delete(key string) Object {
	v, found := d.values[key]
	if !found {
		return nil
	}
	delete(d.values, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return v
}

// Clone returns a shallow copy of d with its own independent order slice.
func (d Dict) Clone() Dict {
	c := NewDict()
	for _, k := range d.order {
		c.Insert(k, d.values[k])
	}
	return c
}

// BooleanEntry returns the Boolean entry for key, or nil if absent or of
// another kind.
func (d Dict) BooleanEntry(key string) *bool {
	v, found := d.Find(key)
	if !found {
		return nil
	}
	if b, ok := v.(Boolean); ok {
		val := bool(b)
		return &val
	}
	return nil
}

// StringEntry returns the decoded StringLiteral value for key.
func (d Dict) StringEntry(key string) *string {
	v, found := d.Find(key)
	if !found {
		return nil
	}
	if s, ok := v.(StringLiteral); ok {
		val := string(s)
		return &val
	}
	return nil
}

// NameEntry returns the decoded Name value for key.
func (d Dict) NameEntry(key string) *string {
	v, found := d.Find(key)
	if !found {
		return nil
	}
	if n, ok := v.(Name); ok {
		val := string(n)
		return &val
	}
	return nil
}

// IntEntry returns the Integer value for key as an int.
func (d Dict) IntEntry(key string) *int {
	v, found := d.Find(key)
	if !found {
		return nil
	}
	if i, ok := v.(Integer); ok {
		val := int(i)
		return &val
	}
	return nil
}

// Int64Entry returns the Integer value for key as an int64.
func (d Dict) Int64Entry(key string) *int64 {
	v, found := d.Find(key)
	if !found {
		return nil
	}
	if i, ok := v.(Integer); ok {
		val := int64(i)
		return &val
	}
	return nil
}

// ReferenceEntry returns the Reference value for key.
func (d Dict) ReferenceEntry(key string) *Reference {
	v, found := d.Find(key)
	if !found {
		return nil
	}
	if r, ok := v.(Reference); ok {
		return &r
	}
	return nil
}

// DictEntry returns the Dict value for key.
func (d Dict) DictEntry(key string) *Dict {
	v, found := d.Find(key)
	if !found {
		return nil
	}
	switch sub := v.(type) {
	case *Dict:
		return sub
	case Dict:
		return &sub
	}
	return nil
}

// StreamEntry returns the Stream value for key.
func (d Dict) StreamEntry(key string) *Stream {
	v, found := d.Find(key)
	if !found {
		return nil
	}
	if s, ok := v.(*Stream); ok {
		return s
	}
	return nil
}

// ArrayEntry returns the Array value for key.
func (d Dict) ArrayEntry(key string) *Array {
	v, found := d.Find(key)
	if !found {
		return nil
	}
	if a, ok := v.(Array); ok {
		return &a
	}
	return nil
}

// StringLiteralEntry returns the StringLiteral object for key.
func (d Dict) StringLiteralEntry(key string) *StringLiteral {
	v, found := d.Find(key)
	if !found {
		return nil
	}
	if s, ok := v.(StringLiteral); ok {
		return &s
	}
	return nil
}

// HexLiteralEntry returns the HexLiteral object for key.
func (d Dict) HexLiteralEntry(key string) *HexLiteral {
	v, found := d.Find(key)
	if !found {
		return nil
	}
	if h, ok := v.(HexLiteral); ok {
		return &h
	}
	return nil
}

// NameObjEntry returns the Name object for key.
func (d Dict) NameObjEntry(key string) *Name {
	v, found := d.Find(key)
	if !found {
		return nil
	}
	if n, ok := v.(Name); ok {
		return &n
	}
	return nil
}

// Length returns the /Length entry, either as a literal int64 or, if it is
// an indirect reference, the referenced object number.
func (d Dict) Length() (*int64, *int) {
	if v := d.Int64Entry("Length"); v != nil {
		return v, nil
	}
	if r := d.ReferenceEntry("Length"); r != nil {
		n := r.ObjectNumber
		return nil, &n
	}
	return nil, nil
}

// Type returns the value of the name entry for key "Type".
func (d Dict) Type() *string { return d.NameEntry("Type") }

// Subtype returns the value of the name entry for key "Subtype".
func (d Dict) Subtype() *string { return d.NameEntry("Subtype") }

// Size returns the value of the int entry for key "Size".
func (d Dict) Size() *int { return d.IntEntry("Size") }

// IsObjStm reports whether d is an object stream dictionary.
func (d Dict) IsObjStm() bool {
	return d.Type() != nil && *d.Type() == "ObjStm"
}

// IsXRefStm reports whether d is a cross-reference stream dictionary.
func (d Dict) IsXRefStm() bool {
	return d.Type() != nil && *d.Type() == "XRef"
}

// W returns the /W entry (xref stream field widths).
func (d Dict) W() *Array { return d.ArrayEntry("W") }

// Prev returns the /Prev entry (byte offset of a previous xref section).
func (d Dict) Prev() *int64 { return d.Int64Entry("Prev") }

// Index returns the /Index entry (subsection pairs in a xref stream).
func (d Dict) Index() *Array { return d.ArrayEntry("Index") }

// N returns the /N entry (object count in an object stream).
func (d Dict) N() *int { return d.IntEntry("N") }

// First returns the /First entry (offset of the first object in an object stream).
func (d Dict) First() *int { return d.IntEntry("First") }

// IsLinearizationParmDict reports whether d carries a /Linearized entry.
func (d Dict) IsLinearizationParmDict() bool {
	return d.IntEntry("Linearized") != nil
}

func (d Dict) string(ident int) string {

	logstr := []string{"<<\n"}
	tabstr := strings.Repeat("\t", ident)

	for _, k := range d.order {
		v := d.values[k]

		if subdict, ok := v.(*Dict); ok {
			dictStr := subdict.string(ident + 1)
			logstr = append(logstr, fmt.Sprintf("%s<%s, %s>\n", tabstr, k, dictStr))
			continue
		}

		if arr, ok := v.(Array); ok {
			arrStr := arr.indentedString(ident + 1)
			logstr = append(logstr, fmt.Sprintf("%s<%s, %s>\n", tabstr, k, arrStr))
			continue
		}

		logstr = append(logstr, fmt.Sprintf("%s<%s, %v>\n", tabstr, k, v))
	}

	logstr = append(logstr, fmt.Sprintf("%s%s", strings.Repeat("\t", ident-1), ">>"))

	return strings.Join(logstr, "")
}

func (d Dict) String() string {
	return d.string(1)
}

// PDFString returns the string representation as found in and written to
// a PDF file body, with entries emitted in insertion order.
func (d Dict) PDFString() string {

	var sb strings.Builder
	sb.WriteString("<<")

	for _, k := range d.order {
		v := d.values[k]
		if v == nil {
			fmt.Fprintf(&sb, "/%s null", k)
			continue
		}

		switch val := v.(type) {
		case *Dict:
			fmt.Fprintf(&sb, "/%s%s", k, val.PDFString())
		case Array:
			fmt.Fprintf(&sb, "/%s%s", k, val.PDFString())
		case Reference:
			fmt.Fprintf(&sb, "/%s %s", k, val.PDFString())
		case Name:
			fmt.Fprintf(&sb, "/%s%s", k, val.PDFString())
		default:
			fmt.Fprintf(&sb, "/%s %s", k, v.PDFString())
		}
	}

	sb.WriteString(">>")
	return sb.String()
}

// byteForOctalString converts a 1-, 2- or 3-digit unescaped octal string
// into the corresponding byte value.
func byteForOctalString(octalBytes []byte) (b byte) {
	for _, d := range octalBytes {
		b = b*8 + (d - '0')
	}
	return
}

// EscapeLiteral applies the defined escape sequences to s ('(', ')', '\').
func EscapeLiteral(s string) (*string, error) {
	var b bytes.Buffer
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.ContainsRune("()\\", rune(c)) {
			b.WriteByte(0x5C)
		}
		b.WriteByte(c)
	}
	s1 := b.String()
	return &s1, nil
}

// Unescape resolves all string-literal escape sequences in s per 7.3.4.2.
func Unescape(s string) ([]byte, error) {

	var esc bool
	var longEol bool
	var octalCode []byte
	var b bytes.Buffer

	for i := 0; i < len(s); i++ {

		c := s[i]

		if longEol {
			esc = false
			longEol = false
			if c == 0x0A {
				continue
			}
		}

		if c != 0x5C && !esc {
			b.WriteByte(c)
			continue
		}

		if c == 0x5C {
			if !esc {
				esc = true
			} else {
				if len(octalCode) > 0 {
					return nil, errors.Errorf("Unescape: illegal \\ in octal code sequence detected %X", octalCode)
				}
				b.WriteByte(c)
				esc = false
			}
			continue
		}

		if len(octalCode) > 0 {
			if !strings.ContainsRune("01234567", rune(c)) {
				return nil, errors.Errorf("Unescape: illegal octal sequence detected %X", octalCode)
			}
			octalCode = append(octalCode, c)
			if len(octalCode) == 3 {
				b.WriteByte(byteForOctalString(octalCode))
				octalCode = nil
				esc = false
			}
			continue
		}

		if c == 0x0A {
			esc = false
			continue
		}

		if c == 0x0D {
			longEol = true
			continue
		}

		if !strings.ContainsRune("nrtbf()01234567", rune(c)) {
			return nil, errors.Errorf("Unescape: illegal escape sequence \\%c detected", c)
		}

		switch c {
		case 'n':
			c = 0x0A
		case 'r':
			c = 0x0D
		case 't':
			c = 0x09
		case 'b':
			c = 0x08
		case 'f':
			c = 0x0C
		case '(', ')':
		case '0', '1', '2', '3', '4', '5', '6', '7':
			octalCode = append(octalCode, c)
			continue
		}

		b.WriteByte(c)
		esc = false
	}

	return b.Bytes(), nil
}

// StringEntryBytes returns the decoded byte content of a string entry,
// whichever literal form (parenthesized or hex) it was written in.
func (d Dict) StringEntryBytes(key string) ([]byte, error) {

	if s := d.StringLiteralEntry(key); s != nil {
		return []byte(s.Value()), nil
	}

	if h := d.HexLiteralEntry(key); h != nil {
		return h.Bytes()
	}

	return nil, nil
}

// NewEncryptDict creates a new /Encrypt dictionary skeleton using the
// standard security handler, AES-128 (V4/R4) crypt filter.
func NewEncryptDict() *Dict {

	d := NewDict()
	d.Insert("Filter", Name("Standard"))
	d.Insert("Length", Integer(128))
	d.Insert("R", Integer(4))
	d.Insert("V", Integer(4))
	d.Insert("P", Integer(-4))
	d.Insert("StmF", Name("StdCF"))
	d.Insert("StrF", Name("StdCF"))

	cf := NewDict()
	cf.Insert("AuthEvent", Name("DocOpen"))
	cf.Insert("CFM", Name("AESV2"))
	cf.Insert("Length", Integer(16))

	cfDict := NewDict()
	cfDict.Insert("StdCF", &cf)

	d.Insert("CF", &cfDict)

	h := "0000000000000000000000000000000000000000000000000000000000000000"
	d.Insert("U", HexLiteral(h))
	d.Insert("O", HexLiteral(h))

	return &d
}
