// Package types implements the PDF object model: the tagged union of
// object kinds defined by ISO 32000-1 §7.3, plus the Dict and Array
// container types built on top of it.
//
// Every concrete kind implements Object. Kinds are plain value types
// (Boolean, Integer, Real, Name, ...) except Dict, Array and Stream, which
// carry internal state and are therefore always handled through pointers
// once they are mutated in place.
package types

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Object is implemented by every PDF object kind. String renders a form
// suitable for debug output; PDFString renders the exact byte sequence
// written to (or read from) a PDF file body.
type Object interface {
	fmt.Stringer
	PDFString() string
}

// Null represents the PDF null object.
type Null struct{}

func (Null) String() string    { return "null" }
func (Null) PDFString() string { return "null" }

// Boolean represents a PDF boolean object.
type Boolean bool

func (b Boolean) String() string    { return fmt.Sprintf("%v", bool(b)) }
func (b Boolean) PDFString() string { return b.String() }
func (b Boolean) Value() bool       { return bool(b) }

// Integer represents a PDF integer numeric object.
type Integer int64

func (i Integer) String() string    { return strconv.FormatInt(int64(i), 10) }
func (i Integer) PDFString() string { return i.String() }
func (i Integer) Value() int64      { return int64(i) }

// Real represents a PDF real numeric object.
type Real float64

func (f Real) String() string {
	s := strconv.FormatFloat(float64(f), 'f', -1, 64)
	return s
}
func (f Real) PDFString() string { return f.String() }
func (f Real) Value() float64    { return float64(f) }

// Name represents a PDF name object. Value holds the decoded name (with
// any #xx escapes already resolved); PDFString re-escapes on output.
type Name string

func (n Name) String() string { return string(n) }

// PDFString re-escapes characters outside the regular-character range
// defined in 7.3.5, using the #xx notation.
func (n Name) PDFString() string {
	var b strings.Builder
	b.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c == 0 || c > 0x7e || c == '#' || c == '(' || c == ')' || c == '<' || c == '>' ||
			c == '[' || c == ']' || c == '{' || c == '}' || c == '/' || c == '%' ||
			c <= 0x20 {
			fmt.Fprintf(&b, "#%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func (n Name) Value() string { return string(n) }

// StringLiteral represents a PDF string object written in literal ( ... )
// form. Value holds the already-unescaped byte content.
type StringLiteral string

func (s StringLiteral) String() string { return fmt.Sprintf("(%s)", string(s)) }

// PDFString escapes parentheses and backslashes per 7.3.4.2 and wraps in
// literal-string delimiters.
func (s StringLiteral) PDFString() string {
	return fmt.Sprintf("(%s)", EscapeStringLiteral(string(s)))
}

func (s StringLiteral) Value() string { return string(s) }

// EscapeStringLiteral escapes '(', ')' and '\' for literal-string output.
func EscapeStringLiteral(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(s[i])
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// DateStringLiteral formats t as a PDF date string per 7.9.4.
func DateStringLiteral(t time.Time) StringLiteral {
	_, tz := t.Zone()
	return StringLiteral(fmt.Sprintf("D:%04d%02d%02d%02d%02d%02d+%02d'%02d'",
		t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(),
		tz/60/60, tz/60%60))
}

// HexLiteral represents a PDF string object written in hex < ... > form.
// Value holds the raw (still-hex-encoded) digit string.
type HexLiteral string

func (h HexLiteral) String() string    { return fmt.Sprintf("<%s>", string(h)) }
func (h HexLiteral) PDFString() string { return h.String() }
func (h HexLiteral) Value() string     { return string(h) }

// Bytes decodes the hex digit string to its byte content. An odd-length
// digit string is padded with a trailing 0 per 7.3.4.3.
func (h HexLiteral) Bytes() ([]byte, error) {
	s := string(h)
	if len(s)%2 == 1 {
		s += "0"
	}
	return hex.DecodeString(s)
}

// NewHexLiteral encodes b as a HexLiteral.
func NewHexLiteral(b []byte) HexLiteral {
	return HexLiteral(strings.ToUpper(hex.EncodeToString(b)))
}

// Reference represents an indirect reference "objNum gen R".
type Reference struct {
	ObjectNumber     int
	GenerationNumber int
}

// NewReference returns a Reference to (objNum, gen).
func NewReference(objNum, gen int) Reference {
	return Reference{ObjectNumber: objNum, GenerationNumber: gen}
}

func (r Reference) String() string    { return r.PDFString() }
func (r Reference) PDFString() string { return fmt.Sprintf("%d %d R", r.ObjectNumber, r.GenerationNumber) }

// Equals reports whether r and other address the same object.
func (r Reference) Equals(other Reference) bool {
	return r.ObjectNumber == other.ObjectNumber && r.GenerationNumber == other.GenerationNumber
}
