package types

import (
	"fmt"
	"strings"
)

// Array represents a PDF array object. Element order is simply slice
// order: unlike Dict there is no separate ordering concern to preserve.
type Array []Object

// NewStringArray returns an Array with StringLiteral entries.
func NewStringArray(svars ...string) Array {
	a := Array{}
	for _, s := range svars {
		a = append(a, StringLiteral(s))
	}
	return a
}

// NewNameArray returns an Array with Name entries.
func NewNameArray(svars ...string) Array {
	a := Array{}
	for _, s := range svars {
		a = append(a, Name(s))
	}
	return a
}

// NewNumberArray returns an Array with Real entries.
func NewNumberArray(fvars ...float64) Array {
	a := Array{}
	for _, f := range fvars {
		a = append(a, Real(f))
	}
	return a
}

// NewIntegerArray returns an Array with Integer entries.
func NewIntegerArray(ivars ...int) Array {
	a := Array{}
	for _, i := range ivars {
		a = append(a, Integer(i))
	}
	return a
}

// NewRectangle builds the 4-element Array conventionally used for
// /MediaBox, /CropBox and similar rectangle entries.
func NewRectangle(llx, lly, urx, ury float64) Array {
	return NewNumberArray(llx, lly, urx, ury)
}

func (a Array) indentedString(level int) string {

	logstr := []string{"["}
	tabstr := strings.Repeat("\t", level)
	first := true
	sepstr := ""

	for _, entry := range a {

		if first {
			first = false
			sepstr = ""
		} else {
			sepstr = " "
		}

		if subdict, ok := entry.(*Dict); ok {
			dictstr := subdict.string(level + 1)
			logstr = append(logstr, fmt.Sprintf("\n%[1]s%[2]s\n%[1]s", tabstr, dictstr))
			first = true
			continue
		}

		if arr, ok := entry.(Array); ok {
			arrstr := arr.indentedString(level + 1)
			logstr = append(logstr, fmt.Sprintf("%s%s", sepstr, arrstr))
			continue
		}

		logstr = append(logstr, fmt.Sprintf("%s%v", sepstr, entry))
	}

	logstr = append(logstr, "]")

	return strings.Join(logstr, "")
}

func (a Array) String() string {
	return a.indentedString(1)
}

// PDFString returns the string representation as found in and written to
// a PDF file body.
func (a Array) PDFString() string {

	var sb strings.Builder
	sb.WriteByte('[')

	for i, entry := range a {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if entry == nil {
			sb.WriteString("null")
			continue
		}
		sb.WriteString(entry.PDFString())
	}

	sb.WriteByte(']')

	return sb.String()
}

