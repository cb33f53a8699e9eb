// Package errs defines the fixed error taxonomy used across pdfkit.
//
// Every error surfaced by a pdfkit package is a *Error carrying a stable
// Code, so callers can switch on failure class instead of matching
// message strings. Errors are built with Wrap/New so a Frame is attached
// at the point of creation; New wrapping never discards the code already
// attached to an inner error.
package errs

import (
	"fmt"
	"runtime"

	"github.com/pkg/errors"
)

// Code identifies a class of failure. The set is intentionally flat and
// fixed: add to it only when a genuinely new failure class appears, never
// to distinguish two messages for the same class.
type Code int

const (
	InvalidHandle Code = iota
	FileNotFound
	IOError
	UnexpectedEOF
	OutOfMemory
	ValueOutOfRange
	InternalLogic
	InvalidEnumValue
	ObjectNotFound
	MaxRecursionReached
	BrokenFile
	InvalidPDF
	InvalidXRef
	InvalidTrailer
	InvalidNumber
	InvalidEncoding
	InvalidObject
	InvalidEOFToken
	InvalidDataType
	InvalidXRefStream
	InvalidPredictor
	InvalidStream
	InvalidKey
	InvalidName
	InvalidEncryptionDict
	InvalidPassword
	InvalidFontData
	InvalidContentStream
	InvalidInput
	UnsupportedFilter
	FlateError
)

var codeNames = map[Code]string{
	InvalidHandle:         "InvalidHandle",
	FileNotFound:          "FileNotFound",
	IOError:               "IOError",
	UnexpectedEOF:         "UnexpectedEOF",
	OutOfMemory:           "OutOfMemory",
	ValueOutOfRange:       "ValueOutOfRange",
	InternalLogic:         "InternalLogic",
	InvalidEnumValue:      "InvalidEnumValue",
	ObjectNotFound:        "ObjectNotFound",
	MaxRecursionReached:   "MaxRecursionReached",
	BrokenFile:            "BrokenFile",
	InvalidPDF:            "InvalidPDF",
	InvalidXRef:           "InvalidXRef",
	InvalidTrailer:        "InvalidTrailer",
	InvalidNumber:         "InvalidNumber",
	InvalidEncoding:       "InvalidEncoding",
	InvalidObject:         "InvalidObject",
	InvalidEOFToken:       "InvalidEOFToken",
	InvalidDataType:       "InvalidDataType",
	InvalidXRefStream:     "InvalidXRefStream",
	InvalidPredictor:      "InvalidPredictor",
	InvalidStream:         "InvalidStream",
	InvalidKey:            "InvalidKey",
	InvalidName:           "InvalidName",
	InvalidEncryptionDict: "InvalidEncryptionDict",
	InvalidPassword:       "InvalidPassword",
	InvalidFontData:       "InvalidFontData",
	InvalidContentStream:  "InvalidContentStream",
	InvalidInput:          "InvalidInput",
	UnsupportedFilter:     "UnsupportedFilter",
	FlateError:            "FlateError",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "UnknownCode"
}

// Frame records one call site along the path an error was wrapped through.
type Frame struct {
	File     string
	Line     int
	Function string
}

func (f Frame) String() string {
	return fmt.Sprintf("%s:%d %s", f.File, f.Line, f.Function)
}

// Error is the concrete error type returned by pdfkit packages.
type Error struct {
	Code    Code
	Message string
	Frames  []Frame
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap allows errors.Is / errors.As to see through to the cause.
func (e *Error) Unwrap() error {
	return e.cause
}

func frame(skip int) Frame {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return Frame{File: "unknown", Line: 0, Function: "unknown"}
	}
	fn := runtime.FuncForPC(pc)
	name := "unknown"
	if fn != nil {
		name = fn.Name()
	}
	return Frame{File: file, Line: line, Function: name}
}

// New creates an Error of the given code with a formatted message and
// records the call site as the first callstack frame.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Frames:  []Frame{frame(1)},
	}
}

// Wrap attaches code and message to cause, preserving cause's own frames
// (if it is itself a pdfkit *Error) and appending the wrap site.
func Wrap(cause error, code Code, format string, args ...interface{}) *Error {
	e := &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		cause:   cause,
	}
	if inner, ok := cause.(*Error); ok {
		e.Frames = append(append([]Frame{}, inner.Frames...), frame(1))
	} else {
		e.Frames = []Frame{frame(1)}
	}
	return e
}

// Is reports whether err carries the given Code anywhere in its chain.
func Is(err error, code Code) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Code == code {
				return true
			}
			err = e.cause
			continue
		}
		var cause *Error
		if errors.As(err, &cause) {
			err = cause
			continue
		}
		return false
	}
	return false
}

// CodeOf extracts the Code of err, if any, and whether one was found.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
