package types

import (
	"encoding/hex"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/mechiko/pdfkit/log"
	"github.com/pkg/errors"
)

// IsStringUTF16BE checks for the UTF-16BE byte order mark, written as an
// octal escape pair inside a string literal.
func IsStringUTF16BE(s string) bool {
	ok := strings.HasPrefix(s, "\376\377")
	log.Debug.Printf("IsStringUTF16BE: <%s> returning %v\n", s, ok)
	return ok
}

// IsUTF16BE checks for a Big Endian byte order mark.
func IsUTF16BE(b []byte) (ok bool, err error) {

	if len(b) == 0 {
		return
	}

	if len(b)%2 != 0 {
		err = errors.Errorf("IsUTF16BE: needs even number of bytes: %v", b)
		return
	}

	ok = b[0] == 0xFE && b[1] == 0xFF

	return
}

func decodeUTF16String(b []byte) (s string, err error) {

	isBE, err := IsUTF16BE(b)
	if err != nil {
		return
	}

	if !isBE {
		err = errors.Errorf("decodeUTF16String: not UTF16BE: %v", b)
		return
	}

	// Strip BOM.
	b = b[2:]

	u16 := make([]uint16, 0, len(b))

	for i := 0; i < len(b); {

		val := (uint16(b[i]) << 8) + uint16(b[i+1])

		if val <= 0xD7FF || val > 0xE000 && val <= 0xFFFF {
			u16 = append(u16, val)
			i += 2
			continue
		}

		if i+2 >= len(b) {
			err = errors.Errorf("decodeUTF16String: corrupt UTF16BE on unicode point 1: %v", b)
			return
		}

		if val >= 0xDC00 && val <= 0xDFFF {
			err = errors.Errorf("decodeUTF16String: corrupt UTF16BE on unicode point 1: %v", b)
			return
		}

		u16 = append(u16, val)
		val = (uint16(b[i+2]) << 8) + uint16(b[i+3])
		if val < 0xDC00 || val > 0xDFFF {
			err = errors.Errorf("decodeUTF16String: corrupt UTF16BE on unicode point 2: %v", b)
			return
		}

		u16 = append(u16, val)
		i += 4
	}

	decb := make([]byte, 0, len(u16)*3)
	utf8Buf := make([]byte, utf8.UTFMax)

	for _, r := range utf16.Decode(u16) {
		n := utf8.EncodeRune(utf8Buf, r)
		decb = append(decb, utf8Buf[:n]...)
	}

	return string(decb), nil
}

// DecodeUTF16String decodes a UTF16BE string from its raw byte content.
func DecodeUTF16String(s string) (string, error) {
	return decodeUTF16String([]byte(s))
}

// StringLiteralToString returns the best possible decoded representation
// for a string-literal value: UTF-16BE decoded if BOM-prefixed, else
// returned unchanged (treated as PDFDocEncoding/ASCII).
func StringLiteralToString(str string) (string, error) {
	if IsStringUTF16BE(str) {
		return DecodeUTF16String(str)
	}
	return str, nil
}

// HexLiteralToString returns the best possible decoded representation for
// a hex-literal digit string: UTF-16BE decoded if BOM-prefixed, else the
// raw decoded bytes.
func HexLiteralToString(hexString string) (string, error) {
	b, err := hex.DecodeString(hexString)
	if err != nil {
		return "", err
	}

	isBE, err := IsUTF16BE(b)
	if err != nil {
		return "", err
	}

	if isBE {
		return decodeUTF16String(b)
	}

	return string(b), nil
}
