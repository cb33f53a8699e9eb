// Package read implements the PDF object parser (7.2, 7.3, 7.5): turning
// the raw bytes of a file into a types.XRefTable of materialized objects.
package read

import (
	"bytes"
	"math"
	"strconv"

	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/types"
)

func isWhitespace(b byte) bool {
	switch b {
	case 0x00, 0x09, 0x0A, 0x0C, 0x0D, 0x20:
		return true
	}
	return false
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(b byte) bool {
	return !isWhitespace(b) && !isDelimiter(b)
}

// skipWhitespaceAndComments advances pos past whitespace and "%...EOL"
// comments, per 7.2.3.
func skipWhitespaceAndComments(buf []byte, pos int) int {
	for pos < len(buf) {
		if isWhitespace(buf[pos]) {
			pos++
			continue
		}
		if buf[pos] == '%' {
			for pos < len(buf) && buf[pos] != '\x0A' && buf[pos] != '\x0D' {
				pos++
			}
			continue
		}
		break
	}
	return pos
}

func scanRegularToken(buf []byte, pos int) (string, int) {
	start := pos
	for pos < len(buf) && isRegular(buf[pos]) {
		pos++
	}
	return string(buf[start:pos]), pos
}

// parseObjectAt parses one PDF object (or keyword literal true/false/null)
// starting at pos, returning the object and the position just past it.
func parseObjectAt(buf []byte, pos int) (types.Object, int, error) {

	pos = skipWhitespaceAndComments(buf, pos)
	if pos >= len(buf) {
		return nil, pos, errs.New(errs.UnexpectedEOF, "parseObjectAt: unexpected end of input")
	}

	switch {

	case buf[pos] == '/':
		return parseName(buf, pos)

	case buf[pos] == '(':
		return parseLiteralString(buf, pos)

	case bytes.HasPrefix(buf[pos:], []byte("<<")):
		return parseDict(buf, pos)

	case buf[pos] == '<':
		return parseHexString(buf, pos)

	case buf[pos] == '[':
		return parseArray(buf, pos)

	case bytes.HasPrefix(buf[pos:], []byte("true")):
		return types.Boolean(true), pos + 4, nil

	case bytes.HasPrefix(buf[pos:], []byte("false")):
		return types.Boolean(false), pos + 5, nil

	case bytes.HasPrefix(buf[pos:], []byte("null")):
		return types.Null{}, pos + 4, nil

	case buf[pos] == '+' || buf[pos] == '-' || buf[pos] == '.' || (buf[pos] >= '0' && buf[pos] <= '9'):
		return parseNumberOrReference(buf, pos)

	default:
		tok, next := scanRegularToken(buf, pos)
		return nil, next, errs.New(errs.InvalidObject, "parseObjectAt: unrecognized token %q at offset %d", tok, pos)
	}
}

func parseName(buf []byte, pos int) (types.Name, int, error) {
	pos++ // consume '/'
	start := pos
	var b bytes.Buffer
	for pos < len(buf) && isRegular(buf[pos]) {
		if buf[pos] == '#' && pos+2 < len(buf) && isHexDigit(buf[pos+1]) && isHexDigit(buf[pos+2]) {
			v, err := hexByte(buf[pos+1], buf[pos+2])
			if err != nil {
				return "", pos, err
			}
			b.WriteByte(v)
			pos += 3
			continue
		}
		b.WriteByte(buf[pos])
		pos++
	}
	if pos == start {
		return types.Name(""), pos, nil
	}
	return types.Name(b.String()), pos, nil
}

func isHexDigit(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
}

func hexByte(hi, lo byte) (byte, error) {
	h, err := hexNibble(hi)
	if err != nil {
		return 0, err
	}
	l, err := hexNibble(lo)
	if err != nil {
		return 0, err
	}
	return h<<4 | l, nil
}

func hexNibble(b byte) (byte, error) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', nil
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, nil
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, nil
	}
	return 0, errs.New(errs.InvalidEncoding, "not a hex digit: %q", b)
}

// parseLiteralString parses a "(...)" string per 7.3.4.2, unescaping as it
// goes: the returned StringLiteral already holds plain bytes.
func parseLiteralString(buf []byte, pos int) (types.StringLiteral, int, error) {

	pos++ // consume '('
	depth := 1
	var b bytes.Buffer

	for pos < len(buf) {
		c := buf[pos]

		if c == '\\' {
			pos++
			if pos >= len(buf) {
				break
			}
			e := buf[pos]
			switch e {
			case 'n':
				b.WriteByte('\n')
				pos++
			case 'r':
				b.WriteByte('\r')
				pos++
			case 't':
				b.WriteByte('\t')
				pos++
			case 'b':
				b.WriteByte('\b')
				pos++
			case 'f':
				b.WriteByte('\f')
				pos++
			case '(', ')', '\\':
				b.WriteByte(e)
				pos++
			case '\x0D':
				pos++
				if pos < len(buf) && buf[pos] == '\x0A' {
					pos++
				}
			case '\x0A':
				pos++
			default:
				if e >= '0' && e <= '7' {
					var octal []byte
					for len(octal) < 3 && pos < len(buf) && buf[pos] >= '0' && buf[pos] <= '7' {
						octal = append(octal, buf[pos])
						pos++
					}
					b.WriteByte(byteForOctal(octal))
				} else {
					b.WriteByte(e)
					pos++
				}
			}
			continue
		}

		if c == '(' {
			depth++
			b.WriteByte(c)
			pos++
			continue
		}

		if c == ')' {
			depth--
			pos++
			if depth == 0 {
				return types.StringLiteral(b.String()), pos, nil
			}
			b.WriteByte(c)
			continue
		}

		if c == '\x0D' {
			b.WriteByte('\x0A')
			pos++
			if pos < len(buf) && buf[pos] == '\x0A' {
				pos++
			}
			continue
		}

		b.WriteByte(c)
		pos++
	}

	return "", pos, errs.New(errs.UnexpectedEOF, "parseLiteralString: unbalanced parentheses")
}

func byteForOctal(digits []byte) byte {
	var v float64
	var exp float64
	for i := len(digits) - 1; i >= 0; i-- {
		v += float64(digits[i]-'0') * math.Pow(8, exp)
		exp++
	}
	return byte(v)
}

// parseHexString parses a "<...>" string per 7.3.4.3.
func parseHexString(buf []byte, pos int) (types.HexLiteral, int, error) {
	pos++ // consume '<'
	start := pos
	for pos < len(buf) && buf[pos] != '>' {
		pos++
	}
	if pos >= len(buf) {
		return "", pos, errs.New(errs.UnexpectedEOF, "parseHexString: missing '>'")
	}

	var digits bytes.Buffer
	for _, c := range buf[start:pos] {
		if isWhitespace(c) {
			continue
		}
		if !isHexDigit(c) {
			return "", pos, errs.New(errs.InvalidEncoding, "parseHexString: illegal character %q", c)
		}
		digits.WriteByte(c)
	}

	return types.HexLiteral(digits.String()), pos + 1, nil
}

// parseNumberOrReference parses an Integer or Real, then looks ahead for
// "gen R" to recognize an indirect reference per 7.3.10.
func parseNumberOrReference(buf []byte, pos int) (types.Object, int, error) {

	numTok, next := scanRegularToken(buf, pos)
	if numTok == "" {
		return nil, pos, errs.New(errs.InvalidNumber, "parseNumberOrReference: empty numeric token at %d", pos)
	}

	if !bytes.ContainsAny([]byte(numTok), ".eE") {
		if i, err := strconv.ParseInt(numTok, 10, 64); err == nil {

			save := next
			p2 := skipWhitespaceAndComments(buf, next)
			genTok, p3 := scanRegularToken(buf, p2)
			if gen, err := strconv.Atoi(genTok); err == nil && genTok != "" {
				p4 := skipWhitespaceAndComments(buf, p3)
				if p4 < len(buf) && buf[p4] == 'R' && (p4+1 >= len(buf) || !isRegular(buf[p4+1])) {
					return types.NewReference(int(i), gen), p4 + 1, nil
				}
			}

			return types.Integer(i), save, nil
		}
	}

	f, err := strconv.ParseFloat(numTok, 64)
	if err != nil {
		return nil, next, errs.Wrap(err, errs.InvalidNumber, "parseNumberOrReference: %q", numTok)
	}
	return types.Real(f), next, nil
}

// parseArray parses a "[...]" array per 7.3.6.
func parseArray(buf []byte, pos int) (types.Array, int, error) {
	pos++ // consume '['
	arr := types.Array{}

	for {
		pos = skipWhitespaceAndComments(buf, pos)
		if pos >= len(buf) {
			return nil, pos, errs.New(errs.UnexpectedEOF, "parseArray: unterminated array")
		}
		if buf[pos] == ']' {
			return arr, pos + 1, nil
		}
		obj, next, err := parseObjectAt(buf, pos)
		if err != nil {
			return nil, next, err
		}
		arr = append(arr, obj)
		pos = next
	}
}

// parseDict parses a "<<...>>" dictionary per 7.3.7, preserving key
// insertion order.
func parseDict(buf []byte, pos int) (types.Dict, int, error) {
	pos += 2 // consume '<<'
	d := types.NewDict()

	for {
		pos = skipWhitespaceAndComments(buf, pos)
		if pos >= len(buf) {
			return d, pos, errs.New(errs.UnexpectedEOF, "parseDict: unterminated dictionary")
		}
		if bytes.HasPrefix(buf[pos:], []byte(">>")) {
			return d, pos + 2, nil
		}
		if buf[pos] != '/' {
			return d, pos, errs.New(errs.InvalidObject, "parseDict: expected key, got %q at %d", buf[pos], pos)
		}

		key, next, err := parseName(buf, pos)
		if err != nil {
			return d, next, err
		}

		next = skipWhitespaceAndComments(buf, next)
		val, next2, err := parseObjectAt(buf, next)
		if err != nil {
			return d, next2, err
		}

		d.Insert(string(key), val)
		pos = next2
	}
}
