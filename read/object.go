package read

import (
	"bytes"

	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/types"
)

// parseIndirectObject parses "objNr genNr obj ... endobj" starting at pos,
// returning the contained object (a Dict, Stream, or any direct object)
// and the position just past "endobj".
func parseIndirectObject(buf []byte, pos int) (obj types.Object, objNr, genNr, newPos int, err error) {

	pos = skipWhitespaceAndComments(buf, pos)

	nTok, p1 := scanRegularToken(buf, pos)
	n, ok := parseNonNegInt(nTok)
	if !ok {
		return nil, 0, 0, pos, errs.New(errs.InvalidObject, "parseIndirectObject: expected object number at %d", pos)
	}

	p2 := skipWhitespaceAndComments(buf, p1)
	gTok, p3 := scanRegularToken(buf, p2)
	g, ok := parseNonNegInt(gTok)
	if !ok {
		return nil, 0, 0, pos, errs.New(errs.InvalidObject, "parseIndirectObject: expected generation number at %d", p2)
	}

	p4 := skipWhitespaceAndComments(buf, p3)
	kw, p5 := scanRegularToken(buf, p4)
	if kw != "obj" {
		return nil, 0, 0, pos, errs.New(errs.InvalidObject, "parseIndirectObject: expected \"obj\" keyword, got %q", kw)
	}

	o, p6, err := parseObjectAt(buf, p5)
	if err != nil {
		return nil, n, g, p6, err
	}

	p7 := skipWhitespaceAndComments(buf, p6)

	if d, isDict := o.(types.Dict); isDict && bytes.HasPrefix(buf[p7:], []byte("stream")) {
		st, p8, err := parseStreamBody(buf, d, p7)
		if err != nil {
			return nil, n, g, p8, err
		}
		o = st
		p7 = p8
	}

	p9 := skipWhitespaceAndComments(buf, p7)
	ekw, p10 := scanRegularToken(buf, p9)
	if ekw != "endobj" {
		// Tolerate missing/garbled "endobj": the object body itself parsed
		// cleanly, which is all a relaxed reader needs.
		p10 = p9
	}

	return o, n, g, p10, nil
}

func parseNonNegInt(tok string) (int, bool) {
	if tok == "" {
		return 0, false
	}
	n := 0
	for _, c := range tok {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// parseStreamBody parses the "stream\r?\n<bytes>\nendstream" tail that
// follows a stream dictionary, per 7.3.8.1, copying the raw bytes into the
// Stream. A direct integer /Length gives the span; with an indirect or
// missing /Length the bytes run up to the next "endstream" keyword, and an
// indirect /Length's object number is only recorded, not resolved.
func parseStreamBody(buf []byte, d types.Dict, pos int) (types.Stream, int, error) {

	pos += len("stream")
	// "stream" is followed by CRLF or LF (never a bare CR), per 7.3.8.1.
	if pos < len(buf) && buf[pos] == '\x0D' {
		pos++
	}
	if pos < len(buf) && buf[pos] == '\x0A' {
		pos++
	}

	streamOffset := int64(pos)

	var length *int64
	var lengthRef *int

	if l := d.Int64Entry("Length"); l != nil {
		length = l
	} else if r := d.ReferenceEntry("Length"); r != nil {
		n := r.ObjectNumber
		lengthRef = &n
	}

	end := len(buf)
	if length != nil {
		end = pos + int(*length)
		if end > len(buf) {
			end = len(buf)
		}
	} else {
		// No directly-known length: scan for the next "endstream" keyword.
		if idx := bytes.Index(buf[pos:], []byte("endstream")); idx >= 0 {
			end = pos + idx
		}
	}

	raw := append([]byte{}, buf[pos:end]...)

	pipeline, err := filterPipeline(d)
	if err != nil {
		return types.Stream{}, end, err
	}

	st := types.NewStream(d, streamOffset, length, lengthRef, pipeline)
	st.Raw = raw

	p := skipWhitespaceAndComments(buf, end)
	kw, p2 := scanRegularToken(buf, p)
	if kw != "endstream" {
		p2 = p
	}

	return st, p2, nil
}

// filterPipeline reads /Filter and /DecodeParms (each either a single
// value or a parallel array) into an ordered FilterEntry chain.
func filterPipeline(d types.Dict) ([]types.FilterEntry, error) {

	v, ok := d.Find("Filter")
	if !ok {
		return nil, nil
	}

	var names []string
	switch f := v.(type) {
	case types.Name:
		names = []string{string(f)}
	case types.Array:
		for _, e := range f {
			n, ok := e.(types.Name)
			if !ok {
				return nil, errs.New(errs.InvalidObject, "filterPipeline: /Filter array element is not a name")
			}
			names = append(names, string(n))
		}
	default:
		return nil, errs.New(errs.InvalidObject, "filterPipeline: /Filter must be a name or array")
	}

	var parmsList []*types.Dict
	if pv, ok := d.Find("DecodeParms"); ok {
		switch p := pv.(type) {
		case types.Dict:
			pc := p
			parmsList = []*types.Dict{&pc}
		case types.Array:
			for _, e := range p {
				if _, isNull := e.(types.Null); isNull {
					parmsList = append(parmsList, nil)
					continue
				}
				pd, ok := e.(types.Dict)
				if !ok {
					return nil, errs.New(errs.InvalidObject, "filterPipeline: /DecodeParms array element is not a dict")
				}
				pc := pd
				parmsList = append(parmsList, &pc)
			}
		}
	}

	pipeline := make([]types.FilterEntry, len(names))
	for i, n := range names {
		var parms *types.Dict
		if i < len(parmsList) {
			parms = parmsList[i]
		}
		pipeline[i] = types.FilterEntry{Name: n, DecodeParms: parms}
	}

	return pipeline, nil
}
