package read

import (
	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/types"
)

// unpackObjectStream decodes an object stream's packed objects per 7.5.7,
// returning each contained object indexed the way its /N, offset pairs
// in the stream's prolog name them.
func unpackObjectStream(st types.Stream) ([]types.Object, error) {

	n := st.N()
	first := st.First()
	if n == nil || first == nil {
		return nil, errs.New(errs.InvalidObject, "unpackObjectStream: missing /N or /First")
	}

	decoded, err := decodeStreamRaw(st)
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidStream, "unpackObjectStream: decode")
	}

	pos := 0
	offsets := make([]int, *n)
	for i := 0; i < *n; i++ {
		pos = skipWhitespaceAndComments(decoded, pos)
		_, p1 := scanRegularToken(decoded, pos) // object number, unused: index in the stream is positional.
		p2 := skipWhitespaceAndComments(decoded, p1)
		offTok, p3 := scanRegularToken(decoded, p2)
		off, ok := parseNonNegInt(offTok)
		if !ok {
			return nil, errs.New(errs.InvalidObject, "unpackObjectStream: malformed prolog entry %d", i)
		}
		offsets[i] = off
		pos = p3
	}

	objs := make([]types.Object, *n)
	for i, off := range offsets {
		obj, _, err := parseObjectAt(decoded, *first+off)
		if err != nil {
			return nil, errs.Wrap(err, errs.InvalidObject, "unpackObjectStream: object at index %d", i)
		}
		objs[i] = obj
	}

	return objs, nil
}

// resolveCompressedObjects fills in every compressed xref entry's Object
// field by unpacking each referenced object stream exactly once.
func resolveCompressedObjects(xt *types.XRefTable) error {

	cache := map[int][]types.Object{}

	for _, e := range xt.Table {
		if !e.Compressed || e.Object != nil {
			continue
		}

		stmNr := *e.ObjectStream
		objs, ok := cache[stmNr]
		if !ok {
			container, err := xt.FindObject(stmNr)
			if err != nil {
				return errs.Wrap(err, errs.ObjectNotFound, "resolveCompressedObjects: container object stream %d", stmNr)
			}
			st, isStream := container.(types.Stream)
			if !isStream {
				return errs.New(errs.InvalidObject, "resolveCompressedObjects: object %d is not a stream", stmNr)
			}
			objs, err = unpackObjectStream(st)
			if err != nil {
				return err
			}
			cache[stmNr] = objs
		}

		idx := *e.ObjectStreamInd
		if idx < 0 || idx >= len(objs) {
			return errs.New(errs.InvalidObject, "resolveCompressedObjects: index %d out of range in stream %d", idx, stmNr)
		}
		e.Object = objs[idx]
	}

	xt.UsingObjectStreams = len(cache) > 0

	return nil
}
