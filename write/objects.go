package write

import (
	"fmt"

	"github.com/mechiko/pdfkit/crypto"
	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/filter"
	"github.com/mechiko/pdfkit/types"
)

func writeObjectHeader(wc *types.WriteContext, objNumber, genNumber int) (int, error) {
	return wc.WriteString(fmt.Sprintf("%d %d obj%s", objNumber, genNumber, wc.Eol))
}

func writeObjectTrailer(wc *types.WriteContext) (int, error) {
	return wc.WriteString(fmt.Sprintf("%sendobj%s", wc.Eol, wc.Eol))
}

// writeObject serializes one indirect object: "N G obj", its PDFString
// (or, for a Stream, its dict plus raw stream body), and "endobj". sh nil
// skips encryption entirely.
func writeObject(wc *types.WriteContext, objNr, genNr int, obj types.Object, sh *crypto.SecurityHandler) error {

	if sh != nil {
		var err error
		obj, err = encryptForWrite(obj, objNr, genNr, sh)
		if err != nil {
			return err
		}
	}

	wc.SetWriteOffset(objNr)

	h, err := writeObjectHeader(wc, objNr, genNr)
	if err != nil {
		return errs.Wrap(err, errs.IOError, "write object header %d", objNr)
	}

	var body int
	if st, ok := obj.(types.Stream); ok {
		body, err = writeStreamObject(wc, st)
	} else {
		body, err = wc.WriteString(obj.PDFString())
	}
	if err != nil {
		return errs.Wrap(err, errs.IOError, "write object body %d", objNr)
	}

	t, err := writeObjectTrailer(wc)
	if err != nil {
		return errs.Wrap(err, errs.IOError, "write object trailer %d", objNr)
	}

	wc.Offset += int64(h + body + t)
	if st, ok := obj.(types.Stream); ok {
		wc.BinaryTotalSize += int64(len(st.Raw))
	}

	return nil
}

// writeStreamObject writes st's dict followed by its raw (already
// filter-encoded, already encrypted if applicable) bytes between the
// "stream"/"endstream" keywords, per 7.3.8. /Length is kept in sync with
// the bytes actually written, since encryption can change a stream's
// length (AES padding).
func writeStreamObject(wc *types.WriteContext, st types.Stream) (int, error) {

	l := int64(len(st.Raw))
	d := st.Dict.Clone()
	d.Update("Length", types.Integer(l))

	n, err := wc.WriteString(d.PDFString())
	if err != nil {
		return n, err
	}

	b, err := wc.WriteString(wc.Eol + "stream" + wc.Eol)
	if err != nil {
		return n, err
	}
	n += b

	c, err := wc.Write(st.Raw)
	if err != nil {
		return n, err
	}
	n += c

	e, err := wc.WriteString(wc.Eol + "endstream")
	if err != nil {
		return n, err
	}
	n += e

	return n, nil
}

// encryptForWrite returns a copy of obj with every string and stream
// encrypted under sh, without mutating obj itself - Dict.Clone/fresh
// slices keep the caller's in-memory document usable (and re-savable
// without double-encryption) after a Save.
func encryptForWrite(obj types.Object, objNr, genNr int, sh *crypto.SecurityHandler) (types.Object, error) {

	switch v := obj.(type) {

	case types.Stream:
		clone := v.Dict.Clone()
		for _, k := range clone.Keys() {
			val, _ := clone.Find(k)
			ev, err := encryptForWrite(val, objNr, genNr, sh)
			if err != nil {
				return nil, err
			}
			clone.Update(k, ev)
		}
		out := v
		out.Dict = clone
		if len(v.Raw) > 0 {
			enc, err := sh.EncryptBytes(v.Raw, objNr, genNr, true)
			if err != nil {
				return nil, err
			}
			out.Raw = enc
		}
		return out, nil

	case types.Dict:
		clone := v.Clone()
		for _, k := range clone.Keys() {
			val, _ := clone.Find(k)
			ev, err := encryptForWrite(val, objNr, genNr, sh)
			if err != nil {
				return nil, err
			}
			clone.Update(k, ev)
		}
		return clone, nil

	case types.Array:
		out := make(types.Array, len(v))
		for i, e := range v {
			ev, err := encryptForWrite(e, objNr, genNr, sh)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil

	case types.StringLiteral:
		return sh.EncryptString(v, objNr, genNr)

	default:
		return obj, nil
	}
}

// streamPacker accumulates non-stream, gen-0 objects into object streams
// (7.5.7), starting a new container every maxObjs entries. Each packed
// object's xref entry is updated to Compressed, pointing at the
// container's (freshly reserved) object number.
type streamPacker struct {
	xt      *types.XRefTable
	wc      *types.WriteContext
	sh      *crypto.SecurityHandler
	maxObjs int

	cur   *types.ObjectStream
	curNr int
}

func newStreamPacker(xt *types.XRefTable, wc *types.WriteContext, sh *crypto.SecurityHandler, maxObjs int) *streamPacker {
	return &streamPacker{xt: xt, wc: wc, sh: sh, maxObjs: maxObjs}
}

func (p *streamPacker) add(objNr int, obj types.Object) error {

	if p.cur == nil {
		ref := p.xt.InsertNew(types.Null{})
		p.curNr = ref.ObjectNumber
		p.cur = types.NewObjectStream()
	}

	idx := p.cur.ObjCount
	p.cur.AddObject(objNr, obj)
	p.xt.InsertCompressed(objNr, p.curNr, idx, obj)

	if p.cur.ObjCount >= p.maxObjs {
		return p.flush()
	}
	return nil
}

// flush encodes and writes out the in-progress object stream, if any.
func (p *streamPacker) flush() error {

	if p.cur == nil || p.cur.ObjCount == 0 {
		p.cur = nil
		return nil
	}

	p.cur.Finalize()

	app := filter.BeginAppend(&p.cur.Stream, []types.FilterEntry{{Name: "FlateDecode"}})
	app.Append(p.cur.Content)
	if err := app.EndAppend(); err != nil {
		return errs.Wrap(err, errs.FlateError, "encode object stream %d", p.curNr)
	}
	p.cur.Dict.Update("N", types.Integer(p.cur.ObjCount))
	p.cur.Dict.Update("First", types.Integer(p.cur.FirstObjOffset))

	p.xt.Table[p.curNr].Object = p.cur.Stream

	if err := writeObject(p.wc, p.curNr, 0, p.cur.Stream, p.sh); err != nil {
		return err
	}

	p.cur = nil
	return nil
}

// int64ByteCount returns the minimum number of bytes needed to represent
// i, used to size an xref stream's /W field widths.
func int64ByteCount(i int64) int {
	n := 0
	for i > 0 {
		i >>= 8
		n++
	}
	if n == 0 {
		n = 1
	}
	return n
}

// int64ToBuf big-endian-encodes i into exactly byteCount bytes.
func int64ToBuf(i int64, byteCount int) []byte {
	buf := make([]byte, byteCount)
	for k := byteCount - 1; k >= 0; k-- {
		buf[k] = byte(i & 0xff)
		i >>= 8
	}
	return buf
}

// writeXRefStreamSection builds and writes the cross-reference stream
// (7.5.8) covering every object in xt, including those packed by
// writeBodyPacked into object streams above.
func writeXRefStreamSection(wc *types.WriteContext, xt *types.XRefTable, sh *crypto.SecurityHandler) error {

	xrefObjRef := xt.InsertNew(types.Null{})
	xrefObjNr := xrefObjRef.ObjectNumber

	xt.EnsureValidFreeList()

	keys := xt.ObjectNumbers()

	i1, i3 := 1, 2
	i2 := int64ByteCount(wc.Offset)

	// The xref stream's own entry is predictable ahead of time: nothing
	// else is written between here and the writeObject call below, so
	// wc.Offset now equals the offset it will actually be written at.
	wc.SetWriteOffset(xrefObjNr)

	var content []byte
	var index types.Array
	start, size := keys[0], 0

	flushRange := func(s, n int) {
		index = append(index, types.Integer(s), types.Integer(n))
	}

	for idx, n := range keys {
		e := xt.Table[n]

		var s1, s2, s3 []byte
		switch {
		case e.Free:
			gen := generationOf(e)
			off := int64(0)
			if e.Offset != nil {
				off = *e.Offset
			}
			s1, s2, s3 = int64ToBuf(0, i1), int64ToBuf(off, i2), int64ToBuf(int64(gen), i3)

		case e.Compressed:
			s1 = int64ToBuf(2, i1)
			s2 = int64ToBuf(int64(*e.ObjectStream), i2)
			s3 = int64ToBuf(int64(*e.ObjectStreamInd), i3)

		default:
			off, found := wc.Table[n]
			if !found {
				return errs.New(errs.InternalLogic, "writeXRefStreamSection: missing write offset for object %d", n)
			}
			s1 = int64ToBuf(1, i1)
			s2 = int64ToBuf(off, i2)
			s3 = int64ToBuf(int64(generationOf(e)), i3)
		}

		content = append(content, s1...)
		content = append(content, s2...)
		content = append(content, s3...)

		if idx > 0 && n-keys[idx-1] > 1 {
			flushRange(start, size)
			start, size = n, 1
			continue
		}
		size++
	}
	flushRange(start, size)

	xrefStream := types.NewXRefStream(xt.Root, xt.Info, xt.ID, xt.Encrypt)
	xrefStream.Dict.Insert("Size", types.Integer(*xt.Size))
	xrefStream.Dict.Insert("W", types.Array{types.Integer(i1), types.Integer(i2), types.Integer(i3)})
	xrefStream.Dict.Insert("Index", index)

	app := filter.BeginAppend(&xrefStream.Stream, []types.FilterEntry{{Name: "FlateDecode"}})
	app.Append(content)
	if err := app.EndAppend(); err != nil {
		return errs.Wrap(err, errs.FlateError, "encode xref stream")
	}

	xt.Table[xrefObjNr].Object = xrefStream.Stream

	offset := wc.Offset
	if err := writeObject(wc, xrefObjNr, 0, xrefStream.Stream, nil); err != nil {
		return err
	}

	if _, err := wc.WriteString("startxref" + wc.Eol); err != nil {
		return errs.Wrap(err, errs.IOError, "write startxref keyword")
	}
	if _, err := wc.WriteString(fmt.Sprintf("%d%s", offset, wc.Eol)); err != nil {
		return errs.Wrap(err, errs.IOError, "write startxref offset")
	}
	if _, err := wc.WriteString("%%EOF"); err != nil {
		return errs.Wrap(err, errs.IOError, "write EOF marker")
	}

	return nil
}
