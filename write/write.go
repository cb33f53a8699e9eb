// Package write serializes an in-memory XRefTable back to the PDF file
// body format: a header, one "N G obj ... endobj" per addressable object,
// and a trailing cross-reference section - either a classic plain-text
// table or a compressed cross-reference stream with its objects packed
// into object streams, per config.EngineConfig.XRefMode.
package write

import (
	"fmt"
	"io"
	"sort"

	"github.com/mechiko/pdfkit/config"
	"github.com/mechiko/pdfkit/crypto"
	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/types"
)

// Save writes xt as a complete, non-incremental PDF file to w. sh is nil
// for an unencrypted document; otherwise every string and stream is
// (re-)encrypted under sh's file key as it is written, leaving xt itself
// untouched (see encryptForWrite).
func Save(xt *types.XRefTable, w io.Writer, cfg config.EngineConfig, sh *crypto.SecurityHandler) (int64, error) {

	xt.EnsureValidFreeList()

	wc := types.NewWriteContext(w, cfg.EOL)

	if err := writeHeader(wc, xt.Version()); err != nil {
		return 0, err
	}

	if cfg.XRefMode == config.XRefModeStream {
		if err := writeBodyPacked(wc, xt, cfg, sh); err != nil {
			return 0, err
		}
		if err := writeXRefStreamSection(wc, xt, sh); err != nil {
			return 0, err
		}
	} else {
		if err := writeBodyPlain(wc, xt, sh); err != nil {
			return 0, err
		}
		if err := writeClassicXRefSection(wc, xt); err != nil {
			return 0, err
		}
	}

	if err := wc.Flush(); err != nil {
		return 0, errs.Wrap(err, errs.IOError, "flush")
	}

	if cfg.CollectStats {
		wc.LogStats(wc.Offset)
	}

	return wc.Offset, nil
}

// SaveIncremental appends a new revision containing only the object
// numbers in dirty to w, which the caller has already positioned after
// the startOffset bytes of the existing file. The new revision's xref
// section chains back to prevXRefOffset via /Prev, per 7.5.6.
func SaveIncremental(xt *types.XRefTable, w io.Writer, cfg config.EngineConfig, sh *crypto.SecurityHandler, dirty []int, startOffset, prevXRefOffset int64) (int64, error) {

	wc := types.NewIncrementalWriteContext(w, cfg.EOL, startOffset, prevXRefOffset)

	sort.Ints(dirty)
	for _, n := range dirty {
		e, found := xt.Find(n)
		if !found {
			continue
		}
		if e.Free {
			continue
		}
		if err := writeObject(wc, n, generationOf(e), e.Object, sh); err != nil {
			return 0, err
		}
	}

	if err := writeIncrementalXRefSection(wc, xt, dirty); err != nil {
		return 0, err
	}

	if err := wc.Flush(); err != nil {
		return 0, errs.Wrap(err, errs.IOError, "flush")
	}

	return wc.Offset - startOffset, nil
}

func generationOf(e *types.XRefTableEntry) int {
	if e.Generation != nil {
		return *e.Generation
	}
	return 0
}

// writeHeader emits the "%PDF-x.y" version comment followed by the
// conventional binary marker comment (7.5.2) that tells naive tools the
// file carries binary stream data.
func writeHeader(wc *types.WriteContext, v types.Version) error {

	n1, err := wc.WriteString("%PDF-" + types.VersionString(v) + wc.Eol)
	if err != nil {
		return errs.Wrap(err, errs.IOError, "write header")
	}

	n2, err := wc.WriteString("%\xe2\xe3\xcf\xd3" + wc.Eol)
	if err != nil {
		return errs.Wrap(err, errs.IOError, "write binary marker")
	}

	wc.Offset += int64(n1 + n2)
	return nil
}

// writeBodyPlain writes every addressable object directly: no object
// streams, used for the classic xref table path. A Compressed entry
// inherited from a file loaded with object streams is expanded into a
// plain entry first, since a classic table cannot express one.
func writeBodyPlain(wc *types.WriteContext, xt *types.XRefTable, sh *crypto.SecurityHandler) error {

	for _, n := range xt.ObjectNumbers() {
		e := xt.Table[n]
		if e.Free {
			continue
		}
		if e.Compressed {
			expandCompressedEntry(e)
		}
		if err := writeObject(wc, n, generationOf(e), e.Object, objectSecurityHandler(xt, n, sh)); err != nil {
			return err
		}
	}
	return nil
}

// expandCompressedEntry converts e in place from a compressed reference
// into a directly-addressable entry holding the object it already points
// to (populated by the loader's object-stream resolution).
func expandCompressedEntry(e *types.XRefTableEntry) {
	e.Compressed = false
	e.ObjectStream = nil
	e.ObjectStreamInd = nil
	if e.Generation == nil {
		zero := 0
		e.Generation = &zero
	}
}

// writeBodyPacked writes the body for the xref-stream path: gen-0
// non-stream objects are packed into object streams (up to
// cfg.ObjectStreamMaxObjects each); streams, gen>0 objects and the
// /Encrypt dictionary are always written directly, since 7.5.7 forbids
// packing any of them.
func writeBodyPacked(wc *types.WriteContext, xt *types.XRefTable, cfg config.EngineConfig, sh *crypto.SecurityHandler) error {

	maxObjs := cfg.ObjectStreamMaxObjects
	if maxObjs <= 0 {
		maxObjs = 100
	}
	packer := newStreamPacker(xt, wc, sh, maxObjs)

	for _, n := range xt.ObjectNumbers() {
		e := xt.Table[n]
		if e.Free || e.Compressed {
			continue
		}

		isEncryptDict := xt.Encrypt != nil && xt.Encrypt.ObjectNumber == n
		if _, isStream := e.Object.(types.Stream); isStream || generationOf(e) != 0 || isEncryptDict {
			if err := writeObject(wc, n, generationOf(e), e.Object, objectSecurityHandler(xt, n, sh)); err != nil {
				return err
			}
			continue
		}

		if err := packer.add(n, e.Object); err != nil {
			return err
		}
	}

	return packer.flush()
}

// objectSecurityHandler suppresses encryption for the /Encrypt dictionary
// itself: its own /O, /U, /OE, /UE strings are never encrypted (7.6.1).
func objectSecurityHandler(xt *types.XRefTable, objNr int, sh *crypto.SecurityHandler) *crypto.SecurityHandler {
	if xt.Encrypt != nil && xt.Encrypt.ObjectNumber == objNr {
		return nil
	}
	return sh
}

func buildTrailerDict(xt *types.XRefTable) types.Dict {
	d := types.NewDict()
	size := 0
	if xt.Size != nil {
		size = *xt.Size
	}
	d.Insert("Size", types.Integer(size))
	if xt.Root != nil {
		d.Insert("Root", *xt.Root)
	}
	if xt.Info != nil {
		d.Insert("Info", *xt.Info)
	}
	if xt.ID != nil {
		d.Insert("ID", *xt.ID)
	}
	if xt.Encrypt != nil {
		d.Insert("Encrypt", *xt.Encrypt)
	}
	return d
}

// writeClassicXRefSection writes the "xref ... trailer ... startxref"
// tail for a full, non-incremental save using the plain-text table format
// of 7.5.4.
func writeClassicXRefSection(wc *types.WriteContext, xt *types.XRefTable) error {

	xrefOffset := wc.Offset

	keys := xt.ObjectNumbers()
	if len(keys) == 0 {
		return errs.New(errs.InternalLogic, "writeClassicXRefSection: empty table")
	}

	if _, err := wc.WriteString("xref" + wc.Eol); err != nil {
		return errs.Wrap(err, errs.IOError, "write xref keyword")
	}

	start, size := keys[0], 1
	for i := 1; i < len(keys); i++ {
		if keys[i]-keys[i-1] > 1 {
			if err := writeClassicXRefSubsection(wc, xt, start, size); err != nil {
				return err
			}
			start, size = keys[i], 1
			continue
		}
		size++
	}
	if err := writeClassicXRefSubsection(wc, xt, start, size); err != nil {
		return err
	}

	if _, err := wc.WriteString("trailer" + wc.Eol); err != nil {
		return errs.Wrap(err, errs.IOError, "write trailer keyword")
	}
	if _, err := wc.WriteString(buildTrailerDict(xt).PDFString()); err != nil {
		return errs.Wrap(err, errs.IOError, "write trailer dict")
	}
	if _, err := wc.WriteString(wc.Eol); err != nil {
		return errs.Wrap(err, errs.IOError, "write eol")
	}
	if _, err := wc.WriteString("startxref" + wc.Eol); err != nil {
		return errs.Wrap(err, errs.IOError, "write startxref keyword")
	}
	if _, err := wc.WriteString(fmt.Sprintf("%d%s", xrefOffset, wc.Eol)); err != nil {
		return errs.Wrap(err, errs.IOError, "write startxref offset")
	}
	if _, err := wc.WriteString("%%EOF"); err != nil {
		return errs.Wrap(err, errs.IOError, "write EOF marker")
	}

	return nil
}

func writeClassicXRefSubsection(wc *types.WriteContext, xt *types.XRefTable, start, size int) error {

	if _, err := wc.WriteString(fmt.Sprintf("%d %d%s", start, size, wc.Eol)); err != nil {
		return errs.Wrap(err, errs.IOError, "write subsection header")
	}

	for i := start; i < start+size; i++ {
		e := xt.Table[i]

		var line string
		gen := generationOf(e)

		if e.Free {
			off := int64(0)
			if e.Offset != nil {
				off = *e.Offset
			}
			line = fmt.Sprintf("%010d %05d f%2s", off, gen, wc.Eol)
		} else {
			line = fmt.Sprintf("%010d %05d n%2s", wc.Table[i], gen, wc.Eol)
		}

		if _, err := wc.WriteString(line); err != nil {
			return errs.Wrap(err, errs.IOError, "write xref entry %d", i)
		}
	}

	return nil
}

// writeIncrementalXRefSection writes the classic-format xref section for
// an incremental save: only the subsection covering the object numbers
// actually written this revision, chained to the prior revision via
// /Prev.
func writeIncrementalXRefSection(wc *types.WriteContext, xt *types.XRefTable, dirty []int) error {

	xrefOffset := wc.Offset

	if _, err := wc.WriteString("xref" + wc.Eol); err != nil {
		return errs.Wrap(err, errs.IOError, "write xref keyword")
	}

	start, size := dirty[0], 1
	for i := 1; i < len(dirty); i++ {
		if dirty[i]-dirty[i-1] > 1 {
			if err := writeClassicXRefSubsection(wc, xt, start, size); err != nil {
				return err
			}
			start, size = dirty[i], 1
			continue
		}
		size++
	}
	if err := writeClassicXRefSubsection(wc, xt, start, size); err != nil {
		return err
	}

	if _, err := wc.WriteString("trailer" + wc.Eol); err != nil {
		return errs.Wrap(err, errs.IOError, "write trailer keyword")
	}

	trailer := buildTrailerDict(xt)
	if wc.PrevXRefOffset != nil {
		trailer.Insert("Prev", types.Integer(*wc.PrevXRefOffset))
	}
	if _, err := wc.WriteString(trailer.PDFString()); err != nil {
		return errs.Wrap(err, errs.IOError, "write trailer dict")
	}
	if _, err := wc.WriteString(wc.Eol); err != nil {
		return errs.Wrap(err, errs.IOError, "write eol")
	}
	if _, err := wc.WriteString("startxref" + wc.Eol); err != nil {
		return errs.Wrap(err, errs.IOError, "write startxref keyword")
	}
	if _, err := wc.WriteString(fmt.Sprintf("%d%s", xrefOffset, wc.Eol)); err != nil {
		return errs.Wrap(err, errs.IOError, "write startxref offset")
	}
	if _, err := wc.WriteString("%%EOF"); err != nil {
		return errs.Wrap(err, errs.IOError, "write EOF marker")
	}

	return nil
}
