package read

import (
	"bytes"
	"regexp"
	"strconv"

	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/filter"
	"github.com/mechiko/pdfkit/log"
	"github.com/mechiko/pdfkit/types"
)

// locateStartXRef finds the byte offset named by the last "startxref"
// keyword in the file, per 7.5.5.
func locateStartXRef(buf []byte) (int64, error) {

	tail := buf
	const maxTail = 2048
	if len(tail) > maxTail {
		tail = tail[len(tail)-maxTail:]
	}

	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, errs.New(errs.InvalidTrailer, "missing startxref keyword")
	}

	pos := idx + len("startxref")
	pos = skipWhitespaceAndComments(tail, pos)
	tok, _ := scanRegularToken(tail, pos)

	off, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, errs.Wrap(err, errs.InvalidTrailer, "malformed startxref offset %q", tok)
	}
	return off, nil
}

// readXRefChain walks the /Prev-linked chain of cross-reference sections
// (classic tables and/or xref streams) starting at offset, populating xt.
// Entries from a section closer to the front of the chain (processed
// first here) win over the same object number seen again further down the
// chain, matching how incremental updates override earlier object
// versions (7.5.6).
func readXRefChain(buf []byte, xt *types.XRefTable, offset int64) error {

	seen := map[int64]bool{}
	off := offset

	for {
		if seen[off] {
			break // a cyclic /Prev chain; stop rather than loop forever.
		}
		seen[off] = true

		pos := skipWhitespaceAndComments(buf, int(off))
		if pos >= len(buf) {
			return errs.New(errs.InvalidXRef, "xref offset %d past end of file", off)
		}

		var next *int64
		var err error

		if bytes.HasPrefix(buf[pos:], []byte("xref")) {
			next, err = parseClassicXRefSection(buf, xt, pos)
		} else {
			next, err = parseXRefStreamSection(buf, xt, pos)
		}
		if err != nil {
			return err
		}
		if next == nil {
			break
		}
		off = *next
	}

	return nil
}

// parseClassicXRefSection parses a classic "xref ... trailer <<...>>"
// section per 7.5.4, merging never-before-seen entries into xt and
// returning the /Prev offset, if any.
func parseClassicXRefSection(buf []byte, xt *types.XRefTable, pos int) (*int64, error) {

	pos += len("xref")

	for {
		pos = skipWhitespaceAndComments(buf, pos)
		if bytes.HasPrefix(buf[pos:], []byte("trailer")) {
			pos += len("trailer")
			break
		}

		startTok, p1 := scanRegularToken(buf, pos)
		start, ok := parseNonNegInt(startTok)
		if !ok {
			return nil, errs.New(errs.InvalidXRef, "parseClassicXRefSection: expected subsection start at %d", pos)
		}

		p2 := skipWhitespaceAndComments(buf, p1)
		countTok, p3 := scanRegularToken(buf, p2)
		count, ok := parseNonNegInt(countTok)
		if !ok {
			return nil, errs.New(errs.InvalidXRef, "parseClassicXRefSection: expected subsection count at %d", p2)
		}

		p4 := skipWhitespaceAndComments(buf, p3)
		pos = p4

		for i := 0; i < count; i++ {
			objNr := start + i

			pos = skipWhitespaceAndComments(buf, pos)
			if pos+20 > len(buf) {
				return nil, errs.New(errs.UnexpectedEOF, "parseClassicXRefSection: truncated entry for object %d", objNr)
			}
			line := buf[pos : pos+20]
			pos += 20

			offTok := string(bytes.TrimSpace(line[0:10]))
			genTok := string(bytes.TrimSpace(line[11:16]))
			kind := line[17]

			if xt.Exists(objNr) {
				continue // a later (= already-processed, since we walk newest-first) section wins.
			}

			gen, _ := strconv.Atoi(genTok)

			if kind == 'f' {
				g := gen
				off := int64(0)
				if o, err := strconv.ParseInt(offTok, 10, 64); err == nil {
					off = o
				}
				xt.Table[objNr] = &types.XRefTableEntry{Free: true, Generation: &g, Offset: &off}
				continue
			}

			off, err := strconv.ParseInt(offTok, 10, 64)
			if err != nil {
				return nil, errs.Wrap(err, errs.InvalidXRef, "parseClassicXRefSection: bad offset for object %d", objNr)
			}

			obj, _, _, _, err := parseIndirectObject(buf, int(off))
			if err != nil {
				log.Info.Printf("parseClassicXRefSection: object %d at offset %d did not parse: %v", objNr, off, err)
				continue
			}
			xt.InsertAt(objNr, gen, obj, off)
		}
	}

	pos = skipWhitespaceAndComments(buf, pos)
	trailer, pos2, err := parseDict(buf, pos)
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidTrailer, "parseClassicXRefSection: trailer dict")
	}

	mergeTrailer(xt, trailer)

	// A hybrid-reference file names a companion xref stream carrying the
	// compressed-object entries a classic table cannot express (7.5.8.4).
	if xrefStm := trailer.Int64Entry("XRefStm"); xrefStm != nil {
		xt.Hybrid = true
		if _, err := parseXRefStreamSection(buf, xt, int(*xrefStm)); err != nil {
			log.Info.Printf("parseClassicXRefSection: hybrid /XRefStm at %d: %v", *xrefStm, err)
		}
	}

	_ = pos2
	return trailer.Int64Entry("Prev"), nil
}

// parseXRefStreamSection parses a cross-reference stream ("/Type /XRef")
// per 7.5.8, decoding its packed entries and merging them into xt.
func parseXRefStreamSection(buf []byte, xt *types.XRefTable, pos int) (*int64, error) {

	obj, objNr, genNr, _, err := parseIndirectObject(buf, pos)
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidXRefStream, "parseXRefStreamSection: indirect object at %d", pos)
	}

	st, ok := obj.(types.Stream)
	if !ok || !st.IsXRefStm() {
		return nil, errs.New(errs.InvalidXRefStream, "parseXRefStreamSection: object at %d is not an xref stream", pos)
	}

	mergeTrailer(xt, st.Dict)

	w := st.W()
	if w == nil || len(*w) != 3 {
		return nil, errs.New(errs.InvalidXRefStream, "parseXRefStreamSection: /W must have 3 entries")
	}
	widths := [3]int{}
	for i := 0; i < 3; i++ {
		n, ok := (*w)[i].(types.Integer)
		if !ok {
			return nil, errs.New(errs.InvalidXRefStream, "parseXRefStreamSection: /W entries must be integers")
		}
		widths[i] = int(n)
	}

	var index []int
	if idxArr := st.Index(); idxArr != nil {
		for _, v := range *idxArr {
			n, ok := v.(types.Integer)
			if !ok {
				return nil, errs.New(errs.InvalidXRefStream, "parseXRefStreamSection: /Index entries must be integers")
			}
			index = append(index, int(n))
		}
	} else if size := st.Size(); size != nil {
		index = []int{0, *size}
	} else {
		return nil, errs.New(errs.InvalidXRefStream, "parseXRefStreamSection: missing /Size and /Index")
	}

	decoded, err := decodeStreamRaw(st)
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidXRefStream, "parseXRefStreamSection: decode")
	}

	entryLen := widths[0] + widths[1] + widths[2]
	if entryLen == 0 {
		return nil, errs.New(errs.InvalidXRefStream, "parseXRefStreamSection: zero-width entry")
	}

	cursor := 0
	for i := 0; i+1 < len(index); i += 2 {
		start, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			objNum := start + j

			if cursor+entryLen > len(decoded) {
				break
			}
			fields := decoded[cursor : cursor+entryLen]
			cursor += entryLen

			typ := 1
			off := 0
			if widths[0] > 0 {
				typ = int(beUint(fields[:widths[0]]))
			}
			f2 := fields[widths[0] : widths[0]+widths[1]]
			off = int(beUint(f2))
			f3 := fields[widths[0]+widths[1]:]

			if xt.Exists(objNum) {
				continue
			}

			switch typ {
			case 0:
				gen := int(beUint(f3))
				g := gen
				o := int64(off)
				xt.Table[objNum] = &types.XRefTableEntry{Free: true, Generation: &g, Offset: &o}

			case 1:
				gen := int(beUint(f3))
				obj, _, _, _, err := parseIndirectObject(buf, off)
				if err != nil {
					log.Info.Printf("parseXRefStreamSection: object %d at %d did not parse: %v", objNum, off, err)
					continue
				}
				xt.InsertAt(objNum, gen, obj, int64(off))

			case 2:
				idx := int(beUint(f3))
				xt.InsertCompressed(objNum, off, idx, nil)

			default:
				log.Info.Printf("parseXRefStreamSection: unknown entry type %d for object %d", typ, objNum)
			}
		}
	}

	xt.UsingXRefStreams = true
	_ = objNr
	_ = genNr

	return st.Prev(), nil
}

func beUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func mergeTrailer(xt *types.XRefTable, d types.Dict) {

	if xt.Size == nil {
		if sz := d.IntEntry("Size"); sz != nil {
			xt.Size = sz
		}
	}
	if xt.Root == nil {
		if r := d.ReferenceEntry("Root"); r != nil {
			xt.Root = r
		}
	}
	if xt.Info == nil {
		if r := d.ReferenceEntry("Info"); r != nil {
			xt.Info = r
		}
	}
	if xt.ID == nil {
		if a := d.ArrayEntry("ID"); a != nil {
			xt.ID = a
		}
	}
	if xt.Encrypt == nil {
		if r := d.ReferenceEntry("Encrypt"); r != nil {
			xt.Encrypt = r
		}
	}
}

// decodeStreamRaw runs a stream's raw bytes through its filter pipeline,
// last stage first, without mutating the Stream itself.
func decodeStreamRaw(st types.Stream) ([]byte, error) {
	data := st.Raw
	for i := len(st.FilterPipeline) - 1; i >= 0; i-- {
		fe := st.FilterPipeline[i]
		out, err := filter.Decode(fe.Name, fe.DecodeParms, data)
		if err != nil {
			return nil, err
		}
		data = out
	}
	return data, nil
}

var objKeywordRE = regexp.MustCompile(`(?m)(^|[\x00-\x20])(\d+)[ \t]+(\d+)[ \t]+obj\b`)

// recoverByScanning rebuilds an xref table from scratch by scanning the
// entire file body for "N G obj" markers, for files whose xref section is
// missing or unrecoverably corrupt. Later occurrences of the same object
// number win, matching how incremental updates append newer object
// bodies further into the file.
func recoverByScanning(buf []byte, xt *types.XRefTable) error {

	for _, m := range objKeywordRE.FindAllSubmatchIndex(buf, -1) {

		objStart := m[4] // start of the object-number token
		objNr, ok := parseNonNegInt(string(buf[m[4]:m[5]]))
		if !ok {
			continue
		}
		gen, ok := parseNonNegInt(string(buf[m[6]:m[7]]))
		if !ok {
			continue
		}

		obj, _, _, _, err := parseIndirectObject(buf, objStart)
		if err != nil {
			log.Info.Printf("recoverByScanning: object %d at %d did not parse: %v", objNr, objStart, err)
			continue
		}

		xt.InsertAt(objNr, gen, obj, int64(objStart))
	}

	if idx := bytes.LastIndex(buf, []byte("trailer")); idx >= 0 {
		pos := skipWhitespaceAndComments(buf, idx+len("trailer"))
		if pos < len(buf) && bytes.HasPrefix(buf[pos:], []byte("<<")) {
			if trailer, _, err := parseDict(buf, pos); err == nil {
				mergeTrailer(xt, trailer)
			}
		}
	}

	if xt.Root == nil {
		for n, e := range xt.Table {
			if e.Free || e.Object == nil {
				continue
			}
			d, isDict := e.Object.(types.Dict)
			if !isDict {
				continue
			}
			if t := d.Type(); t != nil && *t == "Catalog" {
				r := types.NewReference(n, 0)
				xt.Root = &r
				break
			}
		}
	}

	return nil
}
