package types

import (
	"sort"

	"github.com/pkg/errors"
)

// FreeHeadGeneration is the generation number reserved for the head of the
// free-object linked list (object 0).
const FreeHeadGeneration = 65535

// XRefTableEntry is one entry of the cross-reference table: either a free
// slot, an in-use indirect object, or an object compressed inside an
// object stream.
//
// This wraps any of: *Dict, *Stream, Array, Integer, Real, Name,
// StringLiteral, HexLiteral, Boolean, Reference.
type XRefTableEntry struct {
	Free       bool
	Offset     *int64 // byte offset in the source file, for a directly-addressable object.
	Generation *int
	Object     Object

	Compressed      bool
	ObjectStream    *int // object number of the containing object stream.
	ObjectStreamInd *int // index within that object stream.
}

// NewXRefTableEntryGen0 returns an in-use entry at generation 0.
func NewXRefTableEntryGen0(obj Object) *XRefTableEntry {
	zero := 0
	return &XRefTableEntry{Generation: &zero, Object: obj}
}

// NewFreeHeadXRefTableEntry returns the entry for object 0, which is by
// convention the head of the free list.
func NewFreeHeadXRefTableEntry() *XRefTableEntry {
	gen := FreeHeadGeneration
	zero := int64(0)
	return &XRefTableEntry{Free: true, Generation: &gen, Offset: &zero}
}

// EncryptInfo wraps the decoded /Encrypt dictionary attributes needed to
// derive per-object keys, independent of whatever Dict representation the
// file used.
type EncryptInfo struct {
	O, U       []byte
	OE, UE     []byte // AES-256 key-wrap salts (R=6).
	L, P, R, V int
	EncryptMetadata bool
	ID              []byte
}

// XRefTable is the in-memory ObjectCollection: every object the loader has
// seen, addressable in O(1) by object number, plus the trailer-level
// metadata (Root, Info, ID, Encrypt) and free-list bookkeeping needed to
// allocate new object numbers and to write a spec-correct xref section.
type XRefTable struct {
	Table map[int]*XRefTableEntry
	Size  *int // Highest object number + 1, from the trailer's /Size.

	Root     *Reference
	RootDict *Dict
	Info     *Reference
	ID       *Array
	Encrypt  *Reference

	Enc                 *EncryptInfo
	EncKey              []byte
	AES4Strings         bool
	AES4Streams         bool
	AES4EmbeddedStreams bool

	HeaderVersion *Version
	RootVersion   *Version

	AdditionalStreams *Array

	UsingObjectStreams bool
	UsingXRefStreams   bool
	Linearized         bool
	Hybrid             bool

	ValidationMode int
	Valid          bool
}

// NewXRefTable returns an empty XRefTable ready for population by a parser
// or by CreateObject.
func NewXRefTable(validationMode int) *XRefTable {
	return &XRefTable{
		Table:          map[int]*XRefTableEntry{},
		ValidationMode: validationMode,
	}
}

// Version returns the PDF version governing this document: the catalog's
// /Version override if present, else the header version.
func (xt *XRefTable) Version() Version {
	if xt.RootVersion != nil {
		return *xt.RootVersion
	}
	if xt.HeaderVersion != nil {
		return *xt.HeaderVersion
	}
	return V14
}

// VersionString renders Version as a "x.y" string.
func (xt *XRefTable) VersionString() string {
	return VersionString(xt.Version())
}

// Exists reports whether an entry for objNumber is present (free or in use).
func (xt *XRefTable) Exists(objNumber int) bool {
	_, found := xt.Table[objNumber]
	return found
}

// Find returns the entry for objNumber.
func (xt *XRefTable) Find(objNumber int) (*XRefTableEntry, bool) {
	e, found := xt.Table[objNumber]
	return e, found
}

// FindObject returns the dereferenced Object for objNumber, failing if the
// slot is free or absent.
func (xt *XRefTable) FindObject(objNumber int) (Object, error) {
	e, found := xt.Find(objNumber)
	if !found {
		return nil, errors.Errorf("object #%d not found", objNumber)
	}
	if e.Free {
		return nil, errors.Errorf("object #%d is free", objNumber)
	}
	return e.Object, nil
}

// InsertNew allocates a fresh object number for obj and returns the
// Reference to it. The new slot is taken from the free list when one
// exists (reuse keeps the table dense), otherwise appended at Size.
func (xt *XRefTable) InsertNew(obj Object) Reference {

	objNr, gen, ok := xt.popFreeSlot()
	if !ok {
		objNr = xt.nextObjectNumber()
		gen = 0
	}

	xt.Table[objNr] = &XRefTableEntry{Object: obj, Generation: &[]int{gen}[0]}
	xt.bumpSize(objNr)

	return NewReference(objNr, gen)
}

// InsertAt stores obj at a caller-chosen object number and generation,
// overwriting whatever was there (used while parsing, where numbers come
// from the file itself).
func (xt *XRefTable) InsertAt(objNumber, generation int, obj Object, offset int64) {
	gen := generation
	off := offset
	xt.Table[objNumber] = &XRefTableEntry{Object: obj, Generation: &gen, Offset: &off}
	xt.bumpSize(objNumber)
}

// InsertCompressed records obj as living at index idx inside the object
// stream objStmNumber.
func (xt *XRefTable) InsertCompressed(objNumber, objStmNumber, idx int, obj Object) {
	zero := 0
	xt.Table[objNumber] = &XRefTableEntry{
		Object:          obj,
		Generation:      &zero,
		Compressed:      true,
		ObjectStream:    &objStmNumber,
		ObjectStreamInd: &idx,
	}
	xt.bumpSize(objNumber)
}

// DeleteObject frees objNumber's slot, linking it into the free list so a
// later InsertNew can recycle the number per 7.5.4.
func (xt *XRefTable) DeleteObject(objNumber int) error {

	if objNumber == 0 {
		return errors.New("cannot free the head of the free list")
	}

	if _, found := xt.Table[objNumber]; !found {
		return errors.Errorf("object #%d not found", objNumber)
	}

	head, ok := xt.Table[0]
	if !ok {
		head = NewFreeHeadXRefTableEntry()
		xt.Table[0] = head
	}

	nextFree := int64(0)
	if head.Offset != nil {
		nextFree = *head.Offset
	}

	gen := 0
	if e := xt.Table[objNumber]; e.Generation != nil {
		gen = *e.Generation + 1
	}

	xt.Table[objNumber] = &XRefTableEntry{
		Free:       true,
		Offset:     &nextFree,
		Generation: &gen,
	}
	head.Offset = int64Ptr(int64(objNumber))

	return nil
}

func int64Ptr(i int64) *int64 { return &i }

// popFreeSlot removes and returns the first entry off the free list, if
// any non-head free entries remain.
func (xt *XRefTable) popFreeSlot() (objNr, gen int, ok bool) {

	head, found := xt.Table[0]
	if !found || head.Offset == nil || *head.Offset == 0 {
		return 0, 0, false
	}

	freeObjNr := int(*head.Offset)
	freeEntry, found := xt.Table[freeObjNr]
	if !found {
		return 0, 0, false
	}

	nextFree := int64(0)
	if freeEntry.Offset != nil {
		nextFree = *freeEntry.Offset
	}
	head.Offset = &nextFree

	g := 0
	if freeEntry.Generation != nil {
		g = *freeEntry.Generation
	}

	return freeObjNr, g, true
}

// nextObjectNumber returns /Size when known, else one past the highest
// object number present; gaps below it are not reused.
func (xt *XRefTable) nextObjectNumber() int {
	if xt.Size != nil {
		return *xt.Size
	}
	max := 0
	for n := range xt.Table {
		if n >= max {
			max = n + 1
		}
	}
	return max
}

func (xt *XRefTable) bumpSize(objNumber int) {
	if xt.Size == nil || objNumber >= *xt.Size {
		size := objNumber + 1
		xt.Size = &size
	}
}

// ObjectNumbers returns every object number present in the table, sorted
// ascending - used when enumerating the table for a full rewrite.
func (xt *XRefTable) ObjectNumbers() []int {
	ns := make([]int, 0, len(xt.Table))
	for n := range xt.Table {
		ns = append(ns, n)
	}
	sort.Ints(ns)
	return ns
}

// EnsureValidFreeList rebuilds the free list from scratch so that it
// terminates correctly and contains exactly the entries marked Free,
// repairing files whose on-disk free list was truncated or cyclic.
func (xt *XRefTable) EnsureValidFreeList() {

	var free []int
	for n, e := range xt.Table {
		if n != 0 && e.Free {
			free = append(free, n)
		}
	}
	sort.Ints(free)

	head, ok := xt.Table[0]
	if !ok {
		head = NewFreeHeadXRefTableEntry()
		xt.Table[0] = head
	}

	prev := head
	for _, n := range free {
		e := xt.Table[n]
		gen := 0
		if e.Generation != nil {
			gen = *e.Generation
		}
		off := int64(n)
		prev.Offset = &off
		e.Generation = &gen
		prev = e
	}
	zero := int64(0)
	prev.Offset = &zero
}

// MissingObjects returns the count and a comma-joined list of object
// numbers referenced as in-use in [0, Size) but absent from Table.
func (xt *XRefTable) MissingObjects() (int, string) {
	if xt.Size == nil {
		return 0, ""
	}
	var missing []int
	for i := 0; i < *xt.Size; i++ {
		if !xt.Exists(i) {
			missing = append(missing, i)
		}
	}
	s := ""
	for i, n := range missing {
		if i > 0 {
			s += ","
		}
		s += itoa(n)
	}
	return len(missing), s
}
