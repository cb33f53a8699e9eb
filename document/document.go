// Package document is the facade applications are meant to import: it owns
// an XRefTable plus the engine configuration and (if the file is
// encrypted) the authenticated SecurityHandler, and wires the parser,
// writer and crypto layers together behind Open/Save-shaped calls so
// cmd/pdfkit and cmd/pdfkitd never touch read/write/crypto directly.
package document

import (
	"bytes"
	"io"

	"github.com/mechiko/pdfkit/config"
	"github.com/mechiko/pdfkit/crypto"
	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/filter"
	"github.com/mechiko/pdfkit/log"
	"github.com/mechiko/pdfkit/read"
	"github.com/mechiko/pdfkit/types"
	"github.com/mechiko/pdfkit/write"
)

// Document is an opened PDF file plus everything needed to save it again,
// in place or incrementally.
type Document struct {
	XRef   *types.XRefTable
	Config config.EngineConfig

	sh  *crypto.SecurityHandler
	raw []byte // original bytes, retained for SaveIncremental's byte-prefix replay.
}

// Open parses r as an unencrypted (or empty-user-password) document.
func Open(r io.Reader, cfg config.EngineConfig) (*Document, error) {
	return OpenEncrypted(r, cfg, "", "")
}

// OpenEncrypted parses r, authenticating userPW/ownerPW against the file's
// /Encrypt dictionary if one is present. Passwords are ignored for an
// unencrypted file.
func OpenEncrypted(r io.Reader, cfg config.EngineConfig, userPW, ownerPW string) (*Document, error) {

	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(err, errs.IOError, "read document")
	}

	xt, err := read.Load(buf, cfg, userPW, ownerPW)
	if err != nil {
		return nil, err
	}

	d := &Document{XRef: xt, Config: cfg, raw: buf}

	if xt.Encrypt != nil && xt.Enc != nil {
		d.sh = crypto.NewSecurityHandlerFromKey(xt.Enc, xt.EncKey, streamCipherFor(xt, xt.AES4Strings), streamCipherFor(xt, xt.AES4Streams))
	}

	if cfg.CollectStats {
		log.Stats.Printf("Open: %s, %d bytes, %d objects, encrypted=%v", xt.VersionString(), len(buf), len(xt.ObjectNumbers()), xt.Encrypt != nil)
	}

	return d, nil
}

// streamCipherFor maps the coarse "is this AES" bit the parser records
// back to the specific StreamCipher enum a SecurityHandler needs, using
// the dictionary's /V to disambiguate AESV2 (V4) from AESV3 (V5/V6).
func streamCipherFor(xt *types.XRefTable, isAES bool) crypto.StreamCipher {
	if !isAES {
		return crypto.CipherRC4
	}
	if xt.Enc != nil && xt.Enc.V >= 5 {
		return crypto.CipherAESV3
	}
	return crypto.CipherAESV2
}

// Save writes the complete, non-incremental current state of the document
// to w.
func (d *Document) Save(w io.Writer) (int64, error) {
	return write.Save(d.XRef, w, d.Config, d.sh)
}

// SaveIncremental replays the bytes the document was opened from, then
// appends a new revision containing only dirty (by object number).
func (d *Document) SaveIncremental(w io.Writer, dirty []int) (int64, error) {

	if _, err := w.Write(d.raw); err != nil {
		return 0, errs.Wrap(err, errs.IOError, "replay original bytes")
	}

	off, err := lastStartXRefOffset(d.raw)
	if err != nil {
		return 0, err
	}

	n, err := write.SaveIncremental(d.XRef, w, d.Config, d.sh, dirty, int64(len(d.raw)), off)
	if err != nil {
		return 0, err
	}
	return int64(len(d.raw)) + n, nil
}

// lastStartXRefOffset finds the byte offset recorded by the final
// "startxref" token in buf, the same value a freshly appended revision's
// /Prev entry must chain back to.
func lastStartXRefOffset(buf []byte) (int64, error) {
	idx := bytes.LastIndex(buf, []byte("startxref"))
	if idx < 0 {
		return 0, errs.New(errs.InvalidPDF, "no startxref token in original document")
	}
	rest := buf[idx+len("startxref"):]
	i := 0
	for i < len(rest) && (rest[i] == '\r' || rest[i] == '\n' || rest[i] == ' ' || rest[i] == '\t') {
		i++
	}
	start := i
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i == start {
		return 0, errs.New(errs.InvalidPDF, "malformed startxref")
	}
	var v int64
	for _, c := range rest[start:i] {
		v = v*10 + int64(c-'0')
	}
	return v, nil
}

// GetObject dereferences ref. An object packed in an object stream is
// returned as Load already unpacked it; nothing is decoded on access.
func (d *Document) GetObject(ref types.Reference) (types.Object, error) {
	return d.XRef.FindObject(ref.ObjectNumber)
}

// StreamContent dereferences ref and returns its fully filter-decoded
// bytes. The decoded bytes are cached only on a copy of the Stream, not on
// the one held in XRef, so each call decodes again unless Content was
// already set.
func (d *Document) StreamContent(ref types.Reference) ([]byte, error) {
	st, err := d.mustStream(ref)
	if err != nil {
		return nil, err
	}
	return read.DecodedContent(st)
}

// WriteStreamContent dereferences ref and writes its fully filter-decoded
// bytes to w, without caching them on the Stream - for a caller that only
// needs to stream a large resource through once (an embedded file export,
// say).
func (d *Document) WriteStreamContent(ref types.Reference, w io.Writer) error {
	st, err := d.mustStream(ref)
	if err != nil {
		return err
	}
	return filter.GetFilteredCopy(st, w)
}

func (d *Document) mustStream(ref types.Reference) (*types.Stream, error) {
	obj, err := d.GetObject(ref)
	if err != nil {
		return nil, err
	}
	st, ok := obj.(types.Stream)
	if !ok {
		return nil, errs.New(errs.InvalidStream, "object %d is not a stream", ref.ObjectNumber)
	}
	return &st, nil
}

// CreateObject allocates a new indirect Dict object with /Type pre-filled
// and registers it in the collection, returning its Reference.
func (d *Document) CreateObject(typeName string) types.Reference {
	dict := types.NewDict()
	if typeName != "" {
		dict.Insert("Type", types.Name(typeName))
	}
	return d.XRef.InsertNew(dict)
}

// CreateStream builds a new stream object with /Type typeName (if
// non-empty), runs content through filters via filter.BeginAppend/Append/
// EndAppend, and registers the result, returning its Reference. This is
// how a caller creates a content stream, image XObject or embedded file
// from scratch - CreateObject alone only ever produces non-stream Dicts.
func (d *Document) CreateStream(typeName string, filters []types.FilterEntry, content []byte) (types.Reference, error) {

	dict := types.NewDict()
	if typeName != "" {
		dict.Insert("Type", types.Name(typeName))
	}

	st := types.NewStream(dict, 0, nil, nil, nil)

	app := filter.BeginAppend(&st, filters)
	app.Append(content)
	if err := app.EndAppend(); err != nil {
		return types.Reference{}, err
	}

	return d.XRef.InsertNew(st), nil
}

// CreateRawStream registers a new stream object whose bytes are already
// filter-encoded under filters - for content a caller obtained
// pre-compressed from elsewhere (a DCT-encoded image, say) and wants
// attached without re-running it through an encoder.
func (d *Document) CreateRawStream(typeName string, filters []types.FilterEntry, raw []byte) types.Reference {

	dict := types.NewDict()
	if typeName != "" {
		dict.Insert("Type", types.Name(typeName))
	}

	st := types.NewStream(dict, 0, nil, nil, filters)
	filter.SetFilterDictEntries(&st, filters)
	filter.SetRawData(&st, raw, nil)

	return d.XRef.InsertNew(st)
}

// RemoveEncryption drops the document's /Encrypt dictionary and security
// handler, so a subsequent Save writes every string and stream in the
// clear.
func (d *Document) RemoveEncryption() {
	d.XRef.Encrypt = nil
	d.XRef.Enc = nil
	d.XRef.EncKey = nil
	d.XRef.AES4Strings = false
	d.XRef.AES4Streams = false
	d.sh = nil
}

// Encrypt installs a fresh standard security handler on the document: userPW
// and ownerPW become the document's passwords, permissions follows 7.6.3.2's
// /P bit layout, and keyBits selects 40 (RC4 v1), 128 (AES-128/V4) or 256
// (AES-256/V5) - aes256 must also be true in Config.AllowAES256 for a
// caller to later reopen the result. Save after Encrypt re-encrypts every
// string and stream under the new handler.
func (d *Document) Encrypt(userPW, ownerPW string, permissions int32, keyBits int) error {

	aes256 := keyBits >= 256
	aes128 := keyBits >= 128 && keyBits < 256

	if d.XRef.ID == nil || len(*d.XRef.ID) == 0 {
		fileID := crypto.FileID()
		id := types.Array{fileID, fileID}
		d.XRef.ID = &id
	}

	// Key derivation uses the byte content of /ID[0], the same value the
	// reader recovers from the written trailer.
	var idBytes []byte
	switch id0 := (*d.XRef.ID)[0].(type) {
	case types.HexLiteral:
		idBytes, _ = id0.Bytes()
	case types.StringLiteral:
		idBytes = []byte(id0.Value())
	}

	info, sh, err := crypto.NewEncryption(userPW, ownerPW, permissions, keyBits, aes256, idBytes)
	if err != nil {
		return err
	}

	encDict := *crypto.NewEncryptDict(aes128, aes256, keyBits >= 128, permissions)
	encDict.Update("O", types.NewHexLiteral(info.O))
	encDict.Update("U", types.NewHexLiteral(info.U))
	if aes256 {
		encDict.Update("OE", types.NewHexLiteral(info.OE))
		encDict.Update("UE", types.NewHexLiteral(info.UE))
	}

	ref := d.XRef.InsertNew(encDict)
	d.XRef.Encrypt = &ref
	d.XRef.Enc = info
	d.XRef.EncKey = sh.FileKey()
	d.XRef.AES4Strings = keyBits >= 128
	d.XRef.AES4Streams = keyBits >= 128

	d.sh = sh
	return nil
}
