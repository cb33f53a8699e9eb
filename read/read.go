package read

import (
	"bytes"

	"github.com/mechiko/pdfkit/config"
	"github.com/mechiko/pdfkit/crypto"
	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/filter"
	"github.com/mechiko/pdfkit/log"
	"github.com/mechiko/pdfkit/types"
)

// Load parses buf, the complete bytes of a PDF file, into an XRefTable.
// userPW/ownerPW are tried against the file's /Encrypt dictionary, if any;
// pass empty strings for an unencrypted file or one opened with the
// default empty user password.
func Load(buf []byte, cfg config.EngineConfig, userPW, ownerPW string) (*types.XRefTable, error) {

	xt := types.NewXRefTable(int(cfg.Validation))

	if v, err := headerVersion(buf); err == nil {
		xt.HeaderVersion = &v
	} else {
		log.Info.Printf("Load: %v", err)
	}

	off, err := locateStartXRef(buf)
	if err != nil {
		if cfg.Validation != config.ValidationRelaxed {
			return nil, err
		}
		log.Info.Printf("Load: no startxref, falling back to full-file scan: %v", err)
		if err := recoverByScanning(buf, xt); err != nil {
			return nil, err
		}
	} else if err := readXRefChain(buf, xt, off); err != nil {
		if cfg.Validation != config.ValidationRelaxed {
			return nil, err
		}
		log.Info.Printf("Load: xref chain broken, falling back to full-file scan: %v", err)
		hv := xt.HeaderVersion
		xt = types.NewXRefTable(int(cfg.Validation))
		xt.HeaderVersion = hv
		if err := recoverByScanning(buf, xt); err != nil {
			return nil, err
		}
	}

	if xt.Root == nil {
		return nil, errs.New(errs.InvalidTrailer, "missing /Root entry")
	}

	if xt.Encrypt != nil {
		if err := setupDecryption(xt, cfg, userPW, ownerPW); err != nil {
			return nil, err
		}
	}

	if cfg.AllowObjectStreams {
		if err := resolveCompressedObjects(xt); err != nil {
			return nil, err
		}
	}

	rootObj, err := xt.FindObject(xt.Root.ObjectNumber)
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidTrailer, "dereference /Root")
	}
	if rd, ok := rootObj.(types.Dict); ok {
		xt.RootDict = &rd
		if vs := rd.NameEntry("Version"); vs != nil {
			if v, err := types.ParseVersion(*vs); err == nil {
				xt.RootVersion = &v
			}
		}
	}

	if cfg.DecodeAllStreams {
		for _, e := range xt.Table {
			if e.Free {
				continue
			}
			if st, ok := e.Object.(types.Stream); ok {
				if _, err := DecodedContent(&st); err != nil {
					log.Info.Printf("Load: decode stream: %v", err)
				}
				e.Object = st
			}
		}
	}

	xt.Valid = true
	return xt, nil
}

// headerVersion reads the "%PDF-x.y" version comment from the first bytes
// of the file, per 7.5.2.
func headerVersion(buf []byte) (types.Version, error) {

	head := buf
	if len(head) > 1024 {
		head = head[:1024]
	}

	idx := bytes.Index(head, []byte("%PDF-"))
	if idx < 0 {
		return 0, errs.New(errs.InvalidPDF, "missing %%PDF- header")
	}

	pos := idx + len("%PDF-")
	end := pos
	for end < len(head) && (head[end] == '.' || (head[end] >= '0' && head[end] <= '9')) {
		end++
	}

	return types.ParseVersion(string(head[pos:end]))
}

// setupDecryption authenticates userPW/ownerPW against the file's
// /Encrypt dictionary and decrypts every string and stream in xt.
func setupDecryption(xt *types.XRefTable, cfg config.EngineConfig, userPW, ownerPW string) error {

	encObj, err := xt.FindObject(xt.Encrypt.ObjectNumber)
	if err != nil {
		return errs.Wrap(err, errs.InvalidEncryptionDict, "dereference /Encrypt")
	}
	encDict, ok := encObj.(types.Dict)
	if !ok {
		return errs.New(errs.InvalidEncryptionDict, "/Encrypt is not a dictionary")
	}

	info, err := buildEncryptInfo(xt, encDict)
	if err != nil {
		return err
	}
	xt.Enc = info

	strCipher, stmCipher, err := resolveCiphers(encDict)
	if err != nil {
		return err
	}

	sh, err := crypto.NewSecurityHandler(info, userPW, ownerPW, strCipher, stmCipher, cfg.AllowAES256)
	if err != nil {
		return err
	}
	xt.EncKey = sh.FileKey()
	xt.AES4Strings = strCipher != crypto.CipherRC4
	xt.AES4Streams = stmCipher != crypto.CipherRC4

	return decryptXRefTable(xt, sh)
}

func buildEncryptInfo(xt *types.XRefTable, d types.Dict) (*types.EncryptInfo, error) {

	filterName := d.NameEntry("Filter")
	if filterName == nil || *filterName != "Standard" {
		return nil, errs.New(errs.InvalidEncryptionDict, "unsupported security handler %v", filterName)
	}

	v := d.IntEntry("V")
	r := d.IntEntry("R")
	if v == nil || r == nil {
		return nil, errs.New(errs.InvalidEncryptionDict, "missing /V or /R")
	}

	l := 40
	if lv := d.IntEntry("Length"); lv != nil {
		l = *lv
	}

	p := d.IntEntry("P")
	if p == nil {
		return nil, errs.New(errs.InvalidEncryptionDict, "missing /P")
	}

	o, err := d.StringEntryBytes("O")
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidEncryptionDict, "/O")
	}
	u, err := d.StringEntryBytes("U")
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidEncryptionDict, "/U")
	}

	info := &types.EncryptInfo{O: o, U: u, L: l, P: *p, R: *r, V: *v, EncryptMetadata: true}

	if em := d.BooleanEntry("EncryptMetadata"); em != nil {
		info.EncryptMetadata = *em
	}

	if *r >= 5 {
		oe, err := d.StringEntryBytes("OE")
		if err != nil {
			return nil, errs.Wrap(err, errs.InvalidEncryptionDict, "/OE")
		}
		ue, err := d.StringEntryBytes("UE")
		if err != nil {
			return nil, errs.Wrap(err, errs.InvalidEncryptionDict, "/UE")
		}
		info.OE, info.UE = oe, ue
	}

	if xt.ID != nil && len(*xt.ID) > 0 {
		if hl, ok := (*xt.ID)[0].(types.HexLiteral); ok {
			b, err := hl.Bytes()
			if err == nil {
				info.ID = b
			}
		} else if sl, ok := (*xt.ID)[0].(types.StringLiteral); ok {
			info.ID = []byte(sl.Value())
		}
	}

	return info, nil
}

// resolveCiphers determines which cipher protects strings and which
// protects streams. V<4 dictionaries have no crypt filters: both use
// RC4 (or, for R>=5, AESV3). V4/V5 dictionaries name a crypt filter per
// use via /StrF and /StmF, resolved against the /CF dictionary.
func resolveCiphers(d types.Dict) (strCipher, stmCipher crypto.StreamCipher, err error) {

	v := d.IntEntry("V")
	r := d.IntEntry("R")

	if v == nil || *v < 4 {
		if r != nil && *r >= 5 {
			return crypto.CipherAESV3, crypto.CipherAESV3, nil
		}
		return crypto.CipherRC4, crypto.CipherRC4, nil
	}

	cf := d.DictEntry("CF")
	if cf == nil {
		return crypto.CipherRC4, crypto.CipherRC4, errs.New(errs.InvalidEncryptionDict, "V4/V5 dictionary missing /CF")
	}

	resolve := func(name *string) (crypto.StreamCipher, error) {
		if name == nil || *name == "Identity" {
			return crypto.CipherRC4, nil
		}
		cfd := cf.DictEntry(*name)
		if cfd == nil {
			return crypto.CipherRC4, errs.New(errs.InvalidEncryptionDict, "crypt filter %q missing from /CF", *name)
		}
		return crypto.SupportedCryptFilter(cfd)
	}

	strCipher, err = resolve(d.NameEntry("StrF"))
	if err != nil {
		return crypto.CipherRC4, crypto.CipherRC4, err
	}
	stmCipher, err = resolve(d.NameEntry("StmF"))
	if err != nil {
		return crypto.CipherRC4, crypto.CipherRC4, err
	}

	return strCipher, stmCipher, nil
}

// DecodedContent returns st's fully filter-decoded bytes, caching the
// result in st.Content so a repeated call is free.
func DecodedContent(st *types.Stream) ([]byte, error) {

	if st.Content != nil {
		return st.Content, nil
	}

	data := st.Raw
	for i := len(st.FilterPipeline) - 1; i >= 0; i-- {
		fe := st.FilterPipeline[i]
		out, err := filter.Decode(fe.Name, fe.DecodeParms, data)
		if err != nil {
			return nil, errs.Wrap(err, errs.InvalidStream, "decode filter %s", fe.Name)
		}
		data = out
	}

	st.Content = data
	return data, nil
}
