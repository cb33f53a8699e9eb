package read

import (
	"github.com/mechiko/pdfkit/crypto"
	"github.com/mechiko/pdfkit/types"
)

// decryptObject recurses into obj, decrypting every string literal found
// and, for a Stream, the stream's raw bytes - everything except the
// /Encrypt dictionary itself and the trailer's /ID strings, which are
// never encrypted (7.6.2).
func decryptObject(obj types.Object, objNr, genNr int, sh *crypto.SecurityHandler) (types.Object, error) {

	switch v := obj.(type) {

	case types.Stream:
		for _, k := range v.Dict.Keys() {
			val, _ := v.Dict.Find(k)
			dv, err := decryptObject(val, objNr, genNr, sh)
			if err != nil {
				return nil, err
			}
			v.Dict.Update(k, dv)
		}
		if len(v.Raw) > 0 {
			dec, err := sh.DecryptBytes(v.Raw, objNr, genNr, true)
			if err != nil {
				return nil, err
			}
			v.Raw = dec
		}
		return v, nil

	case types.Dict:
		for _, k := range v.Keys() {
			val, _ := v.Find(k)
			dv, err := decryptObject(val, objNr, genNr, sh)
			if err != nil {
				return nil, err
			}
			v.Update(k, dv)
		}
		return v, nil

	case types.Array:
		for i, e := range v {
			dv, err := decryptObject(e, objNr, genNr, sh)
			if err != nil {
				return nil, err
			}
			v[i] = dv
		}
		return v, nil

	case types.StringLiteral:
		return sh.DecryptString(v, objNr, genNr)

	default:
		return obj, nil
	}
}

// decryptXRefTable walks every directly-addressable (non-compressed, non-
// free) object in xt and decrypts it in place. Objects living inside an
// object stream are never separately encrypted - the object stream's own
// bytes were encrypted as a unit and are decrypted before it is unpacked.
func decryptXRefTable(xt *types.XRefTable, sh *crypto.SecurityHandler) error {

	encryptObjNr := -1
	if xt.Encrypt != nil {
		encryptObjNr = xt.Encrypt.ObjectNumber
	}

	for n, e := range xt.Table {
		if e.Free || e.Compressed || e.Object == nil || n == encryptObjNr {
			continue
		}
		if st, ok := e.Object.(types.Stream); ok && st.IsXRefStm() {
			continue // a cross-reference stream carries the trailer and is stored unencrypted.
		}
		gen := 0
		if e.Generation != nil {
			gen = *e.Generation
		}
		dv, err := decryptObject(e.Object, n, gen, sh)
		if err != nil {
			return err
		}
		e.Object = dv
	}

	return nil
}
