// Package crypto implements the PDF standard security handler (7.6): RC4
// and AES-128 encryption for revisions 2-4, and the AES-256 handler (PDF
// 2.0 / Adobe Extension Level 3) for revisions 5-6 behind config.AllowAES256.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/rc4"
	"encoding/hex"
	"io"

	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/log"
	"github.com/mechiko/pdfkit/types"
)

// pad is the 32-byte password padding string from 7.6.3.3, Algorithm 2.
var pad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41, 0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80, 0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// StreamCipher selects the cipher a SecurityHandler applies to a given
// string or stream, independent of its security-handler revision: V4
// dictionaries name a cipher per crypt filter (StmF/StrF), so the two can
// differ within the same file.
type StreamCipher int

const (
	CipherRC4 StreamCipher = iota
	CipherAESV2
	CipherAESV3
)

// SecurityHandler authenticates a password against an /Encrypt dictionary
// and derives the keys needed to decrypt (or, for a freshly authored
// document, encrypt) every string and stream in the file.
//
// A SecurityHandler is built once per document via NewSecurityHandler and
// is then immutable: every Encrypt/Decrypt call derives its per-object key
// fresh from fileKey rather than consulting a cache, so there is no shared
// mutable state that a caller decrypting objects out of order (or
// concurrently) could observe half-updated.
type SecurityHandler struct {
	info        *types.EncryptInfo
	fileKey     []byte
	strCipher   StreamCipher
	stmCipher   StreamCipher
	allowAES256 bool
}

// NewSecurityHandler authenticates userPW (falling back to ownerPW) against
// info and, on success, returns a SecurityHandler holding the derived file
// encryption key. strCipher/stmCipher name the cipher each V4 crypt filter
// resolved to (CipherRC4 for V<4 dictionaries, since there are no crypt
// filters to name one explicitly).
func NewSecurityHandler(info *types.EncryptInfo, userPW, ownerPW string, strCipher, stmCipher StreamCipher, allowAES256 bool) (*SecurityHandler, error) {

	if (strCipher == CipherAESV3 || stmCipher == CipherAESV3) && !allowAES256 {
		return nil, errs.New(errs.InvalidEncryptionDict, "AES-256 security handler disabled by configuration")
	}

	sh := &SecurityHandler{info: info, strCipher: strCipher, stmCipher: stmCipher, allowAES256: allowAES256}

	var key []byte
	var ok bool
	var err error

	switch {
	case info.R >= 5:
		key, ok, err = authenticateR6(info, userPW, ownerPW)
	default:
		key, ok, err = authenticateR2toR4(info, userPW, ownerPW)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.New(errs.InvalidPassword, "password does not match /O or /U")
	}

	sh.fileKey = key
	return sh, nil
}

// FileKey returns the authenticated file encryption key.
func (sh *SecurityHandler) FileKey() []byte { return sh.fileKey }

// NewSecurityHandlerFromKey builds a SecurityHandler around an already
// -authenticated file key, skipping password verification. A Writer uses
// this to re-encrypt a document that was opened (and thus authenticated)
// earlier in the same session, without asking for the password again.
func NewSecurityHandlerFromKey(info *types.EncryptInfo, fileKey []byte, strCipher, stmCipher StreamCipher) *SecurityHandler {
	return &SecurityHandler{info: info, fileKey: fileKey, strCipher: strCipher, stmCipher: stmCipher, allowAES256: true}
}

// NewEncryption builds a fresh standard security handler for a document
// that has no /Encrypt dictionary yet: it derives /O and /U (R2-R4) or
// /O, /U, /OE, /UE and a random file key (R5/R6), and returns both the
// populated EncryptInfo (ready to serialize into a new /Encrypt dict's
// matching fields) and a SecurityHandler the caller can hand straight to
// a Writer. fileID is the document's /ID[0] value (see FileID).
func NewEncryption(userPW, ownerPW string, permissions int32, keyBits int, aes256 bool, fileID []byte) (*types.EncryptInfo, *SecurityHandler, error) {

	if aes256 {
		fileKey := make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, fileKey); err != nil {
			return nil, nil, errs.Wrap(err, errs.InvalidEncryptionDict, "generate AES-256 file key")
		}

		validationSalt, keySalt := make([]byte, 8), make([]byte, 8)
		if _, err := io.ReadFull(rand.Reader, validationSalt); err != nil {
			return nil, nil, errs.Wrap(err, errs.InvalidEncryptionDict, "generate U validation salt")
		}
		if _, err := io.ReadFull(rand.Reader, keySalt); err != nil {
			return nil, nil, errs.Wrap(err, errs.InvalidEncryptionDict, "generate U key salt")
		}
		u, ue := computeUAndUE(fileKey, userPW, validationSalt, keySalt)

		oValidationSalt, oKeySalt := make([]byte, 8), make([]byte, 8)
		if _, err := io.ReadFull(rand.Reader, oValidationSalt); err != nil {
			return nil, nil, errs.Wrap(err, errs.InvalidEncryptionDict, "generate O validation salt")
		}
		if _, err := io.ReadFull(rand.Reader, oKeySalt); err != nil {
			return nil, nil, errs.Wrap(err, errs.InvalidEncryptionDict, "generate O key salt")
		}
		o, oe := computeOAndOE(fileKey, ownerPW, u, oValidationSalt, oKeySalt)

		info := &types.EncryptInfo{O: o, U: u, OE: oe, UE: ue, L: 256, P: int(permissions), R: 6, V: 5, EncryptMetadata: true, ID: fileID}
		sh := &SecurityHandler{info: info, fileKey: fileKey, strCipher: CipherAESV3, stmCipher: CipherAESV3, allowAES256: true}
		return info, sh, nil
	}

	r, cipher := 4, CipherAESV2
	if keyBits <= 40 {
		r, keyBits, cipher = 2, 40, CipherRC4
	}

	o, err := computeO(ownerPW, userPW, r, keyBits)
	if err != nil {
		return nil, nil, err
	}

	info := &types.EncryptInfo{O: o, L: keyBits, P: int(permissions), R: r, V: r - 1, EncryptMetadata: true, ID: fileID}
	if r >= 4 {
		info.V = 4
	}

	u, fileKey, err := computeU(userPW, info)
	if err != nil {
		return nil, nil, err
	}
	info.U = u

	sh := &SecurityHandler{info: info, fileKey: fileKey, strCipher: cipher, stmCipher: cipher, allowAES256: false}
	return info, sh, nil
}

// objectKey derives the per-object RC4/AES-128 key per 7.6.2, Algorithm 1.
// AES-256 (R>=5) skips this step entirely: the file key is used directly.
func (sh *SecurityHandler) objectKey(objNr, genNr int, aes bool) []byte {

	if sh.info.R >= 5 {
		return sh.fileKey
	}

	m := md5.New()
	m.Write(sh.fileKey)
	m.Write([]byte{byte(objNr), byte(objNr >> 8), byte(objNr >> 16)})
	m.Write([]byte{byte(genNr), byte(genNr >> 8)})
	if aes {
		m.Write([]byte("sAlT"))
	}
	dk := m.Sum(nil)

	l := len(sh.fileKey) + 5
	if l > 16 {
		l = 16
	}
	return dk[:l]
}

// DecryptBytes decrypts raw ciphertext (a string's or a stream's raw bytes)
// belonging to object objNr/genNr.
func (sh *SecurityHandler) DecryptBytes(raw []byte, objNr, genNr int, forStream bool) ([]byte, error) {

	sc := sh.strCipher
	if forStream {
		sc = sh.stmCipher
	}

	switch sc {
	case CipherRC4:
		return rc4Crypt(raw, sh.objectKey(objNr, genNr, false))
	case CipherAESV2, CipherAESV3:
		return decryptAESCBC(raw, sh.objectKey(objNr, genNr, true))
	default:
		return raw, nil
	}
}

// EncryptBytes encrypts plaintext for object objNr/genNr.
func (sh *SecurityHandler) EncryptBytes(plain []byte, objNr, genNr int, forStream bool) ([]byte, error) {

	sc := sh.strCipher
	if forStream {
		sc = sh.stmCipher
	}

	switch sc {
	case CipherRC4:
		return rc4Crypt(plain, sh.objectKey(objNr, genNr, false))
	case CipherAESV2, CipherAESV3:
		return encryptAESCBC(plain, sh.objectKey(objNr, genNr, true))
	default:
		return plain, nil
	}
}

// DecryptString decrypts s, a string object's already-unescaped byte
// content, returning the plaintext bytes.
func (sh *SecurityHandler) DecryptString(s types.StringLiteral, objNr, genNr int) (types.StringLiteral, error) {
	b, err := sh.DecryptBytes([]byte(s.Value()), objNr, genNr, false)
	if err != nil {
		return "", errs.Wrap(err, errs.InvalidEncryptionDict, "decrypt string obj %d", objNr)
	}
	return types.StringLiteral(b), nil
}

// EncryptString encrypts s for object objNr/genNr.
func (sh *SecurityHandler) EncryptString(s types.StringLiteral, objNr, genNr int) (types.StringLiteral, error) {
	b, err := sh.EncryptBytes([]byte(s.Value()), objNr, genNr, false)
	if err != nil {
		return "", errs.Wrap(err, errs.InvalidEncryptionDict, "encrypt string obj %d", objNr)
	}
	return types.StringLiteral(b), nil
}

func rc4Crypt(b, key []byte) ([]byte, error) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidEncryptionDict, "rc4 key setup")
	}
	out := make([]byte, len(b))
	c.XORKeyStream(out, b)
	return out, nil
}

func encryptAESCBC(b, key []byte) ([]byte, error) {

	padLen := aes.BlockSize - len(b)%aes.BlockSize
	padded := append(append([]byte{}, b...), bytes.Repeat([]byte{byte(padLen)}, padLen)...)

	data := make([]byte, aes.BlockSize+len(padded))
	iv := data[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, errs.Wrap(err, errs.InvalidEncryptionDict, "generate AES IV")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidEncryptionDict, "AES key setup")
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(data[aes.BlockSize:], padded)
	return data, nil
}

// decryptAESCBC reads the leading 16-byte IV, CBC-decrypts the remainder
// and strips the PKCS#7-style padding per 7.6.2. A ciphertext shorter than
// one block, or not block-aligned, is malformed input rather than a
// decode-time state to recover from.
func decryptAESCBC(b, key []byte) ([]byte, error) {

	if len(b) < aes.BlockSize {
		if len(b) == 0 {
			return nil, nil
		}
		return nil, errs.New(errs.InvalidStream, "AES ciphertext shorter than one block")
	}
	if len(b)%aes.BlockSize != 0 {
		return nil, errs.New(errs.InvalidStream, "AES ciphertext not block-aligned")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidEncryptionDict, "AES key setup")
	}

	iv := b[:aes.BlockSize]
	ct := append([]byte{}, b[aes.BlockSize:]...)
	if len(ct) == 0 {
		return nil, nil
	}

	cipher.NewCBCDecrypter(block, iv).CryptBlocks(ct, ct)

	padLen := int(ct[len(ct)-1])
	if padLen == 0 || padLen > aes.BlockSize || padLen > len(ct) {
		log.Debug.Printf("decryptAESCBC: implausible padding byte %d, leaving ciphertext unpadded", padLen)
		return ct, nil
	}
	return ct[:len(ct)-padLen], nil
}

// NewEncryptDict builds a fresh /Encrypt dictionary for the standard
// security handler. need128Bit selects R4/V4 (AESV2 or V2, 128-bit) over
// the legacy R2/V1 (RC4, 40-bit); aes256 overrides both to the R6/V5
// AESV3 handler regardless of need128Bit.
func NewEncryptDict(aes bool, aes256 bool, need128Bit bool, permissions int32) *types.Dict {

	d := types.NewDict()
	d.Insert("Filter", types.Name("Standard"))

	switch {
	case aes256:
		d.Insert("R", types.Integer(6))
		d.Insert("V", types.Integer(5))
		d.Insert("Length", types.Integer(256))
	case need128Bit:
		d.Insert("R", types.Integer(4))
		d.Insert("V", types.Integer(4))
		d.Insert("Length", types.Integer(128))
	default:
		d.Insert("R", types.Integer(2))
		d.Insert("V", types.Integer(1))
	}

	d.Insert("P", types.Integer(int64(permissions)))

	if aes256 || need128Bit {
		d.Insert("StmF", types.Name("StdCF"))
		d.Insert("StrF", types.Name("StdCF"))

		cf := types.NewDict()
		cfm := "V2"
		length := types.Integer(16)
		if aes {
			cfm = "AESV2"
		}
		if aes256 {
			cfm = "AESV3"
			length = types.Integer(32)
		}

		stdCF := types.NewDict()
		stdCF.Insert("AuthEvent", types.Name("DocOpen"))
		stdCF.Insert("CFM", types.Name(cfm))
		stdCF.Insert("Length", length)

		cf.Insert("StdCF", stdCF)
		d.Insert("CF", cf)
	}

	placeholder := types.NewHexLiteral(make([]byte, 32))
	d.Insert("U", placeholder)
	d.Insert("O", placeholder)
	if aes256 {
		d.Insert("UE", types.NewHexLiteral(make([]byte, 32)))
		d.Insert("OE", types.NewHexLiteral(make([]byte, 32)))
	}

	return &d
}

// SupportedCryptFilter reports whether a V4/V5 crypt filter dictionary
// names a cipher this handler implements, and which one.
func SupportedCryptFilter(d *types.Dict) (StreamCipher, error) {
	cfm := d.NameEntry("CFM")
	if cfm == nil {
		return CipherRC4, errs.New(errs.InvalidEncryptionDict, "crypt filter missing /CFM")
	}
	switch *cfm {
	case "V2":
		return CipherRC4, nil
	case "AESV2":
		return CipherAESV2, nil
	case "AESV3":
		return CipherAESV3, nil
	case "Identity":
		return CipherRC4, errs.New(errs.UnsupportedFilter, "Identity crypt filter has no cipher")
	default:
		return CipherRC4, errs.New(errs.InvalidEncryptionDict, "unsupported /CFM %q", *cfm)
	}
}

// FileID computes a fresh, random first-half file identifier for the /ID
// trailer entry of a newly authored document, per 14.4.
func FileID() types.HexLiteral {
	b := make([]byte, 16)
	_, _ = io.ReadFull(rand.Reader, b)
	return types.HexLiteral(hex.EncodeToString(b))
}
