package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/sha512"

	"golang.org/x/text/secure/precis"

	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/types"
)

// saslPrep normalizes pw per RFC 4013 (required by ISO 32000-2, 7.6.4.3.2)
// before it enters Algorithm 2.B. A password precis rejects is used as-is:
// viewers are expected to still open a file whose password fails the
// profile rather than treat normalization as a hard precondition.
func saslPrep(pw string) []byte {
	if norm, err := precis.OpaqueString.String(pw); err == nil {
		pw = norm
	}
	if len(pw) > 127 {
		pw = pw[:127]
	}
	return []byte(pw)
}

// hash2B implements ISO 32000-2's Algorithm 2.B: the hardened,
// repeated-AES-round password hash used by R6's U/UE/O/OE entries. udata
// is the 48-byte /U string when hashing for the owner password, nil
// otherwise.
func hash2B(password, salt, udata []byte) []byte {

	input := append(append([]byte{}, password...), salt...)
	input = append(input, udata...)

	k := sha256sum(input)

	round := 0
	for {
		k1 := bytes.Repeat(append(append(append([]byte{}, password...), k...), udata...), 64)

		block, err := aes.NewCipher(k[:16])
		if err != nil {
			// k is always a 32/48/64-byte hash; the leading 16 bytes are
			// always a valid AES-128 key.
			panic(err)
		}
		e := make([]byte, len(k1))
		cipher.NewCBCEncrypter(block, k[16:32]).CryptBlocks(e, k1)

		sum := 0
		for _, b := range e[:16] {
			sum += int(b)
		}
		switch sum % 3 {
		case 0:
			s := sha256.Sum256(e)
			k = s[:]
		case 1:
			s := sha512.Sum384(e)
			k = s[:]
		case 2:
			s := sha512.Sum512(e)
			k = s[:]
		}

		round++
		if round >= 64 && int(e[len(e)-1]) <= round-32 {
			break
		}
	}

	return k[:32]
}

func sha256sum(b []byte) []byte {
	s := sha256.Sum256(b)
	return s[:]
}

// authenticateR6 authenticates userPW/ownerPW against an R5/R6 AES-256
// /Encrypt dictionary per ISO 32000-2, 7.6.4.3.4, and unwraps the file
// encryption key from /UE or /OE on success.
func authenticateR6(info *types.EncryptInfo, userPW, ownerPW string) (key []byte, ok bool, err error) {

	if len(info.U) < 48 {
		return nil, false, errs.New(errs.InvalidEncryptionDict, "/U too short for AES-256 (%d bytes)", len(info.U))
	}

	uValidationSalt := info.U[32:40]
	uKeySalt := info.U[40:48]

	if h := hash2B(saslPrep(userPW), uValidationSalt, nil); bytes.Equal(h, info.U[:32]) {
		ik := hash2B(saslPrep(userPW), uKeySalt, nil)
		fk, err := unwrapFileKey(info.UE, ik)
		if err != nil {
			return nil, false, err
		}
		return fk, true, nil
	}

	if len(info.O) >= 48 && len(info.U) >= 48 {
		oValidationSalt := info.O[32:40]
		oKeySalt := info.O[40:48]

		if h := hash2B(saslPrep(ownerPW), oValidationSalt, info.U[:48]); bytes.Equal(h, info.O[:32]) {
			ik := hash2B(saslPrep(ownerPW), oKeySalt, info.U[:48])
			fk, err := unwrapFileKey(info.OE, ik)
			if err != nil {
				return nil, false, err
			}
			return fk, true, nil
		}
	}

	return nil, false, nil
}

// unwrapFileKey decrypts a 32-byte /UE or /OE entry with intermediateKey
// using AES-256-CBC with a zero IV and no padding, per 7.6.4.3.3.
func unwrapFileKey(wrapped, intermediateKey []byte) ([]byte, error) {
	if len(wrapped) != 32 {
		return nil, errs.New(errs.InvalidEncryptionDict, "/UE or /OE must be 32 bytes, got %d", len(wrapped))
	}
	block, err := aes.NewCipher(intermediateKey)
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidEncryptionDict, "AES-256 key-wrap setup")
	}
	out := make([]byte, 32)
	iv := make([]byte, aes.BlockSize)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, wrapped)
	return out, nil
}

// computeUAndUE computes fresh /U and /UE entries for a newly authored
// AES-256 document given a random 32-byte file key and the two 8-byte
// salts generated for this save.
func computeUAndUE(fileKey []byte, userPW string, validationSalt, keySalt []byte) (u, ue []byte) {

	uHash := hash2B(saslPrep(userPW), validationSalt, nil)
	u = append(append([]byte{}, uHash...), validationSalt...)
	u = append(u, keySalt...)

	ik := hash2B(saslPrep(userPW), keySalt, nil)
	block, _ := aes.NewCipher(ik)
	ue = make([]byte, 32)
	cipher.NewCBCEncrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(ue, fileKey)

	return u, ue
}

// computeOAndOE computes fresh /O and /OE entries, mirroring computeUAndUE
// but folding in the already-computed 48-byte /U string per 7.6.4.3.4.
func computeOAndOE(fileKey []byte, ownerPW string, u []byte, validationSalt, keySalt []byte) (o, oe []byte) {

	oHash := hash2B(saslPrep(ownerPW), validationSalt, u)
	o = append(append([]byte{}, oHash...), validationSalt...)
	o = append(o, keySalt...)

	ik := hash2B(saslPrep(ownerPW), keySalt, u)
	block, _ := aes.NewCipher(ik)
	oe = make([]byte, 32)
	cipher.NewCBCEncrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(oe, fileKey)

	return o, oe
}
