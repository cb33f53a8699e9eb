package crypto

import (
	"crypto/md5"
	"crypto/rc4"

	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/types"
)

// padPassword truncates or pads pw to exactly 32 bytes with pad, per the
// first step common to Algorithms 2, 3, 4 and 5.
func padPassword(pw string) []byte {
	b := []byte(pw)
	if len(b) >= 32 {
		return b[:32]
	}
	return append(append([]byte{}, b...), pad[:32-len(b)]...)
}

// computeEncryptionKey derives the file encryption key from the user
// password per 7.6.3.3, Algorithm 2.
func computeEncryptionKey(userPW string, info *types.EncryptInfo) []byte {

	h := md5.New()
	h.Write(padPassword(userPW))
	h.Write(info.O)
	p := uint32(info.P)
	h.Write([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
	h.Write(info.ID)
	if info.R >= 4 && !info.EncryptMetadata {
		h.Write([]byte{0xff, 0xff, 0xff, 0xff})
	}
	key := h.Sum(nil)

	n := 5
	if info.R >= 3 {
		n = info.L / 8
		for i := 0; i < 50; i++ {
			h.Reset()
			h.Write(key[:n])
			key = h.Sum(nil)
		}
	}
	return key[:n]
}

// computeO computes the /O entry per 7.6.3.4, Algorithm 3, steps a-g. It
// is needed both when authoring a fresh encryption dictionary and when
// validating an owner password against an existing one.
func computeO(ownerPW, userPW string, r, keyLenBits int) ([]byte, error) {

	pw := ownerPW
	if pw == "" {
		pw = userPW
	}

	h := md5.New()
	h.Write(padPassword(pw))
	key := h.Sum(nil)

	n := 5
	if r >= 3 {
		n = keyLenBits / 8
		for i := 0; i < 50; i++ {
			h.Reset()
			h.Write(key)
			key = h.Sum(nil)
		}
	}
	key = key[:n]

	o := padPassword(userPW)
	if err := rc4InPlace(o, key); err != nil {
		return nil, err
	}

	if r >= 3 {
		for i := 1; i <= 19; i++ {
			if err := rc4InPlace(o, xorKey(key, byte(i))); err != nil {
				return nil, err
			}
		}
	}

	return o, nil
}

// computeU computes the /U entry and the file key per 7.6.3.4, Algorithms
// 4 (R2) and 5 (R3/R4).
func computeU(userPW string, info *types.EncryptInfo) (u, key []byte, err error) {

	key = computeEncryptionKey(userPW, info)

	if info.R == 2 {
		u = append([]byte{}, pad...)
		if err := rc4InPlace(u, key); err != nil {
			return nil, nil, err
		}
		return u, key, nil
	}

	h := md5.New()
	h.Write(pad)
	h.Write(info.ID)
	u = h.Sum(nil)

	if err := rc4InPlace(u, key); err != nil {
		return nil, nil, err
	}
	for i := 1; i <= 19; i++ {
		if err := rc4InPlace(u, xorKey(key, byte(i))); err != nil {
			return nil, nil, err
		}
	}

	if len(u) < 32 {
		u = append(u, make([]byte, 32-len(u))...)
	}
	return u, key, nil
}

// authenticateR2toR4 tries the user password, then the owner password,
// against an R2-R4 /Encrypt dictionary, per Algorithms 6 and 7.
func authenticateR2toR4(info *types.EncryptInfo, userPW, ownerPW string) (key []byte, ok bool, err error) {

	u, key, err := computeU(userPW, info)
	if err != nil {
		return nil, false, err
	}

	cmpLen := 32
	if info.R == 2 {
		cmpLen = 32
	} else {
		cmpLen = 16 // R>=3 compares only the first 16 bytes per 7.6.3.3, Algorithm 5 step e.
	}
	if bytesEqualPrefix(u, info.U, cmpLen) {
		return key, true, nil
	}

	// Recover the user password implied by the owner password (Algorithm 7)
	// and retry as a user-password authentication.
	upw, err := recoverUserPasswordFromOwner(ownerPW, info)
	if err != nil {
		return nil, false, err
	}

	u2, key2, err := computeU(string(upw), info)
	if err != nil {
		return nil, false, err
	}
	if bytesEqualPrefix(u2, info.U, cmpLen) {
		return key2, true, nil
	}

	return nil, false, nil
}

// recoverUserPasswordFromOwner reverses Algorithm 3's RC4 cascade to
// recover the padded user password encoded in /O, per Algorithm 7.
func recoverUserPasswordFromOwner(ownerPW string, info *types.EncryptInfo) ([]byte, error) {

	h := md5.New()
	h.Write(padPassword(ownerPW))
	key := h.Sum(nil)

	n := 5
	if info.R >= 3 {
		n = info.L / 8
		for i := 0; i < 50; i++ {
			h.Reset()
			h.Write(key)
			key = h.Sum(nil)
		}
	}
	key = key[:n]

	upw := append([]byte{}, info.O...)

	if info.R == 2 {
		if err := rc4InPlace(upw, key); err != nil {
			return nil, err
		}
		return upw, nil
	}

	for i := 19; i >= 0; i-- {
		if err := rc4InPlace(upw, xorKey(key, byte(i))); err != nil {
			return nil, err
		}
	}
	return upw, nil
}

func xorKey(key []byte, b byte) []byte {
	out := make([]byte, len(key))
	for i, k := range key {
		out[i] = k ^ b
	}
	return out
}

func rc4InPlace(b, key []byte) error {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return errs.Wrap(err, errs.InvalidEncryptionDict, "rc4 key setup")
	}
	c.XORKeyStream(b, b)
	return nil
}

func bytesEqualPrefix(a, b []byte, n int) bool {
	if len(a) < n || len(b) < n {
		return false
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
