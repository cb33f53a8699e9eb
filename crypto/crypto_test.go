package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechiko/pdfkit/types"
)

func buildR4Info(t *testing.T, userPW, ownerPW string, keyLenBits int) *types.EncryptInfo {
	t.Helper()

	id := []byte("0123456789ABCDEF")

	o, err := computeO(ownerPW, userPW, 4, keyLenBits)
	require.NoError(t, err)

	info := &types.EncryptInfo{O: o, L: keyLenBits, P: -4, R: 4, V: 4, EncryptMetadata: true, ID: id}

	u, _, err := computeU(userPW, info)
	require.NoError(t, err)
	info.U = u

	return info
}

func TestAuthenticateR2toR4_UserPassword(t *testing.T) {
	info := buildR4Info(t, "secret", "ownerpw", 128)

	key, ok, err := authenticateR2toR4(info, "secret", "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, key, 16)
}

func TestAuthenticateR2toR4_OwnerPassword(t *testing.T) {
	info := buildR4Info(t, "secret", "ownerpw", 128)

	key, ok, err := authenticateR2toR4(info, "", "ownerpw")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, key, 16)
}

func TestAuthenticateR2toR4_WrongPasswordFails(t *testing.T) {
	info := buildR4Info(t, "secret", "ownerpw", 128)

	_, ok, err := authenticateR2toR4(info, "wrong", "alsowrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestObjectKey_VariesByObjectAndGeneration(t *testing.T) {
	sh := &SecurityHandler{info: &types.EncryptInfo{R: 4}, fileKey: []byte("0123456789abcdef")}

	k1 := sh.objectKey(1, 0, true)
	k2 := sh.objectKey(2, 0, true)
	k3 := sh.objectKey(1, 1, true)

	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.LessOrEqual(t, len(k1), 16)
}

func TestEncryptDecryptStream_RoundtripRC4(t *testing.T) {
	sh := &SecurityHandler{info: &types.EncryptInfo{R: 4}, fileKey: []byte("0123456789abcdef"), strCipher: CipherRC4, stmCipher: CipherRC4}

	plain := []byte("a PDF content stream's worth of bytes")
	enc, err := sh.EncryptBytes(plain, 7, 0, true)
	require.NoError(t, err)
	assert.NotEqual(t, plain, enc)

	dec, err := sh.DecryptBytes(enc, 7, 0, true)
	require.NoError(t, err)
	assert.Equal(t, plain, dec)
}

func TestEncryptDecryptStream_RoundtripAES128(t *testing.T) {
	sh := &SecurityHandler{info: &types.EncryptInfo{R: 4}, fileKey: []byte("0123456789abcdef"), strCipher: CipherAESV2, stmCipher: CipherAESV2}

	plain := []byte("another stream, this time AES-128 encrypted end to end")
	enc, err := sh.EncryptBytes(plain, 3, 0, true)
	require.NoError(t, err)

	dec, err := sh.DecryptBytes(enc, 3, 0, true)
	require.NoError(t, err)
	assert.Equal(t, plain, dec)
}

func TestEncryptDecryptString_Roundtrip(t *testing.T) {
	sh := &SecurityHandler{info: &types.EncryptInfo{R: 4}, fileKey: []byte("0123456789abcdef"), strCipher: CipherAESV2, stmCipher: CipherAESV2}

	s := types.StringLiteral("Hello, encrypted world")
	enc, err := sh.EncryptString(s, 9, 0)
	require.NoError(t, err)

	dec, err := sh.DecryptString(enc, 9, 0)
	require.NoError(t, err)
	assert.Equal(t, s, dec)
}

func TestHash2B_Deterministic(t *testing.T) {
	salt := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	h1 := hash2B([]byte("password"), salt, nil)
	h2 := hash2B([]byte("password"), salt, nil)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 32)
}

func TestAES256_FileKeyUnwrapRoundtrip(t *testing.T) {
	fileKey := []byte("0123456789abcdef0123456789abcdef")[:32]
	validationSalt := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	keySalt := []byte{8, 7, 6, 5, 4, 3, 2, 1}

	u, ue := computeUAndUE(fileKey, "userpw", validationSalt, keySalt)
	require.Len(t, u, 48)
	require.Len(t, ue, 32)

	info := &types.EncryptInfo{R: 6, V: 5, U: u, UE: ue}
	key, ok, err := authenticateR6(info, "userpw", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, fileKey, key)
}

func TestAES256_WrongPasswordFails(t *testing.T) {
	fileKey := []byte("0123456789abcdef0123456789abcdef")[:32]
	validationSalt := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	keySalt := []byte{8, 7, 6, 5, 4, 3, 2, 1}

	u, ue := computeUAndUE(fileKey, "userpw", validationSalt, keySalt)
	info := &types.EncryptInfo{R: 6, V: 5, U: u, UE: ue}

	_, ok, err := authenticateR6(info, "wrongpw", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewSecurityHandler_RejectsAES256WhenDisabled(t *testing.T) {
	info := &types.EncryptInfo{R: 6, V: 5, U: make([]byte, 48), UE: make([]byte, 32)}

	_, err := NewSecurityHandler(info, "pw", "", CipherAESV3, CipherAESV3, false)
	require.Error(t, err)
}
