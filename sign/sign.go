// Package sign implements the signature beacon described in 7.8.3: a
// reserved, fixed-width placeholder region inside a /Sig dictionary's
// /Contents and /ByteRange entries, written as an ordinary object and
// patched in place once a detached signature over the surrounding bytes
// is available. The cryptographic back-end that produces that signature
// is an external collaborator - this package only reserves space, locates
// it again in the final output, and performs the mechanical DER
// packing/unpacking needed to verify what a collaborator hands back.
package sign

import (
	"bytes"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/hhrutter/pkcs7"
	"golang.org/x/crypto/ocsp"

	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/types"
)

// byteRangeFieldWidth is the fixed decimal width every /ByteRange integer
// is padded to, so patching it later never changes the object's length.
const byteRangeFieldWidth = 20

// rawObject emits pre-formatted PDF syntax verbatim. Used for /ByteRange,
// whose four fields must keep an exact, predictable byte width between
// the reservation pass and the later patch - something types.Array's
// ordinary Integer formatting does not guarantee.
type rawObject string

func (r rawObject) String() string    { return string(r) }
func (r rawObject) PDFString() string { return string(r) }

func zeroPad(n int64) string {
	return fmt.Sprintf("%0*d", byteRangeFieldWidth, n)
}

// Placeholder builds a /Sig dictionary with a zero-filled /Contents hex
// string of capacity bytes and a zero /ByteRange, ready to be registered
// as a new indirect object (types.XRefTable.InsertNew) and written
// normally. capacity must be large enough to hold the DER signature the
// external signer will eventually produce.
func Placeholder(capacity int) types.Dict {
	d := types.NewDict()
	d.Insert("Type", types.Name("Sig"))
	d.Insert("Filter", types.Name("Adobe.PPKLite"))
	d.Insert("SubFilter", types.Name("adbe.pkcs7.detached"))
	d.Insert("Contents", types.NewHexLiteral(make([]byte, capacity)))
	d.Insert("ByteRange", rawObject(fmt.Sprintf("[%s %s %s %s]", zeroPad(0), zeroPad(0), zeroPad(0), zeroPad(0))))
	return d
}

// Beacon records where, inside a written file, the two placeholder fields
// of a Placeholder dictionary actually landed.
type Beacon struct {
	ContentsHexOffset int64 // offset of the first hex digit after "/Contents <".
	ContentsHexLen    int   // number of hex digits reserved (2 * capacity).
	ByteRangeOffset   int64 // offset of the first digit of the first /ByteRange field.
}

// Locate scans file (the complete bytes of a file written with a
// Placeholder dictionary) starting at objOffset - the byte offset the
// caller's Writer reported for that object - and finds the exact
// positions of the reserved fields, so Patch can overwrite them
// without re-parsing or re-serializing anything.
func Locate(file []byte, objOffset int64) (*Beacon, error) {

	region := file[objOffset:]

	ci := bytes.Index(region, []byte("/Contents <"))
	if ci < 0 {
		return nil, errs.New(errs.InvalidObject, "signature placeholder: /Contents not found")
	}
	hexStart := objOffset + int64(ci) + int64(len("/Contents <"))

	hexEnd := bytes.IndexByte(file[hexStart:], '>')
	if hexEnd < 0 {
		return nil, errs.New(errs.InvalidObject, "signature placeholder: unterminated /Contents")
	}

	bi := bytes.Index(region, []byte("/ByteRange ["))
	if bi < 0 {
		return nil, errs.New(errs.InvalidObject, "signature placeholder: /ByteRange not found")
	}
	brStart := objOffset + int64(bi) + int64(len("/ByteRange ["))

	return &Beacon{ContentsHexOffset: hexStart, ContentsHexLen: hexEnd, ByteRangeOffset: brStart}, nil
}

// Patch overwrites a previously Located beacon in w with the final
// /ByteRange values and the DER-encoded signature der. der must fit within
// the hex capacity reserved by Placeholder; the remainder is zero-padded,
// matching how a verifier must treat unused /Contents bytes.
func Patch(w io.WriterAt, b *Beacon, byteRange [4]int64, der []byte) error {

	if len(der)*2 > b.ContentsHexLen {
		return errs.New(errs.ValueOutOfRange, "signature %d bytes exceeds reserved capacity %d", len(der), b.ContentsHexLen/2)
	}

	encoded := make([]byte, b.ContentsHexLen)
	hex.Encode(encoded, der)
	for i := len(der) * 2; i < b.ContentsHexLen; i++ {
		encoded[i] = '0'
	}
	if _, err := w.WriteAt(encoded, b.ContentsHexOffset); err != nil {
		return errs.Wrap(err, errs.IOError, "patch /Contents")
	}

	brText := fmt.Sprintf("%s %s %s %s", zeroPad(byteRange[0]), zeroPad(byteRange[1]), zeroPad(byteRange[2]), zeroPad(byteRange[3]))
	if _, err := w.WriteAt([]byte(brText), b.ByteRangeOffset); err != nil {
		return errs.Wrap(err, errs.IOError, "patch /ByteRange")
	}

	return nil
}

// VerifyPKCS7Detached parses a DER-encoded detached PKCS#7 signature and
// checks it against content (the signable bytes named by /ByteRange),
// returning the parsed structure for the caller to inspect (signer
// certificates, signing time, and so on). Certificate-chain trust and
// revocation are the caller's concern; this only confirms the signature
// mathematically matches content under the signer's own certificate.
func VerifyPKCS7Detached(der, content []byte) (*pkcs7.PKCS7, error) {

	p7, err := pkcs7.Parse(der)
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidEncoding, "parse PKCS#7 signature")
	}

	if len(p7.Content) == 0 {
		p7.Content = content
	}

	for _, signer := range p7.Signers {
		cert := pkcs7.GetCertFromCertsByIssuerAndSerial(p7.Certificates, signer.IssuerAndSerialNumber)
		if cert == nil {
			return p7, errs.New(errs.InvalidEncryptionDict, "signer certificate not found among embedded certificates")
		}
		if err := pkcs7.CheckSignature(cert, signer, content); err != nil {
			return p7, errs.Wrap(err, errs.InvalidEncryptionDict, "PKCS#7 signature check failed")
		}
	}

	return p7, nil
}

// VerifyOCSPResponse checks a DER-encoded OCSP response for cert (issued by
// issuer) and reports whether the responder considers it still good.
func VerifyOCSPResponse(respDER []byte, cert, issuer *x509.Certificate) (*ocsp.Response, error) {
	resp, err := ocsp.ParseResponseForCert(respDER, cert, issuer)
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidEncoding, "parse OCSP response")
	}
	if resp.Status != ocsp.Good {
		return resp, errs.New(errs.InvalidEncryptionDict, "OCSP status %d, not good", resp.Status)
	}
	return resp, nil
}
