//go:build demo_sign

// This file is only built with -tags demo_sign: producing an actual
// detached PKCS#7 signature needs a real private key, which has no
// business living in a default build or its test suite. It exists so
// github.com/hhrutter/pkcs7's signing path (as opposed to VerifyPKCS7Detached's
// parse/verify path) has at least one concrete caller in this module.
package sign

import (
	"crypto"
	"crypto/x509"

	"github.com/hhrutter/pkcs7"

	"github.com/mechiko/pdfkit/errs"
)

// SignPKCS7Detached produces a DER-encoded detached PKCS#7 signature over
// content (the bytes a beacon's /ByteRange names), signed by key under
// cert. The result's size must not exceed the capacity a Beacon reserved.
func SignPKCS7Detached(content []byte, cert *x509.Certificate, key crypto.Signer) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(content)
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidEncoding, "start PKCS#7 signed data")
	}

	if err := sd.AddSigner(cert, key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, errs.Wrap(err, errs.InvalidEncoding, "add PKCS#7 signer")
	}

	sd.Detach()

	der, err := sd.Finish()
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidEncoding, "finish PKCS#7 signed data")
	}
	return der, nil
}
