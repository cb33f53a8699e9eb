package main

import (
	"os"

	"github.com/mechiko/pdfkit/document"
	"github.com/mechiko/pdfkit/errs"
)

func cmdEncrypt(args []string) error {
	fs := newFlagSet("encrypt")
	user := fs.String("user", "", "user password")
	owner := fs.String("owner", "", "owner password")
	bits := fs.Int("bits", 128, "key length: 40, 128 or 256")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errs.New(errs.InvalidInput, "encrypt: expected FILE OUT")
	}

	in, err := openFile(fs.Arg(0))
	if err != nil {
		return err
	}
	defer in.Close()

	cfg := baseConfig()
	cfg.AllowAES256 = *bits >= 256

	d, err := document.Open(in, cfg)
	if err != nil {
		return err
	}

	// -3392 is the /P value of the Adobe sample permission set: of the
	// user-access bits it grants only accessibility extraction (bit 10), so
	// printing, copying and modification are all denied.
	if err := d.Encrypt(*user, *owner, -3392, *bits); err != nil {
		return err
	}

	out, err := os.Create(fs.Arg(1))
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = d.Save(out)
	return err
}
