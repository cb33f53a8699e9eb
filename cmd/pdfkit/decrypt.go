package main

import (
	"os"

	"github.com/mechiko/pdfkit/document"
	"github.com/mechiko/pdfkit/errs"
)

func cmdDecrypt(args []string) error {
	fs := newFlagSet("decrypt")
	pw := fs.String("password", "", "user or owner password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errs.New(errs.InvalidInput, "decrypt: expected FILE OUT")
	}

	in, err := openFile(fs.Arg(0))
	if err != nil {
		return err
	}
	defer in.Close()

	d, err := document.OpenEncrypted(in, baseConfig(), *pw, *pw)
	if err != nil {
		return err
	}

	d.RemoveEncryption()

	out, err := os.Create(fs.Arg(1))
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = d.Save(out)
	return err
}
