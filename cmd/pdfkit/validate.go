package main

import (
	"fmt"

	"github.com/mechiko/pdfkit/config"
	"github.com/mechiko/pdfkit/document"
	"github.com/mechiko/pdfkit/errs"
)

func cmdValidate(args []string) error {
	fs := newFlagSet("validate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errs.New(errs.InvalidInput, "validate: expected FILE")
	}

	f, err := openFile(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	cfg := baseConfig()
	cfg.Validation = config.ValidationStrict

	if _, err := document.Open(f, cfg); err != nil {
		return err
	}

	fmt.Println("valid")
	return nil
}
