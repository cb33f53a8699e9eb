package main

import (
	"os"

	"github.com/mechiko/pdfkit/config"
	"github.com/mechiko/pdfkit/document"
	"github.com/mechiko/pdfkit/errs"
)

func cmdOptimize(args []string) error {
	fs := newFlagSet("optimize")
	xref := fs.String("xref", "stream", "cross-reference format: table or stream")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errs.New(errs.InvalidInput, "optimize: expected FILE OUT")
	}

	in, err := openFile(fs.Arg(0))
	if err != nil {
		return err
	}
	defer in.Close()

	cfg := baseConfig()
	switch *xref {
	case "table":
		cfg.XRefMode = config.XRefModeTable
	case "stream":
		cfg.XRefMode = config.XRefModeStream
	default:
		return errs.New(errs.InvalidInput, "optimize: -xref must be table or stream, got %q", *xref)
	}

	d, err := document.Open(in, cfg)
	if err != nil {
		return err
	}
	d.Config = cfg

	out, err := os.Create(fs.Arg(1))
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = d.Save(out)
	return err
}
