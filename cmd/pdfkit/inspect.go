package main

import (
	"fmt"

	"github.com/mechiko/pdfkit/document"
	"github.com/mechiko/pdfkit/errs"
)

func cmdInspect(args []string) error {
	fs := newFlagSet("inspect")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errs.New(errs.InvalidInput, "inspect: expected FILE")
	}

	f, err := openFile(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	d, err := document.Open(f, baseConfig())
	if err != nil {
		return err
	}

	xt := d.XRef
	size := 0
	if xt.Size != nil {
		size = *xt.Size
	}

	fmt.Printf("version:    %s\n", xt.VersionString())
	fmt.Printf("size:       %d\n", size)
	fmt.Printf("objects:    %d\n", len(xt.ObjectNumbers()))
	fmt.Printf("encrypted:  %t\n", xt.Encrypt != nil)
	fmt.Printf("obj streams: %t\n", xt.UsingObjectStreams)
	fmt.Printf("xref stream: %t\n", xt.UsingXRefStreams)

	if xt.Root != nil {
		fmt.Printf("root:       %d 0 R\n", xt.Root.ObjectNumber)
	}
	if xt.Info != nil {
		fmt.Printf("info:       %d 0 R\n", xt.Info.ObjectNumber)
	}

	return nil
}
