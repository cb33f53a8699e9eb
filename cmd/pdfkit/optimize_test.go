package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mechiko/pdfkit/config"
	"github.com/mechiko/pdfkit/document"
	"github.com/mechiko/pdfkit/types"
)

func writeFixture(t *testing.T, path string) {
	t.Helper()

	xt := types.NewXRefTable(int(config.ValidationRelaxed))
	pages := types.NewDict()
	pages.Insert("Type", types.Name("Pages"))
	pages.Insert("Kids", types.Array{})
	pages.Insert("Count", types.Integer(0))
	pagesRef := xt.InsertNew(pages)

	catalog := types.NewDict()
	catalog.Insert("Type", types.Name("Catalog"))
	catalog.Insert("Pages", pagesRef)
	catRef := xt.InsertNew(catalog)
	xt.Root = &catRef

	d := &document.Document{XRef: xt, Config: config.Default()}

	var buf bytes.Buffer
	_, err := d.Save(&buf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestOptimizeRoundTripsBothXRefModes(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	writeFixture(t, in)

	for _, mode := range []string{"table", "stream"} {
		out := filepath.Join(dir, "out-"+mode+".pdf")
		require.NoError(t, cmdOptimize([]string{"-xref", mode, in, out}))

		b, err := os.ReadFile(out)
		require.NoError(t, err)

		d, err := document.Open(bytes.NewReader(b), config.Default())
		require.NoError(t, err)
		require.NotNil(t, d.XRef.Root)
	}
}
