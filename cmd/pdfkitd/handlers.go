package main

import (
	"bytes"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mechiko/pdfkit/config"
	"github.com/mechiko/pdfkit/document"
)

// documentSummary is the page-tree-free upload response: object count,
// trailer keys, encryption state.
type documentSummary struct {
	ID          string   `json:"id"`
	Version     string   `json:"version"`
	ObjectCount int      `json:"objectCount"`
	TrailerKeys []string `json:"trailerKeys"`
	Encrypted   bool     `json:"encrypted"`
}

func summarize(id string, d *document.Document) documentSummary {
	xt := d.XRef
	keys := make([]string, 0, 4)
	if xt.Root != nil {
		keys = append(keys, "Root")
	}
	if xt.Info != nil {
		keys = append(keys, "Info")
	}
	if xt.ID != nil {
		keys = append(keys, "ID")
	}
	if xt.Encrypt != nil {
		keys = append(keys, "Encrypt")
	}
	return documentSummary{
		ID:          id,
		Version:     xt.VersionString(),
		ObjectCount: len(xt.ObjectNumbers()),
		TrailerKeys: keys,
		Encrypted:   xt.Encrypt != nil,
	}
}

// uploadDocument parses the request body as a PDF and stores it under a
// fresh id. The user password may be supplied via the "password" query
// parameter for an already-encrypted file.
func (s *Server) uploadDocument(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	pw := c.QueryParam("password")
	d, err := document.OpenEncrypted(bytes.NewReader(body), s.cfg, pw, pw)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	id := s.docs.put(d)
	return c.JSON(http.StatusCreated, summarize(id, d))
}

// validateDocument re-validates a previously uploaded document under
// strict mode and reports whether it still passes.
func (s *Server) validateDocument(c echo.Context) error {
	d, ok := s.docs.get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown document id")
	}

	strict := s.cfg
	strict.Validation = config.ValidationStrict

	var buf bytes.Buffer
	if _, err := d.Save(&buf); err != nil {
		return c.JSON(http.StatusOK, map[string]any{"valid": false, "error": err.Error()})
	}
	if _, err := document.Open(bytes.NewReader(buf.Bytes()), strict); err != nil {
		return c.JSON(http.StatusOK, map[string]any{"valid": false, "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"valid": true})
}

// saveDocument re-serializes a previously uploaded document under the
// server's configured XRefMode and returns the resulting bytes.
func (s *Server) saveDocument(c echo.Context) error {
	d, ok := s.docs.get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown document id")
	}

	var buf bytes.Buffer
	if _, err := d.Save(&buf); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}
