package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/mechiko/pdfkit/config"
	"github.com/mechiko/pdfkit/document"
	"github.com/mechiko/pdfkit/types"
)

func fixtureBytes(t *testing.T) []byte {
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
	return buf.Bytes()
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New("127.0.0.1", "0", config.Default())
	require.NoError(t, err)
	return s
}

func TestUploadValidateSave(t *testing.T) {
	s := newTestServer(t)
	body := fixtureBytes(t)

	req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	require.NoError(t, s.uploadDocument(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var summary documentSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.False(t, summary.Encrypted)
	require.NotEmpty(t, summary.ID)

	req = httptest.NewRequest(http.MethodPost, "/documents/"+summary.ID+"/validate", nil)
	rec = httptest.NewRecorder()
	c = s.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(summary.ID)
	require.NoError(t, s.validateDocument(c))
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/documents/"+summary.ID+"/save", nil)
	rec = httptest.NewRecorder()
	c = s.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(summary.ID)
	require.NoError(t, s.saveDocument(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Body.Bytes())
}

func TestSaveUnknownDocumentReturns404(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/documents/nope/save", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	err := s.saveDocument(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, he.Code)
}
