package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/backend/internal/session"
	"github.com/leadflow/backend/internal/testutil"
)

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	part.Write([]byte(content))
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestHandleUploadFile(t *testing.T) {
	e := echo.New()
	store := testutil.NewMockStorage()
	mgr := session.NewManager(nil, nil)
	h := NewUploadHandler(store, mgr)

	body, contentType := multipartBody(t, "leads.csv",
		"Email,First Name,Last Name\njohn@x.com,john,doe\n")

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if assert.NoError(t, h.HandleUploadFile(c)) {
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"filename":"leads.csv"`)
		assert.Contains(t, rec.Body.String(), `"rowCount":1`)
	}
	assert.Equal(t, 1, store.GetFileCount())
}

func TestHandleUploadFile_EmptyFile(t *testing.T) {
	e := echo.New()
	store := testutil.NewMockStorage()
	mgr := session.NewManager(nil, nil)
	h := NewUploadHandler(store, mgr)

	body, contentType := multipartBody(t, "empty.csv", "")

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.HandleUploadFile(c)
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	// The rejected file stays stored with an error status.
	files, _ := store.List(10)
	require.Len(t, files, 1)
	assert.Equal(t, "error", files[0].Status)
}

func TestHandleUploadFile_UnsupportedFormat(t *testing.T) {
	e := echo.New()
	store := testutil.NewMockStorage()
	mgr := session.NewManager(nil, nil)
	h := NewUploadHandler(store, mgr)

	body, contentType := multipartBody(t, "leads.pdf", "%PDF-1.4")

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.HandleUploadFile(c)
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestHandleUploadFile_NoFile(t *testing.T) {
	e := echo.New()
	h := NewUploadHandler(testutil.NewMockStorage(), session.NewManager(nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.HandleUploadFile(c)
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestFileLifecycle(t *testing.T) {
	e := echo.New()
	store := testutil.NewMockStorage()
	h := NewUploadHandler(store, session.NewManager(nil, nil))

	info := store.AddFile("file-1", "leads.csv", []byte("email\na@x.com\n"))

	// Get
	req := httptest.NewRequest(http.MethodGet, "/api/files/file-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(info.ID)
	if assert.NoError(t, h.HandleGetFile(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"name":"leads.csv"`)
	}

	// Recent
	req = httptest.NewRequest(http.MethodGet, "/api/files/recent", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	if assert.NoError(t, h.HandleGetRecentFiles(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	// Delete
	req = httptest.NewRequest(http.MethodDelete, "/api/files/file-1", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(info.ID)
	if assert.NoError(t, h.HandleDeleteFile(c)) {
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
	assert.Equal(t, 0, store.GetFileCount())
}
