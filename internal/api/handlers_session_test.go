package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/leadflow/backend/internal/leadstore"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/parser"
	"github.com/leadflow/backend/internal/session"
)

type stubCommitter struct {
	err error
}

func (s *stubCommitter) Process(_ context.Context, req leadstore.CommitRequest) (*leadstore.CommitResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &leadstore.CommitResult{
		BatchID: "batch-1",
		Stats: models.CommitStats{
			Total: len(req.Rows), Cleaned: len(req.Rows), Inserted: len(req.Rows),
		},
	}, nil
}

func leadFile() *parser.ParsedFile {
	return &parser.ParsedFile{
		Headers: []string{"Email", "First Name", "Last Name", "Phone"},
		Rows: []parser.RawRow{
			{"Email": "john@x.com", "First Name": "john", "Last Name": "doe", "Phone": "5551234567"},
			{"Email": "jane@x.com", "First Name": "jane", "Last Name": "roe", "Phone": "5559876543"},
		},
	}
}

func newReadySession(t *testing.T, mgr *session.Manager) string {
	t.Helper()
	s := mgr.StartSession("file-1", "leads.csv", leadFile())
	require.Eventually(t, func() bool {
		cur, ok := mgr.GetSession(s.ID)
		return ok && cur.Status == models.SessionStatusMapping
	}, 2*time.Second, 5*time.Millisecond)
	return s.ID
}

func sessionContext(e *echo.Echo, method, path, body string, id string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues(id)
	return c, rec
}

func TestHandleSessionStatus(t *testing.T) {
	e := echo.New()
	mgr := session.NewManager(nil, nil)
	h := NewSessionHandler(mgr)
	id := newReadySession(t, mgr)

	c, rec := sessionContext(e, http.MethodGet, "/api/sessions/"+id, "", id)
	if assert.NoError(t, h.HandleSessionStatus(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"mapping"`)
		assert.Contains(t, rec.Body.String(), `"filename":"leads.csv"`)
	}

	c, _ = sessionContext(e, http.MethodGet, "/api/sessions/nope", "", "nope")
	err := h.HandleSessionStatus(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, err.(*APIError).Status)
}

func TestHandleGetDuplicates(t *testing.T) {
	e := echo.New()
	mgr := session.NewManager(nil, nil)
	h := NewSessionHandler(mgr)
	id := newReadySession(t, mgr)

	c, rec := sessionContext(e, http.MethodGet, "/api/sessions/"+id+"/duplicates", "", id)
	if assert.NoError(t, h.HandleGetDuplicates(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"results"`)
		assert.Contains(t, rec.Body.String(), `"email"`)
	}
}

func TestHandleMappings(t *testing.T) {
	e := echo.New()
	mgr := session.NewManager(nil, nil)
	h := NewSessionHandler(mgr)
	id := newReadySession(t, mgr)

	c, rec := sessionContext(e, http.MethodGet, "/api/sessions/"+id+"/mappings", "", id)
	if assert.NoError(t, h.HandleGetMappings(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"targetField":"email"`)
		assert.Contains(t, rec.Body.String(), `"systemFields"`)
	}

	// Override mapping
	body := `{"mappings":[
		{"sourceField":"Email","targetField":"email","confidence":1,"isRequired":true},
		{"sourceField":"First Name","targetField":"firstname","confidence":1,"isRequired":true},
		{"sourceField":"Last Name","targetField":"lastname","confidence":1,"isRequired":true},
		{"sourceField":"Phone","targetField":"","confidence":0}
	]}`
	c, rec = sessionContext(e, http.MethodPut, "/api/sessions/"+id+"/mappings", body, id)
	if assert.NoError(t, h.HandleUpdateMappings(c)) {
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	// Unknown target field is rejected
	body = `{"mappings":[{"sourceField":"Email","targetField":"bogus","confidence":1}]}`
	c, _ = sessionContext(e, http.MethodPut, "/api/sessions/"+id+"/mappings", body, id)
	err := h.HandleUpdateMappings(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, err.(*APIError).Status)
}

func TestHandleSettings(t *testing.T) {
	e := echo.New()
	mgr := session.NewManager(nil, nil)
	h := NewSessionHandler(mgr)
	id := newReadySession(t, mgr)

	c, rec := sessionContext(e, http.MethodGet, "/api/sessions/"+id+"/settings", "", id)
	if assert.NoError(t, h.HandleGetSettings(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"trimWhitespace":true`)
		assert.Contains(t, rec.Body.String(), `"normalization"`)
	}

	body := `{
		"cleaning":{"trimWhitespace":true,"removeDuplicates":false,"correctCommonTypos":true,"flagMissingFields":false,"emailTypoCorrections":""},
		"normalization":[{"field":"phone","type":"phone","format":"us_standard","enabled":true}],
		"tags":["q3","purchased"]
	}`
	c, rec = sessionContext(e, http.MethodPut, "/api/sessions/"+id+"/settings", body, id)
	if assert.NoError(t, h.HandleUpdateSettings(c)) {
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	c, rec = sessionContext(e, http.MethodGet, "/api/sessions/"+id+"/settings", "", id)
	if assert.NoError(t, h.HandleGetSettings(c)) {
		assert.Contains(t, rec.Body.String(), `"q3"`)
		assert.Contains(t, rec.Body.String(), `"removeDuplicates":false`)
	}
}

func TestHandlePreview(t *testing.T) {
	e := echo.New()
	mgr := session.NewManager(nil, nil)
	h := NewSessionHandler(mgr)
	id := newReadySession(t, mgr)

	c, rec := sessionContext(e, http.MethodPost, "/api/sessions/"+id+"/preview", "", id)
	if assert.NoError(t, h.HandlePreview(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"john@x.com"`)
		assert.Contains(t, rec.Body.String(), `"(555) 123-4567"`)
	}
}

func TestHandlePreviewMsgpack(t *testing.T) {
	e := echo.New()
	mgr := session.NewManager(nil, nil)
	h := NewSessionHandler(mgr)
	id := newReadySession(t, mgr)

	c, rec := sessionContext(e, http.MethodPost, "/api/sessions/"+id+"/preview/msgpack", "", id)
	require.NoError(t, h.HandlePreviewMsgpack(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-msgpack", rec.Header().Get(echo.HeaderContentType))

	var decoded struct {
		Rows []map[string]string `msgpack:"Rows"`
	}
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &decoded))
	require.Len(t, decoded.Rows, 2)
	assert.Equal(t, "john@x.com", decoded.Rows[0]["email"])
}

func TestHandleCommit(t *testing.T) {
	e := echo.New()
	mgr := session.NewManager(nil, &stubCommitter{})
	h := NewSessionHandler(mgr)
	id := newReadySession(t, mgr)

	// Commit before preview is a conflict
	c, _ := sessionContext(e, http.MethodPost, "/api/sessions/"+id+"/commit", "", id)
	err := h.HandleCommit(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, err.(*APIError).Status)

	c, _ = sessionContext(e, http.MethodPost, "/api/sessions/"+id+"/preview", "", id)
	require.NoError(t, h.HandlePreview(c))

	c, rec := sessionContext(e, http.MethodPost, "/api/sessions/"+id+"/commit", "", id)
	if assert.NoError(t, h.HandleCommit(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"batch-1"`)
		assert.Contains(t, rec.Body.String(), `"inserted":2`)
	}
}

func TestHandleSessionKeepAlive(t *testing.T) {
	e := echo.New()
	mgr := session.NewManager(nil, nil)
	h := NewSessionHandler(mgr)
	id := newReadySession(t, mgr)

	c, rec := sessionContext(e, http.MethodPost, "/api/sessions/"+id+"/keepalive", "", id)
	if assert.NoError(t, h.HandleSessionKeepAlive(c)) {
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	c, _ = sessionContext(e, http.MethodPost, "/api/sessions/nope/keepalive", "", "nope")
	err := h.HandleSessionKeepAlive(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, err.(*APIError).Status)
}
