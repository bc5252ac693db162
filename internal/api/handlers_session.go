// handlers_session.go - Import session operation handlers
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/leadflow/backend/internal/cleaning"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/normalize"
	"github.com/leadflow/backend/internal/session"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessionMgr SessionManager
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(sessionMgr SessionManager) SessionHandler {
	return &SessionHandlerImpl{sessionMgr: sessionMgr}
}

// HandleSessionStatus returns the current status of an import session
func (h *SessionHandlerImpl) HandleSessionStatus(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	// Touch session to prevent cleanup while being viewed
	h.sessionMgr.TouchSession(id)

	return c.JSON(http.StatusOK, sess)
}

// HandleSessionKeepAlive extends session lifetime for active viewing
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if ok := h.sessionMgr.TouchSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleSessionProgressStream streams session step progress via SSE
func (h *SessionHandlerImpl) HandleSessionProgressStream(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		h.sendSSEError(c, "session not found")
		return nil
	}
	h.sendSSEData(c, sess)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case <-ticker.C:
			sess, ok := h.sessionMgr.GetSession(id)
			if !ok {
				h.sendSSEError(c, "session not found")
				return nil
			}

			h.sendSSEData(c, sess)

			if sess.Status == models.SessionStatusCompleted ||
				sess.Status == models.SessionStatusFailed {
				return nil
			}
		case <-timeout.C:
			h.sendSSEError(c, "stream timeout")
			return nil
		}
	}
}

// HandleGetDuplicates returns duplicate analysis results per match field
func (h *SessionHandlerImpl) HandleGetDuplicates(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	results, ok := h.sessionMgr.DuplicateResults(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	return c.JSON(http.StatusOK, map[string]any{"results": results})
}

// HandleGetMappings returns the current field mapping suggestions
func (h *SessionHandlerImpl) HandleGetMappings(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	rules, ok := h.sessionMgr.Mappings(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	return c.JSON(http.StatusOK, mappingsResponse{
		Mappings:     rules,
		SystemFields: models.SystemFields,
	})
}

// HandleUpdateMappings replaces the session's field mappings with user
// overrides
func (h *SessionHandlerImpl) HandleUpdateMappings(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	var req updateMappingsRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if err := h.sessionMgr.UpdateMappings(id, req.Mappings); err != nil {
		if apiErr := mapDomainError(err); apiErr != nil {
			return apiErr
		}
		return NewInternalError("failed to update mappings", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleGetSettings returns cleaning and normalization settings and tags
func (h *SessionHandlerImpl) HandleGetSettings(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	cl, nz, tags, ok := h.sessionMgr.Settings(id)
	if !ok {
		return NewNotFoundError("session", id)
	}
	if tags == nil {
		tags = []string{}
	}

	return c.JSON(http.StatusOK, settingsPayload{
		Cleaning:      cl,
		Normalization: nz,
		Tags:          tags,
	})
}

// HandleUpdateSettings replaces cleaning/normalization settings and tags
func (h *SessionHandlerImpl) HandleUpdateSettings(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	var req settingsPayload
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if err := h.sessionMgr.UpdateSettings(id, req.Cleaning, req.Normalization, req.Tags); err != nil {
		if apiErr := mapDomainError(err); apiErr != nil {
			return apiErr
		}
		return NewInternalError("failed to update settings", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandlePreview generates sample rows with mapping and normalization
// applied
func (h *SessionHandlerImpl) HandlePreview(c echo.Context) error {
	rows, apiErr := h.preview(c)
	if apiErr != nil {
		return apiErr
	}

	return c.JSON(http.StatusOK, previewResponse{Rows: rows})
}

// HandlePreviewMsgpack returns the preview rows as MessagePack for the
// spreadsheet view, which polls this on every settings change
func (h *SessionHandlerImpl) HandlePreviewMsgpack(c echo.Context) error {
	rows, apiErr := h.preview(c)
	if apiErr != nil {
		return apiErr
	}

	data, err := msgpack.Marshal(previewResponse{Rows: rows})
	if err != nil {
		return NewInternalError("failed to encode preview", err)
	}

	return c.Blob(http.StatusOK, "application/x-msgpack", data)
}

func (h *SessionHandlerImpl) preview(c echo.Context) ([]session.PreviewRow, *APIError) {
	id := c.Param("sessionId")
	if id == "" {
		return nil, NewValidationError("sessionId")
	}

	rows, err := h.sessionMgr.Preview(id)
	if err != nil {
		if apiErr := mapDomainError(err); apiErr != nil {
			return nil, apiErr
		}
		return nil, NewInternalError("failed to build preview", err)
	}
	if rows == nil {
		rows = []session.PreviewRow{}
	}
	return rows, nil
}

// HandleCommit runs the full pipeline and persists the batch
func (h *SessionHandlerImpl) HandleCommit(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	res, err := h.sessionMgr.Commit(c.Request().Context(), id)
	if err != nil {
		if apiErr := mapDomainError(err); apiErr != nil {
			return apiErr
		}
		return NewInternalError("commit failed", err)
	}

	return c.JSON(http.StatusOK, res)
}

// SSE helpers

func (h *SessionHandlerImpl) sendSSEData(c echo.Context, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Response().Write([]byte("data: "))
	c.Response().Write(data)
	c.Response().Write([]byte("\n\n"))
	c.Response().Flush()
}

func (h *SessionHandlerImpl) sendSSEError(c echo.Context, msg string) {
	c.Response().Write([]byte("event: error\ndata: {\"message\":\"" + msg + "\"}\n\n"))
	c.Response().Flush()
}

// Request/Response types

type mappingsResponse struct {
	Mappings     []models.MappingRule `json:"mappings"`
	SystemFields []models.SystemField `json:"systemFields"`
}

type updateMappingsRequest struct {
	Mappings []models.MappingRule `json:"mappings"`
}

type settingsPayload struct {
	Cleaning      cleaning.Settings `json:"cleaning"`
	Normalization normalize.Config  `json:"normalization"`
	Tags          []string          `json:"tags"`
}

type previewResponse struct {
	Rows []session.PreviewRow `json:"rows"`
}
