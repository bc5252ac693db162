// handlers_upload.go - Lead file upload operation handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/parser"
	"github.com/leadflow/backend/internal/storage"
)

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	store      storage.Store
	sessionMgr SessionManager
}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler(store storage.Store, sessionMgr SessionManager) UploadHandler {
	return &UploadHandlerImpl{
		store:      store,
		sessionMgr: sessionMgr,
	}
}

// uploadResponse pairs the stored file with the import session that
// was started for it.
type uploadResponse struct {
	File    *models.FileInfo      `json:"file"`
	Session *models.UploadSession `json:"session"`
}

// HandleUploadFile accepts a lead file (multipart/form-data), parses it
// synchronously and starts an import session. Parse failures are client
// errors: the file stays stored with status "error" so the user can see
// what was rejected.
func (h *UploadHandlerImpl) HandleUploadFile(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.store.Save(file.Filename, src)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	data, err := h.store.ReadAll(info.ID)
	if err != nil {
		return NewInternalError("failed to read stored file", err)
	}

	pf, err := parser.Parse(data, file.Filename)
	if err != nil {
		h.store.SetStatus(info.ID, "error")
		if apiErr := mapDomainError(err); apiErr != nil {
			return apiErr
		}
		return NewBadRequestError("file could not be parsed", err)
	}

	sess := h.sessionMgr.StartSession(info.ID, file.Filename, pf)
	h.store.SetStatus(info.ID, "processing")

	return c.JSON(http.StatusCreated, uploadResponse{File: info, Session: sess})
}

// HandleGetRecentFiles returns a list of recently uploaded lead files
func (h *UploadHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	files, err := h.store.List(20)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	if files == nil {
		files = []*models.FileInfo{}
	}

	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for a specific file
func (h *UploadHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile deletes an uploaded file
func (h *UploadHandlerImpl) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return NewNotFoundError("file", id)
	}

	return c.NoContent(http.StatusNoContent)
}
