// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/leadflow/backend/internal/cleaning"
	"github.com/leadflow/backend/internal/dupcheck"
	"github.com/leadflow/backend/internal/leadstore"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/normalize"
	"github.com/leadflow/backend/internal/parser"
	"github.com/leadflow/backend/internal/session"
)

// UploadHandler handles file upload operations
type UploadHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
}

// SessionHandler handles import session operations
type SessionHandler interface {
	HandleSessionStatus(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleSessionProgressStream(c echo.Context) error
	HandleGetDuplicates(c echo.Context) error
	HandleGetMappings(c echo.Context) error
	HandleUpdateMappings(c echo.Context) error
	HandleGetSettings(c echo.Context) error
	HandleUpdateSettings(c echo.Context) error
	HandlePreview(c echo.Context) error
	HandlePreviewMsgpack(c echo.Context) error
	HandleCommit(c echo.Context) error
}

// BatchHandler handles upload batch history operations
type BatchHandler interface {
	HandleListBatches(c echo.Context) error
	HandleGetBatch(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	StartSession(fileID, filename string, pf *parser.ParsedFile) *models.UploadSession
	GetSession(id string) (*models.UploadSession, bool)
	TouchSession(id string) bool
	DuplicateResults(id string) ([]dupcheck.Result, bool)
	Mappings(id string) ([]models.MappingRule, bool)
	UpdateMappings(id string, rules []models.MappingRule) error
	Settings(id string) (cleaning.Settings, normalize.Config, []string, bool)
	UpdateSettings(id string, cl cleaning.Settings, nz normalize.Config, tags []string) error
	Preview(id string) ([]session.PreviewRow, error)
	Commit(ctx context.Context, id string) (*leadstore.CommitResult, error)
}

// BatchStore defines the read side of batch persistence used by handlers
type BatchStore interface {
	GetBatch(ctx context.Context, id string) (*models.UploadBatch, error)
	ListBatches(ctx context.Context, limit int) ([]models.UploadBatch, error)
}
