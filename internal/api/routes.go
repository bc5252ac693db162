// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/leadflow/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store      storage.Store
	SessionMgr SessionManager
	Batches    BatchStore
	DB         Pinger
	Version    string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Upload  UploadHandler
	Session SessionHandler
	Batch   BatchHandler
	Hub     *ProgressHub
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.DB),
		Upload:  NewUploadHandler(deps.Store, deps.SessionMgr),
		Session: NewSessionHandler(deps.SessionMgr),
		Batch:   NewBatchHandler(deps.Batches),
		Hub:     NewProgressHub(),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/health", handlers.Health.HandleHealth)

	// File upload routes
	fileGroup := e.Group("/api/files")
	fileGroup.POST("/upload", handlers.Upload.HandleUploadFile)
	fileGroup.GET("/recent", handlers.Upload.HandleGetRecentFiles)
	fileGroup.GET("/:id", handlers.Upload.HandleGetFile)
	fileGroup.DELETE("/:id", handlers.Upload.HandleDeleteFile)

	// Import session routes
	sessionGroup := e.Group("/api/sessions")
	sessionGroup.GET("/:sessionId", handlers.Session.HandleSessionStatus)
	sessionGroup.POST("/:sessionId/keepalive", handlers.Session.HandleSessionKeepAlive)
	sessionGroup.GET("/:sessionId/progress", handlers.Session.HandleSessionProgressStream)
	sessionGroup.GET("/:sessionId/duplicates", handlers.Session.HandleGetDuplicates)
	sessionGroup.GET("/:sessionId/mappings", handlers.Session.HandleGetMappings)
	sessionGroup.PUT("/:sessionId/mappings", handlers.Session.HandleUpdateMappings)
	sessionGroup.GET("/:sessionId/settings", handlers.Session.HandleGetSettings)
	sessionGroup.PUT("/:sessionId/settings", handlers.Session.HandleUpdateSettings)
	sessionGroup.POST("/:sessionId/preview", handlers.Session.HandlePreview)
	sessionGroup.POST("/:sessionId/preview/msgpack", handlers.Session.HandlePreviewMsgpack)
	sessionGroup.POST("/:sessionId/commit", handlers.Session.HandleCommit)

	// Batch history routes
	batchGroup := e.Group("/api/batches")
	batchGroup.GET("", handlers.Batch.HandleListBatches)
	batchGroup.GET("/:id", handlers.Batch.HandleGetBatch)

	// WebSocket progress feed
	e.GET("/api/ws/progress", handlers.Hub.HandleWebSocket)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler
}
