// handlers_batch.go - Upload batch history handlers
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/leadflow/backend/internal/leadstore"
	"github.com/leadflow/backend/internal/models"
)

// BatchHandlerImpl implements the BatchHandler interface
type BatchHandlerImpl struct {
	batches BatchStore
}

// NewBatchHandler creates a new batch handler instance
func NewBatchHandler(batches BatchStore) BatchHandler {
	return &BatchHandlerImpl{batches: batches}
}

// HandleListBatches returns recent upload batches, newest first
func (h *BatchHandlerImpl) HandleListBatches(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	batches, err := h.batches.ListBatches(c.Request().Context(), limit)
	if err != nil {
		return NewInternalError("failed to list batches", err)
	}
	if batches == nil {
		batches = []models.UploadBatch{}
	}

	return c.JSON(http.StatusOK, batches)
}

// HandleGetBatch returns a single upload batch with its statistics
func (h *BatchHandlerImpl) HandleGetBatch(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	batch, err := h.batches.GetBatch(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, leadstore.ErrBatchNotFound) {
			return NewNotFoundError("batch", id)
		}
		return NewInternalError("failed to load batch", err)
	}

	return c.JSON(http.StatusOK, batch)
}
