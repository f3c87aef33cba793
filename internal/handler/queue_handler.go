package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atelier-labs/commission-api/internal/dto"
	"github.com/atelier-labs/commission-api/internal/service"
	appErrors "github.com/atelier-labs/commission-api/pkg/errors"
	"github.com/atelier-labs/commission-api/pkg/response"
)

// QueueHandler exposes artist queue views and capacity settings.
type QueueHandler struct {
	queue    *service.QueueService
	receipts *service.ReceiptService
}

// NewQueueHandler constructs a new QueueHandler.
func NewQueueHandler(queue *service.QueueService, receipts *service.ReceiptService) *QueueHandler {
	return &QueueHandler{queue: queue, receipts: receipts}
}

// Snapshot godoc
// @Summary Get an artist's queue snapshot
// @Tags Queue
// @Produce json
// @Param id path string true "Artist ID"
// @Success 200 {object} response.Envelope
// @Router /artists/{id}/queue [get]
func (h *QueueHandler) Snapshot(c *gin.Context) {
	snapshot, err := h.queue.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// GetSettings godoc
// @Summary Get an artist's queue settings
// @Tags Queue
// @Produce json
// @Param id path string true "Artist ID"
// @Success 200 {object} response.Envelope
// @Router /artists/{id}/queue-settings [get]
func (h *QueueHandler) GetSettings(c *gin.Context) {
	settings, err := h.queue.Settings(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// UpdateSettings godoc
// @Summary Update the caller's queue settings
// @Tags Queue
// @Accept json
// @Produce json
// @Param payload body dto.UpdateQueueSettingsInput true "Settings payload"
// @Success 200 {object} response.Envelope
// @Router /queue-settings [put]
func (h *QueueHandler) UpdateSettings(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var input dto.UpdateQueueSettingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}

	settings, err := h.queue.UpdateSettings(c.Request.Context(), claims.ActorID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Roster godoc
// @Summary Download the caller's queue roster CSV
// @Tags Queue
// @Produce text/csv
// @Success 200 {file} binary
// @Router /queue-roster [get]
func (h *QueueHandler) Roster(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	data, err := h.receipts.QueueRosterCSV(c.Request.Context(), claims.ActorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="queue-roster.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}
