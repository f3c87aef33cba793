package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/atelier-labs/commission-api/internal/dto"
	"github.com/atelier-labs/commission-api/internal/models"
	"github.com/atelier-labs/commission-api/internal/service"
	appErrors "github.com/atelier-labs/commission-api/pkg/errors"
	"github.com/atelier-labs/commission-api/pkg/response"
)

// CommissionHandler exposes commission lifecycle routes: reads, the artist's
// start action, cancellation, and the transition ledger.
type CommissionHandler struct {
	queue        *service.QueueService
	cancellation *service.CancellationService
	history      *service.HistoryService
	receipts     *service.ReceiptService
}

// NewCommissionHandler constructs a new CommissionHandler.
func NewCommissionHandler(queue *service.QueueService, cancellation *service.CancellationService, history *service.HistoryService, receipts *service.ReceiptService) *CommissionHandler {
	return &CommissionHandler{
		queue:        queue,
		cancellation: cancellation,
		history:      history,
		receipts:     receipts,
	}
}

// List godoc
// @Summary List commissions
// @Tags Commissions
// @Produce json
// @Param client_id query string false "Filter by client"
// @Param artist_id query string false "Filter by artist"
// @Param status query string false "Filter by status"
// @Param queue_state query string false "Filter by queue state"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /commissions [get]
func (h *CommissionHandler) List(c *gin.Context) {
	filter := models.CommissionFilter{
		ClientID:   c.Query("client_id"),
		ArtistID:   c.Query("artist_id"),
		Status:     models.CommissionStatus(c.Query("status")),
		QueueState: models.QueueState(c.Query("queue_state")),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	commissions, total, err := h.queue.ListCommissions(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, commissions, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get commission detail
// @Tags Commissions
// @Produce json
// @Param id path string true "Commission ID"
// @Success 200 {object} response.Envelope
// @Router /commissions/{id} [get]
func (h *CommissionHandler) Get(c *gin.Context) {
	commission, err := h.queue.GetCommission(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, commission, nil)
}

// Start godoc
// @Summary Start a pending commission
// @Tags Commissions
// @Produce json
// @Param id path string true "Commission ID"
// @Success 200 {object} response.Envelope
// @Router /commissions/{id}/start [post]
func (h *CommissionHandler) Start(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	commission, err := h.queue.StartCommission(c.Request.Context(), claims.ActorID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, commission, nil)
}

// CanCancel godoc
// @Summary Evaluate the cancellation policy
// @Tags Commissions
// @Produce json
// @Param id path string true "Commission ID"
// @Success 200 {object} response.Envelope
// @Router /commissions/{id}/can-cancel [get]
func (h *CommissionHandler) CanCancel(c *gin.Context) {
	check, err := h.cancellation.CanCancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, check, nil)
}

// Cancel godoc
// @Summary Cancel a commission
// @Tags Commissions
// @Accept json
// @Produce json
// @Param id path string true "Commission ID"
// @Param payload body dto.CancelCommissionInput false "Cancellation reason"
// @Success 200 {object} response.Envelope
// @Router /commissions/{id}/cancel [post]
func (h *CommissionHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var input dto.CancelCommissionInput
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancellation payload"))
		return
	}

	commission, err := h.cancellation.Cancel(c.Request.Context(), claims.ActorID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, commission, nil)
}

// History godoc
// @Summary Get the commission transition ledger
// @Tags Commissions
// @Produce json
// @Param id path string true "Commission ID"
// @Success 200 {object} response.Envelope
// @Router /commissions/{id}/history [get]
func (h *CommissionHandler) History(c *gin.Context) {
	history, err := h.history.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// Receipt godoc
// @Summary Download the commission receipt PDF
// @Tags Commissions
// @Produce application/pdf
// @Param id path string true "Commission ID"
// @Success 200 {file} binary
// @Router /commissions/{id}/receipt [get]
func (h *CommissionHandler) Receipt(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	data, err := h.receipts.CommissionReceiptPDF(c.Request.Context(), claims.ActorID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="receipt.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
