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

// BoardHandler wires the commission request board to HTTP routes.
type BoardHandler struct {
	board *service.BoardService
}

// NewBoardHandler constructs a new BoardHandler.
func NewBoardHandler(board *service.BoardService) *BoardHandler {
	return &BoardHandler{board: board}
}

// List godoc
// @Summary List commission requests
// @Tags Board
// @Produce json
// @Param status query string false "Filter by status (OPEN, AWARDED, CLOSED)"
// @Param client_id query string false "Filter by posting client"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *BoardHandler) List(c *gin.Context) {
	filter := models.RequestFilter{
		ClientID:  c.Query("client_id"),
		Status:    models.RequestStatus(c.Query("status")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	requests, total, err := h.board.ListRequests(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get a request with its bids
// @Tags Board
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *BoardHandler) Get(c *gin.Context) {
	listing, err := h.board.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// Create godoc
// @Summary Post a new commission request
// @Tags Board
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestInput true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *BoardHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var input dto.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}

	req, err := h.board.CreateRequest(c.Request.Context(), claims.ActorID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, req)
}

// Withdraw godoc
// @Summary Withdraw an open request
// @Tags Board
// @Produce json
// @Param id path string true "Request ID"
// @Success 204
// @Router /requests/{id} [delete]
func (h *BoardHandler) Withdraw(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.board.WithdrawRequest(c.Request.Context(), claims.ActorID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SubmitBid godoc
// @Summary Place a bid on an open request
// @Tags Board
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.PlaceBidInput true "Bid payload"
// @Success 201 {object} response.Envelope
// @Router /requests/{id}/bids [post]
func (h *BoardHandler) SubmitBid(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var input dto.PlaceBidInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bid payload"))
		return
	}

	bid, err := h.board.SubmitBid(c.Request.Context(), claims.ActorID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bid)
}

// AcceptBid godoc
// @Summary Accept a bid and create the commission
// @Tags Board
// @Accept json
// @Produce json
// @Param id path string true "Bid ID"
// @Param payload body dto.AcceptBidInput true "Milestone plan"
// @Success 201 {object} response.Envelope
// @Router /bids/{id}/accept [post]
func (h *BoardHandler) AcceptBid(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	// An empty body means the default single-milestone plan.
	var input dto.AcceptBidInput
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid milestone plan payload"))
		return
	}

	commission, err := h.board.AcceptBid(c.Request.Context(), claims.ActorID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, commission)
}
