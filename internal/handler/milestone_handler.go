package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atelier-labs/commission-api/internal/dto"
	"github.com/atelier-labs/commission-api/internal/service"
	appErrors "github.com/atelier-labs/commission-api/pkg/errors"
	"github.com/atelier-labs/commission-api/pkg/response"
)

// MilestoneHandler wires the milestone progression engine to HTTP routes.
type MilestoneHandler struct {
	milestones *service.MilestoneService
}

// NewMilestoneHandler constructs a new MilestoneHandler.
func NewMilestoneHandler(milestones *service.MilestoneService) *MilestoneHandler {
	return &MilestoneHandler{milestones: milestones}
}

// List godoc
// @Summary List a commission's milestones
// @Tags Milestones
// @Produce json
// @Param id path string true "Commission ID"
// @Success 200 {object} response.Envelope
// @Router /commissions/{id}/milestones [get]
func (h *MilestoneHandler) List(c *gin.Context) {
	milestones, err := h.milestones.ListMilestones(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, milestones, nil)
}

// Complete godoc
// @Summary Submit milestone completion for approval
// @Tags Milestones
// @Accept json
// @Produce json
// @Param id path string true "Milestone ID"
// @Param payload body dto.SubmitCheckpointInput true "Checkpoint payload"
// @Success 201 {object} response.Envelope
// @Router /milestones/{id}/complete [post]
func (h *MilestoneHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var input dto.SubmitCheckpointInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid checkpoint payload"))
		return
	}

	checkpoint, err := h.milestones.CompleteMilestone(c.Request.Context(), claims.ActorID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, checkpoint)
}

// Checkpoints godoc
// @Summary List a milestone's submissions
// @Tags Milestones
// @Produce json
// @Param id path string true "Milestone ID"
// @Success 200 {object} response.Envelope
// @Router /milestones/{id}/checkpoints [get]
func (h *MilestoneHandler) Checkpoints(c *gin.Context) {
	checkpoints, err := h.milestones.ListCheckpoints(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, checkpoints, nil)
}

// Decide godoc
// @Summary Approve or reject a checkpoint
// @Tags Milestones
// @Accept json
// @Produce json
// @Param id path string true "Checkpoint ID"
// @Param payload body dto.DecideCheckpointInput true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /checkpoints/{id}/decide [post]
func (h *MilestoneHandler) Decide(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var input dto.DecideCheckpointInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	decision, err := h.milestones.DecideApproval(c.Request.Context(), claims.ActorID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decision, nil)
}
