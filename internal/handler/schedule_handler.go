package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/service"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
	"github.com/noah-isme/sma-timetable/pkg/response"
)

type scheduleEditor interface {
	Check(ctx context.Context, scheduleID string, req dto.ScheduleEntryRequest) (*dto.CheckEntryResponse, error)
	CreateEntry(ctx context.Context, scheduleID string, req dto.ScheduleEntryRequest) (*models.ScheduleEntry, error)
	UpdateEntry(ctx context.Context, scheduleID, entryID string, req dto.ScheduleEntryRequest) (*models.ScheduleEntry, error)
	DeleteEntry(ctx context.Context, scheduleID, entryID string) error
}

// ScheduleHandler manages manual edits to a schedule.
type ScheduleHandler struct {
	service scheduleEditor
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

func bindEntry(c *gin.Context) (dto.ScheduleEntryRequest, bool) {
	var req dto.ScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule entry payload"))
		return req, false
	}
	return req, true
}

// Check godoc
// @Summary Validate a placement without saving it
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.ScheduleEntryRequest true "Candidate entry"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/entries/check [post]
func (h *ScheduleHandler) Check(c *gin.Context) {
	req, ok := bindEntry(c)
	if !ok {
		return
	}
	res, err := h.service.Check(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// CreateEntry godoc
// @Summary Add an entry to a schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.ScheduleEntryRequest true "Entry"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/entries [post]
func (h *ScheduleHandler) CreateEntry(c *gin.Context) {
	req, ok := bindEntry(c)
	if !ok {
		return
	}
	entry, err := h.service.CreateEntry(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// UpdateEntry godoc
// @Summary Move or reassign a schedule entry
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param entryId path string true "Entry ID"
// @Param payload body dto.ScheduleEntryRequest true "Entry"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/entries/{entryId} [put]
func (h *ScheduleHandler) UpdateEntry(c *gin.Context) {
	req, ok := bindEntry(c)
	if !ok {
		return
	}
	entry, err := h.service.UpdateEntry(c.Request.Context(), c.Param("id"), c.Param("entryId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry)
}

// DeleteEntry godoc
// @Summary Remove a schedule entry
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Param entryId path string true "Entry ID"
// @Success 204
// @Router /schedules/{id}/entries/{entryId} [delete]
func (h *ScheduleHandler) DeleteEntry(c *gin.Context) {
	if err := h.service.DeleteEntry(c.Request.Context(), c.Param("id"), c.Param("entryId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
