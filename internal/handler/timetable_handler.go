package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/service"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
	"github.com/noah-isme/sma-timetable/pkg/response"
)

type timetableSolver interface {
	Submit(ctx context.Context, req dto.SolveTimetableRequest) (*dto.SolveJob, error)
	Get(ctx context.Context, jobID string) (*dto.SolveJob, error)
	Cancel(ctx context.Context, jobID string) (*dto.SolveJob, error)
	Export(ctx context.Context, jobID, format string) (*service.ExportFile, error)
	Apply(ctx context.Context, jobID string, req dto.ApplySolveRequest) (*dto.SolveJob, error)
}

// TimetableHandler exposes the asynchronous solver endpoints.
type TimetableHandler struct {
	service  timetableSolver
	basePath string
}

// NewTimetableHandler constructs the handler. basePath prefixes the Location header of accepted jobs.
func NewTimetableHandler(svc *service.TimetableService, basePath string) *TimetableHandler {
	return &TimetableHandler{service: svc, basePath: basePath}
}

// Submit godoc
// @Summary Queue a timetable solve
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.SolveTimetableRequest true "Solve payload"
// @Success 202 {object} response.Envelope
// @Router /timetables/solve [post]
func (h *TimetableHandler) Submit(c *gin.Context) {
	var req dto.SolveTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid solve payload"))
		return
	}
	job, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job, fmt.Sprintf("%s/timetables/solve/%s", h.basePath, job.ID))
}

// Get godoc
// @Summary Fetch a solve job
// @Tags Timetables
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/solve/{jobId} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	job, err := h.service.Get(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job)
}

// Cancel godoc
// @Summary Cancel a queued or running solve
// @Tags Timetables
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/solve/{jobId} [delete]
func (h *TimetableHandler) Cancel(c *gin.Context) {
	job, err := h.service.Cancel(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job)
}

// Export godoc
// @Summary Download the best timetable of a finished solve
// @Tags Timetables
// @Produce text/csv
// @Produce application/pdf
// @Param jobId path string true "Job ID"
// @Param format query string false "csv or pdf"
// @Router /timetables/solve/{jobId}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), c.Param("jobId"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// Apply godoc
// @Summary Write a solved timetable into its draft schedule
// @Tags Timetables
// @Accept json
// @Produce json
// @Param jobId path string true "Job ID"
// @Param payload body dto.ApplySolveRequest false "Apply options"
// @Success 200 {object} response.Envelope
// @Router /timetables/solve/{jobId}/apply [post]
func (h *TimetableHandler) Apply(c *gin.Context) {
	var req dto.ApplySolveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid apply payload"))
			return
		}
	}
	job, err := h.service.Apply(c.Request.Context(), c.Param("jobId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job)
}
