package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/service"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

type timetableSolverMock struct {
	submitted dto.SolveTimetableRequest
	applied   dto.ApplySolveRequest
	format    string
	jobs      map[string]*dto.SolveJob
	err       error
}

func (m *timetableSolverMock) Submit(ctx context.Context, req dto.SolveTimetableRequest) (*dto.SolveJob, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.submitted = req
	return &dto.SolveJob{ID: "job-1", ScheduleID: req.ScheduleID, Status: dto.SolveJobQueued}, nil
}

func (m *timetableSolverMock) Get(ctx context.Context, jobID string) (*dto.SolveJob, error) {
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return job, nil
}

func (m *timetableSolverMock) Cancel(ctx context.Context, jobID string) (*dto.SolveJob, error) {
	job, err := m.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job.Status = dto.SolveJobCancelled
	return job, nil
}

func (m *timetableSolverMock) Export(ctx context.Context, jobID, format string) (*service.ExportFile, error) {
	m.format = format
	return &service.ExportFile{Filename: "timetable-s1.csv", ContentType: "text/csv", Body: []byte("day,start\n")}, nil
}

func (m *timetableSolverMock) Apply(ctx context.Context, jobID string, req dto.ApplySolveRequest) (*dto.SolveJob, error) {
	m.applied = req
	if m.err != nil {
		return nil, m.err
	}
	return m.Get(ctx, jobID)
}

func timetableRouter(mock *timetableSolverMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Register(r, "/api/v1", Handlers{Timetable: &TimetableHandler{service: mock, basePath: "/api/v1"}})
	return r
}

func serve(r *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTimetableSubmitAccepted(t *testing.T) {
	mock := &timetableSolverMock{}
	r := timetableRouter(mock)

	payload := []byte(`{
		"schedule_id": "s1",
		"requirements": [{"id": "math-10a", "class_id": "10a", "subject_id": "math", "teacher_id": "t1", "lessons_per_week": 2}],
		"grid": [{"day": "MONDAY", "start": "07:00", "end": "07:45"}],
		"time_budget_ms": 500,
		"seed": 42
	}`)
	w := serve(r, http.MethodPost, "/api/v1/timetables/solve", payload)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "/api/v1/timetables/solve/job-1", w.Header().Get("Location"))
	assert.Equal(t, "s1", mock.submitted.ScheduleID)
	assert.Equal(t, int64(42), mock.submitted.Seed)
	require.Len(t, mock.submitted.Grid, 1)
	assert.Equal(t, models.Monday, mock.submitted.Grid[0].Day)
	assert.Equal(t, models.NewTimeOfDay(7, 45), mock.submitted.Grid[0].End)
}

func TestTimetableSubmitInvalidJSON(t *testing.T) {
	r := timetableRouter(&timetableSolverMock{})
	w := serve(r, http.MethodPost, "/api/v1/timetables/solve", []byte(`{"grid":`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestTimetableSubmitQueueFull(t *testing.T) {
	r := timetableRouter(&timetableSolverMock{err: appErrors.ErrTooManyRequests})
	w := serve(r, http.MethodPost, "/api/v1/timetables/solve", []byte(`{}`))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestTimetableGetAndCancel(t *testing.T) {
	mock := &timetableSolverMock{jobs: map[string]*dto.SolveJob{"job-1": {ID: "job-1", Status: dto.SolveJobRunning}}}
	r := timetableRouter(mock)

	w := serve(r, http.MethodGet, "/api/v1/timetables/solve/job-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data dto.SolveJob `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, dto.SolveJobRunning, body.Data.Status)

	w = serve(r, http.MethodDelete, "/api/v1/timetables/solve/job-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(dto.SolveJobCancelled))

	w = serve(r, http.MethodGet, "/api/v1/timetables/solve/job-9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableExport(t *testing.T) {
	mock := &timetableSolverMock{}
	r := timetableRouter(mock)

	w := serve(r, http.MethodGet, "/api/v1/timetables/solve/job-1/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", mock.format)
	assert.Equal(t, `attachment; filename="timetable-s1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "day,start\n", w.Body.String())

	serve(r, http.MethodGet, "/api/v1/timetables/solve/job-1/export?format=pdf", nil)
	assert.Equal(t, "pdf", mock.format)
}

func TestTimetableApply(t *testing.T) {
	mock := &timetableSolverMock{jobs: map[string]*dto.SolveJob{"job-1": {ID: "job-1", Status: dto.SolveJobTimedOut}}}
	r := timetableRouter(mock)

	w := serve(r, http.MethodPost, "/api/v1/timetables/solve/job-1/apply", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, mock.applied.AllowInfeasible)

	w = serve(r, http.MethodPost, "/api/v1/timetables/solve/job-1/apply", []byte(`{"allow_infeasible": true}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mock.applied.AllowInfeasible)
}

func TestTimetableApplyConflict(t *testing.T) {
	conflictErr := &models.ScheduleConflictError{
		Message:   "solution is infeasible",
		Conflicts: []models.Conflict{{Kind: models.ConflictTeacher, Message: "teacher t1 double booked"}},
	}
	mock := &timetableSolverMock{err: appErrors.Wrap(conflictErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflictErr.Message)}
	r := timetableRouter(mock)

	w := serve(r, http.MethodPost, "/api/v1/timetables/solve/job-1/apply", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), string(models.ConflictTeacher))
}
