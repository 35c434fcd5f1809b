package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/timetable"
	"github.com/noah-isme/sma-timetable/pkg/config"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
	"github.com/noah-isme/sma-timetable/pkg/export"
	"github.com/noah-isme/sma-timetable/pkg/jobs"
)

const solveJobType = "timetable.solve"

type requirementReader interface {
	ListByTerm(ctx context.Context, termID string) ([]models.LessonRequirement, error)
}

type classroomReader interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.Classroom, error)
}

type scheduleWriter interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	ReplaceEntries(ctx context.Context, scheduleID string, entries []models.ScheduleEntry) error
}

type jobCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type solveMetrics interface {
	ObserveSolve(status string, result *timetable.Result, duration time.Duration)
	RecordCacheLookup(hit bool)
	SetQueueDepth(depth int)
}

// TimetableSources are the optional stores solve inputs are loaded from. Nil
// sources require the caller to send the data inline.
type TimetableSources struct {
	Requirements requirementReader
	Classrooms   classroomReader
	Availability availabilityReader
	Schedules    scheduleWriter
}

// TimetableServiceConfig tunes the solve pipeline.
type TimetableServiceConfig struct {
	Scheduler       config.SchedulerConfig
	CleanupInterval time.Duration
	// Clock drives the solver budget; nil means the wall clock.
	Clock timetable.Clock
}

// ExportFile is a rendered timetable ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

type solveTask struct {
	problem *timetable.Problem
	opts    timetable.Options
}

// TimetableService runs timetable solves as background jobs.
type TimetableService struct {
	sources   TimetableSources
	cache     jobCache
	metrics   solveMetrics
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableServiceConfig

	queue *jobs.Queue
	store *solveJobStore
	stop  context.CancelFunc
}

// NewTimetableService constructs the service and its worker queue. Call Start before
// submitting jobs.
func NewTimetableService(sources TimetableSources, cache jobCache, metrics solveMetrics, validate *validator.Validate, logger *zap.Logger, cfg TimetableServiceConfig) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Scheduler.ResultTTL <= 0 {
		cfg.Scheduler.ResultTTL = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	svc := &TimetableService{
		sources:   sources,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		store:     newSolveJobStore(),
	}
	svc.queue = jobs.NewQueue("timetable-solve", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Scheduler.Workers,
		BufferSize: cfg.Scheduler.QueueSize,
		Logger:     logger,
	})
	return svc
}

// Start launches the solve workers and the expiry sweeper.
func (s *TimetableService) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.stop = cancel
	s.queue.Start(ctx)
	go s.sweep(ctx)
}

// Stop cancels running solves and waits for the workers to exit.
func (s *TimetableService) Stop() {
	s.queue.Stop()
	if s.stop != nil {
		s.stop()
	}
}

// Submit validates req, resolves its inputs and queues a solve.
func (s *TimetableService) Submit(ctx context.Context, req dto.SolveTimetableRequest) (*dto.SolveJob, error) {
	if !s.cfg.Scheduler.Enabled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "timetable solver is disabled")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid solve payload")
	}

	problem, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	opts := s.cfg.Scheduler.Options(req.TimeBudget(), seed)
	scheduleID := req.ScheduleID
	if scheduleID == "" {
		scheduleID = uuid.NewString()
	}

	job := dto.SolveJob{
		ID:           uuid.NewString(),
		ScheduleID:   scheduleID,
		Status:       dto.SolveJobQueued,
		TimeBudgetMS: opts.TimeBudget.Milliseconds(),
		Seed:         seed,
		SubmittedAt:  time.Now().UTC(),
	}
	s.store.put(job)

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: solveJobType, Payload: solveTask{problem: problem, opts: opts}}); err != nil {
		s.store.delete(job.ID)
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Clone(appErrors.ErrTooManyRequests, "solve queue is full, retry later")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue solve job")
	}
	s.publishQueueDepth()

	s.logger.Info("timetable solve queued",
		zap.String("job_id", job.ID),
		zap.String("schedule_id", scheduleID),
		zap.Int("occurrences", problem.Len()),
		zap.Int64("budget_ms", job.TimeBudgetMS),
	)
	return &job, nil
}

// Get returns the job from memory, falling back to the shared cache.
func (s *TimetableService) Get(ctx context.Context, jobID string) (*dto.SolveJob, error) {
	if job, ok := s.store.get(jobID); ok {
		return &job, nil
	}
	if s.cache == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "solve job not found")
	}

	var job dto.SolveJob
	err := s.cache.Get(ctx, jobID, &job)
	switch {
	case err == nil:
		s.recordCacheLookup(true)
		return &job, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		s.recordCacheLookup(false)
		return nil, appErrors.Clone(appErrors.ErrNotFound, "solve job not found")
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load solve job")
	}
}

// Cancel stops a queued or running job. A running solve keeps its best timetable so far.
func (s *TimetableService) Cancel(ctx context.Context, jobID string) (*dto.SolveJob, error) {
	current, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("solve job already %s", current.Status))
	}

	now := time.Now().UTC()
	job, ok := s.store.update(jobID, func(r *solveRecord) {
		switch r.job.Status {
		case dto.SolveJobQueued:
			r.finish(dto.SolveJobCancelled, now, s.cfg.Scheduler.ResultTTL)
		case dto.SolveJobRunning:
			if r.cancel != nil {
				r.cancel()
			}
		}
	})
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "solve job not found")
	}
	if job.Status == dto.SolveJobCancelled {
		if s.metrics != nil {
			s.metrics.ObserveSolve(string(job.Status), nil, 0)
		}
		s.mirror(ctx, job)
	}
	s.logger.Info("timetable solve cancel requested", zap.String("job_id", jobID), zap.String("status", string(job.Status)))
	return &job, nil
}

// Export renders the job's timetable as csv or pdf.
func (s *TimetableService) Export(ctx context.Context, jobID, format string) (*ExportFile, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Result == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "solve job has no timetable yet")
	}
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	doc := export.Document{
		Dataset: export.TimetableDataset(job.Result.Entries, nil),
		Title:   fmt.Sprintf("Timetable %s", job.ScheduleID),
		Notes: []string{
			fmt.Sprintf("Status: %s", job.Status),
			fmt.Sprintf("Score: %s", job.Result.Score),
			fmt.Sprintf("Open conflicts: %d", len(job.Result.Conflicts)),
		},
	}
	body, err := renderer.Render(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("timetable-%s.%s", job.ScheduleID, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

// Apply replaces the entries of the job's draft schedule with the solved timetable.
func (s *TimetableService) Apply(ctx context.Context, jobID string, req dto.ApplySolveRequest) (*dto.SolveJob, error) {
	if s.sources.Schedules == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "schedule storage is not configured")
	}
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.Terminal() || job.Result == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "solve job has not finished")
	}
	if !job.Result.Score.Feasible() && !req.AllowInfeasible {
		conflictErr := &models.ScheduleConflictError{
			Message:   fmt.Sprintf("solved timetable still violates hard constraints (%s)", job.Result.Score),
			Conflicts: job.Result.Conflicts,
		}
		return nil, appErrors.Wrap(conflictErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "timetable is not feasible")
	}

	sched, err := s.sources.Schedules.FindByID(ctx, job.ScheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if sched.Status != models.ScheduleStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("schedule is %s; only drafts can be replaced", sched.Status))
	}
	if err := s.sources.Schedules.ReplaceEntries(ctx, sched.ID, job.Result.Entries); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store solved timetable")
	}

	s.logger.Info("solved timetable applied",
		zap.String("job_id", job.ID),
		zap.String("schedule_id", sched.ID),
		zap.Int("entries", len(job.Result.Entries)),
	)
	return job, nil
}

func (s *TimetableService) resolve(ctx context.Context, req dto.SolveTimetableRequest) (*timetable.Problem, error) {
	requirements := req.Requirements
	if len(requirements) == 0 && req.TermID != "" {
		if s.sources.Requirements == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "requirements must be sent inline when storage is disabled")
		}
		loaded, err := s.sources.Requirements.ListByTerm(ctx, req.TermID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson requirements")
		}
		requirements = loaded
	}

	classrooms := req.Classrooms
	if len(classrooms) == 0 && req.SchoolID != "" && s.sources.Classrooms != nil {
		loaded, err := s.sources.Classrooms.ListBySchool(ctx, req.SchoolID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
		}
		classrooms = loaded
	}

	records := req.Availability
	if records == nil && s.sources.Availability != nil {
		teacherIDs := lo.Uniq(lo.Map(requirements, func(r models.LessonRequirement, _ int) string { return r.TeacherID }))
		loaded, err := s.sources.Availability.ListByTeachers(ctx, teacherIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher availability")
		}
		records = loaded
	}

	policy := s.cfg.Scheduler.AvailabilityPolicy()
	if req.ClosedWorld != nil {
		policy = timetable.OpenWorld
		if *req.ClosedWorld {
			policy = timetable.ClosedWorld
		}
	}
	availability, err := timetable.NewAvailabilityIndex(records, policy)
	if err != nil {
		return nil, err
	}
	return timetable.NewProblem(requirements, classrooms, availability, req.Grid)
}

func (s *TimetableService) handle(ctx context.Context, job jobs.Job) error {
	defer s.publishQueueDepth()

	task, ok := job.Payload.(solveTask)
	if !ok {
		return jobs.Permanent(fmt.Errorf("solve job %s carries %T", job.ID, job.Payload))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	started := time.Now().UTC()
	current, ok := s.store.update(job.ID, func(r *solveRecord) {
		if r.job.Status != dto.SolveJobQueued {
			return
		}
		r.job.Status = dto.SolveJobRunning
		r.job.StartedAt = &started
		r.cancel = cancel
	})
	if !ok || current.Status != dto.SolveJobRunning {
		return nil
	}

	log := s.logger.With(zap.String("job_id", job.ID), zap.String("schedule_id", current.ScheduleID))
	opts := task.opts
	opts.Clock = s.cfg.Clock
	opts.Logger = log
	opts.OnImprovement = func(i timetable.Improvement) {
		s.store.update(job.ID, func(r *solveRecord) {
			r.job.Progress = &dto.SolveProgress{Iteration: i.Iteration, ElapsedMS: i.Elapsed.Milliseconds(), Score: i.Score}
		})
	}

	task.problem.Seed()
	result, err := timetable.Run(runCtx, task.problem, current.ScheduleID, opts)
	finished := time.Now().UTC()
	if err != nil {
		failed, _ := s.store.update(job.ID, func(r *solveRecord) {
			r.job.Error = err.Error()
			r.finish(dto.SolveJobFailed, finished, s.cfg.Scheduler.ResultTTL)
		})
		if s.metrics != nil {
			s.metrics.ObserveSolve(string(dto.SolveJobFailed), nil, finished.Sub(started))
		}
		s.mirror(ctx, failed)
		log.Error("timetable solve failed", zap.Error(err))
		return jobs.Permanent(err)
	}

	status := dto.SolveJobStatusOf(result.Status)
	done, _ := s.store.update(job.ID, func(r *solveRecord) {
		r.job.Result = result
		r.job.Progress = &dto.SolveProgress{Iteration: result.Iterations, ElapsedMS: result.Elapsed.Milliseconds(), Score: result.Score}
		r.finish(status, finished, s.cfg.Scheduler.ResultTTL)
	})
	if s.metrics != nil {
		s.metrics.ObserveSolve(string(status), result, finished.Sub(started))
	}
	s.mirror(ctx, done)

	log.Info("timetable solve finished",
		zap.String("status", string(status)),
		zap.Stringer("score", result.Score),
		zap.Int64("iterations", result.Iterations),
		zap.Int("conflicts", len(result.Conflicts)),
		zap.Duration("elapsed", result.Elapsed),
	)
	return nil
}

func (s *TimetableService) mirror(ctx context.Context, job dto.SolveJob) {
	if s.cache == nil {
		return
	}
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	if err := s.cache.Set(ctx, job.ID, job, s.cfg.Scheduler.ResultTTL); err != nil {
		s.logger.Warn("failed to mirror solve job", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (s *TimetableService) recordCacheLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(hit)
	}
}

func (s *TimetableService) publishQueueDepth() {
	if s.metrics != nil {
		s.metrics.SetQueueDepth(s.queue.Pending())
	}
}

func (s *TimetableService) sweep(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := s.store.purge(now); removed > 0 {
				s.logger.Debug("expired solve jobs removed", zap.Int("count", removed))
			}
		}
	}
}

type solveRecord struct {
	job     dto.SolveJob
	cancel  context.CancelFunc
	expires time.Time
}

func (r *solveRecord) finish(status dto.SolveJobStatus, at time.Time, ttl time.Duration) {
	r.job.Status = status
	r.job.FinishedAt = &at
	r.cancel = nil
	r.expires = at.Add(ttl)
}

// solveJobStore keeps jobs in memory; finished jobs carry an expiry.
type solveJobStore struct {
	mu    sync.RWMutex
	items map[string]*solveRecord
}

func newSolveJobStore() *solveJobStore {
	return &solveJobStore{items: make(map[string]*solveRecord)}
}

func (s *solveJobStore) put(job dto.SolveJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[job.ID] = &solveRecord{job: job}
}

func (s *solveJobStore) get(id string) (dto.SolveJob, bool) {
	s.mu.RLock()
	record, ok := s.items[id]
	var job dto.SolveJob
	expired := false
	if ok {
		job = record.job
		expired = !record.expires.IsZero() && time.Now().After(record.expires)
	}
	s.mu.RUnlock()
	if !ok {
		return dto.SolveJob{}, false
	}
	if expired {
		s.delete(id)
		return dto.SolveJob{}, false
	}
	return job, true
}

// update applies fn under the write lock and returns the resulting job.
func (s *solveJobStore) update(id string, fn func(*solveRecord)) (dto.SolveJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.items[id]
	if !ok {
		return dto.SolveJob{}, false
	}
	fn(record)
	return record.job, true
}

func (s *solveJobStore) delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

func (s *solveJobStore) purge(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, record := range s.items {
		if !record.expires.IsZero() && now.After(record.expires) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}
