package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

type scheduleRepository interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	ListEntries(ctx context.Context, scheduleID string) ([]models.ScheduleEntry, error)
	FindEntry(ctx context.Context, id string) (*models.ScheduleEntry, error)
	CreateEntry(ctx context.Context, entry *models.ScheduleEntry) error
	UpdateEntry(ctx context.Context, entry *models.ScheduleEntry) error
	DeleteEntry(ctx context.Context, scheduleID, id string) error
}

type availabilityReader interface {
	ListByTeachers(ctx context.Context, teacherIDs []string) ([]models.TeacherAvailability, error)
}

type conflictRecorder interface {
	RecordConflicts(conflicts []models.Conflict)
}

// ScheduleService validates and commits manual edits to a schedule.
type ScheduleService struct {
	repo         scheduleRepository
	availability availabilityReader
	policy       timetable.AvailabilityPolicy
	metrics      conflictRecorder
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, availability availabilityReader, policy timetable.AvailabilityPolicy, metrics conflictRecorder, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		repo:         repo,
		availability: availability,
		policy:       policy,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// Check reports the conflicts req would introduce without committing anything.
func (s *ScheduleService) Check(ctx context.Context, scheduleID string, req dto.ScheduleEntryRequest) (*dto.CheckEntryResponse, error) {
	if _, err := s.loadSchedule(ctx, scheduleID); err != nil {
		return nil, err
	}
	candidate, err := s.candidate(scheduleID, "", req)
	if err != nil {
		return nil, err
	}
	conflicts, err := s.conflicts(ctx, scheduleID, candidate)
	if err != nil {
		return nil, err
	}
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	return &dto.CheckEntryResponse{Valid: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// CreateEntry commits a new entry when it introduces no conflicts.
func (s *ScheduleService) CreateEntry(ctx context.Context, scheduleID string, req dto.ScheduleEntryRequest) (*models.ScheduleEntry, error) {
	if _, err := s.loadEditable(ctx, scheduleID); err != nil {
		return nil, err
	}
	candidate, err := s.candidate(scheduleID, "", req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNoConflict(ctx, scheduleID, candidate); err != nil {
		return nil, err
	}

	if err := s.repo.CreateEntry(ctx, &candidate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule entry")
	}
	s.logger.Info("schedule entry created",
		zap.String("schedule_id", scheduleID),
		zap.String("entry_id", candidate.ID),
		zap.Stringer("interval", candidate.Interval),
	)
	return &candidate, nil
}

// UpdateEntry moves an existing entry. The entry is validated against every other
// entry of the schedule.
func (s *ScheduleService) UpdateEntry(ctx context.Context, scheduleID, entryID string, req dto.ScheduleEntryRequest) (*models.ScheduleEntry, error) {
	if _, err := s.loadEditable(ctx, scheduleID); err != nil {
		return nil, err
	}
	if _, err := s.loadEntry(ctx, scheduleID, entryID); err != nil {
		return nil, err
	}
	candidate, err := s.candidate(scheduleID, entryID, req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNoConflict(ctx, scheduleID, candidate); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateEntry(ctx, &candidate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule entry")
	}
	return &candidate, nil
}

// DeleteEntry removes an entry from an editable schedule.
func (s *ScheduleService) DeleteEntry(ctx context.Context, scheduleID, entryID string) error {
	if _, err := s.loadEditable(ctx, scheduleID); err != nil {
		return err
	}
	if _, err := s.loadEntry(ctx, scheduleID, entryID); err != nil {
		return err
	}
	if err := s.repo.DeleteEntry(ctx, scheduleID, entryID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule entry")
	}
	return nil
}

func (s *ScheduleService) candidate(scheduleID, entryID string, req dto.ScheduleEntryRequest) (models.ScheduleEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.ScheduleEntry{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule entry payload")
	}
	candidate := req.Entry(scheduleID, entryID)
	if err := candidate.Interval.Validate(); err != nil {
		return models.ScheduleEntry{}, err
	}
	return candidate, nil
}

func (s *ScheduleService) conflicts(ctx context.Context, scheduleID string, candidate models.ScheduleEntry) ([]models.Conflict, error) {
	existing, err := s.repo.ListEntries(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule entries")
	}

	var availability timetable.Availability
	if s.availability != nil {
		records, err := s.availability.ListByTeachers(ctx, []string{candidate.TeacherID})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher availability")
		}
		index, err := timetable.NewAvailabilityIndex(records, s.policy)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored teacher availability is invalid")
		}
		availability = index
	}

	conflicts, err := timetable.ValidatePlacement(scheduleID, existing, candidate, availability)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordConflicts(conflicts)
	}
	return conflicts, nil
}

func (s *ScheduleService) ensureNoConflict(ctx context.Context, scheduleID string, candidate models.ScheduleEntry) error {
	conflicts, err := s.conflicts(ctx, scheduleID, candidate)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		return nil
	}
	s.logger.Debug("schedule entry rejected",
		zap.String("schedule_id", scheduleID),
		zap.Int("conflicts", len(conflicts)),
	)
	conflictErr := &models.ScheduleConflictError{
		Message:   fmt.Sprintf("placement conflicts with %d existing constraint(s)", len(conflicts)),
		Conflicts: conflicts,
	}
	return appErrors.Wrap(conflictErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "schedule conflict detected")
}

func (s *ScheduleService) loadSchedule(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	sched, err := s.repo.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return sched, nil
}

func (s *ScheduleService) loadEditable(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	sched, err := s.loadSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !sched.Status.Editable() {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("schedule is %s and can no longer be edited", sched.Status))
	}
	return sched, nil
}

func (s *ScheduleService) loadEntry(ctx context.Context, scheduleID, entryID string) (*models.ScheduleEntry, error) {
	entry, err := s.repo.FindEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule entry")
	}
	if entry.ScheduleID != scheduleID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found")
	}
	return entry, nil
}
