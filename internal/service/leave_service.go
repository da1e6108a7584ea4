package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/model"
	"github.com/stemsi/leave-assessment/internal/repository"
)

const (
	dateLayout = "2006-01-02"

	defaultLeavePageSize = 50
)

// ApplyLeaveResult is returned when a leave request is accepted.
type ApplyLeaveResult struct {
	Leave     *model.Leave       `json:"leave"`
	Attempt   *model.TestAttempt `json:"test"`
	LeaveDays int                `json:"leave_days"`
}

// LeaveService handles leave intake: every request gets a qualification
// test composed for its duration and subjects.
type LeaveService struct {
	leaves   LeaveStore
	attempts AttemptStore
	composer *TestComposer
	subjects SubjectCatalog
	settings SettingsProvider
	tx       Transactor
	log      zerolog.Logger
	now      func() time.Time
}

// NewLeaveService creates a LeaveService.
func NewLeaveService(
	leaves LeaveStore,
	attempts AttemptStore,
	composer *TestComposer,
	subjects SubjectCatalog,
	settings SettingsProvider,
	tx Transactor,
	log zerolog.Logger,
) *LeaveService {
	return &LeaveService{
		leaves:   leaves,
		attempts: attempts,
		composer: composer,
		subjects: subjects,
		settings: settings,
		tx:       tx,
		log:      log.With().Str("component", "leave_service").Logger(),
		now:      time.Now,
	}
}

// LeaveDurationDays counts the calendar days covered by [start, end].
func LeaveDurationDays(start, end time.Time) int {
	return int(math.Ceil(end.Sub(start).Hours()/24)) + 1
}

// Apply validates a leave request, composes its test and stores both.
func (s *LeaveService) Apply(ctx context.Context, studentID int, req model.ApplyLeaveRequest) (*ApplyLeaveResult, error) {
	start, end, subjects, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	days := LeaveDurationDays(start, end)
	composed, err := s.composer.ComposeTest(ctx, days, subjects, settings)
	if err != nil {
		return nil, fmt.Errorf("compose test: %w", err)
	}

	leave := &model.Leave{
		StudentID:    studentID,
		Reason:       strings.TrimSpace(req.Reason),
		StartDate:    start,
		EndDate:      end,
		Subjects:     subjects,
		Status:       model.LeavePending,
		TestRequired: true,
		TestResult:   model.TestResultPending,
	}
	attempt := &model.TestAttempt{
		StudentID:    studentID,
		Questions:    composed.Questions,
		CurrentRound: 1,
		MaxScore:     composed.MaxScore,
		Status:       model.AttemptInProgress,
		StartTime:    s.now(),
		TimeLimit:    composed.TimeLimit,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.leaves.Create(ctx, leave); err != nil {
			return fmt.Errorf("create leave: %w", err)
		}
		attempt.LeaveID = leave.ID
		if err := s.attempts.Create(ctx, attempt); err != nil {
			return fmt.Errorf("create attempt: %w", err)
		}
		if err := s.leaves.AttachAttempt(ctx, leave.ID, attempt.ID); err != nil {
			return fmt.Errorf("attach attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	leave.Status = model.LeaveTestAssigned
	leave.TestAttemptID = &attempt.ID

	s.log.Info().
		Str("leave_id", leave.ID.String()).
		Str("attempt_id", attempt.ID.String()).
		Int("student_id", studentID).
		Int("days", days).
		Int("questions", len(composed.Questions)).
		Int("mcq_requested", composed.MCQRequested).
		Int("coding_requested", composed.CodingRequested).
		Msg("Leave request submitted, test assigned")

	return &ApplyLeaveResult{Leave: leave, Attempt: attempt, LeaveDays: days}, nil
}

// ListMine returns the student's leave requests.
func (s *LeaveService) ListMine(ctx context.Context, studentID int) ([]model.Leave, error) {
	leaves, err := s.leaves.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list leaves: %w", err)
	}
	if leaves == nil {
		leaves = []model.Leave{}
	}
	return leaves, nil
}

// Get returns one leave request. Students may only read their own.
func (s *LeaveService) Get(ctx context.Context, leaveID uuid.UUID, studentID int, isAdmin bool) (*model.Leave, error) {
	leave, err := s.leaves.FindByID(ctx, leaveID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLeaveNotFound
		}
		return nil, fmt.Errorf("find leave: %w", err)
	}
	if !isAdmin && leave.StudentID != studentID {
		return nil, ErrForbidden
	}
	return leave, nil
}

// ListAll returns every leave request matching filter, for staff review.
func (s *LeaveService) ListAll(ctx context.Context, filter model.LeaveFilter) ([]model.Leave, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLeavePageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	leaves, err := s.leaves.ListAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list all leaves: %w", err)
	}
	if leaves == nil {
		leaves = []model.Leave{}
	}
	return leaves, nil
}

// Subjects lists the subjects a leave request can name.
func (s *LeaveService) Subjects(ctx context.Context) ([]model.SubjectSummary, error) {
	subjects, err := s.subjects.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	if subjects == nil {
		subjects = []model.SubjectSummary{}
	}
	return subjects, nil
}

func (s *LeaveService) validate(req model.ApplyLeaveRequest) (time.Time, time.Time, []string, error) {
	fields := map[string]string{}

	if strings.TrimSpace(req.Reason) == "" {
		fields["reason"] = "reason is required"
	}

	start, errStart := time.ParseInLocation(dateLayout, req.StartDate, time.UTC)
	if errStart != nil {
		fields["start_date"] = "start_date must use the YYYY-MM-DD format"
	}
	end, errEnd := time.ParseInLocation(dateLayout, req.EndDate, time.UTC)
	if errEnd != nil {
		fields["end_date"] = "end_date must use the YYYY-MM-DD format"
	}
	if errStart == nil && errEnd == nil {
		now := s.now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if start.Before(today) {
			fields["start_date"] = "start_date cannot be in the past"
		}
		if end.Before(start) {
			fields["end_date"] = "end_date must not be before start_date"
		}
	}

	subjects := make([]string, 0, len(req.Subjects))
	seen := make(map[string]bool, len(req.Subjects))
	for _, subj := range req.Subjects {
		subj = strings.TrimSpace(subj)
		if subj == "" || seen[subj] {
			continue
		}
		seen[subj] = true
		subjects = append(subjects, subj)
	}
	if len(subjects) == 0 {
		fields["subjects"] = "at least one subject is required"
	}

	if len(fields) > 0 {
		return time.Time{}, time.Time{}, nil, &ValidationError{Fields: fields}
	}
	return start, end, subjects, nil
}
