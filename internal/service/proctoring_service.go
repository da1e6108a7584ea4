package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/config"
	"github.com/stemsi/leave-assessment/internal/lock"
	"github.com/stemsi/leave-assessment/internal/metrics"
	"github.com/stemsi/leave-assessment/internal/model"
	"github.com/stemsi/leave-assessment/internal/repository"
)

// WarningLevel tells the client how close an attempt is to auto-submission.
type WarningLevel string

const (
	WarningNormal   WarningLevel = "normal"
	WarningWarning  WarningLevel = "warning"
	WarningCritical WarningLevel = "critical"
)

// WarningTier classifies count against maxViolations: critical from 60%,
// warning from 30%.
func WarningTier(count, maxViolations int) WarningLevel {
	limit := float64(maxViolations)
	switch c := float64(count); {
	case c >= limit*0.6:
		return WarningCritical
	case c >= limit*0.3:
		return WarningWarning
	}
	return WarningNormal
}

// ClientInfo identifies the device reporting a violation.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// ViolationOutcome is the state of an attempt after a violation.
type ViolationOutcome struct {
	AttemptID           uuid.UUID           `json:"test_id"`
	Type                model.ViolationType `json:"type"`
	ViolationCount      int                 `json:"violation_count"`
	MaxViolations       int                 `json:"max_violations"`
	ViolationPenalty    float64             `json:"violation_penalty"`
	PenaltyPerViolation float64             `json:"penalty_per_violation"`
	WarningLevel        WarningLevel        `json:"warning_level"`
	AutoSubmitted       bool                `json:"auto_submitted"`
	Status              model.AttemptStatus `json:"status"`
	Percentage          float64             `json:"percentage,omitempty"`
	Result              model.TestResult    `json:"result,omitempty"`
	Timestamp           time.Time           `json:"timestamp"`
}

// ProctoringService records violations and auto-submits attempts that
// exceed the allowed count.
type ProctoringService struct {
	attemptWriter
	locker    lock.Locker
	lockTTL   time.Duration
	settings  SettingsProvider
	tx        Transactor
	publisher EventPublisher
	now       func() time.Time
}

// NewProctoringService creates a ProctoringService.
func NewProctoringService(
	attempts AttemptStore,
	results ResultRecorder,
	locker lock.Locker,
	lockTTL time.Duration,
	settings SettingsProvider,
	tx Transactor,
	publisher EventPublisher,
	m *metrics.Recorder,
	log zerolog.Logger,
) *ProctoringService {
	return &ProctoringService{
		attemptWriter: attemptWriter{
			attempts: attempts,
			results:  results,
			metrics:  m,
			log:      log.With().Str("component", "proctoring_service").Logger(),
		},
		locker:    locker,
		lockTTL:   lockTTL,
		settings:  settings,
		tx:        tx,
		publisher: publisher,
		now:       time.Now,
	}
}

// RecordViolation appends a violation to the attempt, recomputes the
// penalty and auto-submits when the limit is reached. Calls for the same
// attempt are serialized by a lock so no increment is lost.
func (s *ProctoringService) RecordViolation(ctx context.Context, attemptID uuid.UUID, studentID int, req model.RecordViolationRequest, client ClientInfo) (*ViolationOutcome, error) {
	if !req.Type.Valid() {
		return nil, newValidationError("type", "unknown violation type")
	}

	release, err := s.locker.Acquire(ctx, config.CacheKey.AttemptLockKey(attemptID.String()), s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("lock attempt: %w", err)
	}
	defer release()

	a, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("find attempt: %w", err)
	}
	if a.StudentID != studentID {
		return nil, ErrForbidden
	}
	if a.Status.IsTerminal() {
		return nil, ErrAttemptClosed
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	now := s.now()
	v := model.Violation{Type: req.Type, Detail: req.Detail, Timestamp: now}
	result := model.TestResultPending
	autoSubmit := false

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.attempts.InsertViolation(ctx, a.ID, &v); err != nil {
			return fmt.Errorf("insert violation: %w", err)
		}
		a.Violations = append(a.Violations, v)
		a.ViolationCount++
		a.ViolationPenalty = float64(a.ViolationCount) * settings.ViolationPenaltyPercent
		if a.ViolationCount == 1 {
			a.IPAddress = client.IPAddress
			a.UserAgent = client.UserAgent
		}

		autoSubmit = settings.AutoSubmitOnViolation && a.ViolationCount >= settings.MaxViolations
		if !autoSubmit {
			return s.update(ctx, a, "record_violation")
		}

		if err := closeAttempt(a, model.AttemptAutoSubmitted, now, true); err != nil {
			return err
		}
		result = passFail(a.Percentage, settings)
		return s.finish(ctx, a, result, "auto_submit")
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ViolationRecorded(string(req.Type))
	if autoSubmit {
		s.finished(a, result)
	}

	out := &ViolationOutcome{
		AttemptID:           a.ID,
		Type:                req.Type,
		ViolationCount:      a.ViolationCount,
		MaxViolations:       settings.MaxViolations,
		ViolationPenalty:    a.ViolationPenalty,
		PenaltyPerViolation: settings.ViolationPenaltyPercent,
		WarningLevel:        WarningTier(a.ViolationCount, settings.MaxViolations),
		AutoSubmitted:       autoSubmit,
		Status:              a.Status,
		Timestamp:           now,
	}
	if autoSubmit {
		out.Percentage = a.Percentage
		out.Result = result
	}

	s.log.Warn().
		Str("attempt_id", a.ID.String()).
		Int("student_id", a.StudentID).
		Str("type", string(req.Type)).
		Int("count", a.ViolationCount).
		Str("level", string(out.WarningLevel)).
		Msg("Proctoring violation recorded")

	// Live monitoring is best effort; the violation is already stored.
	channel := config.CacheKey.AttemptProctorChannel(a.ID.String())
	if err := s.publisher.Publish(ctx, channel, out); err != nil {
		s.log.Error().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to publish violation event")
	}
	return out, nil
}
