package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/metrics"
	"github.com/stemsi/leave-assessment/internal/model"
	"github.com/stemsi/leave-assessment/internal/repository"
)

// closeAttempt moves a to the terminal status and computes its final
// percentage. The violation penalty is only deducted when applyPenalty is set.
func closeAttempt(a *model.TestAttempt, status model.AttemptStatus, now time.Time, applyPenalty bool) error {
	if err := a.TransitionTo(status); err != nil {
		return err
	}
	end := now
	a.EndTime = &end

	raw := Percentage(a.TotalScore, a.MaxScore)
	if applyPenalty {
		a.Percentage = math.Max(0, raw-a.ViolationPenalty)
	} else {
		a.Percentage = raw
	}
	return nil
}

// passFail compares a final percentage with the passing threshold.
func passFail(percentage float64, s model.Settings) model.TestResult {
	if percentage >= s.PassingPercentage {
		return model.TestResultPass
	}
	return model.TestResultFail
}

// attemptWriter persists attempt mutations and reports finished attempts.
// It is shared by every service that mutates attempts.
type attemptWriter struct {
	attempts AttemptStore
	results  ResultRecorder
	metrics  *metrics.Recorder
	log      zerolog.Logger
}

// update saves a with its version check, translating a stale version into
// ErrConflict.
func (w *attemptWriter) update(ctx context.Context, a *model.TestAttempt, op string) error {
	if err := w.attempts.Update(ctx, a); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			w.metrics.VersionConflict(op)
			return ErrConflict
		}
		return fmt.Errorf("update attempt: %w", err)
	}
	return nil
}

// finish saves a closed attempt and records the result on its leave. It
// must run inside the caller's transaction so both writes land together.
func (w *attemptWriter) finish(ctx context.Context, a *model.TestAttempt, result model.TestResult, op string) error {
	if err := w.update(ctx, a, op); err != nil {
		return err
	}
	if err := w.results.RecordResult(ctx, a.LeaveID, a.Percentage, result); err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

// finished logs and counts an attempt that reached a terminal status. Call
// it after the transaction committed.
func (w *attemptWriter) finished(a *model.TestAttempt, result model.TestResult) {
	w.metrics.AttemptFinalized(string(a.Status), string(result))
	w.log.Info().
		Str("attempt_id", a.ID.String()).
		Int("student_id", a.StudentID).
		Str("status", string(a.Status)).
		Int("total_score", a.TotalScore).
		Int("max_score", a.MaxScore).
		Float64("penalty", a.ViolationPenalty).
		Float64("percentage", a.Percentage).
		Str("result", string(result)).
		Msg("Attempt finalized")
}
