package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/leave-assessment/internal/model"
)

// QuestionBank is the read side of the question store.
type QuestionBank interface {
	// Sample returns up to count random active questions matching filter.
	Sample(ctx context.Context, filter model.QuestionFilter, count int) ([]model.Question, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
}

// CodeJudge runs a coding submission against test cases.
type CodeJudge interface {
	Evaluate(ctx context.Context, code, language string, cases []model.TestCase) (*model.Evaluation, error)
}

// AttemptStore persists test attempts. Update must fail with
// repository.ErrVersionConflict when a.Version is stale and
// InsertResponse with repository.ErrDuplicate for a second answer.
type AttemptStore interface {
	Create(ctx context.Context, a *model.TestAttempt) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TestAttempt, error)
	FindByLeaveID(ctx context.Context, leaveID uuid.UUID) (*model.TestAttempt, error)
	InsertResponse(ctx context.Context, attemptID uuid.UUID, resp *model.Response) error
	InsertViolation(ctx context.Context, attemptID uuid.UUID, v *model.Violation) error
	Update(ctx context.Context, a *model.TestAttempt) error
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// ResultRecorder receives the outcome of a finished attempt.
type ResultRecorder interface {
	RecordResult(ctx context.Context, leaveID uuid.UUID, percentage float64, result model.TestResult) error
}

// LeaveStore persists leave requests.
type LeaveStore interface {
	ResultRecorder
	Create(ctx context.Context, l *model.Leave) error
	AttachAttempt(ctx context.Context, leaveID, attemptID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Leave, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.Leave, error)
	ListAll(ctx context.Context, filter model.LeaveFilter) ([]model.Leave, error)
}

// SubjectCatalog lists the subjects the question bank can compose tests from.
type SubjectCatalog interface {
	ListSubjects(ctx context.Context) ([]model.SubjectSummary, error)
}

// SettingsProvider returns the current assessment settings snapshot.
type SettingsProvider interface {
	Current(ctx context.Context) (model.Settings, error)
}

// Transactor runs fn atomically. Stores called with the ctx passed to fn
// take part in the same transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher fans out live events.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, v any) error
}
