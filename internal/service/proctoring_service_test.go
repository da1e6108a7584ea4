package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/leave-assessment/internal/config"
	"github.com/stemsi/leave-assessment/internal/lock"
	"github.com/stemsi/leave-assessment/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type proctorHarness struct {
	svc       *ProctoringService
	attempts  *memAttemptStore
	leaves    *memLeaveStore
	publisher *recordingPublisher
}

func newProctorHarness(settings model.Settings) *proctorHarness {
	h := &proctorHarness{
		attempts:  newMemAttemptStore(),
		leaves:    newMemLeaveStore(),
		publisher: &recordingPublisher{},
	}
	h.svc = NewProctoringService(h.attempts, h.leaves, lock.NewMemoryLocker(), time.Second,
		staticSettings{settings}, memTx{}, h.publisher, nil, nopLog)
	return h
}

// openAttempt stores an in-progress attempt with a perfect score of 10/10.
func (h *proctorHarness) openAttempt(t *testing.T) *model.TestAttempt {
	t.Helper()
	leave := &model.Leave{StudentID: studentID}
	require.NoError(t, h.leaves.Create(context.Background(), leave))

	qid := uuid.New()
	a := &model.TestAttempt{
		StudentID:    studentID,
		LeaveID:      leave.ID,
		Questions:    []model.AttemptQuestion{{QuestionID: qid, Type: model.QuestionTypeMCQ, Round: 1, Points: 10}},
		CurrentRound: 1,
		MaxScore:     10,
		Status:       model.AttemptInProgress,
		StartTime:    time.Now(),
		TimeLimit:    30,
	}
	a.AddResponse(model.Response{QuestionID: qid, IsCorrect: true, Score: 10}, 1)
	h.attempts.put(a)
	return a
}

func violation(tp model.ViolationType) model.RecordViolationRequest {
	return model.RecordViolationRequest{Type: tp, Detail: "detected"}
}

func TestWarningTier(t *testing.T) {
	tests := []struct {
		count, max int
		want       WarningLevel
	}{
		{0, 5, WarningNormal},
		{1, 5, WarningNormal},
		{2, 5, WarningWarning},
		{3, 5, WarningCritical},
		{5, 5, WarningCritical},
		{2, 10, WarningNormal},
		{3, 10, WarningWarning},
		{5, 10, WarningWarning},
		{6, 10, WarningCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WarningTier(tt.count, tt.max), "count=%d max=%d", tt.count, tt.max)
	}
}

func TestRecordViolationAccruesPenalty(t *testing.T) {
	h := newProctorHarness(model.DefaultSettings())
	a := h.openAttempt(t)
	ctx := context.Background()

	first := ClientInfo{IPAddress: "10.0.0.1", UserAgent: "Firefox"}
	later := ClientInfo{IPAddress: "10.0.0.9", UserAgent: "Chrome"}

	out, err := h.svc.RecordViolation(ctx, a.ID, studentID, violation(model.ViolationTabSwitch), first)
	require.NoError(t, err)
	assert.Equal(t, 1, out.ViolationCount)
	assert.Equal(t, 5.0, out.ViolationPenalty)
	assert.Equal(t, WarningNormal, out.WarningLevel)

	for i := 0; i < 2; i++ {
		out, err = h.svc.RecordViolation(ctx, a.ID, studentID, violation(model.ViolationCopyPaste), later)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, out.ViolationCount)
	assert.Equal(t, 15.0, out.ViolationPenalty)
	assert.Equal(t, WarningCritical, out.WarningLevel)
	assert.False(t, out.AutoSubmitted)
	assert.Equal(t, model.AttemptInProgress, out.Status)

	stored := h.attempts.get(a.ID)
	assert.Equal(t, "10.0.0.1", stored.IPAddress)
	assert.Equal(t, "Firefox", stored.UserAgent)
	assert.Len(t, stored.Violations, 3)
	assert.Empty(t, h.leaves.recorded())

	require.Equal(t, 3, h.publisher.count())
	assert.Equal(t, config.CacheKey.AttemptProctorChannel(a.ID.String()), h.publisher.events[0].Channel)
}

func TestRecordViolationAutoSubmits(t *testing.T) {
	h := newProctorHarness(model.DefaultSettings())
	a := h.openAttempt(t)
	ctx := context.Background()

	var out *ViolationOutcome
	var err error
	for i := 0; i < 5; i++ {
		out, err = h.svc.RecordViolation(ctx, a.ID, studentID, violation(model.ViolationDevtools), ClientInfo{})
		require.NoError(t, err)
	}

	assert.True(t, out.AutoSubmitted)
	assert.Equal(t, model.AttemptAutoSubmitted, out.Status)
	assert.Equal(t, 75.0, out.Percentage)
	assert.Equal(t, model.TestResultPass, out.Result)

	stored := h.attempts.get(a.ID)
	assert.Equal(t, model.AttemptAutoSubmitted, stored.Status)
	assert.NotNil(t, stored.EndTime)
	assert.Equal(t, []recordedResult{{a.LeaveID, 75, model.TestResultPass}}, h.leaves.recorded())

	_, err = h.svc.RecordViolation(ctx, a.ID, studentID, violation(model.ViolationDevtools), ClientInfo{})
	assert.ErrorIs(t, err, ErrAttemptClosed)
	assert.Equal(t, 5, h.attempts.get(a.ID).ViolationCount)
}

func TestRecordViolationWithoutAutoSubmit(t *testing.T) {
	settings := model.DefaultSettings()
	settings.AutoSubmitOnViolation = false
	h := newProctorHarness(settings)
	a := h.openAttempt(t)

	var out *ViolationOutcome
	for i := 0; i < 7; i++ {
		var err error
		out, err = h.svc.RecordViolation(context.Background(), a.ID, studentID, violation(model.ViolationWindowBlur), ClientInfo{})
		require.NoError(t, err)
	}
	assert.False(t, out.AutoSubmitted)
	assert.Equal(t, 7, out.ViolationCount)
	assert.Equal(t, 35.0, out.ViolationPenalty)
	assert.Equal(t, model.AttemptInProgress, out.Status)
}

func TestRecordViolationRejections(t *testing.T) {
	h := newProctorHarness(model.DefaultSettings())
	a := h.openAttempt(t)
	ctx := context.Background()

	_, err := h.svc.RecordViolation(ctx, a.ID, studentID, violation("screenshot"), ClientInfo{})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = h.svc.RecordViolation(ctx, a.ID, studentID+1, violation(model.ViolationTabSwitch), ClientInfo{})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = h.svc.RecordViolation(ctx, uuid.New(), studentID, violation(model.ViolationTabSwitch), ClientInfo{})
	assert.ErrorIs(t, err, ErrAttemptNotFound)

	assert.Zero(t, h.attempts.get(a.ID).ViolationCount)
}

func TestConcurrentViolationsAreNotLost(t *testing.T) {
	settings := model.DefaultSettings()
	settings.MaxViolations = 100
	h := newProctorHarness(settings)
	a := h.openAttempt(t)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.RecordViolation(context.Background(), a.ID, studentID, violation(model.ViolationRightClick), ClientInfo{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored := h.attempts.get(a.ID)
	assert.Equal(t, n, stored.ViolationCount)
	assert.Len(t, stored.Violations, n)
	assert.Equal(t, float64(n)*settings.ViolationPenaltyPercent, stored.ViolationPenalty)
}
