package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/model"
	"github.com/stemsi/leave-assessment/internal/repository"
	"github.com/stretchr/testify/mock"
)

// ─── Transactions ───────────────────────────────────────────────────────────

type txKey struct{}

// memTx runs fn and replays the undo journal of the stores when fn fails.
type memTx struct{}

type txJournal struct {
	undo []func()
}

func (memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txJournal); ok {
		return fn(ctx)
	}
	j := &txJournal{}
	if err := fn(context.WithValue(ctx, txKey{}, j)); err != nil {
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		return err
	}
	return nil
}

func onRollback(ctx context.Context, fn func()) {
	if j, ok := ctx.Value(txKey{}).(*txJournal); ok {
		j.undo = append(j.undo, fn)
	}
}

// ─── Attempts ───────────────────────────────────────────────────────────────

type memAttemptStore struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*model.TestAttempt
	answered map[[2]uuid.UUID]bool
	updates  int
}

func newMemAttemptStore() *memAttemptStore {
	return &memAttemptStore{
		attempts: make(map[uuid.UUID]*model.TestAttempt),
		answered: make(map[[2]uuid.UUID]bool),
	}
}

func cloneAttempt(a *model.TestAttempt) *model.TestAttempt {
	out := *a
	out.Questions = slices.Clone(a.Questions)
	out.Responses = slices.Clone(a.Responses)
	out.Violations = slices.Clone(a.Violations)
	if a.EndTime != nil {
		end := *a.EndTime
		out.EndTime = &end
	}
	return &out
}

func (s *memAttemptStore) Create(ctx context.Context, a *model.TestAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = uuid.New()
	a.Version = 1
	s.attempts[a.ID] = cloneAttempt(a)
	onRollback(ctx, func() {
		s.mu.Lock()
		delete(s.attempts, a.ID)
		s.mu.Unlock()
	})
	return nil
}

// put stores a directly, bypassing the version check.
func (s *memAttemptStore) put(a *model.TestAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Version == 0 {
		a.Version = 1
	}
	for _, r := range a.Responses {
		s.answered[[2]uuid.UUID{a.ID, r.QuestionID}] = true
	}
	s.attempts[a.ID] = cloneAttempt(a)
}

func (s *memAttemptStore) get(id uuid.UUID) *model.TestAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAttempt(s.attempts[id])
}

func (s *memAttemptStore) FindByID(_ context.Context, id uuid.UUID) (*model.TestAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAttempt(a), nil
}

func (s *memAttemptStore) FindByLeaveID(_ context.Context, leaveID uuid.UUID) (*model.TestAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts {
		if a.LeaveID == leaveID {
			return cloneAttempt(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memAttemptStore) InsertResponse(ctx context.Context, attemptID uuid.UUID, resp *model.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uuid.UUID{attemptID, resp.QuestionID}
	if s.answered[key] {
		return repository.ErrDuplicate
	}
	s.answered[key] = true
	onRollback(ctx, func() {
		s.mu.Lock()
		delete(s.answered, key)
		s.mu.Unlock()
	})
	return nil
}

func (s *memAttemptStore) InsertViolation(context.Context, uuid.UUID, *model.Violation) error {
	return nil
}

func (s *memAttemptStore) Update(ctx context.Context, a *model.TestAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.attempts[a.ID]
	if !ok || stored.Version != a.Version {
		return repository.ErrVersionConflict
	}
	s.updates++
	a.Version++
	a.UpdatedAt = time.Now()
	s.attempts[a.ID] = cloneAttempt(a)
	onRollback(ctx, func() {
		s.mu.Lock()
		s.attempts[a.ID] = stored
		s.mu.Unlock()
	})
	return nil
}

func (s *memAttemptStore) ListOverdue(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for id, a := range s.attempts {
		if !a.Status.IsTerminal() && a.Deadline().Before(now) && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ─── Leaves ─────────────────────────────────────────────────────────────────

type recordedResult struct {
	LeaveID    uuid.UUID
	Percentage float64
	Result     model.TestResult
}

type memLeaveStore struct {
	mu      sync.Mutex
	leaves  map[uuid.UUID]*model.Leave
	results []recordedResult
	failRec error

	lastFilter model.LeaveFilter
}

func newMemLeaveStore() *memLeaveStore {
	return &memLeaveStore{leaves: make(map[uuid.UUID]*model.Leave)}
}

func (s *memLeaveStore) Create(ctx context.Context, l *model.Leave) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = uuid.New()
	cp := *l
	s.leaves[l.ID] = &cp
	onRollback(ctx, func() {
		s.mu.Lock()
		delete(s.leaves, l.ID)
		s.mu.Unlock()
	})
	return nil
}

func (s *memLeaveStore) AttachAttempt(_ context.Context, leaveID, attemptID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leaves[leaveID]
	if !ok {
		return repository.ErrNotFound
	}
	l.TestAttemptID = &attemptID
	l.Status = model.LeaveTestAssigned
	return nil
}

func (s *memLeaveStore) RecordResult(ctx context.Context, leaveID uuid.UUID, percentage float64, result model.TestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRec != nil {
		return s.failRec
	}
	n := len(s.results)
	s.results = append(s.results, recordedResult{leaveID, percentage, result})
	if l, ok := s.leaves[leaveID]; ok {
		l.Status = model.LeaveTestCompleted
		l.TestScore = percentage
		l.TestResult = result
	}
	onRollback(ctx, func() {
		s.mu.Lock()
		s.results = s.results[:n]
		s.mu.Unlock()
	})
	return nil
}

func (s *memLeaveStore) FindByID(_ context.Context, id uuid.UUID) (*model.Leave, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leaves[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *memLeaveStore) ListByStudent(_ context.Context, studentID int) ([]model.Leave, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Leave
	for _, l := range s.leaves {
		if l.StudentID == studentID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *memLeaveStore) ListAll(_ context.Context, f model.LeaveFilter) ([]model.Leave, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilter = f
	var out []model.Leave
	for _, l := range s.leaves {
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.TestResult != "" && l.TestResult != f.TestResult {
			continue
		}
		if f.StudentID != 0 && l.StudentID != f.StudentID {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (s *memLeaveStore) recorded() []recordedResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.results)
}

// ─── Question bank ──────────────────────────────────────────────────────────

// memBank samples deterministically in insertion order.
type memBank struct {
	questions []model.Question
	err       error
}

func (b *memBank) Sample(_ context.Context, f model.QuestionFilter, count int) ([]model.Question, error) {
	if b.err != nil {
		return nil, b.err
	}
	var out []model.Question
	for _, q := range b.questions {
		if len(out) == count {
			break
		}
		if !q.IsActive || q.Type != f.Type || !slices.Contains(f.Subjects, q.Subject) {
			continue
		}
		if f.Difficulty != "" && q.Difficulty != f.Difficulty {
			continue
		}
		if slices.Contains(f.ExcludeIDs, q.ID) {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (b *memBank) FindByID(_ context.Context, id uuid.UUID) (*model.Question, error) {
	for i := range b.questions {
		if b.questions[i].ID == id {
			q := b.questions[i]
			return &q, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (b *memBank) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	var out []model.Question
	for _, q := range b.questions {
		if slices.Contains(ids, q.ID) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (b *memBank) ListSubjects(context.Context) ([]model.SubjectSummary, error) {
	if b.err != nil {
		return nil, b.err
	}
	var out []model.SubjectSummary
	index := map[string]int{}
	for _, q := range b.questions {
		if !q.IsActive {
			continue
		}
		i, ok := index[q.Subject]
		if !ok {
			i = len(out)
			index[q.Subject] = i
			out = append(out, model.SubjectSummary{Subject: q.Subject})
		}
		if q.Type == model.QuestionTypeCoding {
			out[i].CodingCount++
		} else {
			out[i].MCQCount++
		}
	}
	return out, nil
}

func mcq(subject string, difficulty model.Difficulty, points, correct int) model.Question {
	opts := make([]model.Option, 4)
	for i := range opts {
		opts[i] = model.Option{Text: string(rune('A' + i)), IsCorrect: i == correct}
	}
	return model.Question{
		ID:         uuid.New(),
		Type:       model.QuestionTypeMCQ,
		Subject:    subject,
		Difficulty: difficulty,
		Title:      "mcq " + string(difficulty),
		Points:     points,
		Options:    opts,
		IsActive:   true,
	}
}

func coding(subject string, difficulty model.Difficulty, points int) model.Question {
	return model.Question{
		ID:         uuid.New(),
		Type:       model.QuestionTypeCoding,
		Subject:    subject,
		Difficulty: difficulty,
		Title:      "coding " + string(difficulty),
		Points:     points,
		TestCases: []model.TestCase{
			{Input: "1", ExpectedOutput: "1"},
			{Input: "2", ExpectedOutput: "2", IsHidden: true},
		},
		IsActive: true,
	}
}

// ─── Judge ──────────────────────────────────────────────────────────────────

type mockJudge struct {
	mock.Mock
}

func (m *mockJudge) Evaluate(ctx context.Context, code, language string, cases []model.TestCase) (*model.Evaluation, error) {
	args := m.Called(ctx, code, language, cases)
	eval, _ := args.Get(0).(*model.Evaluation)
	return eval, args.Error(1)
}

// ─── Settings & events ──────────────────────────────────────────────────────

type staticSettings struct {
	settings model.Settings
}

func (s staticSettings) Current(context.Context) (model.Settings, error) {
	return s.settings, nil
}

type publishedEvent struct {
	Channel string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{channel, v})
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

var nopLog = zerolog.Nop()
