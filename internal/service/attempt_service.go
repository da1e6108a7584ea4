package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/metrics"
	"github.com/stemsi/leave-assessment/internal/model"
	"github.com/stemsi/leave-assessment/internal/repository"
)

// defaultLanguage is assumed for coding answers that omit a language.
const defaultLanguage = "javascript"

// AnswerResult is returned after an accepted answer.
type AnswerResult struct {
	QuestionID  uuid.UUID         `json:"question_id"`
	IsCorrect   bool              `json:"is_correct"`
	Score       int               `json:"score"`
	TotalScore  int               `json:"total_score"`
	RoundScores model.RoundScores `json:"round_scores"`
	// Cases holds the judge verdicts for coding answers. Hidden cases only
	// carry pass/fail.
	Cases []model.CaseResult `json:"test_results,omitempty"`
}

// SubmitResult describes the outcome of submitting the current round.
type SubmitResult struct {
	AttemptID        uuid.UUID           `json:"test_id"`
	Status           model.AttemptStatus `json:"status"`
	CurrentRound     int                 `json:"current_round"`
	Advanced         bool                `json:"advanced"`
	Round1Score      int                 `json:"round1_score"`
	Round1Percentage float64             `json:"round1_percentage"`
	TotalScore       int                 `json:"total_score"`
	MaxScore         int                 `json:"max_score"`
	Percentage       float64             `json:"percentage"`
	ViolationPenalty float64             `json:"violation_penalty"`
	Result           model.TestResult    `json:"result"`
}

// PaperQuestion is a question shown to the student in the open round.
type PaperQuestion struct {
	model.QuestionForStudent
	Round    int  `json:"round"`
	Answered bool `json:"answered"`
}

// TestPaper is the student's view of an attempt.
type TestPaper struct {
	AttemptID      uuid.UUID           `json:"test_id"`
	LeaveID        uuid.UUID           `json:"leave_id"`
	Status         model.AttemptStatus `json:"status"`
	CurrentRound   int                 `json:"current_round"`
	TimeLimit      int                 `json:"time_limit"`
	StartTime      time.Time           `json:"start_time"`
	Deadline       time.Time           `json:"deadline"`
	ViolationCount int                 `json:"violation_count"`
	Questions      []PaperQuestion     `json:"questions"`
}

// AttemptService drives the attempt state machine: answers, round gating
// and finalization.
type AttemptService struct {
	attemptWriter
	leaves   LeaveStore
	bank     QuestionBank
	scorer   *Scorer
	settings SettingsProvider
	tx       Transactor
	now      func() time.Time
}

// NewAttemptService creates an AttemptService.
func NewAttemptService(
	attempts AttemptStore,
	leaves LeaveStore,
	bank QuestionBank,
	scorer *Scorer,
	settings SettingsProvider,
	tx Transactor,
	m *metrics.Recorder,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attemptWriter: attemptWriter{
			attempts: attempts,
			results:  leaves,
			metrics:  m,
			log:      log.With().Str("component", "attempt_service").Logger(),
		},
		leaves:   leaves,
		bank:     bank,
		scorer:   scorer,
		settings: settings,
		tx:       tx,
		now:      time.Now,
	}
}

// loadOwned fetches an attempt and checks it belongs to studentID.
func (s *AttemptService) loadOwned(ctx context.Context, attemptID uuid.UUID, studentID int) (*model.TestAttempt, error) {
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
	return a, nil
}

// SubmitAnswer scores and stores the answer to one question of the open
// round. A second answer to the same question is rejected even when both
// race: the response insert and the version-checked update share one
// transaction.
func (s *AttemptService) SubmitAnswer(ctx context.Context, attemptID uuid.UUID, studentID int, req model.SubmitAnswerRequest) (*AnswerResult, error) {
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		return nil, newValidationError("question_id", "must be a valid UUID")
	}

	a, err := s.loadOwned(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}
	if a.Status.IsTerminal() {
		return nil, ErrAttemptClosed
	}
	aq, ok := a.Question(questionID)
	if !ok {
		return nil, ErrUnknownQuestion
	}
	if aq.Round != a.CurrentRound {
		return nil, ErrRoundLocked
	}
	if a.HasResponse(questionID) {
		return nil, ErrDuplicateAnswer
	}

	q, err := s.bank.FindByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownQuestion
		}
		return nil, fmt.Errorf("find question: %w", err)
	}
	// Points are frozen when the attempt is composed.
	graded := *q
	graded.Points = aq.Points

	ans := Answer{SelectedOption: req.SelectedOption, Code: req.Code, Language: req.Language}
	if err := validateAnswer(&graded, &ans); err != nil {
		return nil, err
	}

	verdict := s.scorer.Score(ctx, &graded, ans)
	resp := model.Response{
		QuestionID:     questionID,
		SelectedOption: ans.SelectedOption,
		Code:           ans.Code,
		Language:       ans.Language,
		IsCorrect:      verdict.IsCorrect,
		Score:          verdict.Score,
		AnsweredAt:     s.now(),
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.attempts.InsertResponse(ctx, a.ID, &resp); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrDuplicateAnswer
			}
			return fmt.Errorf("insert response: %w", err)
		}
		a.AddResponse(resp, aq.Round)
		return s.update(ctx, a, "submit_answer")
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AnswerScored(string(graded.Type), verdict.IsCorrect)

	out := &AnswerResult{
		QuestionID:  questionID,
		IsCorrect:   verdict.IsCorrect,
		Score:       verdict.Score,
		TotalScore:  a.TotalScore,
		RoundScores: a.RoundScores,
	}
	if verdict.Evaluation != nil {
		out.Cases = verdict.Evaluation.Cases
	}
	return out, nil
}

func validateAnswer(q *model.Question, ans *Answer) error {
	if q.Type == model.QuestionTypeMCQ {
		if ans.SelectedOption == nil {
			return newValidationError("selected_option", "selected_option is required for multiple-choice questions")
		}
		ans.Code, ans.Language = "", ""
		return nil
	}

	if ans.Code == "" {
		return newValidationError("code", "code is required for coding questions")
	}
	if ans.Language == "" {
		ans.Language = defaultLanguage
	}
	ans.SelectedOption = nil
	return nil
}

// SubmitTest closes the open round. Passing round 1 unlocks round 2;
// failing it ends the attempt. Submitting round 2 finalizes the attempt
// with the violation penalty applied.
func (s *AttemptService) SubmitTest(ctx context.Context, attemptID uuid.UUID, studentID int) (*SubmitResult, error) {
	a, err := s.loadOwned(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}
	if a.Status.IsTerminal() {
		return nil, ErrAttemptClosed
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	now := s.now()
	round1Pct := Percentage(a.RoundScores.Round1, a.RoundMaxScore(1))
	result := model.TestResultPending
	advanced := false

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if a.CurrentRound == 1 {
			if round1Pct >= settings.Round1PassingPercentage {
				if err := a.TransitionTo(model.AttemptRound1Completed); err != nil {
					return err
				}
				a.CurrentRound = 2
				advanced = true
				return s.update(ctx, a, "submit_test")
			}

			// Failing round 1 ends the attempt without deducting the penalty.
			if err := closeAttempt(a, model.AttemptCompleted, now, false); err != nil {
				return err
			}
			result = model.TestResultFail
			return s.finish(ctx, a, result, "submit_test")
		}

		if err := closeAttempt(a, model.AttemptCompleted, now, true); err != nil {
			return err
		}
		result = passFail(a.Percentage, settings)
		return s.finish(ctx, a, result, "submit_test")
	})
	if err != nil {
		return nil, err
	}

	if a.Status.IsTerminal() {
		s.finished(a, result)
	} else {
		s.log.Info().
			Str("attempt_id", a.ID.String()).
			Float64("round1_percentage", round1Pct).
			Msg("Round 1 passed, round 2 unlocked")
	}

	return &SubmitResult{
		AttemptID:        a.ID,
		Status:           a.Status,
		CurrentRound:     a.CurrentRound,
		Advanced:         advanced,
		Round1Score:      a.RoundScores.Round1,
		Round1Percentage: round1Pct,
		TotalScore:       a.TotalScore,
		MaxScore:         a.MaxScore,
		Percentage:       a.Percentage,
		ViolationPenalty: a.ViolationPenalty,
		Result:           result,
	}, nil
}

// GetTestForLeave returns the open round of the attempt attached to a leave,
// without answers or hidden test cases.
func (s *AttemptService) GetTestForLeave(ctx context.Context, leaveID uuid.UUID, studentID int) (*TestPaper, error) {
	leave, err := s.leaves.FindByID(ctx, leaveID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLeaveNotFound
		}
		return nil, fmt.Errorf("find leave: %w", err)
	}
	if leave.StudentID != studentID {
		return nil, ErrForbidden
	}

	a, err := s.attempts.FindByLeaveID(ctx, leaveID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("find attempt: %w", err)
	}

	paper := &TestPaper{
		AttemptID:      a.ID,
		LeaveID:        a.LeaveID,
		Status:         a.Status,
		CurrentRound:   a.CurrentRound,
		TimeLimit:      a.TimeLimit,
		StartTime:      a.StartTime,
		Deadline:       a.Deadline(),
		ViolationCount: a.ViolationCount,
		Questions:      []PaperQuestion{},
	}
	if a.Status.IsTerminal() {
		return paper, nil
	}

	ids := a.QuestionIDs(a.CurrentRound)
	questions, err := s.bank.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	for _, aq := range a.Questions {
		if aq.Round != a.CurrentRound {
			continue
		}
		q, ok := byID[aq.QuestionID]
		if !ok {
			s.log.Warn().Str("question_id", aq.QuestionID.String()).Msg("Attempt references a missing question")
			continue
		}
		view := q.ForStudent()
		view.Points = aq.Points
		paper.Questions = append(paper.Questions, PaperQuestion{
			QuestionForStudent: view,
			Round:              aq.Round,
			Answered:           a.HasResponse(aq.QuestionID),
		})
	}
	return paper, nil
}

// GetResult returns the full attempt. Students may only read their own;
// admins may read any.
func (s *AttemptService) GetResult(ctx context.Context, attemptID uuid.UUID, studentID int, isAdmin bool) (*model.TestAttempt, error) {
	a, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("find attempt: %w", err)
	}
	if !isAdmin && a.StudentID != studentID {
		return nil, ErrForbidden
	}
	return a, nil
}

// ExpireOverdue submits open attempts whose deadline passed more than grace
// ago. Attempts changed concurrently are left for the next sweep. It returns
// how many attempts were closed.
func (s *AttemptService) ExpireOverdue(ctx context.Context, grace time.Duration, limit int) (int, error) {
	now := s.now()
	ids, err := s.attempts.ListOverdue(ctx, now.Add(-grace), limit)
	if err != nil {
		return 0, fmt.Errorf("list overdue attempts: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return 0, fmt.Errorf("load settings: %w", err)
	}

	expired := 0
	for _, id := range ids {
		a, err := s.attempts.FindByID(ctx, id)
		if err != nil {
			s.log.Error().Err(err).Str("attempt_id", id.String()).Msg("Failed to load overdue attempt")
			continue
		}
		if a.Status.IsTerminal() || now.Add(-grace).Before(a.Deadline()) {
			continue
		}

		var result model.TestResult
		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := closeAttempt(a, model.AttemptSubmitted, now, true); err != nil {
				return err
			}
			result = passFail(a.Percentage, settings)
			return s.finish(ctx, a, result, "expire")
		})
		if err != nil {
			if errors.Is(err, ErrConflict) {
				s.log.Debug().Str("attempt_id", id.String()).Msg("Overdue attempt changed concurrently, skipping")
				continue
			}
			s.log.Error().Err(err).Str("attempt_id", id.String()).Msg("Failed to expire attempt")
			continue
		}

		s.finished(a, result)
		expired++
	}
	return expired, nil
}
