package service

import (
	"context"
	"math"

	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/judge"
	"github.com/stemsi/leave-assessment/internal/metrics"
	"github.com/stemsi/leave-assessment/internal/model"
)

// Answer is a student's submission for one question.
type Answer struct {
	SelectedOption *int
	Code           string
	Language       string
}

// ScoreResult is the verdict on one answer.
type ScoreResult struct {
	IsCorrect  bool
	Score      int
	Evaluation *model.Evaluation
	// JudgeErr is set when the code judge failed and the answer was scored zero.
	JudgeErr error
}

// Scorer grades answers. Coding answers go through the code judge.
type Scorer struct {
	judge   CodeJudge
	metrics *metrics.Recorder
	log     zerolog.Logger
}

// NewScorer creates a Scorer.
func NewScorer(judge CodeJudge, m *metrics.Recorder, log zerolog.Logger) *Scorer {
	return &Scorer{
		judge:   judge,
		metrics: m,
		log:     log.With().Str("component", "scorer").Logger(),
	}
}

// Score grades ans against q. A judge failure never aborts the submission:
// it yields an incorrect answer worth zero.
func (s *Scorer) Score(ctx context.Context, q *model.Question, ans Answer) ScoreResult {
	if q.Type == model.QuestionTypeMCQ {
		correct, score := ScoreMCQ(q, ans.SelectedOption)
		return ScoreResult{IsCorrect: correct, Score: score}
	}

	eval, err := s.judge.Evaluate(ctx, ans.Code, ans.Language, q.TestCases)
	if err != nil {
		s.metrics.JudgeFailed()
		s.log.Warn().Err(err).
			Str("question_id", q.ID.String()).
			Str("language", ans.Language).
			Msg("Code judge failed, scoring as zero")
		return ScoreResult{JudgeErr: err}
	}

	return ScoreResult{
		IsCorrect:  eval.AllPassed,
		Score:      RescaleJudgeScore(eval.Score, q.Points),
		Evaluation: eval,
	}
}

// ScoreMCQ awards the question's points when selected matches the option
// flagged correct.
func ScoreMCQ(q *model.Question, selected *int) (bool, int) {
	if selected == nil {
		return false, 0
	}
	correct := q.CorrectOptionIndex()
	if correct < 0 || *selected != correct {
		return false, 0
	}
	return true, q.Points
}

// RescaleJudgeScore converts a judge score on the 0..judge.MaxScore scale to
// the question's points, clamped to [0, points].
func RescaleJudgeScore(score float64, points int) int {
	scaled := int(math.Round(score * float64(points) / judge.MaxScore))
	return min(max(scaled, 0), points)
}

// Percentage is total/max*100, clamped to [0, 100]. It is 0 when max is 0.
func Percentage(total, maxScore int) float64 {
	if maxScore <= 0 {
		return 0
	}
	pct := float64(total) * 100 / float64(maxScore)
	return math.Min(100, math.Max(0, pct))
}
