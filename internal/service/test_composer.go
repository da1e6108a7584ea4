package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/model"
)

// ComposedTest is the question set drawn for a new attempt.
type ComposedTest struct {
	Questions []model.AttemptQuestion
	MaxScore  int
	TimeLimit int // minutes

	// Requested volumes before under-fill, kept for logging.
	MCQRequested    int
	CodingRequested int
}

// TestComposer draws a personalized question set from the bank.
type TestComposer struct {
	bank QuestionBank
	log  zerolog.Logger
}

// NewTestComposer creates a TestComposer.
func NewTestComposer(bank QuestionBank, log zerolog.Logger) *TestComposer {
	return &TestComposer{
		bank: bank,
		log:  log.With().Str("component", "test_composer").Logger(),
	}
}

// AdjustVolumes scales the baseline question counts by leave duration.
func AdjustVolumes(leaveDays int, s model.Settings) (mcq, coding int) {
	mcq, coding = s.MCQCount, s.CodingCount
	switch {
	case leaveDays > 7:
		mcq = min(mcq+2, 10)
		coding = min(coding+1, 3)
	case leaveDays > 3:
		mcq = min(mcq+1, 8)
	}
	return mcq, coding
}

// DifficultyWeights returns the easy/medium/hard MCQ percentages.
func DifficultyWeights(leaveDays int) (easy, medium, hard int) {
	if leaveDays <= 3 {
		return 50, 40, 10
	}
	return 40, 40, 20
}

// MCQDistribution splits mcqCount across difficulties. Easy and medium are
// rounded up; hard takes the remainder and never goes below zero.
func MCQDistribution(mcqCount, leaveDays int) (easy, medium, hard int) {
	we, wm, _ := DifficultyWeights(leaveDays)
	easy = ceilPercent(mcqCount, we)
	medium = ceilPercent(mcqCount, wm)
	hard = max(0, mcqCount-easy-medium)
	return easy, medium, hard
}

// CodingTargets returns the target difficulty of each coding slot:
// easy, medium, then hard for every remaining slot.
func CodingTargets(n int) []model.Difficulty {
	targets := make([]model.Difficulty, 0, max(n, 0))
	for i := 0; i < n; i++ {
		switch i {
		case 0:
			targets = append(targets, model.DifficultyEasy)
		case 1:
			targets = append(targets, model.DifficultyMedium)
		default:
			targets = append(targets, model.DifficultyHard)
		}
	}
	return targets
}

func ceilPercent(n, pct int) int {
	if n <= 0 {
		return 0
	}
	return (n*pct + 99) / 100
}

// ComposeTest builds the question set for an attempt. Under-filled buckets
// are accepted silently; only bank errors fail the call.
func (c *TestComposer) ComposeTest(ctx context.Context, leaveDays int, subjects []string, settings model.Settings) (*ComposedTest, error) {
	mcqCount, codingCount := AdjustVolumes(leaveDays, settings)
	easy, medium, hard := MCQDistribution(mcqCount, leaveDays)

	out := &ComposedTest{
		TimeLimit:       settings.MCQTimeLimit + settings.CodingTimeLimit,
		MCQRequested:    mcqCount,
		CodingRequested: codingCount,
	}
	chosen := make([]uuid.UUID, 0, mcqCount+codingCount)

	add := func(q model.Question, round int) {
		chosen = append(chosen, q.ID)
		out.Questions = append(out.Questions, model.AttemptQuestion{
			QuestionID: q.ID,
			Type:       q.Type,
			Round:      round,
			Points:     q.Points,
		})
		out.MaxScore += q.Points
	}

	buckets := []struct {
		difficulty model.Difficulty
		count      int
	}{
		{model.DifficultyEasy, easy},
		{model.DifficultyMedium, medium},
		{model.DifficultyHard, hard},
	}
	for _, b := range buckets {
		if b.count <= 0 {
			continue
		}
		qs, err := c.bank.Sample(ctx, model.QuestionFilter{
			Subjects:   subjects,
			Type:       model.QuestionTypeMCQ,
			Difficulty: b.difficulty,
			ExcludeIDs: chosen,
		}, b.count)
		if err != nil {
			return nil, fmt.Errorf("sample %s mcq: %w", b.difficulty, err)
		}
		for _, q := range qs {
			add(q, 1)
		}
	}

	for _, target := range CodingTargets(codingCount) {
		q, err := c.sampleCoding(ctx, subjects, target, chosen)
		if err != nil {
			return nil, err
		}
		if q == nil {
			c.log.Debug().Str("difficulty", string(target)).Msg("No coding question available, slot omitted")
			continue
		}
		add(*q, 2)
	}

	c.log.Debug().
		Int("leave_days", leaveDays).
		Int("mcq_requested", mcqCount).
		Int("coding_requested", codingCount).
		Int("selected", len(out.Questions)).
		Int("max_score", out.MaxScore).
		Msg("Test composed")

	return out, nil
}

// sampleCoding picks one coding question of the target difficulty, falling
// back to any difficulty. It returns nil when the bank has nothing left.
func (c *TestComposer) sampleCoding(ctx context.Context, subjects []string, target model.Difficulty, exclude []uuid.UUID) (*model.Question, error) {
	for _, difficulty := range []model.Difficulty{target, ""} {
		qs, err := c.bank.Sample(ctx, model.QuestionFilter{
			Subjects:   subjects,
			Type:       model.QuestionTypeCoding,
			Difficulty: difficulty,
			ExcludeIDs: exclude,
		}, 1)
		if err != nil {
			return nil, fmt.Errorf("sample coding question: %w", err)
		}
		if len(qs) > 0 {
			return &qs[0], nil
		}
	}
	return nil, nil
}
