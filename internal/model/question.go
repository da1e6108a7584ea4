package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeMCQ    QuestionType = "mcq"
	QuestionTypeCoding QuestionType = "coding"
)

// Difficulty enumerates question difficulty levels.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Option is a single multiple-choice option.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// TestCase is an input/expected-output pair for a coding question.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	IsHidden       bool   `json:"is_hidden"`
}

// Question is a read-only entry of the question bank.
type Question struct {
	ID          uuid.UUID    `json:"id"`
	Type        QuestionType `json:"question_type"`
	Subject     string       `json:"subject"`
	Difficulty  Difficulty   `json:"difficulty"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Points      int          `json:"points"`
	Options     []Option     `json:"options,omitempty"`
	TestCases   []TestCase   `json:"test_cases,omitempty"`
	IsActive    bool         `json:"is_active"`
}

// CorrectOptionIndex returns the index of the first option flagged correct,
// or -1 when none is.
func (q *Question) CorrectOptionIndex() int {
	for i, opt := range q.Options {
		if opt.IsCorrect {
			return i
		}
	}
	return -1
}

// QuestionFilter narrows a question bank sample. An empty Difficulty matches
// every difficulty.
type QuestionFilter struct {
	Subjects   []string
	Type       QuestionType
	Difficulty Difficulty
	ExcludeIDs []uuid.UUID
}

// QuestionForStudent is a question without answers, sent to students.
type QuestionForStudent struct {
	ID          uuid.UUID    `json:"id"`
	Type        QuestionType `json:"question_type"`
	Subject     string       `json:"subject"`
	Difficulty  Difficulty   `json:"difficulty"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Points      int          `json:"points"`
	Options     []string     `json:"options,omitempty"`
	Examples    []TestCase   `json:"examples,omitempty"`
}

// ForStudent strips correctness flags and hidden test cases.
func (q *Question) ForStudent() QuestionForStudent {
	out := QuestionForStudent{
		ID:          q.ID,
		Type:        q.Type,
		Subject:     q.Subject,
		Difficulty:  q.Difficulty,
		Title:       q.Title,
		Description: q.Description,
		Points:      q.Points,
	}
	for _, opt := range q.Options {
		out.Options = append(out.Options, opt.Text)
	}
	for _, tc := range q.TestCases {
		if !tc.IsHidden {
			out.Examples = append(out.Examples, tc)
		}
	}
	return out
}

// SubjectSummary tells students which subjects the bank can build a test for.
type SubjectSummary struct {
	Subject     string `json:"subject"`
	MCQCount    int    `json:"mcq_count"`
	CodingCount int    `json:"coding_count"`
}
