package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForStudentStripsAnswers(t *testing.T) {
	q := Question{
		Type:    QuestionTypeCoding,
		Options: []Option{{Text: "a"}, {Text: "b", IsCorrect: true}},
		TestCases: []TestCase{
			{Input: "1", ExpectedOutput: "1"},
			{Input: "2", ExpectedOutput: "4", IsHidden: true},
		},
	}

	view := q.ForStudent()
	assert.Equal(t, []string{"a", "b"}, view.Options)
	assert.Equal(t, []TestCase{{Input: "1", ExpectedOutput: "1"}}, view.Examples)
	assert.Equal(t, 1, q.CorrectOptionIndex())
}

func TestSettingsKeyValuesRoundTrip(t *testing.T) {
	want := DefaultSettings()
	want.ViolationPenaltyPercent = 7.5
	want.AutoSubmitOnViolation = false

	got := DefaultSettings()
	got.ApplyKeyValues(want.KeyValues())
	assert.Equal(t, want, got)
}
