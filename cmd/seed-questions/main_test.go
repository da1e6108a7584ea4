package main

import (
	"strings"
	"testing"

	"github.com/stemsi/leave-assessment/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadQuestions(t *testing.T) {
	input := `[
		{"question_type":"mcq","subject":"math","difficulty":"easy","title":"2+2","points":5,
		 "options":[{"text":"3"},{"text":"4","is_correct":true}]},
		{"question_type":"coding","subject":"programming","difficulty":"medium","title":"Sum","points":20,
		 "test_cases":[{"input":"1 2","expected_output":"3"}],"is_active":false}
	]`

	questions, err := loadQuestions(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, questions, 2)

	assert.Equal(t, model.QuestionTypeMCQ, questions[0].Type)
	assert.True(t, questions[0].IsActive)
	assert.Equal(t, 1, questions[0].CorrectOptionIndex())
	assert.False(t, questions[1].IsActive)
}

func TestLoadQuestions_Rejects(t *testing.T) {
	cases := map[string]string{
		"mcq without answer": `[{"question_type":"mcq","subject":"math","difficulty":"easy","title":"x","points":1,
			"options":[{"text":"a"},{"text":"b"}]}]`,
		"mcq with two answers": `[{"question_type":"mcq","subject":"math","difficulty":"easy","title":"x","points":1,
			"options":[{"text":"a","is_correct":true},{"text":"b","is_correct":true}]}]`,
		"coding without cases": `[{"question_type":"coding","subject":"cs","difficulty":"hard","title":"x","points":1}]`,
		"bad difficulty":       `[{"question_type":"mcq","subject":"math","difficulty":"insane","title":"x","points":1}]`,
		"zero points":          `[{"question_type":"mcq","subject":"math","difficulty":"easy","title":"x","points":0}]`,
		"not json":             `{`,
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loadQuestions(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}
