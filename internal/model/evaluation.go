package model

// CaseResult is the outcome of running a submission against one test case.
// Input, Expected and Actual are blank for hidden cases.
type CaseResult struct {
	Passed   bool   `json:"passed"`
	Hidden   bool   `json:"hidden"`
	Input    string `json:"input,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Evaluation is the aggregate verdict of a code judge run.
type Evaluation struct {
	AllPassed   bool         `json:"all_passed"`
	PassedCount int          `json:"passed_count"`
	TotalCount  int          `json:"total_count"`
	Score       float64      `json:"score"`
	Cases       []CaseResult `json:"cases"`
}
