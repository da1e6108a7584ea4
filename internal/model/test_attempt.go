package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus is the lifecycle state of a TestAttempt.
type AttemptStatus string

const (
	AttemptInProgress      AttemptStatus = "in-progress"
	AttemptRound1Completed AttemptStatus = "round1-completed"
	AttemptCompleted       AttemptStatus = "completed"
	AttemptSubmitted       AttemptStatus = "submitted"
	AttemptAutoSubmitted   AttemptStatus = "auto-submitted"
)

// attemptTransitions lists the legal target states for every state.
// Terminal states have no outgoing edges.
var attemptTransitions = map[AttemptStatus][]AttemptStatus{
	AttemptInProgress:      {AttemptRound1Completed, AttemptCompleted, AttemptSubmitted, AttemptAutoSubmitted},
	AttemptRound1Completed: {AttemptCompleted, AttemptSubmitted, AttemptAutoSubmitted},
}

// Valid reports whether s is one of the known statuses.
func (s AttemptStatus) Valid() bool {
	switch s {
	case AttemptInProgress, AttemptRound1Completed, AttemptCompleted, AttemptSubmitted, AttemptAutoSubmitted:
		return true
	}
	return false
}

// IsTerminal reports whether no further mutation is allowed.
func (s AttemptStatus) IsTerminal() bool {
	return s == AttemptCompleted || s == AttemptSubmitted || s == AttemptAutoSubmitted
}

// CanTransition reports whether moving from s to next is legal.
func (s AttemptStatus) CanTransition(next AttemptStatus) bool {
	for _, allowed := range attemptTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionError is returned by TransitionTo for illegal moves.
type TransitionError struct {
	From AttemptStatus
	To   AttemptStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid attempt transition %s -> %s", e.From, e.To)
}

// ViolationType enumerates proctoring violations reported by the client.
type ViolationType string

const (
	ViolationTabSwitch        ViolationType = "tab-switch"
	ViolationCopyPaste        ViolationType = "copy-paste"
	ViolationRightClick       ViolationType = "right-click"
	ViolationWindowBlur       ViolationType = "window-blur"
	ViolationKeyboardShortcut ViolationType = "keyboard-shortcut"
	ViolationPasteAttempt     ViolationType = "paste-attempt"
	ViolationDevtools         ViolationType = "devtools"
	ViolationFullscreenExit   ViolationType = "fullscreen-exit"
	ViolationScreenCapture    ViolationType = "screen-capture"
	ViolationDragDrop         ViolationType = "drag-drop"
	ViolationPrintAttempt     ViolationType = "print-attempt"
)

// Valid reports whether t is a known violation type.
func (t ViolationType) Valid() bool {
	switch t {
	case ViolationTabSwitch, ViolationCopyPaste, ViolationRightClick, ViolationWindowBlur,
		ViolationKeyboardShortcut, ViolationPasteAttempt, ViolationDevtools, ViolationFullscreenExit,
		ViolationScreenCapture, ViolationDragDrop, ViolationPrintAttempt:
		return true
	}
	return false
}

// MaxViolationDetail caps the characters kept from a violation's detail.
const MaxViolationDetail = 1000

// Violation is an immutable proctoring log entry.
type Violation struct {
	Type      ViolationType `json:"type"`
	Detail    string        `json:"detail"`
	Timestamp time.Time     `json:"timestamp"`
}

// AttemptQuestion places a question of the bank into a round of an attempt.
type AttemptQuestion struct {
	QuestionID uuid.UUID    `json:"question_id"`
	Type       QuestionType `json:"question_type"`
	Round      int          `json:"round"`
	Points     int          `json:"points"`
}

// Response is the scored answer to one question.
type Response struct {
	QuestionID     uuid.UUID `json:"question_id"`
	SelectedOption *int      `json:"selected_option,omitempty"`
	Code           string    `json:"code,omitempty"`
	Language       string    `json:"language,omitempty"`
	IsCorrect      bool      `json:"is_correct"`
	Score          int       `json:"score"`
	AnsweredAt     time.Time `json:"answered_at"`
}

// RoundScores holds the per-round score buckets.
type RoundScores struct {
	Round1 int `json:"round1"`
	Round2 int `json:"round2"`
}

// TestAttempt is one student's run through the test composed for a leave.
type TestAttempt struct {
	ID               uuid.UUID         `json:"id"`
	StudentID        int               `json:"student_id"`
	LeaveID          uuid.UUID         `json:"leave_id"`
	Questions        []AttemptQuestion `json:"questions"`
	Responses        []Response        `json:"responses"`
	CurrentRound     int               `json:"current_round"`
	RoundScores      RoundScores       `json:"round_scores"`
	TotalScore       int               `json:"total_score"`
	MaxScore         int               `json:"max_score"`
	Percentage       float64           `json:"percentage"`
	Status           AttemptStatus     `json:"status"`
	StartTime        time.Time         `json:"start_time"`
	EndTime          *time.Time        `json:"end_time,omitempty"`
	TimeLimit        int               `json:"time_limit"` // minutes
	Violations       []Violation       `json:"violations"`
	ViolationCount   int               `json:"violation_count"`
	ViolationPenalty float64           `json:"violation_penalty"`
	IPAddress        string            `json:"ip_address,omitempty"`
	UserAgent        string            `json:"user_agent,omitempty"`
	Version          int               `json:"version"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// TransitionTo moves the attempt to next, rejecting illegal moves.
func (a *TestAttempt) TransitionTo(next AttemptStatus) error {
	if !a.Status.CanTransition(next) {
		return &TransitionError{From: a.Status, To: next}
	}
	a.Status = next
	return nil
}

// Question returns the attempt entry for questionID.
func (a *TestAttempt) Question(questionID uuid.UUID) (AttemptQuestion, bool) {
	for _, q := range a.Questions {
		if q.QuestionID == questionID {
			return q, true
		}
	}
	return AttemptQuestion{}, false
}

// HasResponse reports whether questionID has already been answered.
func (a *TestAttempt) HasResponse(questionID uuid.UUID) bool {
	for _, r := range a.Responses {
		if r.QuestionID == questionID {
			return true
		}
	}
	return false
}

// AddResponse appends r and credits its score to the bucket of round.
func (a *TestAttempt) AddResponse(r Response, round int) {
	a.Responses = append(a.Responses, r)
	if round == 2 {
		a.RoundScores.Round2 += r.Score
	} else {
		a.RoundScores.Round1 += r.Score
	}
	a.TotalScore += r.Score
}

// RoundMaxScore sums the points of the questions assigned to round.
func (a *TestAttempt) RoundMaxScore(round int) int {
	total := 0
	for _, q := range a.Questions {
		if q.Round == round {
			total += q.Points
		}
	}
	return total
}

// QuestionIDs returns the ids of the questions assigned to round, or of
// every question when round is 0.
func (a *TestAttempt) QuestionIDs(round int) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(a.Questions))
	for _, q := range a.Questions {
		if round == 0 || q.Round == round {
			ids = append(ids, q.QuestionID)
		}
	}
	return ids
}

// Deadline is the moment the attempt's time limit runs out.
func (a *TestAttempt) Deadline() time.Time {
	return a.StartTime.Add(time.Duration(a.TimeLimit) * time.Minute)
}

// SubmitAnswerRequest is the payload for answering one question. MCQ answers
// carry SelectedOption, coding answers carry Code and Language.
type SubmitAnswerRequest struct {
	QuestionID     string `json:"question_id" binding:"required,uuid"`
	SelectedOption *int   `json:"selected_option" binding:"omitempty,min=0"`
	Code           string `json:"code" binding:"max=65536"`
	Language       string `json:"language" binding:"omitempty,oneof=javascript python java cpp"`
}

// RecordViolationRequest is the payload for reporting a proctoring violation.
type RecordViolationRequest struct {
	Type   ViolationType `json:"type" binding:"required,oneof=tab-switch copy-paste right-click window-blur keyboard-shortcut paste-attempt devtools fullscreen-exit screen-capture drag-drop print-attempt"`
	Detail string        `json:"detail" binding:"max=1000"`
}
