package model

import (
	"time"

	"github.com/google/uuid"
)

// LeaveStatus is the lifecycle state of a leave request.
type LeaveStatus string

const (
	LeavePending       LeaveStatus = "pending"
	LeaveTestAssigned  LeaveStatus = "test-assigned"
	LeaveTestCompleted LeaveStatus = "test-completed"
	LeaveApproved      LeaveStatus = "approved"
	LeaveRejected      LeaveStatus = "rejected"
)

// TestResult is the qualification outcome reported back to a leave.
type TestResult string

const (
	TestResultPending TestResult = "pending"
	TestResultPass    TestResult = "pass"
	TestResultFail    TestResult = "fail"
)

// Leave is a student's leave request.
type Leave struct {
	ID            uuid.UUID   `json:"id"`
	StudentID     int         `json:"student_id"`
	Reason        string      `json:"reason"`
	StartDate     time.Time   `json:"start_date"`
	EndDate       time.Time   `json:"end_date"`
	Subjects      []string    `json:"subjects"`
	Status        LeaveStatus `json:"status"`
	TestRequired  bool        `json:"test_required"`
	TestAttemptID *uuid.UUID  `json:"test_attempt_id,omitempty"`
	TestScore     float64     `json:"test_score"`
	TestResult    TestResult  `json:"test_result"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// ApplyLeaveRequest is the payload for submitting a leave request.
// Dates use the YYYY-MM-DD layout.
type ApplyLeaveRequest struct {
	Reason    string   `json:"reason" binding:"required,notblank,max=2000"`
	StartDate string   `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string   `json:"end_date" binding:"required,datetime=2006-01-02"`
	Subjects  []string `json:"subjects" binding:"required,min=1,dive,required,notblank,max=100"`
}

// LeaveFilter narrows the admin leave listing. Zero fields match everything.
type LeaveFilter struct {
	Status     LeaveStatus `json:"status" form:"status" binding:"omitempty,oneof=pending test-assigned test-completed approved rejected"`
	TestResult TestResult  `json:"result" form:"result" binding:"omitempty,oneof=pending pass fail"`
	StudentID  int         `json:"student_id" form:"student_id" binding:"omitempty,min=1"`
	Limit      int         `json:"limit" form:"limit" binding:"omitempty,min=1,max=200"`
	Offset     int         `json:"offset" form:"offset" binding:"omitempty,min=0"`
}
