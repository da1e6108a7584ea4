package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/middleware"
	"github.com/stemsi/leave-assessment/internal/model"
	"github.com/stemsi/leave-assessment/internal/response"
	"github.com/stemsi/leave-assessment/internal/service"
	"github.com/stemsi/leave-assessment/internal/validator"
)

// AttemptService drives attempts for TestHandler.
type AttemptService interface {
	GetTestForLeave(ctx context.Context, leaveID uuid.UUID, studentID int) (*service.TestPaper, error)
	SubmitAnswer(ctx context.Context, attemptID uuid.UUID, studentID int, req model.SubmitAnswerRequest) (*service.AnswerResult, error)
	SubmitTest(ctx context.Context, attemptID uuid.UUID, studentID int) (*service.SubmitResult, error)
	GetResult(ctx context.Context, attemptID uuid.UUID, studentID int, isAdmin bool) (*model.TestAttempt, error)
}

// ViolationRecorder records proctoring violations.
type ViolationRecorder interface {
	RecordViolation(ctx context.Context, attemptID uuid.UUID, studentID int, req model.RecordViolationRequest, client service.ClientInfo) (*service.ViolationOutcome, error)
}

// TestHandler handles the student test flow and result lookups.
type TestHandler struct {
	attempts   AttemptService
	proctoring ViolationRecorder
	log        zerolog.Logger
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(attempts AttemptService, proctoring ViolationRecorder, log zerolog.Logger) *TestHandler {
	return &TestHandler{
		attempts:   attempts,
		proctoring: proctoring,
		log:        log.With().Str("component", "test_handler").Logger(),
	}
}

// GetTestForLeave godoc
// GET /api/v1/student/leaves/:leave_id/test
// Returns the open round of the leave's test without answers.
func (h *TestHandler) GetTestForLeave(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	leaveID, ok := parseIDParam(c, "leave_id")
	if !ok {
		return
	}

	paper, err := h.attempts.GetTestForLeave(c.Request.Context(), leaveID, claims.UserID)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, paper)
}

// SubmitAnswer godoc
// POST /api/v1/student/tests/:test_id/answer
func (h *TestHandler) SubmitAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	attemptID, ok := parseIDParam(c, "test_id")
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.attempts.SubmitAnswer(c.Request.Context(), attemptID, claims.UserID, req)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// SubmitTest godoc
// POST /api/v1/student/tests/:test_id/submit
// Closes the open round: unlocks round 2 or finalizes the test.
func (h *TestHandler) SubmitTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	attemptID, ok := parseIDParam(c, "test_id")
	if !ok {
		return
	}

	res, err := h.attempts.SubmitTest(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// RecordViolation godoc
// POST /api/v1/student/tests/:test_id/violation
func (h *TestHandler) RecordViolation(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	attemptID, ok := parseIDParam(c, "test_id")
	if !ok {
		return
	}

	var req model.RecordViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	client := service.ClientInfo{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
	out, err := h.proctoring.RecordViolation(c.Request.Context(), attemptID, claims.UserID, req, client)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

// GetResult godoc
// GET /api/v1/student/tests/:test_id/result
// GET /api/v1/admin/tests/:test_id/result
func (h *TestHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	attemptID, ok := parseIDParam(c, "test_id")
	if !ok {
		return
	}

	isAdmin := claims.TokenType == service.TokenTypeAdmin
	attempt, err := h.attempts.GetResult(c.Request.Context(), attemptID, claims.UserID, isAdmin)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, attempt)
}
