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

// LeaveService is the leave intake used by LeaveHandler.
type LeaveService interface {
	Apply(ctx context.Context, studentID int, req model.ApplyLeaveRequest) (*service.ApplyLeaveResult, error)
	ListMine(ctx context.Context, studentID int) ([]model.Leave, error)
	Get(ctx context.Context, leaveID uuid.UUID, studentID int, isAdmin bool) (*model.Leave, error)
	ListAll(ctx context.Context, filter model.LeaveFilter) ([]model.Leave, error)
	Subjects(ctx context.Context) ([]model.SubjectSummary, error)
}

// LeaveHandler handles leave requests for students and staff.
type LeaveHandler struct {
	leaves LeaveService
	log    zerolog.Logger
}

// NewLeaveHandler creates a new LeaveHandler.
func NewLeaveHandler(leaves LeaveService, log zerolog.Logger) *LeaveHandler {
	return &LeaveHandler{
		leaves: leaves,
		log:    log.With().Str("component", "leave_handler").Logger(),
	}
}

// ApplyLeave godoc
// POST /api/v1/student/leaves
// Submits a leave request and assigns its qualification test.
func (h *LeaveHandler) ApplyLeave(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.ApplyLeaveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.leaves.Apply(c.Request.Context(), claims.UserID, req)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	response.Created(c, "/api/v1/student/leaves/"+res.Leave.ID.String()+"/test", gin.H{
		"leave":      res.Leave,
		"test_id":    res.Attempt.ID,
		"leave_days": res.LeaveDays,
		"test": gin.H{
			"questions":  len(res.Attempt.Questions),
			"max_score":  res.Attempt.MaxScore,
			"time_limit": res.Attempt.TimeLimit,
		},
	})
}

// ListMyLeaves godoc
// GET /api/v1/student/leaves
func (h *LeaveHandler) ListMyLeaves(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	leaves, err := h.leaves.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"leaves": leaves})
}

// GetLeave godoc
// GET /api/v1/student/leaves/:leave_id
// GET /api/v1/admin/leaves/:leave_id
func (h *LeaveHandler) GetLeave(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	leaveID, ok := parseIDParam(c, "leave_id")
	if !ok {
		return
	}

	isAdmin := claims.TokenType == service.TokenTypeAdmin
	leave, err := h.leaves.Get(c.Request.Context(), leaveID, claims.UserID, isAdmin)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"leave": leave})
}

// ListAllLeaves godoc
// GET /api/v1/admin/leaves?status=&result=&student_id=&limit=&offset=
func (h *LeaveHandler) ListAllLeaves(c *gin.Context) {
	var filter model.LeaveFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	leaves, err := h.leaves.ListAll(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"leaves": leaves})
}

// ListSubjects godoc
// GET /api/v1/student/subjects
// Subjects with active questions, so a leave request names ones that can be tested.
func (h *LeaveHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.leaves.Subjects(c.Request.Context())
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"subjects": subjects})
}
