package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/model"
	"github.com/stemsi/leave-assessment/internal/response"
	"github.com/stemsi/leave-assessment/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func leaveRouter(h *LeaveHandler) *gin.Engine {
	r := gin.New()
	g := r.Group("/", withClaims(service.TokenTypeStudent, 42))
	g.POST("/leaves", h.ApplyLeave)
	g.GET("/leaves", h.ListMyLeaves)
	g.GET("/leaves/:leave_id", h.GetLeave)
	g.GET("/subjects", h.ListSubjects)

	admin := r.Group("/admin", withClaims(service.TokenTypeAdmin, 1))
	admin.GET("/leaves", h.ListAllLeaves)
	admin.GET("/leaves/:leave_id", h.GetLeave)
	return r
}

func TestApplyLeave_Created(t *testing.T) {
	leaves := &mockLeaves{}
	r := leaveRouter(NewLeaveHandler(leaves, zerolog.Nop()))

	req := model.ApplyLeaveRequest{
		Reason:    "Family event",
		StartDate: "2030-01-10",
		EndDate:   "2030-01-12",
		Subjects:  []string{"math"},
	}
	attemptID := uuid.New()
	leaveID := uuid.New()
	leaves.On("Apply", mock.Anything, 42, req).Return(&service.ApplyLeaveResult{
		Leave:     &model.Leave{ID: leaveID, StudentID: 42, Status: model.LeaveTestAssigned},
		Attempt:   &model.TestAttempt{ID: attemptID, Questions: make([]model.AttemptQuestion, 3), MaxScore: 15, TimeLimit: 75},
		LeaveDays: 3,
	}, nil).Once()

	w := doJSON(r, http.MethodPost, "/leaves", req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/api/v1/student/leaves/"+leaveID.String()+"/test", w.Header().Get("Location"))
	var data struct {
		TestID    uuid.UUID `json:"test_id"`
		LeaveDays int       `json:"leave_days"`
		Test      struct {
			Questions int `json:"questions"`
			MaxScore  int `json:"max_score"`
			TimeLimit int `json:"time_limit"`
		} `json:"test"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, attemptID, data.TestID)
	assert.Equal(t, 3, data.LeaveDays)
	assert.Equal(t, 3, data.Test.Questions)
	assert.Equal(t, 15, data.Test.MaxScore)
	assert.Equal(t, 75, data.Test.TimeLimit)
}

func TestApplyLeave_RejectsBadDates(t *testing.T) {
	leaves := &mockLeaves{}
	r := leaveRouter(NewLeaveHandler(leaves, zerolog.Nop()))

	w := doJSON(r, http.MethodPost, "/leaves", gin.H{
		"reason":     "trip",
		"start_date": "10/01/2030",
		"end_date":   "2030-01-12",
		"subjects":   []string{"math"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error.Fields, "start_date")
	leaves.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyLeave_ServiceValidation(t *testing.T) {
	leaves := &mockLeaves{}
	r := leaveRouter(NewLeaveHandler(leaves, zerolog.Nop()))

	leaves.On("Apply", mock.Anything, 42, mock.Anything).
		Return(nil, &service.ValidationError{Fields: map[string]string{"start_date": "must not be in the past"}}).Once()

	w := doJSON(r, http.MethodPost, "/leaves", gin.H{
		"reason":     "trip",
		"start_date": "2001-01-10",
		"end_date":   "2001-01-12",
		"subjects":   []string{"math"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Equal(t, response.ErrValidation, env.Error.Code)
	assert.Equal(t, "must not be in the past", env.Error.Fields["start_date"])
}

func TestListMyLeaves(t *testing.T) {
	leaves := &mockLeaves{}
	r := leaveRouter(NewLeaveHandler(leaves, zerolog.Nop()))

	leaves.On("ListMine", mock.Anything, 42).Return([]model.Leave{{ID: uuid.New(), StudentID: 42}}, nil).Once()

	w := doJSON(r, http.MethodGet, "/leaves", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Leaves []model.Leave `json:"leaves"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Len(t, data.Leaves, 1)
}

func TestGetLeave(t *testing.T) {
	leaveID := uuid.New()

	tests := []struct {
		name    string
		path    string
		userID  int
		isAdmin bool
		err     error
		status  int
	}{
		{"owner", "/leaves/" + leaveID.String(), 42, false, nil, http.StatusOK},
		{"admin", "/admin/leaves/" + leaveID.String(), 1, true, nil, http.StatusOK},
		{"other student", "/leaves/" + leaveID.String(), 42, false, service.ErrForbidden, http.StatusForbidden},
		{"missing", "/admin/leaves/" + leaveID.String(), 1, true, service.ErrLeaveNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaves := &mockLeaves{}
			r := leaveRouter(NewLeaveHandler(leaves, zerolog.Nop()))

			var leave *model.Leave
			if tt.err == nil {
				leave = &model.Leave{ID: leaveID, StudentID: 42, TestResult: model.TestResultPass}
			}
			leaves.On("Get", mock.Anything, leaveID, tt.userID, tt.isAdmin).Return(leave, tt.err).Once()

			w := doJSON(r, http.MethodGet, tt.path, nil)

			assert.Equal(t, tt.status, w.Code)
			leaves.AssertExpectations(t)
			if tt.err != nil {
				return
			}
			var data struct {
				Leave model.Leave `json:"leave"`
			}
			require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
			assert.Equal(t, model.TestResultPass, data.Leave.TestResult)
		})
	}
}

func TestGetLeave_BadID(t *testing.T) {
	leaves := &mockLeaves{}
	r := leaveRouter(NewLeaveHandler(leaves, zerolog.Nop()))

	w := doJSON(r, http.MethodGet, "/leaves/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrInvalidID, decode(t, w).Error.Code)
}

func TestListAllLeaves(t *testing.T) {
	leaves := &mockLeaves{}
	r := leaveRouter(NewLeaveHandler(leaves, zerolog.Nop()))

	want := model.LeaveFilter{TestResult: model.TestResultPass, Limit: 20}
	leaves.On("ListAll", mock.Anything, want).Return([]model.Leave{{ID: uuid.New(), TestResult: model.TestResultPass}}, nil).Once()

	w := doJSON(r, http.MethodGet, "/admin/leaves?result=pass&limit=20", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Leaves []model.Leave `json:"leaves"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Len(t, data.Leaves, 1)
	leaves.AssertExpectations(t)
}

func TestListAllLeaves_BadFilter(t *testing.T) {
	leaves := &mockLeaves{}
	r := leaveRouter(NewLeaveHandler(leaves, zerolog.Nop()))

	w := doJSON(r, http.MethodGet, "/admin/leaves?result=maybe&limit=500", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode(t, w).Error.Fields
	assert.Contains(t, fields, "result")
	assert.Contains(t, fields, "limit")
	leaves.AssertNotCalled(t, "ListAll", mock.Anything, mock.Anything)
}

func TestListSubjects(t *testing.T) {
	leaves := &mockLeaves{}
	r := leaveRouter(NewLeaveHandler(leaves, zerolog.Nop()))

	leaves.On("Subjects", mock.Anything).Return([]model.SubjectSummary{{Subject: "math", MCQCount: 12, CodingCount: 2}}, nil).Once()

	w := doJSON(r, http.MethodGet, "/subjects", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Subjects []model.SubjectSummary `json:"subjects"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	require.Len(t, data.Subjects, 1)
	assert.Equal(t, "math", data.Subjects[0].Subject)
	assert.Equal(t, 2, data.Subjects[0].CodingCount)
}
