package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/middleware"
	"github.com/stemsi/leave-assessment/internal/model"
	"github.com/stemsi/leave-assessment/internal/response"
	"github.com/stemsi/leave-assessment/internal/service"
	ws "github.com/stemsi/leave-assessment/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// ProctorWSHandler streams proctoring violations from the test page.
type ProctorWSHandler struct {
	proctoring ViolationRecorder
	log        zerolog.Logger
	upgrader   websocket.Upgrader
}

// NewProctorWSHandler creates a new ProctorWSHandler.
func NewProctorWSHandler(proctoring ViolationRecorder, log zerolog.Logger, allowedOrigins []string) *ProctorWSHandler {
	return &ProctorWSHandler{
		proctoring: proctoring,
		log:        log.With().Str("component", "ws_handler").Logger(),
		upgrader:   buildUpgrader(allowedOrigins),
	}
}

// ProctorStream godoc
// WS /ws/v1/student/tests/:test_id/proctor
// Upgrades to WebSocket; every violation message is recorded and answered
// with the updated warning state.
func (h *ProctorWSHandler) ProctorStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := parseIDParam(c, "test_id")
	if !ok {
		return
	}

	client := service.ClientInfo{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	studentID := claims.UserID
	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("attempt_id", attemptID.String()).
		Logger()

	wsLog.Info().Msg("Student connected to proctor stream")

	for {
		raw, err := ws.ReadRaw(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		action, err := ws.PeekAction(raw)
		if err != nil {
			ws.WriteError(conn, "malformed message")
			continue
		}

		switch action {
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		case ws.ActionViolation:
			if done := h.handleViolation(conn, wsLog, raw, attemptID, studentID, client); done {
				return
			}
		default:
			wsLog.Warn().Str("action", string(action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(action))
		}
	}
}

// handleViolation records one violation. It reports true when the stream
// should end because the attempt is closed.
func (h *ProctorWSHandler) handleViolation(
	conn *websocket.Conn,
	wsLog zerolog.Logger,
	raw json.RawMessage,
	attemptID uuid.UUID,
	studentID int,
	client service.ClientInfo,
) bool {
	var msg ws.ViolationRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		ws.WriteError(conn, "malformed violation")
		return false
	}
	msg.Detail = truncateRunes(msg.Detail, model.MaxViolationDetail)

	req := model.RecordViolationRequest{Type: model.ViolationType(msg.Type), Detail: msg.Detail}
	out, err := h.proctoring.RecordViolation(context.Background(), attemptID, studentID, req, client)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			ws.WriteError(conn, "unknown violation type: "+msg.Type)
			return false
		case errors.Is(err, service.ErrAttemptClosed):
			ws.WriteError(conn, "test is closed")
			return true
		case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrAttemptNotFound):
			ws.WriteError(conn, "test not found")
			return true
		case errors.Is(err, service.ErrConflict):
			ws.WriteError(conn, "busy, retry")
			return false
		}
		wsLog.Error().Err(err).Msg("Record violation failed")
		ws.WriteError(conn, "record failed")
		return false
	}

	if out.AutoSubmitted {
		ws.WriteEvent(conn, ws.EventAutoSubmitted, out)
		wsLog.Warn().Int("violations", out.ViolationCount).Msg("Test auto-submitted, closing proctor stream")
		return true
	}
	ws.WriteEvent(conn, ws.EventViolation, out)
	return false
}

// truncateRunes cuts s to at most n characters without splitting one.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
