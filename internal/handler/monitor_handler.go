package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/config"
	"github.com/stemsi/leave-assessment/internal/middleware"
	"github.com/stemsi/leave-assessment/internal/model"
	"github.com/stemsi/leave-assessment/internal/pubsub"
	"github.com/stemsi/leave-assessment/internal/response"
)

const keepAliveInterval = 30 * time.Second

// ProctorFeed subscribes to the live proctoring channel of an attempt.
type ProctorFeed interface {
	Subscribe(ctx context.Context, channel string) (*pubsub.Subscription, error)
}

// MonitorHandler streams live proctoring activity to admins.
type MonitorHandler struct {
	feed     ProctorFeed
	attempts AttemptService
	log      zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(feed ProctorFeed, attempts AttemptService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		feed:     feed,
		attempts: attempts,
		log:      log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorTestSSE godoc
// GET /api/v1/admin/tests/:test_id/monitor
// Streams the proctoring events of one test as Server-Sent Events.
func (h *MonitorHandler) MonitorTestSSE(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := parseIDParam(c, "test_id")
	if !ok {
		return
	}

	reqCtx := c.Request.Context()
	attempt, err := h.attempts.GetResult(reqCtx, attemptID, claims.UserID, true)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	// Subscribe before the snapshot goes out, so nothing published in
	// between is lost.
	var sub *pubsub.Subscription
	if !attempt.Status.IsTerminal() {
		sub, err = h.feed.Subscribe(reqCtx, config.CacheKey.AttemptProctorChannel(attemptID.String()))
		if err != nil {
			h.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Proctor monitor subscribe failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
		defer sub.Close()
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("message", gin.H{"type": "snapshot", "data": snapshot(attempt)})
	c.Writer.Flush()

	if sub == nil {
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	h.log.Info().Str("attempt_id", attemptID.String()).Msg("Admin attached to proctor monitor SSE")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("attempt_id", attemptID.String()).Msg("Admin disconnected from proctor monitor SSE")
			return

		case payload, ok := <-sub.Messages:
			if !ok {
				return
			}
			// Payloads are already JSON, forward them as-is.
			writeSSEData(c, payload)

		case <-keepAlive.C:
			writeSSEData(c, string(pingPayload))
		}
	}
}

func snapshot(a *model.TestAttempt) gin.H {
	return gin.H{
		"test_id":           a.ID,
		"student_id":        a.StudentID,
		"status":            a.Status,
		"current_round":     a.CurrentRound,
		"total_score":       a.TotalScore,
		"max_score":         a.MaxScore,
		"violation_count":   a.ViolationCount,
		"violation_penalty": a.ViolationPenalty,
		"violations":        a.Violations,
		"deadline":          a.Deadline(),
	}
}

func writeSSEData(c *gin.Context, payload string) {
	fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
	c.Writer.Flush()
}
