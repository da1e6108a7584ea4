package websocket

import "encoding/json"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionViolation Action = "violation"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ViolationRequest is sent by the client when its proctoring hooks fire.
type ViolationRequest struct {
	Action Action `json:"action"`
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError         Event = "error"
	EventViolation     Event = "violation_recorded"
	EventAutoSubmitted Event = "auto_submitted"
	EventPong          Event = "pong"
)

// DataResponse carries an event with its payload.
type DataResponse struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

// PeekAction returns the action of a raw client message.
func PeekAction(raw json.RawMessage) (Action, error) {
	var env RequestEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", err
	}
	return env.Action, nil
}
