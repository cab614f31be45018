// Package websocket holds the message schema of the change feed stream and
// small helpers for writing it.
package websocket

import "github.com/stemsi/qbank-core/internal/domain"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestPayload is the only message a client sends.
type RequestPayload struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventReady  Event = "ready"
	EventChange Event = "change"
	EventError  Event = "error"
	EventPong   Event = "pong"
)

// ReadyResponse is sent once the subscription is live.
type ReadyResponse struct {
	Event          Event `json:"event"`
	UserID         int64 `json:"user_id"`
	QuestionBankID int64 `json:"question_bank_id"`
}

// ChangeResponse carries one committed change record.
type ChangeResponse struct {
	Event  Event               `json:"event"`
	Change domain.ChangeRecord `json:"change"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
