package rpc

import (
	"time"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/model"
)

// Request and response bodies of the Backend service.

type Empty struct{}

type AccountRequest struct {
	Account uint32 `json:"account"`
}

type AccountsResponse struct {
	Accounts []uint32 `json:"accounts"`
}

type AccountResponse struct {
	Account uint32 `json:"account"`
}

type SelectedAccountResponse struct {
	Account  uint32 `json:"account"`
	Selected bool   `json:"selected"`
}

type LoginRequest struct {
	Account  uint32 `json:"account"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PathRequest struct {
	Account uint32 `json:"account"`
	Path    string `json:"path"`
}

type WindowRequest struct {
	Account uint32       `json:"account"`
	Window  *model.Range `json:"window,omitempty"`
}

type ChatRequest struct {
	Account uint32 `json:"account"`
	Chat    uint32 `json:"chat"`
}

type SendTextRequest struct {
	Account uint32 `json:"account"`
	Chat    uint32 `json:"chat"`
	Text    string `json:"text"`
}

type SendFileRequest struct {
	Account uint32              `json:"account"`
	Chat    uint32              `json:"chat"`
	File    backend.FileMessage `json:"file"`
}

type MessageRequest struct {
	Account uint32 `json:"account"`
	MsgID   uint32 `json:"msg_id"`
}

type ChatNameResponse struct {
	Name string `json:"name"`
}

type CreateChatRequest struct {
	Account uint32 `json:"account"`
	Addr    string `json:"addr"`
	Name    string `json:"name,omitempty"`
}

type CreateChatResponse struct {
	Chat uint32 `json:"chat"`
}

// StatusResponse describes the serving daemon.
type StatusResponse struct {
	Profile   string    `json:"profile"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	Accounts  int       `json:"accounts"`
}

// EventEnvelope wraps a streamed backend event.
type EventEnvelope struct {
	EventID          string        `json:"event_id"`
	OccurredAtUnixMs int64         `json:"occurred_at_unix_ms"`
	Event            backend.Event `json:"event"`
}
