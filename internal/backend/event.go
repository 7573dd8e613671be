package backend

import "fmt"

// Kind names a raw backend event.
type Kind string

const (
	KindConfigureProgress   Kind = "configure_progress"
	KindImexProgress        Kind = "imex_progress"
	KindImapConnected       Kind = "imap_connected"
	KindSmtpConnected       Kind = "smtp_connected"
	KindIncomingMsg         Kind = "incoming_msg"
	KindMsgDelivered        Kind = "msg_delivered"
	KindMsgFailed           Kind = "msg_failed"
	KindMsgRead             Kind = "msg_read"
	KindMsgsChanged         Kind = "msgs_changed"
	KindMsgsNoticed         Kind = "msgs_noticed"
	KindChatModified        Kind = "chat_modified"
	KindConnectivityChanged Kind = "connectivity_changed"
	KindInfo                Kind = "info"
	KindWarning             Kind = "warning"
	KindError               Kind = "error"
)

// Event is a raw event emitted by a backend. Only the fields relevant to
// Kind are set.
type Event struct {
	Account  uint32 `json:"account"`
	Kind     Kind   `json:"kind"`
	ChatID   uint32 `json:"chat_id,omitempty"`
	MsgID    uint32 `json:"msg_id,omitempty"`
	Progress int    `json:"progress,omitempty"`
	Text     string `json:"text,omitempty"`
}

func (e Event) String() string {
	switch e.Kind {
	case KindConfigureProgress, KindImexProgress:
		return fmt.Sprintf("%s[%d] %d", e.Kind, e.Account, e.Progress)
	case KindInfo, KindWarning, KindError:
		return fmt.Sprintf("%s[%d] %s", e.Kind, e.Account, e.Text)
	default:
		return fmt.Sprintf("%s[%d] chat=%d msg=%d", e.Kind, e.Account, e.ChatID, e.MsgID)
	}
}
