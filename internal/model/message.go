package model

import "time"

// Viewtype is the content type of a message. Values are stable on the wire.
type Viewtype int32

const (
	ViewtypeUnknown             Viewtype = 0
	ViewtypeText                Viewtype = 10
	ViewtypeImage               Viewtype = 20
	ViewtypeGif                 Viewtype = 21
	ViewtypeSticker             Viewtype = 23
	ViewtypeAudio               Viewtype = 40
	ViewtypeVoice               Viewtype = 41
	ViewtypeVideo               Viewtype = 50
	ViewtypeFile                Viewtype = 60
	ViewtypeVideochatInvitation Viewtype = 70
	ViewtypeWebxdc              Viewtype = 80
)

var viewtypeNames = map[Viewtype]string{
	ViewtypeUnknown:             "unknown",
	ViewtypeText:                "text",
	ViewtypeImage:               "image",
	ViewtypeGif:                 "gif",
	ViewtypeSticker:             "sticker",
	ViewtypeAudio:               "audio",
	ViewtypeVoice:               "voice",
	ViewtypeVideo:               "video",
	ViewtypeFile:                "file",
	ViewtypeVideochatInvitation: "videochat-invitation",
	ViewtypeWebxdc:              "webxdc",
}

func (v Viewtype) String() string {
	if s, ok := viewtypeNames[v]; ok {
		return s
	}
	return "unknown"
}

// ParseViewtype maps a name back to a Viewtype. Unknown names map to ViewtypeUnknown.
func ParseViewtype(s string) Viewtype {
	for v, name := range viewtypeNames {
		if name == s {
			return v
		}
	}
	return ViewtypeUnknown
}

// HasFile reports whether messages of this type carry an attachment.
func (v Viewtype) HasFile() bool {
	switch v {
	case ViewtypeUnknown, ViewtypeText, ViewtypeVideochatInvitation:
		return false
	default:
		return true
	}
}

// Message delivery state labels.
const (
	StatePending   = "pending"
	StateDelivered = "delivered"
	StateFailed    = "failed"
	StateRead      = "read"
	StateFresh     = "fresh"
	StateSeen      = "seen"
)

// Message is a single materialized message.
type Message struct {
	ID               uint32    `json:"id"`
	ChatID           uint32    `json:"chat_id"`
	FromID           uint32    `json:"from_id"`
	FromName         string    `json:"from_first_name"`
	FromProfileImage string    `json:"from_profile_image,omitempty"`
	FromColor        uint32    `json:"from_color"`
	Viewtype         Viewtype  `json:"viewtype"`
	State            string    `json:"state"`
	Text             string    `json:"text,omitempty"`
	Quote            *Message  `json:"quote,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	IsInfo           bool      `json:"is_info"`
	File             string    `json:"file,omitempty"`
	FileMime         string    `json:"file_mime,omitempty"`
	FileWidth        int       `json:"file_width,omitempty"`
	FileHeight       int       `json:"file_height,omitempty"`
	IsFirst          bool      `json:"is_first"`
}

// Clone returns a deep copy.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	dup := *m
	dup.Quote = m.Quote.Clone()
	return &dup
}

// ChatItem is a lightweight entry of a chat's full index: a message id or a
// day marker (MsgID == 0).
type ChatItem struct {
	MsgID     uint32    `json:"msg_id,omitempty"`
	DayMarker time.Time `json:"day_marker"`
}

// IsDayMarker reports whether the item separates two days.
func (i ChatItem) IsDayMarker() bool { return i.MsgID == 0 }

// ChatMessage is either a day marker or a message.
type ChatMessage struct {
	DayMarker time.Time `json:"day_marker"`
	Message   *Message  `json:"message,omitempty"`
}

// IsDayMarker reports whether the entry separates two days.
func (m ChatMessage) IsDayMarker() bool { return m.Message == nil }

// MessageList is a windowed view over one chat's messages.
type MessageList struct {
	ChatID   uint32        `json:"chat_id"`
	Range    Range         `json:"range"`
	Items    []ChatItem    `json:"items"`
	Messages []ChatMessage `json:"messages"`
}

// Clear resets the list to its empty, chat-less state.
func (l *MessageList) Clear() {
	l.ChatID = 0
	l.Range = Range{}
	l.Items = nil
	l.Messages = nil
}

// Empty reports whether the list is bound to no chat.
func (l MessageList) Empty() bool {
	return l.ChatID == 0 && len(l.Items) == 0 && len(l.Messages) == 0
}

// Clone returns a deep copy.
func (l MessageList) Clone() MessageList {
	dup := l
	if l.Items != nil {
		dup.Items = append([]ChatItem(nil), l.Items...)
	}
	if l.Messages != nil {
		dup.Messages = make([]ChatMessage, len(l.Messages))
		for i, m := range l.Messages {
			dup.Messages[i] = ChatMessage{DayMarker: m.DayMarker, Message: m.Message.Clone()}
		}
	}
	return dup
}
