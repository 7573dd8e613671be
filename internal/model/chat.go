package model

import "time"

// Well-known contact ids. User contacts start at ContactFirstUser.
const (
	ContactSelf      uint32 = 1
	ContactDevice    uint32 = 5
	ContactFirstUser uint32 = 10
)

// Chat types.
const (
	ChatTypeSingle = "Single"
	ChatTypeGroup  = "Group"
)

// Range is a half-open [Start, End) window over an ordered collection.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of positions covered by the range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Window is an optional request for a specific range; nil means the default page.
type Window = *Range

// Clamp restricts r to [0, n).
func (r Range) Clamp(n int) Range {
	start, end := r.Start, r.End
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return Range{Start: start, End: end}
}

// ChatSummary is a chat as listed in the sidebar.
type ChatSummary struct {
	Index            *int      `json:"index,omitempty"`
	ID               uint32    `json:"id"`
	Name             string    `json:"name"`
	Header           string    `json:"header"`
	Preview          string    `json:"preview"`
	Timestamp        time.Time `json:"timestamp"`
	State            string    `json:"state"`
	ProfileImage     string    `json:"profile_image,omitempty"`
	FreshMsgCount    int       `json:"fresh_msg_cnt"`
	CanSend          bool      `json:"can_send"`
	IsContactRequest bool      `json:"is_contact_request"`
	IsSelfTalk       bool      `json:"is_self_talk"`
	IsDeviceTalk     bool      `json:"is_device_talk"`
	ChatType         string    `json:"chat_type"`
	Color            uint32    `json:"color"`
	MemberCount      int       `json:"member_count"`
	IsPinned         bool      `json:"is_pinned"`
	IsArchived       bool      `json:"is_archived"`
}

// Clone returns a deep copy.
func (c *ChatSummary) Clone() *ChatSummary {
	if c == nil {
		return nil
	}
	dup := *c
	if c.Index != nil {
		idx := *c.Index
		dup.Index = &idx
	}
	return &dup
}

// ChatList is a windowed view over the chats of an account. The window is
// re-fetched wholesale on every structural change.
type ChatList struct {
	Range Range         `json:"range"`
	Len   int           `json:"len"`
	Chats []ChatSummary `json:"chats"`
}

// Clone returns a deep copy.
func (l ChatList) Clone() ChatList {
	dup := l
	if l.Chats != nil {
		dup.Chats = make([]ChatSummary, len(l.Chats))
		for i := range l.Chats {
			dup.Chats[i] = *l.Chats[i].Clone()
		}
	}
	return dup
}

// Find returns the chat with the given id if it is materialized.
func (l ChatList) Find(id uint32) (ChatSummary, bool) {
	for _, c := range l.Chats {
		if c.ID == id {
			return c, true
		}
	}
	return ChatSummary{}, false
}
