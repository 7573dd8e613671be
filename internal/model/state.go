package model

import "maps"

// SharedState is the root of the projection: accounts, accumulated errors and
// the current selection.
type SharedState struct {
	Accounts        map[uint32]Account `json:"accounts"`
	Errors          []string           `json:"errors"`
	SelectedAccount *uint32            `json:"selected_account,omitempty"`
	SelectedChatID  *uint32            `json:"selected_chat_id,omitempty"`
	SelectedChat    *ChatSummary       `json:"selected_chat,omitempty"`
	DetailAccount   *uint32            `json:"detail_account,omitempty"`
}

// Clone returns a deep copy.
func (s SharedState) Clone() SharedState {
	dup := SharedState{
		Accounts:        maps.Clone(s.Accounts),
		SelectedAccount: cloneID(s.SelectedAccount),
		SelectedChatID:  cloneID(s.SelectedChatID),
		SelectedChat:    s.SelectedChat.Clone(),
		DetailAccount:   cloneID(s.DetailAccount),
	}
	if s.Errors != nil {
		dup.Errors = append([]string(nil), s.Errors...)
	}
	return dup
}

// IsSelectedAccount reports whether id is the selected account.
func (s SharedState) IsSelectedAccount(id uint32) bool {
	return s.SelectedAccount != nil && *s.SelectedAccount == id
}

// IsSelectedChat reports whether id is the selected chat.
func (s SharedState) IsSelectedChat(id uint32) bool {
	return s.SelectedChatID != nil && *s.SelectedChatID == id
}

// ID returns a pointer to a copy of id, for the optional id fields.
func ID(id uint32) *uint32 { return &id }

func cloneID(id *uint32) *uint32 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
