package model

import "fmt"

// LoginState enumerates the authentication states of an account.
type LoginState string

const (
	LoginNotStarted LoginState = "NOT_STARTED"
	LoginInProgress LoginState = "IN_PROGRESS"
	LoginSucceeded  LoginState = "SUCCEEDED"
	LoginFailed     LoginState = "FAILED"
)

// ProgressDone is the configure/import progress value that signals success.
const ProgressDone = 1000

// Login is the authentication state of one account. Progress is only
// meaningful while InProgress, Reason only when Failed.
type Login struct {
	State    LoginState `json:"state"`
	Progress int        `json:"progress,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}

// NotStarted returns the initial login state.
func NotStarted() Login { return Login{State: LoginNotStarted} }

// InProgress returns an intermediate login state at the given permille.
func InProgress(p int) Login { return Login{State: LoginInProgress, Progress: p} }

// Succeeded returns the successful login state.
func Succeeded() Login { return Login{State: LoginSucceeded} }

// Failed returns a failed login state with the given reason.
func Failed(reason string) Login { return Login{State: LoginFailed, Reason: reason} }

// Terminal reports whether no further progress transitions are expected.
func (l Login) Terminal() bool {
	return l.State == LoginSucceeded || l.State == LoginFailed
}

func (l Login) String() string {
	switch l.State {
	case LoginInProgress:
		return fmt.Sprintf("logging in (%d%%)", l.Progress/10)
	case LoginSucceeded:
		return "online"
	case LoginFailed:
		return "failed: " + l.Reason
	default:
		return "offline"
	}
}

// Account is the projection summary of one messaging identity.
type Account struct {
	Login        Login  `json:"login"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// Label returns the display name, falling back to the address.
func (a Account) Label() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Email
}

// AccountInfo is what the backend reports about a single account.
type AccountInfo struct {
	ID             uint32       `json:"id"`
	Email          string       `json:"email"`
	DisplayName    string       `json:"display_name,omitempty"`
	ProfileImage   string       `json:"profile_image,omitempty"`
	Configured     bool         `json:"configured"`
	SelectedChatID uint32       `json:"selected_chat_id,omitempty"`
	SelectedChat   *ChatSummary `json:"selected_chat,omitempty"`
}
