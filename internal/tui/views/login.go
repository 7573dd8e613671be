package views

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/dchat/internal/command"
	"github.com/matheus3301/dchat/internal/projection"
	"github.com/matheus3301/dchat/internal/tui/ui"
	"github.com/rivo/tview"
)

const (
	fieldEmail    = "Address"
	fieldPassword = "Password"
	fieldBackup   = "Backup file"
)

// LoginForm adds an account by logging in or by importing a backup.
type LoginForm struct {
	*tview.Form
	onSubmit func(cmd command.Command)
	onError  func(err error)
	onCancel func()
}

func NewLoginForm(theme *ui.Theme) *LoginForm {
	form := tview.NewForm()
	form.SetBorder(true)
	form.SetBorderColor(theme.BorderColor)
	form.SetBackgroundColor(theme.BgColor)
	form.SetTitleColor(theme.TitleColor)
	form.SetFieldBackgroundColor(tcell.ColorDarkSlateGray)
	form.SetLabelColor(theme.MenuKeyColor)
	form.SetButtonBackgroundColor(theme.BorderColor)

	lf := &LoginForm{Form: form}
	form.AddInputField(fieldEmail, "", 40, nil, nil).
		AddPasswordField(fieldPassword, "", 40, '*', nil).
		AddInputField(fieldBackup, "", 40, nil, nil).
		AddButton("Login", func() { lf.submit(lf.loginCommand) }).
		AddButton("Import", func() { lf.submit(lf.importCommand) }).
		AddButton("Cancel", func() {
			if lf.onCancel != nil {
				lf.onCancel()
			}
		})
	form.SetCancelFunc(func() {
		if lf.onCancel != nil {
			lf.onCancel()
		}
	})
	lf.SetFirstAccount(false)
	return lf
}

func (lf *LoginForm) Name() string { return "Add account" }

func (lf *LoginForm) Render(projection.State) {}

// SetFirstAccount switches the title between adding the first account and
// adding another one.
func (lf *LoginForm) SetFirstAccount(first bool) {
	if first {
		lf.SetTitle(" Welcome: add your first account ")
		return
	}
	lf.SetTitle(" Add account ")
}

// SetOnSubmit receives a Login or ImportAccount command.
func (lf *LoginForm) SetOnSubmit(fn func(cmd command.Command)) { lf.onSubmit = fn }

// SetOnError receives validation errors.
func (lf *LoginForm) SetOnError(fn func(err error)) { lf.onError = fn }

func (lf *LoginForm) SetOnCancel(fn func()) { lf.onCancel = fn }

func (lf *LoginForm) text(label string) string {
	if f, ok := lf.GetFormItemByLabel(label).(*tview.InputField); ok {
		return strings.TrimSpace(f.GetText())
	}
	return ""
}

// Reset clears all fields.
func (lf *LoginForm) Reset() {
	for _, label := range []string{fieldEmail, fieldPassword, fieldBackup} {
		if f, ok := lf.GetFormItemByLabel(label).(*tview.InputField); ok {
			f.SetText("")
		}
	}
	lf.SetFocus(0)
}

func (lf *LoginForm) submit(build func() (command.Command, error)) {
	cmd, err := build()
	if err != nil {
		if lf.onError != nil {
			lf.onError(err)
		}
		return
	}
	if lf.onSubmit != nil {
		lf.onSubmit(cmd)
	}
	lf.Reset()
}

func (lf *LoginForm) loginCommand() (command.Command, error) {
	return loginCommand(lf.text(fieldEmail), lf.text(fieldPassword))
}

func (lf *LoginForm) importCommand() (command.Command, error) {
	path := lf.text(fieldBackup)
	if path == "" {
		return nil, errors.New("backup file is required")
	}
	return command.ImportAccount{Path: path}, nil
}

func loginCommand(email, password string) (command.Command, error) {
	if email == "" || password == "" {
		return nil, errors.New("address and password are required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return nil, errors.New("invalid address: " + email)
	}
	return command.Login{Email: addr.Address, Password: password}, nil
}
