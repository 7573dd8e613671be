// Package keys maps key events to actions, per page and globally.
package keys

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Action is one key binding. Rune is used when Key is tcell.KeyRune.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func()
	// Hidden bindings work but are not listed in the menu.
	Hidden bool
}

// Rune returns a binding for a printable key.
func Rune(r rune, desc string, fn func()) Action {
	return Action{Key: tcell.KeyRune, Rune: r, Description: desc, Handler: fn}
}

// Special returns a binding for a non-printable key.
func Special(k tcell.Key, desc string, fn func()) Action {
	return Action{Key: k, Description: desc, Handler: fn}
}

// Matches reports whether ev triggers the action.
func (a Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Label is the key as shown in the menu.
func (a Action) Label() string {
	if a.Key == tcell.KeyRune {
		return string(a.Rune)
	}
	if name, ok := keyLabels[a.Key]; ok {
		return name
	}
	return fmt.Sprintf("key(%d)", a.Key)
}

var keyLabels = map[tcell.Key]string{
	tcell.KeyEnter:     "Enter",
	tcell.KeyEscape:    "Esc",
	tcell.KeyTab:       "Tab",
	tcell.KeyBacktab:   "S-Tab",
	tcell.KeyPgUp:      "PgUp",
	tcell.KeyPgDn:      "PgDn",
	tcell.KeyCtrlR:     "Ctrl-R",
	tcell.KeyCtrlN:     "Ctrl-N",
	tcell.KeyBackspace: "Bksp",
}

// Hint is a visible binding.
type Hint struct {
	Key         string
	Description string
}

// Registry holds bindings in registration order, so menus are stable.
type Registry struct {
	global []Action
	pages  map[string][]Action
}

func NewRegistry() *Registry {
	return &Registry{pages: make(map[string][]Action)}
}

// AddGlobal registers bindings active on every page.
func (r *Registry) AddGlobal(actions ...Action) {
	r.global = append(r.global, actions...)
}

// Add registers bindings for one page. They take precedence over global
// bindings for the same key.
func (r *Registry) Add(page string, actions ...Action) {
	r.pages[page] = append(r.pages[page], actions...)
}

// Hints lists the visible bindings of page followed by the global ones.
func (r *Registry) Hints(page string) []Hint {
	return append(r.PageHints(page), visible(r.global)...)
}

// PageHints lists the visible bindings of page only.
func (r *Registry) PageHints(page string) []Hint {
	return visible(r.pages[page])
}

// GlobalHints lists the visible global bindings.
func (r *Registry) GlobalHints() []Hint {
	return visible(r.global)
}

func visible(actions []Action) []Hint {
	var hints []Hint
	for _, a := range actions {
		if !a.Hidden {
			hints = append(hints, Hint{Key: a.Label(), Description: a.Description})
		}
	}
	return hints
}

// Handle runs the first binding of page, then of the global set, that
// matches ev. It reports whether one did.
func (r *Registry) Handle(page string, ev *tcell.EventKey) bool {
	for _, list := range [][]Action{r.pages[page], r.global} {
		for _, a := range list {
			if a.Matches(ev) {
				a.Handler()
				return true
			}
		}
	}
	return false
}
