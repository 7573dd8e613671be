package ui

import (
	"slices"

	"github.com/rivo/tview"
)

// Pages is a navigation stack over tview.Pages. The top of the stack is
// the visible page.
type Pages struct {
	*tview.Pages
	stack    []string
	onChange func(stack []string)
}

func NewPages() *Pages {
	return &Pages{Pages: tview.NewPages()}
}

// SetOnChange registers a callback for stack changes.
func (p *Pages) SetOnChange(fn func(stack []string)) {
	p.onChange = fn
}

// Push shows name on top of the stack. A page already on the stack is
// returned to instead, dropping everything above it.
func (p *Pages) Push(name string) {
	if i := slices.Index(p.stack, name); i >= 0 {
		for _, above := range p.stack[i+1:] {
			p.HidePage(above)
		}
		p.stack = p.stack[:i+1]
	} else {
		p.stack = append(p.stack, name)
	}
	p.SwitchToPage(name)
	p.notify()
}

// Pop returns to the previous page. The last page is never popped.
func (p *Pages) Pop() string {
	if len(p.stack) < 2 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	p.SwitchToPage(p.Current())
	p.notify()
	return top
}

// Current returns the visible page.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Stack returns a copy of the navigation stack, bottom first.
func (p *Pages) Stack() []string {
	return slices.Clone(p.stack)
}

// Reset makes name the only page on the stack.
func (p *Pages) Reset(name string) {
	p.stack = []string{name}
	p.SwitchToPage(name)
	p.notify()
}

func (p *Pages) notify() {
	if p.onChange != nil {
		p.onChange(p.Stack())
	}
}
