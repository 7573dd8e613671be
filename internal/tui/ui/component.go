package ui

import (
	"github.com/matheus3301/dchat/internal/projection"
	"github.com/rivo/tview"
)

// Component is a page of the TUI. Render is called on the UI goroutine
// with the latest projection snapshot.
type Component interface {
	tview.Primitive
	Name() string
	Render(s projection.State)
}
