// Package translate turns raw backend events into the small set of events
// the engine acts on, updating login state on the way.
package translate

import (
	"fmt"

	"github.com/matheus3301/dchat/internal/model"
	"go.uber.org/zap/zapcore"
)

// Event is a translated event tagged with its account.
type Event struct {
	Account uint32
	Payload Payload
}

// Payload is implemented only by the types in this package.
type Payload interface {
	payload()
}

// ProgressKind classifies a progress report.
type ProgressKind int

const (
	ProgressStep ProgressKind = iota
	ProgressError
	ProgressSuccess
)

// Progress is a configure or import progress report.
type Progress struct {
	Kind ProgressKind
	Step int
}

func (p Progress) String() string {
	switch p.Kind {
	case ProgressError:
		return "error"
	case ProgressSuccess:
		return "success"
	default:
		return fmt.Sprintf("step %d", p.Step)
	}
}

type (
	ConfigureProgress struct{ Progress Progress }
	ImexProgress      struct{ Progress Progress }
	Connected         struct{}
	MessagesChanged   struct{ ChatID uint32 }
	MessageIncoming   struct {
		ChatID uint32
		Title  string
		Body   string
	}
	// Log carries a backend log line to the process logger.
	Log struct {
		Level zapcore.Level
		Text  string
	}
)

func (ConfigureProgress) payload() {}
func (ImexProgress) payload()      {}
func (Connected) payload()         {}
func (MessagesChanged) payload()   {}
func (MessageIncoming) payload()   {}
func (Log) payload()               {}

func progressOf(p int) Progress {
	switch {
	case p <= 0:
		return Progress{Kind: ProgressError}
	case p >= model.ProgressDone:
		return Progress{Kind: ProgressSuccess}
	default:
		return Progress{Kind: ProgressStep, Step: p}
	}
}
