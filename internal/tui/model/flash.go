package model

import (
	"sync"
	"time"
)

// FlashLevel is the severity of a flash message.
type FlashLevel int

const (
	FlashInfo FlashLevel = iota
	FlashWarn
	FlashErr
)

// FlashMessage is a transient notification.
type FlashMessage struct {
	Text    string
	Level   FlashLevel
	Expires time.Time
}

// Flash holds the current notification. The newest message replaces the
// previous one.
type Flash struct {
	mu      sync.RWMutex
	current FlashMessage
	now     func() time.Time
}

// NewFlash creates an empty flash.
func NewFlash() *Flash {
	return &Flash{now: time.Now}
}

func (f *Flash) Info(msg string) { f.Set(msg, FlashInfo, 4*time.Second) }

func (f *Flash) Warn(msg string) { f.Set(msg, FlashWarn, 8*time.Second) }

func (f *Flash) Err(err error) { f.Set(err.Error(), FlashErr, 10*time.Second) }

// Set stores msg until d has passed.
func (f *Flash) Set(msg string, level FlashLevel, d time.Duration) {
	f.mu.Lock()
	f.current = FlashMessage{Text: msg, Level: level, Expires: f.now().Add(d)}
	f.mu.Unlock()
}

// Current returns the message, or nil once it expired.
func (f *Flash) Current() *FlashMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.current.Text == "" || !f.now().Before(f.current.Expires) {
		return nil
	}
	m := f.current
	return &m
}
