package notifier

import (
	"context"
	"time"
)

// Field is one labeled value inside a rich chat message.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// ButtonStyle selects how an interactive button renders.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = 1
	ButtonDanger  ButtonStyle = 4
)

// Button is an interactive action attached to a message. Clicks come back
// through the provider's interactions callback carrying CustomID.
type Button struct {
	Label    string
	CustomID string
	Style    ButtonStyle
}

// Message is a provider-agnostic rich notification (rendered as an embed by
// the Discord adapter).
type Message struct {
	Title       string
	Description string
	// Color is a 24-bit RGB accent color.
	Color  int
	URL    string
	Fields []Field
	Footer string

	// Buttons are delivered only when the provider channel supports
	// interactive components; fallback paths drop them silently.
	Buttons []Button

	Timestamp time.Time
}

// Notifier delivers a message to the group chat channel. Delivery is
// best-effort: callers treat errors as log-only and must never let them fail
// the mutation that triggered the notification.
type Notifier interface {
	Send(ctx context.Context, msg Message, mentionEveryone bool) error
}
