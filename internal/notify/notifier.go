// Package notify delivers operator notifications about sync outcomes and
// credentials that need attention.
package notify

import (
	"context"
)

// Level ranks how urgently an event needs an operator.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return "info"
	}
}

// Field is a labeled value shown with an event.
type Field struct {
	Name  string
	Value string
}

// Event is one notification.
type Event struct {
	Level    Level
	Title    string
	Message  string
	Platform string
	Fields   []Field
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}
