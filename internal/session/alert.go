package session

import (
	"time"

	"go.uber.org/zap"
)

// Alert is a message for the operator. Alerts never stop the session.
type Alert struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// Alerter delivers operator alerts. It is called on the session goroutine
// and must not block.
type Alerter interface {
	Alert(slug string, a Alert)
}

// LogAlerter writes alerts to the log at warn level.
type LogAlerter struct {
	Logger *zap.Logger
}

func (l LogAlerter) Alert(slug string, a Alert) {
	l.Logger.Warn("operator alert", zap.String("slug", slug), zap.String("message", a.Message))
}

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(slug string, a Alert)

func (f AlerterFunc) Alert(slug string, a Alert) { f(slug, a) }
