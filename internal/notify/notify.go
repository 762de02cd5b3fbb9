package notify

import (
	"github.com/rs/zerolog/log"
)

// Severity classifies user-visible feedback.
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Notifier accepts user-visible feedback. The synchronization core never
// renders its own persistent banners; it hands messages to this collaborator.
type Notifier interface {
	Notify(sev Severity, message string)
}

// Log is a Notifier that writes to the global logger. It stands in for the
// toast container when the core runs headless or under test.
type Log struct{}

func (Log) Notify(sev Severity, message string) {
	switch sev {
	case Error:
		log.Error().Str("channel", "toast").Msg(message)
	case Warning:
		log.Warn().Str("channel", "toast").Msg(message)
	default:
		log.Info().Str("channel", "toast").Msg(message)
	}
}

// Discard drops all notifications.
type Discard struct{}

func (Discard) Notify(Severity, string) {}
