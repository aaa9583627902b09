package progress

// Severity classifies an Outcome for presentation.
type Severity int

const (
	// SeverityInfo is a normal confirmation.
	SeverityInfo Severity = iota
	// SeverityDestructive is a failure or refused operation.
	SeverityDestructive
)

// String returns a human-readable representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityDestructive:
		return "destructive"
	default:
		return "unknown"
	}
}

// Outcome is a human-readable result of a status write.
type Outcome struct {
	Title       string
	Description string
	Severity    Severity
}

// Notifier receives outcomes. Notify must not block; the engine does not
// wait for presentation.
type Notifier interface {
	Notify(Outcome)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Outcome)

// Notify implements Notifier.
func (f NotifierFunc) Notify(o Outcome) { f(o) }

type discardNotifier struct{}

func (discardNotifier) Notify(Outcome) {}
