package log

// Logger is the interface applications implement to receive connection
// lifecycle events. Pass nil or NoopLogger to disable event logging.
type Logger interface {
	// Log records an event. Implementations must be thread-safe.
	// The event should be processed quickly or queued; blocking stalls
	// the prober and supervisor loops.
	Log(event Event)
}

// NoopLogger discards all events. Use when event logging is disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Tee fans each event out to every sink, in order. Zero sinks collapse
// to a NoopLogger and a single sink is returned unwrapped, so callers
// can assemble their sink list without special-casing.
func Tee(sinks ...Logger) Logger {
	switch len(sinks) {
	case 0:
		return NoopLogger{}
	case 1:
		return sinks[0]
	default:
		return teeLogger(sinks)
	}
}

type teeLogger []Logger

func (t teeLogger) Log(event Event) {
	for _, l := range t {
		l.Log(event)
	}
}

// Compile-time interface satisfaction checks.
var (
	_ Logger = NoopLogger{}
	_ Logger = teeLogger(nil)
)
