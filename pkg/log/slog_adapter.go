package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger.
// Useful for development when you want to see lifecycle events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("category", event.Category.String()),
	}

	if event.ConnectionID != "" {
		attrs = append(attrs, slog.String("conn_id", event.ConnectionID))
	}
	if event.Endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", event.Endpoint))
	}

	switch {
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_phase", event.StateChange.OldPhase),
			slog.String("new_phase", event.StateChange.NewPhase),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Probe != nil:
		attrs = append(attrs, slog.Bool("success", event.Probe.Success))
		if !event.Probe.Success {
			attrs = append(attrs,
				slog.Int("attempt", event.Probe.Attempt),
				slog.Duration("next_delay", event.Probe.NextDelay),
			)
		}
	case event.ControlMsg != nil:
		attrs = append(attrs,
			slog.String("direction", event.Direction.String()),
			slog.String("ctrl_type", event.ControlMsg.Type.String()),
		)
		if event.ControlMsg.Seq != 0 {
			attrs = append(attrs, slog.Uint64("seq", uint64(event.ControlMsg.Seq)))
		}
		if event.ControlMsg.CloseReason != nil {
			attrs = append(attrs, slog.Uint64("close_reason", uint64(*event.ControlMsg.CloseReason)))
		}
	case event.Frame != nil:
		attrs = append(attrs,
			slog.String("direction", event.Direction.String()),
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Attempts != 0 {
			attrs = append(attrs, slog.Int("attempts", event.Error.Attempts))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "uplink", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
