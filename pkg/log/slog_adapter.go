package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("listener_id", event.ListenerID),
		slog.String("direction", event.Direction.String()),
		slog.String("category", event.Category.String()),
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}
	if event.Endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", event.Endpoint))
	}
	if event.SID != "" {
		attrs = append(attrs, slog.String("sid", event.SID))
	}

	switch {
	case event.Exchange != nil:
		attrs = append(attrs, slog.String("exchange", event.Exchange.Kind.String()))
		if event.Exchange.StatusCode != 0 {
			attrs = append(attrs, slog.Int("status", event.Exchange.StatusCode))
		}
		if event.Exchange.Timeout != "" {
			attrs = append(attrs, slog.String("timeout", event.Exchange.Timeout))
		}
		if event.Exchange.Seq != nil {
			attrs = append(attrs, slog.Uint64("seq", uint64(*event.Exchange.Seq)))
		}
		if len(event.Exchange.Properties) > 0 {
			attrs = append(attrs, slog.Int("properties", len(event.Exchange.Properties)))
		}
		if event.Exchange.Duration != nil {
			attrs = append(attrs, slog.Duration("duration", *event.Exchange.Duration))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs, slog.String("error_msg", event.Error.Message))
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
