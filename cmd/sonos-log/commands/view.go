package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/faytom/node-sonos/pkg/log"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// RunView writes the events of path matching opts in human-readable form.
func RunView(path string, opts FilterOptions, w io.Writer) error {
	reader, err := openFiltered(path, opts)
	if err != nil {
		return err
	}
	defer reader.Close()

	return each(reader, func(event log.Event) error {
		formatEvent(w, event)
		return nil
	})
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format(timestampLayout)
	fmt.Fprintf(w, "%s [listener:%s] %-3s %s %s\n",
		ts, shortenID(event.ListenerID), event.Direction.String(), event.Category.String(), typeLabel(event))

	if event.RemoteAddr != "" {
		fmt.Fprintf(w, "  Remote: %s\n", event.RemoteAddr)
	}
	if event.Endpoint != "" {
		fmt.Fprintf(w, "  Endpoint: %s\n", event.Endpoint)
	}
	if event.SID != "" {
		fmt.Fprintf(w, "  SID: %s\n", event.SID)
	}

	switch {
	case event.Exchange != nil:
		formatExchangeDetails(w, event.Exchange)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

func typeLabel(event log.Event) string {
	switch {
	case event.Exchange != nil:
		return event.Exchange.Kind.String()
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenID returns the first 8 characters of an identifier.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatExchangeDetails(w io.Writer, ex *log.ExchangeEvent) {
	if ex.StatusCode != 0 {
		fmt.Fprintf(w, "  Status: %d\n", ex.StatusCode)
	} else {
		fmt.Fprintln(w, "  Status: no response")
	}
	if ex.Timeout != "" {
		fmt.Fprintf(w, "  Timeout: %s\n", ex.Timeout)
	}
	if ex.Seq != nil {
		fmt.Fprintf(w, "  Seq: %d\n", *ex.Seq)
	}
	if ex.Duration != nil {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*ex.Duration))
	}
	if len(ex.Properties) > 0 {
		names := make([]string, 0, len(ex.Properties))
		for name := range ex.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s = %s\n", name, truncate(ex.Properties[name], 120))
		}
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
