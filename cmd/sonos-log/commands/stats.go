package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/faytom/node-sonos/pkg/log"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents       int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Subscriptions     map[string]*SubscriptionStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// SubscriptionStats holds statistics for one SID.
type SubscriptionStats struct {
	Endpoint      string
	FirstSeen     time.Time
	LastSeen      time.Time
	Notifications int
	Renewals      int
	Failures      int
}

// Collect reads every event of path into Stats.
func Collect(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Subscriptions:     make(map[string]*SubscriptionStats),
	}

	err = each(reader, func(event log.Event) error {
		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++
		if event.Category == log.CategoryError {
			stats.Errors++
		}

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		if event.SID == "" {
			return nil
		}
		sub, ok := stats.Subscriptions[event.SID]
		if !ok {
			sub = &SubscriptionStats{Endpoint: event.Endpoint, FirstSeen: event.Timestamp}
			stats.Subscriptions[event.SID] = sub
		}
		sub.LastSeen = event.Timestamp

		if ex := event.Exchange; ex != nil {
			switch ex.Kind {
			case log.ExchangeNotify:
				sub.Notifications++
			case log.ExchangeRenew:
				sub.Renewals++
			}
			if ex.Kind != log.ExchangeNotify && ex.StatusCode != 200 {
				sub.Failures++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// RunStats analyzes the capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := Collect(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Total events: %d\n", stats.TotalEvents)
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time range: %s - %s (%s)\n",
			stats.TimeRange.Start.UTC().Format(time.RFC3339),
			stats.TimeRange.End.UTC().Format(time.RFC3339),
			stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
	}
	fmt.Fprintf(w, "Errors: %d\n\n", stats.Errors)

	fmt.Fprintln(w, "By category:")
	for c := log.CategoryLease; c <= log.CategoryError; c++ {
		if n := stats.EventsByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-8s %d\n", c.String(), n)
		}
	}

	fmt.Fprintln(w, "\nBy direction:")
	for _, d := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		fmt.Fprintf(w, "  %-8s %d\n", d.String(), stats.EventsByDirection[d])
	}

	if len(stats.Subscriptions) == 0 {
		return nil
	}
	sids := make([]string, 0, len(stats.Subscriptions))
	for sid := range stats.Subscriptions {
		sids = append(sids, sid)
	}
	sort.Strings(sids)

	fmt.Fprintf(w, "\nSubscriptions (%d):\n", len(sids))
	for _, sid := range sids {
		s := stats.Subscriptions[sid]
		fmt.Fprintf(w, "  %s %s\n", sid, s.Endpoint)
		fmt.Fprintf(w, "    notifications=%d renewals=%d failures=%d active=%s\n",
			s.Notifications, s.Renewals, s.Failures, s.LastSeen.Sub(s.FirstSeen).Round(time.Second))
	}
	return nil
}
