// Command sonos-log views and analyzes protocol capture files.
//
// Capture files are written by sonos-events with the -protocol-log flag.
//
// Usage:
//
//	sonos-log <command> [flags] <file.evlog>
//
// Commands:
//
//	view     View events in human-readable format
//	export   Export events to JSONL or CSV
//	filter   Write matching events to a new capture file
//	stats    Show statistics about the capture
//
// Examples:
//
//	# View all events
//	sonos-log view events.evlog
//
//	# View only notifications for one subscription
//	sonos-log view -category notify -sid uuid:RINCON_123_sub0000000001 events.evlog
//
//	# Export lease exchanges as CSV
//	sonos-log export -format csv -category lease events.evlog
//
//	# Keep only the last hour of topology events
//	sonos-log filter -endpoint /ZoneGroupTopology/Event -time-start 2026-10-18T09:00:00Z -o topo.evlog events.evlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/faytom/node-sonos/cmd/sonos-log/commands"
)

const usage = `sonos-log - UPnP event capture analyzer

Usage:
  sonos-log <command> [flags] <file.evlog>

Commands:
  view     View events in human-readable format
  export   Export events to JSONL or CSV
  filter   Write matching events to a new capture file
  stats    Show statistics about the capture

Use "sonos-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// filterFlags registers the shared filter flags on fs.
func filterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	opts := &commands.FilterOptions{}
	fs.StringVar(&opts.ListenerID, "listener-id", "", "Filter by listener ID")
	fs.StringVar(&opts.SID, "sid", "", "Filter by subscription ID")
	fs.StringVar(&opts.Endpoint, "endpoint", "", "Filter by event endpoint path")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (lease, notify, state, error)")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	return opts
}

func newFlagSet(name, summary, usageLine string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "sonos-log %s - %s\n\nUsage:\n  %s\n\nFlags:\n", name, summary, usageLine)
		fs.PrintDefaults()
	}
	return fs
}

func requirePath(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runView(args []string) {
	fs := newFlagSet("view", "View events in human-readable format", "sonos-log view [flags] <file.evlog>")
	opts := filterFlags(fs)
	path := requirePath(fs, args)

	if err := commands.RunView(path, *opts, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export events to JSONL or CSV", "sonos-log export [flags] <file.evlog>")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	opts := filterFlags(fs)
	path := requirePath(fs, args)

	if err := commands.RunExport(path, *format, *output, *opts); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Write matching events to a new capture file", "sonos-log filter [flags] -o <out.evlog> <file.evlog>")
	output := fs.String("o", "", "Output file (required)")
	opts := filterFlags(fs)
	path := requirePath(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	n, err := commands.RunFilter(path, *output, *opts)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", n, *output)
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show statistics about the capture", "sonos-log stats <file.evlog>")
	path := requirePath(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
