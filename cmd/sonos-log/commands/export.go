package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/faytom/node-sonos/pkg/log"
)

// RunExport exports the events of path matching opts in format (jsonl or
// csv) to output, or stdout when output is empty.
func RunExport(path, format, output string, opts FilterOptions) error {
	if format != "jsonl" && format != "csv" {
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := openFiltered(path, opts)
	if err != nil {
		return err
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if format == "csv" {
		return exportCSV(reader, w)
	}
	return exportJSONL(reader, w)
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	return each(reader, func(event log.Event) error {
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		return nil
	})
}

var csvHeader = []string{"timestamp", "listener_id", "direction", "category", "remote", "endpoint", "sid", "type", "status", "detail"}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	return each(reader, func(event log.Event) error {
		status, detail := "", ""
		switch {
		case event.Exchange != nil:
			status = strconv.Itoa(event.Exchange.StatusCode)
			detail = event.Exchange.Timeout
			if event.Exchange.Seq != nil {
				detail = "seq=" + strconv.FormatUint(uint64(*event.Exchange.Seq), 10)
			}
		case event.StateChange != nil:
			detail = event.StateChange.NewState
		case event.Error != nil:
			detail = event.Error.Message
		}

		row := []string{
			event.Timestamp.UTC().Format(timestampLayout),
			event.ListenerID,
			event.Direction.String(),
			event.Category.String(),
			event.RemoteAddr,
			event.Endpoint,
			event.SID,
			typeLabel(event),
			status,
			detail,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		return nil
	})
}
