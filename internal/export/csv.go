// Package export reads and writes event logs and metrics tables as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/ivle-sim/internal/agents"
	"github.com/talgya/ivle-sim/internal/engine"
)

// Event log columns, in file order.
var eventColumns = []string{
	"actor_id", "username", "engagement_level", "timestamp",
	"activity_type", "room", "object", "duration", "details",
}

// WriteEvents writes the event log with a header row.
func WriteEvents(w io.Writer, events []agents.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(eventColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for i, e := range events {
		record := []string{
			strconv.FormatUint(uint64(e.ActorID), 10),
			e.ActorName,
			strconv.Itoa(int(e.Level)),
			engine.SimTime(e.Timestamp),
			string(e.Activity),
			e.Location,
			e.Object,
			FormatDuration(e.Duration),
			e.Detail,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing event %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadEvents parses an event log. The actor_id column is optional: logs
// without it get IDs assigned by order of first appearance of each username.
func ReadEvents(r io.Reader) ([]agents.Event, error) {
	reader := csv.NewReader(r)

	colIndex, err := readHeader(reader, []string{"username", "engagement_level", "timestamp", "activity_type", "room", "duration"})
	if err != nil {
		return nil, err
	}

	ids := make(map[string]agents.ActorID)
	var events []agents.Event
	lineNum := 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		e, err := parseEvent(record, colIndex, ids)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		events = append(events, e)
	}

	return events, nil
}

func parseEvent(record []string, colIndex map[string]int, ids map[string]agents.ActorID) (agents.Event, error) {
	e := agents.Event{
		ActorName: getColumn(record, colIndex, "username"),
		Activity:  agents.Activity(getColumn(record, colIndex, "activity_type")),
		Location:  getColumn(record, colIndex, "room"),
		Object:    getColumn(record, colIndex, "object"),
		Detail:    getColumn(record, colIndex, "details"),
	}

	if raw := getColumn(record, colIndex, "actor_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return e, fmt.Errorf("invalid actor_id %q: %w", raw, err)
		}
		e.ActorID = agents.ActorID(id)
	} else {
		id, ok := ids[e.ActorName]
		if !ok {
			id = agents.ActorID(len(ids) + 1)
			ids[e.ActorName] = id
		}
		e.ActorID = id
	}

	level, err := agents.ParseLevel(getColumn(record, colIndex, "engagement_level"))
	if err != nil {
		return e, err
	}
	e.Level = level

	ts := getColumn(record, colIndex, "timestamp")
	e.Timestamp, err = time.ParseInLocation(engine.TimestampLayout, ts, time.Local)
	if err != nil {
		return e, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}

	e.Duration, err = ParseDuration(getColumn(record, colIndex, "duration"))
	if err != nil {
		return e, err
	}

	return e, nil
}

// readHeader reads the header row and checks the required columns exist.
func readHeader(reader *csv.Reader, required []string) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.TrimSpace(col)] = i
	}

	for _, col := range required {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}
	return colIndex, nil
}

// getColumn safely retrieves a column value from a record.
func getColumn(record []string, colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(record) {
		return record[idx]
	}
	return ""
}

// FormatDuration renders d as HH:MM:SS, truncated to whole seconds.
func FormatDuration(d time.Duration) string {
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ParseDuration parses an HH:MM:SS clock duration.
func ParseDuration(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid duration %q: want HH:MM:SS", s)
	}

	var fields [3]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		fields[i] = n
	}
	return time.Duration(fields[0])*time.Hour +
		time.Duration(fields[1])*time.Minute +
		time.Duration(fields[2])*time.Second, nil
}
