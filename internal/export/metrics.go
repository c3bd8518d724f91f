package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/talgya/ivle-sim/internal/agents"
	"github.com/talgya/ivle-sim/internal/metrics"
)

// Metrics table columns, named as downstream analysis expects them.
var metricColumns = []string{
	"actor_id", "username",
	"Total Interaction Time", "Interaction Frequency", "Interaction Diversity",
	"Interaction Depth", "Engagement Score", "Engagement Level",
}

// File names written by WriteDir.
const (
	EventsFile     = "interaction_data.csv"
	MetricsFile    = "metrics.csv"
	NormalisedFile = "normalised_results.csv"
)

// WriteMetrics writes a metrics table with a header row.
func WriteMetrics(w io.Writer, rows []metrics.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(metricColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			strconv.FormatUint(uint64(r.ActorID), 10),
			r.ActorName,
			formatFloat(r.TotalInteractionTime),
			formatFloat(r.InteractionFrequency),
			formatFloat(r.InteractionDiversity),
			formatFloat(r.InteractionDepth),
			formatFloat(r.EngagementScore),
			strconv.Itoa(int(r.Level)),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing metrics for actor %d: %w", r.ActorID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadMetrics parses a table written by WriteMetrics.
func ReadMetrics(r io.Reader) ([]metrics.Row, error) {
	reader := csv.NewReader(r)
	colIndex, err := readHeader(reader, metricColumns)
	if err != nil {
		return nil, err
	}

	var rows []metrics.Row
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

		row, err := parseMetricsRow(record, colIndex)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseMetricsRow(record []string, colIndex map[string]int) (metrics.Row, error) {
	var row metrics.Row

	id, err := strconv.ParseUint(getColumn(record, colIndex, "actor_id"), 10, 64)
	if err != nil {
		return row, fmt.Errorf("invalid actor_id: %w", err)
	}
	row.ActorID = agents.ActorID(id)
	row.ActorName = getColumn(record, colIndex, "username")

	fields := []struct {
		col string
		dst *float64
	}{
		{"Total Interaction Time", &row.TotalInteractionTime},
		{"Interaction Frequency", &row.InteractionFrequency},
		{"Interaction Diversity", &row.InteractionDiversity},
		{"Interaction Depth", &row.InteractionDepth},
		{"Engagement Score", &row.EngagementScore},
	}
	for _, f := range fields {
		raw := getColumn(record, colIndex, f.col)
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return row, fmt.Errorf("invalid %s value %q: %w", f.col, raw, err)
		}
		*f.dst = v
	}

	row.Level, err = agents.ParseLevel(getColumn(record, colIndex, "Engagement Level"))
	if err != nil {
		return row, err
	}
	return row, nil
}

// WriteDir writes the event log, raw metrics and normalised metrics into dir,
// creating it if needed.
func WriteDir(dir string, events []agents.Event, raw, normalised []metrics.Row) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err := writeFile(filepath.Join(dir, EventsFile), func(w io.Writer) error {
		return WriteEvents(w, events)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, MetricsFile), func(w io.Writer) error {
		return WriteMetrics(w, raw)
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, NormalisedFile), func(w io.Writer) error {
		return WriteMetrics(w, normalised)
	})
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing file: %w", cerr)
		}
	}()

	if err := fn(f); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
