package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chrissnell/radmon/internal/types"
)

type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ParseFormat validates an export format name
func ParseFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case FormatCSV, FormatJSON:
		return ExportFormat(s), nil
	}
	return "", fmt.Errorf("invalid format: %s. Must be csv or json", s)
}

// BuildQuery returns the select statement and its arguments. Zero bounds are left open.
func BuildQuery(since, until time.Time) (string, []any) {
	var (
		where []string
		args  []any
	)
	if !since.IsZero() {
		args = append(args, since)
		where = append(where, fmt.Sprintf("window_start >= $%d", len(args)))
	}
	if !until.IsZero() {
		args = append(args, until)
		where = append(where, fmt.Sprintf("window_start <= $%d", len(args)))
	}

	query := "SELECT id, window_start, sample_count, alpha_rate, beta_rate, gamma_rate FROM radiation_samples"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY window_start, id", args
}

// ScanSamples drains rows into samples and closes them
func ScanSamples(rows pgx.Rows) ([]types.RadiationSample, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.RadiationSample, error) {
		var s types.RadiationSample
		var id int64
		err := row.Scan(&id, &s.WindowStart, &s.SampleCount, &s.AlphaRate, &s.BetaRate, &s.GammaRate)
		s.ID = uint64(id)
		s.WindowStart = s.WindowStart.UTC()
		return s, err
	})
}

// record is the exported form of a sample; unlike the API form it carries the id
type record struct {
	ID          uint64    `json:"id"`
	WindowStart time.Time `json:"window_start"`
	SampleCount int64     `json:"sample_count"`
	AlphaRate   float64   `json:"alpha_rate"`
	BetaRate    float64   `json:"beta_rate"`
	GammaRate   float64   `json:"gamma_rate"`
}

var csvHeader = []string{"id", "window_start", "sample_count", "alpha_rate", "beta_rate", "gamma_rate"}

// Write renders samples to w in the given format
func Write(w io.Writer, format ExportFormat, samples []types.RadiationSample) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, samples)
	case FormatJSON:
		return writeJSON(w, samples)
	}
	return fmt.Errorf("invalid format: %s", format)
}

func writeCSV(w io.Writer, samples []types.RadiationSample) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, s := range samples {
		err := writer.Write([]string{
			strconv.FormatUint(s.ID, 10),
			s.WindowStart.Format(time.RFC3339Nano),
			strconv.FormatInt(s.SampleCount, 10),
			strconv.FormatFloat(s.AlphaRate, 'g', -1, 64),
			strconv.FormatFloat(s.BetaRate, 'g', -1, 64),
			strconv.FormatFloat(s.GammaRate, 'g', -1, 64),
		})
		if err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeJSON(w io.Writer, samples []types.RadiationSample) error {
	out := make([]record, 0, len(samples))
	for _, s := range samples {
		out = append(out, record(s))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return nil
}
