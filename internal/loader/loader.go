package loader

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"wagewatch/pipeline/internal/errors"
	"wagewatch/pipeline/internal/models"
	"wagewatch/pipeline/internal/telemetry"

	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("wagewatch/pipeline/loader")

// expectedColumns is the exact survey layout, in order. Header names are
// compared case-insensitively with surrounding space ignored.
var expectedColumns = []string{"occupation", "state", "area", "tier_label", "hourly_rate", "yearly_rate"}

// WageReplacer is the slice of the wage store the loader needs.
type WageReplacer interface {
	Replace(ctx context.Context, entries []models.WageReferenceEntry, batchSize int) error
}

// Summary reports one import run.
type Summary struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// Loader bulk-imports a government wage survey CSV, replacing the
// reference table wholesale. Pure column validation and rate parsing; no
// business logic.
type Loader struct {
	wages     WageReplacer
	batchSize int
	logger    *zap.Logger
}

func New(wages WageReplacer, batchSize int, logger *zap.Logger) *Loader {
	return &Loader{wages: wages, batchSize: batchSize, logger: logger}
}

// LoadCSV validates the header, parses every row and replaces the
// reference table. Malformed rows are counted and skipped; a malformed
// header fails the whole import before anything is touched.
func (l *Loader) LoadCSV(ctx context.Context, r io.Reader) (Summary, error) {
	ctx, span := tracer.Start(ctx, "Loader.LoadCSV")
	defer span.End()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return Summary{}, errors.InvalidInput("reading survey header", err)
	}
	if err := validateHeader(header); err != nil {
		return Summary{}, err
	}

	var summary Summary
	var entries []models.WageReferenceEntry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			summary.Skipped++
			l.logger.Warn("skipping unreadable survey row", zap.Error(err))
			continue
		}

		entry, ok := parseRow(record)
		if !ok {
			summary.Skipped++
			continue
		}
		entries = append(entries, entry)
	}

	if err := l.wages.Replace(ctx, entries, l.batchSize); err != nil {
		span.RecordError(err)
		return summary, err
	}

	summary.Loaded = len(entries)
	span.SetAttributes(
		telemetry.Int("loader.loaded", summary.Loaded),
		telemetry.Int("loader.skipped", summary.Skipped),
	)
	l.logger.Info("wage survey import complete",
		zap.Int("loaded", summary.Loaded),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

func validateHeader(header []string) error {
	if len(header) != len(expectedColumns) {
		return errors.InvalidInput("survey header has wrong column count", nil)
	}
	for i, col := range header {
		if strings.ToLower(strings.TrimSpace(col)) != expectedColumns[i] {
			return errors.InvalidInput("unexpected survey column: "+col, nil)
		}
	}
	return nil
}

func parseRow(record []string) (models.WageReferenceEntry, bool) {
	if len(record) != len(expectedColumns) {
		return models.WageReferenceEntry{}, false
	}

	entry := models.WageReferenceEntry{
		Occupation: strings.TrimSpace(record[0]),
		State:      strings.TrimSpace(record[1]),
		Area:       strings.TrimSpace(record[2]),
		TierLabel:  strings.TrimSpace(record[3]),
		HourlyRate: parseRate(record[4]),
		YearlyRate: parseRate(record[5]),
	}
	if entry.Occupation == "" || entry.TierLabel == "" {
		return models.WageReferenceEntry{}, false
	}
	return entry, true
}

// parseRate reads survey rate text leniently; an unparseable or empty
// rate becomes 0 rather than failing the row.
func parseRate(raw string) float64 {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return value
}
