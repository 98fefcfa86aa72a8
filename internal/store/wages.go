package store

import (
	"context"
	"fmt"

	"wagewatch/pipeline/internal/errors"
	"wagewatch/pipeline/internal/models"
	"wagewatch/pipeline/internal/telemetry"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"
)

// WageStore reads and bulk-replaces the prevailing-wage reference table.
// The resolver only ever reads from it; the loader replaces it wholesale.
type WageStore struct {
	conn   clickhouse.Conn
	table  string
	logger *zap.Logger
}

func NewWageStore(conn clickhouse.Conn, table string, logger *zap.Logger) (*WageStore, error) {
	if table == "" {
		return nil, errors.InvalidInput("wage table name must not be empty", nil)
	}
	return &WageStore{conn: conn, table: table, logger: logger}, nil
}

// Candidates returns survey rows whose occupation contains the category,
// excluding MEAN sentinel rows. State and city are optional filters; the
// resolver relaxes them progressively. Matching is case-insensitive
// substring throughout.
func (s *WageStore) Candidates(ctx context.Context, category, state, city string) ([]models.WageReferenceEntry, error) {
	ctx, span := jobsTracer.Start(ctx, "WageStore.Candidates")
	defer span.End()
	span.SetAttributes(
		telemetry.String("category", category),
		telemetry.String("state", state),
		telemetry.String("city", city),
	)

	query := fmt.Sprintf(`
		SELECT occupation, state, area, tier_label, hourly_rate, yearly_rate
		FROM %s
		WHERE occupation ILIKE ?
		  AND upper(tier_label) NOT LIKE ?
	`, s.table)
	args := []interface{}{"%" + category + "%", "%" + models.MeanTierSentinel + "%"}

	if state != "" {
		query += "  AND state ILIKE ?\n"
		args = append(args, "%"+state+"%")
	}
	if city != "" {
		query += "  AND area ILIKE ?\n"
		args = append(args, "%"+city+"%")
	}
	query += "ORDER BY tier_label ASC"

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Transient(fmt.Sprintf("querying wage candidates from %s", s.table), err)
	}
	defer rows.Close()

	var entries []models.WageReferenceEntry
	for rows.Next() {
		var e models.WageReferenceEntry
		if err := rows.Scan(&e.Occupation, &e.State, &e.Area, &e.TierLabel, &e.HourlyRate, &e.YearlyRate); err != nil {
			return nil, errors.Internal("scanning wage reference row", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Replace swaps the whole reference table for a fresh survey import. This
// is the one place the pipeline truncates anything, and it only ever
// touches the immutable reference data, never job postings.
func (s *WageStore) Replace(ctx context.Context, entries []models.WageReferenceEntry, batchSize int) error {
	ctx, span := jobsTracer.Start(ctx, "WageStore.Replace")
	defer span.End()
	span.SetAttributes(
		telemetry.String("table", s.table),
		telemetry.Int("entries", len(entries)),
	)

	if err := s.conn.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s", s.table)); err != nil {
		return errors.Internal(fmt.Sprintf("truncating %s", s.table), err)
	}

	if batchSize <= 0 {
		batchSize = len(entries)
	}
	for start := 0; start < len(entries); start += batchSize {
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		if err := s.insertBatch(ctx, entries[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *WageStore) insertBatch(ctx context.Context, entries []models.WageReferenceEntry) error {
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf(
		"INSERT INTO %s (occupation, state, area, tier_label, hourly_rate, yearly_rate)", s.table))
	if err != nil {
		return errors.Internal(fmt.Sprintf("preparing wage insert batch for %s", s.table), err)
	}

	for _, e := range entries {
		if err := batch.Append(e.Occupation, e.State, e.Area, e.TierLabel, e.HourlyRate, e.YearlyRate); err != nil {
			return errors.Internal("appending wage entry to batch", err)
		}
	}

	if err := batch.Send(); err != nil {
		return errors.Internal(fmt.Sprintf("sending wage insert batch to %s", s.table), err)
	}
	return nil
}
