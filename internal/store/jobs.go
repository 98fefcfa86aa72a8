package store

import (
	"context"
	"fmt"
	"time"

	"wagewatch/pipeline/internal/errors"
	"wagewatch/pipeline/internal/models"
	"wagewatch/pipeline/internal/telemetry"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"
)

var jobsTracer = telemetry.GetTracer("wagewatch/pipeline/store")

const jobColumns = "id, title, company, location, url, salary, role_name, date_posted, wage_tier_label, wage_tier_num, synced_at"

// JobStore reads and writes one job-postings table. The write surface is
// insert and upsert only; the additive-only policy is enforced by not
// having a delete operation at all.
type JobStore struct {
	conn   clickhouse.Conn
	table  string
	logger *zap.Logger
}

func NewJobStore(conn clickhouse.Conn, table string, logger *zap.Logger) (*JobStore, error) {
	if table == "" {
		return nil, errors.InvalidInput("job table name must not be empty", nil)
	}
	return &JobStore{conn: conn, table: table, logger: logger}, nil
}

func (s *JobStore) Table() string {
	return s.table
}

// FetchPage returns one page of full postings, newest first. The jobs
// table is a ReplacingMergeTree, so reads go through FINAL to see the
// latest version of each id.
func (s *JobStore) FetchPage(ctx context.Context, offset, limit int) ([]models.JobPosting, error) {
	ctx, span := jobsTracer.Start(ctx, "JobStore.FetchPage")
	defer span.End()
	span.SetAttributes(
		telemetry.String("table", s.table),
		telemetry.Int("offset", offset),
		telemetry.Int("limit", limit),
	)

	query := fmt.Sprintf(`
		SELECT %s FROM %s FINAL
		ORDER BY date_posted DESC, id DESC
		LIMIT ? OFFSET ?
	`, jobColumns, s.table)

	return s.fetchPostings(ctx, query, limit, offset)
}

// FetchDefaultTierPage returns one page of postings still carrying the
// default tier label, newest first.
func (s *JobStore) FetchDefaultTierPage(ctx context.Context, offset, limit int) ([]models.JobPosting, error) {
	ctx, span := jobsTracer.Start(ctx, "JobStore.FetchDefaultTierPage")
	defer span.End()
	span.SetAttributes(
		telemetry.String("table", s.table),
		telemetry.Int("offset", offset),
	)

	query := fmt.Sprintf(`
		SELECT %s FROM %s FINAL
		WHERE wage_tier_label = ?
		ORDER BY date_posted DESC, id DESC
		LIMIT ? OFFSET ?
	`, jobColumns, s.table)

	return s.fetchPostings(ctx, query, models.DefaultTierLabel, limit, offset)
}

// FetchKeyPage returns one page of the dedup-key projection, in the same
// descending order as FetchPage.
func (s *JobStore) FetchKeyPage(ctx context.Context, offset, limit int) ([]models.KeyRow, error) {
	ctx, span := jobsTracer.Start(ctx, "JobStore.FetchKeyPage")
	defer span.End()
	span.SetAttributes(
		telemetry.String("table", s.table),
		telemetry.Int("offset", offset),
	)

	query := fmt.Sprintf(`
		SELECT id, url, role_name FROM %s FINAL
		ORDER BY date_posted DESC, id DESC
		LIMIT ? OFFSET ?
	`, s.table)

	rows, err := s.conn.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, errors.Transient(fmt.Sprintf("querying key page from %s", s.table), err)
	}
	defer rows.Close()

	var keys []models.KeyRow
	for rows.Next() {
		var k models.KeyRow
		if err := rows.Scan(&k.ID, &k.URL, &k.RoleName); err != nil {
			return nil, errors.Internal("scanning key row", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// InsertBatch appends a batch of postings. Callers are expected to have
// applied defaults already.
func (s *JobStore) InsertBatch(ctx context.Context, postings []models.JobPosting) error {
	if len(postings) == 0 {
		return nil
	}

	ctx, span := jobsTracer.Start(ctx, "JobStore.InsertBatch")
	defer span.End()
	span.SetAttributes(
		telemetry.String("table", s.table),
		telemetry.Int("batch.size", len(postings)),
	)

	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s (%s)", s.table, jobColumns))
	if err != nil {
		return errors.Internal(fmt.Sprintf("preparing insert batch for %s", s.table), err)
	}

	for _, p := range postings {
		if err := batch.Append(
			p.ID, p.Title, p.Company, p.Location, p.URL, p.Salary,
			p.RoleName, p.DatePosted, p.WageTierLabel, p.WageTierNum, p.SyncedAt,
		); err != nil {
			return errors.Internal("appending posting to batch", err)
		}
	}

	if err := batch.Send(); err != nil {
		return errors.Internal(fmt.Sprintf("sending insert batch to %s", s.table), err)
	}
	return nil
}

// UpsertBatch replaces postings by id. The table's ReplacingMergeTree
// engine keyed on id collapses to the row with the newest synced_at, so
// an upsert is an insert with a bumped stamp. Returns the number of rows
// written.
func (s *JobStore) UpsertBatch(ctx context.Context, postings []models.JobPosting) (int, error) {
	if len(postings) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	stamped := make([]models.JobPosting, len(postings))
	for i, p := range postings {
		p.SyncedAt = now
		stamped[i] = p
	}

	if err := s.InsertBatch(ctx, stamped); err != nil {
		return 0, err
	}
	return len(stamped), nil
}

func (s *JobStore) fetchPostings(ctx context.Context, query string, args ...interface{}) ([]models.JobPosting, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Transient(fmt.Sprintf("querying postings from %s", s.table), err)
	}
	defer rows.Close()

	var postings []models.JobPosting
	for rows.Next() {
		var p models.JobPosting
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Company, &p.Location, &p.URL, &p.Salary,
			&p.RoleName, &p.DatePosted, &p.WageTierLabel, &p.WageTierNum, &p.SyncedAt,
		); err != nil {
			return nil, errors.Internal("scanning posting row", err)
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}
