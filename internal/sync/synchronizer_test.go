package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"wagewatch/pipeline/internal/errors"
	"wagewatch/pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	records  []models.JobPosting
	failures int   // fetches that fail before the first success
	failWith error // error returned while failures remain
}

func (f *fakeSource) FetchPage(_ context.Context, offset, limit int) ([]models.JobPosting, error) {
	if f.failures > 0 {
		f.failures--
		if f.failWith != nil {
			return nil, f.failWith
		}
		return nil, errors.Transient("source store unreachable", nil)
	}
	if offset >= len(f.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.records) {
		end = len(f.records)
	}
	return f.records[offset:end], nil
}

func (f *fakeSource) Table() string { return "source_jobs" }

type fakeTarget struct {
	records      []models.JobPosting
	failBatches  map[int]bool // batch index -> fail
	batchesSeen  int
	insertedRows []models.JobPosting
}

func (f *fakeTarget) FetchKeyPage(_ context.Context, offset, limit int) ([]models.KeyRow, error) {
	if offset >= len(f.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.records) {
		end = len(f.records)
	}
	var keys []models.KeyRow
	for _, p := range f.records[offset:end] {
		keys = append(keys, models.KeyRow{ID: p.ID, URL: p.URL, RoleName: p.RoleName})
	}
	return keys, nil
}

func (f *fakeTarget) InsertBatch(_ context.Context, batch []models.JobPosting) error {
	idx := f.batchesSeen
	f.batchesSeen++
	if f.failBatches[idx] {
		return errors.Internal("batch rejected", nil)
	}
	f.records = append(f.records, batch...)
	f.insertedRows = append(f.insertedRows, batch...)
	return nil
}

func (f *fakeTarget) Table() string { return "jobs" }

func posting(id, url, role string) models.JobPosting {
	return models.JobPosting{ID: id, URL: url, RoleName: role, DatePosted: "2026-01-0" + id[len(id)-1:]}
}

func defaultOpts() Options {
	return Options{
		PageSize:          2,
		InsertBatchSize:   2,
		FetchRetries:      3,
		RetryDelay:        time.Millisecond,
		PreserveSourceIDs: true,
	}
}

func TestExactIDInsertsOnlyAbsentIDs(t *testing.T) {
	source := &fakeSource{records: []models.JobPosting{
		posting("a1", "u1", "r1"),
		posting("a2", "u2", "r2"),
		posting("a3", "u3", "r3"),
	}}
	target := &fakeTarget{records: []models.JobPosting{
		posting("a2", "u2", "r2"),
		posting("zz", "uz", "rz"), // extra target id, must survive
	}}

	s := New(source, target, ExactID{}, defaultOpts(), zap.NewNop())
	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.SourceRecords)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 0, summary.BatchErrors)

	ids := map[string]int{}
	for _, p := range target.records {
		ids[p.ID]++
	}
	assert.Equal(t, map[string]int{"a1": 1, "a2": 1, "a3": 1, "zz": 1}, ids)
}

func TestExactIDSupersetTargetIsNoOp(t *testing.T) {
	source := &fakeSource{records: []models.JobPosting{posting("a1", "u1", "r1")}}
	target := &fakeTarget{records: []models.JobPosting{
		posting("a1", "u1", "r1"),
		posting("a2", "u2", "r2"),
	}}

	s := New(source, target, ExactID{}, defaultOpts(), zap.NewNop())
	summary, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Inserted)
	assert.Len(t, target.records, 2)
}

func TestInsertedRecordsGetNormalizedDefaults(t *testing.T) {
	src := posting("a1", "u1", "r1")
	src.DatePosted = "null"
	source := &fakeSource{records: []models.JobPosting{src}}
	target := &fakeTarget{}

	s := New(source, target, ExactID{}, defaultOpts(), zap.NewNop())
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, target.insertedRows, 1)
	got := target.insertedRows[0]
	assert.Equal(t, "", got.DatePosted)
	assert.Equal(t, models.DefaultTierLabel, got.WageTierLabel)
	assert.Equal(t, int32(models.DefaultTierNum), got.WageTierNum)
	assert.False(t, got.SyncedAt.IsZero())
}

func TestMintedIDsAreDeterministic(t *testing.T) {
	opts := defaultOpts()
	opts.PreserveSourceIDs = false

	run := func() string {
		source := &fakeSource{records: []models.JobPosting{posting("src-7", "u", "r")}}
		target := &fakeTarget{}
		s := New(source, target, ExactID{}, opts, zap.NewNop())
		_, err := s.Run(context.Background())
		require.NoError(t, err)
		require.Len(t, target.insertedRows, 1)
		return target.insertedRows[0].ID
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
	assert.NotEqual(t, "src-7", first)
}

func TestCountDeficitInsertsTailOfGroup(t *testing.T) {
	// Source has three copies under one key, target one. The two
	// inserted copies must be the tail of the group as fetched. This is
	// a best-effort heuristic, not an exact-match invariant: it assumes
	// the last-fetched duplicates are the ones the target lacks.
	source := &fakeSource{records: []models.JobPosting{
		posting("d1", "u", "r"),
		posting("d2", "u", "r"),
		posting("d3", "u", "r"),
		posting("x1", "other", "r"),
	}}
	target := &fakeTarget{records: []models.JobPosting{
		posting("t1", "u", "r"),
		posting("x9", "other", "r"),
	}}

	s := New(source, target, CountDeficit{}, defaultOpts(), zap.NewNop())
	summary, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Inserted)

	var ids []string
	for _, p := range target.insertedRows {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"d2", "d3"}, ids)
}

func TestCountDeficitNeverExceedsSourceCount(t *testing.T) {
	// Target already has more copies than the source; nothing happens.
	source := &fakeSource{records: []models.JobPosting{posting("d1", "u", "r")}}
	target := &fakeTarget{records: []models.JobPosting{
		posting("t1", "u", "r"),
		posting("t2", "u", "r"),
	}}

	s := New(source, target, CountDeficit{}, defaultOpts(), zap.NewNop())
	summary, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Inserted)
	assert.Len(t, target.records, 2)
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	source := &fakeSource{
		records:  []models.JobPosting{posting("a1", "u1", "r1")},
		failures: 2,
	}
	target := &fakeTarget{}

	s := New(source, target, ExactID{}, defaultOpts(), zap.NewNop())
	summary, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inserted)
}

func TestFetchRetriesExhaustedIsFatal(t *testing.T) {
	source := &fakeSource{
		records:  []models.JobPosting{posting("a1", "u1", "r1")},
		failures: 3,
	}
	target := &fakeTarget{}

	s := New(source, target, ExactID{}, defaultOpts(), zap.NewNop())
	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, target.batchesSeen)
}

func TestFetchNonTransientErrorFailsWithoutRetry(t *testing.T) {
	source := &fakeSource{
		records:  []models.JobPosting{posting("a1", "u1", "r1")},
		failures: 1,
		failWith: errors.Internal("scanning posting row", nil),
	}
	target := &fakeTarget{}

	s := New(source, target, ExactID{}, defaultOpts(), zap.NewNop())
	_, err := s.Run(context.Background())
	require.Error(t, err)
	// the single failure would have been absorbed had it been retried
	assert.Equal(t, 0, target.batchesSeen)
}

func TestBatchFailureDoesNotAbortRemainingBatches(t *testing.T) {
	var records []models.JobPosting
	for i := 0; i < 6; i++ {
		records = append(records, posting(fmt.Sprintf("a%d", i), fmt.Sprintf("u%d", i), "r"))
	}
	source := &fakeSource{records: records}
	target := &fakeTarget{failBatches: map[int]bool{1: true}}

	s := New(source, target, ExactID{}, defaultOpts(), zap.NewNop())
	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Inserted)
	assert.Equal(t, 1, summary.BatchErrors)
	assert.Equal(t, 3, target.batchesSeen)
}
