package repair

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

// fakeJobStore keeps postings in memory and logs fetch offsets so the
// re-query-same-window behavior can be asserted.
type fakeJobStore struct {
	postings     []models.JobPosting
	fetchOffsets []int
	fetchFails   int   // fetches that fail before the first success
	fetchErr     error // error returned while fetchFails remain
	upsertErr    error
	upserts      int
}

func (f *fakeJobStore) FetchDefaultTierPage(_ context.Context, offset, limit int) ([]models.JobPosting, error) {
	if f.fetchFails > 0 {
		f.fetchFails--
		return nil, f.fetchErr
	}
	f.fetchOffsets = append(f.fetchOffsets, offset)

	var def []models.JobPosting
	for _, p := range f.postings {
		if p.WageTierLabel == models.DefaultTierLabel {
			def = append(def, p)
		}
	}
	if offset >= len(def) {
		return nil, nil
	}
	end := offset + limit
	if end > len(def) {
		end = len(def)
	}
	return def[offset:end], nil
}

func (f *fakeJobStore) UpsertBatch(_ context.Context, batch []models.JobPosting) (int, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.upserts++
	for _, u := range batch {
		for i, p := range f.postings {
			if p.ID == u.ID {
				f.postings[i] = u
			}
		}
	}
	return len(batch), nil
}

// tierByTitle resolves "lvN ..." titles to tier N and everything else to
// no match.
type tierByTitle struct {
	resolveErr error
}

func (r tierByTitle) Resolve(_ context.Context, p models.JobPosting) (*models.ClassificationResult, error) {
	if r.resolveErr != nil {
		return nil, r.resolveErr
	}
	var tier int32
	if _, err := fmt.Sscanf(p.Title, "lv%d", &tier); err != nil || tier < 1 || tier > 4 {
		return nil, nil
	}
	return &models.ClassificationResult{
		Category:  "Software Developers",
		TierLabel: models.TierLabelFor(tier),
		TierNum:   tier,
	}, nil
}

func defaultPosting(id, title string) models.JobPosting {
	return models.JobPosting{
		ID:            id,
		Title:         title,
		WageTierLabel: models.DefaultTierLabel,
		WageTierNum:   models.DefaultTierNum,
	}
}

func testOpts(pageSize, recordCap int) Options {
	return Options{
		PageSize:     pageSize,
		RecordCap:    recordCap,
		FetchRetries: 3,
		RetryDelay:   time.Millisecond,
	}
}

func TestDriverFixesAndCounts(t *testing.T) {
	store := &fakeJobStore{postings: []models.JobPosting{
		defaultPosting("a", "lv3 senior"),
		defaultPosting("b", "unclassifiable"),
		defaultPosting("c", "lv1 junior"),
		defaultPosting("d", "lv2 mid"),
	}}
	driver := NewDriver(store, tierByTitle{}, testOpts(10, 1000), zap.NewNop())

	summary, err := driver.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Checked)
	assert.Equal(t, 2, summary.Fixed) // a and c; d resolved back to the default
	assert.Equal(t, 1, summary.NoMatch)
	assert.Equal(t, 0, summary.WriteErrors)

	byID := map[string]models.JobPosting{}
	for _, p := range store.postings {
		byID[p.ID] = p
	}
	assert.Equal(t, "Lv 3", byID["a"].WageTierLabel)
	assert.Equal(t, models.DefaultTierLabel, byID["b"].WageTierLabel)
	assert.Equal(t, "Lv 1", byID["c"].WageTierLabel)
	assert.Equal(t, models.DefaultTierLabel, byID["d"].WageTierLabel)
}

func TestDriverRequeriesSameOffsetAfterBatch(t *testing.T) {
	store := &fakeJobStore{postings: []models.JobPosting{
		defaultPosting("a", "lv3 one"),
		defaultPosting("b", "lv4 two"),
		defaultPosting("c", "plain"),
	}}
	driver := NewDriver(store, tierByTitle{}, testOpts(2, 1000), zap.NewNop())

	summary, err := driver.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Checked)
	assert.Equal(t, 2, summary.Fixed)
	assert.Equal(t, 1, summary.NoMatch)

	// first window produced changes, so offset 0 is fetched again before
	// the window advances
	require.GreaterOrEqual(t, len(store.fetchOffsets), 2)
	assert.Equal(t, 0, store.fetchOffsets[0])
	assert.Equal(t, 0, store.fetchOffsets[1])
}

func TestDriverNeverDoubleCountsAcrossWindows(t *testing.T) {
	// b stays default across the re-fetch of window 0 and must be
	// checked exactly once.
	store := &fakeJobStore{postings: []models.JobPosting{
		defaultPosting("a", "lv3 one"),
		defaultPosting("b", "plain"),
	}}
	driver := NewDriver(store, tierByTitle{}, testOpts(2, 1000), zap.NewNop())

	summary, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 1, summary.Fixed)
	assert.Equal(t, 1, summary.NoMatch)
}

func TestDriverStopsAtRecordCap(t *testing.T) {
	var postings []models.JobPosting
	for i := 0; i < 20; i++ {
		postings = append(postings, defaultPosting(fmt.Sprintf("p%02d", i), "plain"))
	}
	store := &fakeJobStore{postings: postings}
	driver := NewDriver(store, tierByTitle{}, testOpts(5, 10), zap.NewNop())

	summary, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Checked)
}

func TestDriverRetriesTransientFetchThenFixes(t *testing.T) {
	// One transient failure must not end the run; the fetch is retried
	// and the posting still gets its refined tier.
	store := &fakeJobStore{
		postings:   []models.JobPosting{defaultPosting("a", "lv3 one")},
		fetchFails: 1,
		fetchErr:   errors.Transient("target store unreachable", nil),
	}
	driver := NewDriver(store, tierByTitle{}, testOpts(5, 1000), zap.NewNop())

	summary, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Fixed)
	assert.Equal(t, "Lv 3", store.postings[0].WageTierLabel)
}

func TestDriverTransientFetchExhaustedIsFatal(t *testing.T) {
	store := &fakeJobStore{
		postings:   []models.JobPosting{defaultPosting("a", "lv3 one")},
		fetchFails: 3,
		fetchErr:   errors.Transient("target store unreachable", nil),
	}
	driver := NewDriver(store, tierByTitle{}, testOpts(5, 1000), zap.NewNop())

	summary, err := driver.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, summary.Fixed)
}

func TestDriverNonTransientFetchErrorFailsWithoutRetry(t *testing.T) {
	store := &fakeJobStore{
		postings:   []models.JobPosting{defaultPosting("a", "lv3 one")},
		fetchFails: 1,
		fetchErr:   errors.Internal("scanning posting row", nil),
	}
	driver := NewDriver(store, tierByTitle{}, testOpts(5, 1000), zap.NewNop())

	_, err := driver.Run(context.Background())
	require.Error(t, err)
	// a single failure would have been absorbed had it been retried
	assert.Equal(t, 0, store.upserts)
}

func TestDriverWriteErrorContinuesRun(t *testing.T) {
	store := &fakeJobStore{
		postings:  []models.JobPosting{defaultPosting("a", "lv3 one")},
		upsertErr: errors.Internal("batch rejected", nil),
	}
	driver := NewDriver(store, tierByTitle{}, testOpts(5, 1000), zap.NewNop())

	summary, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.WriteErrors)
	assert.Equal(t, 0, summary.Fixed)
}

func TestDriverEmptyStore(t *testing.T) {
	store := &fakeJobStore{}
	driver := NewDriver(store, tierByTitle{}, testOpts(5, 1000), zap.NewNop())

	summary, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
}
