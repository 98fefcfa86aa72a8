package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"wagewatch/pipeline/internal/cache"
	"wagewatch/pipeline/internal/models"
	"wagewatch/pipeline/internal/parser"
	"wagewatch/pipeline/internal/telemetry"

	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("wagewatch/pipeline/resolver")

// WageSource is the slice of the wage store the resolver needs.
type WageSource interface {
	Candidates(ctx context.Context, category, state, city string) ([]models.WageReferenceEntry, error)
}

// Resolver maps a posting's free-text title, location and salary onto one
// of the four prevailing-wage tiers using the reference survey table.
// Resolution is read-only and idempotent; the caller writes the result
// back into the posting.
type Resolver struct {
	wages    WageSource
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

func New(wages WageSource, c cache.Cache, cacheTTL time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		wages:    wages,
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

type candidate struct {
	tier   int32
	yearly float64
}

// Resolve classifies one posting. A nil result with a nil error means the
// posting is unresolvable (no category or no reference rows); the caller
// must leave the existing tier untouched.
func (r *Resolver) Resolve(ctx context.Context, posting models.JobPosting) (*models.ClassificationResult, error) {
	ctx, span := tracer.Start(ctx, "Resolver.Resolve")
	defer span.End()
	span.SetAttributes(telemetry.String("posting.id", posting.ID))

	category := parser.ClassifyOccupation(posting.Title)
	if category == "" {
		span.SetAttributes(telemetry.String("resolve.outcome", "no_category"))
		return nil, nil
	}
	span.SetAttributes(telemetry.String("resolve.category", category))

	city, state := parser.NormalizeLocation(posting.Location)
	salary, hasSalary := parser.ParseYearlySalary(posting.Salary)

	entries, err := r.candidatesWithRelaxation(ctx, category, state, city)
	if err != nil {
		return nil, err
	}

	candidates := orderedCandidates(entries)
	if len(candidates) == 0 {
		span.SetAttributes(telemetry.String("resolve.outcome", "no_candidates"))
		return nil, nil
	}

	var tier int32
	if hasSalary && salary > 1000 {
		tier = closestBySalary(candidates, salary)
		span.SetAttributes(telemetry.String("resolve.method", "salary_proximity"))
	} else {
		preferred := parser.PreferredTierFromTitle(posting.Title)
		tier = closestByPreference(candidates, preferred)
		span.SetAttributes(telemetry.String("resolve.method", "seniority"))
	}

	span.SetAttributes(telemetry.Int("resolve.tier", int(tier)))
	return &models.ClassificationResult{
		Category:  category,
		TierLabel: models.TierLabelFor(tier),
		TierNum:   tier,
	}, nil
}

// candidatesWithRelaxation tries (state, city), then (state), then no
// geography, stopping at the first attempt that returns any rows.
func (r *Resolver) candidatesWithRelaxation(ctx context.Context, category, state, city string) ([]models.WageReferenceEntry, error) {
	attempts := [][2]string{
		{state, city},
		{state, ""},
		{"", ""},
	}

	var tried [2]string
	first := true
	for _, attempt := range attempts {
		if !first && attempt == tried {
			continue
		}
		first = false
		tried = attempt

		entries, err := r.lookupCandidates(ctx, category, attempt[0], attempt[1])
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			return entries, nil
		}
	}
	return nil, nil
}

// lookupCandidates is a cache-aside wrapper over the wage store. Cache
// failures degrade to a direct query.
func (r *Resolver) lookupCandidates(ctx context.Context, category, state, city string) ([]models.WageReferenceEntry, error) {
	key := fmt.Sprintf("wages:candidates:%s|%s|%s", category, state, city)

	if r.cache != nil {
		var cached entryList
		err := r.cache.Get(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if err != cache.ErrNotFound {
			r.logger.Warn("wage candidate cache error", zap.Error(err))
		}
	}

	entries, err := r.wages.Candidates(ctx, category, state, city)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, entryList(entries), r.cacheTTL); err != nil {
			r.logger.Warn("failed to cache wage candidates", zap.Error(err))
		}
	}
	return entries, nil
}

// orderedCandidates maps tier labels to ordinals, drops sentinel and
// unmappable rows, and sorts ascending by tier keeping fetch order within
// a tier.
func orderedCandidates(entries []models.WageReferenceEntry) []candidate {
	var candidates []candidate
	for _, e := range entries {
		tier := e.TierNum()
		if tier < 1 || tier > 4 {
			continue
		}
		candidates = append(candidates, candidate{tier: tier, yearly: e.YearlyRate})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].tier < candidates[j].tier
	})
	return candidates
}

// closestBySalary picks the tier whose yearly rate is nearest the parsed
// salary. A missing yearly rate counts as 0, so tiers lacking yearly data
// only win for very low salaries. First seen wins ties.
func closestBySalary(candidates []candidate, salary float64) int32 {
	best := candidates[0]
	bestDiff := math.Abs(salary - best.yearly)
	for _, c := range candidates[1:] {
		diff := math.Abs(salary - c.yearly)
		if diff < bestDiff {
			best = c
			bestDiff = diff
		}
	}
	return best.tier
}

// closestByPreference picks the candidate tier nearest the seniority
// preferred tier, resolving ties toward the higher tier.
func closestByPreference(candidates []candidate, preferred int32) int32 {
	best := candidates[0]
	bestDiff := absInt32(best.tier - preferred)
	for _, c := range candidates[1:] {
		diff := absInt32(c.tier - preferred)
		// candidates are sorted ascending, so <= lands ties on the
		// higher tier
		if diff <= bestDiff {
			best = c
			bestDiff = diff
		}
	}
	return best.tier
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// entryList exists so candidate slices can round-trip through the binary
// cache interface.
type entryList []models.WageReferenceEntry

func (l entryList) MarshalBinary() ([]byte, error) {
	return json.Marshal([]models.WageReferenceEntry(l))
}

func (l *entryList) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, (*[]models.WageReferenceEntry)(l))
}
