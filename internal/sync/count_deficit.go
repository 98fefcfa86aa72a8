package sync

import "wagewatch/pipeline/internal/models"

// CountDeficit reconciles by duplicate count under the url+role-name key.
// Sources legitimately carry duplicate postings; for every key where the
// source holds more copies than the target, exactly the deficit is
// inserted. The records chosen are the tail of the source group as
// fetched (descending date order), a best-effort heuristic for "the
// copies the target has not seen yet". Target surpluses are ignored.
type CountDeficit struct{}

func (CountDeficit) Name() string {
	return "count_deficit"
}

func (CountDeficit) Missing(source []models.JobPosting, targetKeys []models.KeyRow) []models.JobPosting {
	targetCounts := make(map[string]int, len(targetKeys))
	for _, k := range targetKeys {
		targetCounts[k.DedupKey()]++
	}

	groups := make(map[string][]models.JobPosting)
	var order []string
	for _, p := range source {
		key := p.DedupKey()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], p)
	}

	var missing []models.JobPosting
	for _, key := range order {
		group := groups[key]
		deficit := len(group) - targetCounts[key]
		if deficit <= 0 {
			continue
		}
		missing = append(missing, group[len(group)-deficit:]...)
	}
	return missing
}
