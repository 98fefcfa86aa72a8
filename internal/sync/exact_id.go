package sync

import "wagewatch/pipeline/internal/models"

// ExactID reconciles by record id: any source record whose id the target
// does not hold is missing. Extra target ids are left alone.
type ExactID struct{}

func (ExactID) Name() string {
	return "exact_id"
}

func (ExactID) Missing(source []models.JobPosting, targetKeys []models.KeyRow) []models.JobPosting {
	have := make(map[string]bool, len(targetKeys))
	for _, k := range targetKeys {
		have[k.ID] = true
	}

	var missing []models.JobPosting
	for _, p := range source {
		if !have[p.ID] {
			missing = append(missing, p)
		}
	}
	return missing
}
