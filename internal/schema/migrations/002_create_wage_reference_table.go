package migrations

import "wagewatch/pipeline/internal/schema"

var CreateWageReferenceTable = schema.Migration{
	Version:     2,
	Description: "Create wage reference table",
	Up: `
		CREATE TABLE IF NOT EXISTS wage_reference (
			occupation String,
			state String,
			area String,
			tier_label String,
			hourly_rate Float64,
			yearly_rate Float64
		) ENGINE = MergeTree()
		ORDER BY (occupation, state, area, tier_label)
		SETTINGS index_granularity = 8192
	`,
	Down: `DROP TABLE IF EXISTS wage_reference`,
}

// All returns the migration list in apply order.
func All() []schema.Migration {
	return []schema.Migration{
		CreateJobsTable,
		CreateWageReferenceTable,
	}
}
