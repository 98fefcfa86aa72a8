package migrations

import "wagewatch/pipeline/internal/schema"

// The ReplacingMergeTree keyed on id is what makes batch upserts an
// insert: the engine collapses duplicate ids to the row with the newest
// synced_at, and reads go through FINAL.
var CreateJobsTable = schema.Migration{
	Version:     1,
	Description: "Create jobs table",
	Up: `
		CREATE TABLE IF NOT EXISTS jobs (
			id String,
			title String,
			company String,
			location String,
			url String,
			salary String,
			role_name String,
			date_posted String,
			wage_tier_label String DEFAULT 'Lv 2',
			wage_tier_num Int32 DEFAULT 2,
			synced_at DateTime,
			PRIMARY KEY (id)
		) ENGINE = ReplacingMergeTree(synced_at)
		ORDER BY (id)
		SETTINGS index_granularity = 8192
	`,
	Down: `DROP TABLE IF EXISTS jobs`,
}
