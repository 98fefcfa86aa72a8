package schema

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"
)

// Migration is one versioned step of the pipeline's ClickHouse schema,
// currently the jobs and wage_reference tables.
type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

// Migrator applies migrations against the target store in version order
// and records what has been applied in a migrations ledger table. The
// external source store is never migrated from here.
type Migrator struct {
	conn   clickhouse.Conn
	logger *zap.Logger
}

func NewMigrator(conn clickhouse.Conn, logger *zap.Logger) *Migrator {
	return &Migrator{
		conn:   conn,
		logger: logger,
	}
}

func (m *Migrator) CreateMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version Int32,
			description String,
			applied_at DateTime,
			PRIMARY KEY (version)
		) ENGINE = MergeTree()
	`

	if err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations ledger: %w", err)
	}

	return nil
}

// GetAppliedMigrations returns the versions already applied to this
// store, keyed to when they were applied.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	query := "SELECT version, applied_at FROM migrations ORDER BY version"

	rows, err := m.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations ledger: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration ledger row: %w", err)
		}
		applied[version] = appliedAt
	}

	return applied, nil
}

func (m *Migrator) ApplyMigration(ctx context.Context, migration Migration) error {
	m.logger.Debug("applying schema migration",
		zap.Int("version", migration.Version),
		zap.String("description", migration.Description))

	if err := m.conn.Exec(ctx, migration.Up); err != nil {
		return fmt.Errorf("failed to apply schema migration %d (%s): %w",
			migration.Version, migration.Description, err)
	}

	if err := m.conn.Exec(ctx, `
		INSERT INTO migrations (version, description, applied_at)
		VALUES (?, ?, now())
	`, migration.Version, migration.Description); err != nil {
		return fmt.Errorf("failed to record schema migration %d in ledger: %w", migration.Version, err)
	}

	return nil
}

// RollbackMigration runs a migration's Down statement and removes its
// ledger entry. Dropping the jobs table discards synced postings, so
// rollback is an operator-only escape hatch; nothing in the pipeline
// calls it.
func (m *Migrator) RollbackMigration(ctx context.Context, migration Migration) error {
	if err := m.conn.Exec(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback schema migration %d (%s): %w",
			migration.Version, migration.Description, err)
	}

	if err := m.conn.Exec(ctx, "DELETE FROM migrations WHERE version = ?", migration.Version); err != nil {
		return fmt.Errorf("failed to remove schema migration %d from ledger: %w", migration.Version, err)
	}

	return nil
}
