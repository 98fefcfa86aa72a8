package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// SyncMode selects the dedup strategy for one table pair.
type SyncMode string

const (
	SyncModeExactID      SyncMode = "exact"
	SyncModeCountDeficit SyncMode = "count"
)

// TablePair is one (source table, target table, mode) reconciliation triple.
type TablePair struct {
	SourceTable string
	TargetTable string
	Mode        SyncMode
}

type Config struct {
	SourceClickHouseDSN      string
	SourceClickHouseUsername string
	SourceClickHousePassword string
	SourceClickHouseDatabase string

	TargetClickHouseDSN      string
	TargetClickHouseUsername string
	TargetClickHousePassword string
	TargetClickHouseDatabase string

	ClickHouseMaxOpenConns int
	ClickHouseMaxIdleConns int
	ClickHouseConnMaxLife  time.Duration

	NATSURL         string
	NATSConnTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	OTLPCollectorURL string

	SyncPageSize      int
	InsertBatchSize   int
	FetchRetries      int
	RetryDelay        time.Duration
	PreserveSourceIDs bool
	TablePairs        []TablePair

	RepairPageSize  int
	RepairRecordCap int
	WageSurveyPath  string
	WageLoadBatch   int
}

func LoadConfig() (*Config, error) {
	config := &Config{
		SourceClickHouseDSN:      getEnvString("SOURCE_CLICKHOUSE_DSN", "localhost:9000"),
		SourceClickHouseUsername: getEnvString("SOURCE_CLICKHOUSE_USERNAME", "default"),
		SourceClickHousePassword: getEnvString("SOURCE_CLICKHOUSE_PASSWORD", ""),
		SourceClickHouseDatabase: getEnvString("SOURCE_CLICKHOUSE_DATABASE", "jobboard_source"),

		TargetClickHouseDSN:      getEnvString("TARGET_CLICKHOUSE_DSN", "localhost:9000"),
		TargetClickHouseUsername: getEnvString("TARGET_CLICKHOUSE_USERNAME", "default"),
		TargetClickHousePassword: getEnvString("TARGET_CLICKHOUSE_PASSWORD", ""),
		TargetClickHouseDatabase: getEnvString("TARGET_CLICKHOUSE_DATABASE", "wagewatch"),

		ClickHouseMaxOpenConns: getEnvInt("CLICKHOUSE_MAX_OPEN_CONNS", 10),
		ClickHouseMaxIdleConns: getEnvInt("CLICKHOUSE_MAX_IDLE_CONNS", 5),
		ClickHouseConnMaxLife:  getEnvDuration("CLICKHOUSE_CONN_MAX_LIFE", time.Hour),

		NATSURL:         getEnvString("NATS_URL", "nats://localhost:4222"),
		NATSConnTimeout: getEnvDuration("NATS_CONN_TIMEOUT", 10*time.Second),

		RedisAddr:     getEnvString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnvString("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 24*time.Hour),

		OTLPCollectorURL: getEnvString("OTLP_COLLECTOR_URL", "localhost:4317"),

		SyncPageSize:      getEnvInt("SYNC_PAGE_SIZE", 1000),
		InsertBatchSize:   getEnvInt("INSERT_BATCH_SIZE", 200),
		FetchRetries:      getEnvInt("FETCH_RETRIES", 3),
		RetryDelay:        getEnvDuration("RETRY_DELAY", 5*time.Second),
		PreserveSourceIDs: getEnvBool("PRESERVE_SOURCE_IDS", true),
		TablePairs:        parseTablePairs(getEnvString("SYNC_TABLE_PAIRS", "jobs:jobs:exact")),

		RepairPageSize:  getEnvInt("REPAIR_PAGE_SIZE", 50),
		RepairRecordCap: getEnvInt("REPAIR_RECORD_CAP", 10000),
		WageSurveyPath:  getEnvString("WAGE_SURVEY_PATH", "wage_survey.csv"),
		WageLoadBatch:   getEnvInt("WAGE_LOAD_BATCH", 1000),
	}

	return config, nil
}

// parseTablePairs reads "source:target:mode" triples separated by commas.
// Malformed triples are dropped rather than failing the whole config.
func parseTablePairs(raw string) []TablePair {
	var pairs []TablePair
	for _, part := range strings.Split(raw, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 3 {
			continue
		}
		mode := SyncModeExactID
		if SyncMode(fields[2]) == SyncModeCountDeficit {
			mode = SyncModeCountDeficit
		}
		pairs = append(pairs, TablePair{
			SourceTable: fields[0],
			TargetTable: fields[1],
			Mode:        mode,
		})
	}
	return pairs
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
