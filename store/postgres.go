package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/eddielth/campus-telemetry/logger"
)

type postgresDialect struct{}

func (postgresDialect) placeholder(n int) string { return fmt.Sprintf("$%d", n) }
func (postgresDialect) quote(ident string) string { return `"` + ident + `"` }
func (postgresDialect) returning() bool          { return true }

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		device_id VARCHAR(255) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		type VARCHAR(100) NOT NULL,
		location VARCHAR(255),
		protocol VARCHAR(50),
		metadata JSONB,
		status VARCHAR(50) NOT NULL DEFAULT 'offline',
		building VARCHAR(100),
		floor INTEGER,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS telemetry (
		id BIGSERIAL PRIMARY KEY,
		device_id VARCHAR(255) NOT NULL,
		metric VARCHAR(100) NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		unit VARCHAR(50),
		timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_telemetry_device_time ON telemetry (device_id, timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_telemetry_metric ON telemetry (metric)`,
	`CREATE TABLE IF NOT EXISTS rules (
		rule_id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		"condition" JSONB NOT NULL,
		action JSONB,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		alert_id VARCHAR(64) PRIMARY KEY,
		device_id VARCHAR(255),
		rule_id VARCHAR(64),
		severity VARCHAR(50) NOT NULL DEFAULT 'info',
		status VARCHAR(50) NOT NULL DEFAULT 'open',
		message TEXT,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		acknowledged_by VARCHAR(255),
		acknowledged_at TIMESTAMPTZ,
		notes TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts (status)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_time ON alerts (timestamp DESC)`,
}

// NewPostgres opens a PostgreSQL-backed gateway and ensures the schema.
func NewPostgres(dsn string) (Gateway, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("PostgreSQL connection test failed: %v", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Minute * 5)

	s := &sqlStore{db: db, d: postgresDialect{}}
	if err := s.initSchema(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize PostgreSQL schema: %v", err)
	}

	logger.Info("PostgreSQL store initialized")
	return s, nil
}
