package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/eddielth/campus-telemetry/logger"
)

type mysqlDialect struct{}

func (mysqlDialect) placeholder(int) string     { return "?" }
func (mysqlDialect) quote(ident string) string  { return "`" + ident + "`" }
func (mysqlDialect) returning() bool            { return false }

// MySQL has no CREATE INDEX IF NOT EXISTS, so indexes live in the table
// definitions.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		device_id VARCHAR(255) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		type VARCHAR(100) NOT NULL,
		location VARCHAR(255),
		protocol VARCHAR(50),
		metadata JSON,
		status VARCHAR(50) NOT NULL DEFAULT 'offline',
		building VARCHAR(100),
		floor INT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS telemetry (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		device_id VARCHAR(255) NOT NULL,
		metric VARCHAR(100) NOT NULL,
		value DOUBLE NOT NULL,
		unit VARCHAR(50),
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_telemetry_device_time (device_id, timestamp DESC),
		INDEX idx_telemetry_metric (metric)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"CREATE TABLE IF NOT EXISTS rules (" +
		"rule_id VARCHAR(64) PRIMARY KEY, " +
		"name VARCHAR(255) NOT NULL, " +
		"`condition` JSON NOT NULL, " +
		"action JSON, " +
		"enabled BOOLEAN NOT NULL DEFAULT TRUE, " +
		"created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
	`CREATE TABLE IF NOT EXISTS alerts (
		alert_id VARCHAR(64) PRIMARY KEY,
		device_id VARCHAR(255),
		rule_id VARCHAR(64),
		severity VARCHAR(50) NOT NULL DEFAULT 'info',
		status VARCHAR(50) NOT NULL DEFAULT 'open',
		message TEXT,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		acknowledged_by VARCHAR(255),
		acknowledged_at DATETIME,
		notes TEXT,
		INDEX idx_alerts_status (status),
		INDEX idx_alerts_time (timestamp DESC)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// NewMySQL opens a MySQL-backed gateway and ensures the schema. The DSN
// must carry parseTime=true so DATETIME columns scan into time.Time.
func NewMySQL(dsn string) (Gateway, error) {
	if !strings.Contains(dsn, "parseTime") {
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("MySQL connection test failed: %v", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Minute * 5)

	s := &sqlStore{db: db, d: mysqlDialect{}}
	if err := s.initSchema(mysqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize MySQL schema: %v", err)
	}

	logger.Info("MySQL store initialized")
	return s, nil
}
