// Package store is the gateway to the relational database. It is the only
// package that issues SQL; callers describe what they want through typed
// inputs and queries, and every caller-supplied value is carried as a bound
// parameter.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/eddielth/campus-telemetry/model"
)

// Type identifies a database backend
type Type string

const (
	// MySQL backend
	MySQL Type = "mysql"
	// PostgreSQL backend
	PostgreSQL Type = "postgresql"
)

// DefaultLimit bounds telemetry query results when the caller gives no limit.
const DefaultLimit = 100

// ErrNotFound is returned when an identity lookup matches no row.
var ErrNotFound = errors.New("no matching row")

// ValidationError reports missing or malformed caller input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// DeviceInput holds the fields accepted at device registration.
type DeviceInput struct {
	DeviceID string                 `json:"deviceId"`
	Name     string                 `json:"name"`
	Type     string                 `json:"type"`
	Location *string                `json:"location"`
	Protocol *string                `json:"protocol"`
	Metadata map[string]interface{} `json:"metadata"`
}

// DeviceQuery holds the optional device list filters. Empty fields
// contribute no predicate.
type DeviceQuery struct {
	Status   string
	Type     string
	Location string
}

// DevicePatch holds the mutable device fields. Nil fields are left
// untouched by an update.
type DevicePatch struct {
	Name     *string                `json:"name"`
	Status   *string                `json:"status"`
	Location *string                `json:"location"`
	Building *string                `json:"building"`
	Floor    *int                   `json:"floor"`
	Metadata map[string]interface{} `json:"metadata"`
}

// TelemetryQuery holds the telemetry filters. DeviceID is mandatory; zero
// times mean an unbounded range.
type TelemetryQuery struct {
	DeviceID string
	Metric   string
	Start    time.Time
	End      time.Time
	Limit    int
}

// RuleInput holds the fields accepted at rule creation; the rule id is
// generated by the store.
type RuleInput struct {
	Name      string                 `json:"name"`
	Condition model.RuleCondition    `json:"condition"`
	Action    map[string]interface{} `json:"action"`
	Enabled   bool                   `json:"enabled"`
}

// AlertQuery holds the optional alert list filters.
type AlertQuery struct {
	Status   string
	Severity string
	Start    time.Time
	End      time.Time
}

// AlertPatch holds the alert fields mutable through acknowledgement. Nil
// fields are left untouched.
type AlertPatch struct {
	Status         *string `json:"status"`
	AcknowledgedBy *string `json:"acknowledgedBy"`
	Notes          *string `json:"notes"`
}

// Gateway exposes the persistence operations for devices, telemetry, rules
// and alerts. All operations are single-row atomic; writes are immediately
// visible to subsequent reads.
type Gateway interface {
	CreateDevice(in DeviceInput) (*model.Device, error)
	Devices(q DeviceQuery) ([]model.Device, error)
	Device(deviceID string) (*model.Device, error)
	UpdateDevice(deviceID string, patch DevicePatch) (*model.Device, error)
	DeleteDevice(deviceID string) error

	InsertTelemetry(rec model.Telemetry) (*model.Telemetry, error)
	Telemetry(q TelemetryQuery) ([]model.Telemetry, error)

	CreateRule(in RuleInput) (*model.Rule, error)
	Rules() ([]model.Rule, error)
	DeleteRule(ruleID string) error

	Alerts(q AlertQuery) ([]model.Alert, error)
	UpdateAlert(alertID string, patch AlertPatch) (*model.Alert, error)

	Close() error
}

// New opens a gateway for the configured backend type
func New(dbType string, dsn string) (Gateway, error) {
	switch Type(dbType) {
	case MySQL:
		return NewMySQL(dsn)
	case PostgreSQL:
		return NewPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}
