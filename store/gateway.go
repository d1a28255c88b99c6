package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eddielth/campus-telemetry/logger"
	"github.com/eddielth/campus-telemetry/model"
)

// sqlStore implements Gateway over database/sql for either backend; the
// dialect supplies placeholder and quoting differences.
type sqlStore struct {
	db *sql.DB
	d  dialect
}

const deviceColumns = "device_id, name, type, location, protocol, metadata, status, building, floor, created_at, updated_at"

const telemetryColumns = "id, device_id, metric, value, unit, timestamp"

const alertColumns = "alert_id, device_id, rule_id, severity, status, message, timestamp, acknowledged_by, acknowledged_at, notes"

// ruleColumns quotes the condition column, which is a reserved word on
// MySQL.
func (s *sqlStore) ruleColumns() string {
	return fmt.Sprintf("rule_id, name, %s, action, enabled, created_at", s.d.quote("condition"))
}

// placeholders renders n comma-separated positional parameters.
func (s *sqlStore) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = s.d.placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}

// initSchema executes the backend's table and index statements.
func (s *sqlStore) initSchema(statements []string) error {
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %v", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func marshalJSON(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize metadata: %v", err)
	}
	return data, nil
}

func scanDevice(r rowScanner) (*model.Device, error) {
	var d model.Device
	var metadata []byte
	err := r.Scan(&d.DeviceID, &d.Name, &d.Type, &d.Location, &d.Protocol, &metadata,
		&d.Status, &d.Building, &d.Floor, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &d.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode device metadata: %v", err)
		}
	}
	return &d, nil
}

func scanTelemetry(r rowScanner) (*model.Telemetry, error) {
	var t model.Telemetry
	err := r.Scan(&t.ID, &t.DeviceID, &t.Metric, &t.Value, &t.Unit, &t.Timestamp)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanRule(r rowScanner) (*model.Rule, error) {
	var rule model.Rule
	var condition, action []byte
	err := r.Scan(&rule.RuleID, &rule.Name, &condition, &action, &rule.Enabled, &rule.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(condition) > 0 {
		if err := json.Unmarshal(condition, &rule.Condition); err != nil {
			return nil, fmt.Errorf("failed to decode rule condition: %v", err)
		}
	}
	if len(action) > 0 {
		if err := json.Unmarshal(action, &rule.Action); err != nil {
			return nil, fmt.Errorf("failed to decode rule action: %v", err)
		}
	}
	return &rule, nil
}

func scanAlert(r rowScanner) (*model.Alert, error) {
	var a model.Alert
	err := r.Scan(&a.AlertID, &a.DeviceID, &a.RuleID, &a.Severity, &a.Status, &a.Message,
		&a.Timestamp, &a.AcknowledgedBy, &a.AcknowledgedAt, &a.Notes)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// newRuleID generates a collision-resistant rule identifier. Wall-clock
// schemes collide when two rules are created within the same tick.
func newRuleID() string {
	return "rule-" + uuid.NewString()
}

// deviceFilter builds the WHERE predicates for a device list query.
func deviceFilter(d dialect, q DeviceQuery) *builder {
	b := newBuilder(d)
	if q.Status != "" {
		b.where(fieldStatus, opEqual, q.Status)
	}
	if q.Type != "" {
		b.where(fieldType, opEqual, q.Type)
	}
	if q.Location != "" {
		b.where(fieldLocation, opEqual, q.Location)
	}
	return b
}

// alertFilter builds the WHERE predicates for an alert list query.
func alertFilter(d dialect, q AlertQuery) *builder {
	b := newBuilder(d)
	if q.Status != "" {
		b.where(fieldStatus, opEqual, q.Status)
	}
	if q.Severity != "" {
		b.where(fieldSeverity, opEqual, q.Severity)
	}
	if !q.Start.IsZero() {
		b.where(fieldTimestamp, opAtLeast, q.Start)
	}
	if !q.End.IsZero() {
		b.where(fieldTimestamp, opAtMost, q.End)
	}
	return b
}

// telemetrySQL builds the full telemetry query: mandatory device predicate,
// optional metric and inclusive time range, fixed descending order and a
// bound limit as the final parameter.
func telemetrySQL(d dialect, q TelemetryQuery) (string, []interface{}, error) {
	if q.DeviceID == "" {
		return "", nil, invalidf("missing required field: deviceId")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	b := newBuilder(d)
	b.where(fieldDeviceID, opEqual, q.DeviceID)
	if q.Metric != "" {
		b.where(fieldMetric, opEqual, q.Metric)
	}
	if !q.Start.IsZero() {
		b.where(fieldTimestamp, opAtLeast, q.Start)
	}
	if !q.End.IsZero() {
		b.where(fieldTimestamp, opAtMost, q.End)
	}

	query := "SELECT " + telemetryColumns + " FROM telemetry" + b.whereSQL() +
		" ORDER BY timestamp DESC LIMIT " + b.bind(limit)
	return query, b.args, nil
}

// devicePatchSet builds the SET assignments for a partial device update.
func devicePatchSet(d dialect, patch DevicePatch) (*setBuilder, error) {
	sb := newSetBuilder(d)
	if patch.Name != nil {
		sb.set(fieldName, *patch.Name)
	}
	if patch.Status != nil {
		sb.set(fieldStatus, *patch.Status)
	}
	if patch.Location != nil {
		sb.set(fieldLocation, *patch.Location)
	}
	if patch.Building != nil {
		sb.set(fieldBuilding, *patch.Building)
	}
	if patch.Floor != nil {
		sb.set(fieldFloor, *patch.Floor)
	}
	if patch.Metadata != nil {
		metadata, err := marshalJSON(patch.Metadata)
		if err != nil {
			return nil, err
		}
		sb.set(fieldMetadata, metadata)
	}
	if sb.empty() {
		return nil, invalidf("no fields to update")
	}
	sb.touch("updated_at = CURRENT_TIMESTAMP")
	return sb, nil
}

// alertPatchSet builds the SET assignments for an alert status transition.
func alertPatchSet(d dialect, patch AlertPatch) (*setBuilder, error) {
	sb := newSetBuilder(d)
	if patch.Status != nil {
		sb.set(fieldStatus, *patch.Status)
	}
	if patch.AcknowledgedBy != nil {
		sb.set(fieldAcknowledgedBy, *patch.AcknowledgedBy)
	}
	if patch.Notes != nil {
		sb.set(fieldNotes, *patch.Notes)
	}
	if sb.empty() {
		return nil, invalidf("no fields to update")
	}
	sb.touch("acknowledged_at = CURRENT_TIMESTAMP")
	return sb, nil
}

// CreateDevice registers a device. DeviceID, Name and Type are mandatory;
// omitted optional columns take their schema defaults.
func (s *sqlStore) CreateDevice(in DeviceInput) (*model.Device, error) {
	if in.DeviceID == "" || in.Name == "" || in.Type == "" {
		return nil, invalidf("missing required fields: deviceId, name, type")
	}

	metadata, err := marshalJSON(in.Metadata)
	if err != nil {
		return nil, err
	}

	insert := "INSERT INTO devices (device_id, name, type, location, protocol, metadata) VALUES (" +
		s.placeholders(6) + ")"
	args := []interface{}{in.DeviceID, in.Name, in.Type, in.Location, in.Protocol, metadata}

	if s.d.returning() {
		return scanDevice(s.db.QueryRow(insert+" RETURNING "+deviceColumns, args...))
	}
	if _, err := s.db.Exec(insert, args...); err != nil {
		return nil, err
	}
	return s.Device(in.DeviceID)
}

// Devices lists devices matching the optional filters.
func (s *sqlStore) Devices(q DeviceQuery) ([]model.Device, error) {
	b := deviceFilter(s.d, q)
	rows, err := s.db.Query("SELECT "+deviceColumns+" FROM devices"+b.whereSQL(), b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := []model.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

// Device fetches one device by identity.
func (s *sqlStore) Device(deviceID string) (*model.Device, error) {
	row := s.db.QueryRow(
		"SELECT "+deviceColumns+" FROM devices WHERE device_id = "+s.d.placeholder(1), deviceID)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// UpdateDevice applies a partial update; only named fields change, plus
// updated_at. An empty patch is rejected.
func (s *sqlStore) UpdateDevice(deviceID string, patch DevicePatch) (*model.Device, error) {
	sb, err := devicePatchSet(s.d, patch)
	if err != nil {
		return nil, err
	}

	update := "UPDATE devices " + sb.setSQL() + " WHERE device_id = " + sb.bind(deviceID)

	if s.d.returning() {
		d, err := scanDevice(s.db.QueryRow(update+" RETURNING "+deviceColumns, sb.args...))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return d, err
	}
	if _, err := s.db.Exec(update, sb.args...); err != nil {
		return nil, err
	}
	return s.Device(deviceID)
}

// DeleteDevice removes a device. Deleting an absent id is not an error.
func (s *sqlStore) DeleteDevice(deviceID string) error {
	_, err := s.db.Exec("DELETE FROM devices WHERE device_id = "+s.d.placeholder(1), deviceID)
	return err
}

// InsertTelemetry appends one record. The referenced device is deliberately
// not checked for existence: readings may arrive before registration. A zero
// timestamp defaults to the ingestion time.
func (s *sqlStore) InsertTelemetry(rec model.Telemetry) (*model.Telemetry, error) {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	insert := "INSERT INTO telemetry (device_id, metric, value, unit, timestamp) VALUES (" +
		s.placeholders(5) + ")"
	args := []interface{}{rec.DeviceID, rec.Metric, rec.Value, rec.Unit, ts}

	if s.d.returning() {
		return scanTelemetry(s.db.QueryRow(insert+" RETURNING "+telemetryColumns, args...))
	}
	res, err := s.db.Exec(insert, args...)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return scanTelemetry(s.db.QueryRow(
		"SELECT "+telemetryColumns+" FROM telemetry WHERE id = "+s.d.placeholder(1), id))
}

// Telemetry lists records for one device, newest first.
func (s *sqlStore) Telemetry(q TelemetryQuery) ([]model.Telemetry, error) {
	query, args, err := telemetrySQL(s.d, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.Telemetry{}
	for rows.Next() {
		t, err := scanTelemetry(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *t)
	}
	return records, rows.Err()
}

// CreateRule stores a rule under a generated id.
func (s *sqlStore) CreateRule(in RuleInput) (*model.Rule, error) {
	ruleID := newRuleID()

	condition, err := json.Marshal(in.Condition)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize rule condition: %v", err)
	}
	action, err := marshalJSON(in.Action)
	if err != nil {
		return nil, err
	}

	insert := fmt.Sprintf("INSERT INTO rules (rule_id, name, %s, action, enabled) VALUES (%s)",
		s.d.quote("condition"), s.placeholders(5))
	args := []interface{}{ruleID, in.Name, condition, action, in.Enabled}

	if s.d.returning() {
		return scanRule(s.db.QueryRow(insert+" RETURNING "+s.ruleColumns(), args...))
	}
	if _, err := s.db.Exec(insert, args...); err != nil {
		return nil, err
	}
	return scanRule(s.db.QueryRow(
		"SELECT "+s.ruleColumns()+" FROM rules WHERE rule_id = "+s.d.placeholder(1), ruleID))
}

// Rules lists all stored rules.
func (s *sqlStore) Rules() ([]model.Rule, error) {
	rows, err := s.db.Query("SELECT " + s.ruleColumns() + " FROM rules")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []model.Rule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

// DeleteRule removes a rule. Deleting an absent id is not an error.
func (s *sqlStore) DeleteRule(ruleID string) error {
	_, err := s.db.Exec("DELETE FROM rules WHERE rule_id = "+s.d.placeholder(1), ruleID)
	return err
}

// Alerts lists alerts matching the optional filters.
func (s *sqlStore) Alerts(q AlertQuery) ([]model.Alert, error) {
	b := alertFilter(s.d, q)
	rows, err := s.db.Query("SELECT "+alertColumns+" FROM alerts"+b.whereSQL(), b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []model.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// UpdateAlert applies a partial status transition, touching acknowledged_at.
// Alerts are never created here; an unknown id is a lookup miss.
func (s *sqlStore) UpdateAlert(alertID string, patch AlertPatch) (*model.Alert, error) {
	sb, err := alertPatchSet(s.d, patch)
	if err != nil {
		return nil, err
	}

	update := "UPDATE alerts " + sb.setSQL() + " WHERE alert_id = " + sb.bind(alertID)

	if s.d.returning() {
		a, err := scanAlert(s.db.QueryRow(update+" RETURNING "+alertColumns, sb.args...))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return a, err
	}
	if _, err := s.db.Exec(update, sb.args...); err != nil {
		return nil, err
	}
	a, err := scanAlert(s.db.QueryRow(
		"SELECT "+alertColumns+" FROM alerts WHERE alert_id = "+s.d.placeholder(1), alertID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %v", err)
		}
		logger.Info("database connection closed")
	}
	return nil
}
