package model

import "time"

// Device represents a registered campus sensor or actuator.
type Device struct {
	DeviceID  string                 `json:"deviceId"`
	Name      string                 `json:"name"`
	Type      string                 `json:"type"`
	Location  *string                `json:"location"`
	Protocol  *string                `json:"protocol"`
	Metadata  map[string]interface{} `json:"metadata"`
	Status    string                 `json:"status"`
	Building  *string                `json:"building"`
	Floor     *int                   `json:"floor"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// Telemetry represents one measurement reported by a device. Records are
// append-only; a zero Timestamp means the reading carried none and the store
// assigns the ingestion time.
type Telemetry struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"deviceId"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Unit      *string   `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
}

// RuleCondition is the threshold comparison a rule watches for.
type RuleCondition struct {
	DeviceID  string  `json:"deviceId"`
	Metric    string  `json:"metric"`
	Operator  string  `json:"operator"`
	Threshold float64 `json:"threshold"`
}

// Rule represents an alerting rule definition.
type Rule struct {
	RuleID    string                 `json:"ruleId"`
	Name      string                 `json:"name"`
	Condition RuleCondition          `json:"condition"`
	Action    map[string]interface{} `json:"action"`
	Enabled   bool                   `json:"enabled"`
	CreatedAt time.Time              `json:"createdAt"`
}

// Alert represents a raised alert and its acknowledgement state.
type Alert struct {
	AlertID        string     `json:"alertId"`
	DeviceID       *string    `json:"deviceId"`
	RuleID         *string    `json:"ruleId"`
	Severity       string     `json:"severity"`
	Status         string     `json:"status"`
	Message        *string    `json:"message"`
	Timestamp      time.Time  `json:"timestamp"`
	AcknowledgedBy *string    `json:"acknowledgedBy"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt"`
	Notes          *string    `json:"notes"`
}
