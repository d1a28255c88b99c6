// Package ingest decodes broker messages into telemetry records. Topics
// follow <namespace>/<deviceId>/<metric> and payloads are JSON objects with
// a required numeric value plus optional unit and timestamp.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eddielth/campus-telemetry/model"
)

// ErrMalformedTopic is returned when a topic is missing the device or
// metric level.
var ErrMalformedTopic = errors.New("malformed topic")

// payload is the wire shape published by the sensors. Timestamp is kept raw
// because devices send either RFC 3339 strings or unix epoch seconds.
type payload struct {
	Value     *float64        `json:"value"`
	Unit      string          `json:"unit"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// ParseTopic extracts the device id and metric from a topic.
func ParseTopic(topic string) (deviceID, metric string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}
	deviceID, metric = parts[1], parts[2]
	if deviceID == "" || metric == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}
	return deviceID, metric, nil
}

// ParseMessage decodes one topic/payload pair into a telemetry record. A
// missing timestamp leaves the record's Timestamp zero; the store assigns
// the ingestion time in that case.
func ParseMessage(topic string, body []byte) (model.Telemetry, error) {
	deviceID, metric, err := ParseTopic(topic)
	if err != nil {
		return model.Telemetry{}, err
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return model.Telemetry{}, fmt.Errorf("failed to decode payload: %v", err)
	}
	if p.Value == nil {
		return model.Telemetry{}, fmt.Errorf("payload has no value field")
	}

	rec := model.Telemetry{
		DeviceID: deviceID,
		Metric:   metric,
		Value:    *p.Value,
	}
	if p.Unit != "" {
		unit := p.Unit
		rec.Unit = &unit
	}
	if len(p.Timestamp) > 0 && string(p.Timestamp) != "null" {
		ts, err := parseTimestamp(p.Timestamp)
		if err != nil {
			return model.Telemetry{}, err
		}
		rec.Timestamp = ts
	}
	return rec, nil
}

// parseTimestamp accepts an RFC 3339 string or unix epoch seconds,
// fractional seconds allowed.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %v", s, err)
		}
		return ts, nil
	}

	var epoch float64
	if err := json.Unmarshal(raw, &epoch); err == nil {
		sec := int64(epoch)
		nsec := int64((epoch - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("invalid timestamp: %s", string(raw))
}
