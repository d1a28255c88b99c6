package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopic(t *testing.T) {
	deviceID, metric, err := ParseTopic("campus/temp-sensor-01/temperature")
	require.NoError(t, err)
	assert.Equal(t, "temp-sensor-01", deviceID)
	assert.Equal(t, "temperature", metric)
}

func TestParseTopicMalformed(t *testing.T) {
	cases := []string{
		"",
		"campus",
		"campus/temp-sensor-01",
		"campus//temperature",
		"campus/temp-sensor-01/",
	}
	for _, topic := range cases {
		_, _, err := ParseTopic(topic)
		assert.ErrorIs(t, err, ErrMalformedTopic, "topic %q", topic)
	}
}

func TestParseTopicExtraLevels(t *testing.T) {
	// Deeper topics still carry device and metric at the expected levels.
	deviceID, metric, err := ParseTopic("campus/d1/temperature/extra")
	require.NoError(t, err)
	assert.Equal(t, "d1", deviceID)
	assert.Equal(t, "temperature", metric)
}

func TestParseMessage(t *testing.T) {
	body := []byte(`{"value": 22.5, "unit": "celsius", "timestamp": "2026-03-01T10:00:00Z"}`)

	rec, err := ParseMessage("campus/temp-sensor-01/temperature", body)
	require.NoError(t, err)

	assert.Equal(t, "temp-sensor-01", rec.DeviceID)
	assert.Equal(t, "temperature", rec.Metric)
	assert.Equal(t, 22.5, rec.Value)
	require.NotNil(t, rec.Unit)
	assert.Equal(t, "celsius", *rec.Unit)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), rec.Timestamp.UTC())
}

func TestParseMessageOptionalFieldsAbsent(t *testing.T) {
	rec, err := ParseMessage("campus/d1/humidity", []byte(`{"value": 55}`))
	require.NoError(t, err)

	assert.Equal(t, 55.0, rec.Value)
	assert.Nil(t, rec.Unit)
	assert.True(t, rec.Timestamp.IsZero())
}

func TestParseMessageEpochTimestamp(t *testing.T) {
	rec, err := ParseMessage("campus/d1/energy", []byte(`{"value": 1.5, "timestamp": 1767225600}`))
	require.NoError(t, err)

	assert.Equal(t, time.Unix(1767225600, 0).UTC(), rec.Timestamp)
}

func TestParseMessageMissingValue(t *testing.T) {
	_, err := ParseMessage("campus/d1/temperature", []byte(`{"unit": "celsius"}`))
	assert.Error(t, err)
}

func TestParseMessageBadJSON(t *testing.T) {
	_, err := ParseMessage("campus/d1/temperature", []byte(`not json`))
	assert.Error(t, err)
}

func TestParseMessageBadTimestamp(t *testing.T) {
	_, err := ParseMessage("campus/d1/temperature", []byte(`{"value": 1, "timestamp": "yesterday"}`))
	assert.Error(t, err)
}

func TestParseMessageNullTimestamp(t *testing.T) {
	rec, err := ParseMessage("campus/d1/temperature", []byte(`{"value": 1, "timestamp": null}`))
	require.NoError(t, err)
	assert.True(t, rec.Timestamp.IsZero())
}

func TestParseMessageMalformedTopic(t *testing.T) {
	_, err := ParseMessage("campus/d1", []byte(`{"value": 1}`))
	assert.ErrorIs(t, err, ErrMalformedTopic)
}
