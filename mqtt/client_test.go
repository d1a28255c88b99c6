package mqtt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddielth/campus-telemetry/config"
	"github.com/eddielth/campus-telemetry/model"
	"github.com/eddielth/campus-telemetry/store"
	"github.com/eddielth/campus-telemetry/transform"
)

// recordingGateway captures InsertTelemetry calls; every other operation is
// out of scope for the ingestion path.
type recordingGateway struct {
	inserted  []model.Telemetry
	insertErr error
}

func (g *recordingGateway) InsertTelemetry(rec model.Telemetry) (*model.Telemetry, error) {
	if g.insertErr != nil {
		return nil, g.insertErr
	}
	g.inserted = append(g.inserted, rec)
	stored := rec
	stored.ID = int64(len(g.inserted))
	return &stored, nil
}

func (g *recordingGateway) CreateDevice(store.DeviceInput) (*model.Device, error) {
	return nil, errors.New("not implemented")
}
func (g *recordingGateway) Devices(store.DeviceQuery) ([]model.Device, error) {
	return nil, errors.New("not implemented")
}
func (g *recordingGateway) Device(string) (*model.Device, error) {
	return nil, errors.New("not implemented")
}
func (g *recordingGateway) UpdateDevice(string, store.DevicePatch) (*model.Device, error) {
	return nil, errors.New("not implemented")
}
func (g *recordingGateway) DeleteDevice(string) error { return errors.New("not implemented") }
func (g *recordingGateway) Telemetry(store.TelemetryQuery) ([]model.Telemetry, error) {
	return nil, errors.New("not implemented")
}
func (g *recordingGateway) CreateRule(store.RuleInput) (*model.Rule, error) {
	return nil, errors.New("not implemented")
}
func (g *recordingGateway) Rules() ([]model.Rule, error) { return nil, errors.New("not implemented") }
func (g *recordingGateway) DeleteRule(string) error      { return errors.New("not implemented") }
func (g *recordingGateway) Alerts(store.AlertQuery) ([]model.Alert, error) {
	return nil, errors.New("not implemented")
}
func (g *recordingGateway) UpdateAlert(string, store.AlertPatch) (*model.Alert, error) {
	return nil, errors.New("not implemented")
}
func (g *recordingGateway) Close() error { return nil }

func TestMessageHandlerStoresParsedRecord(t *testing.T) {
	gw := &recordingGateway{}
	handler := createMessageHandler(nil, gw)

	handler("campus/temp-sensor-01/temperature",
		[]byte(`{"value": 22.5, "unit": "celsius", "timestamp": "2026-03-01T10:00:00Z"}`))

	require.Len(t, gw.inserted, 1)
	rec := gw.inserted[0]
	assert.Equal(t, "temp-sensor-01", rec.DeviceID)
	assert.Equal(t, "temperature", rec.Metric)
	assert.Equal(t, 22.5, rec.Value)
	require.NotNil(t, rec.Unit)
	assert.Equal(t, "celsius", *rec.Unit)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), rec.Timestamp.UTC())
}

func TestMessageHandlerDropsMalformedTopic(t *testing.T) {
	gw := &recordingGateway{}
	handler := createMessageHandler(nil, gw)

	handler("campus/temp-sensor-01", []byte(`{"value": 22.5}`))

	assert.Empty(t, gw.inserted)
}

func TestMessageHandlerDropsBadPayload(t *testing.T) {
	gw := &recordingGateway{}
	handler := createMessageHandler(nil, gw)

	handler("campus/temp-sensor-01/temperature", []byte(`not json`))
	handler("campus/temp-sensor-01/temperature", []byte(`{"unit": "celsius"}`))

	assert.Empty(t, gw.inserted)
}

func TestMessageHandlerAppliesTransform(t *testing.T) {
	transforms, err := transform.NewManager(map[string]config.Script{
		"temperature": {ScriptCode: `
function transform(data) {
	return { value: convertTemperature(data.value, data.unit, "celsius"), unit: "celsius" };
}
`},
	})
	require.NoError(t, err)

	gw := &recordingGateway{}
	handler := createMessageHandler(transforms, gw)

	handler("campus/temp-sensor-01/temperature", []byte(`{"value": 212, "unit": "fahrenheit"}`))

	require.Len(t, gw.inserted, 1)
	assert.InDelta(t, 100, gw.inserted[0].Value, 0.001)
	require.NotNil(t, gw.inserted[0].Unit)
	assert.Equal(t, "celsius", *gw.inserted[0].Unit)
}

func TestMessageHandlerStoresRawOnTransformFailure(t *testing.T) {
	transforms, err := transform.NewManager(map[string]config.Script{
		"temperature": {ScriptCode: `function transform(data) { return "not an object"; }`},
	})
	require.NoError(t, err)

	gw := &recordingGateway{}
	handler := createMessageHandler(transforms, gw)

	handler("campus/temp-sensor-01/temperature", []byte(`{"value": 22.5}`))

	// The raw reading survives a broken script.
	require.Len(t, gw.inserted, 1)
	assert.Equal(t, 22.5, gw.inserted[0].Value)
}

func TestNewManagerRequiresBroker(t *testing.T) {
	_, err := NewManager(config.MQTTConfig{}, nil, &recordingGateway{})
	assert.Error(t, err)
}

func TestNewManagerTopicFromNamespace(t *testing.T) {
	m, err := NewManager(config.MQTTConfig{Broker: "tcp://localhost:1883", Namespace: "site-b"}, nil, &recordingGateway{})
	require.NoError(t, err)
	assert.Equal(t, "site-b/+/+", m.topic)
}

func TestNewManagerDefaultNamespace(t *testing.T) {
	m, err := NewManager(config.MQTTConfig{Broker: "tcp://localhost:1883"}, nil, &recordingGateway{})
	require.NoError(t, err)
	assert.Equal(t, "campus/+/+", m.topic)
}
