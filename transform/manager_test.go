package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddielth/campus-telemetry/config"
	"github.com/eddielth/campus-telemetry/model"
)

const fahrenheitToCelsius = `
function transform(data) {
	return {
		value: convertTemperature(data.value, data.unit, "celsius"),
		unit: "celsius"
	};
}
`

func strPtr(s string) *string { return &s }

func TestApplyOverridesValueAndUnit(t *testing.T) {
	m, err := NewManager(map[string]config.Script{
		"temperature": {ScriptCode: fahrenheitToCelsius},
	})
	require.NoError(t, err)

	rec := model.Telemetry{
		DeviceID: "temp-sensor-01",
		Metric:   "temperature",
		Value:    212,
		Unit:     strPtr("fahrenheit"),
	}
	require.NoError(t, m.Apply(&rec))

	assert.InDelta(t, 100, rec.Value, 0.001)
	require.NotNil(t, rec.Unit)
	assert.Equal(t, "celsius", *rec.Unit)
}

func TestApplyPassesThroughUnknownMetric(t *testing.T) {
	m, err := NewManager(map[string]config.Script{
		"temperature": {ScriptCode: fahrenheitToCelsius},
	})
	require.NoError(t, err)

	rec := model.Telemetry{DeviceID: "d1", Metric: "humidity", Value: 55}
	require.NoError(t, m.Apply(&rec))

	assert.Equal(t, 55.0, rec.Value)
	assert.Nil(t, rec.Unit)
}

func TestApplyWithNoScriptsConfigured(t *testing.T) {
	m, err := NewManager(nil)
	require.NoError(t, err)

	rec := model.Telemetry{DeviceID: "d1", Metric: "temperature", Value: 22.5}
	require.NoError(t, m.Apply(&rec))

	assert.Equal(t, 22.5, rec.Value)
}

func TestNewManagerRejectsBrokenScript(t *testing.T) {
	_, err := NewManager(map[string]config.Script{
		"temperature": {ScriptCode: "this is not javascript"},
	})
	assert.Error(t, err)
}

func TestNewManagerRequiresTransformFunction(t *testing.T) {
	_, err := NewManager(map[string]config.Script{
		"temperature": {ScriptCode: "var x = 1;"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transform")
}

func TestNewManagerRequiresCodeOrPath(t *testing.T) {
	_, err := NewManager(map[string]config.Script{
		"temperature": {},
	})
	assert.Error(t, err)
}

func TestApplyReportsScriptNotReturningObject(t *testing.T) {
	m, err := NewManager(map[string]config.Script{
		"temperature": {ScriptCode: `function transform(data) { return 42; }`},
	})
	require.NoError(t, err)

	rec := model.Telemetry{DeviceID: "d1", Metric: "temperature", Value: 1}
	assert.Error(t, m.Apply(&rec))
}

func TestConvertTemperatureHelper(t *testing.T) {
	m, err := NewManager(map[string]config.Script{
		"temperature": {ScriptCode: `
function transform(data) {
	return { value: convertTemperature(data.value, "K", "C") };
}
`},
	})
	require.NoError(t, err)

	rec := model.Telemetry{DeviceID: "d1", Metric: "temperature", Value: 300}
	require.NoError(t, m.Apply(&rec))

	assert.InDelta(t, 26.85, rec.Value, 0.001)
}

func TestReloadReplacesScriptSet(t *testing.T) {
	m, err := NewManager(map[string]config.Script{
		"temperature": {ScriptCode: fahrenheitToCelsius},
	})
	require.NoError(t, err)

	// Drop the temperature script, add a humidity one.
	err = m.Reload(map[string]config.Script{
		"humidity": {ScriptCode: `function transform(data) { return { value: data.value / 100 }; }`},
	})
	require.NoError(t, err)

	temp := model.Telemetry{DeviceID: "d1", Metric: "temperature", Value: 212, Unit: strPtr("fahrenheit")}
	require.NoError(t, m.Apply(&temp))
	assert.Equal(t, 212.0, temp.Value)

	hum := model.Telemetry{DeviceID: "d1", Metric: "humidity", Value: 55}
	require.NoError(t, m.Apply(&hum))
	assert.Equal(t, 0.55, hum.Value)
}

func TestReloadKeepsOldScriptsOnError(t *testing.T) {
	m, err := NewManager(map[string]config.Script{
		"temperature": {ScriptCode: fahrenheitToCelsius},
	})
	require.NoError(t, err)

	err = m.Reload(map[string]config.Script{
		"temperature": {ScriptCode: "broken {"},
	})
	require.Error(t, err)

	rec := model.Telemetry{DeviceID: "d1", Metric: "temperature", Value: 32, Unit: strPtr("fahrenheit")}
	require.NoError(t, m.Apply(&rec))
	assert.InDelta(t, 0, rec.Value, 0.001)
}
