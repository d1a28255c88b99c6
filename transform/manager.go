// Package transform runs optional JavaScript normalization scripts against
// parsed telemetry records before they are stored. Scripts are keyed by
// metric name; metrics without a script pass through untouched.
package transform

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/eddielth/campus-telemetry/config"
	"github.com/eddielth/campus-telemetry/logger"
	"github.com/eddielth/campus-telemetry/model"
)

// Manager holds one compiled script per metric name.
type Manager struct {
	mu      sync.RWMutex
	scripts map[string]*script
}

type script struct {
	vm *goja.Runtime
	fn goja.Callable
}

// NewManager compiles the configured scripts. A nil or empty configuration
// yields a manager that passes every record through.
func NewManager(configs map[string]config.Script) (*Manager, error) {
	m := &Manager{scripts: make(map[string]*script)}

	for metric, cfg := range configs {
		sc, err := newScript(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load transform for metric %s: %v", metric, err)
		}
		m.scripts[metric] = sc
		logger.Info("loaded transform script for metric %s", metric)
	}

	return m, nil
}

// newScript compiles one script and resolves its transform function.
func newScript(cfg config.Script) (*script, error) {
	code := cfg.ScriptCode
	if code == "" {
		if cfg.ScriptPath == "" {
			return nil, fmt.Errorf("no script code or script path configured")
		}
		data, err := os.ReadFile(cfg.ScriptPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read script file %s: %v", cfg.ScriptPath, err)
		}
		code = string(data)
	}

	vm := goja.New()

	_ = vm.Set("log", func(msg string) {
		logger.Info("[JS] %s", msg)
	})

	// Unit conversion helper for temperature sensors reporting mixed scales.
	_ = vm.Set("convertTemperature", func(value float64, fromUnit, toUnit string) float64 {
		var celsius float64
		switch strings.ToUpper(fromUnit) {
		case "C", "CELSIUS":
			celsius = value
		case "F", "FAHRENHEIT":
			celsius = (value - 32) * 5 / 9
		case "K", "KELVIN":
			celsius = value - 273.15
		default:
			return value
		}

		switch strings.ToUpper(toUnit) {
		case "F", "FAHRENHEIT":
			return celsius*9/5 + 32
		case "K", "KELVIN":
			return celsius + 273.15
		default:
			return celsius
		}
	})

	if _, err := vm.RunString(code); err != nil {
		return nil, fmt.Errorf("failed to run script: %v", err)
	}

	fn, ok := goja.AssertFunction(vm.Get("transform"))
	if !ok {
		return nil, fmt.Errorf("script does not define a 'transform' function")
	}

	return &script{vm: vm, fn: fn}, nil
}

// Apply runs the script for the record's metric, if any, overriding value
// and unit from the script result.
func (m *Manager) Apply(rec *model.Telemetry) error {
	m.mu.RLock()
	sc := m.scripts[rec.Metric]
	m.mu.RUnlock()

	if sc == nil {
		return nil
	}

	unit := ""
	if rec.Unit != nil {
		unit = *rec.Unit
	}
	arg := map[string]interface{}{
		"deviceId": rec.DeviceID,
		"metric":   rec.Metric,
		"value":    rec.Value,
		"unit":     unit,
	}

	result, err := sc.fn(goja.Undefined(), sc.vm.ToValue(arg))
	if err != nil {
		return fmt.Errorf("transform failed: %v", err)
	}

	out, ok := result.Export().(map[string]interface{})
	if !ok {
		return fmt.Errorf("transform did not return an object")
	}

	if v, ok := out["value"]; ok {
		value, err := toFloat(v)
		if err != nil {
			return err
		}
		rec.Value = value
	}
	if u, ok := out["unit"].(string); ok && u != "" {
		rec.Unit = &u
	}
	return nil
}

// Reload replaces the scripts with a freshly compiled set, dropping scripts
// for metrics no longer configured.
func (m *Manager) Reload(configs map[string]config.Script) error {
	scripts := make(map[string]*script)
	for metric, cfg := range configs {
		sc, err := newScript(cfg)
		if err != nil {
			return fmt.Errorf("failed to reload transform for metric %s: %v", metric, err)
		}
		scripts[metric] = sc
	}

	m.mu.Lock()
	m.scripts = scripts
	m.mu.Unlock()

	logger.Info("reloaded %d transform script(s)", len(scripts))
	return nil
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("transform returned non-numeric value: %v", v)
	}
}
