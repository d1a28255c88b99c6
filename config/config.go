package config

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	MQTT       MQTTConfig        `mapstructure:"mqtt"`
	HTTP       HTTPConfig        `mapstructure:"http"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Transforms map[string]Script `mapstructure:"transforms"`
	Logger     LoggerConfig      `mapstructure:"logger"`
}

// MQTTConfig represents the MQTT connection configuration. Namespace is the
// first topic level; the listener subscribes to <namespace>/+/+.
type MQTTConfig struct {
	Broker    string `mapstructure:"broker"`
	ClientID  string `mapstructure:"client_id"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Namespace string `mapstructure:"namespace"`
}

// HTTPConfig represents the HTTP API configuration
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// DatabaseConfig represents the database backend configuration
type DatabaseConfig struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`
}

// Script represents a transform script, keyed by metric name. ScriptCode
// takes precedence over ScriptPath when both are set.
type Script struct {
	ScriptPath string `mapstructure:"script_path"`
	ScriptCode string `mapstructure:"script_code"`
}

// LoggerConfig represents the logging configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	Console    bool   `mapstructure:"console"`
}

// ChangeCallback is invoked with the re-read configuration when the config
// file changes on disk.
type ChangeCallback func(cfg *Config) error

// LoadConfig loads the configuration file from the given path
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// WatchConfig watches the configuration file and invokes the callback when
// it is rewritten. Rapid successive writes are debounced.
func WatchConfig(configPath string, callback ChangeCallback) error {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}

	viper.SetConfigFile(absPath)
	viper.WatchConfig()

	var lastChange time.Time
	const debounce = 2 * time.Second

	viper.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&fsnotify.Write != fsnotify.Write {
			return
		}

		now := time.Now()
		if now.Sub(lastChange) < debounce {
			return
		}
		lastChange = now

		log.Printf("config file changed: %s", e.Name)

		var newConfig Config
		if err := viper.Unmarshal(&newConfig); err != nil {
			log.Printf("failed to parse updated config: %v", err)
			return
		}

		if err := callback(&newConfig); err != nil {
			log.Printf("failed to apply updated config: %v", err)
		}
	})

	return nil
}
