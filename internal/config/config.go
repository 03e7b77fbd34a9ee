package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppName names the config directory and the env prefix.
const AppName = "timetracker"

// Config holds the process configuration. User preferences live in the settings file.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Settings  SettingsConfig  `mapstructure:"settings"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Intervals IntervalsConfig `mapstructure:"intervals"`
}

// DatabaseConfig locates the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SettingsConfig locates the user settings file
type SettingsConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig enables the Prometheus endpoint when Address is set
type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// IntervalsConfig sets the background loop cadences
type IntervalsConfig struct {
	Tick          time.Duration `mapstructure:"tick"`
	IdleCheck     time.Duration `mapstructure:"idle_check"`
	ReminderCheck time.Duration `mapstructure:"reminder_check"`
}

// Load reads configuration from an optional file and TIMETRACKER_* environment variables.
// An empty configPath looks for config.yaml in the user config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	baseDir := defaultBaseDir()
	setDefaults(v, baseDir)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(baseDir)
	}
	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func defaultBaseDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(configDir, AppName)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper, baseDir string) {
	v.SetDefault("database.path", filepath.Join(baseDir, AppName+".db"))
	v.SetDefault("settings.path", filepath.Join(baseDir, "settings.yaml"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("metrics.address", "")

	v.SetDefault("intervals.tick", "1s")
	v.SetDefault("intervals.idle_check", "30s")
	v.SetDefault("intervals.reminder_check", "1m")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if config.Settings.Path == "" {
		return fmt.Errorf("settings.path is required")
	}

	switch strings.ToLower(config.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", config.Logging.Level)
	}
	switch strings.ToLower(config.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format: %s", config.Logging.Format)
	}

	intervals := map[string]time.Duration{
		"intervals.tick":           config.Intervals.Tick,
		"intervals.idle_check":     config.Intervals.IdleCheck,
		"intervals.reminder_check": config.Intervals.ReminderCheck,
	}
	for key, value := range intervals {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, value)
		}
	}

	return nil
}
