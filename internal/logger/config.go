package logger

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds logging configuration
type Config struct {
	Level          string `yaml:"level"`
	ConsoleEnabled *bool  `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format"`
	FileEnabled    bool   `yaml:"file_enabled"`
	FilePath       string `yaml:"file_path"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
	FileCompress   bool   `yaml:"file_compress"`
}

// LoggingConfig wraps the Config for YAML parsing
type LoggingConfig struct {
	Logging Config `yaml:"logging"`
}

// DefaultConfig returns console-only text logging at INFO
func DefaultConfig() Config {
	enabled := true
	return Config{
		Level:          "INFO",
		ConsoleEnabled: &enabled,
		ConsoleFormat:  "text",
		FileEnabled:    false,
		FilePath:       "logs/tilegen.log",
		FileFormat:     "json",
		FileMaxSizeMB:  10,
		FileMaxBackups: 5,
		FileMaxAgeDays: 30,
	}
}

// Console reports whether console output is enabled
func (c Config) Console() bool {
	return c.ConsoleEnabled == nil || *c.ConsoleEnabled
}

// LoadConfig loads logging configuration from the logging block of a YAML
// file and applies environment variable overrides. A missing file yields the
// defaults; a file that exists but does not parse is an error.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			var loaded LoggingConfig
			if err := yaml.Unmarshal(data, &loaded); err != nil {
				return applyEnv(config), fmt.Errorf("failed to parse logging config: %w", err)
			}
			config = merge(config, loaded.Logging)
		case !os.IsNotExist(err):
			return applyEnv(config), fmt.Errorf("failed to read logging config: %w", err)
		}
	}

	return applyEnv(config), nil
}

// merge overlays the fields set in loaded onto base
func merge(base, loaded Config) Config {
	if loaded.Level != "" {
		base.Level = loaded.Level
	}
	if loaded.ConsoleEnabled != nil {
		base.ConsoleEnabled = loaded.ConsoleEnabled
	}
	if loaded.ConsoleFormat != "" {
		base.ConsoleFormat = loaded.ConsoleFormat
	}
	base.FileEnabled = loaded.FileEnabled
	if loaded.FilePath != "" {
		base.FilePath = loaded.FilePath
	}
	if loaded.FileFormat != "" {
		base.FileFormat = loaded.FileFormat
	}
	if loaded.FileMaxSizeMB > 0 {
		base.FileMaxSizeMB = loaded.FileMaxSizeMB
	}
	if loaded.FileMaxBackups > 0 {
		base.FileMaxBackups = loaded.FileMaxBackups
	}
	if loaded.FileMaxAgeDays > 0 {
		base.FileMaxAgeDays = loaded.FileMaxAgeDays
	}
	base.FileCompress = loaded.FileCompress
	return base
}

func applyEnv(config Config) Config {
	if level := os.Getenv("TILEGEN_LOG_LEVEL"); level != "" {
		config.Level = level
	}
	if format := os.Getenv("TILEGEN_LOG_FORMAT"); format != "" {
		config.ConsoleFormat = format
	}
	if fileEnabled := os.Getenv("TILEGEN_LOG_FILE_ENABLED"); fileEnabled != "" {
		if enabled, err := strconv.ParseBool(fileEnabled); err == nil {
			config.FileEnabled = enabled
		}
	}
	if filePath := os.Getenv("TILEGEN_LOG_FILE_PATH"); filePath != "" {
		config.FilePath = filePath
	}
	return config
}
