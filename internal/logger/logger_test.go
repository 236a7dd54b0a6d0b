package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseLogLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig returned error for missing file: %v", err)
	}

	if config.Level != "INFO" {
		t.Errorf("Default level = %q, want %q", config.Level, "INFO")
	}
	if !config.Console() {
		t.Error("Default console output disabled, want enabled")
	}
	if config.ConsoleFormat != "text" {
		t.Errorf("Default ConsoleFormat = %q, want %q", config.ConsoleFormat, "text")
	}
	if config.FileEnabled {
		t.Error("Default FileEnabled = true, want false")
	}
	if config.FilePath != "logs/tilegen.log" {
		t.Errorf("Default FilePath = %q, want %q", config.FilePath, "logs/tilegen.log")
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logging.yaml")
	yamlContent := `logging:
  level: DEBUG
  console_enabled: false
  console_format: json
  file_enabled: true
  file_path: test.log
  file_max_size_mb: 20
  file_compress: true
`
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if config.Level != "DEBUG" {
		t.Errorf("Level = %q, want %q", config.Level, "DEBUG")
	}
	if config.Console() {
		t.Error("console output enabled, want disabled from YAML")
	}
	if config.ConsoleFormat != "json" {
		t.Errorf("ConsoleFormat = %q, want %q", config.ConsoleFormat, "json")
	}
	if !config.FileEnabled {
		t.Error("FileEnabled = false, want true")
	}
	if config.FilePath != "test.log" {
		t.Errorf("FilePath = %q, want %q", config.FilePath, "test.log")
	}
	if config.FileMaxSizeMB != 20 {
		t.Errorf("FileMaxSizeMB = %d, want %d", config.FileMaxSizeMB, 20)
	}
	if config.FileMaxBackups != 5 {
		t.Errorf("FileMaxBackups = %d, want default 5", config.FileMaxBackups)
	}
	if !config.FileCompress {
		t.Error("FileCompress = false, want true")
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logging.yaml")
	if err := os.WriteFile(path, []byte("logging: [oops"), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}

	config, err := LoadConfig(path)
	if err == nil {
		t.Fatal("LoadConfig should fail on malformed YAML")
	}
	if config.Level != "INFO" {
		t.Errorf("Level = %q, want defaults alongside the error", config.Level)
	}
}

func TestEnvVarOverride(t *testing.T) {
	t.Setenv("TILEGEN_LOG_LEVEL", "ERROR")
	t.Setenv("TILEGEN_LOG_FORMAT", "json")
	t.Setenv("TILEGEN_LOG_FILE_ENABLED", "true")
	t.Setenv("TILEGEN_LOG_FILE_PATH", "/custom/path.log")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if config.Level != "ERROR" {
		t.Errorf("Level = %q, want %q (from env var)", config.Level, "ERROR")
	}
	if config.ConsoleFormat != "json" {
		t.Errorf("ConsoleFormat = %q, want %q (from env var)", config.ConsoleFormat, "json")
	}
	if !config.FileEnabled {
		t.Error("FileEnabled = false, want true (from env var)")
	}
	if config.FilePath != "/custom/path.log" {
		t.Errorf("FilePath = %q, want %q (from env var)", config.FilePath, "/custom/path.log")
	}
}

func TestInitializeWritesRotatingFile(t *testing.T) {
	defer func() { logger = nil }()

	path := filepath.Join(t.TempDir(), "logs", "run.log")
	off := false
	config := DefaultConfig()
	config.ConsoleEnabled = &off
	config.FileEnabled = true
	config.FilePath = path
	config.FileFormat = "json"

	if err := Initialize(config); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	Info("Map generated", "dim", 8)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"Map generated"`) || !strings.Contains(string(data), `"dim":8`) {
		t.Errorf("log file content = %s", data)
	}
}

func TestInitializeRejectsFileWithoutPath(t *testing.T) {
	defer func() { logger = nil }()

	config := DefaultConfig()
	config.FileEnabled = true
	config.FilePath = ""
	if err := Initialize(config); err == nil {
		t.Error("Initialize should fail when file output has no path")
	}
}

func TestInitializeWithTextFormat(t *testing.T) {
	defer func() { logger = nil }()
	var buf bytes.Buffer

	logger = slog.New(newHandler(&buf, "text", &slog.HandlerOptions{Level: slog.LevelInfo}))

	Info("Test message", "key", "value")
	Debug("This should not appear")

	output := buf.String()

	if !strings.Contains(output, "Test message") {
		t.Errorf("Output missing INFO message: %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("Output missing structured field: %s", output)
	}
	if strings.Contains(output, "This should not appear") {
		t.Errorf("Output contains DEBUG message when level is INFO: %s", output)
	}
}

func TestInitializeWithJSONFormat(t *testing.T) {
	defer func() { logger = nil }()
	var buf bytes.Buffer

	logger = slog.New(newHandler(&buf, "JSON", &slog.HandlerOptions{Level: slog.LevelInfo}))

	Info("JSON test", "field1", "value1", "field2", 42)

	output := buf.String()

	if !strings.Contains(output, `"msg":"JSON test"`) {
		t.Errorf("Output missing JSON message field: %s", output)
	}
	if !strings.Contains(output, `"field1":"value1"`) {
		t.Errorf("Output missing JSON field: %s", output)
	}
	if !strings.Contains(output, `"field2":42`) {
		t.Errorf("Output missing numeric JSON field: %s", output)
	}
}

func TestWith(t *testing.T) {
	defer func() { logger = nil }()
	var buf bytes.Buffer

	logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	With("run", "abc").Info("Cell unsatisfiable", "x", 1)

	output := buf.String()
	if !strings.Contains(output, "run=abc") || !strings.Contains(output, "x=1") {
		t.Errorf("With() output missing attributes: %s", output)
	}

	logger = nil
	With("run", "abc").Info("discarded") // must not panic
}

func TestFormattedLogging(t *testing.T) {
	defer func() { logger = nil }()
	var buf bytes.Buffer

	logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	Debugf("Debug: %d + %d = %d", 1, 2, 3)
	Infof("Info: %s", "test")
	Warningf("Warning: %.2f%%", 99.95)
	Errorf("Error: %v", "failed")

	output := buf.String()

	if !strings.Contains(output, "Debug: 1 + 2 = 3") {
		t.Error("Debugf output incorrect")
	}
	if !strings.Contains(output, "Info: test") {
		t.Error("Infof output incorrect")
	}
	if !strings.Contains(output, "Warning: 99.95%") {
		t.Error("Warningf output incorrect")
	}
	if !strings.Contains(output, "Error: failed") {
		t.Error("Errorf output incorrect")
	}
}

func TestMultiHandler(t *testing.T) {
	defer func() { logger = nil }()
	var buf1, buf2 bytes.Buffer

	handler1 := slog.NewTextHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler2 := slog.NewTextHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelError})

	logger = slog.New(newMultiHandler(handler1, handler2)).With("run", "r1")

	Info("Multi-handler test", "field", "value")
	Error("Both see this")

	output1 := buf1.String()
	output2 := buf2.String()

	if !strings.Contains(output1, "Multi-handler test") || !strings.Contains(output1, "field=value") {
		t.Errorf("First handler output = %s", output1)
	}
	if strings.Contains(output2, "Multi-handler test") {
		t.Error("Second handler received a record below its level")
	}
	if !strings.Contains(output2, "Both see this") || !strings.Contains(output2, "run=r1") {
		t.Errorf("Second handler output = %s", output2)
	}
}

func TestNilLogger(t *testing.T) {
	logger = nil

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logging with nil logger caused panic: %v", r)
		}
	}()

	Debug("debug")
	Info("info")
	Warning("warning")
	Error("error")
}
