package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tactile-robotics/handlink/internal/link"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.PortPath == nil || *cfg.PortPath != "/dev/ttyUSB0" {
		t.Errorf("Expected PortPath /dev/ttyUSB0, got %v", cfg.PortPath)
	}
	if cfg.EnableTX == nil || *cfg.EnableTX != false {
		t.Errorf("Expected EnableTX false, got %v", cfg.EnableTX)
	}
	if cfg.CadenceHz == nil || *cfg.CadenceHz != 20 {
		t.Errorf("Expected CadenceHz 20, got %v", cfg.CadenceHz)
	}
	if cfg.Alpha == nil || *cfg.Alpha != 0.25 {
		t.Errorf("Expected Alpha 0.25, got %v", cfg.Alpha)
	}
	if cfg.Serial == nil || cfg.Serial.BaudRate != 115200 {
		t.Errorf("Expected Serial baud 115200, got %v", cfg.Serial)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "port_path": "/dev/ttyACM1",
  "enable_tx": true,
  "cadence_hz": 30,
  "alpha": 0.5,
  "pose_listen_addr": "0.0.0.0:9500",
  "serial": {"baud_rate": 57600, "max_retries": 5}
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetPortPath() != "/dev/ttyACM1" {
		t.Errorf("GetPortPath() = %q, want /dev/ttyACM1", cfg.GetPortPath())
	}
	if cfg.GetEnableTX() != true {
		t.Errorf("GetEnableTX() = %v, want true", cfg.GetEnableTX())
	}
	if cfg.GetCadenceHz() != 30 {
		t.Errorf("GetCadenceHz() = %d, want 30", cfg.GetCadenceHz())
	}
	if cfg.GetAlpha() != 0.5 {
		t.Errorf("GetAlpha() = %f, want 0.5", cfg.GetAlpha())
	}
	if cfg.GetPoseListenAddr() != "0.0.0.0:9500" {
		t.Errorf("GetPoseListenAddr() = %q, want 0.0.0.0:9500", cfg.GetPoseListenAddr())
	}
	serial := cfg.GetSerial()
	if serial.BaudRate != 57600 {
		t.Errorf("Serial baud = %d, want 57600", serial.BaudRate)
	}
	if serial.MaxRetries != 5 {
		t.Errorf("Serial max retries = %d, want 5", serial.MaxRetries)
	}
	// Unset serial fields are normalized to defaults.
	if serial.DataBits != 8 || serial.StopBits != 1 || serial.Parity != "N" {
		t.Errorf("Serial framing = %d%s%d, want 8N1", serial.DataBits, serial.Parity, serial.StopBits)
	}
}

func TestLoadPartial(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	partialJSON := `{
  "cadence_hz": 10
}`
	if err := os.WriteFile(configPath, []byte(partialJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load partial config: %v", err)
	}

	if cfg.GetCadenceHz() != 10 {
		t.Errorf("Expected overridden CadenceHz 10, got %d", cfg.GetCadenceHz())
	}
	// Everything else keeps defaults.
	if cfg.GetAlpha() != 0.25 {
		t.Errorf("Expected default Alpha 0.25, got %f", cfg.GetAlpha())
	}
	if cfg.GetPortPath() != "/dev/ttyUSB0" {
		t.Errorf("Expected default PortPath, got %q", cfg.GetPortPath())
	}
	if cfg.GetEnableTX() != false {
		t.Errorf("Expected default EnableTX false, got %v", cfg.GetEnableTX())
	}
	if got := cfg.GetSerial(); got.RetryBackoff != 5*time.Millisecond {
		t.Errorf("Expected default retry backoff 5ms, got %v", got.RetryBackoff)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.json")

	invalidJSON := `{
  "cadence_hz": "fast"
`
	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestLoadRejectsNonJSON(t *testing.T) {
	_, err := Load("/some/path/config.yaml")
	if err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoadRejectsLargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "large.json")

	largeData := make([]byte, 2*1024*1024)
	if err := os.WriteFile(configPath, largeData, 0644); err != nil {
		t.Fatalf("Failed to write large file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Expected error for file size > 1MB, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name:    "default config",
			cfg:     Default(),
			wantErr: false,
		},
		{
			name:    "empty config is valid",
			cfg:     &Config{},
			wantErr: false,
		},
		{
			name:    "cadence too low",
			cfg:     &Config{CadenceHz: ptrInt(0)},
			wantErr: true,
		},
		{
			name:    "cadence too high",
			cfg:     &Config{CadenceHz: ptrInt(61)},
			wantErr: true,
		},
		{
			name:    "alpha negative",
			cfg:     &Config{Alpha: ptrFloat64(-0.1)},
			wantErr: true,
		},
		{
			name:    "alpha too high",
			cfg:     &Config{Alpha: ptrFloat64(1.5)},
			wantErr: true,
		},
		{
			name:    "empty port path",
			cfg:     &Config{PortPath: ptrString("")},
			wantErr: true,
		},
		{
			name:    "bad serial parity",
			cfg:     &Config{Serial: &link.Options{Parity: "Q"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetterDefaults(t *testing.T) {
	cfg := &Config{}

	if cfg.GetPortPath() != "/dev/ttyUSB0" {
		t.Errorf("GetPortPath() = %q, want /dev/ttyUSB0", cfg.GetPortPath())
	}
	if cfg.GetEnableTX() != false {
		t.Errorf("GetEnableTX() = %v, want false", cfg.GetEnableTX())
	}
	if cfg.GetCadenceHz() != 20 {
		t.Errorf("GetCadenceHz() = %d, want 20", cfg.GetCadenceHz())
	}
	if cfg.GetAlpha() != 0.25 {
		t.Errorf("GetAlpha() = %f, want 0.25", cfg.GetAlpha())
	}
	if cfg.GetPoseListenAddr() != "127.0.0.1:9440" {
		t.Errorf("GetPoseListenAddr() = %q, want 127.0.0.1:9440", cfg.GetPoseListenAddr())
	}
	serial := cfg.GetSerial()
	if serial.BaudRate != 115200 || serial.DataBits != 8 || serial.StopBits != 1 {
		t.Errorf("GetSerial() framing = %+v, want 115200 8N1", serial)
	}
}
