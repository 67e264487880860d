// Package config loads the host's runtime tuning from a JSON file. Fields
// are pointers so partial config files override only what they name; the
// Get* methods supply fallback defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tactile-robotics/handlink/internal/link"
	"github.com/tactile-robotics/handlink/internal/scheduler"
)

// Config is the root configuration for the host bridge. The schema doubles
// as the documented surface of everything an operator can tune.
type Config struct {
	// PortPath is the serial device, e.g. /dev/ttyUSB0.
	PortPath *string `json:"port_path,omitempty"`

	// EnableTX gates transmission at startup.
	EnableTX *bool `json:"enable_tx,omitempty"`

	// CadenceHz is the frame transmission rate in Hz.
	CadenceHz *int `json:"cadence_hz,omitempty"`

	// Alpha is the smoothing coefficient in [0,1]; 1 disables smoothing.
	Alpha *float64 `json:"alpha,omitempty"`

	// PoseListenAddr is the UDP address pose frames arrive on.
	PoseListenAddr *string `json:"pose_listen_addr,omitempty"`

	// Serial holds the low-level port parameters and retry policy.
	Serial *link.Options `json:"serial,omitempty"`
}

func ptrString(v string) *string    { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }

// Default returns a Config with every field set to its default value.
func Default() *Config {
	serial, _ := link.Options{}.Normalize()
	return &Config{
		PortPath:       ptrString("/dev/ttyUSB0"),
		EnableTX:       ptrBool(false),
		CadenceHz:      ptrInt(20),
		Alpha:          ptrFloat64(0.25),
		PoseListenAddr: ptrString("127.0.0.1:9440"),
		Serial:         &serial,
	}
}

// Load reads a Config from a JSON file. The file must have a .json
// extension and stay under the max file size. Fields omitted from the file
// fall back to defaults through the Get* methods, so partial configs are
// safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configured values are usable.
func (c *Config) Validate() error {
	if c.CadenceHz != nil {
		if *c.CadenceHz < scheduler.MinCadenceHz || *c.CadenceHz > scheduler.MaxCadenceHz {
			return fmt.Errorf("cadence_hz must be between %d and %d, got %d",
				scheduler.MinCadenceHz, scheduler.MaxCadenceHz, *c.CadenceHz)
		}
	}
	if c.Alpha != nil {
		if *c.Alpha < 0 || *c.Alpha > 1 {
			return fmt.Errorf("alpha must be between 0 and 1, got %f", *c.Alpha)
		}
	}
	if c.PortPath != nil && *c.PortPath == "" {
		return fmt.Errorf("port_path must not be empty")
	}
	if c.Serial != nil {
		if _, err := c.Serial.Normalize(); err != nil {
			return fmt.Errorf("serial: %w", err)
		}
	}
	return nil
}

// GetPortPath returns the serial device path or the default.
func (c *Config) GetPortPath() string {
	if c.PortPath == nil || *c.PortPath == "" {
		return "/dev/ttyUSB0"
	}
	return *c.PortPath
}

// GetEnableTX returns the transmission gate or the default.
func (c *Config) GetEnableTX() bool {
	if c.EnableTX == nil {
		return false
	}
	return *c.EnableTX
}

// GetCadenceHz returns the transmission rate or the default.
func (c *Config) GetCadenceHz() int {
	if c.CadenceHz == nil {
		return 20
	}
	return *c.CadenceHz
}

// GetAlpha returns the smoothing coefficient or the default.
func (c *Config) GetAlpha() float64 {
	if c.Alpha == nil {
		return 0.25
	}
	return *c.Alpha
}

// GetPoseListenAddr returns the pose UDP listen address or the default.
func (c *Config) GetPoseListenAddr() string {
	if c.PoseListenAddr == nil || *c.PoseListenAddr == "" {
		return "127.0.0.1:9440"
	}
	return *c.PoseListenAddr
}

// GetSerial returns the normalized serial options or the defaults.
func (c *Config) GetSerial() link.Options {
	var base link.Options
	if c.Serial != nil {
		base = *c.Serial
	}
	opts, err := base.Normalize()
	if err != nil {
		opts, _ = link.Options{}.Normalize()
	}
	return opts
}
