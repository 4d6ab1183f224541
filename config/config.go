// Package config loads and saves bloopgo's persisted configuration: MIDI
// port/controller selection and the scheduler's tunable constants. Loop
// contents are never persisted — only this live setup state.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// ControllerType identifies the kind of MIDI device a port is treated as.
type ControllerType string

const (
	ControllerLaunchpad ControllerType = "launchpad" // control surface: DoKey/ToggleListening/ClearAll
	ControllerKeyboard  ControllerType = "keyboard"   // note input only
)

// ControllerConfig is a saved controller/port configuration.
type ControllerConfig struct {
	PortName     string         `json:"portName"`
	Type         ControllerType `json:"type"`
	AutoConnect  bool           `json:"autoConnect"`
	InputChannel int            `json:"inputChannel,omitempty"`
}

// OutputConfig names the MIDI output port and the channel each bloop
// sends on, regardless of the channel its input arrived on.
type OutputConfig struct {
	PortName      string `json:"portName,omitempty"`
	BloopChannels []int  `json:"bloopChannels,omitempty"`
}

// LooperConfig holds the scheduler's tunable constants (spec §6).
type LooperConfig struct {
	BloopCount           int  `json:"bloopCount"`
	LookbackMS           int  `json:"lookbackMs"`
	SleepPrecisionMS     int  `json:"sleepPrecisionMs"`
	AllowUnmatchedNoteOn bool `json:"allowUnmatchedNoteOn"`
}

// Lookback returns the look-back window as a Duration.
func (l LooperConfig) Lookback() time.Duration {
	return time.Duration(l.LookbackMS) * time.Millisecond
}

// SleepPrecision returns the trusted OS sleep precision as a Duration.
func (l LooperConfig) SleepPrecision() time.Duration {
	return time.Duration(l.SleepPrecisionMS) * time.Millisecond
}

// Config is the top-level persisted configuration.
type Config struct {
	Controllers []ControllerConfig `json:"controllers,omitempty"`
	Output      OutputConfig       `json:"output,omitempty"`
	Looper      LooperConfig       `json:"looper"`
}

// DefaultConfig returns sane defaults: 3 bloops, a 100ms look-back, a
// 100ms trusted sleep precision, and unmatched note-ons allowed (spec §6).
func DefaultConfig() *Config {
	return &Config{
		Controllers: []ControllerConfig{
			{PortName: "Launchpad X LPX MIDI", Type: ControllerLaunchpad, AutoConnect: true},
		},
		Looper: LooperConfig{
			BloopCount:           3,
			LookbackMS:           100,
			SleepPrecisionMS:     100,
			AllowUnmatchedNoteOn: true,
		},
	}
}

// ConfigDir returns the directory holding bloopgo's config and debug log.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bloopgo"), nil
}

// ConfigPath returns the full path to config.json.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Looper.BloopCount == 0 {
		cfg.Looper = DefaultConfig().Looper
	}

	return &cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// FindController finds a controller config by port name.
func (c *Config) FindController(portName string) *ControllerConfig {
	for i := range c.Controllers {
		if c.Controllers[i].PortName == portName {
			return &c.Controllers[i]
		}
	}
	return nil
}

// AddController adds or updates a controller config.
func (c *Config) AddController(ctrl ControllerConfig) {
	for i := range c.Controllers {
		if c.Controllers[i].PortName == ctrl.PortName {
			c.Controllers[i] = ctrl
			return
		}
	}
	c.Controllers = append(c.Controllers, ctrl)
}

// AutoConnectControllers returns controllers with autoConnect enabled.
func (c *Config) AutoConnectControllers() []ControllerConfig {
	var result []ControllerConfig
	for _, ctrl := range c.Controllers {
		if ctrl.AutoConnect {
			result = append(result, ctrl)
		}
	}
	return result
}
