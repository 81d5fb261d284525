// Package config loads the monitor's JSON configuration file. Fields omitted
// from the file keep their defaults, so partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration. All fields are optional; the Get*
// accessors supply the nominal defaults.
type Config struct {
	// Acquisition
	SerialPort         *string `json:"serial_port,omitempty"`
	BaudRate           *int    `json:"baud_rate,omitempty"`
	SlaveID            *int    `json:"slave_id,omitempty"`
	PollIntervalMS     *int    `json:"poll_interval_ms,omitempty"`
	ResponseTimeoutMS  *int    `json:"response_timeout_ms,omitempty"`
	DisconnectAfterSec *int    `json:"disconnect_after_sec,omitempty"`
	BufferSize         *int    `json:"buffer_size,omitempty"`

	// Analysis
	AnalysisIntervalMS *int     `json:"analysis_interval_ms,omitempty"`
	SampleRateHz       *float64 `json:"sample_rate_hz,omitempty"`
	AlarmWindow        *int     `json:"alarm_window,omitempty"`
	FFTWindow          *int     `json:"fft_window,omitempty"`
	LearningSec        *int     `json:"learning_sec,omitempty"`

	// Default thresholds until a baseline is learned.
	AccRMSMax   *float64 `json:"acc_rms_max,omitempty"`
	VelPeakMax  *float64 `json:"vel_peak_max,omitempty"`
	DispPeakMax *float64 `json:"disp_peak_max,omitempty"`
	TempMax     *float64 `json:"temp_max,omitempty"`

	// Collaborators
	DisplayPort *string `json:"display_port,omitempty"`
	HTTPListen  *string `json:"http_listen,omitempty"`
	DBPath      *string `json:"db_path,omitempty"`
}

// Default returns an empty Config; every accessor falls back to its nominal
// value.
func Default() *Config { return &Config{} }

// Load reads and validates a Config from a JSON file.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges on whatever fields are present.
func (c *Config) Validate() error {
	if c.SlaveID != nil && (*c.SlaveID < 0x01 || *c.SlaveID > 0x7F) {
		return fmt.Errorf("slave_id must be in [0x01, 0x7F], got %#x", *c.SlaveID)
	}
	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", *c.BaudRate)
	}
	if c.PollIntervalMS != nil && *c.PollIntervalMS <= 0 {
		return fmt.Errorf("poll_interval_ms must be positive, got %d", *c.PollIntervalMS)
	}
	if c.AnalysisIntervalMS != nil && *c.AnalysisIntervalMS <= 0 {
		return fmt.Errorf("analysis_interval_ms must be positive, got %d", *c.AnalysisIntervalMS)
	}
	if c.BufferSize != nil && *c.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive, got %d", *c.BufferSize)
	}
	if c.LearningSec != nil && *c.LearningSec <= 0 {
		return fmt.Errorf("learning_sec must be positive, got %d", *c.LearningSec)
	}
	for name, v := range map[string]*float64{
		"acc_rms_max":   c.AccRMSMax,
		"vel_peak_max":  c.VelPeakMax,
		"disp_peak_max": c.DispPeakMax,
		"temp_max":      c.TempMax,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must not be negative, got %v", name, *v)
		}
	}
	return nil
}

// Accessors with nominal defaults.

func (c *Config) GetSerialPort() string { return strOr(c.SerialPort, "/dev/ttyUSB0") }
func (c *Config) GetBaudRate() int      { return intOr(c.BaudRate, 9600) }
func (c *Config) GetSlaveID() byte      { return byte(intOr(c.SlaveID, 0x50)) }

func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(intOr(c.PollIntervalMS, 10)) * time.Millisecond
}

func (c *Config) GetResponseTimeout() time.Duration {
	return time.Duration(intOr(c.ResponseTimeoutMS, 200)) * time.Millisecond
}

func (c *Config) GetDisconnectAfter() time.Duration {
	return time.Duration(intOr(c.DisconnectAfterSec, 5)) * time.Second
}

func (c *Config) GetBufferSize() int { return intOr(c.BufferSize, 5120) }

func (c *Config) GetAnalysisInterval() time.Duration {
	return time.Duration(intOr(c.AnalysisIntervalMS, 33)) * time.Millisecond
}

func (c *Config) GetSampleRate() float64 { return floatOr(c.SampleRateHz, 100.0) }
func (c *Config) GetAlarmWindow() int    { return intOr(c.AlarmWindow, 10) }
func (c *Config) GetFFTWindow() int      { return intOr(c.FFTWindow, 512) }

func (c *Config) GetLearningDuration() time.Duration {
	return time.Duration(intOr(c.LearningSec, 30)) * time.Second
}

func (c *Config) GetAccRMSMax() float64   { return floatOr(c.AccRMSMax, 2.0) }
func (c *Config) GetVelPeakMax() float64  { return floatOr(c.VelPeakMax, 100.0) }
func (c *Config) GetDispPeakMax() float64 { return floatOr(c.DispPeakMax, 500.0) }
func (c *Config) GetTempMax() float64     { return floatOr(c.TempMax, 60.0) }

func (c *Config) GetDisplayPort() string { return strOr(c.DisplayPort, "") }
func (c *Config) GetHTTPListen() string  { return strOr(c.HTTPListen, ":8080") }
func (c *Config) GetDBPath() string      { return strOr(c.DBPath, "vibewatch.db") }

func strOr(p *string, def string) string {
	if p != nil {
		return *p
	}
	return def
}

func intOr(p *int, def int) int {
	if p != nil {
		return *p
	}
	return def
}

func floatOr(p *float64, def float64) float64 {
	if p != nil {
		return *p
	}
	return def
}
