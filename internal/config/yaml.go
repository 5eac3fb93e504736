// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	applog "ampmeter/internal/log"
	"ampmeter/pkg/bitint"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid configuration")

var logger = applog.New("config")

// LoadConfig loads configuration from a YAML file at path. An empty path
// searches "ampmeter.yaml" in the working directory and falls back to the
// defaults when it is absent. ENV_* overrides are applied after the file, then
// the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat("ampmeter.yaml"); err == nil {
			path = "ampmeter.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		logger.Debugf("loaded %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the ranges the engine and meter rely on.
func (c *Config) Validate() error {
	a := c.Audio
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: audio.sample_rate %.0f outside [%d, %d]",
			ErrInvalid, a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("%w: audio.frames_per_buffer %d outside [1, %d]",
			ErrInvalid, a.FramesPerBuffer, MaxBufferFrames)
	}
	if a.InputChannels <= 0 {
		return fmt.Errorf("%w: audio.input_channels must be positive", ErrInvalid)
	}
	if a.InputDevice < MinDeviceID {
		return fmt.Errorf("%w: audio.input_device %d below %d", ErrInvalid, a.InputDevice, MinDeviceID)
	}

	m := c.Meter
	if math.IsNaN(m.Smoothing) || m.Smoothing < 0 || m.Smoothing >= 1 {
		return fmt.Errorf("%w: meter.smoothing %v outside [0, 1)", ErrInvalid, m.Smoothing)
	}
	if m.WindowSize <= 0 || m.WindowSize > MaxWindowSize || !bitint.IsPowerOfTwo(m.WindowSize) {
		return fmt.Errorf("%w: meter.window_size %d must be a power of two up to %d",
			ErrInvalid, m.WindowSize, MaxWindowSize)
	}

	t := c.Transport
	if (t.WSEnabled || t.UDPEnabled) && t.SendInterval <= 0 {
		return fmt.Errorf("%w: transport.send_interval must be positive", ErrInvalid)
	}
	if t.WSEnabled && t.WSAddress == "" {
		return fmt.Errorf("%w: transport.ws_address must be set when websocket is enabled", ErrInvalid)
	}
	if t.UDPEnabled && t.UDPAddress == "" {
		return fmt.Errorf("%w: transport.udp_address must be set when UDP is enabled", ErrInvalid)
	}

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

// applyEnvOverrides reads ENV_LOG_LEVEL, ENV_SMOOTHING, ENV_WS_ENABLED,
// ENV_WS_ADDRESS, ENV_UDP_ENABLED, ENV_UDP_ADDRESS and ENV_SEND_INTERVAL.
// Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		logger.Debugf("overriding log_level from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_SMOOTHING"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Meter.Smoothing = f
			logger.Debugf("overriding meter.smoothing from env: %v", f)
		}
	}
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.WSEnabled = b
			logger.Debugf("overriding transport.ws_enabled from env: %v", b)
		}
	}
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WSAddress = val
		logger.Debugf("overriding transport.ws_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
			logger.Debugf("overriding transport.udp_enabled from env: %v", b)
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_ADDRESS"); ok {
		c.Transport.UDPAddress = val
		logger.Debugf("overriding transport.udp_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_SEND_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.SendInterval = d
			logger.Debugf("overriding transport.send_interval from env: %s", d)
		}
	}
}
