// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/a8m/envsubst"
	"gopkg.in/yaml.v3"
)

// Source kinds for compass.source and gps.source.
const (
	SourceMock    = "mock"
	SourceMPU9250 = "mpu9250"
	SourceMAVLink = "mavlink"
	SourceNMEA    = "nmea"
)

// MAVLink endpoint kinds.
const (
	EndpointSerial    = "serial"
	EndpointUDPServer = "udp-server"
	EndpointUDPClient = "udp-client"
	EndpointTCPClient = "tcp-client"
)

// ErrMissing is wrapped by validation errors for required settings.
var ErrMissing = errors.New("required setting missing")

// Config holds all application configuration values.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Topics  TopicsConfig  `yaml:"topics"`
	Compass CompassConfig `yaml:"compass"`
	IMU     IMUConfig     `yaml:"imu"`
	MAVLink MAVLinkConfig `yaml:"mavlink"`
	GPS     GPSConfig     `yaml:"gps"`
	Web     WebConfig     `yaml:"web"`
	Display DisplayConfig `yaml:"display"`
	Console ConsoleConfig `yaml:"console"`
}

// LogConfig selects the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// MQTTConfig is the broker address and one client id per binary.
type MQTTConfig struct {
	Broker            string `yaml:"broker"`
	ClientIDCompass   string `yaml:"client_id_compass"`
	ClientIDGPS       string `yaml:"client_id_gps"`
	ClientIDConsole   string `yaml:"client_id_console"`
	ClientIDWeb       string `yaml:"client_id_web"`
	ClientIDDisplay   string `yaml:"client_id_display"`
	ConnectTimeoutSec int    `yaml:"connect_timeout_sec"`
}

// TopicsConfig names the MQTT topics.
type TopicsConfig struct {
	Heading  string `yaml:"heading"`
	Location string `yaml:"location"`
	Command  string `yaml:"command"`
}

// CompassConfig tunes the orientation engine.
type CompassConfig struct {
	Source string `yaml:"source"`
	// SampleInterval is the pause between sensor reads, milliseconds.
	SampleInterval int `yaml:"sample_interval_ms"`
	// PublishInterval is the heading publish cadence, milliseconds.
	PublishInterval int `yaml:"publish_interval_ms"`
	// Smoothing is the low pass factor α in (0, 1].
	Smoothing float64 `yaml:"smoothing"`
	// GyroFusion is the per sample pull toward the absolute orientation,
	// 0 disables gyro integration.
	GyroFusion float64 `yaml:"gyro_fusion"`
	// OrthonormalTolerance bounds |M·Mᵀ - I| before a fused matrix is
	// reported as suspicious.
	OrthonormalTolerance float64 `yaml:"orthonormal_tolerance"`
}

// IMUConfig is the MPU9250 wiring.
type IMUConfig struct {
	SPIDevice string `yaml:"spi_device"`
	CSPin     string `yaml:"cs_pin"`
	// AccelRange: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	AccelRange byte `yaml:"accel_range"`
	// GyroRange: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	GyroRange byte `yaml:"gyro_range"`
	SelfTest  bool `yaml:"self_test"`
	Calibrate bool `yaml:"calibrate"`
}

// MAVLinkConfig selects the flight controller link.
type MAVLinkConfig struct {
	Endpoint string `yaml:"endpoint"`
	Address  string `yaml:"address"`
	Device   string `yaml:"device"`
	Baud     int    `yaml:"baud"`
	SystemID byte   `yaml:"system_id"`
}

// GPSConfig selects the location source.
type GPSConfig struct {
	Source     string `yaml:"source"`
	SerialPort string `yaml:"serial_port"`
	BaudRate   int    `yaml:"baud_rate"`
	// StableAfter is the number of consecutive nearby fixes needed before
	// the location counts as stable.
	StableAfter int `yaml:"stable_after"`
}

// WebConfig is the HTTP server.
type WebConfig struct {
	Port int `yaml:"port"`
}

// DisplayConfig is the SSD1306 OLED.
type DisplayConfig struct {
	I2CBus         string `yaml:"i2c_bus"`
	UpdateInterval int    `yaml:"update_interval_ms"`
}

// ConsoleConfig is the offline console.
type ConsoleConfig struct {
	LogInterval int `yaml:"log_interval_ms"`
}

// Default returns the configuration used for every unset key.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		MQTT: MQTTConfig{
			Broker:            "tcp://localhost:1883",
			ClientIDCompass:   "compass-producer",
			ClientIDGPS:       "compass-gps",
			ClientIDConsole:   "compass-console",
			ClientIDWeb:       "compass-web",
			ClientIDDisplay:   "compass-display",
			ConnectTimeoutSec: 10,
		},
		Topics: TopicsConfig{
			Heading:  "compass/heading",
			Location: "compass/location",
			Command:  "compass/command",
		},
		Compass: CompassConfig{
			Source:               SourceMock,
			SampleInterval:       20,
			PublishInterval:      100,
			Smoothing:            0.15,
			GyroFusion:           0.02,
			OrthonormalTolerance: 1e-3,
		},
		IMU: IMUConfig{
			SPIDevice: "/dev/spidev0.0",
		},
		MAVLink: MAVLinkConfig{
			Endpoint: EndpointUDPServer,
			Address:  "0.0.0.0:14550",
			Baud:     57600,
			SystemID: 254,
		},
		GPS: GPSConfig{
			Source:      SourceNMEA,
			SerialPort:  "/dev/serial0",
			BaudRate:    9600,
			StableAfter: 3,
		},
		Web:     WebConfig{Port: 8080},
		Display: DisplayConfig{UpdateInterval: 200},
		Console: ConsoleConfig{LogInterval: 500},
	}
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: InitGlobal loads at most once.
//   - configMu: write lock while loading, read lock for Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the YAML configuration file, expanding ${VAR} references from
// the environment.
func Load(configPath string) (*Config, error) {
	buf, err := envsubst.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(buf)
}

// Parse decodes YAML on top of Default and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks required fields and value ranges.
func (c *Config) validate() error {
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker: %w", ErrMissing)
	}
	if c.MQTT.ConnectTimeoutSec <= 0 {
		return fmt.Errorf("mqtt.connect_timeout_sec must be positive, got %d", c.MQTT.ConnectTimeoutSec)
	}
	if c.Topics.Heading == "" || c.Topics.Location == "" || c.Topics.Command == "" {
		return fmt.Errorf("topics.heading, topics.location and topics.command: %w", ErrMissing)
	}

	switch c.Compass.Source {
	case SourceMock, SourceMPU9250, SourceMAVLink:
	default:
		return fmt.Errorf("compass.source must be %s, %s or %s, got %q",
			SourceMock, SourceMPU9250, SourceMAVLink, c.Compass.Source)
	}
	if c.Compass.SampleInterval <= 0 {
		return fmt.Errorf("compass.sample_interval_ms must be positive, got %d", c.Compass.SampleInterval)
	}
	if c.Compass.PublishInterval <= 0 {
		return fmt.Errorf("compass.publish_interval_ms must be positive, got %d", c.Compass.PublishInterval)
	}
	if !(c.Compass.Smoothing > 0 && c.Compass.Smoothing <= 1) {
		return fmt.Errorf("compass.smoothing must be in (0, 1], got %g", c.Compass.Smoothing)
	}
	if !(c.Compass.GyroFusion >= 0 && c.Compass.GyroFusion <= 1) {
		return fmt.Errorf("compass.gyro_fusion must be in [0, 1], got %g", c.Compass.GyroFusion)
	}
	if !(c.Compass.OrthonormalTolerance >= 0) || math.IsInf(c.Compass.OrthonormalTolerance, 1) {
		return fmt.Errorf("compass.orthonormal_tolerance must be a finite value >= 0, got %g", c.Compass.OrthonormalTolerance)
	}

	if c.Compass.Source == SourceMPU9250 && c.IMU.SPIDevice == "" {
		return fmt.Errorf("imu.spi_device: %w", ErrMissing)
	}
	if c.IMU.AccelRange > 3 {
		return fmt.Errorf("imu.accel_range must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", c.IMU.AccelRange)
	}
	if c.IMU.GyroRange > 3 {
		return fmt.Errorf("imu.gyro_range must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", c.IMU.GyroRange)
	}

	if c.Compass.Source == SourceMAVLink || c.GPS.Source == SourceMAVLink {
		if err := c.MAVLink.validate(); err != nil {
			return err
		}
	}

	switch c.GPS.Source {
	case SourceNMEA:
		if c.GPS.SerialPort == "" {
			return fmt.Errorf("gps.serial_port: %w", ErrMissing)
		}
		if c.GPS.BaudRate <= 0 {
			return fmt.Errorf("gps.baud_rate must be positive, got %d", c.GPS.BaudRate)
		}
	case SourceMAVLink, SourceMock:
	default:
		return fmt.Errorf("gps.source must be %s, %s or %s, got %q",
			SourceNMEA, SourceMAVLink, SourceMock, c.GPS.Source)
	}
	if c.GPS.StableAfter < 0 {
		return fmt.Errorf("gps.stable_after must not be negative, got %d", c.GPS.StableAfter)
	}

	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port out of range: %d", c.Web.Port)
	}
	if c.Display.UpdateInterval <= 0 {
		return fmt.Errorf("display.update_interval_ms must be positive, got %d", c.Display.UpdateInterval)
	}
	if c.Console.LogInterval <= 0 {
		return fmt.Errorf("console.log_interval_ms must be positive, got %d", c.Console.LogInterval)
	}
	return nil
}

func (m MAVLinkConfig) validate() error {
	switch m.Endpoint {
	case EndpointSerial:
		if m.Device == "" {
			return fmt.Errorf("mavlink.device: %w", ErrMissing)
		}
		if m.Baud <= 0 {
			return fmt.Errorf("mavlink.baud must be positive, got %d", m.Baud)
		}
	case EndpointUDPServer, EndpointUDPClient, EndpointTCPClient:
		if m.Address == "" {
			return fmt.Errorf("mavlink.address: %w", ErrMissing)
		}
	default:
		return fmt.Errorf("unknown mavlink.endpoint %q", m.Endpoint)
	}
	if m.SystemID == 0 {
		return fmt.Errorf("mavlink.system_id must be 1-255")
	}
	return nil
}

// SampleEvery returns compass.sample_interval_ms as a duration.
func (c CompassConfig) SampleEvery() time.Duration {
	return time.Duration(c.SampleInterval) * time.Millisecond
}

// PublishEvery returns compass.publish_interval_ms as a duration.
func (c CompassConfig) PublishEvery() time.Duration {
	return time.Duration(c.PublishInterval) * time.Millisecond
}

// ConnectTimeout returns mqtt.connect_timeout_sec as a duration.
func (m MQTTConfig) ConnectTimeout() time.Duration {
	return time.Duration(m.ConnectTimeoutSec) * time.Second
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads; later calls return nil.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
