package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"accel-ng/internal/rotation"
)

type Config struct {
	IMU    IMUConfig    `yaml:"imu"`
	Sinks  SinksConfig  `yaml:"sinks"`
	Replay ReplayConfig `yaml:"replay"`
	Web    WebConfig    `yaml:"web"`
}

type IMUConfig struct {
	Enable   bool              `yaml:"enable"`
	I2CBus   int               `yaml:"i2c_bus"`
	Addr     uint16            `yaml:"addr"`
	Rotation rotation.Rotation `yaml:"rotation"`
	RangeG   int               `yaml:"range_g"`
	RateHz   float64           `yaml:"rate_hz"`
	FIFO     bool              `yaml:"fifo"`

	DataReadyGPIO       int           `yaml:"drdy_gpio"`
	PollInterval        time.Duration `yaml:"poll_interval"`
	TemperatureInterval time.Duration `yaml:"temperature_interval"`
}

type SinksConfig struct {
	Queue  int          `yaml:"queue"`
	UDP    UDPConfig    `yaml:"udp"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Record RecordConfig `yaml:"record"`
}

type UDPConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

type MQTTConfig struct {
	Enable      bool          `yaml:"enable"`
	Broker      string        `yaml:"broker"`
	ClientID    string        `yaml:"client_id"`
	TopicPrefix string        `yaml:"topic_prefix"`
	KeepAlive   time.Duration `yaml:"keepalive"`
	QoS         int           `yaml:"qos"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns a validated configuration with every default applied.
func Default() Config {
	var cfg Config
	_ = DefaultAndValidate(&cfg)
	return cfg
}

// DefaultAndValidate fills unset fields and rejects inconsistent settings.
func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	imu := &cfg.IMU
	if imu.I2CBus == 0 {
		imu.I2CBus = 1
	}
	if imu.I2CBus < 0 {
		return fmt.Errorf("imu.i2c_bus must be >= 0")
	}
	if imu.Addr == 0 {
		imu.Addr = 0x68
	}
	if imu.Addr > 0x7F {
		return fmt.Errorf("imu.addr must be a 7-bit address")
	}
	if imu.RangeG == 0 {
		imu.RangeG = 16
	}
	switch imu.RangeG {
	case 2, 4, 8, 16:
	default:
		return fmt.Errorf("imu.range_g must be one of 2, 4, 8, 16")
	}
	if imu.RateHz == 0 {
		imu.RateHz = 1125
	}
	if imu.RateHz < 0 {
		return fmt.Errorf("imu.rate_hz must be > 0")
	}
	if imu.DataReadyGPIO < 0 {
		return fmt.Errorf("imu.drdy_gpio must be >= 0")
	}
	if imu.PollInterval <= 0 {
		imu.PollInterval = 2 * time.Millisecond
	}
	if imu.TemperatureInterval <= 0 {
		imu.TemperatureInterval = 1 * time.Second
	}

	sinks := &cfg.Sinks
	if sinks.Queue == 0 {
		sinks.Queue = 256
	}
	if sinks.Queue < 0 {
		return fmt.Errorf("sinks.queue must be > 0")
	}
	if sinks.UDP.Enable && sinks.UDP.Dest == "" {
		return fmt.Errorf("sinks.udp.dest is required when sinks.udp.enable is true")
	}
	if sinks.MQTT.Enable && sinks.MQTT.Broker == "" {
		return fmt.Errorf("sinks.mqtt.broker is required when sinks.mqtt.enable is true")
	}
	if sinks.MQTT.QoS < 0 || sinks.MQTT.QoS > 2 {
		return fmt.Errorf("sinks.mqtt.qos must be 0, 1 or 2")
	}
	if sinks.MQTT.KeepAlive <= 0 {
		sinks.MQTT.KeepAlive = 30 * time.Second
	}
	if sinks.MQTT.TopicPrefix == "" {
		sinks.MQTT.TopicPrefix = "accel/"
	}
	if sinks.Record.Enable && sinks.Record.Path == "" {
		return fmt.Errorf("sinks.record.path is required when sinks.record.enable is true")
	}

	if cfg.Replay.Speed == 0 {
		cfg.Replay.Speed = 1
	}
	if cfg.Replay.Speed < 0 {
		return fmt.Errorf("replay.speed must be > 0")
	}
	if cfg.Replay.Path != "" && sinks.Record.Enable && cfg.Replay.Path == sinks.Record.Path {
		return fmt.Errorf("replay.path and sinks.record.path must differ")
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	return nil
}
