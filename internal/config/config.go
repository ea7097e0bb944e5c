package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Failure policies for the remote poller.
const (
	OnFailureRetain = "retain"
	OnFailureMark   = "mark"
)

// Decision providers.
const (
	ProviderReference = "reference"
	ProviderOpenAI    = "openai"
)

var channelPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

type Config struct {
	Server struct {
		Port      int `yaml:"port"`
		RateLimit struct {
			Capacity        int `yaml:"capacity"`
			RefillPerSecond int `yaml:"refillPerSecond"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Device struct {
		Path     string `yaml:"path"`
		BaudRate int    `yaml:"baudRate"`
		Channel  string `yaml:"channel"`
	} `yaml:"device"`

	Client struct {
		BridgeURL      string        `yaml:"bridgeURL"`
		PollInterval   time.Duration `yaml:"pollInterval"`
		RequestTimeout time.Duration `yaml:"requestTimeout"`
		OnFailure      string        `yaml:"onFailure"`
	} `yaml:"client"`

	Session struct {
		Duration time.Duration `yaml:"duration"`
		Tick     time.Duration `yaml:"tick"`
		Settle   time.Duration `yaml:"settle"`
	} `yaml:"session"`

	Decision struct {
		Provider        string  `yaml:"provider"`
		SafeProbability float64 `yaml:"safeProbability"`
	} `yaml:"decision"`

	OpenAI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`

	MQTT struct {
		Broker   string `yaml:"broker"`
		Topic    string `yaml:"topic"`
		ClientID string `yaml:"clientID"`
	} `yaml:"mqtt"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file overrides a key.
func Default() *Config {
	var cfg Config
	cfg.Server.Port = 8081
	cfg.Device.Path = "/dev/ttyUSB0"
	cfg.Device.BaudRate = 9600
	cfg.Device.Channel = "tds"
	cfg.Client.BridgeURL = "http://localhost:8081"
	cfg.Client.PollInterval = time.Second
	cfg.Client.RequestTimeout = 800 * time.Millisecond
	cfg.Client.OnFailure = OnFailureRetain
	cfg.Session.Duration = 45 * time.Second
	cfg.Session.Tick = time.Second
	cfg.Session.Settle = 2 * time.Second
	cfg.Decision.Provider = ProviderReference
	cfg.Decision.SafeProbability = 0.7
	cfg.MQTT.Topic = "etongue/readings"
	cfg.MQTT.ClientID = "etongue-bridge"
	cfg.Log.Level = "info"
	return &cfg
}

// Load baca file config.yaml di atas nilai default. File yang tidak ada bukan error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if v := os.Getenv("DEVICE_PATH"); v != "" {
		cfg.Device.Path = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return invalid("server.port %d out of range", c.Server.Port)
	}
	if c.Device.BaudRate <= 0 {
		return invalid("device.baudRate must be positive")
	}
	if !ValidChannel(c.Device.Channel) {
		return invalid("device.channel %q", c.Device.Channel)
	}
	if c.Client.PollInterval <= 0 || c.Client.RequestTimeout <= 0 {
		return invalid("client intervals must be positive")
	}
	if c.Client.OnFailure != OnFailureRetain && c.Client.OnFailure != OnFailureMark {
		return invalid("client.onFailure %q", c.Client.OnFailure)
	}
	if c.Session.Duration <= 0 || c.Session.Tick <= 0 || c.Session.Settle < 0 {
		return invalid("session durations must be positive")
	}
	if c.Session.Tick > c.Session.Duration {
		return invalid("session.tick %s exceeds session.duration %s", c.Session.Tick, c.Session.Duration)
	}
	switch c.Decision.Provider {
	case ProviderReference:
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return invalid("openai.apiKey required for provider openai")
		}
	default:
		return invalid("decision.provider %q", c.Decision.Provider)
	}
	if c.Decision.SafeProbability < 0 || c.Decision.SafeProbability > 1 {
		return invalid("decision.safeProbability must be within [0,1]")
	}
	return nil
}

// Addr is the bridge listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *Config) LogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ValidChannel reports whether name is usable as a channel and URL segment.
func ValidChannel(name string) bool {
	return channelPattern.MatchString(name)
}
