package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied by Default and Load.
const (
	DefaultPort              = 9470
	DefaultProbeTimeout      = 3 * time.Second
	DefaultConnectTimeout    = 10 * time.Second
	DefaultMaxAttempts       = 5
	DefaultBackoffFloor      = 2 * time.Second
	DefaultBackoffCeiling    = 30 * time.Second
	DefaultHeartbeatInterval = 10 * time.Second
	DefaultPollInterval      = 100 * time.Millisecond
	DefaultDrainCooldown     = 1 * time.Second
)

// Duration wraps time.Duration for YAML parsing of strings like "10s".
type Duration time.Duration

// UnmarshalYAML parses "10s"-style strings and bare integers (nanoseconds).
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(n)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in time.Duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// EndpointConfig identifies the remote service.
type EndpointConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the endpoint as "host:port".
func (e EndpointConfig) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ProbeConfig tunes the availability prober.
type ProbeConfig struct {
	Timeout        Duration `yaml:"timeout"`
	BackoffFloor   Duration `yaml:"backoff_floor"`
	BackoffCeiling Duration `yaml:"backoff_ceiling"`
}

// ConnectConfig tunes the supervisor's connect attempts.
type ConnectConfig struct {
	Timeout        Duration `yaml:"timeout"`
	MaxAttempts    int      `yaml:"max_attempts"`
	BackoffFloor   Duration `yaml:"backoff_floor"`
	BackoffCeiling Duration `yaml:"backoff_ceiling"`
}

// SessionConfig tunes the session loop.
type SessionConfig struct {
	HeartbeatInterval Duration `yaml:"heartbeat_interval"`
	PollInterval      Duration `yaml:"poll_interval"`
	DrainCooldown     Duration `yaml:"drain_cooldown"`
}

// TLSConfig selects and configures TLS for the transport.
type TLSConfig struct {
	Enabled            bool   `yaml:"enabled"`
	CertFile           string `yaml:"cert_file"`
	KeyFile            string `yaml:"key_file"`
	CAFile             string `yaml:"ca_file"`
	ServerName         string `yaml:"server_name"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// LogConfig configures operational and event logging.
type LogConfig struct {
	// Level is the slog level: debug, info, warn, error.
	Level string `yaml:"level"`

	// EventFile, if set, receives the CBOR event stream.
	EventFile string `yaml:"event_file"`
}

// Config is the full uplinkd configuration.
type Config struct {
	Endpoint EndpointConfig `yaml:"endpoint"`
	Probe    ProbeConfig    `yaml:"probe"`
	Connect  ConnectConfig  `yaml:"connect"`
	Session  SessionConfig  `yaml:"session"`
	TLS      TLSConfig      `yaml:"tls"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns the configuration with all defaults applied.
func Default() Config {
	return Config{
		Endpoint: EndpointConfig{Host: "localhost", Port: DefaultPort},
		Probe: ProbeConfig{
			Timeout:        Duration(DefaultProbeTimeout),
			BackoffFloor:   Duration(DefaultBackoffFloor),
			BackoffCeiling: Duration(DefaultBackoffCeiling),
		},
		Connect: ConnectConfig{
			Timeout:        Duration(DefaultConnectTimeout),
			MaxAttempts:    DefaultMaxAttempts,
			BackoffFloor:   Duration(DefaultBackoffFloor),
			BackoffCeiling: Duration(DefaultBackoffCeiling),
		},
		Session: SessionConfig{
			HeartbeatInterval: Duration(DefaultHeartbeatInterval),
			PollInterval:      Duration(DefaultPollInterval),
			DrainCooldown:     Duration(DefaultDrainCooldown),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a YAML configuration file on top of the defaults.
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Endpoint.Host == "" {
		return fmt.Errorf("endpoint.host is required")
	}
	if c.Endpoint.Port <= 0 || c.Endpoint.Port > 65535 {
		return fmt.Errorf("endpoint.port must be 1-65535, got %d", c.Endpoint.Port)
	}
	if c.Connect.MaxAttempts <= 0 {
		return fmt.Errorf("connect.max_attempts must be positive, got %d", c.Connect.MaxAttempts)
	}
	if c.Probe.BackoffFloor.Std() <= 0 || c.Connect.BackoffFloor.Std() <= 0 {
		return fmt.Errorf("backoff floors must be positive")
	}
	if c.Probe.BackoffCeiling.Std() < c.Probe.BackoffFloor.Std() {
		return fmt.Errorf("probe.backoff_ceiling below floor")
	}
	if c.Connect.BackoffCeiling.Std() < c.Connect.BackoffFloor.Std() {
		return fmt.Errorf("connect.backoff_ceiling below floor")
	}
	if c.Session.HeartbeatInterval.Std() <= 0 {
		return fmt.Errorf("session.heartbeat_interval must be positive")
	}
	if c.Session.PollInterval.Std() <= 0 {
		return fmt.Errorf("session.poll_interval must be positive")
	}
	if c.TLS.Enabled {
		if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
			return fmt.Errorf("tls.cert_file and tls.key_file must be set together")
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}
