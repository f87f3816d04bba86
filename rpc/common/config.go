package common

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// Repository backends
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendPebble = "pebble"
)

// Saturation policies of the worker pool
const (
	SaturationCallerRuns = "caller-runs"
	SaturationBlock      = "block"
)

// ServerConfig holds all configuration parameters of the record server.
// The mapstructure keys match the cli flag names.
type ServerConfig struct {
	// Listener
	Endpoint     string        `mapstructure:"endpoint" validate:"required"`
	TCPNoDelay   bool          `mapstructure:"tcp-nodelay"`
	TCPKeepAlive time.Duration `mapstructure:"tcp-keepalive" validate:"gte=0"`

	// Worker pool
	Workers          int           `mapstructure:"workers" validate:"gt=0"`
	Backlog          int           `mapstructure:"backlog" validate:"gte=0"`
	SaturationPolicy string        `mapstructure:"saturation-policy" validate:"oneof=caller-runs block"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown-timeout" validate:"gt=0"`

	// Session
	IdleTimeout  time.Duration `mapstructure:"idle-timeout" validate:"gte=0"`
	WriteTimeout time.Duration `mapstructure:"write-timeout" validate:"gte=0"`
	MaxLineBytes int           `mapstructure:"max-line-bytes" validate:"gte=1024"`

	// Repository
	Backend string `mapstructure:"backend" validate:"oneof=memory badger pebble"`
	DataDir string `mapstructure:"data-dir" validate:"required_unless=Backend memory"`

	// Observability
	LogLevel           string        `mapstructure:"log-level" validate:"oneof=debug info warn warning error"`
	MetricsEndpoint    string        `mapstructure:"metrics-endpoint"`
	MetricsLogInterval time.Duration `mapstructure:"metrics-log-interval" validate:"gte=0"`
}

// DefaultServerConfig returns the configuration used when nothing is overridden
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Endpoint:         "0.0.0.0:12345",
		TCPNoDelay:       true,
		TCPKeepAlive:     30 * time.Second,
		Workers:          10,
		Backlog:          100,
		SaturationPolicy: SaturationCallerRuns,
		ShutdownTimeout:  30 * time.Second,
		IdleTimeout:      100 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxLineBytes:     1 << 20,
		Backend:          BackendMemory,
		DataDir:          "",
		LogLevel:         "info",
	}
}

// DecodeServerConfig overlays the given settings (e.g. viper.AllSettings()) on
// the defaults and validates the result. Durations may be given as strings ("100s").
func DecodeServerConfig(settings map[string]any) (ServerConfig, error) {
	config := DefaultServerConfig()
	if err := decode(settings, &config); err != nil {
		return config, err
	}
	return config, config.Validate()
}

// Validate checks all struct tag constraints and the endpoint syntax
func (c *ServerConfig) Validate() error {
	if err := validateConfig(c); err != nil {
		return err
	}
	if err := checkEndpoint("endpoint", c.Endpoint); err != nil {
		return err
	}
	if c.MetricsEndpoint != "" {
		return checkEndpoint("metrics-endpoint", c.MetricsEndpoint)
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Listener")
	addField("Endpoint", c.Endpoint)
	addField("TCP No Delay", fmt.Sprintf("%t", c.TCPNoDelay))
	addField("TCP Keep Alive", c.TCPKeepAlive.String())

	addSection("Worker Pool")
	addField("Workers", fmt.Sprintf("%d", c.Workers))
	addField("Backlog", fmt.Sprintf("%d", c.Backlog))
	addField("Saturation Policy", c.SaturationPolicy)
	addField("Shutdown Timeout", c.ShutdownTimeout.String())

	addSection("Session")
	addField("Idle Timeout", c.IdleTimeout.String())
	addField("Write Timeout", c.WriteTimeout.String())
	addField("Max Line Size", fmt.Sprintf("%d bytes", c.MaxLineBytes))

	addSection("Repository")
	addField("Backend", c.Backend)
	if c.Backend != BackendMemory {
		addField("Data Directory", c.DataDir)
	}

	addSection("Observability")
	addField("Log Level", c.LogLevel)
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	} else {
		addField("Metrics Endpoint", "disabled")
	}
	addField("Metrics Log Interval", c.MetricsLogInterval.String())

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientConfig configures the line protocol client
type ClientConfig struct {
	Endpoint string        `mapstructure:"endpoint" validate:"required"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// DefaultClientConfig returns the default client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint: "localhost:12345",
		Timeout:  5 * time.Second,
	}
}

// DecodeClientConfig overlays the given settings on the defaults and validates the result
func DecodeClientConfig(settings map[string]any) (ClientConfig, error) {
	config := DefaultClientConfig()
	if err := decode(settings, &config); err != nil {
		return config, err
	}
	if err := validateConfig(&config); err != nil {
		return config, err
	}
	return config, checkEndpoint("endpoint", config.Endpoint)
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder
	sb.WriteString("\nCLIENT CONFIGURATION\n")
	sb.WriteString(fmt.Sprintf("  %-22s: %s\n", "Endpoint", c.Endpoint))
	sb.WriteString(fmt.Sprintf("  %-22s: %s\n", "Timeout", c.Timeout))
	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

var (
	configValidate     *validator.Validate
	configValidateOnce sync.Once
)

func decode(settings map[string]any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(settings); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

func validateConfig(config any) error {
	configValidateOnce.Do(func() {
		configValidate = validator.New()
	})

	err := configValidate.Struct(config)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return fmt.Errorf("invalid config: %w", err)
	}

	fe := errs[0]
	return fmt.Errorf("invalid config: %s fails '%s' (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
}

// checkEndpoint accepts host:port with a numeric port, port 0 picks a free port
func checkEndpoint(name, endpoint string) error {
	_, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		return fmt.Errorf("invalid config: %s %q: %w", name, endpoint, err)
	}
	if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 65535 {
		return fmt.Errorf("invalid config: %s %q: invalid port", name, endpoint)
	}
	return nil
}
