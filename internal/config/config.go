package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/airnode/internal/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel   = "info"
	DefaultConfigPath = "/etc/airnode.toml"
	DefaultEnvPrefix  = "AIRNODE"
	DefaultServerURL  = "http://demo.thingsboard.io"
)

type Config struct {
	LogLevel         string        `mapstructure:"log_level"`
	DeviceToken      string        `mapstructure:"device_token"`
	ServerURL        string        `mapstructure:"server_url"`
	NetworkInterface string        `mapstructure:"network_interface"`
	SampleInterval   time.Duration `mapstructure:"sample_interval"`
	ClimateInterval  time.Duration `mapstructure:"climate_interval"`
	ReportInterval   time.Duration `mapstructure:"report_interval"`
	ClimateAttempts  int           `mapstructure:"climate_attempts"`
	ClimatePause     time.Duration `mapstructure:"climate_pause"`

	RPC       RPCConfig       `mapstructure:"rpc"`
	Fan       FanConfig       `mapstructure:"fan"`
	Hardware  HardwareConfig  `mapstructure:"hardware"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	History   HistoryConfig   `mapstructure:"history"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type RPCConfig struct {
	PollTimeout     time.Duration `mapstructure:"poll_timeout"`
	ClientTimeout   time.Duration `mapstructure:"client_timeout"`
	OfflineBackoff  time.Duration `mapstructure:"offline_backoff"`
	ResolveAttempts int           `mapstructure:"resolve_attempts"`
	ResolveDelay    time.Duration `mapstructure:"resolve_delay"`
	ResolveBackoff  time.Duration `mapstructure:"resolve_backoff"`
	LoopPause       time.Duration `mapstructure:"loop_pause"`
}

type FanConfig struct {
	InitialSpeed int    `mapstructure:"initial_speed"`
	Channel      int    `mapstructure:"channel"`
	PWMPin       string `mapstructure:"pwm_pin"`
	IN1Pin       string `mapstructure:"in1_pin"`
	IN2Pin       string `mapstructure:"in2_pin"`
	Frequency    int    `mapstructure:"frequency"`
}

type HardwareConfig struct {
	Driver         string        `mapstructure:"driver"`
	I2CBus         string        `mapstructure:"i2c_bus"`
	BME280Address  uint16        `mapstructure:"bme280_address"`
	ADS1115Address uint16        `mapstructure:"ads1115_address"`
	GasChannel     int           `mapstructure:"gas_channel"`
	LightChannel   int           `mapstructure:"light_channel"`
	TriggerPin     string        `mapstructure:"trigger_pin"`
	EchoPin        string        `mapstructure:"echo_pin"`
	EchoTimeout    time.Duration `mapstructure:"echo_timeout"`
}

type TelemetryConfig struct {
	Transport   string        `mapstructure:"transport"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	Port     int    `mapstructure:"port"`
	ClientID string `mapstructure:"client_id"`
}

type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DBPath       string `mapstructure:"db_path"`
	BatchSize    int    `mapstructure:"batch_size"`
	BatchTimeout int    `mapstructure:"batch_timeout"`
}

type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("device_token", "")
	v.SetDefault("server_url", DefaultServerURL)
	v.SetDefault("network_interface", "")
	v.SetDefault("sample_interval", time.Second)
	v.SetDefault("climate_interval", 2*time.Second)
	v.SetDefault("report_interval", 5*time.Second)
	v.SetDefault("climate_attempts", 3)
	v.SetDefault("climate_pause", 200*time.Millisecond)

	v.SetDefault("rpc.poll_timeout", 60*time.Second)
	v.SetDefault("rpc.client_timeout", 65*time.Second)
	v.SetDefault("rpc.offline_backoff", time.Second)
	v.SetDefault("rpc.resolve_attempts", 3)
	v.SetDefault("rpc.resolve_delay", 500*time.Millisecond)
	v.SetDefault("rpc.resolve_backoff", 2*time.Second)
	v.SetDefault("rpc.loop_pause", 100*time.Millisecond)

	v.SetDefault("fan.initial_speed", 128)
	v.SetDefault("fan.channel", 0)
	v.SetDefault("fan.pwm_pin", "GPIO27")
	v.SetDefault("fan.in1_pin", "GPIO25")
	v.SetDefault("fan.in2_pin", "GPIO26")
	v.SetDefault("fan.frequency", 20000)

	v.SetDefault("hardware.driver", "periph")
	v.SetDefault("hardware.i2c_bus", "")
	v.SetDefault("hardware.bme280_address", 0x76)
	v.SetDefault("hardware.ads1115_address", 0x48)
	v.SetDefault("hardware.gas_channel", 0)
	v.SetDefault("hardware.light_channel", 1)
	v.SetDefault("hardware.trigger_pin", "GPIO5")
	v.SetDefault("hardware.echo_pin", "GPIO18")
	v.SetDefault("hardware.echo_timeout", 30*time.Millisecond)

	v.SetDefault("telemetry.transport", "http")
	v.SetDefault("telemetry.send_timeout", 10*time.Second)

	v.SetDefault("mqtt.broker", "demo.thingsboard.io")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id", "airnode")

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.db_path", "/var/lib/airnode/history.db")
	v.SetDefault("history.batch_size", 12)
	v.SetDefault("history.batch_timeout", 60)

	v.SetDefault("metrics.listen_addr", "")
}

// flagBindings maps viper keys to command line flags
var flagBindings = map[string]string{
	"log_level":           "log-level",
	"device_token":        "token",
	"server_url":          "server",
	"network_interface":   "interface",
	"report_interval":     "report-interval",
	"hardware.driver":     "driver",
	"telemetry.transport": "transport",
	"metrics.listen_addr": "metrics-addr",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("airnode", pflag.ContinueOnError)
	fs.String("config", "", "Path to the TOML configuration file")
	fs.String("env-file", "", "Path to a dotenv file")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("token", "", "Device access token")
	fs.String("server", DefaultServerURL, "Remote service base URL")
	fs.String("interface", "", "Network interface that must be up before talking to the server")
	fs.Duration("report-interval", 5*time.Second, "Interval between telemetry reports")
	fs.String("driver", "periph", "Hardware driver (periph, sim)")
	fs.String("transport", "http", "Telemetry transport (http, mqtt)")
	fs.String("metrics-addr", "", "Listen address for the Prometheus endpoint")

	return fs
}

func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
		}
	}
	if o.args == nil {
		o.args = os.Args[1:]
	}

	// Parse flags
	fs := newFlagSet()
	if err := fs.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	envFile := o.envFile
	if f := fs.Lookup("env-file"); f.Changed {
		envFile = f.Value.String()
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load configuration from file
	path, explicit := resolveConfigPath(fs, o)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil && (explicit || fileExists(path)) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	// Override config file values with command line flags
	for key, name := range flagBindings {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// resolveConfigPath picks the config file from the flag, the option, the
// environment and finally the default location; the bool reports whether the
// path was requested explicitly and must exist.
func resolveConfigPath(fs *pflag.FlagSet, o *options) (string, bool) {
	if f := fs.Lookup("config"); f.Changed {
		return f.Value.String(), true
	}
	if o.configPath != "" {
		return o.configPath, true
	}
	if p, ok := os.LookupEnv(o.envPrefix + "_CONFIG"); ok {
		return p, p != ""
	}

	return DefaultConfigPath, false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Validate checks the loaded values
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.Wrap(errors.ErrInvalidLogLevel, &validationError{
			field: "log_level", value: c.LogLevel, reason: "must be one of debug, info, warning, error",
		})
	}

	if c.DeviceToken == "" {
		return errFactory.Wrap(errors.ErrMissingConfig, &validationError{
			field: "device_token", value: c.DeviceToken, reason: "is required",
		})
	}

	if c.ServerURL == "" {
		return errFactory.Wrap(errors.ErrMissingConfig, &validationError{
			field: "server_url", value: c.ServerURL, reason: "is required",
		})
	}

	intervals := map[string]time.Duration{
		"sample_interval":       c.SampleInterval,
		"climate_interval":      c.ClimateInterval,
		"report_interval":       c.ReportInterval,
		"rpc.poll_timeout":      c.RPC.PollTimeout,
		"rpc.client_timeout":    c.RPC.ClientTimeout,
		"hardware.echo_timeout": c.Hardware.EchoTimeout,
	}
	for field, d := range intervals {
		if d <= 0 {
			return errFactory.Wrap(errors.ErrInvalidInterval, &validationError{
				field: field, value: d, reason: "must be positive",
			})
		}
	}

	if c.RPC.ClientTimeout <= c.RPC.PollTimeout {
		return errFactory.Wrap(errors.ErrInvalidInterval, &validationError{
			field: "rpc.client_timeout", value: c.RPC.ClientTimeout, reason: "must exceed rpc.poll_timeout",
		})
	}

	if c.ClimateAttempts < 1 {
		return errFactory.Wrap(errors.ErrInvalidConfig, &validationError{
			field: "climate_attempts", value: c.ClimateAttempts, reason: "must be at least 1",
		})
	}

	switch c.Hardware.Driver {
	case "periph", "sim":
	default:
		return errFactory.Wrap(errors.ErrInvalidConfig, &validationError{
			field: "hardware.driver", value: c.Hardware.Driver, reason: "must be periph or sim",
		})
	}

	switch c.Telemetry.Transport {
	case "http", "mqtt":
	default:
		return errFactory.Wrap(errors.ErrInvalidConfig, &validationError{
			field: "telemetry.transport", value: c.Telemetry.Transport, reason: "must be http or mqtt",
		})
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return errFactory.Wrap(errors.ErrMissingConfig, &validationError{
			field: "history.db_path", value: c.History.DBPath, reason: "is required when history is enabled",
		})
	}

	return nil
}
