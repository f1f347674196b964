package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"gtp-xact/internal/gtp"
	"gtp-xact/internal/xact"
	"gtp-xact/pkg/types"
)

// Config holds all configuration for the GTP-C transaction daemon.
type Config struct {
	GTP     GTPConfig          `yaml:"gtp"     mapstructure:"gtp"`
	Peers   []types.PeerConfig `yaml:"peers"   mapstructure:"peers"`
	Xact    XactConfig         `yaml:"xact"    mapstructure:"xact"`
	Echo    EchoConfig         `yaml:"echo"    mapstructure:"echo"`
	Logging LoggingConfig      `yaml:"logging" mapstructure:"logging"`
	Metrics MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
	Stats   StatsConfig        `yaml:"stats"   mapstructure:"stats"`
	Capture CaptureConfig      `yaml:"capture" mapstructure:"capture"`
}

type GTPConfig struct {
	Address        string `yaml:"address"         mapstructure:"address"`
	Port           int    `yaml:"port"            mapstructure:"port"`
	RestartCounter uint8  `yaml:"restart_counter" mapstructure:"restart_counter"`
}

// TimerOverride replaces the default timers for transactions started by
// the named message. Message names are matched case-insensitively against
// both GTP versions.
type TimerOverride struct {
	ResponseTimeoutMs int `yaml:"response_timeout_ms" mapstructure:"response_timeout_ms"`
	ResponseRetries   int `yaml:"response_retries"    mapstructure:"response_retries"`
	HoldingTimeoutMs  int `yaml:"holding_timeout_ms"  mapstructure:"holding_timeout_ms"`
	HoldingRetries    int `yaml:"holding_retries"     mapstructure:"holding_retries"`
}

type XactConfig struct {
	PoolSize          int                      `yaml:"pool_size"           mapstructure:"pool_size"`
	ResponseTimeoutMs int                      `yaml:"response_timeout_ms" mapstructure:"response_timeout_ms"`
	ResponseRetries   int                      `yaml:"response_retries"    mapstructure:"response_retries"`
	HoldingTimeoutMs  int                      `yaml:"holding_timeout_ms"  mapstructure:"holding_timeout_ms"`
	HoldingRetries    int                      `yaml:"holding_retries"     mapstructure:"holding_retries"`
	Overrides         map[string]TimerOverride `yaml:"overrides"           mapstructure:"overrides"`
}

type EchoConfig struct {
	IntervalSec int `yaml:"interval_sec" mapstructure:"interval_sec"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"   mapstructure:"level"`
	File    string `yaml:"file"    mapstructure:"file"`
	Console bool   `yaml:"console" mapstructure:"console"`
}

type MetricsConfig struct {
	Address string `yaml:"address" mapstructure:"address"`
}

type StatsConfig struct {
	ReportIntervalSec int    `yaml:"report_interval_sec" mapstructure:"report_interval_sec"`
	ExportFile        string `yaml:"export_file"         mapstructure:"export_file"`
}

type CaptureConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// SetDefaults configures default values for the configuration.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("gtp.address", "0.0.0.0")
	v.SetDefault("gtp.port", gtp.ControlPort)
	v.SetDefault("xact.pool_size", xact.DefaultPoolSize)
	v.SetDefault("xact.response_timeout_ms", 3000)
	v.SetDefault("xact.response_retries", 3)
	v.SetDefault("xact.holding_timeout_ms", 12000)
	v.SetDefault("xact.holding_retries", 0)
	v.SetDefault("echo.interval_sec", 60)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("stats.report_interval_sec", 60)
}

// Load reads configuration from a YAML file and returns a Config.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	return LoadWithViper(v)
}

// LoadWithViper reads configuration using an existing viper instance (for CLI flag binding).
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for i := range cfg.Peers {
		if cfg.Peers[i].Port == 0 {
			cfg.Peers[i].Port = gtp.ControlPort
		}
		if cfg.Peers[i].Version == 0 {
			cfg.Peers[i].Version = gtp.Version2
		}
	}
	return &cfg, nil
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// ManagerConfig converts the xact section into a transaction manager
// configuration.
func (c *Config) ManagerConfig() (xact.Config, error) {
	out := xact.Config{
		PoolSize: c.Xact.PoolSize,
		Timers: xact.TimerConfig{
			ResponseTimeout: ms(c.Xact.ResponseTimeoutMs),
			ResponseRetries: c.Xact.ResponseRetries,
			HoldingTimeout:  ms(c.Xact.HoldingTimeoutMs),
			HoldingRetries:  c.Xact.HoldingRetries,
		},
		Overrides: make(map[xact.MessageKey]xact.TimerConfig),
	}

	for name, o := range c.Xact.Overrides {
		keys := messageKeys(name)
		if len(keys) == 0 {
			return xact.Config{}, fmt.Errorf("unknown message %q in xact.overrides", name)
		}
		for _, k := range keys {
			out.Overrides[k] = xact.TimerConfig{
				ResponseTimeout: ms(o.ResponseTimeoutMs),
				ResponseRetries: o.ResponseRetries,
				HoldingTimeout:  ms(o.HoldingTimeoutMs),
				HoldingRetries:  o.HoldingRetries,
			}
		}
	}
	return out, nil
}

func messageKeys(name string) []xact.MessageKey {
	var keys []xact.MessageKey
	for _, version := range []uint8{gtp.Version1, gtp.Version2} {
		if t, ok := gtp.MessageTypeByName(version, name); ok {
			keys = append(keys, xact.MessageKey{Version: version, Type: t})
		}
	}
	return keys
}

// Summary returns the effective configuration rendered as YAML.
func (c *Config) Summary() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("Configuration: <unavailable: %v>\n", err)
	}

	var sb strings.Builder
	sb.WriteString("Configuration:\n")
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		sb.WriteString("  ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}
