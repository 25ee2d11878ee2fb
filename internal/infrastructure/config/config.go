package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for csv2influx.
// Values come from defaults, an optional YAML file, environment variables
// and command-line flags, in that order.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Mapping  MappingConfig  `yaml:"mapping"`
	Time     TimeConfig     `yaml:"time"`
	Batch    BatchConfig    `yaml:"batch"`
	Output   OutputConfig   `yaml:"output"`
	TSDB     TSDBConfig     `yaml:"tsdb"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InputConfig describes the delimited input file.
type InputConfig struct {
	Path      string `yaml:"path"`
	Delimiter string `yaml:"delimiter"`
	Encoding  string `yaml:"encoding"`
}

// MappingConfig assigns roles to input columns.
type MappingConfig struct {
	Measurement  string   `yaml:"measurement"`
	TimeColumn   string   `yaml:"time_column"`
	TagColumns   []string `yaml:"tag_columns"`
	FieldColumns []string `yaml:"field_columns"`
}

// TimeConfig controls how the time column is interpreted.
type TimeConfig struct {
	// Mode is "formatted" (calendar string) or "epoch" (integer).
	Mode string `yaml:"mode"`

	// Format is a strftime pattern (or a Go layout) for formatted mode.
	Format string `yaml:"format"`

	// Timezone is the IANA zone applied to values without an offset.
	Timezone string `yaml:"timezone"`

	// Precision is the epoch unit: s, ms, u (us) or ns.
	Precision string `yaml:"precision"`
}

// BatchConfig controls write batching.
type BatchConfig struct {
	Size int `yaml:"size"`
	// Policy is "fail-fast" or "best-effort".
	Policy string `yaml:"policy"`
}

// OutputConfig selects the write backend.
type OutputConfig struct {
	// Backend is "tsdb" (InfluxDB 1.x HTTP API) or "influxdb" (2.x API).
	Backend string `yaml:"backend"`

	// Recreate drops and creates the target database or bucket first.
	Recreate bool `yaml:"recreate"`
}

// TSDBConfig contains InfluxDB 1.x HTTP API settings.
type TSDBConfig struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Gzip     bool   `yaml:"gzip"`
	// Timeout is the per-request timeout in seconds. 0 means none.
	Timeout int `yaml:"timeout"`
}

// InfluxDBConfig contains InfluxDB 2.x settings.
type InfluxDBConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
	// Username and Password sign in when Token is empty.
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Org      string `yaml:"org"`
	Bucket   string `yaml:"bucket"`
	Gzip     bool   `yaml:"gzip"`
	Timeout  int    `yaml:"timeout"`
}

// LedgerConfig contains the SQLite run ledger settings.
type LedgerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker settings for run events.
type MQTTConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	TopicPrefix string           `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Override mutates a loaded configuration before validation.
// The CLI uses overrides to apply flags that were set explicitly.
type Override func(*Config)

// Load builds the configuration.
//
// The loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values, if path is not empty
//  3. Environment variables (CSV2INFLUX_SECTION_KEY)
//  4. Overrides, in order
//
// Parameters:
//   - path: Path to a YAML configuration file, or "" for none
//   - overrides: Functions applied after environment variables
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read or parsed, or validation fails
func Load(path string, overrides ...Override) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	for _, o := range overrides {
		o(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadLedger returns only the ledger settings, for commands that read run
// history without importing. The rest of the file is not validated.
func LoadLedger(path string) (LedgerConfig, error) {
	cfg, err := load(path)
	if err != nil {
		return LedgerConfig{}, err
	}
	if cfg.Ledger.Path == "" {
		return LedgerConfig{}, fmt.Errorf("validating config: ledger.path is required")
	}
	return cfg.Ledger, nil
}

// load applies defaults, the optional file and environment overrides.
func load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaultConfig returns a Config with the built-in CLI defaults.
func defaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Delimiter: ",",
			Encoding:  "utf-8",
		},
		Mapping: MappingConfig{
			Measurement:  "value",
			TimeColumn:   "timestamp",
			TagColumns:   []string{"host"},
			FieldColumns: []string{"value"},
		},
		Time: TimeConfig{
			Mode:      "formatted",
			Format:    "%Y-%m-%d %H:%M:%S",
			Timezone:  "UTC",
			Precision: "ns",
		},
		Batch: BatchConfig{
			Size:   5000,
			Policy: "fail-fast",
		},
		Output: OutputConfig{
			Backend: "tsdb",
		},
		TSDB: TSDBConfig{
			URL:      "http://localhost:8086",
			Username: "root",
			Password: "root",
		},
		InfluxDB: InfluxDBConfig{
			URL: "http://localhost:8086",
		},
		Ledger: LedgerConfig{
			Path:        "./data/csv2influx.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "csv2influx",
			},
			QoS:         1,
			TopicPrefix: "csv2influx",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CSV2INFLUX_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CSV2INFLUX_INPUT_PATH"); v != "" {
		cfg.Input.Path = v
	}

	// TSDB
	if v := os.Getenv("CSV2INFLUX_TSDB_URL"); v != "" {
		cfg.TSDB.URL = v
	}
	if v := os.Getenv("CSV2INFLUX_TSDB_USERNAME"); v != "" {
		cfg.TSDB.Username = v
	}
	if v := os.Getenv("CSV2INFLUX_TSDB_PASSWORD"); v != "" {
		cfg.TSDB.Password = v
	}

	// InfluxDB
	if v := os.Getenv("CSV2INFLUX_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("CSV2INFLUX_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("CSV2INFLUX_LEDGER_PATH"); v != "" {
		cfg.Ledger.Path = v
	}

	// MQTT
	if v := os.Getenv("CSV2INFLUX_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CSV2INFLUX_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CSV2INFLUX_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
}

// Validate checks the configuration for errors.
//
// All problems are reported together.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Input.Path == "" {
		errs = append(errs, "input.path is required")
	}

	// Mapping validation
	if strings.TrimSpace(c.Mapping.Measurement) == "" {
		errs = append(errs, "mapping.measurement is required")
	}
	if c.Mapping.TimeColumn == "" {
		errs = append(errs, "mapping.time_column is required")
	}
	if len(c.Mapping.FieldColumns) == 0 {
		errs = append(errs, "mapping.field_columns needs at least one column")
	}

	// Time validation
	switch strings.ToLower(c.Time.Mode) {
	case "", "formatted":
	case "epoch":
		switch strings.ToLower(c.Time.Precision) {
		case "s", "ms", "u", "us", "ns":
		default:
			errs = append(errs, fmt.Sprintf("time.precision %q must be s, ms, u or ns", c.Time.Precision))
		}
	default:
		errs = append(errs, fmt.Sprintf("time.mode %q must be formatted or epoch", c.Time.Mode))
	}

	// Batch validation
	if c.Batch.Size < 1 {
		errs = append(errs, "batch.size must be positive")
	}
	switch strings.ToLower(c.Batch.Policy) {
	case "", "fail-fast", "best-effort", "force":
	default:
		errs = append(errs, fmt.Sprintf("batch.policy %q must be fail-fast or best-effort", c.Batch.Policy))
	}

	// Output validation
	switch strings.ToLower(c.Output.Backend) {
	case "tsdb":
		if c.TSDB.URL == "" {
			errs = append(errs, "tsdb.url is required")
		}
		if c.TSDB.Database == "" {
			errs = append(errs, "tsdb.database is required")
		}
		if c.TSDB.Timeout < 0 {
			errs = append(errs, "tsdb.timeout must not be negative")
		}
	case "influxdb":
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required")
		}
		if c.InfluxDB.Org == "" {
			errs = append(errs, "influxdb.org is required")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required")
		}
		if c.InfluxDB.Token == "" && c.InfluxDB.Username == "" {
			errs = append(errs, "influxdb.token or influxdb.username is required (set CSV2INFLUX_INFLUXDB_TOKEN environment variable)")
		}
		if c.InfluxDB.Timeout < 0 {
			errs = append(errs, "influxdb.timeout must not be negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("output.backend %q must be tsdb or influxdb", c.Output.Backend))
	}

	if c.Ledger.Enabled && c.Ledger.Path == "" {
		errs = append(errs, "ledger.path is required when the ledger is enabled")
	}

	// MQTT validation
	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required")
		}
		if c.MQTT.TopicPrefix == "" {
			errs = append(errs, "mqtt.topic_prefix is required")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// RequestTimeout returns the 1.x request timeout. Zero means none.
func (c TSDBConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// RequestTimeout returns the 2.x request timeout. Zero means none.
func (c InfluxDBConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Target returns the database (tsdb) or bucket (influxdb) written to.
func (c *Config) Target() string {
	if strings.EqualFold(c.Output.Backend, "influxdb") {
		return c.InfluxDB.Bucket
	}
	return c.TSDB.Database
}
