package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CacheConfig controls where and how derived tables are persisted.
type CacheConfig struct {
	Compression string `yaml:"compression"`
}

// CaptureConfig describes the live capture device.
type CaptureConfig struct {
	Interface   string `yaml:"interface"`
	SnapshotLen int32  `yaml:"snapshot_len"`
	Promiscuous bool   `yaml:"promiscuous"`
	BPFFilter   string `yaml:"bpf_filter"`
}

// ProbeConfig holds the NATS connection used by remote probes.
type ProbeConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// BatchConfig controls the --all mode.
type BatchConfig struct {
	Pattern    string `yaml:"pattern"`
	NumWorkers int    `yaml:"num_workers"`
}

// ClickHouseConfig holds the connection details for the ClickHouse sink.
type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ReportConfig selects the report renderings produced after each experiment.
type ReportConfig struct {
	Markdown   bool             `yaml:"markdown"`
	JSON       bool             `yaml:"json"`
	XLSX       bool             `yaml:"xlsx"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// APIConfig holds the configuration for the API server.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	DataDir string        `yaml:"data_dir"`
	OutDir  string        `yaml:"out_dir"`
	Cache   CacheConfig   `yaml:"cache"`
	Capture CaptureConfig `yaml:"capture"`
	Probe   ProbeConfig   `yaml:"probe"`
	Batch   BatchConfig   `yaml:"batch"`
	Report  ReportConfig  `yaml:"report"`
	API     APIConfig     `yaml:"api"`
	Log     LogConfig     `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DataDir: "./data",
		OutDir:  "./out",
		Cache:   CacheConfig{Compression: "gzip"},
		Capture: CaptureConfig{SnapshotLen: 1600, Promiscuous: true},
		Probe:   ProbeConfig{NATSURL: "nats://127.0.0.1:4222", Subject: "netentropy.frames"},
		Batch:   BatchConfig{Pattern: "*.pcap", NumWorkers: 1},
		Report:  ReportConfig{Markdown: true, ClickHouse: ClickHouseConfig{Port: 9000, Database: "default"}},
		API:     APIConfig{ListenAddr: ":8080"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads the configuration from a YAML file on top of the defaults.
// An empty path returns the defaults.
func LoadConfig(filePath string) (*Config, error) {
	cfg := Default()
	if filePath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filePath, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the program cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.OutDir == "" {
		errs = append(errs, errors.New("out_dir must not be empty"))
	}
	switch c.Cache.Compression {
	case "gzip", "xz":
	default:
		errs = append(errs, fmt.Errorf("unsupported cache compression %q", c.Cache.Compression))
	}
	if c.Batch.NumWorkers <= 0 {
		errs = append(errs, errors.New("batch.num_workers must be positive"))
	}
	if c.Batch.Pattern == "" {
		errs = append(errs, errors.New("batch.pattern must not be empty"))
	}
	if c.Probe.Enabled && c.Probe.Subject == "" {
		errs = append(errs, errors.New("probe.subject must be set when the probe is enabled"))
	}
	return errors.Join(errs...)
}
