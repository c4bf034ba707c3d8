package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables that override the file,
// e.g. NETENTROPY_DATA_DIR or NETENTROPY_BATCH_NUM_WORKERS.
const EnvPrefix = "NETENTROPY"

// NewViper returns a viper instance reading overrides from the environment.
// Command-line flags are bound to it by the caller.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyOverrides copies every key set in v onto cfg. Keys use the YAML
// names joined with dots, e.g. "batch.num_workers".
func (c *Config) ApplyOverrides(v *viper.Viper) {
	setString(v, "data_dir", &c.DataDir)
	setString(v, "out_dir", &c.OutDir)
	setString(v, "cache.compression", &c.Cache.Compression)

	setString(v, "capture.interface", &c.Capture.Interface)
	setString(v, "capture.bpf_filter", &c.Capture.BPFFilter)
	if v.IsSet("capture.snapshot_len") {
		c.Capture.SnapshotLen = v.GetInt32("capture.snapshot_len")
	}
	setBool(v, "capture.promiscuous", &c.Capture.Promiscuous)

	setBool(v, "probe.enabled", &c.Probe.Enabled)
	setString(v, "probe.nats_url", &c.Probe.NATSURL)
	setString(v, "probe.subject", &c.Probe.Subject)

	setString(v, "batch.pattern", &c.Batch.Pattern)
	if v.IsSet("batch.num_workers") {
		c.Batch.NumWorkers = v.GetInt("batch.num_workers")
	}

	setBool(v, "report.markdown", &c.Report.Markdown)
	setBool(v, "report.json", &c.Report.JSON)
	setBool(v, "report.xlsx", &c.Report.XLSX)
	setBool(v, "report.clickhouse.enabled", &c.Report.ClickHouse.Enabled)
	setString(v, "report.clickhouse.host", &c.Report.ClickHouse.Host)
	if v.IsSet("report.clickhouse.port") {
		c.Report.ClickHouse.Port = v.GetInt("report.clickhouse.port")
	}
	setString(v, "report.clickhouse.database", &c.Report.ClickHouse.Database)
	setString(v, "report.clickhouse.username", &c.Report.ClickHouse.Username)
	setString(v, "report.clickhouse.password", &c.Report.ClickHouse.Password)

	setString(v, "api.listen_addr", &c.API.ListenAddr)
	setString(v, "log.level", &c.Log.Level)
	setString(v, "log.format", &c.Log.Format)
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setBool(v *viper.Viper, key string, dst *bool) {
	if v.IsSet(key) {
		*dst = v.GetBool(key)
	}
}
