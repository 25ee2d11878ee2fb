package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/csv2influx/internal/infrastructure/config"
)

// importFlags holds the root command's flags. A flag only overrides the
// configuration when it was set on the command line.
type importFlags struct {
	configFile string

	input     string
	delimiter string
	server    string
	user      string
	password  string
	dbname    string
	create    bool

	metric       string
	timeColumn   string
	timeFormat   string
	timezone     string
	fieldColumns string
	tagColumns   string

	gzip           bool
	batchSize      int
	epochPrecision string
	force          bool
	backend        string
	logLevel       string
}

func (f *importFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()

	fs.StringVar(&f.configFile, "config", "", "YAML configuration file (default $"+configEnvVar+")")

	fs.StringVarP(&f.input, "input", "i", "", "input CSV file, optionally .gz compressed")
	fs.StringVarP(&f.delimiter, "delimiter", "d", ",", `column delimiter, one character or "\t"`)
	fs.StringVarP(&f.server, "server", "s", "localhost:8086", "server address, host:port or URL")
	fs.StringVarP(&f.user, "user", "u", "root", "user name")
	fs.StringVarP(&f.password, "password", "p", "root", "password")
	fs.StringVar(&f.dbname, "dbname", "", "database (or 2.x bucket) to write to")
	fs.BoolVar(&f.create, "create", false, "drop and create the database before loading")

	fs.StringVarP(&f.metric, "metricname", "m", "value", "measurement name")
	fs.StringVar(&f.timeColumn, "timecolumn", "timestamp", "name of the time column")
	fs.StringVar(&f.timeFormat, "timeformat", "%Y-%m-%d %H:%M:%S", "strftime pattern of the time column")
	fs.StringVar(&f.timezone, "timezone", "UTC", "IANA timezone of times without an offset")
	fs.StringVar(&f.fieldColumns, "fieldcolumns", "value", "comma separated list of field columns")
	fs.StringVar(&f.tagColumns, "tagcolumns", "host", "comma separated list of tag columns")

	fs.BoolVarP(&f.gzip, "gzip", "g", false, "compress write requests with gzip")
	fs.IntVarP(&f.batchSize, "batchsize", "b", 5000, "points per write request")
	fs.StringVar(&f.epochPrecision, "epoch-precision", "", "read the time column as an epoch integer in s, ms, u or ns")
	fs.BoolVar(&f.force, "force", false, "record and skip rejected batches instead of aborting")
	fs.StringVar(&f.backend, "backend", "tsdb", "write API: tsdb (InfluxDB 1.x) or influxdb (2.x)")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

// overrides returns config overrides for the flags set on cmd.
func (f *importFlags) overrides(cmd *cobra.Command) []config.Override {
	changed := cmd.Flags().Changed
	var out []config.Override
	set := func(name string, o config.Override) {
		if changed(name) {
			out = append(out, o)
		}
	}

	set("input", func(c *config.Config) { c.Input.Path = f.input })
	set("delimiter", func(c *config.Config) { c.Input.Delimiter = f.delimiter })
	set("server", func(c *config.Config) {
		c.TSDB.URL = f.server
		c.InfluxDB.URL = f.server
	})
	set("user", func(c *config.Config) {
		c.TSDB.Username = f.user
		c.InfluxDB.Username = f.user
	})
	set("password", func(c *config.Config) {
		c.TSDB.Password = f.password
		c.InfluxDB.Password = f.password
	})
	set("dbname", func(c *config.Config) {
		c.TSDB.Database = f.dbname
		c.InfluxDB.Bucket = f.dbname
	})
	set("create", func(c *config.Config) { c.Output.Recreate = f.create })

	set("metricname", func(c *config.Config) { c.Mapping.Measurement = f.metric })
	set("timecolumn", func(c *config.Config) { c.Mapping.TimeColumn = f.timeColumn })
	set("timeformat", func(c *config.Config) {
		c.Time.Mode = "formatted"
		c.Time.Format = f.timeFormat
	})
	set("timezone", func(c *config.Config) { c.Time.Timezone = f.timezone })
	set("fieldcolumns", func(c *config.Config) { c.Mapping.FieldColumns = splitColumns(f.fieldColumns) })
	set("tagcolumns", func(c *config.Config) { c.Mapping.TagColumns = splitColumns(f.tagColumns) })

	set("gzip", func(c *config.Config) {
		c.TSDB.Gzip = f.gzip
		c.InfluxDB.Gzip = f.gzip
	})
	set("batchsize", func(c *config.Config) { c.Batch.Size = f.batchSize })
	// Applied after --timeformat so the explicit epoch request wins.
	set("epoch-precision", func(c *config.Config) {
		c.Time.Mode = "epoch"
		c.Time.Precision = f.epochPrecision
	})
	set("force", func(c *config.Config) {
		if f.force {
			c.Batch.Policy = "best-effort"
		} else {
			c.Batch.Policy = "fail-fast"
		}
	})
	set("backend", func(c *config.Config) { c.Output.Backend = f.backend })
	set("log-level", func(c *config.Config) { c.Logging.Level = f.logLevel })

	return out
}

// loadImportConfig loads the configuration with flag overrides applied.
func loadImportConfig(cmd *cobra.Command, f *importFlags) (*config.Config, error) {
	return config.Load(configPath(f.configFile), f.overrides(cmd)...)
}

// splitColumns splits a comma separated column list. Blank entries are
// dropped, so an empty string means no columns.
func splitColumns(s string) []string {
	var cols []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}
