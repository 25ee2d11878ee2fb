package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nerrad567/csv2influx/internal/batch"
	"github.com/nerrad567/csv2influx/internal/infrastructure/config"
	"github.com/nerrad567/csv2influx/internal/infrastructure/influxdb"
	"github.com/nerrad567/csv2influx/internal/infrastructure/logging"
	"github.com/nerrad567/csv2influx/internal/infrastructure/mqtt"
	"github.com/nerrad567/csv2influx/internal/infrastructure/tsdb"
	"github.com/nerrad567/csv2influx/internal/mapper"
	"github.com/nerrad567/csv2influx/internal/pipeline"
	"github.com/nerrad567/csv2influx/internal/runlog"
	"github.com/nerrad567/csv2influx/internal/timestamp"
)

// target is a write backend: tsdb.Client or influxdb.Client.
type target interface {
	batch.Writer
	pipeline.Admin
	Close() error
}

// newLogger builds the run logger on the command's output streams.
func newLogger(cfg *config.Config, cmd *cobra.Command) *logging.Logger {
	w := cmd.ErrOrStderr()
	if strings.EqualFold(cfg.Logging.Output, "stdout") {
		w = cmd.OutOrStdout()
	}
	return logging.NewWithWriter(cfg.Logging, version, w)
}

// runImport performs one import described by cfg.
//
// It performs:
//  1. Opens the write backend and prepares the target (ping, optional
//     recreate, switch user)
//  2. Opens the input and builds the row mapper
//  3. Attaches reporters: log, optional run ledger, optional MQTT events
//  4. Runs the pipeline to completion or the first fatal error
//
// Returns:
//   - error: nil if every row was mapped and the run was not aborted.
//     Batches dropped under best-effort are reported, not returned.
func runImport(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	runID := uuid.New().String()
	log = log.With("run_id", runID)
	log.Info("starting csv2influx",
		"version", version,
		"commit", commit,
		"input", cfg.Input.Path,
		"backend", cfg.Output.Backend,
		"target", cfg.Target(),
	)

	// Build everything that can fail on bad settings before touching the
	// server.
	m, err := buildMapper(cfg)
	if err != nil {
		return err
	}
	policy, err := batch.ParsePolicy(cfg.Batch.Policy)
	if err != nil {
		return err
	}
	delimiter, err := pipeline.ParseDelimiter(cfg.Input.Delimiter)
	if err != nil {
		return err
	}

	tgt, prep, err := openTarget(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := tgt.Close(); closeErr != nil {
			log.Error("error closing target", "error", closeErr)
		}
	}()

	if prep.Recreate {
		log.Info("recreating database", "name", prep.Database)
	}
	if err := pipeline.Prepare(ctx, tgt, prep); err != nil {
		return err
	}

	src, err := pipeline.OpenCSV(pipeline.SourceConfig{
		Path:      cfg.Input.Path,
		Delimiter: delimiter,
		Encoding:  cfg.Input.Encoding,
	})
	if err != nil {
		return err
	}

	reporters := []pipeline.Reporter{pipeline.NewLogReporter(log)}

	if cfg.Ledger.Enabled {
		rec, closeLedger, err := openLedger(ctx, cfg, runID, policy, log)
		if err != nil {
			src.Close() //nolint:errcheck // Best effort cleanup on error path
			return err
		}
		defer closeLedger()
		reporters = append(reporters, rec)
		log.Info("run ledger enabled", "path", cfg.Ledger.Path)
	}

	if cfg.MQTT.Enabled {
		if events, closeEvents := connectEvents(ctx, cfg.MQTT, runID, log); events != nil {
			defer closeEvents()
			reporters = append(reporters, events)
		}
	}

	driver, err := pipeline.NewDriver(src, m, tgt, batch.Options{
		Size:   cfg.Batch.Size,
		Policy: policy,
	}, reporters...)
	if err != nil {
		src.Close() //nolint:errcheck // Best effort cleanup on error path
		for _, r := range reporters {
			r.Finished(batch.Summary{}, err)
		}
		return err
	}

	if _, err := driver.Run(ctx); err != nil {
		return err
	}
	return nil
}

// connectEvents connects to the MQTT broker for run events. It returns a
// nil reporter when the broker is unusable; events are advisory and never
// stop an import.
func connectEvents(ctx context.Context, cfg config.MQTTConfig, runID string, log *logging.Logger) (pipeline.Reporter, func()) {
	client, err := mqtt.Connect(cfg)
	if err != nil {
		log.Warn("MQTT unavailable, run events disabled", "error", err)
		return nil, nil
	}
	closeFn := func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}
	if err := client.HealthCheck(ctx); err != nil {
		log.Warn("MQTT unhealthy, run events disabled", "error", err)
		closeFn()
		return nil, nil
	}

	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT connection lost", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"topic_prefix", cfg.TopicPrefix,
	)
	return pipeline.NewEventReporter(client, client.TopicPrefix(), client.QoS(), runID, log), closeFn
}

// buildMapper builds the timestamp resolver and row mapper from cfg.
func buildMapper(cfg *config.Config) (*mapper.Mapper, error) {
	mode, err := timestamp.ParseMode(cfg.Time.Mode)
	if err != nil {
		return nil, err
	}

	tcfg := timestamp.Config{
		Mode:     mode,
		Format:   cfg.Time.Format,
		Timezone: cfg.Time.Timezone,
	}
	if mode == timestamp.ModeEpoch {
		p, err := timestamp.ParsePrecision(cfg.Time.Precision)
		if err != nil {
			return nil, err
		}
		tcfg.Precision = p
	}

	resolver, err := timestamp.NewResolver(tcfg)
	if err != nil {
		return nil, err
	}

	return mapper.New(mapper.Config{
		Measurement:  cfg.Mapping.Measurement,
		TimeColumn:   cfg.Mapping.TimeColumn,
		TagColumns:   cfg.Mapping.TagColumns,
		FieldColumns: cfg.Mapping.FieldColumns,
	}, resolver)
}

// openTarget builds the configured backend and the steps to prepare it.
//
// The 1.x API switches to the configured user after an optional recreate.
// The 2.x API authenticates up front, with a token or by signing in.
func openTarget(ctx context.Context, cfg *config.Config) (target, pipeline.PrepareOptions, error) {
	switch strings.ToLower(cfg.Output.Backend) {
	case "influxdb":
		client, err := influxdb.New(cfg.InfluxDB)
		if err != nil {
			return nil, pipeline.PrepareOptions{}, err
		}
		if err := client.Authenticate(ctx); err != nil {
			client.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, pipeline.PrepareOptions{}, err
		}
		return client, pipeline.PrepareOptions{
			Database: cfg.InfluxDB.Bucket,
			Recreate: cfg.Output.Recreate,
		}, nil

	default:
		client, err := tsdb.New(cfg.TSDB)
		if err != nil {
			return nil, pipeline.PrepareOptions{}, err
		}
		return client, pipeline.PrepareOptions{
			Database: cfg.TSDB.Database,
			Recreate: cfg.Output.Recreate,
			Username: cfg.TSDB.Username,
			Password: cfg.TSDB.Password,
		}, nil
	}
}

// openLedger opens and migrates the run ledger and records the run start.
func openLedger(ctx context.Context, cfg *config.Config, runID string, policy batch.Policy, log *logging.Logger) (*runlog.Recorder, func(), error) {
	db, err := openLedgerDB(ctx, cfg.Ledger, true)
	if err != nil {
		return nil, nil, err
	}

	rec := runlog.NewRecorder(runlog.NewStore(db), log.With("component", "runlog"))
	_, err = rec.Start(ctx, runlog.Run{
		ID:          runID,
		Input:       cfg.Input.Path,
		Target:      targetName(cfg),
		Backend:     strings.ToLower(cfg.Output.Backend),
		Policy:      string(policy),
		BatchSize:   cfg.Batch.Size,
		Fingerprint: fingerprint(cfg),
	})
	if err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, nil, fmt.Errorf("recording run start: %w", err)
	}

	closeFn := func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing run ledger", "error", closeErr)
		}
	}
	return rec, closeFn, nil
}

// targetName describes where points go, without credentials.
func targetName(cfg *config.Config) string {
	if strings.EqualFold(cfg.Output.Backend, "influxdb") {
		return fmt.Sprintf("%s org=%s bucket=%s", cfg.InfluxDB.URL, cfg.InfluxDB.Org, cfg.InfluxDB.Bucket)
	}
	return fmt.Sprintf("%s db=%s", cfg.TSDB.URL, cfg.TSDB.Database)
}

// fingerprint hashes the settings that decide which points a run writes,
// so runs with the same input and mapping can be matched in the ledger.
// Credentials are not part of it.
func fingerprint(cfg *config.Config) string {
	data, err := yaml.Marshal(struct {
		Input   config.InputConfig   `yaml:"input"`
		Mapping config.MappingConfig `yaml:"mapping"`
		Time    config.TimeConfig    `yaml:"time"`
		Batch   config.BatchConfig   `yaml:"batch"`
		Target  string               `yaml:"target"`
	}{cfg.Input, cfg.Mapping, cfg.Time, cfg.Batch, targetName(cfg)})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
