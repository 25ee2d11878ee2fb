package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/csv2influx/internal/infrastructure/config"
)

// fakeInflux answers the InfluxDB 1.x endpoints used by an import.
type fakeInflux struct {
	*httptest.Server

	mu        sync.Mutex
	writes    []string
	queries   []string
	failFirst int // number of initial write requests to reject
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()
	f := &fakeInflux{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			w.WriteHeader(http.StatusNoContent)
		case "/query":
			r.ParseForm() //nolint:errcheck // Test server
			f.mu.Lock()
			f.queries = append(f.queries, r.Form.Get("q"))
			f.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"results":[{"statement_id":0}]}`) //nolint:errcheck // Test server
		case "/write":
			body, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			reject := f.failFirst > 0
			if reject {
				f.failFirst--
			} else {
				f.writes = append(f.writes, string(body))
			}
			f.mu.Unlock()
			if reject {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"error":"partial write: field type conflict"}`) //nolint:errcheck // Test server
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeInflux) snapshot() (writes, queries []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...), append([]string(nil), f.queries...)
}

const weatherCSV = `ts,station,temp
2024-01-01 00:00:00,s1,21.5
2024-01-01 00:00:01,s2,22.5
2024-01-01 00:00:02,s1,23.5
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func importArgs(server, input string, extra ...string) []string {
	args := []string{
		"-i", input,
		"-s", server,
		"--dbname", "metrics",
		"-m", "weather",
		"--timecolumn", "ts",
		"--tagcolumns", "station",
		"--fieldcolumns", "temp",
		"-b", "2",
	}
	return append(args, extra...)
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv(configEnvVar, "")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var out, errBuf bytes.Buffer
	err = run(ctx, args, &out, &errBuf)
	return out.String(), errBuf.String(), err
}

// =============================================================================
// Import
// =============================================================================

func TestRun_Import(t *testing.T) {
	srv := newFakeInflux(t)
	input := writeFile(t, "weather.csv", weatherCSV)

	_, logs, err := runCLI(t, importArgs(srv.URL, input)...)
	if err != nil {
		t.Fatalf("run() error = %v\nlogs:\n%s", err, logs)
	}

	writes, queries := srv.snapshot()
	if len(writes) != 2 {
		t.Fatalf("write requests = %d, want 2 (batch size 2, 3 rows)", len(writes))
	}
	if !strings.Contains(writes[0], "weather,station=s1 temp=21.5 1704067200000000000") {
		t.Errorf("first batch = %q", writes[0])
	}
	if strings.Count(writes[0], "\n") != 2 || strings.Count(writes[1], "\n") != 1 {
		t.Errorf("batches = %q, want 2 then 1 points", writes)
	}
	if len(queries) != 0 {
		t.Errorf("queries = %v, want none without --create", queries)
	}

	for _, want := range []string{"read lines", "inserting points", "wrote points", "import finished"} {
		if !strings.Contains(logs, want) {
			t.Errorf("logs missing %q:\n%s", want, logs)
		}
	}
}

func TestRun_Create(t *testing.T) {
	srv := newFakeInflux(t)
	input := writeFile(t, "weather.csv", weatherCSV)

	if _, logs, err := runCLI(t, importArgs(srv.URL, input, "--create")...); err != nil {
		t.Fatalf("run() error = %v\nlogs:\n%s", err, logs)
	}

	_, queries := srv.snapshot()
	want := []string{`DROP DATABASE "metrics"`, `CREATE DATABASE "metrics"`}
	if strings.Join(queries, ";") != strings.Join(want, ";") {
		t.Errorf("queries = %v, want %v", queries, want)
	}
}

func TestRun_FailFast(t *testing.T) {
	srv := newFakeInflux(t)
	srv.failFirst = 1
	input := writeFile(t, "weather.csv", weatherCSV)

	_, logs, err := runCLI(t, importArgs(srv.URL, input)...)
	if err == nil {
		t.Fatal("run() error = nil, want write failure")
	}
	if !strings.Contains(err.Error(), "field type conflict") {
		t.Errorf("run() error = %v, want server message", err)
	}

	writes, _ := srv.snapshot()
	if len(writes) != 0 {
		t.Errorf("accepted writes = %d, want 0 after abort", len(writes))
	}
	if !strings.Contains(logs, "import aborted") {
		t.Errorf("logs missing summary:\n%s", logs)
	}
}

func TestRun_Force(t *testing.T) {
	srv := newFakeInflux(t)
	srv.failFirst = 1
	input := writeFile(t, "weather.csv", weatherCSV)

	_, logs, err := runCLI(t, importArgs(srv.URL, input, "--force")...)
	if err != nil {
		t.Fatalf("run() error = %v, want nil under --force", err)
	}

	writes, _ := srv.snapshot()
	if len(writes) != 1 || !strings.Contains(writes[0], "temp=23.5") {
		t.Errorf("accepted writes = %q, want only the last batch", writes)
	}
	for _, want := range []string{"batch write failed", "import finished with dropped batches"} {
		if !strings.Contains(logs, want) {
			t.Errorf("logs missing %q:\n%s", want, logs)
		}
	}
}

func TestRun_EpochPrecision(t *testing.T) {
	srv := newFakeInflux(t)
	input := writeFile(t, "epoch.csv", "ts,station,temp\n1000,s1,1\n")

	if _, logs, err := runCLI(t, importArgs(srv.URL, input, "--epoch-precision", "ms")...); err != nil {
		t.Fatalf("run() error = %v\nlogs:\n%s", err, logs)
	}

	writes, _ := srv.snapshot()
	if len(writes) != 1 || !strings.Contains(writes[0], " 1000000000000\n") {
		t.Errorf("writes = %q, want timestamp 1e12 ns", writes)
	}
}

func TestRun_InvalidTimestampAborts(t *testing.T) {
	srv := newFakeInflux(t)
	input := writeFile(t, "bad.csv", "ts,station,temp\nyesterday,s1,1\n")

	_, _, err := runCLI(t, importArgs(srv.URL, input)...)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("run() error = %v, want invalid timestamp at line 2", err)
	}
}

func TestRun_MissingDatabase(t *testing.T) {
	input := writeFile(t, "weather.csv", weatherCSV)

	_, _, err := runCLI(t, "-i", input)
	if err == nil || !strings.Contains(err.Error(), "tsdb.database is required") {
		t.Errorf("run() error = %v, want missing database", err)
	}
}

func TestRun_ServerDown(t *testing.T) {
	input := writeFile(t, "weather.csv", weatherCSV)

	_, _, err := runCLI(t, importArgs("http://127.0.0.1:1", input)...)
	if err == nil || !strings.Contains(err.Error(), "ping") {
		t.Errorf("run() error = %v, want ping failure", err)
	}
}

func TestRun_Version(t *testing.T) {
	out, _, err := runCLI(t, "--version")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out, version) {
		t.Errorf("--version output = %q", out)
	}
}

// =============================================================================
// Run ledger
// =============================================================================

func TestRun_LedgerRecordsDroppedBatches(t *testing.T) {
	srv := newFakeInflux(t)
	srv.failFirst = 1
	input := writeFile(t, "weather.csv", weatherCSV)
	ledger := filepath.Join(t.TempDir(), "ledger.db")
	cfgPath := writeFile(t, "config.yaml", "ledger:\n  enabled: true\n  path: "+ledger+"\n")

	if _, logs, err := runCLI(t, importArgs(srv.URL, input, "--force", "--config", cfgPath)...); err != nil {
		t.Fatalf("run() error = %v\nlogs:\n%s", err, logs)
	}

	out, _, err := runCLI(t, "runs", "--config", cfgPath)
	if err != nil {
		t.Fatalf("runs error = %v", err)
	}
	if !strings.Contains(out, "partial") || !strings.Contains(out, input) {
		t.Fatalf("runs output = %q, want partial run of %s", out, input)
	}

	// The first column of the data line is the run ID.
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("runs output has %d lines, want header and one run", len(lines))
	}
	runID := strings.Fields(lines[1])[0]

	out, _, err = runCLI(t, "runs", runID, "--ledger", ledger)
	if err != nil {
		t.Fatalf("runs %s error = %v", runID, err)
	}
	for _, want := range []string{"Status:      partial", "Dropped:     2 points in 1 batches", "2-3", "field type conflict"} {
		if !strings.Contains(out, want) {
			t.Errorf("runs %s output missing %q:\n%s", runID, want, out)
		}
	}
}

func TestRun_LedgerMaintenance(t *testing.T) {
	ledger := filepath.Join(t.TempDir(), "ledger.db")

	out, _, err := runCLI(t, "ledger", "status", "--ledger", ledger)
	if err != nil {
		t.Fatalf("ledger status error = %v", err)
	}
	if !strings.Contains(out, "20261016_090000") || !strings.Contains(out, "pending (run_ledger)") {
		t.Fatalf("ledger status on a new ledger = %q, want pending run_ledger", out)
	}

	// Listing runs migrates the ledger.
	if _, _, err := runCLI(t, "runs", "--ledger", ledger); err != nil {
		t.Fatalf("runs error = %v", err)
	}
	out, _, err = runCLI(t, "ledger", "status", "--ledger", ledger)
	if err != nil {
		t.Fatalf("ledger status error = %v", err)
	}
	if strings.Contains(out, "pending") || !strings.Contains(out, "applied") {
		t.Fatalf("ledger status after migrate = %q, want applied", out)
	}

	out, _, err = runCLI(t, "ledger", "rollback", "--ledger", ledger)
	if err != nil {
		t.Fatalf("ledger rollback error = %v", err)
	}
	if strings.TrimSpace(out) != "rolled back 20261016_090000" {
		t.Errorf("ledger rollback output = %q", out)
	}

	out, _, err = runCLI(t, "ledger", "rollback", "--ledger", ledger)
	if err != nil {
		t.Fatalf("second ledger rollback error = %v", err)
	}
	if strings.TrimSpace(out) != "no migrations applied" {
		t.Errorf("second ledger rollback output = %q", out)
	}
}

// =============================================================================
// Flags
// =============================================================================

func TestImportFlags_OnlyChangedFlagsOverride(t *testing.T) {
	cmd := &cobra.Command{Use: "csv2influx"}
	flags := &importFlags{}
	flags.register(cmd)

	if err := cmd.ParseFlags([]string{"-i", "in.csv", "--dbname", "db", "-g", "--epoch-precision", "s"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	t.Setenv(configEnvVar, "")
	cfg, err := config.Load("", flags.overrides(cmd)...)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Input.Path != "in.csv" || cfg.TSDB.Database != "db" || cfg.InfluxDB.Bucket != "db" {
		t.Errorf("input/db not applied: %+v %+v", cfg.Input, cfg.TSDB)
	}
	if !cfg.TSDB.Gzip || !cfg.InfluxDB.Gzip {
		t.Error("gzip not applied")
	}
	if cfg.Time.Mode != "epoch" || cfg.Time.Precision != "s" {
		t.Errorf("time = %+v, want epoch/s", cfg.Time)
	}
	// Unset flags leave defaults alone.
	if cfg.Batch.Size != 5000 || cfg.Batch.Policy != "fail-fast" {
		t.Errorf("batch = %+v, want defaults", cfg.Batch)
	}
	if cfg.Mapping.Measurement != "value" {
		t.Errorf("measurement = %q, want default", cfg.Mapping.Measurement)
	}
}

func TestSplitColumns(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a,b", []string{"a", "b"}},
		{" a , b ,", []string{"a", "b"}},
		{",,", nil},
	}
	for _, tt := range tests {
		got := splitColumns(tt.in)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("splitColumns(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFingerprint_IgnoresCredentials(t *testing.T) {
	a := &config.Config{}
	a.TSDB.Database = "db"
	a.Mapping.Measurement = "m"
	b := *a
	b.TSDB.Password = "secret"

	if fingerprint(a) != fingerprint(&b) {
		t.Error("fingerprint changed with password")
	}
	b.Mapping.Measurement = "other"
	if fingerprint(a) == fingerprint(&b) {
		t.Error("fingerprint unchanged with measurement")
	}
}
