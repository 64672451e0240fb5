// Package doctor runs local diagnostics for tasklist.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/basket/tasklist/internal/config"
	"github.com/basket/tasklist/internal/cron"
	"github.com/basket/tasklist/internal/persistence"
	"github.com/basket/tasklist/internal/shared"
	"github.com/basket/tasklist/internal/tasks"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusWarn = "WARN"
	StatusSkip = "SKIP"
)

type CheckResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // PASS, FAIL, WARN, SKIP
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type Diagnosis struct {
	Timestamp time.Time     `json:"timestamp"`
	System    SystemInfo    `json:"system"`
	Results   []CheckResult `json:"results"`
}

type SystemInfo struct {
	OS      string `json:"os"`
	Arch    string `json:"arch"`
	Go      string `json:"go_version"`
	Version string `json:"version"`
}

// Failed reports whether any check failed.
func (d Diagnosis) Failed() bool {
	for _, r := range d.Results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}

// Run executes all diagnostic checks.
func Run(ctx context.Context, cfg *config.Config, version string) Diagnosis {
	d := Diagnosis{
		Timestamp: time.Now().UTC(),
		System: SystemInfo{
			OS:      runtime.GOOS,
			Arch:    runtime.GOARCH,
			Go:      runtime.Version(),
			Version: version,
		},
	}

	checks := []func(context.Context, *config.Config) CheckResult{
		checkConfig,
		checkPermissions,
		checkDatabase,
		checkTaskData,
		checkBackups,
		checkTelemetry,
	}
	for _, check := range checks {
		d.Results = append(d.Results, check(ctx, cfg))
	}
	return d
}

func checkConfig(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Name: "Config", Status: StatusFail, Message: "Configuration not loaded"}
	}
	overrides := envOverrides()
	if cfg.NeedsInit {
		detail := "Run `tasklist init` to write a starter config"
		if overrides != "" {
			detail += "; env: " + overrides
		}
		return CheckResult{
			Name:    "Config",
			Status:  StatusWarn,
			Message: "config.yaml missing, using defaults",
			Detail:  detail,
		}
	}
	detail := cfg.Fingerprint()
	if overrides != "" {
		detail += "; env: " + overrides
	}
	return CheckResult{Name: "Config", Status: StatusPass, Message: fmt.Sprintf("Loaded from %s", config.ConfigPath(cfg.HomeDir)), Detail: detail}
}

// envOverrides lists the TASKLIST_ and OTEL_ variables in effect, with
// secret-looking values masked.
func envOverrides() string {
	var out []string
	for _, kv := range os.Environ() {
		key, value, _ := strings.Cut(kv, "=")
		if value == "" || !(strings.HasPrefix(key, "TASKLIST_") || strings.HasPrefix(key, "OTEL_")) {
			continue
		}
		out = append(out, key+"="+shared.Redact(shared.RedactEnvValue(key, value)))
	}
	slices.Sort(out)
	return strings.Join(out, " ")
}

// dbExists stats the database file. Doctor never creates it.
func dbExists(cfg *config.Config) (bool, error) {
	_, err := os.Stat(cfg.DBPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func checkDatabase(ctx context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Name: "Database", Status: StatusSkip, Message: "Config missing"}
	}
	if ok, err := dbExists(cfg); err != nil {
		return CheckResult{Name: "Database", Status: StatusFail, Message: fmt.Sprintf("Stat failed: %v", err), Detail: cfg.DBPath}
	} else if !ok {
		return CheckResult{Name: "Database", Status: StatusWarn, Message: "Database not created yet; it is created on first use", Detail: cfg.DBPath}
	}
	store, err := persistence.Open(cfg.DBPath, nil)
	if err != nil {
		return CheckResult{Name: "Database", Status: StatusFail, Message: fmt.Sprintf("Open failed: %v", err), Detail: cfg.DBPath}
	}
	defer store.Close()

	version, err := store.SchemaVersion(ctx)
	if err != nil {
		return CheckResult{Name: "Database", Status: StatusFail, Message: fmt.Sprintf("Query failed: %v", err)}
	}
	keys, err := store.Keys(ctx)
	if err != nil {
		return CheckResult{Name: "Database", Status: StatusFail, Message: fmt.Sprintf("Query failed: %v", err)}
	}
	return CheckResult{
		Name:    "Database",
		Status:  StatusPass,
		Message: fmt.Sprintf("Schema v%d, %d stored keys", version, len(keys)),
		Detail:  cfg.DBPath,
	}
}

func checkTaskData(ctx context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Name: "Task Data", Status: StatusSkip, Message: "Config missing"}
	}
	if ok, _ := dbExists(cfg); !ok {
		return CheckResult{Name: "Task Data", Status: StatusSkip, Message: "No database yet"}
	}
	store, err := persistence.Open(cfg.DBPath, nil)
	if err != nil {
		return CheckResult{Name: "Task Data", Status: StatusSkip, Message: "Database unavailable"}
	}
	defer store.Close()

	blob, ok, err := store.KVGet(ctx, cfg.StorageKey)
	if err != nil {
		return CheckResult{Name: "Task Data", Status: StatusFail, Message: fmt.Sprintf("Read failed: %v", err)}
	}
	if !ok {
		return CheckResult{Name: "Task Data", Status: StatusPass, Message: fmt.Sprintf("No tasks stored under %q yet", cfg.StorageKey)}
	}
	all, err := tasks.DecodeTasks(blob)
	if err != nil {
		return CheckResult{
			Name:    "Task Data",
			Status:  StatusWarn,
			Message: fmt.Sprintf("Value under %q is malformed and will load as an empty list", cfg.StorageKey),
			Detail:  err.Error(),
		}
	}
	active := 0
	for _, t := range all {
		if !t.Deleted() {
			active++
		}
	}
	return CheckResult{Name: "Task Data", Status: StatusPass, Message: fmt.Sprintf("%d tasks (%d active)", len(all), active)}
}

func checkBackups(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Name: "Backups", Status: StatusSkip, Message: "Config missing"}
	}
	backups, err := cron.ListBackups(cfg.Backup.Dir)
	if err != nil {
		return CheckResult{Name: "Backups", Status: StatusFail, Message: fmt.Sprintf("Backup dir unreadable: %v", err), Detail: cfg.Backup.Dir}
	}
	if cfg.Backup.Schedule == "" {
		return CheckResult{Name: "Backups", Status: StatusPass, Message: fmt.Sprintf("Scheduled backups disabled, %d on disk", len(backups)), Detail: cfg.Backup.Dir}
	}
	next, err := cron.NextRunTime(cfg.Backup.Schedule, time.Now())
	if err != nil {
		return CheckResult{Name: "Backups", Status: StatusFail, Message: fmt.Sprintf("Invalid backup.schedule %q: %v", cfg.Backup.Schedule, err)}
	}
	return CheckResult{
		Name:    "Backups",
		Status:  StatusPass,
		Message: fmt.Sprintf("Next backup %s, %d on disk (keep %d)", next.Format(time.RFC3339), len(backups), cfg.Backup.Keep),
		Detail:  cfg.Backup.Dir,
	}
}

func checkTelemetry(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil || !cfg.OTel.Enabled {
		return CheckResult{Name: "Telemetry", Status: StatusSkip, Message: "OpenTelemetry disabled"}
	}
	switch cfg.OTel.Exporter {
	case "", "stdout", "none":
		return CheckResult{Name: "Telemetry", Status: StatusPass, Message: fmt.Sprintf("Exporter %q", cfg.OTel.Exporter)}
	case "otlp-http":
		if cfg.OTel.Endpoint == "" {
			return CheckResult{Name: "Telemetry", Status: StatusWarn, Message: "otlp-http exporter without endpoint, using localhost:4318"}
		}
		return CheckResult{Name: "Telemetry", Status: StatusPass, Message: "Exporter otlp-http", Detail: cfg.OTel.Endpoint}
	default:
		return CheckResult{Name: "Telemetry", Status: StatusFail, Message: fmt.Sprintf("Unknown exporter %q", cfg.OTel.Exporter)}
	}
}
