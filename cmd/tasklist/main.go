package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/basket/tasklist/internal/config"
	"github.com/basket/tasklist/internal/cron"
	"github.com/basket/tasklist/internal/tui"
)

// Version is set via ldflags at build time: -ldflags "-X main.Version=..."
var Version = "v0.3-dev"

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage of %[1]s:

INTERACTIVE MODE (default):
  %[1]s                          Open the task list

SUBCOMMANDS:
  %[1]s add <text...>            Add a task
  %[1]s edit <id> <text...>      Change a task's text
  %[1]s delete <id>              Delete a task
  %[1]s list [options]           Print one page of tasks
                              Options: -filter all|text|date, -q, -date, -size, -page
  %[1]s export [options]         Write tasks as json, csv or pdf
                              Options: -format, -o <file>, -all
  %[1]s import [options]         Load a browser localStorage dump
                              Options: -path <file> (default: tasks.json), -force
  %[1]s backup [-o <file>]       Copy the database to a backup file
  %[1]s doctor [-json]           Run diagnostic checks
  %[1]s init                     Write a starter config.yaml

ENVIRONMENT VARIABLES:
  TASKLIST_HOME             Data directory (default: ~/.tasklist)
  TASKLIST_LOG_LEVEL        debug, info, warn, error
  TASKLIST_DB_PATH          SQLite database path
  TASKLIST_PAGE_SIZE        Initial page size
  TASKLIST_BACKUP_SCHEDULE  Cron expression for scheduled backups

EXAMPLES:
  Add a task:             %[1]s add Buy milk
  Today's tasks as CSV:   %[1]s export -format csv -filter date -date %[2]s
  Run diagnostics:        %[1]s doctor
`, os.Args[0], time.Now().Format("2006-01-02"))
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args := flag.Args(); len(args) > 0 {
		os.Exit(runSubcommand(ctx, args))
	}

	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		fmt.Fprintln(os.Stderr, "tasklist: the interactive view needs a terminal; run `tasklist help` for subcommands")
		os.Exit(2)
	}
	if err := runInteractive(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "tasklist: %v\n", err)
		os.Exit(1)
	}
}

func runSubcommand(ctx context.Context, args []string) int {
	rest := args[1:]
	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "-h", "--help":
		printUsage()
		return 0
	case "version":
		fmt.Println(Version)
		return 0
	case "add":
		return runAddCommand(ctx, rest, os.Stdout)
	case "edit":
		return runEditCommand(ctx, rest, os.Stdout)
	case "delete", "rm":
		return runDeleteCommand(ctx, rest, os.Stdout)
	case "list", "ls":
		return runListCommand(ctx, rest, os.Stdout)
	case "export":
		return runExportCommand(ctx, rest, os.Stdout)
	case "import":
		return runImportCommand(ctx, rest, os.Stdout)
	case "backup":
		return runBackupCommand(ctx, rest, os.Stdout)
	case "doctor":
		return runDoctorCommand(ctx, rest, os.Stdout)
	case "init":
		return runInitCommand(rest, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		printUsage()
		return 2
	}
}

func runInteractive(ctx context.Context) error {
	rt, err := openRuntime(ctx, true)
	if err != nil {
		var se *startupError
		if errors.As(err, &se) {
			fatalStartup(nil, se.code, se.err)
		}
		return err
	}
	defer rt.Close()
	logger := rt.logger

	if rt.cfg.NeedsInit {
		logger.Info("no config.yaml yet; using defaults", "home", rt.cfg.HomeDir)
	}

	if rt.cfg.Backup.Schedule != "" {
		sched, err := cron.NewScheduler(cron.Config{
			Store:    rt.db,
			Logger:   logger,
			Schedule: rt.cfg.Backup.Schedule,
			Dir:      rt.cfg.Backup.Dir,
			Keep:     rt.cfg.Backup.Keep,
		})
		if err != nil {
			logger.Warn("scheduled backups disabled", "schedule", rt.cfg.Backup.Schedule, "error", err)
		} else {
			sched.Start(ctx)
			defer sched.Stop()
			logger.Info("startup phase", "phase", "backup_scheduler_started", "next_run_at", sched.NextRun())
		}
	}

	watcher := config.NewWatcher(rt.cfg.HomeDir, logger)
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	opts := tui.Options{
		Store:      rt.tasks,
		Bus:        rt.bus,
		PageSizes:  rt.cfg.PageSizes,
		LoadConfig: config.Load,
		Logger:     logger,
	}
	if err := watcher.Start(watchCtx); err != nil {
		logger.Warn("config watcher disabled", "error", err)
	} else {
		opts.ConfigEvents = watcher.Events()
	}

	logger.Info("startup phase", "phase", "tui_started", "config", rt.cfg.Fingerprint())
	return tui.Run(ctx, opts)
}

func fatalStartup(logger *slog.Logger, reasonCode string, err error) {
	message := ""
	if err != nil {
		message = err.Error()
	}
	if logger != nil {
		logger.Error("startup failure", "reason_code", reasonCode, "error", message)
	} else {
		fmt.Fprintf(
			os.Stderr,
			`{"timestamp":"%s","level":"ERROR","component":"tasklist","trace_id":"-","msg":"startup failure","reason_code":%q,"error":%q}`+"\n",
			time.Now().UTC().Format(time.RFC3339Nano),
			reasonCode,
			message,
		)
	}
	os.Exit(1)
}
