package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/basket/tasklist/internal/cron"
)

func runBackupCommand(ctx context.Context, args []string, out io.Writer) int {
	fs := flag.NewFlagSet("tasklist backup", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dest := fs.String("o", "", "backup file (default: timestamped file in backup.dir, pruned to backup.keep)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rt, ok := openOrReport(ctx)
	if !ok {
		return 1
	}
	defer rt.Close()

	path := *dest
	var err error
	if path == "" {
		path, err = cron.RunBackup(ctx, rt.db, rt.cfg.Backup.Dir, rt.cfg.Backup.Keep, time.Now())
	} else {
		err = rt.db.Backup(ctx, path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "backup: %v\n", err)
		return 1
	}
	rt.logger.Info("manual backup written", "path", path)
	fmt.Fprintf(out, "backup written to %s\n", path)
	return 0
}
