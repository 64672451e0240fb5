package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/basket/tasklist/internal/tasks"
)

// runImportCommand loads a JSON task array, either a dump of the browser
// app's localStorage value or the output of `export -format json -all`.
func runImportCommand(ctx context.Context, args []string, out io.Writer) int {
	fs := flag.NewFlagSet("tasklist import", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "tasks.json", "path to a JSON task array")
	force := fs.Bool("force", false, "merge into a store that already holds tasks")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if len(fs.Args()) != 0 {
		fmt.Fprintln(os.Stderr, "usage: tasklist import [-path tasks.json] [-force]")
		return 2
	}

	raw, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", *path, err)
		return 1
	}
	incoming, err := tasks.DecodeTasks(string(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", *path, err)
		return 1
	}

	rt, ok := openOrReport(ctx)
	if !ok {
		return 1
	}
	defer rt.Close()

	if existing := rt.tasks.Counts().Total; existing > 0 && !*force {
		fmt.Fprintf(os.Stderr, "store already holds %d tasks; re-run with -force to merge into them\n", existing)
		return 1
	}
	res, err := rt.tasks.Merge(ctx, incoming)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", err)
		return 1
	}
	counts := rt.tasks.Counts()
	rt.logger.Info("tasks imported", "path", *path, "total", counts.Total, "active", counts.Active)
	fmt.Fprintf(out, "imported %d tasks (%d active) from %s\n", counts.Total, counts.Active, *path)
	if res.Kept > 0 || res.KeptDeleted > 0 {
		fmt.Fprintf(out, "kept %d stored tasks not in the file; %d deleted tasks stay deleted\n", res.Kept, res.KeptDeleted)
	}
	return 0
}
