package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/basket/tasklist/internal/export"
)

func runExportCommand(ctx context.Context, args []string, out io.Writer) int {
	fs := flag.NewFlagSet("tasklist export", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	format := fs.String("format", "json", "output format: json, csv or pdf")
	outPath := fs.String("o", "", "output file (default: stdout)")
	all := fs.Bool("all", false, "include deleted tasks; json output can be re-imported")
	sel := addSelectionFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	f, err := export.ParseFormat(*format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	q, err := sel.query()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if f == export.FormatPDF && *outPath == "" && out == os.Stdout && isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Fprintln(os.Stderr, "refusing to write a pdf to the terminal; pass -o <file>")
		return 2
	}

	rt, ok := openOrReport(ctx)
	if !ok {
		return 1
	}
	defer rt.Close()

	w := out
	var file *os.File
	if *outPath != "" {
		file, err = os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create %s: %v\n", *outPath, err)
			return 1
		}
		w = file
	}
	bw := bufio.NewWriter(w)

	exp := export.NewExporter(rt.tasks)
	opts := export.Options{IncludeDeleted: *all, Query: q}
	err = exp.Export(bw, f, opts)
	if err == nil {
		err = bw.Flush()
	}
	if file != nil {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "export: %v\n", err)
		return 1
	}
	rt.logger.Info("tasks exported", "format", string(f), "rows", len(exp.Rows(opts)), "path", *outPath)
	if *outPath != "" {
		fmt.Fprintf(out, "wrote %s\n", *outPath)
	}
	return 0
}
