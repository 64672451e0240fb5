package main

import (
	"fmt"
	"io"
	"os"

	"github.com/basket/tasklist/internal/config"
)

func runInitCommand(args []string, out io.Writer) int {
	if len(args) != 0 {
		fmt.Fprintln(os.Stderr, "usage: tasklist init")
		return 2
	}
	path, err := config.WriteStarter(config.HomeDir())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Fprintf(out, "wrote %s\n", path)
	return 0
}
