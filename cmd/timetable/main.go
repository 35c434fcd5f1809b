package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/noah-isme/sma-timetable/internal/cli"
)

func main() {
	if err := cli.BuildCLI().Execute(); err != nil {
		if !errors.Is(err, cli.ErrConflictsFound) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
