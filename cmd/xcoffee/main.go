// Package main provides the xcoffee CLI entrypoint.
//
// Usage:
//
//	xcoffee <command> [options]
//
// Exit codes:
//   - 0: success (watch stopped by signal, frame written, probe connected)
//   - 1: runtime failure (no frame, probe failed, broken pipe input)
//   - 2: configuration error
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/xcoffee/cli/cmd"
	"github.com/pithecene-io/xcoffee/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

// Replaced in tests.
var (
	osExit           = os.Exit
	stderr io.Writer = os.Stderr
)

func main() {
	app := &cli.App{
		Name:           "xcoffee",
		Usage:          "Watch an MJPEG camera stream and deliver its frames",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.WatchCommand(),
			cmd.SnapshotCommand(),
			cmd.ProbeCommand(),
			cmd.TailCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	// Check for ExitCoder (from cli.Exit), handles wrapped errors
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N"; skip those
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(stderr, msg)
		}
		osExit(code)
		return
	}

	// Unexpected error - print and exit with code 1
	fmt.Fprintf(stderr, "Error: %v\n", err)
	osExit(1)
}
