// Package cmd provides CLI commands for the xcoffee binary.
package cmd

import (
	"time"

	"github.com/urfave/cli/v2"
)

// Exit codes.
const (
	exitSuccess     = 0
	exitFailure     = 1
	exitConfigError = 2
)

// Shared flags for commands that render results.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// ConfigFlag points at an xcoffee.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file (default: ./xcoffee.yaml when present)",
	}
)

// ReadOnlyFlags returns the shared flags for commands that render results.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
	}
}

// StreamFlags returns the flags every command that opens a stream accepts.
// Defaults live in the stream package; a zero flag value means "use config,
// then default".
func StreamFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		&cli.StringFlag{
			Name:    "endpoint",
			Aliases: []string{"e"},
			Usage:   "MJPEG stream URL",
			EnvVars: []string{"XCOFFEE_ENDPOINT"},
		},
		&cli.DurationFlag{
			Name:  "reconnect-delay",
			Usage: "Wait between a failure and the next connection attempt (default 5s)",
		},
		&cli.IntFlag{
			Name:  "max-buffer-bytes",
			Usage: "Reconnect when a frame grows past this many bytes (default 16 MiB)",
		},
		&cli.IntFlag{
			Name:  "read-buffer-bytes",
			Usage: "Size of a single body read (default 32 KiB)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Minimum log level: debug, info, warn, error",
			Value: "info",
		},
	}
}

// AdapterFlags returns the flags that select and configure the event adapter.
func AdapterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Event adapter: console, pipe, redis, webhook",
			Value: "console",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Adapter endpoint (webhook URL or redis://host:port/db)",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis pub/sub channel (default xcoffee:events)",
		},
		&cli.StringFlag{
			Name:  "adapter-latest-key",
			Usage: "Redis key that always holds the latest frame bytes",
		},
		&cli.DurationFlag{
			Name:  "adapter-latest-ttl",
			Usage: "Expiry of the latest frame key (0 = never)",
		},
		&cli.StringSliceFlag{
			Name:  "adapter-header",
			Usage: "Extra webhook header as key=value (repeatable)",
		},
		&cli.DurationFlag{
			Name:  "adapter-timeout",
			Usage: "Per-publish timeout",
			Value: 10 * time.Second,
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Publish retry attempts",
			Value: 3,
		},
	}
}
