package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/xcoffee/cli/config"
	"github.com/pithecene-io/xcoffee/iox"
	"github.com/pithecene-io/xcoffee/log"
	"github.com/pithecene-io/xcoffee/preview"
	"github.com/pithecene-io/xcoffee/stream"
	"github.com/pithecene-io/xcoffee/types"
)

// defaultSnapshotTimeout bounds how long snapshot waits for a frame,
// reconnects included.
const defaultSnapshotTimeout = 30 * time.Second

// SnapshotCommand returns the snapshot command.
// Snapshot waits for the first frame of the stream and writes it out.
func SnapshotCommand() *cli.Command {
	flags := StreamFlags()
	flags = append(flags,
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the frame to this file (default: stdout)",
		},
		&cli.BoolFlag{
			Name:  "preview",
			Usage: "Write a 128px grayscale preview instead of the full frame",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Give up when no frame arrives within this duration",
			Value: defaultSnapshotTimeout,
		},
	)

	return &cli.Command{
		Name:   "snapshot",
		Usage:  "Capture one frame from the stream",
		Flags:  flags,
		Action: snapshotAction,
	}
}

func snapshotAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ss, err := resolveStreamSettings(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	timeout := c.Duration("timeout")
	if timeout <= 0 {
		return cli.Exit(fmt.Sprintf("--timeout must be > 0, got %s", timeout), exitConfigError)
	}

	session := &types.Session{ID: uuid.NewString(), Endpoint: ss.endpoint}
	logger, err := newSessionLogger(session, ss.logLevel)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	defer iox.DiscardErr(logger.Sync)

	driver, err := stream.NewDriver(stream.Config{
		Endpoint:       ss.endpoint,
		SessionID:      session.ID,
		ReconnectDelay: ss.reconnectDelay,
		MaxBufferSize:  ss.maxBufferBytes,
		ReadSize:       ss.readSize,
		Logger:         logger,
	})
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	frame, err := firstFrame(ctx, driver, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("no frame received from %s within %s: %v", ss.endpoint, timeout, err), exitFailure)
	}

	data := frame.Data
	if resolveBool(c, "preview", configVal(cfg, func(c *config.Config) bool { return c.Preview })) {
		data = preview.PixelateOrOriginal(data)
	}
	return writeFrame(c, c.String("output"), data)
}

// firstFrame steps the driver until it yields a frame or ctx ends. Failures
// along the way are logged and retried after the reconnect delay.
func firstFrame(ctx context.Context, driver *stream.Driver, logger *log.Logger) (*types.Frame, error) {
	var s stream.State = stream.Connecting{}
	for {
		ev, next := driver.Step(ctx, s)
		s = next
		if ctx.Err() != nil {
			stream.CloseState(s)
			return nil, ctx.Err()
		}

		switch ev.Type {
		case types.EventTypeFrameLoaded:
			stream.CloseState(s)
			return ev.Frame, nil
		case types.EventTypeError:
			logger.Warn(ev.Message, map[string]any{"state": s.Name()})
		case types.EventTypeStatus:
			logger.Info(ev.Message, map[string]any{"state": s.Name()})
		}
	}
}

// writeFrame writes data to path, or to the app writer when path is empty
// or "-".
func writeFrame(c *cli.Context, path string, data []byte) error {
	if path == "" || path == "-" {
		w := c.App.Writer
		if w == nil {
			w = os.Stdout
		}
		if _, err := w.Write(data); err != nil {
			return cli.Exit(fmt.Sprintf("failed to write frame: %v", err), exitFailure)
		}
		return nil
	}
	if err := iox.WriteFileAtomic(path, data, 0o644); err != nil {
		return cli.Exit(fmt.Sprintf("failed to write %s: %v", path, err), exitFailure)
	}
	return nil
}
