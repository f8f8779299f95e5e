package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/xcoffee/adapter/console"
	"github.com/pithecene-io/xcoffee/iox"
	"github.com/pithecene-io/xcoffee/ipc"
	"github.com/pithecene-io/xcoffee/types"
)

// TailCommand returns the tail command.
// Tail consumes the output of `watch --adapter pipe`, prints one line per
// event and optionally stores the frames it carries.
func TailCommand() *cli.Command {
	return &cli.Command{
		Name:  "tail",
		Usage: "Read piped events (watch --adapter pipe) and print them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Read events from this file (default: stdin)",
			},
			&cli.StringFlag{
				Name:  "frames-dir",
				Usage: "Write every frame to this directory as frame-<seq>.jpg",
			},
			&cli.StringFlag{
				Name:  "latest",
				Usage: "Keep the most recent frame in this file",
			},
		},
		Action: tailAction,
	}
}

func tailAction(c *cli.Context) error {
	in := io.ReadCloser(os.Stdin)
	if path := c.String("input"); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot open input: %v", err), exitConfigError)
		}
		in = f
	}
	defer iox.DiscardClose(in)

	framesDir := c.String("frames-dir")
	if framesDir != "" {
		if err := os.MkdirAll(framesDir, 0o755); err != nil {
			return cli.Exit(fmt.Sprintf("cannot create frames dir: %v", err), exitConfigError)
		}
	}

	out := c.App.Writer
	if out == nil {
		out = os.Stdout
	}
	printer, err := console.New(out)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// A blocked read on the input only returns once the input is closed.
	defer iox.CloseOnDone(ctx, in)()

	sink := frameSink{dir: framesDir, latest: c.String("latest")}
	n, err := tailEvents(ctx, ipc.NewFrameDecoder(in), printer, sink)
	if err != nil && ctx.Err() == nil {
		return cli.Exit(fmt.Sprintf("tail stopped after %d events: %v", n, err), exitFailure)
	}
	return nil
}

// frameSink stores frame payloads on disk.
type frameSink struct {
	dir    string
	latest string
}

func (s frameSink) store(f *types.Frame) error {
	if s.dir != "" {
		name := filepath.Join(s.dir, fmt.Sprintf("frame-%06d.jpg", f.Seq))
		if err := iox.WriteFileAtomic(name, f.Data, 0o644); err != nil {
			return err
		}
	}
	if s.latest != "" {
		if err := iox.WriteFileAtomic(s.latest, f.Data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// tailEvents decodes events until EOF, printing each and storing frames.
// It returns the number of events read. A clean EOF is not an error.
func tailEvents(ctx context.Context, dec *ipc.FrameDecoder, printer *console.Adapter, sink frameSink) (int, error) {
	n := 0
	for {
		ev, err := dec.ReadEvent()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++

		if err := printer.Publish(ctx, ev); err != nil {
			return n, err
		}
		if ev.Frame != nil && len(ev.Frame.Data) > 0 {
			if err := sink.store(ev.Frame); err != nil {
				return n, fmt.Errorf("store frame %d: %w", ev.Frame.Seq, err)
			}
		}
	}
}
