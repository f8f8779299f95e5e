package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/xcoffee/cli/config"
	"github.com/pithecene-io/xcoffee/cli/render"
	"github.com/pithecene-io/xcoffee/cli/tui"
	"github.com/pithecene-io/xcoffee/log"
	"github.com/pithecene-io/xcoffee/metrics"
	"github.com/pithecene-io/xcoffee/policy"
	"github.com/pithecene-io/xcoffee/preview"
	"github.com/pithecene-io/xcoffee/stream"
	"github.com/pithecene-io/xcoffee/types"
)

// tuiEventBuffer bounds the events queued for the live view.
const tuiEventBuffer = 64

// WatchCommand returns the watch command.
// Watch runs the stream driver until interrupted and never gives up on the
// endpoint: every failure is followed by a reconnect.
func WatchCommand() *cli.Command {
	flags := StreamFlags()
	flags = append(flags, AdapterFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:  "policy",
			Usage: "Delivery policy: strict or latest",
			Value: string(policy.NameStrict),
		},
		&cli.BoolFlag{
			Name:  "preview",
			Usage: "Replace frames with a 128px grayscale preview before delivery",
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Show a live status view instead of logging to stderr",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "Suppress the session summary on exit",
		},
	)

	return &cli.Command{
		Name:   "watch",
		Usage:  "Watch a stream and deliver its events until interrupted",
		Flags:  flags,
		Action: watchAction,
	}
}

// watchSettings holds everything watchAction resolved before starting.
type watchSettings struct {
	stream     streamSettings
	adapter    adapterChoice
	policyName policy.Name
	preview    bool
}

func resolveWatchSettings(c *cli.Context, cfg *config.Config) (watchSettings, error) {
	ss, err := resolveStreamSettings(c, cfg)
	if err != nil {
		return watchSettings{}, err
	}

	adapterType := resolveString(c, "adapter", configVal(cfg, func(c *config.Config) string { return c.Adapter.Type }))
	ac, err := parseAdapterConfigWithPrecedence(c, cfg, adapterType)
	if err != nil {
		return watchSettings{}, err
	}

	name, err := policy.ParseName(resolveString(c, "policy", configVal(cfg, func(c *config.Config) string { return c.Policy })))
	if err != nil {
		return watchSettings{}, err
	}

	return watchSettings{
		stream:     ss,
		adapter:    ac,
		policyName: name,
		preview:    resolveBool(c, "preview", configVal(cfg, func(c *config.Config) bool { return c.Preview })),
	}, nil
}

func watchAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ws, err := resolveWatchSettings(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	useTUI := c.Bool("tui")

	session := &types.Session{ID: uuid.NewString(), Endpoint: ws.stream.endpoint}
	logger, err := newSessionLogger(session, ws.stream.logLevel)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	if useTUI {
		// The live view owns the terminal.
		logger = logger.WithOutput(io.Discard)
	}

	out := c.App.Writer
	if out == nil {
		out = os.Stdout
	}
	adp, err := buildAdapter(ws.adapter, out)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create adapter: %v", err), exitConfigError)
	}
	pol, err := buildPolicy(ws.policyName, adp, logger)
	if err != nil {
		_ = adp.Close()
		return cli.Exit(err.Error(), exitConfigError)
	}

	collector := metrics.NewCollector(session.Endpoint, string(ws.policyName), ws.adapter.adapterType, session.ID)
	driver, err := stream.NewDriver(stream.Config{
		Endpoint:       session.Endpoint,
		SessionID:      session.ID,
		ReconnectDelay: ws.stream.reconnectDelay,
		MaxBufferSize:  ws.stream.maxBufferBytes,
		ReadSize:       ws.stream.readSize,
		Logger:         logger,
		Metrics:        collector,
	})
	if err != nil {
		_ = pol.Close()
		return cli.Exit(err.Error(), exitConfigError)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("watch started", map[string]any{
		"policy":  string(ws.policyName),
		"adapter": ws.adapter.adapterType,
		"preview": ws.preview,
	})

	var view chan types.Event
	if useTUI {
		view = make(chan types.Event, tuiEventBuffer)
	}
	handler := newWatchHandler(pol, logger, ws.preview, view)

	if useTUI {
		err = runWithTUI(ctx, driver, handler, view, session.Endpoint, collector)
	} else {
		err = driver.Run(ctx, handler)
	}

	closeErr := pol.Close()
	absorbPolicyStats(collector, pol.Stats())
	if closeErr != nil {
		logger.Warn("policy close failed", map[string]any{"error": closeErr.Error()})
	}
	logger.Info("watch stopped", map[string]any{"reason": fmt.Sprint(err)})
	_ = logger.Sync()

	if !c.Bool("quiet") {
		printWatchSummary(c, collector.Snapshot())
	}
	if err != nil && !isContextDone(err) {
		return cli.Exit(fmt.Sprintf("watch failed: %v", err), exitFailure)
	}
	return nil
}

// newWatchHandler returns the driver handler: optional preview transform,
// policy delivery, then a copy of the event for the live view.
func newWatchHandler(pol policy.Policy, logger *log.Logger, withPreview bool, view chan<- types.Event) stream.Handler {
	return func(ctx context.Context, ev *types.Event) {
		if withPreview && ev.Frame != nil {
			ev.Frame.Data = preview.PixelateOrOriginal(ev.Frame.Data)
			ev.Frame.Size = len(ev.Frame.Data)
		}

		var viewEv types.Event
		if view != nil {
			// The view needs metadata only; the policy owns ev after Deliver.
			viewEv = *ev
			if ev.Frame != nil {
				f := *ev.Frame
				f.Data = nil
				viewEv.Frame = &f
			}
		}

		if err := pol.Deliver(ctx, ev); err != nil {
			logger.Warn("deliver failed", map[string]any{
				"seq":   ev.Seq,
				"type":  string(ev.Type),
				"error": err.Error(),
			})
		}

		if view != nil {
			select {
			case view <- viewEv:
			case <-ctx.Done():
			}
		}
	}
}

// runWithTUI runs the driver in the background and the live view in the
// foreground. Quitting the view stops the driver; stopping the driver
// closes the view.
func runWithTUI(ctx context.Context, driver *stream.Driver, handler stream.Handler, view chan types.Event, endpoint string, collector *metrics.Collector) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		err := driver.Run(ctx, handler)
		close(view)
		done <- err
	}()

	tuiErr := tui.RunWatch(endpoint, view, collector.Snapshot)
	cancel()
	runErr := <-done
	if tuiErr != nil {
		return fmt.Errorf("live view: %w", tuiErr)
	}
	return runErr
}

func absorbPolicyStats(c *metrics.Collector, s policy.Stats) {
	c.AbsorbPolicyStats(s.TotalEvents, s.EventsPublished, s.EventsDropped, s.Errors, s.DroppedByTypeStrings())
}

// printWatchSummary renders the session counters to the error writer: a
// table on a terminal, JSON otherwise.
func printWatchSummary(c *cli.Context, snap metrics.Snapshot) {
	w := c.App.ErrWriter
	if w == nil {
		w = os.Stderr
	}
	format := render.FormatJSON
	if isTerminal(w) {
		format = render.FormatTable
		fmt.Fprintln(w, "\n=== Session Summary ===")
	}
	if err := render.NewRendererWithWriter(format, true, w).Render(snap); err != nil {
		fmt.Fprintf(w, "failed to render summary: %v\n", err)
	}
}

func isContextDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
