package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/xcoffee/cli/config"
	"github.com/pithecene-io/xcoffee/log"
	"github.com/pithecene-io/xcoffee/mjpeg"
	"github.com/pithecene-io/xcoffee/stream"
	"github.com/pithecene-io/xcoffee/types"
)

// defaultEndpoint is the coffee pot camera watched when nothing else is set.
const defaultEndpoint = "https://kaffee.hnf.de"

// Precedence for every setting: explicit CLI flag, then config file, then
// the flag's own default.

// resolveString returns the CLI value when set, otherwise fallback when
// non-empty, otherwise the flag default.
func resolveString(c *cli.Context, name, fallback string) string {
	if c.IsSet(name) || fallback == "" {
		return c.String(name)
	}
	return fallback
}

// resolveInt returns the CLI value when set, otherwise fallback when
// non-zero, otherwise the flag default.
func resolveInt(c *cli.Context, name string, fallback int) int {
	if c.IsSet(name) || fallback == 0 {
		return c.Int(name)
	}
	return fallback
}

// resolveBool returns the CLI value when set, otherwise fallback.
func resolveBool(c *cli.Context, name string, fallback bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return fallback || c.Bool(name)
}

// resolveDuration returns the CLI value when set, otherwise fallback when
// non-zero, otherwise the flag default.
func resolveDuration(c *cli.Context, name string, fallback time.Duration) time.Duration {
	if c.IsSet(name) || fallback == 0 {
		return c.Duration(name)
	}
	return fallback
}

// configVal reads a field from cfg, returning the zero value for a nil cfg.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	var zero T
	if cfg == nil {
		return zero
	}
	return get(cfg)
}

// loadConfig loads the file named by --config, or ./xcoffee.yaml when present.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadOptional(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitConfigError)
	}
	return cfg, nil
}

// streamSettings holds the resolved stream flags.
type streamSettings struct {
	endpoint       string
	reconnectDelay time.Duration
	maxBufferBytes int
	readSize       int
	logLevel       string
}

// resolveStreamSettings applies CLI > config > default precedence to the
// stream flags and validates the result.
func resolveStreamSettings(c *cli.Context, cfg *config.Config) (streamSettings, error) {
	s := streamSettings{
		endpoint:       resolveString(c, "endpoint", configVal(cfg, func(c *config.Config) string { return c.Endpoint })),
		reconnectDelay: resolveDuration(c, "reconnect-delay", configVal(cfg, func(c *config.Config) time.Duration { return c.ReconnectDelay.Duration })),
		maxBufferBytes: resolveInt(c, "max-buffer-bytes", configVal(cfg, func(c *config.Config) int { return c.MaxBufferBytes })),
		readSize:       resolveInt(c, "read-buffer-bytes", configVal(cfg, func(c *config.Config) int { return c.ReadBufferBytes })),
		logLevel:       resolveString(c, "log-level", configVal(cfg, func(c *config.Config) string { return c.Log.Level })),
	}

	if s.endpoint == "" {
		s.endpoint = defaultEndpoint
	}
	if err := types.ValidateEndpoint(s.endpoint); err != nil {
		return s, fmt.Errorf("invalid --endpoint: %w", err)
	}
	if s.reconnectDelay <= 0 {
		s.reconnectDelay = stream.DefaultReconnectDelay
	}
	if s.maxBufferBytes < 0 {
		return s, fmt.Errorf("--max-buffer-bytes must be >= 0, got %d", s.maxBufferBytes)
	}
	if s.maxBufferBytes == 0 {
		s.maxBufferBytes = mjpeg.DefaultMaxBufferSize
	}
	if s.readSize < 0 {
		return s, fmt.Errorf("--read-buffer-bytes must be >= 0, got %d", s.readSize)
	}
	if s.readSize == 0 {
		s.readSize = stream.DefaultReadSize
	}
	if s.logLevel == "" {
		s.logLevel = "info"
	}
	if _, err := log.ParseLevel(s.logLevel); err != nil {
		return s, err
	}
	return s, nil
}

// newSessionLogger builds the structured logger for one session, writing to
// stderr at the resolved level.
func newSessionLogger(session *types.Session, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := log.NewLogger(session)
	logger.SetLevel(lvl)
	return logger, nil
}

// isTerminal returns true if w is a file attached to a TTY.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
