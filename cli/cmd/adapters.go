package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/xcoffee/adapter"
	"github.com/pithecene-io/xcoffee/adapter/console"
	"github.com/pithecene-io/xcoffee/adapter/pipe"
	"github.com/pithecene-io/xcoffee/adapter/redis"
	"github.com/pithecene-io/xcoffee/adapter/webhook"
	"github.com/pithecene-io/xcoffee/cli/config"
	"github.com/pithecene-io/xcoffee/log"
	"github.com/pithecene-io/xcoffee/policy"
)

// adapterChoice holds the resolved adapter configuration.
type adapterChoice struct {
	adapterType string
	url         string
	channel     string
	latestKey   string
	latestTTL   time.Duration
	headers     map[string]string
	timeout     time.Duration
	retries     int
}

// parseAdapterConfigWithPrecedence resolves adapter flags against cfg for
// the given adapter type. Config headers are merged first so CLI headers
// override keys they share.
func parseAdapterConfigWithPrecedence(c *cli.Context, cfg *config.Config, adapterType string) (adapterChoice, error) {
	typ, err := adapter.ParseType(adapterType)
	if err != nil {
		return adapterChoice{}, fmt.Errorf("unknown adapter type %q: must be console, pipe, redis, or webhook", adapterType)
	}

	ac := adapterChoice{
		adapterType: string(typ),
		url:         resolveString(c, "adapter-url", configVal(cfg, func(c *config.Config) string { return c.Adapter.URL })),
		channel:     resolveString(c, "adapter-channel", configVal(cfg, func(c *config.Config) string { return c.Adapter.Channel })),
		latestKey:   resolveString(c, "adapter-latest-key", configVal(cfg, func(c *config.Config) string { return c.Adapter.LatestFrameKey })),
		latestTTL:   resolveDuration(c, "adapter-latest-ttl", configVal(cfg, func(c *config.Config) time.Duration { return c.Adapter.LatestFrameTTL.Duration })),
		timeout:     resolveDuration(c, "adapter-timeout", configVal(cfg, func(c *config.Config) time.Duration { return c.Adapter.Timeout.Duration })),
		retries:     c.Int("adapter-retries"),
		headers:     make(map[string]string),
	}
	if !c.IsSet("adapter-retries") && cfg != nil && cfg.Adapter.Retries != nil {
		ac.retries = *cfg.Adapter.Retries
	}
	if ac.retries < 0 {
		return ac, fmt.Errorf("--adapter-retries must be >= 0, got %d", ac.retries)
	}

	if cfg != nil {
		for k, v := range cfg.Adapter.Headers {
			ac.headers[k] = v
		}
	}
	for _, h := range c.StringSlice("adapter-header") {
		k, v, ok := strings.Cut(h, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return ac, fmt.Errorf("invalid --adapter-header %q: expected key=value", h)
		}
		ac.headers[strings.TrimSpace(k)] = v
	}

	switch typ {
	case adapter.TypeWebhook:
		if ac.url == "" {
			return ac, fmt.Errorf("--adapter-url is required when --adapter=webhook")
		}
	case adapter.TypeRedis:
		if ac.url == "" {
			return ac, fmt.Errorf("--adapter-url is required when --adapter=redis")
		}
	}
	return ac, nil
}

// buildAdapter constructs the adapter for ac. Console and pipe adapters
// write to out.
func buildAdapter(ac adapterChoice, out io.Writer) (adapter.Adapter, error) {
	switch adapter.Type(ac.adapterType) {
	case adapter.TypeConsole:
		return console.New(out)
	case adapter.TypePipe:
		// The pipe adapter closes closable writers; stdout stays open.
		return pipe.New(struct{ io.Writer }{out})
	case adapter.TypeRedis:
		return redis.New(redis.Config{
			URL:            ac.url,
			Channel:        ac.channel,
			LatestFrameKey: ac.latestKey,
			LatestFrameTTL: ac.latestTTL,
			Timeout:        ac.timeout,
			Retries:        ac.retries,
		})
	case adapter.TypeWebhook:
		return webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type %q", ac.adapterType)
	}
}

// buildPolicy wraps sink in the named delivery policy.
func buildPolicy(name policy.Name, sink policy.Sink, logger *log.Logger) (policy.Policy, error) {
	switch name {
	case policy.NameStrict:
		return policy.NewStrictPolicy(sink), nil
	case policy.NameLatest:
		return policy.NewLatestPolicy(sink, policy.LatestConfig{Logger: logger}), nil
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}
}
