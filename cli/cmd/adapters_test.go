package cmd

import (
	"bytes"
	"context"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/xcoffee/adapter/console"
	"github.com/pithecene-io/xcoffee/adapter/pipe"
	"github.com/pithecene-io/xcoffee/adapter/redis"
	"github.com/pithecene-io/xcoffee/adapter/webhook"
	"github.com/pithecene-io/xcoffee/cli/config"
	"github.com/pithecene-io/xcoffee/ipc"
	"github.com/pithecene-io/xcoffee/log"
	"github.com/pithecene-io/xcoffee/policy"
	"github.com/pithecene-io/xcoffee/types"
)

// newAdapterTestContext builds a CLI context with adapter-related flags.
// String slice flags need the full app.Run path; header tests use config
// headers or TestParseAdapterConfig_MalformedHeader instead.
func newAdapterTestContext(t *testing.T, flags map[string]string) *cli.Context {
	t.Helper()
	app := cli.NewApp()
	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: "adapter-url"},
		&cli.StringFlag{Name: "adapter-channel"},
		&cli.StringFlag{Name: "adapter-latest-key"},
		&cli.DurationFlag{Name: "adapter-latest-ttl"},
		&cli.DurationFlag{Name: "adapter-timeout", Value: 10 * time.Second},
		&cli.IntFlag{Name: "adapter-retries", Value: 3},
		&cli.StringSliceFlag{Name: "adapter-header"},
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("adapter-url", "", "")
	fs.String("adapter-channel", "", "")
	fs.String("adapter-latest-key", "", "")
	fs.Duration("adapter-latest-ttl", 0, "")
	fs.Duration("adapter-timeout", 10*time.Second, "")
	fs.Int("adapter-retries", 3, "")

	for name, val := range flags {
		if err := fs.Set(name, val); err != nil {
			t.Fatalf("failed to set flag %s: %v", name, err)
		}
	}

	return cli.NewContext(app, fs, nil)
}

func TestParseAdapterConfig_ConsoleNeedsNothing(t *testing.T) {
	c := newAdapterTestContext(t, nil)

	ac, err := parseAdapterConfigWithPrecedence(c, nil, "console")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ac.adapterType != "console" {
		t.Errorf("adapterType = %q, want console", ac.adapterType)
	}
	if ac.retries != 3 || ac.timeout != 10*time.Second {
		t.Errorf("defaults = %d/%v, want 3/10s", ac.retries, ac.timeout)
	}
}

func TestParseAdapterConfig_WebhookValid(t *testing.T) {
	c := newAdapterTestContext(t, map[string]string{
		"adapter-url": "https://hooks.example.com/xcoffee",
	})

	ac, err := parseAdapterConfigWithPrecedence(c, nil, "webhook")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ac.adapterType != "webhook" {
		t.Errorf("adapterType = %q, want %q", ac.adapterType, "webhook")
	}
	if ac.url != "https://hooks.example.com/xcoffee" {
		t.Errorf("url = %q", ac.url)
	}
}

func TestParseAdapterConfig_MissingURL(t *testing.T) {
	for _, typ := range []string{"webhook", "redis"} {
		t.Run(typ, func(t *testing.T) {
			c := newAdapterTestContext(t, nil)
			_, err := parseAdapterConfigWithPrecedence(c, nil, typ)
			if err == nil {
				t.Fatal("expected error for missing URL")
			}
			if !strings.Contains(err.Error(), "--adapter-url is required when --adapter="+typ) {
				t.Errorf("error should mention URL requirement, got: %v", err)
			}
		})
	}
}

func TestParseAdapterConfig_RedisValid(t *testing.T) {
	c := newAdapterTestContext(t, map[string]string{
		"adapter-url":        "redis://localhost:6379",
		"adapter-channel":    "cams:kitchen",
		"adapter-latest-key": "cams:kitchen:latest",
		"adapter-latest-ttl": "30s",
	})

	ac, err := parseAdapterConfigWithPrecedence(c, nil, "redis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ac.channel != "cams:kitchen" {
		t.Errorf("channel = %q", ac.channel)
	}
	if ac.latestKey != "cams:kitchen:latest" || ac.latestTTL != 30*time.Second {
		t.Errorf("latest = %q/%v", ac.latestKey, ac.latestTTL)
	}
}

func TestParseAdapterConfig_UnknownType(t *testing.T) {
	c := newAdapterTestContext(t, nil)

	_, err := parseAdapterConfigWithPrecedence(c, nil, "kafka")
	if err == nil {
		t.Fatal("expected error for unknown adapter type")
	}
	if !strings.Contains(err.Error(), "unknown adapter type") || !strings.Contains(err.Error(), "kafka") {
		t.Errorf("error should name the bad type, got: %v", err)
	}
}

func TestParseAdapterConfig_ConfigProvidesValues(t *testing.T) {
	c := newAdapterTestContext(t, nil)
	retries := 5
	cfg := &config.Config{
		Adapter: config.AdapterConfig{
			URL:     "https://from-config.example.com",
			Timeout: config.Duration{Duration: 2 * time.Second},
			Retries: &retries,
			Headers: map[string]string{"X-Api-Key": "secret-123"},
		},
	}

	ac, err := parseAdapterConfigWithPrecedence(c, cfg, "webhook")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ac.url != "https://from-config.example.com" {
		t.Errorf("url should come from config, got %q", ac.url)
	}
	if ac.timeout != 2*time.Second {
		t.Errorf("timeout should come from config, got %v", ac.timeout)
	}
	if ac.retries != 5 {
		t.Errorf("retries should come from config (5), got %d", ac.retries)
	}
	if ac.headers["X-Api-Key"] != "secret-123" {
		t.Errorf("config header not merged, got %v", ac.headers)
	}
}

func TestParseAdapterConfig_CLIOverridesConfig(t *testing.T) {
	c := newAdapterTestContext(t, map[string]string{
		"adapter-url":     "https://cli-url.example.com",
		"adapter-retries": "0",
	})
	retries := 5
	cfg := &config.Config{
		Adapter: config.AdapterConfig{URL: "https://config-url.example.com", Retries: &retries},
	}

	ac, err := parseAdapterConfigWithPrecedence(c, cfg, "webhook")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ac.url != "https://cli-url.example.com" {
		t.Errorf("CLI should override config URL, got %q", ac.url)
	}
	if ac.retries != 0 {
		t.Errorf("explicit --adapter-retries=0 should win, got %d", ac.retries)
	}
}

func TestParseAdapterConfig_MalformedHeader(t *testing.T) {
	app := cli.NewApp()
	app.Flags = AdapterFlags()

	var parseErr error
	app.Action = func(c *cli.Context) error {
		_, parseErr = parseAdapterConfigWithPrecedence(c, nil, "webhook")
		return nil
	}

	_ = app.Run([]string{"test",
		"--adapter-url", "https://example.com",
		"--adapter-header", "no-equals-sign",
	})

	if parseErr == nil {
		t.Fatal("expected error for malformed header")
	}
	if !strings.Contains(parseErr.Error(), "invalid --adapter-header") {
		t.Errorf("error should mention invalid header, got: %v", parseErr)
	}
	if !strings.Contains(parseErr.Error(), "key=value") {
		t.Errorf("error should suggest key=value format, got: %v", parseErr)
	}
}

func TestParseAdapterConfig_CLIHeaderOverridesConfig(t *testing.T) {
	app := cli.NewApp()
	app.Flags = AdapterFlags()
	cfg := &config.Config{
		Adapter: config.AdapterConfig{Headers: map[string]string{"Authorization": "Bearer old", "X-Cam": "kitchen"}},
	}

	var ac adapterChoice
	var parseErr error
	app.Action = func(c *cli.Context) error {
		ac, parseErr = parseAdapterConfigWithPrecedence(c, cfg, "webhook")
		return nil
	}

	_ = app.Run([]string{"test",
		"--adapter-url", "https://example.com",
		"--adapter-header", "Authorization=Bearer new",
	})

	if parseErr != nil {
		t.Fatalf("unexpected error: %v", parseErr)
	}
	if ac.headers["Authorization"] != "Bearer new" {
		t.Errorf("CLI header should win, got %q", ac.headers["Authorization"])
	}
	if ac.headers["X-Cam"] != "kitchen" {
		t.Errorf("config header should survive, got %v", ac.headers)
	}
}

func TestBuildAdapter(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name  string
		ac    adapterChoice
		check func(t *testing.T, a any)
	}{
		{
			name: "console",
			ac:   adapterChoice{adapterType: "console"},
			check: func(t *testing.T, a any) {
				if _, ok := a.(*console.Adapter); !ok {
					t.Errorf("got %T, want *console.Adapter", a)
				}
			},
		},
		{
			name: "pipe",
			ac:   adapterChoice{adapterType: "pipe"},
			check: func(t *testing.T, a any) {
				if _, ok := a.(*pipe.Adapter); !ok {
					t.Errorf("got %T, want *pipe.Adapter", a)
				}
			},
		},
		{
			name: "redis",
			ac:   adapterChoice{adapterType: "redis", url: "redis://" + mr.Addr()},
			check: func(t *testing.T, a any) {
				if _, ok := a.(*redis.Adapter); !ok {
					t.Errorf("got %T, want *redis.Adapter", a)
				}
			},
		},
		{
			name: "webhook",
			ac:   adapterChoice{adapterType: "webhook", url: "http://127.0.0.1:1/hook"},
			check: func(t *testing.T, a any) {
				if _, ok := a.(*webhook.Adapter); !ok {
					t.Errorf("got %T, want *webhook.Adapter", a)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := buildAdapter(tt.ac, &bytes.Buffer{})
			if err != nil {
				t.Fatalf("buildAdapter() error = %v", err)
			}
			defer func() { _ = a.Close() }()
			tt.check(t, a)
		})
	}

	if _, err := buildAdapter(adapterChoice{adapterType: "carrier-pigeon"}, &bytes.Buffer{}); err == nil {
		t.Error("unknown adapter type should fail")
	}
}

func TestBuildAdapter_PipeWritesDecodableEvents(t *testing.T) {
	var buf bytes.Buffer
	a, err := buildAdapter(adapterChoice{adapterType: "pipe"}, &buf)
	if err != nil {
		t.Fatalf("buildAdapter() error = %v", err)
	}

	ev := types.NewStatusEvent("Reconnecting...")
	ev.Seq = 7
	if err := a.Publish(context.Background(), &ev); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got, err := ipc.NewFrameDecoder(&buf).ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent() error = %v", err)
	}
	if got.Seq != 7 || got.Message != "Reconnecting..." {
		t.Errorf("decoded %+v", got)
	}
}

func TestBuildPolicy(t *testing.T) {
	sink := policy.NewStubSink()

	strict, err := buildPolicy(policy.NameStrict, sink, log.Nop())
	if err != nil {
		t.Fatalf("buildPolicy(strict) error = %v", err)
	}
	if _, ok := strict.(*policy.StrictPolicy); !ok {
		t.Errorf("got %T, want *policy.StrictPolicy", strict)
	}

	latest, err := buildPolicy(policy.NameLatest, policy.NewStubSink(), log.Nop())
	if err != nil {
		t.Fatalf("buildPolicy(latest) error = %v", err)
	}
	if _, ok := latest.(*policy.LatestPolicy); !ok {
		t.Errorf("got %T, want *policy.LatestPolicy", latest)
	}
	_ = latest.Close()

	if _, err := buildPolicy("fifo", sink, log.Nop()); err == nil {
		t.Error("unknown policy should fail")
	}
}
