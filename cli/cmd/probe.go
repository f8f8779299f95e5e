package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/xcoffee/cli/render"
	"github.com/pithecene-io/xcoffee/mjpeg"
	"github.com/pithecene-io/xcoffee/stream"
)

// defaultProbeTimeout bounds a probe, first frame included.
const defaultProbeTimeout = 10 * time.Second

// ProbeResponse is the result of a single connection attempt.
type ProbeResponse struct {
	Endpoint    string        `json:"endpoint" yaml:"endpoint"`
	OK          bool          `json:"ok" yaml:"ok"`
	Status      string        `json:"status" yaml:"status"`
	ErrorKind   string        `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	StatusCode  int           `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	ContentType string        `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Boundary    string        `json:"boundary,omitempty" yaml:"boundary,omitempty"`
	ConnectTime time.Duration `json:"connect_time" yaml:"connect_time"`
	FrameBytes  int           `json:"frame_bytes,omitempty" yaml:"frame_bytes,omitempty"`
	FrameTime   time.Duration `json:"frame_time,omitempty" yaml:"frame_time,omitempty"`
	FrameError  string        `json:"frame_error,omitempty" yaml:"frame_error,omitempty"`
	// PartsDiscarded counts malformed parts skipped before the first frame.
	PartsDiscarded int `json:"parts_discarded,omitempty" yaml:"parts_discarded,omitempty"`
}

// ProbeCommand returns the probe command.
// Probe makes exactly one connection attempt, never reconnects, and reports
// what the server negotiated.
func ProbeCommand() *cli.Command {
	flags := StreamFlags()
	flags = append(flags, ReadOnlyFlags()...)
	flags = append(flags,
		&cli.BoolFlag{
			Name:  "frame",
			Usage: "Also wait for the first frame and report its size and latency",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Overall probe timeout",
			Value: defaultProbeTimeout,
		},
	)

	return &cli.Command{
		Name:   "probe",
		Usage:  "Make one connection attempt and report the negotiated stream",
		Flags:  flags,
		Action: probeAction,
	}
}

func probeAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ss, err := resolveStreamSettings(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	resp := probe(ctx, stream.NewConnector(nil), ss, c.Bool("frame"))
	if err := r.Render(resp); err != nil {
		return err
	}
	if !resp.OK {
		return cli.Exit("", exitFailure)
	}
	return nil
}

// probe performs one connection attempt with opener and, when wantFrame is
// set, reads until the first frame is demultiplexed.
func probe(ctx context.Context, opener stream.Opener, ss streamSettings, wantFrame bool) ProbeResponse {
	resp := ProbeResponse{Endpoint: ss.endpoint}

	start := time.Now()
	conn, err := opener.Open(ctx, ss.endpoint)
	resp.ConnectTime = time.Since(start).Round(time.Millisecond)
	if err != nil {
		resp.Status = stream.StatusText(err)
		resp.ErrorKind = string(stream.ConnectErrorKindOf(err))
		var ce *stream.ConnectError
		if errors.As(err, &ce) {
			resp.StatusCode = ce.StatusCode
		}
		return resp
	}
	defer func() { _ = conn.Close() }()

	resp.OK = true
	resp.Status = stream.StatusConnected
	resp.ContentType = conn.ContentType
	resp.Boundary = string(conn.Boundary)

	if !wantFrame {
		return resp
	}

	size, discarded, err := readFirstFrame(conn, ss)
	resp.FrameTime = time.Since(start).Round(time.Millisecond)
	resp.PartsDiscarded = discarded
	if err != nil {
		resp.OK = false
		resp.FrameError = err.Error()
		return resp
	}
	resp.FrameBytes = size
	return resp
}

// readFirstFrame feeds conn into a Demuxer until a frame is complete. It
// returns the frame size and the number of malformed parts skipped.
func readFirstFrame(conn *stream.Conn, ss streamSettings) (int, int, error) {
	dm := mjpeg.NewDemuxer(conn.Boundary)
	chunk := make([]byte, ss.readSize)
	for {
		if frame, ok := dm.Next(); ok {
			return len(frame), dm.Discarded(), nil
		}
		if dm.Buffered() > ss.maxBufferBytes {
			return 0, dm.Discarded(), fmt.Errorf("%w (%d bytes)", stream.ErrBufferOverflow, ss.maxBufferBytes)
		}
		n, err := conn.Read(chunk)
		if n > 0 {
			_, _ = dm.Write(chunk[:n])
			continue
		}
		if errors.Is(err, io.EOF) {
			return 0, dm.Discarded(), errors.New("stream ended before the first frame")
		}
		if err != nil {
			return 0, dm.Discarded(), err
		}
	}
}
