package stream

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pithecene-io/xcoffee/iox"
	"github.com/pithecene-io/xcoffee/types"
)

// boundaryAttr is the Content-Type attribute carrying the multipart boundary.
const boundaryAttr = "boundary="

// Conn is one established multipart stream.
// The body is read by a single goroutine; Close may be called from any.
type Conn struct {
	// ID uniquely identifies the connection within the process.
	ID string
	// Boundary is the full delimiter token, "--" followed by the attribute value.
	Boundary []byte
	// ContentType is the raw Content-Type header of the response.
	ContentType string

	body io.ReadCloser
}

// NewConn wraps an already-negotiated body. Connector.Open is the usual way
// to obtain a Conn.
func NewConn(body io.ReadCloser, boundary []byte) *Conn {
	return &Conn{ID: uuid.NewString(), Boundary: boundary, body: body}
}

// Read reads the next chunk of the body.
func (c *Conn) Read(p []byte) (int, error) {
	return c.body.Read(p)
}

// Close releases the underlying HTTP response.
func (c *Conn) Close() error {
	if c == nil || c.body == nil {
		return nil
	}
	return c.body.Close()
}

// Opener establishes multipart stream connections.
type Opener interface {
	Open(ctx context.Context, endpoint string) (*Conn, error)
}

// Connector opens connections over HTTP.
type Connector struct {
	client    *http.Client
	userAgent string
}

// NewConnector creates a Connector. A nil client uses a client without an
// overall timeout, since the response body is read for as long as the
// stream lives.
func NewConnector(client *http.Client) *Connector {
	if client == nil {
		client = &http.Client{}
	}
	return &Connector{
		client:    client,
		userAgent: "xcoffee/" + types.Version,
	}
}

// Open issues a GET to endpoint and negotiates the multipart boundary.
// Every failure is returned as a *ConnectError. The body stays bound to ctx:
// cancelling ctx aborts any pending Read.
func (c *Connector) Open(ctx context.Context, endpoint string) (*Conn, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ConnectError{Kind: ConnectTransport, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ConnectError{Kind: ConnectTransport, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		iox.DiscardClose(resp.Body)
		return nil, &ConnectError{Kind: ConnectBadStatus, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		iox.DiscardClose(resp.Body)
		return nil, &ConnectError{Kind: ConnectNoContentType}
	}

	boundary, err := ParseBoundary(contentType)
	if err != nil {
		iox.DiscardClose(resp.Body)
		return nil, err
	}

	return &Conn{
		ID:          uuid.NewString(),
		Boundary:    boundary,
		ContentType: contentType,
		body:        resp.Body,
	}, nil
}

// ParseBoundary extracts the delimiter token from a Content-Type value.
// The header is split on ';' and the first parameter named boundary wins.
// Surrounding whitespace and quotes are trimmed from the value, and the
// result is prefixed with "--".
func ParseBoundary(contentType string) ([]byte, error) {
	for _, param := range strings.Split(contentType, ";") {
		param = strings.TrimSpace(param)
		if len(param) < len(boundaryAttr) || !strings.EqualFold(param[:len(boundaryAttr)], boundaryAttr) {
			continue
		}
		value := strings.TrimSpace(param[len(boundaryAttr):])
		value = strings.TrimSpace(strings.Trim(value, `"`))
		if value == "" {
			return nil, &ConnectError{Kind: ConnectEmptyBoundary}
		}
		return []byte("--" + value), nil
	}
	return nil, &ConnectError{Kind: ConnectNoBoundary}
}

var _ Opener = (*Connector)(nil)
