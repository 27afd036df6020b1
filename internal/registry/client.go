package registry

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Common errors.
var (
	ErrDaemonNotRunning = errors.New("session registry is not running")
	ErrTimeout          = errors.New("registry request timeout")
)

// ClientConfig configures the registry client.
type ClientConfig struct {
	SocketPath     string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		SocketPath:     DefaultSocketPath(),
		ConnectTimeout: 2 * time.Second,
		RequestTimeout: 5 * time.Second,
	}
}

// DefaultSocketPath returns the registry socket path under XDG_RUNTIME_DIR.
func DefaultSocketPath() string {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = os.TempDir()
	}
	return filepath.Join(runtimeDir, "turnkeyd", "registry.sock")
}

// Client is a thin request/response client for the registry socket.
// Each request uses a fresh connection; the registry is a local unix
// socket and the hotkey path issues at most a handful of requests per
// keypress.
type Client struct {
	config ClientConfig

	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
}

// NewClient creates a registry client.
func NewClient(config ClientConfig) *Client {
	if config.SocketPath == "" {
		config.SocketPath = DefaultSocketPath()
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 2 * time.Second
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 5 * time.Second
	}
	return &Client{config: config}
}

// ListSessions returns the registry's current session snapshot.
func (c *Client) ListSessions(ctx context.Context) ([]SessionDescriptor, error) {
	resp, err := c.roundTrip(ctx, request{Op: opListSessions})
	if err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// FetchTurn fetches the most recent captured turn of a session.
func (c *Client) FetchTurn(ctx context.Context, session string) (*Turn, error) {
	resp, err := c.roundTrip(ctx, request{Op: opFetchTurn, Session: session})
	if err != nil {
		return nil, err
	}
	if resp.Turn == nil {
		return nil, fmt.Errorf("registry returned no turn for session %s", session)
	}
	return resp.Turn, nil
}

// PasteTurn asks the registry to inject the last captured turn into a
// session's terminal. Injection mechanics belong to the registry.
func (c *Client) PasteTurn(ctx context.Context, session string) error {
	_, err := c.roundTrip(ctx, request{Op: opPasteTurn, Session: session})
	return err
}

// roundTrip sends one request and reads one line-delimited JSON reply.
func (c *Client) roundTrip(ctx context.Context, req request) (*response, error) {
	dialer := net.Dialer{Timeout: c.config.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.config.SocketPath)
	if err != nil {
		// A missing socket and a stale socket with no listener both
		// mean the same thing to callers.
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
			return nil, ErrDaemonNotRunning
		}
		return nil, fmt.Errorf("connect registry: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.config.RequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	payload = append(payload, '\n')
	if _, err := conn.Write(payload); err != nil {
		return nil, wrapTimeout(err, "write request")
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, wrapTimeout(err, "read response")
	}

	if err := c.validate(line); err != nil {
		return nil, fmt.Errorf("malformed registry response: %w", err)
	}

	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !resp.Ok {
		return nil, fmt.Errorf("registry error: %s", resp.Error)
	}
	return &resp, nil
}

// validate checks a raw reply against the embedded response schema.
func (c *Client) validate(raw []byte) error {
	c.schemaOnce.Do(func() {
		c.schema, c.schemaErr = jsonschema.CompileString("registry-response.schema.json", responseSchema)
	})
	if c.schemaErr != nil {
		return c.schemaErr
	}

	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return err
	}
	return c.schema.Validate(instance)
}

func wrapTimeout(err error, op string) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ErrTimeout
	}
	return fmt.Errorf("%s: %w", op, err)
}
