package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// DefaultTimeout bounds one sandbox execution, dial included.
const DefaultTimeout = 10 * time.Second

// ClientConfig holds sandbox service connection settings.
type ClientConfig struct {
	URL     string        // websocket endpoint, e.g. ws://sandbox:9000/run
	Token   string        // optional bearer token
	Timeout time.Duration // per-execution deadline (default 10s)
}

// Client is a websocket Runner implementation. Each Run opens a fresh
// connection; the sandbox protocol is one job request, one verdict reply.
type Client struct {
	url     string
	token   string
	timeout time.Duration
}

// NewClient creates a sandbox client; a zero Timeout gets the default.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:     cfg.URL,
		token:   cfg.Token,
		timeout: timeout,
	}
}

type runReply struct {
	Passed int    `json:"passed"`
	Total  int    `json:"total"`
	Error  string `json:"error,omitempty"`
}

// Run submits the job and waits for the verdict. Deadline expiry maps to
// ErrExecutionTimeout.
func (c *Client) Run(ctx context.Context, job Job) (Outcome, error) {
	if c.url == "" {
		return Outcome{}, fmt.Errorf("sandbox URL is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := &websocket.DialOptions{}
	if c.token != "" {
		opts.HTTPHeader = http.Header{"Authorization": {"Bearer " + c.token}}
	}

	conn, _, err := websocket.Dial(ctx, c.url, opts)
	if err != nil {
		return Outcome{}, c.mapErr(ctx, fmt.Errorf("dial sandbox: %w", err))
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := wsjson.Write(ctx, conn, job); err != nil {
		return Outcome{}, c.mapErr(ctx, fmt.Errorf("send job: %w", err))
	}

	var reply runReply
	if err := wsjson.Read(ctx, conn, &reply); err != nil {
		return Outcome{}, c.mapErr(ctx, fmt.Errorf("read verdict: %w", err))
	}

	if reply.Error != "" {
		return Outcome{}, fmt.Errorf("sandbox: %s", reply.Error)
	}

	slog.Debug("sandbox run finished",
		"language", job.Language,
		"passed", reply.Passed,
		"total", reply.Total,
	)
	return Outcome{Passed: reply.Passed, Total: reply.Total}, nil
}

func (c *Client) mapErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrExecutionTimeout
	}
	return err
}
