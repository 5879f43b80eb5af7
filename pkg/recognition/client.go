package recognition

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/teslashibe/go-spellcam/internal/httpc"
	"github.com/teslashibe/go-spellcam/pkg/camera"
)

// maxErrorBody bounds how much of a failed response is kept in APIError.
const maxErrorBody = 256

// Client talks to the recognition service.
// It is safe for concurrent use; the feedback loop keeps at most one Submit in flight.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a new recognition client.
func NewClient(opts ...Option) *Client {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewSessionClient(cfg.Timeout)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    client,
		logger:  logger.With("component", "recognition.client"),
	}
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Submit sends one encoded frame and returns the recognition result.
func (c *Client) Submit(ctx context.Context, frame camera.EncodedImage) (*Result, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}

	start := time.Now()
	var result Result
	if err := c.post(ctx, PathVideoFeed, FrameRequest{Image: frame.DataURL()}, &result); err != nil {
		return nil, err
	}

	c.logger.Debug("frame recognized",
		"label", result.Label,
		"text_len", len(result.Text),
		"bytes", len(frame.Data),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return &result, nil
}

// Clear asks the service to reset the captured text.
// A response without status "success" returns ErrClearRejected.
func (c *Client) Clear(ctx context.Context) (Status, error) {
	var status Status
	if err := c.post(ctx, PathClearText, nil, &status); err != nil {
		return status, err
	}
	if !status.OK() {
		return status, fmt.Errorf("%w: status %q", ErrClearRejected, status.Status)
	}
	return status, nil
}

// Flip reports the preview mirror state to the service.
// The response body is not interpreted.
func (c *Client) Flip(ctx context.Context, flip bool) error {
	return c.post(ctx, PathFlipCamera, FlipRequest{Flip: flip}, nil)
}

// post sends a JSON body (or none) and decodes the JSON response into out (if non-nil).
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return &TransportError{Endpoint: path, Err: fmt.Errorf("marshal request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return &TransportError{Endpoint: path, Err: fmt.Errorf("create request: %w", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Endpoint: path, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(data)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return &APIError{StatusCode: resp.StatusCode, Endpoint: path, Message: strings.TrimSpace(msg)}
	}

	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return &TransportError{Endpoint: path, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	return nil
}
