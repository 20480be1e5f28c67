package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/cheaf/cheaf-api/internal/sign"
)

// defaultRatio is the aspect ratio sent when the caller configures none.
const defaultRatio = "16:9"

// Static errors for gateway operations.
var (
	// ErrMissingEndpoint is returned when no relay endpoint is configured.
	// It is detected before any network attempt.
	ErrMissingEndpoint = errors.New("gateway: relay endpoint is not configured")
	// ErrEndpointOutdated is returned when the relay responds 404, which
	// signals the deployed relay predates this API version.
	ErrEndpointOutdated = errors.New("gateway: relay endpoint is outdated")
	// ErrTaskIDRequired is returned when Poll is called without a task ID.
	ErrTaskIDRequired = errors.New("gateway: task ID is required")
	// ErrNoTaskID is returned when the relay accepts a submit but the
	// response carries no task ID.
	ErrNoTaskID = errors.New("gateway: submit succeeded but no task ID returned")
)

// TransportError indicates the network layer could not reach the relay at
// all. Submit surfaces it; Poll swallows it and reports PollRunning.
type TransportError struct {
	err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway: relay unreachable: %v", e.err)
}

func (e *TransportError) Unwrap() error {
	return e.err
}

// RemoteError is a structured non-success response from the relay. Detail is
// preserved verbatim for display.
type RemoteError struct {
	StatusCode int
	Detail     string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("gateway: relay returned status %d: %s", e.StatusCode, e.Detail)
}

// Client defines the relay operations UI-side callers depend on.
type Client interface {
	// Submit sends a generation request to the relay and returns the
	// provider task ID.
	Submit(ctx context.Context, prompt string) (taskID string, err error)

	// Poll checks the status of a submitted task.
	Poll(ctx context.Context, taskID string) (PollResult, error)
}

// HTTPClient is the HTTP implementation of the gateway Client interface.
type HTTPClient struct {
	endpoint   string
	creds      sign.Credentials
	ratio      string
	httpClient *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithCredentials sets credential overrides sent with every call. Absent
// credentials are omitted from the wire body so the relay falls back to its
// own server-side defaults.
func WithCredentials(creds sign.Credentials) ClientOption {
	return func(hc *HTTPClient) {
		hc.creds = creds
	}
}

// WithRatio sets the aspect ratio sent with every submit.
func WithRatio(ratio string) ClientOption {
	return func(hc *HTTPClient) {
		hc.ratio = ratio
	}
}

// NewClient creates a gateway client for the given relay endpoint. An empty
// endpoint is allowed here since it is user-supplied configuration; Submit
// and Poll fail with ErrMissingEndpoint before touching the network.
func NewClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		ratio:      defaultRatio,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Submit sends a generation request to the relay and returns the provider
// task ID. It fails with ErrMissingEndpoint before any network attempt when
// no endpoint is configured, ErrEndpointOutdated on a 404, *TransportError
// when the relay is unreachable, and *RemoteError for any other non-2xx
// response.
func (c *HTTPClient) Submit(ctx context.Context, prompt string) (string, error) {
	if c.endpoint == "" {
		return "", ErrMissingEndpoint
	}

	body, err := json.Marshal(generateRequest{
		Prompt:      prompt,
		Credentials: c.creds,
		Ratio:       c.ratio,
	})
	if err != nil {
		return "", fmt.Errorf("gateway: marshal request: %w", err)
	}

	respBody, err := c.post(ctx, "/api/generate_video", body)
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("gateway: unmarshal response: %w", err)
	}
	if resp.TaskID == "" {
		return "", ErrNoTaskID
	}

	return resp.TaskID, nil
}

// Poll checks the status of a task. A transport failure during a poll is
// swallowed and reported as PollRunning so a momentary network blip never
// kills a running job. ErrMissingEndpoint and ErrEndpointOutdated are not
// transient and still surface.
func (c *HTTPClient) Poll(ctx context.Context, taskID string) (PollResult, error) {
	if taskID == "" {
		return PollResult{}, ErrTaskIDRequired
	}
	if c.endpoint == "" {
		return PollResult{}, ErrMissingEndpoint
	}

	body, err := json.Marshal(statusRequest{
		TaskID:      taskID,
		Credentials: c.creds,
	})
	if err != nil {
		return PollResult{}, fmt.Errorf("gateway: marshal request: %w", err)
	}

	respBody, err := c.post(ctx, "/api/check_status", body)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return PollResult{State: PollRunning}, nil
		}
		return PollResult{}, err
	}

	var resp statusResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return PollResult{}, fmt.Errorf("gateway: unmarshal response: %w", err)
	}

	return mapStatus(resp), nil
}

// mapStatus converts a relay status response into a PollResult. A success
// without a playable URL is a failure, never a silent completion.
func mapStatus(resp statusResponse) PollResult {
	switch resp.Status {
	case "succeeded", "completed":
		if resp.VideoURL == "" {
			return PollResult{State: PollFailed, Detail: "generation succeeded but no video URL was returned"}
		}
		return PollResult{State: PollCompleted, VideoURL: resp.VideoURL}
	case "failed":
		detail := resp.Detail
		if detail == "" {
			detail = "generation failed"
		}
		return PollResult{State: PollFailed, Detail: detail}
	default:
		return PollResult{State: PollRunning}
	}
}

// post issues one POST to the relay and classifies the failure modes.
func (c *HTTPClient) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{err: err}
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrEndpointOutdated
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Detail: remoteDetail(respBody)}
	}

	return respBody, nil
}

// remoteDetail extracts a display-ready error message from a relay error
// body. Relay versions disagree on the field name, so the known ones are
// probed in priority order before falling back to the raw body.
func remoteDetail(body []byte) string {
	for _, path := range []string{"detail", "error", "message"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return strings.TrimSpace(string(body))
}
