package volc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cheaf/cheaf-api/internal/sign"
)

// Static errors for provider client operations.
var (
	// ErrTaskIDRequired is returned when the task id is not provided.
	ErrTaskIDRequired = errors.New("volc: task id is required")
	// ErrNoTaskID is returned when a submit response contains no task id.
	ErrNoTaskID = errors.New("volc: submit succeeded but no task id returned")
)

// RemoteError is a structured error returned by the provider. Detail is the
// provider's own message, preserved verbatim for display.
type RemoteError struct {
	StatusCode int
	Detail     string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("volc: remote error (status %d): %s", e.StatusCode, e.Detail)
}

// Client defines the operations against the video generation provider.
type Client interface {
	// SubmitTask sends a generation job and returns the provider task id.
	// The id is an opaque token used only to fetch results.
	SubmitTask(ctx context.Context, req GenerationRequest) (taskID string, err error)

	// FetchResult checks a task and returns the normalized outcome.
	FetchResult(ctx context.Context, taskID string, creds sign.Credentials) (Result, error)
}

// HTTPClient is the HTTP implementation of the Client interface. Every call
// is signed; missing credentials fail before any network attempt.
type HTTPClient struct {
	baseURL    string
	host       string
	httpClient *http.Client
	now        func() time.Time
	signer     *sign.Signer
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL overrides the provider base URL. The signed Host header keeps
// the canonical provider host unless WithHost is also used.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = url
	}
}

// WithHost overrides the host used for signing and the Host header.
func WithHost(host string) ClientOption {
	return func(hc *HTTPClient) {
		hc.host = host
	}
}

// WithClock sets the time source for signing contexts.
func WithClock(now func() time.Time) ClientOption {
	return func(hc *HTTPClient) {
		hc.now = now
	}
}

// NewClient creates a new provider HTTP client.
func NewClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    "https://" + DefaultHost,
		host:       DefaultHost,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.signer = sign.New(c.host, Region, Service, sign.WithClock(c.now))
	return c
}

// SubmitTask sends a generation job and returns the provider task id.
func (c *HTTPClient) SubmitTask(ctx context.Context, req GenerationRequest) (string, error) {
	ratio := req.Ratio
	if ratio == "" {
		ratio = DefaultRatio
	}

	body, err := json.Marshal(submitBody{
		ReqKey:       reqKey,
		Prompt:       req.Prompt,
		Ratio:        ratio,
		ModelVersion: modelVersion,
	})
	if err != nil {
		return "", fmt.Errorf("volc: marshal request: %w", err)
	}

	respBody, err := c.do(ctx, actionSubmit, req.Credentials, body)
	if err != nil {
		return "", err
	}

	taskID := extractTaskID(respBody)
	if taskID == "" {
		return "", ErrNoTaskID
	}
	return taskID, nil
}

// FetchResult checks a task and returns the normalized outcome.
func (c *HTTPClient) FetchResult(ctx context.Context, taskID string, creds sign.Credentials) (Result, error) {
	if taskID == "" {
		return Result{}, ErrTaskIDRequired
	}

	body, err := json.Marshal(resultBody{TaskID: taskID})
	if err != nil {
		return Result{}, fmt.Errorf("volc: marshal request: %w", err)
	}

	respBody, err := c.do(ctx, actionResult, creds, body)
	if err != nil {
		return Result{}, err
	}

	return normalizeResult(respBody), nil
}

// do signs and performs one provider call, returning the raw response body.
// Non-2xx responses become a RemoteError carrying the provider's detail.
func (c *HTTPClient) do(ctx context.Context, action string, creds sign.Credentials, body []byte) ([]byte, error) {
	query := map[string]string{"Action": action, "Version": Version}

	sig, err := c.signer.Sign(creds, http.MethodPost, "/", query, body)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/?Action=%s&Version=%s", c.baseURL, action, Version)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("volc: create request: %w", err)
	}

	// The Host header is covered by the signature.
	req.Host = c.host
	req.Header.Set("Content-Type", sign.ContentType)
	req.Header.Set("X-Date", sig.Date)
	req.Header.Set("X-Content-Sha256", sig.ContentHash)
	req.Header.Set("Authorization", sig.Authorization)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("volc: %s request failed: %w", action, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("volc: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Detail: errorDetail(respBody)}
	}

	return respBody, nil
}
