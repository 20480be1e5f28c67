package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/cheaf/cheaf-api/internal/sign"
	"github.com/cheaf/cheaf-api/internal/volc"
)

// Identity strings returned by the root endpoint. Clients match on the
// version to detect stale relay deployments.
const (
	serviceBanner  = "Cheaf Backend is running"
	serviceVersion = "1.1"
)

// Archiver re-hosts a completed video keyed by provider task ID.
type Archiver interface {
	Archive(ctx context.Context, taskID, videoURL string) (string, error)
}

// Handlers contains the HTTP handlers for the relay API.
type Handlers struct {
	provider  volc.Client
	creds     sign.Credentials
	validator *validator.Validate
	logger    *slog.Logger
	archiver  Archiver
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithDefaultCredentials sets the provider credentials used when a request
// does not carry its own.
func WithDefaultCredentials(creds sign.Credentials) HandlerOption {
	return func(h *Handlers) {
		h.creds = creds
	}
}

// WithArchiver enables background re-hosting of completed videos.
func WithArchiver(a Archiver) HandlerOption {
	return func(h *Handlers) {
		h.archiver = a
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(provider volc.Client, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		provider:  provider,
		validator: validator.New(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Root handles GET / requests. The body doubles as a deploy smoke check.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Status:  serviceBanner,
		Version: serviceVersion,
	})
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

// GenerateVideo handles POST /api/generate_video requests. It signs and
// forwards the prompt to the provider and returns the provider task ID.
func (h *Handlers) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req GenerateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	creds := h.resolveCredentials(req.AccessKey, req.SecretKey)
	if !creds.Present() {
		writeError(w, http.StatusBadRequest,
			"missing credentials: provide access_key and secret_key or configure server defaults",
			"MISSING_CREDENTIALS")
		return
	}

	ratio := req.Ratio
	if ratio == "" {
		ratio = volc.DefaultRatio
	}

	taskID, err := h.provider.SubmitTask(r.Context(), volc.GenerationRequest{
		Prompt:      req.Prompt,
		Ratio:       ratio,
		Credentials: creds,
	})
	if err != nil {
		h.writeProviderError(w, "submit task", err)
		return
	}

	h.logger.Info("task submitted",
		slog.String("task_id", taskID),
		slog.String("ratio", ratio),
	)

	writeJSON(w, http.StatusOK, GenerateVideoResponse{TaskID: taskID})
}

// CheckStatus handles POST /api/check_status requests. It fetches the task
// result from the provider and returns the normalized status.
func (h *Handlers) CheckStatus(w http.ResponseWriter, r *http.Request) {
	var req CheckStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	creds := h.resolveCredentials(req.AccessKey, req.SecretKey)
	if !creds.Present() {
		writeError(w, http.StatusBadRequest,
			"missing credentials: provide access_key and secret_key or configure server defaults",
			"MISSING_CREDENTIALS")
		return
	}

	result, err := h.provider.FetchResult(r.Context(), req.TaskID, creds)
	if err != nil {
		h.writeProviderError(w, "fetch result", err)
		return
	}

	// Re-host the finished video in the background with a detached context
	// so archiving survives the end of this request.
	if result.Status == volc.StatusSucceeded && h.archiver != nil {
		go func(ctx context.Context, taskID, videoURL string) {
			if _, archiveErr := h.archiver.Archive(ctx, taskID, videoURL); archiveErr != nil {
				h.logger.Warn("archive failed",
					slog.String("task_id", taskID),
					slog.String("error", archiveErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), req.TaskID, result.VideoURL)
	}

	writeJSON(w, http.StatusOK, CheckStatusResponse{
		Status:   string(result.Status),
		VideoURL: result.VideoURL,
		Detail:   result.Detail,
	})
}

// resolveCredentials merges request-scoped credentials with the server
// defaults, field by field, matching how the provider console treats them.
func (h *Handlers) resolveCredentials(accessKey, secretKey string) sign.Credentials {
	creds := sign.Credentials{AccessKey: accessKey, SecretKey: secretKey}
	if creds.AccessKey == "" {
		creds.AccessKey = h.creds.AccessKey
	}
	if creds.SecretKey == "" {
		creds.SecretKey = h.creds.SecretKey
	}
	return creds
}

// writeProviderError maps provider client failures onto relay responses.
// Structured provider errors pass their status and detail through verbatim;
// everything else is reported as a bad upstream.
func (h *Handlers) writeProviderError(w http.ResponseWriter, op string, err error) {
	var remoteErr *volc.RemoteError
	switch {
	case errors.As(err, &remoteErr):
		h.logger.Warn("provider rejected request",
			slog.String("op", op),
			slog.Int("status", remoteErr.StatusCode),
			slog.String("detail", remoteErr.Detail),
		)
		writeError(w, remoteErr.StatusCode, remoteErr.Detail, "PROVIDER_ERROR")
	case errors.Is(err, sign.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest,
			"missing credentials: provide access_key and secret_key or configure server defaults",
			"MISSING_CREDENTIALS")
	case errors.Is(err, volc.ErrNoTaskID):
		h.logger.Error("provider returned no task ID", slog.String("op", op))
		writeError(w, http.StatusBadGateway, "provider accepted the task but returned no task ID", "BAD_PROVIDER_RESPONSE")
	default:
		h.logger.Error("provider request failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to reach video provider", "PROVIDER_UNREACHABLE")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
