// Package server provides the HTTP relay that browsers and the CLI call
// instead of signing provider requests themselves. It includes handlers,
// middleware, routes, and DTOs separated from domain types.
package server

// GenerateVideoRequest is the HTTP request body for submitting a generation task.
type GenerateVideoRequest struct {
	// Prompt is the scene description forwarded to the provider.
	Prompt string `json:"prompt" validate:"required"`
	// AccessKey optionally overrides the server's provider access key.
	AccessKey string `json:"access_key,omitempty"`
	// SecretKey optionally overrides the server's provider secret key.
	SecretKey string `json:"secret_key,omitempty"`
	// Ratio is the requested aspect ratio. Defaults to 16:9.
	Ratio string `json:"ratio,omitempty"`
}

// GenerateVideoResponse is the HTTP response after submitting a task.
type GenerateVideoResponse struct {
	// TaskID is the provider handle for the submitted task.
	TaskID string `json:"task_id"`
}

// CheckStatusRequest is the HTTP request body for checking a submitted task.
type CheckStatusRequest struct {
	// TaskID is the provider handle returned by generate_video.
	TaskID string `json:"task_id" validate:"required"`
	// AccessKey optionally overrides the server's provider access key.
	AccessKey string `json:"access_key,omitempty"`
	// SecretKey optionally overrides the server's provider secret key.
	SecretKey string `json:"secret_key,omitempty"`
}

// CheckStatusResponse is the HTTP response for a status check.
type CheckStatusResponse struct {
	// Status is the normalized task status: running, succeeded or failed.
	Status string `json:"status"`
	// VideoURL is the playable result, set when Status is succeeded.
	VideoURL string `json:"video_url,omitempty"`
	// Detail is the failure explanation, set when Status is failed.
	Detail string `json:"detail,omitempty"`
}

// RootResponse identifies the running service and its API version.
// Clients match on Version to detect stale deployments.
type RootResponse struct {
	// Status is the identity banner.
	Status string `json:"status"`
	// Version is the relay API version.
	Version string `json:"version"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code,omitempty"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
