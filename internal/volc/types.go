// Package volc provides the HTTP client for the Volcengine visual service
// (Jimeng text-to-video generation).
package volc

import "github.com/cheaf/cheaf-api/internal/sign"

// Provider constants for the visual generation service. Action and Version
// query parameters select the operation on the single processing endpoint.
const (
	// DefaultHost is the provider API host.
	DefaultHost = "visual.volcengineapi.com"
	// Region is the provider region used in the credential scope.
	Region = "cn-north-1"
	// Service is the service name used in the credential scope.
	Service = "cv"
	// Version is the API version supporting video generation.
	Version = "2022-08-31"
	// DefaultRatio is the aspect ratio used when a request does not set one.
	DefaultRatio = "16:9"

	actionSubmit = "CVProcess"
	actionResult = "CVProcessResult"

	reqKey       = "video_generation"
	modelVersion = "v1.3"
)

// Status is the canonical outcome of a result fetch. The provider's
// vocabulary is inconsistent across versions; FetchResult always reports one
// of these three values.
type Status string

const (
	// StatusRunning indicates the task has not reached a terminal state.
	StatusRunning Status = "running"
	// StatusSucceeded indicates the task finished and a video URL is available.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the task failed or returned an unusable result.
	StatusFailed Status = "failed"
)

// GenerationRequest describes one video generation job.
type GenerationRequest struct {
	// Prompt is the scene description sent to the model.
	Prompt string
	// Ratio is the aspect ratio (for example "16:9"). Defaults to DefaultRatio.
	Ratio string
	// Credentials signs the call. Required.
	Credentials sign.Credentials
}

// Result is the normalized outcome of FetchResult.
type Result struct {
	// Status is the canonical task outcome.
	Status Status
	// VideoURL is the playable result, set only when Status is StatusSucceeded.
	VideoURL string
	// Detail is the failure description, set only when Status is StatusFailed.
	Detail string
}

// submitBody is the wire body for the CVProcess action.
type submitBody struct {
	ReqKey       string `json:"req_key"`
	Prompt       string `json:"prompt"`
	Ratio        string `json:"ratio"`
	ModelVersion string `json:"model_version"`
}

// resultBody is the wire body for the CVProcessResult action.
type resultBody struct {
	TaskID string `json:"task_id"`
}
