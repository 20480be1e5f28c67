// Package gateway provides the relay-facing client that UI-side callers use
// to submit generation tasks and check their status. The relay is a separate
// network hop from the provider, so the gateway classifies transport
// failures, protocol failures and business failures distinctly.
package gateway

import "github.com/cheaf/cheaf-api/internal/sign"

// PollState is the caller-facing outcome of a status check.
type PollState string

const (
	// PollRunning indicates the task has not reached a terminal state.
	PollRunning PollState = "running"
	// PollCompleted indicates the task finished with a playable video.
	PollCompleted PollState = "completed"
	// PollFailed indicates the task failed.
	PollFailed PollState = "failed"
)

// PollResult is the outcome of one status check.
type PollResult struct {
	// State is the task outcome.
	State PollState
	// VideoURL is set only when State is PollCompleted.
	VideoURL string
	// Detail is set only when State is PollFailed.
	Detail string
}

// generateRequest is the relay wire body for submitting a task. Absent
// credentials are omitted entirely so the relay falls back to its own
// defaults.
type generateRequest struct {
	Prompt string `json:"prompt"`
	sign.Credentials
	Ratio string `json:"ratio"`
}

// statusRequest is the relay wire body for checking a task.
type statusRequest struct {
	TaskID string `json:"task_id"`
	sign.Credentials
}

// generateResponse is the relay response for a submitted task.
type generateResponse struct {
	TaskID string `json:"task_id"`
}

// statusResponse is the relay response for a status check.
type statusResponse struct {
	Status   string `json:"status"`
	VideoURL string `json:"video_url,omitempty"`
	Detail   string `json:"detail,omitempty"`
}
