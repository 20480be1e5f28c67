// Package job tracks the video-generation lifecycle of recipe steps.
// Each step moves through a small state machine (idle, generating,
// completed, failed) driven by a Coordinator that submits prompts to
// the relay and polls until a terminal result arrives. Every submit
// starts a new generation; results carrying a superseded generation
// number are discarded at the transition boundary.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/cheaf/cheaf-api/internal/job/id"
)

// Status represents the current state of a step's video generation.
type Status string

const (
	// StatusIdle indicates no generation has been requested yet.
	StatusIdle Status = "idle"
	// StatusGenerating indicates a provider task is in flight.
	StatusGenerating Status = "generating"
	// StatusCompleted indicates generation finished with a playable video.
	StatusCompleted Status = "completed"
	// StatusFailed indicates generation failed; Detail says why.
	StatusFailed Status = "failed"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("job: invalid state transition")

// validTransitions defines which state transitions are allowed.
// Terminal states are only left through an explicit retry, which moves
// the step back to generating. A generating step may move to generating
// again when a new submit supersedes the one in flight.
var validTransitions = map[Status][]Status{
	StatusIdle:       {StatusGenerating},
	StatusGenerating: {StatusGenerating, StatusCompleted, StatusFailed},
	StatusCompleted:  {StatusGenerating},
	StatusFailed:     {StatusGenerating},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Step tracks the video-generation state for a single recipe step.
// All mutations go through the transition methods, which are safe for
// concurrent use. Complete, Fail, RecordTask and RecordArchive take the
// generation number returned by Begin and report false when that
// generation has been superseded, so late poll results never clobber a
// newer attempt.
type Step struct {
	mu sync.RWMutex

	// ID is the unique identifier for this step.
	ID string
	// Prompt is the scene description sent to the provider.
	Prompt string
	// Ratio is the requested aspect ratio, for example "16:9".
	Ratio string
	// Status is the current generation state.
	Status Status
	// TaskID is the provider task handle for the active generation.
	TaskID string
	// VideoURL is the playable result once generation completes.
	VideoURL string
	// ArchiveURL is the re-hosted copy of the video, when archiving ran.
	ArchiveURL string
	// Detail explains the failure when Status is failed.
	Detail string
	// generation counts submits for this step. Each Begin bumps it and
	// invalidates all writes from earlier generations.
	generation uint64
	// CreatedAt is when the step was created.
	CreatedAt time.Time
	// UpdatedAt is when the step last changed.
	UpdatedAt time.Time
	// StartedAt is when the active generation was submitted.
	StartedAt time.Time
	// CompletedAt is when the step last reached a terminal state.
	CompletedAt time.Time
}

// NewStep creates a step in idle state with a generated ID.
func NewStep(prompt, ratio string) *Step {
	return NewStepWithID(id.Generate(), prompt, ratio)
}

// NewStepWithID creates a step in idle state with the specified ID.
// Useful for testing or when IDs are assigned externally.
func NewStepWithID(stepID, prompt, ratio string) *Step {
	now := time.Now()
	return &Step{
		ID:        stepID,
		Prompt:    prompt,
		Ratio:     ratio,
		Status:    StatusIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Begin moves the step to generating and starts a new generation,
// clearing any result or failure left by the previous one. It returns
// the new generation number, which the caller threads through
// RecordTask, Complete, Fail and RecordArchive.
func (s *Step) Begin() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !canTransition(s.Status, StatusGenerating) {
		return 0, ErrInvalidTransition
	}

	s.generation++
	s.Status = StatusGenerating
	s.TaskID = ""
	s.VideoURL = ""
	s.ArchiveURL = ""
	s.Detail = ""
	s.UpdatedAt = time.Now()
	s.StartedAt = s.UpdatedAt

	return s.generation, nil
}

// RecordTask stores the provider task handle for the given generation.
// Returns false when that generation has been superseded.
func (s *Step) RecordTask(gen uint64, taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.Status != StatusGenerating {
		return false
	}

	s.TaskID = taskID
	s.UpdatedAt = time.Now()

	return true
}

// Complete moves the step to completed and records the video URL.
// Returns false when the generation has been superseded or the step is
// not generating; the step is left untouched in that case.
func (s *Step) Complete(gen uint64, videoURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || !canTransition(s.Status, StatusCompleted) {
		return false
	}

	s.Status = StatusCompleted
	s.VideoURL = videoURL
	s.Detail = ""
	s.UpdatedAt = time.Now()
	s.CompletedAt = s.UpdatedAt

	return true
}

// Fail moves the step to failed with a human-readable detail.
// Returns false when the generation has been superseded or the step is
// not generating; the step is left untouched in that case.
func (s *Step) Fail(gen uint64, detail string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || !canTransition(s.Status, StatusFailed) {
		return false
	}

	s.Status = StatusFailed
	s.Detail = detail
	s.UpdatedAt = time.Now()
	s.CompletedAt = s.UpdatedAt

	return true
}

// RecordArchive stores the re-hosted video location for the given
// generation. Returns false when that generation has been superseded.
func (s *Step) RecordArchive(gen uint64, url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.Status != StatusCompleted {
		return false
	}

	s.ArchiveURL = url
	s.UpdatedAt = time.Now()

	return true
}

// GetStatus returns the current step status (thread-safe).
func (s *Step) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// Generation returns the current generation number (thread-safe).
func (s *Step) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// IsTerminal returns true if the step is in a terminal state.
func (s *Step) IsTerminal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// Clone creates a deep copy of the step for safe reads.
func (s *Step) Clone() *Step {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Step{
		ID:          s.ID,
		Prompt:      s.Prompt,
		Ratio:       s.Ratio,
		Status:      s.Status,
		TaskID:      s.TaskID,
		VideoURL:    s.VideoURL,
		ArchiveURL:  s.ArchiveURL,
		Detail:      s.Detail,
		generation:  s.generation,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
	}
}
