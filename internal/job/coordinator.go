package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cheaf/cheaf-api/internal/gateway"
)

// DefaultPollInterval is the delay between status checks for a running task.
const DefaultPollInterval = 3 * time.Second

// ErrClosed is returned when a generation is requested after Close.
var ErrClosed = errors.New("job: coordinator closed")

// ArchiveFunc re-hosts a completed video and returns its new location.
// The coordinator invokes it best-effort after a step completes; errors
// are logged and never change the step's state.
type ArchiveFunc func(ctx context.Context, taskID, videoURL string) (string, error)

// Coordinator drives video generation for recipe steps. It submits
// prompts through the gateway, runs one poll goroutine per active
// generation and applies results to the owning step. A new submit for a
// step cancels and supersedes any poll loop still running for it.
type Coordinator struct {
	gateway  gateway.Client
	logger   *slog.Logger
	interval time.Duration
	maxPolls int
	archive  ArchiveFunc

	steps *registry

	mu     sync.Mutex
	loops  map[string]loopRef
	closed bool
	wg     sync.WaitGroup
}

// loopRef identifies the active poll loop for a step.
type loopRef struct {
	gen    uint64
	cancel context.CancelFunc
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithPollInterval sets the delay between status checks.
func WithPollInterval(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithMaxPolls bounds the number of status checks per generation.
// Once the bound is reached the step is failed with a timeout detail.
// Zero means poll until a terminal result arrives.
func WithMaxPolls(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n >= 0 {
			c.maxPolls = n
		}
	}
}

// WithArchiver sets the hook invoked after a step completes.
func WithArchiver(fn ArchiveFunc) CoordinatorOption {
	return func(c *Coordinator) {
		c.archive = fn
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCoordinator creates a Coordinator on top of the given gateway client.
func NewCoordinator(gw gateway.Client, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		gateway:  gw,
		logger:   slog.Default(),
		interval: DefaultPollInterval,
		steps:    newRegistry(),
		loops:    make(map[string]loopRef),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin creates a step for the prompt and starts generating it.
// The returned snapshot reflects the submit outcome: generating when
// the task was accepted, failed when the submit itself failed.
func (c *Coordinator) Begin(ctx context.Context, prompt, ratio string) (*Step, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}

	step := NewStep(prompt, ratio)
	c.steps.add(step)

	if err := c.generate(ctx, step); err != nil {
		return step.Clone(), err
	}
	return step.Clone(), nil
}

// Retry starts a new generation for an existing step, superseding any
// generation still in flight. Late results from the superseded poll
// loop are discarded.
func (c *Coordinator) Retry(ctx context.Context, stepID string) (*Step, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}

	step, ok := c.steps.get(stepID)
	if !ok {
		return nil, ErrStepNotFound
	}

	if err := c.generate(ctx, step); err != nil {
		return step.Clone(), err
	}
	return step.Clone(), nil
}

// generate starts a new generation for the step: bump the generation,
// submit the prompt and hand the returned task to a poll loop.
func (c *Coordinator) generate(ctx context.Context, step *Step) error {
	gen, err := step.Begin()
	if err != nil {
		return err
	}

	c.logger.Info("submitting generation",
		slog.String("step_id", step.ID),
		slog.Uint64("generation", gen),
	)

	taskID, err := c.gateway.Submit(ctx, step.Prompt)
	if err != nil {
		if step.Fail(gen, err.Error()) {
			c.logger.Error("submit failed",
				slog.String("step_id", step.ID),
				slog.String("error", err.Error()),
			)
		}
		return fmt.Errorf("job: submit step %s: %w", step.ID, err)
	}

	if !step.RecordTask(gen, taskID) {
		// A newer submit took over while ours was in flight.
		c.logger.Debug("discarding superseded task",
			slog.String("step_id", step.ID),
			slog.String("task_id", taskID),
		)
		return nil
	}

	c.watch(ctx, step, gen, taskID)
	return nil
}

// watch starts the poll loop for a generation, cancelling any loop
// still running for the same step.
func (c *Coordinator) watch(ctx context.Context, step *Step, gen uint64, taskID string) {
	// The loop must outlive the submitting call but die with the
	// coordinator or a superseding submit.
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		step.Fail(gen, "coordinator closed")
		return
	}
	if prev, ok := c.loops[step.ID]; ok {
		prev.cancel()
	}
	c.loops[step.ID] = loopRef{gen: gen, cancel: cancel}
	c.wg.Add(1)
	c.mu.Unlock()

	go c.pollLoop(loopCtx, step, gen, taskID)
}

// pollLoop checks the task status on every tick until the result is
// terminal, the loop is cancelled or the poll bound is hit. The
// gateway already absorbs transient transport errors as running, so a
// poll error here will not heal by itself and fails the step.
func (c *Coordinator) pollLoop(ctx context.Context, step *Step, gen uint64, taskID string) {
	defer c.wg.Done()
	defer c.release(step.ID, gen)

	logger := c.logger.With(
		slog.String("step_id", step.ID),
		slog.String("task_id", taskID),
		slog.Uint64("generation", gen),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for polls := 0; ; {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		res, err := c.gateway.Poll(ctx, taskID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if step.Fail(gen, err.Error()) {
				logger.Error("status check failed", slog.String("error", err.Error()))
			}
			return
		}

		switch res.State {
		case gateway.PollCompleted:
			if step.Complete(gen, res.VideoURL) {
				logger.Info("generation completed", slog.String("video_url", res.VideoURL))
				c.archiveResult(ctx, step, gen, taskID, res.VideoURL)
			}
			return
		case gateway.PollFailed:
			if step.Fail(gen, res.Detail) {
				logger.Info("generation failed", slog.String("detail", res.Detail))
			}
			return
		}

		polls++
		if c.maxPolls > 0 && polls >= c.maxPolls {
			if step.Fail(gen, fmt.Sprintf("no result after %d status checks", polls)) {
				logger.Warn("giving up on task", slog.Int("polls", polls))
			}
			return
		}
	}
}

// archiveResult re-hosts the completed video when an archiver is
// configured. Failures are logged and the step stays completed.
func (c *Coordinator) archiveResult(ctx context.Context, step *Step, gen uint64, taskID, videoURL string) {
	if c.archive == nil {
		return
	}

	archived, err := c.archive(ctx, taskID, videoURL)
	if err != nil {
		c.logger.Warn("archive failed",
			slog.String("step_id", step.ID),
			slog.String("task_id", taskID),
			slog.String("error", err.Error()),
		)
		return
	}

	step.RecordArchive(gen, archived)
}

// release drops the loop registration if it still belongs to gen.
func (c *Coordinator) release(stepID string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ref, ok := c.loops[stepID]; ok && ref.gen == gen {
		ref.cancel()
		delete(c.loops, stepID)
	}
}

// Step returns a snapshot of the step with the given ID.
// Returns ErrStepNotFound if the step does not exist.
func (c *Coordinator) Step(stepID string) (*Step, error) {
	return c.steps.snapshot(stepID)
}

// Steps returns snapshots of all steps ordered by creation time.
func (c *Coordinator) Steps() []*Step {
	return c.steps.snapshots()
}

// Discard stops any poll loop for the step and removes it.
// Returns ErrStepNotFound if the step does not exist.
func (c *Coordinator) Discard(stepID string) error {
	c.mu.Lock()
	if ref, ok := c.loops[stepID]; ok {
		ref.cancel()
		delete(c.loops, stepID)
	}
	c.mu.Unlock()

	if !c.steps.remove(stepID) {
		return ErrStepNotFound
	}
	return nil
}

// Wait blocks until every started poll loop has finished or ctx is
// done. Call it after the final Begin or Retry; loops started later are
// not waited on.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels all poll loops and waits for them to exit.
// Steps keep whatever state they had; nothing is marked failed.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	for stepID, ref := range c.loops {
		ref.cancel()
		delete(c.loops, stepID)
	}
	c.mu.Unlock()

	c.wg.Wait()
}

// isClosed reports whether Close has been called.
func (c *Coordinator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
