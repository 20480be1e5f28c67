// Package script turns a dish name into a shot-by-shot cooking video
// script using Gemini. Each step carries a self-contained text-to-video
// prompt that is submitted as its own generation job.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/cheaf/cheaf-api/internal/jsonutil"
)

const (
	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-2.5-flash"

	defaultAttempts = 3
	maxScriptSteps  = 12
	minStepSeconds  = 5
)

// Static errors for script generation.
var (
	// ErrMissingAPIKey is returned when no Gemini API key is provided.
	ErrMissingAPIKey = errors.New("script: Gemini API key is required")
	// ErrEmptyDish is returned when the dish name is blank.
	ErrEmptyDish = errors.New("script: dish name is required")
	// ErrEmptyResponse is returned when the model responds with no text.
	ErrEmptyResponse = errors.New("script: empty model response")
	// ErrInvalidScript is returned when the model's JSON does not describe
	// a usable script.
	ErrInvalidScript = errors.New("script: model returned an invalid script")
)

// Step is a single shot of the video script.
type Step struct {
	Title           string `json:"title"`
	Prompt          string `json:"prompt"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Script is a complete shot-by-shot production script for one dish.
type Script struct {
	Dish  string `json:"dish"`
	Title string `json:"title"`
	Steps []Step `json:"steps"`
}

// Generator produces scripts through the Gemini API.
type Generator struct {
	model    string
	attempts int
	logger   *slog.Logger

	// generate performs one model round trip. Tests replace it.
	generate func(ctx context.Context, prompt string) (string, error)
}

// Option configures a Generator.
type Option func(*Generator)

// WithModel sets the Gemini model name.
func WithModel(model string) Option {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithAttempts sets how many model round trips are tried before giving up.
func WithAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.attempts = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// New creates a Generator backed by the Gemini API.
func New(ctx context.Context, apiKey string, opts ...Option) (*Generator, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("script: create Gemini client: %w", err)
	}

	g := &Generator{
		model:    DefaultModel,
		attempts: defaultAttempts,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}

	g.generate = func(ctx context.Context, prompt string) (string, error) {
		return generateContent(ctx, client, g.model, prompt)
	}

	return g, nil
}

// Generate asks the model for a script and validates the result, retrying
// transport, parse, and validation failures up to the configured attempt
// count.
func (g *Generator) Generate(ctx context.Context, dish string) (*Script, error) {
	dish = strings.TrimSpace(dish)
	if dish == "" {
		return nil, ErrEmptyDish
	}

	prompt := fmt.Sprintf("Create a step-by-step cooking video script for: %s", dish)

	var lastErr error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		if attempt > 1 {
			g.logger.Warn("retrying script generation",
				slog.String("dish", dish),
				slog.Int("attempt", attempt),
				slog.String("error", lastErr.Error()),
			)
		}

		raw, err := g.generate(ctx, prompt)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}

		script, err := parseScript(raw, dish)
		if err != nil {
			lastErr = err
			continue
		}

		g.logger.Debug("script generated",
			slog.String("dish", dish),
			slog.Int("steps", len(script.Steps)),
		)
		return script, nil
	}

	return nil, fmt.Errorf("script: no valid script after %d attempts: %w", g.attempts, lastErr)
}

// generateContent performs a single Gemini round trip.
func generateContent(ctx context.Context, client *genai.Client, model, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
		ResponseMIMEType: "application/json",
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("script: call model: %w", err)
	}
	if resp == nil || resp.Text() == "" {
		return "", ErrEmptyResponse
	}
	return resp.Text(), nil
}

// parseScript decodes and validates the model's response.
func parseScript(raw, dish string) (*Script, error) {
	script, err := jsonutil.Parse[Script](raw)
	if err != nil {
		return nil, fmt.Errorf("script: parse response: %w", err)
	}

	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", ErrInvalidScript)
	}
	if len(script.Steps) > maxScriptSteps {
		return nil, fmt.Errorf("%w: %d steps", ErrInvalidScript, len(script.Steps))
	}

	for i := range script.Steps {
		step := &script.Steps[i]
		if strings.TrimSpace(step.Prompt) == "" {
			return nil, fmt.Errorf("%w: step %d has no prompt", ErrInvalidScript, i+1)
		}
		if strings.TrimSpace(step.Title) == "" {
			step.Title = fmt.Sprintf("Step %d", i+1)
		}
		if step.DurationSeconds <= 0 {
			step.DurationSeconds = minStepSeconds
		}
	}

	if script.Dish == "" {
		script.Dish = dish
	}
	if script.Title == "" {
		script.Title = dish
	}

	return &script, nil
}

// systemPrompt fixes the persona and the JSON schema of the response.
const systemPrompt = `You are a recipe video director. Given a dish name, you break its
preparation into short filmable steps and write a text-to-video prompt
for each one.

Respond with ONLY a JSON object in this exact shape:

{
  "dish": "the dish name",
  "title": "a short appetizing video title",
  "steps": [
    {
      "title": "short step name",
      "prompt": "one-sentence text-to-video prompt describing the shot",
      "duration_seconds": 5
    }
  ]
}

Rules:
- 4 to 8 steps, in cooking order.
- Each prompt describes a single cooking shot: ingredients, action,
  cookware. Close-up food photography style. No faces, no text overlays.
- Keep each prompt under 40 words and self-contained. The video model
  sees one prompt at a time with no other context.`
