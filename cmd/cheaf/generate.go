package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cheaf/cheaf-api/internal/gateway"
	"github.com/cheaf/cheaf-api/internal/job"
	"github.com/cheaf/cheaf-api/internal/script"
)

var (
	generateDish     string
	generateModel    string
	generateRatio    string
	generateInterval time.Duration
	generateMaxPolls int
	generateSteps    int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a cooking video for a dish, one clip per script step",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateDish, "dish", "", "dish to cook on camera")
	generateCmd.Flags().StringVar(&generateModel, "model", script.DefaultModel, "Gemini model for the script")
	generateCmd.Flags().StringVar(&generateRatio, "ratio", "16:9", "aspect ratio of the generated clips")
	generateCmd.Flags().DurationVar(&generateInterval, "interval", job.DefaultPollInterval, "delay between status checks")
	generateCmd.Flags().IntVar(&generateMaxPolls, "max-polls", 0, "maximum status checks per step (0 = unlimited)")
	generateCmd.Flags().IntVar(&generateSteps, "steps", 0, "use only the first N script steps (0 = all)")
	_ = generateCmd.MarkFlagRequired("dish")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	applyGenerateEnvDefaults(cmd)

	logger := newLogger()
	out := cmd.OutOrStdout()

	gen, err := script.New(ctx, geminiAPIKey(),
		script.WithModel(generateModel),
		script.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Writing script for %q...\n", generateDish)
	s, err := gen.Generate(ctx, generateDish)
	if err != nil {
		return err
	}

	steps := s.Steps
	if generateSteps > 0 && generateSteps < len(steps) {
		steps = steps[:generateSteps]
	}
	fmt.Fprintf(out, "%s (%d steps)\n\n", s.Title, len(steps))

	gw := gateway.NewClient(endpoint(),
		gateway.WithCredentials(credentials()),
		gateway.WithRatio(generateRatio),
	)
	coord := job.NewCoordinator(gw,
		job.WithPollInterval(generateInterval),
		job.WithMaxPolls(generateMaxPolls),
		job.WithLogger(logger),
	)
	defer coord.Close()

	stepIDs := make([]string, len(steps))
	for i, st := range steps {
		fmt.Fprintf(out, "[%d/%d] %s: submitting\n", i+1, len(steps), st.Title)

		begun, err := coord.Begin(ctx, st.Prompt, generateRatio)
		if begun != nil {
			stepIDs[i] = begun.ID
		}
		if err != nil {
			// A misconfigured endpoint fails every step the same way.
			if errors.Is(err, gateway.ErrMissingEndpoint) || errors.Is(err, gateway.ErrEndpointOutdated) {
				return err
			}
			fmt.Fprintf(out, "[%d/%d] %s: submit failed: %v\n", i+1, len(steps), st.Title, err)
		}
	}

	fmt.Fprintln(out, "\nWaiting for clips...")
	interrupted := coord.Wait(ctx) != nil

	fmt.Fprintln(out)
	var failed int
	for i, id := range stepIDs {
		if id == "" {
			failed++
			continue
		}
		st, err := coord.Step(id)
		if err != nil {
			continue
		}
		switch st.Status {
		case job.StatusCompleted:
			url := st.VideoURL
			if st.ArchiveURL != "" {
				url = st.ArchiveURL
			}
			fmt.Fprintf(out, "[%d/%d] %s: %s\n", i+1, len(steps), steps[i].Title, url)
		case job.StatusFailed:
			failed++
			fmt.Fprintf(out, "[%d/%d] %s: failed: %s\n", i+1, len(steps), steps[i].Title, st.Detail)
		default:
			failed++
			fmt.Fprintf(out, "[%d/%d] %s: still %s\n", i+1, len(steps), steps[i].Title, st.Status)
		}
	}

	if interrupted {
		return ctx.Err()
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d steps did not complete", failed, len(steps))
	}
	return nil
}

// applyGenerateEnvDefaults fills flags the user did not set from the same
// environment variables the relay reads, so one .env serves both binaries.
// Resolved at run time, after godotenv has loaded.
func applyGenerateEnvDefaults(cmd *cobra.Command) {
	if !cmd.Flags().Changed("model") {
		if v := os.Getenv("GEMINI_MODEL"); v != "" {
			generateModel = v
		}
	}
	if !cmd.Flags().Changed("interval") {
		if v := os.Getenv("POLL_INTERVAL"); v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				generateInterval = d
			}
		}
	}
	if !cmd.Flags().Changed("max-polls") {
		if v := os.Getenv("MAX_POLLS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				generateMaxPolls = n
			}
		}
	}
}
