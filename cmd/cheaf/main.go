// Package main provides the cheaf command line interface: script
// generation, full dish-to-video runs, and task status checks against a
// relay deployment.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cheaf/cheaf-api/internal/sign"
)

var (
	endpointFlag  string
	accessKeyFlag string
	secretKeyFlag string
	verboseFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "cheaf",
	Short: "Turn a dish name into a step-by-step cooking video",
	Long: `cheaf drives the Cheaf pipeline from a terminal: it writes a
shot-by-shot script for a dish with Gemini, submits each step as a
video generation task through a relay deployment, and polls the tasks
until every clip is done.`,
	Version:      "1.1",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&endpointFlag, "endpoint", "", "relay endpoint URL (defaults to $RELAY_ENDPOINT)")
	rootCmd.PersistentFlags().StringVar(&accessKeyFlag, "access-key", "", "provider access key override (defaults to $VOLC_ACCESS_KEY)")
	rootCmd.PersistentFlags().StringVar(&secretKeyFlag, "secret-key", "", "provider secret key override (defaults to $VOLC_SECRET_KEY)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
}

func main() {
	// Load .env if present; flags and the environment take precedence.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verboseFlag {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// endpoint resolves the relay endpoint from the flag or environment.
func endpoint() string {
	if endpointFlag != "" {
		return endpointFlag
	}
	return os.Getenv("RELAY_ENDPOINT")
}

// credentials resolves provider credential overrides from flags or the
// environment. Both fields absent means the relay's defaults apply.
func credentials() sign.Credentials {
	creds := sign.Credentials{
		AccessKey: accessKeyFlag,
		SecretKey: secretKeyFlag,
	}
	if creds.AccessKey == "" {
		creds.AccessKey = os.Getenv("VOLC_ACCESS_KEY")
	}
	if creds.SecretKey == "" {
		creds.SecretKey = os.Getenv("VOLC_SECRET_KEY")
	}
	return creds
}

func geminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}
