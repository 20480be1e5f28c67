package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cheaf/cheaf-api/internal/script"
)

var (
	scriptDish  string
	scriptModel string
)

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Write a shot-by-shot video script for a dish",
	RunE:  runScript,
}

func init() {
	scriptCmd.Flags().StringVar(&scriptDish, "dish", "", "dish to write the script for")
	scriptCmd.Flags().StringVar(&scriptModel, "model", script.DefaultModel, "Gemini model")
	_ = scriptCmd.MarkFlagRequired("dish")
	rootCmd.AddCommand(scriptCmd)
}

func runScript(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if !cmd.Flags().Changed("model") {
		if v := os.Getenv("GEMINI_MODEL"); v != "" {
			scriptModel = v
		}
	}

	gen, err := script.New(ctx, geminiAPIKey(),
		script.WithModel(scriptModel),
		script.WithLogger(newLogger()),
	)
	if err != nil {
		return err
	}

	s, err := gen.Generate(ctx, scriptDish)
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), s)
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
