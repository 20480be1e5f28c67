package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cheaf/cheaf-api/internal/gateway"
)

var statusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Check one generation task on the relay",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	gw := gateway.NewClient(endpoint(), gateway.WithCredentials(credentials()))

	res, err := gw.Poll(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch res.State {
	case gateway.PollCompleted:
		fmt.Fprintf(out, "completed: %s\n", res.VideoURL)
	case gateway.PollFailed:
		fmt.Fprintf(out, "failed: %s\n", res.Detail)
	default:
		fmt.Fprintln(out, "running")
	}
	return nil
}
