package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/chat-eval/internal/scorer"
)

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List judge rubric scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range scorer.Scenarios() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
