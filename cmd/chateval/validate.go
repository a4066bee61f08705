package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/chat-eval/internal/testcase"
)

func newValidateCmd() *cobra.Command {
	var testFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a test case file without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cases, err := testcase.LoadFromFile(testFile)
			if err != nil {
				return err
			}

			byCategory := make(map[string]int)
			byPriority := make(map[string]int)
			for _, tc := range cases {
				byCategory[tc.Category]++
				byPriority[tc.Priority]++
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d cases OK\n", testFile, len(cases))
			fmt.Fprintf(out, "Categories: %v\n", byCategory)
			fmt.Fprintf(out, "Priorities: %v\n", byPriority)
			return nil
		},
	}

	cmd.Flags().StringVar(&testFile, "test-file", defaultTestFile, "test case file to check")
	return cmd
}
