package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/chat-eval/api"
	"github.com/stellarlinkco/chat-eval/internal/llm"
)

func newServeCmd(st *cliState) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local chat endpoint backed by a model provider",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(st)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if st == nil || st.cfg == nil {
				return fmt.Errorf("serve: missing config (internal error)")
			}

			provider, err := llm.DefaultProviderFromConfig(st.cfg)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			srv, err := api.NewServer(st.cfg, provider)
			if err != nil {
				return err
			}

			if addr == "" {
				addr = st.cfg.Server.Addr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving chat endpoint on %s (provider %s)\n", addr, provider.Name())
			return srv.Run(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
