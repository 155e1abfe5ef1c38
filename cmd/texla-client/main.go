// Command texla-client is a line-oriented terminal client for the texla
// server. Each stdin line is sent as one command; each reply is printed.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	server := os.Getenv("TEXLA_SERVER")
	if server == "" {
		server = defaultServer
	}

	rootCmd := &cobra.Command{
		Use:   "texla-client",
		Short: "Terminal client for the texla server",
		Long: `texla-client connects to a texla server over WebSocket, sends every
line read from stdin as a command, and prints every reply.

Arguments are separated by "|", for example:

  register alice | secret
  look`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return session(cmd.Context(), server, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVar(&server, "server", server, "Server socket URL (env: TEXLA_SERVER)")
	return rootCmd
}
