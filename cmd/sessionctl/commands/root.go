// Package commands implements the sessionctl CLI commands.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sessiongw/sessiond/internal/wire"
)

var (
	// outputFormat controls the output format for all commands (table or json).
	outputFormat string

	// serverNetwork is the dial network: "tcp" or "unix".
	serverNetwork string

	// serverAddr is the daemon's control socket address.
	serverAddr string

	// maxFrameBytes bounds a single frame's payload length on this connection.
	maxFrameBytes uint32
)

// rootCmd is the top-level cobra command for sessionctl.
var rootCmd = &cobra.Command{
	Use:   "sessionctl",
	Short: "CLI client for the sessiond daemon",
	Long:  "sessionctl talks to the sessiond daemon over its local control socket to drive and observe sessions.",
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverNetwork, "network", "tcp",
		"dial network for the daemon's control socket: tcp or unix")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "127.0.0.1:55555",
		"sessiond control socket address (host:port for tcp, path for unix)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")
	rootCmd.PersistentFlags().Uint32Var(&maxFrameBytes, "max-frame-bytes", wire.DefaultMaxFrameBytes,
		"maximum accepted frame payload size in bytes")

	rootCmd.AddCommand(connectCmd())
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(messageCmd())
	rootCmd.AddCommand(disconnectCmd())
	rootCmd.AddCommand(peerRegisterCmd())
	rootCmd.AddCommand(peerConnectCmd())
	rootCmd.AddCommand(peerDisconnectCmd())
	rootCmd.AddCommand(sendFileCmd())
	rootCmd.AddCommand(downloadFileCmd())
	rootCmd.AddCommand(startGroupCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(shellCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
