// Package commands provides the CLI commands for chatrelay.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "chatrelay",
	Short: "chatrelay - streaming conversational relay server",
	Long: `chatrelay relays chat conversations between websocket clients and a
completion backend, streaming replies fragment by fragment while persisting
every finished turn.

Run 'chatrelay serve' to start the server.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("chatrelay %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
