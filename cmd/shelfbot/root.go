package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "shelfbot",
	Short: "shelfbot is a Discord bot with interactive reaction-driven messages",
	Long: `shelfbot connects to the Discord gateway, routes message and reaction
events through its handlers, keeps interactive messages alive for paging and
deletion, and limits how often users and servers may run commands.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
