package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stayput <command>",
	Short: "Minecraft bot-fleet session manager",
	Long: `stayput keeps a fleet of Minecraft bot sessions online: it allocates
bot slots to players, reconnects dropped sessions, enforces daily online
windows, and runs the in-game chat command surface.`,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
