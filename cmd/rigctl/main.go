// Command rigctl inspects, validates and exports saved quantrig
// strategies without opening the editor.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rigctl",
	Short: "Manage quantrig strategies from the terminal",
	Long: "rigctl works against the strategy library the quantrig editor saves to.\n" +
		"List, inspect, validate and export strategies without opening the app.",
	SilenceUsage: true,
}

var strategiesDir string

func init() {
	cfg := loadConfig()
	rootCmd.PersistentFlags().StringVar(&strategiesDir, "dir", cfg.StrategiesDir,
		"strategies directory")

	rootCmd.AddCommand(
		listCmd(),
		showCmd(),
		validateCmd(),
		exportCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
