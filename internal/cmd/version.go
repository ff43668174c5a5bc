package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version will be set by the main package
	Version = "dev"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tlsign",
	Long:  `Display the current version of the tlsign gateway and CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tlsign version %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
