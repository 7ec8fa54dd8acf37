package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/transito"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of transito",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "transito version %s\n", strings.TrimSpace(transito.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
