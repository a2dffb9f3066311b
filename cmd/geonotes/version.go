package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geonotes98/geonotes"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of geonotes",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("geonotes version %s\n", strings.TrimSpace(geonotes.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
