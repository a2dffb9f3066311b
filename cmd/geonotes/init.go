package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geonotes98/geonotes"
)

var initSeed bool

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a desk in the desk directory",
	Long:  `Create the desk directory with an empty snapshot. With --seed, the welcome notes and default settings are added.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		dir := deskPath(cmd, false)
		app := openDeskAt(dir, geonotes.WithAutoInit(true))

		if initSeed {
			if _, err := app.Desk.EnsureSeedData(context.Background()); err != nil {
				fatal("Failed to seed desk", err)
			}
		}
		fmt.Println("Initialized desk in", dir)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initSeed, "seed", false, "Add the welcome notes and default settings")
}
