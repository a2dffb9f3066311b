package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Add the welcome notes and default settings to an empty desk",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app := openDesk(cmd)
		seeded, err := app.Desk.EnsureSeedData(context.Background())
		if err != nil {
			fatal("Seeding failed", err)
		}
		if seeded {
			fmt.Println("Desk seeded")
		} else {
			fmt.Println("Desk already has notes and settings")
		}
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
