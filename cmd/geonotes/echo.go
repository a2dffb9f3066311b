package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Resurface notes older than 30 days as echoes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app := openDesk(cmd)
		created, err := app.Desk.RunEchoSweep(context.Background())
		if err != nil {
			fatal("Echo sweep failed", err)
		}
		fmt.Printf("%d echoes created\n", created)
	},
}

func init() {
	rootCmd.AddCommand(echoCmd)
}
