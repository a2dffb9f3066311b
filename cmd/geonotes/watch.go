package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	desklifecycle "github.com/geonotes98/geonotes/pkg/adapters/lifecycle"
)

var watchPattern string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print changes to the desk as they happen, including other processes' commits",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app := openDesk(cmd)
		src := desklifecycle.NewSource(app.Desk, watchPattern)
		if err := src.Start(ctx); err != nil {
			fatal("Failed to watch desk", err)
		}
		slog.Info("watching desk", "pattern", watchPattern)

		for e := range src.Events() {
			fmt.Println(e.String())
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchPattern, "pattern", "", "Collection glob, e.g. '{notes,stickers}' (default: all)")
}
