package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/geonotes98/geonotes/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the desk API, including browser-download export and upload import",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app := openDesk(cmd)
		addr := cfg.Server.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		srv := server.New(app, server.WithMaxUpload(cfg.Server.MaxUploadBytes))
		if err := srv.ListenAndServe(ctx, addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout); err != nil {
			fatal("Server failed", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default $GEONOTES_LISTEN_ADDR or 127.0.0.1:9898)")
}
