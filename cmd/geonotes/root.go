package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/geonotes98/geonotes"
	"github.com/geonotes98/geonotes/internal/config"
)

var (
	verbose  bool
	deskDir  string
	adapter  string
	readOnly bool
	envFile  string
	timezone string

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "geonotes",
	Short: "A local-first note desk with portable HTML time capsules",
	Long: `GeoNotes 98 keeps notes, stickers and desktop settings in a local desk directory.
The whole desk can be exported as one self-describing HTML file and imported back.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		if envFile != "" {
			cfg, err = config.Load(envFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			fatal("Invalid configuration", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&deskDir, "dir", "d", "", "Desk directory (default $GEONOTES_DATA_DIR or the enclosing desk)")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "", "Storage adapter: fs or memory (default $GEONOTES_ADAPTER)")
	rootCmd.PersistentFlags().BoolVar(&readOnly, "read-only", false, "Open the desk without write access")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load configuration from this file instead of .env")
	rootCmd.PersistentFlags().StringVar(&timezone, "tz", "", "Time zone of exported timestamps (default $GEONOTES_TIMEZONE)")
}

// deskPath resolves the desk directory: --dir, then $GEONOTES_DATA_DIR, then
// (with discover) the desk enclosing the working directory, then ".".
func deskPath(cmd *cobra.Command, discover bool) string {
	if cmd.Flags().Changed("dir") {
		return deskDir
	}
	if os.Getenv(config.EnvDataDir) == "" && discover {
		if root, err := geonotes.FindDeskRoot("."); err == nil {
			return root
		}
	}
	return cfg.Desk.DataDir
}

// openDesk opens the desk resolved by deskPath.
func openDesk(cmd *cobra.Command, extra ...geonotes.Option) *geonotes.App {
	return openDeskAt(deskPath(cmd, true), extra...)
}

// openDeskAt merges flags over the loaded configuration and opens the desk at dir.
func openDeskAt(dir string, extra ...geonotes.Option) *geonotes.App {
	name := cfg.Desk.Adapter
	if adapter != "" {
		name = adapter
	}

	loc := cfg.Desk.Timezone
	if timezone != "" {
		var err error
		if loc, err = time.LoadLocation(timezone); err != nil {
			fatal("Invalid time zone", err)
		}
	}

	opts := []geonotes.Option{
		geonotes.WithLogger(slog.Default()),
		geonotes.WithAdapter(name),
		geonotes.WithReadOnly(readOnly || cfg.Desk.ReadOnly),
		geonotes.WithTimezone(loc),
		// The CLI always operates on the real desk, even from `go run`.
		geonotes.WithDevSafety(false),
	}
	app, err := geonotes.New(dir, append(opts, extra...)...)
	if err != nil {
		fatal("Failed to open desk", err)
	}
	return app
}
