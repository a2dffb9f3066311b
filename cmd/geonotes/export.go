package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/geonotes98/geonotes"
	"github.com/geonotes98/geonotes/pkg/capsule"
	"github.com/geonotes98/geonotes/pkg/delivery"
)

var (
	exportOut    string
	exportStdout bool
	export24h    bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the whole desk as an HTML time capsule",
	Long: `Write every note, sticker and the selected theme into one HTML file.
The file is readable in any browser and can be imported back with 'geonotes import'.
--out names a file or a directory; in a directory the file is called geonotes98-<date>.html.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		var extra []geonotes.Option
		if cmd.Flags().Changed("24h") {
			extra = append(extra, geonotes.WithClock24h(export24h))
		}
		app := openDesk(cmd, extra...)

		svc, err := app.Capsule(ctx)
		if err != nil {
			fatal("Failed to prepare export", err)
		}

		native := delivery.NewFileDelivery(delivery.FixedPath(exportOut), slog.Default())
		d := delivery.Select(
			delivery.Capabilities{NativeDialogs: !exportStdout},
			native,
			delivery.NewStreamDelivery(os.Stdout),
		)

		outcome, b, err := svc.Export(ctx, d)
		if err != nil {
			fatal("Export failed", err)
		}
		if exportStdout {
			return
		}
		if outcome == delivery.OutcomeCancelled {
			fmt.Println("Export cancelled")
			return
		}

		target := exportOut
		if info, err := os.Stat(exportOut); err == nil && info.IsDir() {
			target = filepath.Join(exportOut, capsule.SuggestedFilename(b))
		}
		fmt.Printf("Exported %d notes and %d stickers to %s\n", len(b.Notes), len(b.Stickers), target)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", ".", "Destination file or directory")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "Write the document to standard output")
	exportCmd.Flags().BoolVar(&export24h, "24h", false, "Use a 24-hour clock (default: the desk's clock24h setting)")
}
