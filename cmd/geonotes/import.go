package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geonotes98/geonotes/pkg/delivery"
)

var importYes bool

var importCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Replace the desk with the contents of a time capsule",
	Long: `Read a document produced by 'geonotes export' and replace all notes, stickers
and the theme with its contents. Nothing changes unless the whole document is valid.
Use '-' to read the document from standard input.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		if !importYes && args[0] != "-" && !confirm("This replaces every note and sticker on the desk. Continue?") {
			fmt.Println("Import cancelled")
			return
		}

		app := openDesk(cmd)
		svc, err := app.Capsule(ctx)
		if err != nil {
			fatal("Failed to prepare import", err)
		}

		var src delivery.Acquirer
		if args[0] == "-" {
			src = delivery.NewStreamAcquirer(os.Stdin, 0)
		} else {
			src = delivery.NewFileDelivery(delivery.FixedPath(args[0]), slog.Default())
		}

		b, err := svc.Import(ctx, src)
		if err != nil {
			fatal("Import failed", err)
		}

		// A capsule without a theme keeps the desk's current one.
		theme := "unchanged"
		if b.ThemeID != nil {
			theme = *b.ThemeID
		}
		fmt.Printf("Imported %d notes and %d stickers (theme %s)\n", len(b.Notes), len(b.Stickers), theme)
	},
}

func confirm(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolVarP(&importYes, "yes", "y", false, "Do not ask for confirmation")
}
