package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geonotes98/geonotes/pkg/core"
)

var (
	noteJSON    bool
	noteTitle   string
	noteContent string
	noteColor   string
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage the notes on the desk",
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, most recently edited first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app := openDesk(cmd)
		notes, err := app.Desk.ListNotes(context.Background())
		if err != nil {
			fatal("Error listing notes", err)
		}

		if noteJSON {
			printJSON(notes)
			return
		}
		for _, n := range notes {
			title := n.Title
			if title == "" {
				title = "Untitled"
			}
			marker := ""
			if n.IsEcho() {
				marker = " (echo)"
			}
			fmt.Printf("%s  %s  %s%s\n", n.ID, formatMillis(n.UpdatedAt), title, marker)
		}
	},
}

var noteShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := openDesk(cmd)
		n, err := app.Desk.GetNote(context.Background(), args[0])
		if err != nil {
			fatal("Error reading note", err)
		}
		if noteJSON {
			printJSON(n)
			return
		}
		fmt.Printf("# %s\n\n%s\n", n.Title, n.Content)
	},
}

var noteAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Create a note",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openDesk(cmd)

		title := ""
		if len(args) == 1 {
			title = args[0]
		}
		n, err := app.Desk.CreateNote(ctx, title)
		if err != nil {
			fatal("Error creating note", err)
		}
		if noteContent != "" {
			if n, err = app.Desk.UpdateNote(ctx, n.ID, core.NotePatch{Content: &noteContent}); err != nil {
				fatal("Error writing note content", err)
			}
		}
		fmt.Println(n.ID)
	},
}

var noteEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change the title, content or color of a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var patch core.NotePatch
		if cmd.Flags().Changed("title") {
			patch.Title = &noteTitle
		}
		if cmd.Flags().Changed("content") {
			patch.Content = &noteContent
		}
		if cmd.Flags().Changed("color") {
			patch.Color = &noteColor
		}

		app := openDesk(cmd)
		n, err := app.Desk.UpdateNote(context.Background(), args[0], patch)
		if err != nil {
			fatal("Error updating note", err)
		}
		fmt.Printf("Updated %s at %s\n", n.ID, formatMillis(n.UpdatedAt))
	},
}

var noteRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a note",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := openDesk(cmd)
		if err := app.Desk.DeleteNote(context.Background(), args[0]); err != nil {
			fatal("Error deleting note", err)
		}
		fmt.Println("Deleted", args[0])
	},
}

func init() {
	rootCmd.AddCommand(noteCmd)
	noteCmd.AddCommand(noteListCmd, noteShowCmd, noteAddCmd, noteEditCmd, noteRmCmd)

	noteListCmd.Flags().BoolVar(&noteJSON, "json", false, "Output in JSON format")
	noteShowCmd.Flags().BoolVar(&noteJSON, "json", false, "Output in JSON format")
	noteAddCmd.Flags().StringVarP(&noteContent, "content", "c", "", "Initial content")
	noteEditCmd.Flags().StringVarP(&noteTitle, "title", "t", "", "New title")
	noteEditCmd.Flags().StringVarP(&noteContent, "content", "c", "", "New content")
	noteEditCmd.Flags().StringVar(&noteColor, "color", "", "New paper color")
}
