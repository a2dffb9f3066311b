package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geonotes98/geonotes/pkg/core"
)

var (
	stickerJSON     bool
	stickerX        float64
	stickerY        float64
	stickerScale    float64
	stickerRotation float64
	stickerTop      bool
)

var stickerCmd = &cobra.Command{
	Use:   "sticker",
	Short: "Manage the stickers on the desk",
}

var stickerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stickers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app := openDesk(cmd)
		stickers, err := app.Desk.ListStickers(context.Background())
		if err != nil {
			fatal("Error listing stickers", err)
		}
		if stickerJSON {
			printJSON(stickers)
			return
		}
		for _, s := range stickers {
			fmt.Printf("%s  z=%d  (%.2f, %.2f)  %s\n", s.ID, s.ZIndex, s.X, s.Y, s.Asset)
		}
	},
}

var stickerAddCmd = &cobra.Command{
	Use:   "add <asset>",
	Short: "Place a sticker on top of the others",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := openDesk(cmd)
		s, err := app.Desk.AddSticker(context.Background(), args[0])
		if err != nil {
			fatal("Error adding sticker", err)
		}
		fmt.Printf("%s  z=%d\n", s.ID, s.ZIndex)
	},
}

var stickerMoveCmd = &cobra.Command{
	Use:   "move <id>",
	Short: "Move, scale, rotate or raise a sticker",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openDesk(cmd)

		var patch core.StickerPatch
		if cmd.Flags().Changed("x") {
			patch.X = &stickerX
		}
		if cmd.Flags().Changed("y") {
			patch.Y = &stickerY
		}
		if cmd.Flags().Changed("scale") {
			patch.Scale = &stickerScale
		}
		if cmd.Flags().Changed("rotation") {
			patch.Rotation = &stickerRotation
		}
		if stickerTop {
			stickers, err := app.Desk.ListStickers(ctx)
			if err != nil {
				fatal("Error listing stickers", err)
			}
			var top int64
			for _, s := range stickers {
				top = max(top, s.ZIndex)
			}
			top++
			patch.ZIndex = &top
		}

		s, err := app.Desk.UpdateSticker(ctx, args[0], patch)
		if err != nil {
			fatal("Error updating sticker", err)
		}
		fmt.Printf("%s  z=%d  (%.2f, %.2f)\n", s.ID, s.ZIndex, s.X, s.Y)
	},
}

var stickerRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Remove a sticker",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := openDesk(cmd)
		if err := app.Desk.RemoveSticker(context.Background(), args[0]); err != nil {
			fatal("Error removing sticker", err)
		}
		fmt.Println("Removed", args[0])
	},
}

func init() {
	rootCmd.AddCommand(stickerCmd)
	stickerCmd.AddCommand(stickerListCmd, stickerAddCmd, stickerMoveCmd, stickerRmCmd)

	stickerListCmd.Flags().BoolVar(&stickerJSON, "json", false, "Output in JSON format")
	stickerMoveCmd.Flags().Float64Var(&stickerX, "x", 0, "Horizontal position in [0,1]")
	stickerMoveCmd.Flags().Float64Var(&stickerY, "y", 0, "Vertical position in [0,1]")
	stickerMoveCmd.Flags().Float64Var(&stickerScale, "scale", 1, "Scale factor")
	stickerMoveCmd.Flags().Float64Var(&stickerRotation, "rotation", 0, "Rotation in degrees")
	stickerMoveCmd.Flags().BoolVar(&stickerTop, "top", false, "Raise above every other sticker")
}
