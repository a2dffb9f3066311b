package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/geonotes98/geonotes/pkg/core"
)

var themeCmd = &cobra.Command{
	Use:   "theme [id]",
	Short: "Show or select the desk theme",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openDesk(cmd)

		if len(args) == 1 {
			if err := app.Desk.SetTheme(ctx, args[0]); err != nil {
				fatal("Error selecting theme", err)
			}
		}
		settings, err := app.Desk.DesktopSettings(ctx)
		if err != nil {
			fatal("Error reading settings", err)
		}
		fmt.Println(settings.ThemeID)
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings [key value]",
	Short: "Show or change desktop settings (themeId, ambientMessages, clock24h)",
	Args:  cobra.RangeArgs(0, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openDesk(cmd)

		if len(args) == 1 {
			fatal("Missing value", fmt.Errorf("usage: geonotes settings %s <value>", args[0]))
		}
		if len(args) == 2 {
			var patch core.SettingsPatch
			switch args[0] {
			case core.SettingThemeID:
				patch.ThemeID = &args[1]
			case core.SettingAmbientMessages, core.SettingClock24h:
				v, err := strconv.ParseBool(args[1])
				if err != nil {
					fatal("Invalid value", err)
				}
				if args[0] == core.SettingClock24h {
					patch.Clock24h = &v
				} else {
					patch.AmbientMessages = &v
				}
			default:
				fatal("Unknown setting", fmt.Errorf("%q", args[0]))
			}
			if err := app.Desk.UpdateSettings(ctx, patch); err != nil {
				fatal("Error updating settings", err)
			}
		}

		settings, err := app.Desk.DesktopSettings(ctx)
		if err != nil {
			fatal("Error reading settings", err)
		}
		printJSON(settings)
	},
}

func init() {
	rootCmd.AddCommand(themeCmd, settingsCmd)
}
