package main

import (
	"fmt"

	"github.com/aretw0/introspection"
	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the desk store and services",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app := openDesk(cmd)

		status := map[string]any{}
		components := []struct {
			name string
			c    any
		}{{"store", app.Store}, {"desk", app.Desk}}

		for _, entry := range components {
			name, c := entry.name, entry.c
			intro, ok := c.(introspection.Introspectable)
			if !ok {
				continue
			}
			status[name] = intro.State()
			if !statusJSON {
				kind := name
				if comp, ok := c.(introspection.Component); ok {
					kind = comp.ComponentType()
				}
				fmt.Printf("%s: %+v\n", kind, intro.State())
			}
		}
		if statusJSON {
			printJSON(status)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output in JSON format")
}
