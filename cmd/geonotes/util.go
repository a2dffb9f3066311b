package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/geonotes98/geonotes/pkg/core"
)

func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fatal("Error encoding JSON", err)
	}
}

func formatMillis(ms int64) string {
	return core.FromMillis(ms).Local().Format(time.DateTime)
}
