package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDeskPath(t *testing.T) {
	sandbox := filepath.Join(os.TempDir(), "geonotes-dev")
	inTemp := t.TempDir()

	tests := []struct {
		name      string
		path      string
		forceTemp bool
		want      string
	}{
		{"Untouched without sandbox", "./desk", false, "./desk"},
		{"Empty path is cwd", "", false, "."},
		{"Re-rooted by base name", "/home/ana/desk", true, filepath.Join(sandbox, "desk")},
		{"Current dir maps to default", ".", true, filepath.Join(sandbox, "default")},
		{"Temp paths are trusted", inTemp, true, inTemp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveDeskPath(tt.path, tt.forceTemp))
		})
	}
}

func TestIsDevRun(t *testing.T) {
	assert.True(t, IsDevRun(), "test binaries count as dev runs")
}
