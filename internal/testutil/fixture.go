package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/strictmod/internal/ir"
)

// WriteModule writes m as a JSON syntax tree to dir/<name>.json and returns
// the path.
func WriteModule(t *testing.T, dir string, m *ir.Module) string {
	t.Helper()
	data, err := json.MarshalIndent(m, "", "  ")
	require.NoError(t, err)
	return WriteFile(t, filepath.Join(dir, m.Name+".json"), string(data))
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
