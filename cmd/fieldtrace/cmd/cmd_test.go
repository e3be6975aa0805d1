package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes into dir for the duration of the test, restoring the
// previous working directory on cleanup. (testing.T.Chdir requires Go 1.24.)
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(prev)
	})
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2026-01-01")
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "fieldtrace 1.2.3")
	assert.Contains(t, out, "abc123")
}

func TestInitWritesConfigFile(t *testing.T) {
	chdir(t, t.TempDir())

	out, err := execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	data, err := os.ReadFile(filepath.Join(".fieldtrace", "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "base_url")
	assert.Contains(t, string(data), "spool_dir")
}

func TestInitRefusesOverwrite(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := execute(t, "init")
	require.NoError(t, err)

	_, err = execute(t, "init")
	require.Error(t, err)

	_, err = execute(t, "init", "--force")
	require.NoError(t, err)
}

func TestStatusEmptySpool(t *testing.T) {
	chdir(t, t.TempDir())

	out, err := execute(t, "status", "--spool-dir", filepath.Join(".", "spool"))
	require.NoError(t, err)
	assert.Contains(t, out, "Pending events: 0")
	assert.Contains(t, out, "Pending crashes: 0")
}

func TestDrainRequiresAPIKey(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("FIELDTRACE_API_KEY", "")

	_, err := execute(t, "drain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}
