package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filehost-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
database:
  driver: memory
storage:
  driver: local
  local_dir: ` + t.TempDir() + `
auth:
  share_secret: test-secret
log:
  level: error
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestClientCreatePrintsKey(t *testing.T) {
	out, err := run(t, "client", "create", "--name", "acme", "--config", writeConfig(t))
	require.NoError(t, err)

	var key string
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, "api_key:"); ok {
			key = strings.TrimSpace(v)
		}
	}
	assert.True(t, services.ValidAPIKeyFormat(key), out)
	assert.Contains(t, out, "active:  true")
}

func TestClientCreateRequiresName(t *testing.T) {
	_, err := run(t, "client", "create", "--config", writeConfig(t))
	assert.Error(t, err)
}

func TestSweepOnEmptyStore(t *testing.T) {
	out, err := run(t, "sweep", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 0 expired share tokens")
}

func TestMigrateRequiresPostgres(t *testing.T) {
	_, err := run(t, "migrate", "--config", writeConfig(t))
	assert.ErrorContains(t, err, "postgres")
}

func TestInvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0o600))

	_, err := run(t, "sweep", "--config", path)
	assert.Error(t, err)
}
