package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// writeConfig writes a config pointing at a services file with the given body.
func writeConfig(t *testing.T, services string) string {
	t.Helper()
	dir := t.TempDir()
	servicesPath := filepath.Join(dir, "services.yaml")
	require.NoError(t, os.WriteFile(servicesPath, []byte(services), 0o644))

	configPath := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("monitor:\n  services_file: %s\n  probe_timeout: 2s\nlogging:\n  level: error\n", servicesPath)
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o644))
	return configPath
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestAskCommand(t *testing.T) {
	out, err := execute(t, "ask", "--instant", "--config", writeConfig(t, "services: []\n"), "Can", "I", "try", "it", "for", "free?")
	require.NoError(t, err)
	assert.Contains(t, out, "generous free tiers")
}

func TestAskCommandNeedsQuestion(t *testing.T) {
	_, err := execute(t, "ask")
	assert.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()

	t.Run("healthy", func(t *testing.T) {
		cfg := writeConfig(t, fmt.Sprintf(`services:
  - id: website
    name: Website
    url: %s
    category: frontend
    mode: real
`, up.URL))

		out, err := execute(t, "check", "--config", cfg)
		require.NoError(t, err)
		assert.Contains(t, out, "SERVICE")
		assert.Contains(t, out, "website")
		assert.Contains(t, out, "healthy: All systems operational (1 services)")
	})

	t.Run("down", func(t *testing.T) {
		down := httptest.NewServer(http.NotFoundHandler())
		downURL := down.URL
		down.Close()

		cfg := writeConfig(t, fmt.Sprintf(`services:
  - id: website
    name: Website
    url: %s
    category: frontend
    mode: real
  - id: api
    name: API
    url: %s
    category: api
    mode: real
`, up.URL, downURL))

		out, err := execute(t, "check", "--config", cfg)
		assert.ErrorIs(t, err, errUnhealthy)
		assert.Contains(t, out, "error: 1 service down, 0 degraded")
	})
}
