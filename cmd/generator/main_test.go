package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baditaflorin/go_startup_os/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "services.yaml")

	out, err := run(t, "--out", path)
	require.NoError(t, err)
	assert.Equal(t, "wrote "+path+"\n", out)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	services, err := config.ParseServices(content, "http://example.test")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultServices("http://example.test"), services)
}

func TestGenerateWithBaseURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.yaml")

	_, err := run(t, "-o", path, "--base-url", "https://startup-os.example")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "url: https://startup-os.example/index.html")
}

func TestGenerateRejectsArgs(t *testing.T) {
	_, err := run(t, "extra")
	assert.Error(t, err)
}
