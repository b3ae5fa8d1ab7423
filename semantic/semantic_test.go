package semantic

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("RACEVIEW_SEMANTIC", "")
	t.Setenv("RACEVIEW_SEMANTIC_PATH", "")
	t.Setenv("RACEVIEW_SEMANTIC_TIMEOUT_MS", "")

	cfg := FromEnv()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, DefaultHelper, cfg.HelperPath)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("RACEVIEW_SEMANTIC", "1")
	t.Setenv("RACEVIEW_SEMANTIC_PATH", "/opt/bin/helper")
	t.Setenv("RACEVIEW_SEMANTIC_TIMEOUT_MS", "500")

	cfg := FromEnv()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "/opt/bin/helper", cfg.HelperPath)
	assert.Equal(t, 500*time.Millisecond, cfg.Timeout)
}

func TestFromEnvBadTimeoutIgnored(t *testing.T) {
	t.Setenv("RACEVIEW_SEMANTIC", "true")
	t.Setenv("RACEVIEW_SEMANTIC_TIMEOUT_MS", "soon")

	cfg := FromEnv()
	assert.Equal(t, 2*time.Second, cfg.Timeout)
}

func TestResolveDisabled(t *testing.T) {
	result := Resolve(context.Background(), Config{}, "main.go", 0, 0, []byte("package main"))
	assert.Nil(t, result)
}

func TestResolveMissingHelper(t *testing.T) {
	cfg := Config{Enabled: true, HelperPath: filepath.Join(t.TempDir(), "absent"), Timeout: time.Second}
	result := Resolve(context.Background(), cfg, "main.go", 0, 0, []byte("package main"))
	assert.Nil(t, result)
}

func writeHelper(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell helper fixtures are unix-only")
	}
	path := filepath.Join(t.TempDir(), "helper.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestResolveParsesHelperOutput(t *testing.T) {
	helper := writeHelper(t, `cat > /dev/null
echo '{"name":"counter","decl":{"start":{"line":2,"col":4},"end":{"line":2,"col":11}},"uses":[{"range":{"start":{"line":5,"col":1},"end":{"line":5,"col":8}},"reassign":true,"captured":false}],"is_pointer":false}'`)
	cfg := Config{Enabled: true, HelperPath: helper, Timeout: 5 * time.Second}

	result := Resolve(context.Background(), cfg, "main.go", 5, 1, []byte("package main"))
	require.NotNil(t, result)
	assert.Equal(t, "counter", result.Name)
	assert.Equal(t, uint32(2), result.Decl.Start.Line)
	require.Len(t, result.Uses, 1)
	assert.True(t, result.Uses[0].Reassign)
	assert.False(t, result.IsPointer)
}

func TestResolveMalformedOutput(t *testing.T) {
	helper := writeHelper(t, `cat > /dev/null
echo 'not json'`)
	cfg := Config{Enabled: true, HelperPath: helper, Timeout: 5 * time.Second}

	assert.Nil(t, Resolve(context.Background(), cfg, "main.go", 0, 0, []byte("package main")))
}

func TestResolveHelperFailure(t *testing.T) {
	helper := writeHelper(t, `cat > /dev/null
exit 3`)
	cfg := Config{Enabled: true, HelperPath: helper, Timeout: 5 * time.Second}

	assert.Nil(t, Resolve(context.Background(), cfg, "main.go", 0, 0, []byte("package main")))
}

func TestResolveTimeout(t *testing.T) {
	helper := writeHelper(t, `sleep 5`)
	cfg := Config{Enabled: true, HelperPath: helper, Timeout: 50 * time.Millisecond}

	started := time.Now()
	assert.Nil(t, Resolve(context.Background(), cfg, "main.go", 0, 0, []byte("package main")))
	assert.Less(t, time.Since(started), 3*time.Second)
}

func TestModuleFor(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/demo\n\ngo 1.24\n"), 0o644))
	nested := filepath.Join(dir, "internal", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Equal(t, "example.com/demo", ModuleFor(filepath.Join(nested, "main.go")))
}

func TestModuleForNoModule(t *testing.T) {
	assert.Equal(t, "", ModuleFor(filepath.Join(t.TempDir(), "main.go")))
}
