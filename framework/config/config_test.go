package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/akriventsev/potter-lifecycle/framework/container"
	"github.com/akriventsev/potter-lifecycle/framework/core"
	"github.com/akriventsev/potter-lifecycle/framework/lifecycle"
)

const manifestYAML = `
lifecycle:
  eager_inject: false
  strict_boolean_enforced: true
  shutdown_timeout: 10s
logging:
  level: debug
  format: json
components:
  cache:
    enabled: "yes"
  db:
    init_priority: 5
    dispose_priority: 20
    tags: [storage, primary]
  mainQueue:
    enabled: false
    non_blocking: true
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lifecycle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	m, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultManifest().Lifecycle, m.Lifecycle)
	assert.Equal(t, "info", m.Logging.Level)
	assert.Empty(t, m.Components)

	m, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.True(t, m.Lifecycle.AsyncInit)
}

func TestLoad_File(t *testing.T) {
	m, err := Load(writeManifest(t, manifestYAML))
	require.NoError(t, err)

	assert.False(t, m.Lifecycle.EagerInject)
	assert.True(t, m.Lifecycle.AsyncInit, "defaults fill keys missing in the file")
	assert.True(t, m.Lifecycle.StrictBooleanEnforced)
	assert.Equal(t, 10*time.Second, m.Lifecycle.ShutdownTimeout)
	assert.Equal(t, "json", m.Logging.Format)

	require.Len(t, m.Components, 3)
	assert.Equal(t, "yes", m.Components["cache"].Enabled, "raw enabled values are preserved")
	assert.Equal(t, false, m.Components["mainqueue"].Enabled)
	require.NotNil(t, m.Components["db"].InitPriority)
	assert.Equal(t, 5, *m.Components["db"].InitPriority)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("POTTER_LIFECYCLE_LIFECYCLE_DEBUG", "true")
	t.Setenv("POTTER_LIFECYCLE_LOGGING_LEVEL", "warn")

	m, err := Load(writeManifest(t, manifestYAML))
	require.NoError(t, err)
	assert.True(t, m.Lifecycle.Debug)
	assert.Equal(t, "warn", m.Logging.Level)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeManifest(t, "logging:\n  level: verbose\n"))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = Load(writeManifest(t, "lifecycle:\n  shutdown_timeout: 0s\n"))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = Load(writeManifest(t, "lifecycle: [\n"))
	assert.Error(t, err)
}

func buildContainer(t *testing.T) *container.Container {
	t.Helper()
	c, err := container.NewContainerBuilder(nil).
		WithValue("cache", "cache").
		WithValue("db", "db", container.WithTags("storage")).
		WithValue("mainQueue", "queue", container.WithAsyncInit(lifecycle.InitDefault())).
		Build()
	require.NoError(t, err)
	return c
}

func TestApply(t *testing.T) {
	m, err := Load(writeManifest(t, manifestYAML))
	require.NoError(t, err)

	c := buildContainer(t)
	require.NoError(t, Apply(m, c))

	regs := c.Registrations()
	assert.Equal(t, "yes", regs["cache"].Enabled)
	assert.Equal(t, 5, regs["db"].InitPriority())
	assert.Equal(t, 20, regs["db"].DisposePriority())
	assert.Equal(t, []string{"storage", "primary"}, regs["db"].Tags)
	assert.False(t, regs["mainQueue"].IsEnabled())
	assert.True(t, regs["mainQueue"].AsyncInit.NonBlocking)

	_, err = lifecycle.NewManager(m.ManagerConfig(c, nil, nil))
	assert.ErrorIs(t, err, core.ErrConfigValidation, "strict mode rejects enabled: \"yes\"")
	assert.Equal(t, "cache", core.ComponentOf(err))
}

func TestApply_UnknownComponent(t *testing.T) {
	m := DefaultManifest()
	m.Components = map[string]ComponentOverride{"ghost": {Enabled: false}}

	err := Apply(m, buildContainer(t))
	assert.ErrorIs(t, err, core.ErrDependencyNotFound)
	assert.Contains(t, err.Error(), "ghost")
}

func TestManagerConfig(t *testing.T) {
	m := DefaultManifest()
	m.Lifecycle.Debug = true
	m.Lifecycle.EagerInject = false

	var out bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "debug", Format: "text"}, &out)

	c, err := container.NewContainerBuilder(nil).
		WithValue("worker", "w", container.WithAsyncInit(lifecycle.InitFunc(
			func(context.Context, any, lifecycle.Registry) error { return nil }))).
		Build()
	require.NoError(t, err)

	manager, err := lifecycle.NewManager(m.ManagerConfig(c, logger, nil))
	require.NoError(t, err)
	require.NoError(t, manager.ExecuteInit(context.Background()))

	assert.Contains(t, out.String(), "asyncInit: worker - started")
	assert.Contains(t, out.String(), "asyncInit: worker - finished")
}

func TestNewLogger_Levels(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &out)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), `"msg":"shown"`)
}

func TestDumpAndSave(t *testing.T) {
	m := DefaultManifest()
	priority := 3
	m.Components = map[string]ComponentOverride{"db": {InitPriority: &priority, Enabled: true}}

	var out bytes.Buffer
	require.NoError(t, Dump(m, &out))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
	assert.Contains(t, decoded, "lifecycle")
	assert.NotContains(t, out.String(), "writer")

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, Save(m, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.Lifecycle, loaded.Lifecycle)
	assert.Equal(t, 3, *loaded.Components["db"].InitPriority)
	assert.Equal(t, true, loaded.Components["db"].Enabled)
}
