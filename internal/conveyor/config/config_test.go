package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[log]
output = "stdout"
level = "DEBUG"

[http]
port = 9090

[http.auth]
secretKey = "s3cret"
accessExpire = "2h"

[pipeline]
dir = "/etc/conveyor/pipelines"
watch = false

[orchestrator]
maxParallel = 8

[approval]
store = "memory"
defaultTimeout = "30m"

[notify]
attempts = 5

[notify.slack]
webhookURL = "${SLACK_WEBHOOK_URL}"

[[secrets.catalog]]
name = "NPM_TOKEN"
role = "publish"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	conf, err := LoadConfigFile(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", conf.Log.Level)
	assert.Equal(t, 9090, conf.Http.Port)
	assert.Equal(t, "s3cret", conf.Http.Auth.SecretKey)
	assert.Equal(t, 2*time.Hour, conf.Http.Auth.AccessExpire)
	assert.Equal(t, "/etc/conveyor/pipelines", conf.Pipeline.Dir)
	assert.False(t, conf.Pipeline.Watch)
	assert.Equal(t, 8, conf.Orchestrator.MaxParallel)
	assert.Equal(t, "memory", conf.Approval.Store)
	assert.Equal(t, 30*time.Minute, conf.Approval.DefaultTimeout)
	assert.Equal(t, 5, conf.Notify.Attempts)
	require.Len(t, conf.Secrets.Catalog, 1)
	assert.Equal(t, "NPM_TOKEN", conf.Secrets.Catalog[0].Name)
}

func TestLoadConfigFileDefaults(t *testing.T) {
	conf, err := LoadConfigFile(writeConfig(t, "[http]\nport = 8081\n"))
	require.NoError(t, err)

	assert.Equal(t, "pipelines", conf.Pipeline.Dir)
	assert.True(t, conf.Pipeline.Watch)
	assert.Equal(t, "stdout", conf.Log.Output)
	assert.Equal(t, "local", conf.Storage.Provider)
}

func TestLoadConfigFileEnvOverride(t *testing.T) {
	t.Setenv("CONVEYOR_HTTP_PORT", "7070")
	t.Setenv("CONVEYOR_PIPELINE_DIR", "/srv/pipelines")

	conf, err := LoadConfigFile(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, 7070, conf.Http.Port)
	assert.Equal(t, "/srv/pipelines", conf.Pipeline.Dir)
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestProvidersApplyDefaults(t *testing.T) {
	conf := Default()

	httpConf := ProvideHttpConfig(conf)
	assert.Equal(t, 8080, httpConf.Port)
	assert.Equal(t, 4, ProvideOrchestratorConfig(conf).MaxParallel)
	assert.NotEmpty(t, ProvideApprovalConfig(conf).Store)
	assert.Equal(t, "local", ProvideStorageConfig(conf).Provider)
	assert.Equal(t, "pipelines", ProvidePipelineConfig(conf).Dir)
}
