package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const s3Config = `
[HTTP]
Addr = "127.0.0.1:9000"
AllowedOrigins = ["https://factorio.tech"]

[Rendering]
Backend = "s3"
PollInterval = "1s"

[S3]
S3Endpoint = "minio:9000"
S3AccessKeyID = "key"
S3SecretAccessKey = "secret"
S3BucketName = "renderings"

[Postgres]
ConnectionString = "postgres://app:app@db:5432/app?sslmode=disable"
`

func TestParseOverDefaults(t *testing.T) {
	conf, err := Parse([]byte(s3Config))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", conf.HTTP.Addr)
	assert.Equal(t, []string{"https://factorio.tech"}, conf.HTTP.AllowedOrigins)
	assert.Equal(t, "1s", conf.Rendering.PollInterval)
	assert.Equal(t, "30s", conf.Rendering.PollTimeout)
	assert.Equal(t, "renderings", conf.Rendering.KeyPrefix)
	assert.Equal(t, "us-east-1", conf.S3.S3Region)
	assert.Equal(t, "info", conf.Log.Level)
	assert.True(t, conf.Postgres.Enabled())
}

func TestParseLocalBackend(t *testing.T) {
	conf, err := Parse([]byte(`
[Rendering]
Backend = "local"
LocalRoot = "/var/lib/renderings"
`))
	require.NoError(t, err)

	assert.Equal(t, "local", conf.Rendering.Backend)
	assert.False(t, conf.Postgres.Enabled())
}

func TestParseRejectsInvalidConfiguration(t *testing.T) {
	cases := map[string]string{
		"unknown backend":     "[Rendering]\nBackend = \"ftp\"\n",
		"local without root":  "[Rendering]\nBackend = \"local\"\n",
		"s3 without endpoint": "[Rendering]\nBackend = \"s3\"\n",
		"bad log level":       "[Rendering]\nBackend = \"local\"\nLocalRoot = \"x\"\n[Log]\nLevel = \"loud\"\n",
		"unknown key":         "[Rendering]\nBackend = \"local\"\nLocalRoot = \"x\"\nColour = \"red\"\n",
		"malformed toml":      "[Rendering\n",
	}

	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(contents))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(s3Config), 0o600))
	t.Setenv(ConfigEnvKey, path)

	conf, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "minio:9000", conf.S3.S3Endpoint)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv(ConfigEnvKey, filepath.Join(t.TempDir(), "missing.toml"))

	_, err := LoadConfig()
	assert.Error(t, err)
}
