// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  name: roomcraft-test
otp:
  ttl: 2m
`), 0o600))

	t.Setenv("DATABASE_URL", "postgres://localhost/roomcraft")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	c, err := load(path)
	require.NoError(t, err)

	assert.Equal(t, "roomcraft-test", c.App.Name)
	assert.Equal(t, 2*time.Minute, c.OTP.TTL)
	assert.Equal(t, "postgres://localhost/roomcraft", c.Database.URL)
	assert.Equal(t, "sk-test", c.ImageGen.APIKey)
	assert.Equal(t, "local", c.Storage.Driver)
	assert.Equal(t, "gpt-image-1", c.ImageGen.Model)
	assert.Equal(t, 15*time.Minute, c.Redesign.StaleAfter)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	_, err := load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestValidateRejectsS3WithoutBucket(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/roomcraft")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("STORAGE_DRIVER", "s3")

	_, err := load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")
}

func TestEnvKeyReplacerIgnoresUnknownKeys(t *testing.T) {
	assert.Equal(t, "imagegen.api_key", envKeyReplacer("OPENAI_API_KEY"))
	assert.Equal(t, "", envKeyReplacer("HOME"))
}
