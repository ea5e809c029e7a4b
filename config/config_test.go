package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BIDON_AUTH_SECRET", "s3cret")

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, "sqlite", c.Database.Driver)
	assert.True(t, c.Database.Migrate)
	assert.True(t, c.Auth.Enabled)
	assert.Equal(t, "s3cret", c.Auth.Secret)
	assert.Equal(t, 30*24*time.Hour, c.Auth.TokenTTL)
	assert.Zero(t, c.Audit.Interval)

	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Belgrade", loc.String())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bidon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9090"
database:
  driver: postgres
  dsn: postgres://localhost/bidon
auth:
  secret: from-file
audit:
  interval: 10m
`), 0o600))
	t.Setenv("BIDON_HTTP_ADDR", ":7070")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", c.HTTP.Addr)
	assert.Equal(t, "postgres", c.Database.Driver)
	assert.Equal(t, "from-file", c.Auth.Secret)
	assert.Equal(t, 10*time.Minute, c.Audit.Interval)
}

func TestValidate(t *testing.T) {
	t.Run("auth without secret", func(t *testing.T) {
		_, err := Load("")
		assert.ErrorContains(t, err, "auth.secret")
	})

	t.Run("auth disabled", func(t *testing.T) {
		t.Setenv("BIDON_AUTH_ENABLED", "false")
		_, err := Load("")
		assert.NoError(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("BIDON_AUTH_SECRET", "x")
		t.Setenv("BIDON_DATABASE_DRIVER", "oracle")
		_, err := Load("")
		assert.ErrorContains(t, err, "oracle")
	})

	t.Run("bad timezone", func(t *testing.T) {
		t.Setenv("BIDON_AUTH_SECRET", "x")
		t.Setenv("BIDON_APP_TIMEZONE", "Mars/Olympus")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
