package eduportal_config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eduportal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  env: test
sms:
  bulk_delay: 250ms
email:
  provider: smtp
`), 0o600))

	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("SERVER_HTTP_ADDR", ":18080")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, ":18080", cfg.Server.HTTPAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.SMS.BulkDelay)
	assert.Equal(t, "smtp", cfg.Email.Provider)
	assert.Equal(t, 2*time.Second, cfg.DB.QueryTimeout)
	assert.Equal(t, "eduportal-realtime-test", cfg.Kafka.FeedGroupID)
	assert.Equal(t, "eduportal/api", cfg.AsLoggerConfig().App)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrNoSecret)
}
