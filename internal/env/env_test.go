package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MONGO_DB=rim_test\nJWT_SECRET=secret\nPREFORK=true\n"), 0o644))

	Init(dir, "1.2.3")

	require.Equal(t, "rim_test", MONGO_DB)
	require.Equal(t, []byte("secret"), JWT_SECRET)
	require.True(t, PREFORK)
	require.Equal(t, "1.2.3", VERSION)
	require.Equal(t, "info", LOG_LEVEL)
	require.NotEmpty(t, DEFINITIONS_ROOT)
}

func TestInitWithoutEnvFile(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "from-process")

	Init(t.TempDir(), "0.0.1")

	require.Equal(t, "redis:6379", REDIS_ADDR)
	require.Equal(t, "0.0.1", VERSION)
	require.Equal(t, []byte("from-process"), JWT_SECRET)
}

func TestConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	_, err := readConfig()
	require.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "secret")
	cfg, err := readConfig()
	require.NoError(t, err)
	require.Equal(t, "secret", cfg.JWTSecret)
}
