package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir 切换到临时目录，避免读取仓库中的 .env 文件
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range []string{"ENVIRONMENT", "PORT", "TEAM_SIZE", "BUSINESS_TIMEZONE", "ALLOWED_ORIGINS", "USE_LOCAL_DB", "JWT_SECRET", "SUPABASE_JWT_SECRET"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 4, cfg.TeamSize)
	assert.Equal(t, "Asia/Seoul", cfg.BusinessTimezone)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, defaultJWTSecret, cfg.JWTSecret)
	assert.False(t, cfg.OAuthEnabled())
}

func TestLoadConfig_EnvFileDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("PORT=9999\nTEAM_SIZE=5\n"), 0o600))
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("PORT", "8080")
	t.Setenv("TEAM_SIZE", "")
	// godotenv 只设置未定义的变量；空值视为已定义，先移除
	os.Unsetenv("TEAM_SIZE")

	cfg := LoadConfig()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5, cfg.TeamSize)
}

func TestLoadConfig_SupabaseSecretWins(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SUPABASE_JWT_SECRET", "supabase-secret")
	t.Setenv("JWT_SECRET", "local-secret")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := LoadConfig()
	assert.Equal(t, "supabase-secret", cfg.JWTSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Port: "3000", JWTSecret: "s", TeamSize: 4}
	assert.Error(t, cfg.Validate())

	cfg.UseLocalDB = true
	assert.NoError(t, cfg.Validate())

	cfg.TeamSize = 1
	assert.Error(t, cfg.Validate())

	prod := &Config{Environment: "production", Port: "3000", JWTSecret: defaultJWTSecret, TeamSize: 4, PostgresDSN: "postgres://x"}
	assert.Error(t, prod.Validate())
}
