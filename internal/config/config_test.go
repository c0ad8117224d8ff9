package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:      AppConfig{Environment: "development"},
		Logger:   LoggerConfig{Level: "info"},
		Metadata: MetadataConfig{BasePath: "/var/lib/studytrack"},
		Store:    StoreConfig{Backend: StoreBadger},
		OTP:      OTPConfig{TTL: 5 * time.Minute, Digits: 6},
		Mail:     MailConfig{Mode: MailModeLog},
		Auth: AuthConfig{
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 168 * time.Hour,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown environment", func(c *Config) { c.App.Environment = "test" }},
		{"uppercase environment", func(c *Config) { c.App.Environment = "DEVELOPMENT" }},
		{"bad log level", func(c *Config) { c.Logger.Level = "verbose" }},
		{"empty metadata path", func(c *Config) { c.Metadata.BasePath = "" }},
		{"unknown store", func(c *Config) { c.Store.Backend = "mongo" }},
		{"unknown mail mode", func(c *Config) { c.Mail.Mode = "pigeon" }},
		{"too few otp digits", func(c *Config) { c.OTP.Digits = 2 }},
		{"refresh shorter than access", func(c *Config) { c.Auth.RefreshTokenDuration = time.Minute }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load([]string{"-metadata-path", dir, "-env-file", filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StoreBadger, cfg.Store.Backend)
	assert.Equal(t, MailModeLog, cfg.Mail.Mode)
	assert.Equal(t, 6, cfg.OTP.Digits)
	assert.Equal(t, 5*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, dir, cfg.Metadata.BasePath)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PORT=7000\nSTORE_BACKEND=sqlite\nMAIL_QUEUE=from-dotenv\n"), 0o600))

	t.Setenv("PORT", "9000")
	// Register cleanup for keys the .env file will set, then clear them.
	for _, key := range []string{"STORE_BACKEND", "MAIL_QUEUE"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load([]string{"-metadata-path", dir, "-env-file", envFile, "-store", "badger"})
	require.NoError(t, err)

	// Flag beats .env.
	assert.Equal(t, StoreBadger, cfg.Store.Backend)
	// Env beats .env.
	assert.Equal(t, "9000", cfg.Server.Port)
	// .env beats default.
	assert.Equal(t, "from-dotenv", cfg.Mail.Queue)
}

func TestLoad_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	_, err := Load([]string{"-metadata-path", dir, "-access-token-duration", "soon", "-env-file", filepath.Join(dir, "none")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_DURATION")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/study", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "study"), got)

	got, err = expandPath("", "/fallback")
	require.NoError(t, err)
	assert.Equal(t, "/fallback", got)
}

func TestGetIntConfigValue(t *testing.T) {
	t.Setenv("STUDY_TEST_INT", "12")
	assert.Equal(t, 12, getIntConfigValue("", "STUDY_TEST_INT", 3))
	assert.Equal(t, 4, getIntConfigValue("4", "STUDY_TEST_INT", 3))

	t.Setenv("STUDY_TEST_INT", "twelve")
	assert.Equal(t, 3, getIntConfigValue("", "STUDY_TEST_INT", 3))
}
