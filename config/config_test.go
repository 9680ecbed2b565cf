package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ARCHIVE_CHAT_ID", "-1001234")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.BotToken)
	assert.Equal(t, int64(-1001234), cfg.ArchiveChatID)
	assert.Equal(t, int64(0), cfg.PublicGroupID)
	assert.Equal(t, 10000, cfg.Port)
	assert.Equal(t, ":10000", cfg.Addr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.DispatchTimeout)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ARCHIVE_CHAT_ID", "-1001234")
	t.Setenv("PUBLIC_GROUP_ID", "-1005555")
	t.Setenv("PORT", "8080")
	t.Setenv("DISPATCH_TIMEOUT", "2m")
	t.Setenv("OPERATOR_JWT_SECRET", "s3cret")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, int64(-1005555), cfg.PublicGroupID)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 2*time.Minute, cfg.DispatchTimeout)
	assert.Equal(t, "s3cret", cfg.OperatorJWTSecret)
}

func TestParseRequiresBotSettings(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("ARCHIVE_CHAT_ID", "-1")
	_, err := Parse()
	assert.Error(t, err)

	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ARCHIVE_CHAT_ID", "not-a-number")
	_, err = Parse()
	assert.Error(t, err)
}

func TestParseRejectsNonPositiveTimeout(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ARCHIVE_CHAT_ID", "-1")
	t.Setenv("DISPATCH_TIMEOUT", "0s")
	_, err := Parse()
	assert.Error(t, err)
}
