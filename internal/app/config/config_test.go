package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"prmonitor/internal/app/config"
	"prmonitor/internal/domain/tracker"
)

func setRequired(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg-token")
	t.Setenv("GITHUB_TOKEN", "gh-token")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001234567890")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/prmonitor")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, int64(-1001234567890), cfg.ChatID)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, time.Minute, cfg.PollInterval)
	require.Empty(t, cfg.Repos)
	require.Empty(t, cfg.IgnoredRepos)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("POLL_INTERVAL", "30s")
	t.Setenv("GITHUB_REPOS", "acme/api, acme/web")
	t.Setenv("IGNORED_REPOS", "acme/sandbox")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr)
	require.Equal(t, 30*time.Second, cfg.PollInterval)
	require.Equal(t, []tracker.RepoRef{
		{Owner: "acme", Name: "api"},
		{Owner: "acme", Name: "web"},
	}, cfg.Repos)
	require.Equal(t, []tracker.RepoRef{{Owner: "acme", Name: "sandbox"}}, cfg.IgnoredRepos)
}

func TestLoad_MissingRequired(t *testing.T) {
	cases := []string{"TELEGRAM_BOT_TOKEN", "GITHUB_TOKEN", "TELEGRAM_CHAT_ID", "DATABASE_URL"}
	for _, missing := range cases {
		t.Run(missing, func(t *testing.T) {
			setRequired(t)
			t.Setenv(missing, "")

			_, err := config.Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_InvalidRepo(t *testing.T) {
	setRequired(t)
	t.Setenv("GITHUB_REPOS", "not-a-repo")

	_, err := config.Load()
	require.Error(t, err)
}
