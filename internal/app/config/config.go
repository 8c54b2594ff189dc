package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"prmonitor/internal/domain/tracker"
)

type Config struct {
	TelegramToken string
	GitHubToken   string
	ChatID        int64

	Repos        []tracker.RepoRef
	IgnoredRepos []tracker.RepoRef

	DatabaseURL  string
	HTTPAddr     string
	PollInterval time.Duration
}

func Load() (Config, error) {
	// Local development reads a .env file; in production the variables
	// come from the environment directly.
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return Config{}, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	ghToken := os.Getenv("GITHUB_TOKEN")
	if ghToken == "" {
		return Config{}, fmt.Errorf("GITHUB_TOKEN is required")
	}

	chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("TELEGRAM_CHAT_ID must be a valid integer: %w", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	interval := time.Minute
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		interval, err = time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("POLL_INTERVAL is not a duration: %w", err)
		}
	}

	repos, err := parseRepos(os.Getenv("GITHUB_REPOS"))
	if err != nil {
		return Config{}, err
	}
	ignored, err := parseRepos(os.Getenv("IGNORED_REPOS"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		TelegramToken: token,
		GitHubToken:   ghToken,
		ChatID:        chatID,
		Repos:         repos,
		IgnoredRepos:  ignored,
		DatabaseURL:   dbURL,
		HTTPAddr:      addr,
		PollInterval:  interval,
	}, nil
}

func parseRepos(raw string) ([]tracker.RepoRef, error) {
	if raw == "" {
		return nil, nil
	}

	var refs []tracker.RepoRef
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		owner, name, ok := tracker.SplitRepo(item)
		if !ok {
			return nil, fmt.Errorf("invalid repository %q, want owner/name", item)
		}
		refs = append(refs, tracker.RepoRef{Owner: owner, Name: name})
	}
	return refs, nil
}
