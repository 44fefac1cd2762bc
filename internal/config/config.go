// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Publish targets.
const (
	TargetLocal     = "local"
	TargetWordPress = "wordpress"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath    string
	LogLevel        string
	SiteURL         string
	ScheduleSpec    string
	CampaignWorkers int
	ItemWorkers     int
	UserAgent       string

	PublishTarget        string
	AssetDir             string
	WordPressURL         string
	WordPressUser        string
	WordPressAppPassword string
	PublishRate          float64

	OpenAIKey      string
	OpenAIModel    string
	GeminiKey      string
	GeminiModel    string
	AnthropicKey   string
	AnthropicModel string

	TelegramBotToken string
	TelegramChatID   int64
	AllowedUsers     []int64

	HTTPAddr string
}

// LoadDotEnv seeds the environment from the given .env files. Missing files
// are ignored; variables already set are not overridden.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:         envOr("DATABASE_PATH", "./data/autoblog.db"),
		LogLevel:             envOr("LOG_LEVEL", "info"),
		SiteURL:              envOr("SITE_URL", "http://localhost"),
		ScheduleSpec:         envOr("SCHEDULE_SPEC", "@every 1m"),
		UserAgent:            envOr("USER_AGENT", "AutoBlog/1.0"),
		PublishTarget:        envOr("PUBLISH_TARGET", TargetLocal),
		AssetDir:             envOr("ASSET_DIR", "./data/assets"),
		WordPressURL:         strings.TrimRight(os.Getenv("WORDPRESS_URL"), "/"),
		WordPressUser:        os.Getenv("WORDPRESS_USER"),
		WordPressAppPassword: os.Getenv("WORDPRESS_APP_PASSWORD"),
		OpenAIKey:            os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:          envOr("OPENAI_MODEL", "gpt-4"),
		GeminiKey:            os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          envOr("GEMINI_MODEL", "gemini-1.5-flash"),
		AnthropicKey:         os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:       envOr("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		TelegramBotToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		HTTPAddr:             os.Getenv("HTTP_ADDR"),
	}

	var err error
	if cfg.CampaignWorkers, err = envInt("CAMPAIGN_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.ItemWorkers, err = envInt("ITEM_WORKERS", 1); err != nil {
		return nil, err
	}
	if cfg.CampaignWorkers < 1 || cfg.ItemWorkers < 1 {
		return nil, fmt.Errorf("CAMPAIGN_WORKERS and ITEM_WORKERS must be at least 1")
	}

	cfg.PublishRate = 2
	if raw := os.Getenv("PUBLISH_RATE"); raw != "" {
		cfg.PublishRate, err = strconv.ParseFloat(raw, 64)
		if err != nil || cfg.PublishRate <= 0 {
			return nil, fmt.Errorf("invalid PUBLISH_RATE %q", raw)
		}
	}

	switch cfg.PublishTarget {
	case TargetLocal:
	case TargetWordPress:
		if cfg.WordPressURL == "" || cfg.WordPressUser == "" || cfg.WordPressAppPassword == "" {
			return nil, fmt.Errorf("WORDPRESS_URL, WORDPRESS_USER and WORDPRESS_APP_PASSWORD are required for the wordpress target")
		}
	default:
		return nil, fmt.Errorf("unknown PUBLISH_TARGET %q", cfg.PublishTarget)
	}

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		cfg.TelegramChatID, err = strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
	}

	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			cfg.AllowedUsers = append(cfg.AllowedUsers, uid)
		}
	}

	return cfg, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}
