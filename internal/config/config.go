// Package config loads server settings from the environment (and a .env
// file when present).
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port      string `env:"PORT"       envDefault:"5175"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	DBPath string `env:"DB_PATH" envDefault:"./data/idiomchain.db"`
	// CuratedCorpusFile overrides the embedded curated corpus.
	CuratedCorpusFile string `env:"CURATED_CORPUS_FILE"`

	ModeratorID           string `env:"MODERATOR_ID"`
	ModeratorPasswordHash string `env:"MODERATOR_PASSWORD_HASH"`
	JWTSecret             string `env:"JWT_SECRET"`
	JWTExpiresDays        int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`

	RedisURL     string `env:"REDIS_URL"`
	RedisChannel string `env:"REDIS_CHANNEL" envDefault:"idiomchain"`

	// PinyinOverrides pins contribution transcriptions, e.g.
	// "一行白鹭:yi/lu,长年累月:chang/yue".
	PinyinOverrides map[string]string `env:"PINYIN_OVERRIDES"`

	// Seed fixes the random source; 0 draws a fresh seed at startup.
	Seed uint64 `env:"SEED" envDefault:"0"`

	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"*"`
}

// Load reads .env (if any) and parses the environment into a Config.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse parses the current environment without touching .env.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ModerationEnabled reports whether moderator login can work.
func (c Config) ModerationEnabled() bool {
	return c.ModeratorID != "" && c.ModeratorPasswordHash != "" && c.JWTSecret != ""
}
