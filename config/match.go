package config

import (
	"fmt"
	"os"
	"strconv"

	"runeRelicServer/game"

	"gopkg.in/yaml.v3"
)

/* =========================
   MATCH CONFIG (YAML)
========================= */

var ErrInvalidMatchConfig = game.ErrInvalidConfig

// LoadMatchConfig reads gameplay tuning from a YAML file. Keys that are
// absent keep their default. Fixed-point fields are raw Q16.16 integers so
// the file maps one-to-one onto the hashed config. An empty path returns
// the defaults.
func LoadMatchConfig(path string) (game.MatchConfig, error) {
	cfg := game.DefaultMatchConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read match config: %w", err)
	}
	return ParseMatchConfig(data)
}

// ParseMatchConfig overlays YAML onto the defaults and validates the result.
func ParseMatchConfig(data []byte) (game.MatchConfig, error) {
	cfg := game.DefaultMatchConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse match config: %w", err)
	}
	if err := ValidateMatchConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ValidateMatchConfig applies the same bounds the verifier enforces on
// transcripts, so the server never records a match it would refuse to replay.
func ValidateMatchConfig(cfg game.MatchConfig) error {
	return cfg.Validate()
}

/* =========================
   ENVIRONMENT
========================= */

// Settings is everything main reads from the environment.
type Settings struct {
	Port             string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	RPCURL           string
	ChainID          int64
	AnchorPrivateKey string
	AnchorAddress    string
	ArchiveDir       string
	MatchConfigPath  string
}

// SettingsFromEnv reads Settings; call after godotenv.Load.
func SettingsFromEnv() Settings {
	return Settings{
		Port:             GetEnv("PORT", DefaultPort),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		NATSURL:          os.Getenv("NATS_URL"),
		RPCURL:           os.Getenv("RPC_URL"),
		ChainID:          int64(GetEnvInt("CHAIN_ID", DefaultChainID)),
		AnchorPrivateKey: os.Getenv("ANCHOR_PRIVATE_KEY"),
		AnchorAddress:    GetEnv("ANCHOR_ADDRESS", DefaultAnchorAddress),
		ArchiveDir:       GetEnv("ARCHIVE_DIR", DefaultArchiveDir),
		MatchConfigPath:  os.Getenv("MATCH_CONFIG"),
	}
}

func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
