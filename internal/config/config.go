package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"showcase-tracker/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"golang.org/x/text/language"
)

const (
	ProviderEnka    = "enka"
	ProviderMicroGG = "microgg"
)

type Config struct {
	DataDir          string
	LookupDir        string
	GameVersions     []string
	DBPath           string
	ServerPort       string
	LogLevel         string
	SnapshotProvider string
	EnableAkasha     bool
	WorkerCount      int
	WorkerQueueSize  int
	Language         string
	OTelEndpoint     string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DataDir:          getEnv("DATA_DIR", "data/players"),
		LookupDir:        getEnv("LOOKUP_DIR", "data/map"),
		GameVersions:     splitList(getEnv("GAME_VERSIONS", "4.1,4.0")),
		DBPath:           getEnv("DB_PATH", "showcase.db"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		SnapshotProvider: strings.ToLower(getEnv("SNAPSHOT_PROVIDER", ProviderEnka)),
		Language:         getEnv("LANGUAGE", "zh-Hans"),
		OTelEndpoint:     getEnv("OTEL_ENDPOINT", ""),
	}

	var err error
	if cfg.EnableAkasha, err = getBool("ENABLE_AKASHA", false); err != nil {
		return nil, err
	}
	if cfg.WorkerCount, err = getInt("WORKER_COUNT", constants.DefaultWorkerCount); err != nil {
		return nil, err
	}
	if cfg.WorkerQueueSize, err = getInt("WORKER_QUEUE_SIZE", constants.DefaultWorkerQueueSize); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("data_dir", cfg.DataDir).
		Str("lookup_dir", cfg.LookupDir).
		Strs("game_versions", cfg.GameVersions).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("snapshot_provider", cfg.SnapshotProvider).
		Bool("enable_akasha", cfg.EnableAkasha).
		Int("worker_count", cfg.WorkerCount).
		Int("worker_queue_size", cfg.WorkerQueueSize).
		Str("language", cfg.Language).
		Bool("tracing", cfg.OTelEndpoint != "").
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.SnapshotProvider {
	case ProviderEnka, ProviderMicroGG:
	default:
		return fmt.Errorf("SNAPSHOT_PROVIDER must be %q or %q, got %q", ProviderEnka, ProviderMicroGG, c.SnapshotProvider)
	}
	if len(c.GameVersions) == 0 {
		return fmt.Errorf("GAME_VERSIONS must name at least one version")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}
	if c.WorkerQueueSize < 0 {
		return fmt.Errorf("WORKER_QUEUE_SIZE must not be negative, got %d", c.WorkerQueueSize)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if _, err := language.Parse(c.Language); err != nil {
		return fmt.Errorf("LANGUAGE: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var Module = fx.Provide(Load)
