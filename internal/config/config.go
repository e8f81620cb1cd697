package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Bot Settings
	BotToken string
	BotName  string
	Version  string

	// Database
	DatabaseURL string
	UseDatabase bool

	// Cache / downloads
	CacheDir        string
	YtDlpPath       string
	DownloadTimeout time.Duration

	// Queue persistence
	SnapshotInterval time.Duration

	// Streams
	StreamEndpoint string
	StreamMirrors  []string

	// Remote file service (database-stored tracks)
	WebAPIBase string
	WebAPIKey  string

	// Spotify (optional)
	SpotifyClientID     string
	SpotifyClientSecret string

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN environment variable is required")
	}
	if len(botToken) < 50 {
		return nil, fmt.Errorf("invalid BOT_TOKEN format (too short)")
	}

	// Database configuration
	databaseUser := os.Getenv("POSTGRES_USER")
	databasePassword := os.Getenv("POSTGRES_PASSWORD")
	databaseName := os.Getenv("POSTGRES_DB")
	databaseHost := os.Getenv("POSTGRES_HOST")
	databasePort := getEnvOrDefault("POSTGRES_PORT", "5432")

	useDatabase := getEnvBool("USE_DATABASE", false)
	var databaseURL string
	if useDatabase {
		databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			databaseUser, databasePassword, databaseHost, databasePort, databaseName)
	}

	cfg := &Config{
		BotToken: botToken,
		BotName:  getEnvOrDefault("BOT_NAME", "PPMusicBot"),
		Version:  getEnvOrDefault("VERSION", "3.0.0"),

		DatabaseURL: databaseURL,
		UseDatabase: useDatabase,

		CacheDir:        getEnvOrDefault("CACHE_DIR", "./cache"),
		YtDlpPath:       getEnvOrDefault("YTDLP_PATH", "yt-dlp"),
		DownloadTimeout: time.Duration(getEnvInt("DOWNLOAD_TIMEOUT_SECONDS", 60)) * time.Second,

		SnapshotInterval: time.Duration(getEnvInt("SNAPSHOT_INTERVAL_MINUTES", 30)) * time.Minute,

		StreamEndpoint: getEnvOrDefault("STREAM_ENDPOINT", ""),
		StreamMirrors:  splitList(os.Getenv("STREAM_MIRRORS")),

		WebAPIBase: getEnvOrDefault("WEB_API_BASE", ""),
		WebAPIKey:  os.Getenv("WEB_API_KEY"),

		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:  getEnvOrDefault("LOG_FILE", ""),
	}

	if err := os.MkdirAll(filepath.Join(cfg.CacheDir, "metadata"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(cfg.CacheDir, "downloads"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create downloads directory: %w", err)
	}

	return cfg, nil
}

// GetSafeToken returns a masked version of the token for logging
func (c *Config) GetSafeToken() string {
	if len(c.BotToken) < 15 {
		return "***"
	}
	return c.BotToken[:10] + "..." + c.BotToken[len(c.BotToken)-4:]
}

// SnapshotPath returns the queue snapshot file location
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.CacheDir, "activeQueues.json")
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "NO":
			return false
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
