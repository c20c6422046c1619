package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server
	ServerPort string

	// Paths
	StoragePath  string // course storage root
	DatabaseFile string // $CONFIG_DIR/acms.db
	CookiesFile  string // $CONFIG_DIR/cookies.json

	// Download
	DownloadRetryAttempts       int
	DownloadRetryBackoffSeconds int
	RequestTimeoutSeconds       int
	DownloadSpeedLimitKB        int // 0 disables the cap
	DownloadTimeoutMinutes      int // minutes before a "downloading" asset is considered stale
	MaxConcurrentDownloads      int
	UserAgent                   string
	RefererHost                 string // host suffix that requires a Referer header
	RefererURL                  string

	// Matching
	FuzzyMatchThreshold float64

	// Subtitles
	SubtitleShiftMs int

	// Task queue (optional; empty disables the distributed dispatcher)
	RedisAddr string

	// AI translation (optional)
	OpenAIAPIKey string
	OpenAIModel  string

	// Logging
	LogLevel string
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Safari/537.36"

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DOWNLOAD_RETRY_ATTEMPTS", 3)
	viper.SetDefault("DOWNLOAD_RETRY_BACKOFF_SECONDS", 2)
	viper.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	viper.SetDefault("DOWNLOAD_SPEED_LIMIT_KB", 0)
	viper.SetDefault("DOWNLOAD_TIMEOUT_MINUTES", 30)
	viper.SetDefault("MAX_CONCURRENT_DOWNLOADS", 3)
	viper.SetDefault("USER_AGENT", defaultUserAgent)
	viper.SetDefault("REFERER_HOST", "git.ir")
	viper.SetDefault("REFERER_URL", "https://git.ir/")
	viper.SetDefault("FUZZY_MATCH_THRESHOLD", 0.85)
	viper.SetDefault("SUBTITLE_SHIFT_MS", 0)
	viper.SetDefault("OPENAI_MODEL", "gpt-4o-mini")

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "acms")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	storagePath := viper.GetString("STORAGE_PATH")
	if storagePath == "" {
		storagePath = filepath.Join(configDir, "storage")
	} else {
		absPath, err := filepath.Abs(storagePath)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for STORAGE_PATH: %w", err)
		}
		storagePath = absPath
	}

	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	config := &Config{
		ServerPort: viper.GetString("SERVER_PORT"),

		StoragePath:  storagePath,
		DatabaseFile: filepath.Join(configDir, "acms.db"),
		CookiesFile:  filepath.Join(configDir, "cookies.json"),

		DownloadRetryAttempts:       viper.GetInt("DOWNLOAD_RETRY_ATTEMPTS"),
		DownloadRetryBackoffSeconds: viper.GetInt("DOWNLOAD_RETRY_BACKOFF_SECONDS"),
		RequestTimeoutSeconds:       viper.GetInt("REQUEST_TIMEOUT_SECONDS"),
		DownloadSpeedLimitKB:        viper.GetInt("DOWNLOAD_SPEED_LIMIT_KB"),
		DownloadTimeoutMinutes:      viper.GetInt("DOWNLOAD_TIMEOUT_MINUTES"),
		MaxConcurrentDownloads:      viper.GetInt("MAX_CONCURRENT_DOWNLOADS"),
		UserAgent:                   viper.GetString("USER_AGENT"),
		RefererHost:                 viper.GetString("REFERER_HOST"),
		RefererURL:                  viper.GetString("REFERER_URL"),

		FuzzyMatchThreshold: viper.GetFloat64("FUZZY_MATCH_THRESHOLD"),
		SubtitleShiftMs:     viper.GetInt("SUBTITLE_SHIFT_MS"),

		RedisAddr: viper.GetString("REDIS_ADDR"),

		OpenAIAPIKey: viper.GetString("OPENAI_API_KEY"),
		OpenAIModel:  viper.GetString("OPENAI_MODEL"),

		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	if config.DownloadRetryAttempts < 1 {
		return nil, fmt.Errorf("DOWNLOAD_RETRY_ATTEMPTS must be at least 1")
	}
	if config.FuzzyMatchThreshold <= 0 || config.FuzzyMatchThreshold > 1 {
		return nil, fmt.Errorf("FUZZY_MATCH_THRESHOLD must be in (0, 1]")
	}

	return config, nil
}
