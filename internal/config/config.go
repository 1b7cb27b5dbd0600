package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	// Bot configuration
	DiscordToken string
	AppID        string
	LogChannelID string
	BotOwnerID   string

	// Database configuration
	DatabaseType string // "sqlite" or "postgres"
	SqlitePath   string
	PostgresURL  string

	// Codes feed
	FeedBaseURL string

	// Scheduling
	PollInterval   time.Duration // regular ingestion cycle
	SearchInterval time.Duration // livestream hunt polling
	SearchLead     time.Duration // how long before stream time the hunt starts
	SearchTimeout  time.Duration // stalled hunt falls back to NoSchedule after this
	NotifyCooldown time.Duration // minimum gap between repeated failure warnings
	FanoutWorkers  int

	// Application settings
	Debug bool
)

func Load() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file, falling back to environment variables")
	}

	// Bot configuration
	DiscordToken = os.Getenv("DISCORD_TOKEN")
	AppID = os.Getenv("APP_ID")
	LogChannelID = os.Getenv("LOG_CHANNEL_ID")
	BotOwnerID = os.Getenv("BOT_OWNER_ID")

	if DiscordToken == "" || AppID == "" {
		log.Fatal("Missing required environment variables")
	}

	// Database configuration
	DatabaseType = os.Getenv("DB_TYPE")
	if DatabaseType == "" {
		DatabaseType = "sqlite" // Default to SQLite
	}

	SqlitePath = os.Getenv("SQLITE_PATH")
	if SqlitePath == "" && DatabaseType == "sqlite" {
		SqlitePath = "bot.db" // Default path
	}

	PostgresURL = os.Getenv("POSTGRES_URL")
	if PostgresURL == "" && DatabaseType == "postgres" {
		log.Fatal("POSTGRES_URL environment variable required when using postgres")
	}

	FeedBaseURL = os.Getenv("FEED_BASE_URL")
	if FeedBaseURL == "" {
		FeedBaseURL = "https://hoyo-codes.seria.moe"
	}

	PollInterval = durationEnv("POLL_INTERVAL", 5*time.Minute)
	SearchInterval = durationEnv("SEARCH_INTERVAL", time.Minute)
	SearchLead = durationEnv("SEARCH_LEAD", 15*time.Minute)
	SearchTimeout = durationEnv("SEARCH_TIMEOUT", 6*time.Hour)
	NotifyCooldown = durationEnv("NOTIFY_COOLDOWN", 24*time.Hour)
	FanoutWorkers = intEnv("FANOUT_WORKERS", 8)

	// Application settings
	debugStr := os.Getenv("DEBUG")
	Debug, _ = strconv.ParseBool(debugStr)
}

// GetDatabaseConnectionString returns the database connection string based on database type
func GetDatabaseConnectionString() string {
	switch DatabaseType {
	case "postgres":
		return PostgresURL
	default:
		return SqlitePath
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %s", key, raw, fallback)
		return fallback
	}
	return d
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		log.Printf("Warning: invalid %s=%q, using default %d", key, raw, fallback)
		return fallback
	}
	return n
}
