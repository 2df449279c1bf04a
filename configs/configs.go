// Package configs provides application configuration loaded from
// environment variables. The config is built once at startup with Load()
// and passed by pointer into component constructors; nothing reads the
// environment after that.
package configs

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all application configuration.
type AppConfig struct {
	// ServerPort is the webhook/admin HTTP listen port.
	ServerPort string

	// MetricsAddr is the Prometheus listener address.
	MetricsAddr string

	// LogLevel is the logrus level name (debug, info, warn, error).
	LogLevel string

	// TVSharedSecret authenticates webhook submissions (X-TV-Secret).
	TVSharedSecret string

	// Pairs is the default enabled-pairs list, used until the store holds
	// an admin-managed list.
	Pairs []string

	// SupportedTimeframes are the accepted TradingView timeframe codes.
	SupportedTimeframes []string

	// AllowedEvents restricts the signal event field.
	AllowedEvents []string

	// TZDisplay is the timezone for human-readable signal timestamps.
	TZDisplay string

	Telegram TelegramConfig
	Redis    RedisConfig
	Email    EmailConfig
	Delivery DeliveryConfig
}

// TelegramConfig holds Bot API and routing settings.
type TelegramConfig struct {
	BotToken      string
	DefaultChatID string

	// SymbolChatMap and TFChatMap are the routing overrides, loaded from
	// JSON-encoded string→string env mappings.
	SymbolChatMap map[string]string
	TFChatMap     map[string]string

	// MaxRetries is the total number of send attempts per signal.
	MaxRetries int

	// RetryDelays is the wait schedule between attempts.
	RetryDelays []time.Duration

	MessagesPerSecond float64
	RequestTimeout    time.Duration
}

// RedisConfig holds idempotency store connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// IdempotencyTTL is the retention window for signal records.
	IdempotencyTTL time.Duration

	// OpTimeout bounds each store round trip.
	OpTimeout time.Duration
}

// EmailConfig holds IMAP polling settings.
type EmailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	Folder      string
	FromAddress string

	// PollInterval is the mailbox scan period.
	PollInterval time.Duration

	// Lookback is how far back each scan searches.
	Lookback time.Duration

	// MaxPerCycle caps messages inspected per poll cycle.
	MaxPerCycle int

	// RequireSecret enables per-message shared-secret authentication.
	RequireSecret bool
	SharedSecret  string
}

// DeliveryConfig tunes the background delivery worker pool.
type DeliveryConfig struct {
	Workers   int
	QueueSize int
}

// Load loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development). Call
// this once at application startup.
func Load() *AppConfig {
	_ = godotenv.Load() // Ignore error - .env is optional

	return &AppConfig{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		MetricsAddr:         getEnv("METRICS_ADDR", ":9100"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		TVSharedSecret:      getEnv("TV_SHARED_SECRET", ""),
		Pairs:               getEnvList("DEFAULT_PAIRS", "BTCUSDT,ETHUSDT,ETHBTC,ADAUSDT", true),
		SupportedTimeframes: getEnvList("SUPPORTED_TIMEFRAMES", "5,15,60,240,D", false),
		AllowedEvents:       getEnvList("ALLOWED_EVENTS", "EMA_BOUNCE_BUY", false),
		TZDisplay:           getEnv("TZ_DISPLAY", "Europe/London"),
		Telegram: TelegramConfig{
			BotToken:          getEnv("TELEGRAM_BOT_TOKEN", ""),
			DefaultChatID:     getEnv("TELEGRAM_CHAT_ID_DEFAULT", ""),
			SymbolChatMap:     getEnvJSONMap("TELEGRAM_SYMBOL_CHAT_MAP"),
			TFChatMap:         getEnvJSONMap("TELEGRAM_TF_CHAT_MAP"),
			MaxRetries:        getEnvInt("TELEGRAM_MAX_RETRIES", 3),
			RetryDelays:       getEnvDelays("TELEGRAM_RETRY_DELAYS", "1,2,4"),
			MessagesPerSecond: getEnvFloat("TELEGRAM_MESSAGES_PER_SECOND", 30),
			RequestTimeout:    getEnvSeconds("TELEGRAM_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", "localhost:6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvInt("REDIS_DB", 0),
			IdempotencyTTL: time.Duration(getEnvInt("IDEMPOTENCY_TTL_DAYS", 7)) * 24 * time.Hour,
			OpTimeout:      getEnvSeconds("REDIS_OP_TIMEOUT_SECONDS", 10),
		},
		Email: EmailConfig{
			Host:          getEnv("IMAP_HOST", "imap.gmail.com"),
			Port:          getEnvInt("IMAP_PORT", 993),
			Username:      getEnv("IMAP_USERNAME", ""),
			Password:      getEnv("IMAP_PASSWORD", ""),
			Folder:        getEnv("IMAP_FOLDER", "TradingView"),
			FromAddress:   getEnv("IMAP_FROM", "noreply@tradingview.com"),
			PollInterval:  getEnvSeconds("EMAIL_POLL_INTERVAL_SECONDS", 60),
			Lookback:      time.Duration(getEnvInt("EMAIL_LOOKBACK_MINUTES", 5)) * time.Minute,
			MaxPerCycle:   getEnvInt("EMAIL_MAX_PER_CYCLE", 20),
			RequireSecret: getEnvBool("EMAIL_REQUIRE_SECRET", false),
			SharedSecret:  getEnv("EMAIL_SHARED_SECRET", ""),
		},
		Delivery: DeliveryConfig{
			Workers:   getEnvInt("DELIVERY_WORKERS", 2),
			QueueSize: getEnvInt("DELIVERY_QUEUE_SIZE", 64),
		},
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}

// getEnvList parses a comma-separated env value, trimming entries and
// optionally upper-casing them.
func getEnvList(key, defaultValue string, upper bool) []string {
	raw := getEnv(key, defaultValue)
	var values []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if upper {
			item = strings.ToUpper(item)
		}
		values = append(values, item)
	}
	return values
}

// getEnvJSONMap parses a JSON-encoded string→string mapping, returning an
// empty map on malformed input.
func getEnvJSONMap(key string) map[string]string {
	raw := getEnv(key, "{}")
	values := make(map[string]string)
	if raw == "" {
		return values
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return map[string]string{}
	}
	return values
}

// getEnvDelays parses a comma-separated list of delay seconds, accepting
// fractional values.
func getEnvDelays(key, defaultValue string) []time.Duration {
	raw := getEnv(key, defaultValue)
	var delays []time.Duration
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		seconds, err := strconv.ParseFloat(item, 64)
		if err != nil {
			continue
		}
		delays = append(delays, time.Duration(seconds*float64(time.Second)))
	}
	if len(delays) == 0 {
		delays = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	}
	return delays
}
