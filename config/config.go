package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Universe
	Symbols     []string
	BarInterval string
	BarLimit    int
	Source      string // "binance" or "angel"
	RefreshSpec string // cron spec, e.g. "@every 1m"
	Session     string // "nse" pauses refreshes outside NSE hours; "" never pauses

	// Pacing
	AnalysisMinInterval time.Duration
	CandleMinInterval   time.Duration

	// Analysis service
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	// Angel One credentials
	AngelAPIKey     string
	AngelClientCode string
	AngelPassword   string
	AngelTOTPSecret string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	BarCacheTTL   time.Duration
	SQLitePath    string
	HTTPAddr      string
	MetricsAddr   string
	BinanceURL    string

	// Alerts
	WebhookURL       string
	TelegramBotToken string
	TelegramChatID   string

	LogLevel string
}

// Load reads .env (if present) and then the environment, applying defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}

	cfg := &Config{
		Symbols:     parseList(getEnv("SYMBOLS", "BTCUSDT,ETHUSDT")),
		BarInterval: getEnv("BAR_INTERVAL", "5m"),
		BarLimit:    getInt("BAR_LIMIT", 200),
		Source:      strings.ToLower(getEnv("SOURCE", "binance")),
		RefreshSpec: getEnv("REFRESH_SPEC", "@every 1m"),

		AnalysisMinInterval: getDuration("ANALYSIS_MIN_INTERVAL", 4*time.Second),
		CandleMinInterval:   getDuration("CANDLE_MIN_INTERVAL", 350*time.Millisecond),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		AngelAPIKey:     getEnv("ANGEL_API_KEY", ""),
		AngelClientCode: getEnv("ANGEL_CLIENT_CODE", ""),
		AngelPassword:   getEnv("ANGEL_PASSWORD", ""),
		AngelTOTPSecret: getEnv("ANGEL_TOTP_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		BarCacheTTL:   getDuration("BAR_CACHE_TTL", 30*time.Second),
		SQLitePath:    getEnv("SQLITE_PATH", "data/signald.db"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		BinanceURL:    getEnv("BINANCE_BASE_URL", ""),

		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	defaultSession := ""
	if cfg.Source == "angel" {
		defaultSession = "nse"
	}
	cfg.Session = strings.ToLower(getEnv("MARKET_SESSION", defaultSession))
	return cfg, cfg.Validate()
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Symbols) == 0 {
		errs = append(errs, errors.New("config: SYMBOLS is empty"))
	}
	if c.BarLimit <= 0 {
		errs = append(errs, errors.New("config: BAR_LIMIT must be positive"))
	}
	switch c.Source {
	case "binance":
	case "angel":
		if c.AngelAPIKey == "" || c.AngelClientCode == "" || c.AngelPassword == "" || c.AngelTOTPSecret == "" {
			errs = append(errs, errors.New("config: SOURCE=angel requires ANGEL_API_KEY, ANGEL_CLIENT_CODE, ANGEL_PASSWORD and ANGEL_TOTP_SECRET"))
		}
	default:
		errs = append(errs, errors.New("config: SOURCE must be binance or angel, got "+strconv.Quote(c.Source)))
	}
	if c.Session != "" && c.Session != "nse" {
		errs = append(errs, errors.New("config: MARKET_SESSION must be nse or empty, got "+strconv.Quote(c.Session)))
	}
	return errors.Join(errs...)
}

func parseList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}
