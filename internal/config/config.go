package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the API server and supporting services.
type Config struct {
	ListenAddr         string
	LogLevel           string
	MySQLDSN           string
	JWTSecret          string
	SessionTTL         time.Duration
	KIEAPIKey          string
	KIEBaseURL         string
	KIEImageModel      string
	KIEEditModel       string
	KIEVideoModel      string
	KIEChatPath        string
	KIEChatModel       string
	RequestTimeout     time.Duration
	StartingCredits    int64
	CostPerImage       int64
	CostPerEnhance     int64
	CostPerEdit        int64
	CostPerVideo       int64
	CostPerChatMessage int64
	ActivityLogLimit   int
	DefaultCurrency    string
	AdminEmail         string
	AdminPassword      string
	AdminFullName      string
	AdminCredits       int64
	S3Endpoint         string
	S3Region           string
	S3AccessKey        string
	S3SecretKey        string
	S3Bucket           string
	S3PublicBaseURL    string
	S3UsePathStyle     bool
	S3Prefix           string
	TelegramBotToken   string
	TelegramChatID     int64
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	VideoPollSchedule  string
	VideoPollWorkers   int
	VideoPollBatch     int
	VideoPollLeaseTTL  time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	const defaultKIEBaseURL = "https://api.kie.ai"

	cfg := Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		SessionTTL:         time.Hour * time.Duration(getInt("SESSION_TTL_HOURS", 24)),
		KIEBaseURL:         normalizeKIEBaseURL(getEnv("KIE_BASE_URL", defaultKIEBaseURL), defaultKIEBaseURL),
		KIEImageModel:      getEnv("KIE_IMAGE_MODEL", "flux-2/pro-text-to-image"),
		KIEEditModel:       getEnv("KIE_EDIT_MODEL", "flux-2/pro-image-to-image"),
		KIEVideoModel:      getEnv("KIE_VIDEO_MODEL", "veo3_fast"),
		KIEChatPath:        getEnv("KIE_CHAT_PATH", "/api/v1/chat/completions"),
		KIEChatModel:       getEnv("KIE_CHAT_MODEL", "gemini-2.5-flash"),
		RequestTimeout:     time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 60)),
		StartingCredits:    getInt64("STARTING_CREDITS", 25),
		CostPerImage:       getInt64("COST_PER_IMAGE", 5),
		CostPerEnhance:     getInt64("COST_PER_ENHANCE", 5),
		CostPerEdit:        getInt64("COST_PER_EDIT", 5),
		CostPerVideo:       getInt64("COST_PER_VIDEO", 25),
		CostPerChatMessage: getInt64("COST_PER_CHAT_MESSAGE", 1),
		ActivityLogLimit:   getInt("ACTIVITY_LOG_LIMIT", 500),
		DefaultCurrency:    getEnv("DEFAULT_CURRENCY", "INR"),
		AdminEmail:         getEnv("ADMIN_EMAIL", ""),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
		AdminFullName:      getEnv("ADMIN_FULL_NAME", "Admin User"),
		AdminCredits:       getInt64("ADMIN_CREDITS", 1_000_000_000),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3Region:           os.Getenv("S3_REGION"),
		S3AccessKey:        os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:        os.Getenv("S3_SECRET_KEY"),
		S3Bucket:           os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:    os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:     getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:           getEnv("S3_PREFIX", "generations"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:     getInt64("TELEGRAM_ADMIN_CHAT_ID", 0),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getInt("REDIS_DB", 0),
		VideoPollSchedule:  getEnv("VIDEO_POLL_SCHEDULE", "@every 10s"),
		VideoPollWorkers:   getInt("VIDEO_POLL_WORKERS", 4),
		VideoPollBatch:     getInt("VIDEO_POLL_BATCH", 50),
		VideoPollLeaseTTL:  time.Second * time.Duration(getInt("VIDEO_POLL_LEASE_TTL_SECONDS", 0)),
		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 30),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 5),
	}

	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.KIEAPIKey = os.Getenv("KIE_API_KEY")

	var missing []string
	if cfg.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.KIEAPIKey == "" {
		missing = append(missing, "KIE_API_KEY")
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword == "" {
		missing = append(missing, "ADMIN_PASSWORD")
	}
	if cfg.S3Region == "" {
		missing = append(missing, "S3_REGION")
	}
	if cfg.S3AccessKey == "" {
		missing = append(missing, "S3_ACCESS_KEY")
	}
	if cfg.S3SecretKey == "" {
		missing = append(missing, "S3_SECRET_KEY")
	}
	if cfg.S3Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if cfg.S3PublicBaseURL == "" {
		missing = append(missing, "S3_PUBLIC_BASE_URL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	costs := map[string]int64{
		"COST_PER_IMAGE":        c.CostPerImage,
		"COST_PER_ENHANCE":      c.CostPerEnhance,
		"COST_PER_EDIT":         c.CostPerEdit,
		"COST_PER_VIDEO":        c.CostPerVideo,
		"COST_PER_CHAT_MESSAGE": c.CostPerChatMessage,
	}
	for name, cost := range costs {
		if cost <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.StartingCredits < 0 {
		errs = append(errs, errors.New("STARTING_CREDITS must not be negative"))
	}
	if c.ActivityLogLimit <= 0 {
		errs = append(errs, errors.New("ACTIVITY_LOG_LIMIT must be positive"))
	}
	if c.VideoPollWorkers <= 0 {
		errs = append(errs, errors.New("VIDEO_POLL_WORKERS must be positive"))
	}
	return errors.Join(errs...)
}

// normalizeKIEBaseURL ensures we always hit the documented API host. The root kie.ai
// domain serves the marketing site and answers API paths with HTML.
func normalizeKIEBaseURL(raw string, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		parsed.Host = parsed.Path
		parsed.Path = ""
	}

	if parsed.Host == "kie.ai" {
		parsed.Host = "api.kie.ai"
	}

	return parsed.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// loadEnvFile loads the first .env file found. Running without one is fine when the
// environment is already populated (containers, CI).
func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	return nil
}
