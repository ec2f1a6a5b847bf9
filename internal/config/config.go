package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mastery-tracker/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	MockMode     bool
	RiotAPIKey   string
	ServerPort   string
	LogLevel     string
	MockDataPath string
	StaticDir    string
	DBPath       string
	BackupDir    string

	QueueMinDelay      time.Duration
	RetryBackoff       time.Duration
	MaxRetries         int
	CallTimeout        time.Duration
	AppRateLimit       RateWindow
	AccountCluster     string
	MatchCountCeiling  int
	AccountConcurrency int
	ChampionCacheTTL   time.Duration
}

// RateWindow is a request budget such as "100/2m". Zero Requests disables it.
type RateWindow struct {
	Requests int
	Window   time.Duration
}

func (w RateWindow) String() string {
	if w.Requests <= 0 {
		return "off"
	}
	return fmt.Sprintf("%d/%s", w.Requests, w.Window)
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		MockMode:       getEnv("MOCK_MODE", "false") == "true",
		RiotAPIKey:     strings.TrimSpace(getEnv("RIOT_API_KEY", "")),
		ServerPort:     getEnv("PORT", getEnv("SERVER_PORT", "4000")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		MockDataPath:   getEnv("MOCK_DATA_PATH", ""),
		StaticDir:      getEnv("STATIC_DIR", "public"),
		DBPath:         getEnv("DB_PATH", "mastery.db"),
		BackupDir:      getEnv("BACKUP_DIR", ""),
		AccountCluster: strings.ToLower(getEnv("RIOT_ACCOUNT_CLUSTER", constants.DefaultAccountCluster)),
	}

	var err error
	if cfg.QueueMinDelay, err = getDuration("RIOT_MIN_DELAY", constants.DefaultQueueMinDelay); err != nil {
		return nil, err
	}
	if cfg.RetryBackoff, err = getDuration("RIOT_RETRY_BACKOFF", constants.DefaultRetryBackoff); err != nil {
		return nil, err
	}
	if cfg.CallTimeout, err = getDuration("RIOT_CALL_TIMEOUT", constants.ExternalAPITimeout); err != nil {
		return nil, err
	}
	if cfg.ChampionCacheTTL, err = getDuration("DDRAGON_TTL", constants.ChampionCacheTTL); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = getInt("RIOT_MAX_RETRIES", constants.DefaultMaxRetries); err != nil {
		return nil, err
	}
	if cfg.MatchCountCeiling, err = getInt("MATCH_COUNT_CEILING", constants.DefaultMatchCountCeiling); err != nil {
		return nil, err
	}
	if cfg.AccountConcurrency, err = getInt("ACCOUNT_CONCURRENCY", constants.DefaultAccountParallel); err != nil {
		return nil, err
	}
	if cfg.AppRateLimit, err = ParseRateWindow(getEnv("RIOT_APP_RATE_LIMIT", constants.DefaultAppRateLimit)); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Bool("mock_mode", cfg.MockMode).
		Str("api_key", MaskKey(cfg.RiotAPIKey)).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("db_path", cfg.DBPath).
		Dur("queue_min_delay", cfg.QueueMinDelay).
		Int("max_retries", cfg.MaxRetries).
		Stringer("app_rate_limit", cfg.AppRateLimit).
		Int("match_count_ceiling", cfg.MatchCountCeiling).
		Int("account_concurrency", cfg.AccountConcurrency).
		Msg("configuration loaded")

	return cfg, nil
}

// LoadStore reads only the settings the offline manual store needs, so
// tooling can run without Riot credentials.
func LoadStore(logger zerolog.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}
	return &Config{
		MockMode:  true,
		DBPath:    getEnv("DB_PATH", "mastery.db"),
		BackupDir: getEnv("BACKUP_DIR", ""),
	}
}

func (c *Config) validate() error {
	if !c.MockMode {
		if c.RiotAPIKey == "" {
			return fmt.Errorf("RIOT_API_KEY is required when MOCK_MODE is not true")
		}
		if !strings.HasPrefix(c.RiotAPIKey, constants.APIKeyPrefix) {
			return fmt.Errorf("RIOT_API_KEY must start with %s", constants.APIKeyPrefix)
		}
	}
	if c.QueueMinDelay < 0 {
		return fmt.Errorf("RIOT_MIN_DELAY must not be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("RIOT_MAX_RETRIES must not be negative")
	}
	if c.MatchCountCeiling <= 0 {
		return fmt.Errorf("MATCH_COUNT_CEILING must be positive")
	}
	if c.AccountConcurrency <= 0 {
		return fmt.Errorf("ACCOUNT_CONCURRENCY must be positive")
	}
	return nil
}

// ParseRateWindow parses "<requests>/<duration>". "off" and "" disable the budget.
func ParseRateWindow(s string) (RateWindow, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "off" {
		return RateWindow{}, nil
	}
	reqStr, windowStr, ok := strings.Cut(s, "/")
	if !ok {
		return RateWindow{}, fmt.Errorf("invalid rate window %q: expected <requests>/<duration>", s)
	}
	requests, err := strconv.Atoi(reqStr)
	if err != nil || requests <= 0 {
		return RateWindow{}, fmt.Errorf("invalid rate window %q: bad request count", s)
	}
	window, err := time.ParseDuration(windowStr)
	if err != nil || window <= 0 {
		return RateWindow{}, fmt.Errorf("invalid rate window %q: bad duration", s)
	}
	return RateWindow{Requests: requests, Window: window}, nil
}

// MaskKey keeps only the first ten characters of a secret for logging.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 10 {
		return "***"
	}
	return key[:10] + "..."
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

var Module = fx.Provide(Load)
