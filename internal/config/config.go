package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the server and simulation.
type Config struct {
	Port  string
	Env   string
	Debug bool

	DBDriver string
	DBDSN    string

	JWTSecret     string
	TokenTTL      time.Duration
	AdminIdentity string
	AdminSecret   string
	DemoUsers     map[string]string

	RateLimitAuthPerMin     int
	RateLimitMutationPerMin int
	RateLimitQueryPerMin    int

	SavingsOnlyDeposits      bool
	IdempotencyTTL           time.Duration
	IdempotencySweepInterval time.Duration

	HistoryDefaultLimit int
	HistoryMaxLimit     int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DEBUG", false)
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "summit.db")
	v.SetDefault("JWT_SECRET", "summit-secret-key")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("ADMIN_IDENTITY", "admin@summit.local")
	v.SetDefault("ADMIN_SECRET", "admin-secret")
	v.SetDefault("DEMO_USERS", "")
	v.SetDefault("RATE_LIMIT_AUTH_PER_MIN", 10)
	v.SetDefault("RATE_LIMIT_MUTATION_PER_MIN", 100)
	v.SetDefault("RATE_LIMIT_QUERY_PER_MIN", 1000)
	v.SetDefault("DEPOSIT_SAVINGS_ONLY", false)
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("IDEMPOTENCY_SWEEP_INTERVAL", "10m")
	v.SetDefault("HISTORY_DEFAULT_LIMIT", 20)
	v.SetDefault("HISTORY_MAX_LIMIT", 100)
}

// Load reads configuration from the environment, optionally overlaid on a config file.
// A missing file is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", file, err)
			}
			log.Debug().Str("file", file).Msg("no config file found, using environment")
		}
	}

	cfg := &Config{
		Port:                     v.GetString("PORT"),
		Env:                      v.GetString("ENV"),
		Debug:                    v.GetBool("DEBUG"),
		DBDriver:                 strings.ToLower(v.GetString("DB_DRIVER")),
		DBDSN:                    v.GetString("DB_DSN"),
		JWTSecret:                v.GetString("JWT_SECRET"),
		TokenTTL:                 v.GetDuration("TOKEN_TTL"),
		AdminIdentity:            v.GetString("ADMIN_IDENTITY"),
		AdminSecret:              v.GetString("ADMIN_SECRET"),
		RateLimitAuthPerMin:      v.GetInt("RATE_LIMIT_AUTH_PER_MIN"),
		RateLimitMutationPerMin:  v.GetInt("RATE_LIMIT_MUTATION_PER_MIN"),
		RateLimitQueryPerMin:     v.GetInt("RATE_LIMIT_QUERY_PER_MIN"),
		SavingsOnlyDeposits:      v.GetBool("DEPOSIT_SAVINGS_ONLY"),
		IdempotencyTTL:           v.GetDuration("IDEMPOTENCY_TTL"),
		IdempotencySweepInterval: v.GetDuration("IDEMPOTENCY_SWEEP_INTERVAL"),
		HistoryDefaultLimit:      v.GetInt("HISTORY_DEFAULT_LIMIT"),
		HistoryMaxLimit:          v.GetInt("HISTORY_MAX_LIMIT"),
	}

	users, err := parseUsers(v.GetString("DEMO_USERS"))
	if err != nil {
		return nil, err
	}
	cfg.DemoUsers = users

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.HistoryDefaultLimit <= 0 || c.HistoryMaxLimit < c.HistoryDefaultLimit {
		return fmt.Errorf("invalid history limits %d/%d", c.HistoryDefaultLimit, c.HistoryMaxLimit)
	}
	return nil
}

// parseUsers reads a comma separated list of identity:secret pairs.
func parseUsers(raw string) (map[string]string, error) {
	users := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		identity, secret, ok := strings.Cut(pair, ":")
		if !ok || identity == "" || secret == "" {
			return nil, fmt.Errorf("malformed DEMO_USERS entry %q", pair)
		}
		users[identity] = secret
	}
	return users, nil
}
