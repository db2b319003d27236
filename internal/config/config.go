package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig       `mapstructure:"app"`
	Server   ServerConfig    `mapstructure:"server"`
	Log      LogConfig       `mapstructure:"log"`
	DB       DBConfig        `mapstructure:"db"`
	Redis    RedisConfig     `mapstructure:"redis"`
	Auth     AuthConfig      `mapstructure:"auth"`
	Feed     FeedConfig      `mapstructure:"feed"`
	Round    RoundConfig     `mapstructure:"round"`
	Cron     CronConfig      `mapstructure:"cron"`
	Assist   AssistantConfig `mapstructure:"assistant"`
	Rewards  []RewardConfig  `mapstructure:"rewards"`
	Sponsors []string        `mapstructure:"sponsors"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

// DBConfig selects the document store backend. Driver "memory" keeps
// everything in process and ignores the pool settings.
type DBConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	GuardTTL time.Duration `mapstructure:"guard_ttl"`
}

type AuthConfig struct {
	Disabled  bool          `mapstructure:"disabled"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type FeedConfig struct {
	SendTimeout time.Duration `mapstructure:"send_timeout"`
	Buffer      int           `mapstructure:"buffer"`
	// OriginPatterns lists browser origins allowed to open the socket.
	OriginPatterns []string `mapstructure:"origin_patterns"`
}

type RoundConfig struct {
	MaxOpen         time.Duration `mapstructure:"max_open"`
	DefaultDonation string        `mapstructure:"default_donation"`
	MaxDonation     string        `mapstructure:"max_donation"`
	StartingCoins   int64         `mapstructure:"starting_coins"`
	// WinCoins is credited to every player whose option wins a round.
	WinCoins int64 `mapstructure:"win_coins"`
}

type AssistantConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CronConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	StaleSweep string `mapstructure:"stale_sweep"`
}

type RewardConfig struct {
	ID          string `mapstructure:"id"`
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	Cost        int64  `mapstructure:"cost"`
}

func DefaultSponsors() []string {
	return []string{"State Farm", "Coca-Cola", "Nike", "Delta", "Home Depot"}
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.guard_ttl", "24h")
	v.SetDefault("auth.disabled", false)
	v.SetDefault("auth.jwt_secret", "dev-secret-change-me")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("feed.send_timeout", "5s")
	v.SetDefault("feed.buffer", 16)
	v.SetDefault("feed.origin_patterns", []string{"*"})
	v.SetDefault("round.max_open", "10m")
	v.SetDefault("round.default_donation", "5")
	v.SetDefault("round.max_donation", "100")
	v.SetDefault("round.starting_coins", 100)
	v.SetDefault("round.win_coins", 10)
	v.SetDefault("assistant.api_key", "")
	v.SetDefault("assistant.base_url", "")
	v.SetDefault("assistant.model", "gpt-4o-mini")
	v.SetDefault("assistant.timeout", "30s")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.stale_sweep", "@every 1m")
	v.SetDefault("sponsors", DefaultSponsors())

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if len(cfg.Sponsors) == 0 {
		cfg.Sponsors = DefaultSponsors()
	}

	return cfg, nil
}
