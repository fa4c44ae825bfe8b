package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	_ "github.com/spf13/viper/remote"
	"go.uber.org/fx"
)

const (
	defaultRemoteProvider = "consul"
	defaultRemoteAddr     = "127.0.0.1:8500"
	defaultRemotePath     = "readingbot/config" // e.g. <app>/<env>
)

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	NodeID     int64  `mapstructure:"NODE_ID"`
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Otel struct {
		Addr     string `mapstructure:"ADDR"`
		Protocol string `mapstructure:"PROTOCOL"`
		Insecure bool   `mapstructure:"INSECURE"`
	} `mapstructure:"OTEL"`
	Flagsmith struct {
		ApiKey string `mapstructure:"API_KEY"`
		Addr   string `mapstructure:"ADDR"`
	} `mapstructure:"FLAGSMITH"`
	Pyroscope struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"PYROSCOPE"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		AutoMigrate    bool   `mapstructure:"AUTO_MIGRATE"`
		ConnectionPool struct {
			MaxIdleConns    int           `mapstructure:"MAX_IDLE_CONNS"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Worker struct {
		Concurrency int `mapstructure:"CONCURRENCY"`
	} `mapstructure:"WORKER"`
	Telegram struct {
		BotToken   string `mapstructure:"BOT_TOKEN"`
		APIURL     string `mapstructure:"API_URL"`
		WebhookURL string `mapstructure:"WEBHOOK_URL"`
		AdminID    int64  `mapstructure:"ADMIN_ID"`
	} `mapstructure:"TELEGRAM"`
	YooKassa struct {
		ShopID        string        `mapstructure:"SHOP_ID"`
		SecretKey     string        `mapstructure:"SECRET_KEY"`
		WebhookSecret string        `mapstructure:"WEBHOOK_SECRET"`
		APIURL        string        `mapstructure:"API_URL"`
		ReturnURL     string        `mapstructure:"RETURN_URL"`
		Timeout       time.Duration `mapstructure:"TIMEOUT"`
	} `mapstructure:"YOOKASSA"`
	Payment struct {
		SweepInterval time.Duration `mapstructure:"SWEEP_INTERVAL"`
		SweepAge      time.Duration `mapstructure:"SWEEP_AGE"`
		SweepBatch    int           `mapstructure:"SWEEP_BATCH"`
	} `mapstructure:"PAYMENT"`
	Scenario struct {
		PaidLabels   []string      `mapstructure:"PAID_LABELS"`
		DefaultLabel string        `mapstructure:"DEFAULT_LABEL"`
		CacheTTL     time.Duration `mapstructure:"CACHE_TTL"`
		Dispatch     string        `mapstructure:"DISPATCH"`
		CancelTTL    time.Duration `mapstructure:"CANCEL_TTL"`
	} `mapstructure:"SCENARIO"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

// RemoteModule loads the same keys from a consul or etcd key holding YAML.
// Environment overrides still apply on top.
var RemoteModule = fx.Module("remote.config", fx.Provide(LoadRemote))

// IsPaidLabel reports whether starting a session with label consumes an
// entitlement.
func (c *Config) IsPaidLabel(label string) bool {
	for _, l := range c.Scenario.PaidLabels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "readingbot")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("NODE_ID", 1)
	v.SetDefault("HTTP_SERVER.ADDR", "8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.PORT", "5432")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("DATABASE.TIMEZONE", "UTC")
	v.SetDefault("DATABASE.CONNECTION_POOL.MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE.CONNECTION_POOL.MAX_OPEN_CONNS", 20)
	v.SetDefault("DATABASE.CONNECTION_POOL.CONN_MAX_LIFETIME", 30*time.Minute)
	v.SetDefault("DATABASE.CONNECTION_POOL.CONN_MAX_IDLE_TIME", 5*time.Minute)
	v.SetDefault("OTEL.PROTOCOL", "grpc")
	v.SetDefault("OTEL.INSECURE", true)
	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.POOL_SIZE", 10)
	v.SetDefault("REDIS.POOL_TIMEOUT", 4*time.Second)
	v.SetDefault("WORKER.CONCURRENCY", 10)
	v.SetDefault("TELEGRAM.API_URL", "https://api.telegram.org")
	v.SetDefault("YOOKASSA.API_URL", "https://api.yookassa.ru/v3")
	v.SetDefault("YOOKASSA.TIMEOUT", 10*time.Second)
	v.SetDefault("PAYMENT.SWEEP_INTERVAL", 5*time.Minute)
	v.SetDefault("PAYMENT.SWEEP_AGE", 10*time.Minute)
	v.SetDefault("PAYMENT.SWEEP_BATCH", 100)
	v.SetDefault("SCENARIO.PAID_LABELS", []string{"paid"})
	v.SetDefault("SCENARIO.DEFAULT_LABEL", "default")
	v.SetDefault("SCENARIO.CACHE_TTL", 30*time.Second)
	v.SetDefault("SCENARIO.DISPATCH", "queue")
	v.SetDefault("SCENARIO.CANCEL_TTL", 24*time.Hour)
}

// LoadConfig reads config.yaml from the working directory, if present, and
// applies environment overrides (HTTP_SERVER.ADDR -> HTTP_SERVER_ADDR).
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	return load(v)
}

// LoadRemote selects its backend with REMOTE_CONFIG_PROVIDER,
// REMOTE_CONFIG_ADDR and REMOTE_CONFIG_PATH.
func LoadRemote() (*Config, error) {
	provider := envOr("REMOTE_CONFIG_PROVIDER", defaultRemoteProvider)
	addr := envOr("REMOTE_CONFIG_ADDR", defaultRemoteAddr)
	path := envOr("REMOTE_CONFIG_PATH", defaultRemotePath)

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.AddRemoteProvider(provider, addr, path); err != nil {
		return nil, fmt.Errorf("add remote provider %s: %w", provider, err)
	}
	if err := v.ReadRemoteConfig(); err != nil {
		return nil, fmt.Errorf("read remote config %s%s: %w", addr, path, err)
	}

	return load(v)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range []string{
		"TELEGRAM.BOT_TOKEN", "TELEGRAM.WEBHOOK_URL", "TELEGRAM.ADMIN_ID",
		"YOOKASSA.SHOP_ID", "YOOKASSA.SECRET_KEY", "YOOKASSA.WEBHOOK_SECRET", "YOOKASSA.RETURN_URL",
		"DATABASE.HOST", "DATABASE.DBNAME", "DATABASE.USER", "DATABASE.PASSWORD", "DATABASE.AUTO_MIGRATE",
		"REDIS.PASSWORD", "REDIS.DB", "OTEL.ADDR", "PYROSCOPE.ADDR",
		"FLAGSMITH.API_KEY", "FLAGSMITH.ADDR",
		"TLS.ENABLE", "TLS.CERT_PATH", "TLS.KEY_PATH",
	} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	token := strings.TrimSpace(c.Telegram.BotToken)
	switch {
	case token == "":
		errs = append(errs, errors.New("TELEGRAM.BOT_TOKEN must not be empty"))
	case !strings.Contains(token, ":"):
		errs = append(errs, errors.New("TELEGRAM.BOT_TOKEN must look like 123456789:ABCdef"))
	}

	if c.Database.Type != "sqlite" {
		if strings.TrimSpace(c.Database.Host) == "" || strings.TrimSpace(c.Database.DBNAME) == "" {
			errs = append(errs, errors.New("DATABASE.HOST and DATABASE.DBNAME must not be empty"))
		}
	} else if strings.TrimSpace(c.Database.DBNAME) == "" {
		errs = append(errs, errors.New("DATABASE.DBNAME must not be empty"))
	}

	if strings.TrimSpace(c.YooKassa.ShopID) == "" || strings.TrimSpace(c.YooKassa.SecretKey) == "" {
		errs = append(errs, errors.New("YOOKASSA.SHOP_ID and YOOKASSA.SECRET_KEY must not be empty"))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}

	switch c.Otel.Protocol {
	case "grpc", "http":
	default:
		errs = append(errs, fmt.Errorf("OTEL.PROTOCOL %q is not one of grpc, http", c.Otel.Protocol))
	}

	switch c.Scenario.Dispatch {
	case "queue", "inline":
	default:
		errs = append(errs, fmt.Errorf("SCENARIO.DISPATCH %q is not one of queue, inline", c.Scenario.Dispatch))
	}

	return errors.Join(errs...)
}

// WebhookSecret returns the key used to sign gateway notifications. It falls
// back to the API secret key when no dedicated secret is configured.
func (c *Config) WebhookSecret() string {
	if c.YooKassa.WebhookSecret != "" {
		return c.YooKassa.WebhookSecret
	}
	return c.YooKassa.SecretKey
}
