package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
)

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Otel struct {
		Addr     string `mapstructure:"ADDR"`
		Protocol string `mapstructure:"PROTOCOL"`
	} `mapstructure:"OTEL"`
	Pyroscope struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"PYROSCOPE"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Grpc struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"GRPC_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		Path           string `mapstructure:"PATH"`
		AutoMigrate    bool   `mapstructure:"AUTO_MIGRATE"`
		Metrics        bool   `mapstructure:"METRICS"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
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
	Snowflake struct {
		NodeID int64 `mapstructure:"NODE_ID"`
	} `mapstructure:"SNOWFLAKE"`
	AccessControl struct {
		// Roles maps an identity provider role to the operation classes
		// (read, write, admin) it grants.
		Roles map[string][]string `mapstructure:"ROLES"`
	} `mapstructure:"ACCESS_CONTROL"`
	Ledger struct {
		BulkConcurrency int           `mapstructure:"BULK_CONCURRENCY"`
		MutationTimeout time.Duration `mapstructure:"MUTATION_TIMEOUT"`
		DefaultPageSize int           `mapstructure:"DEFAULT_PAGE_SIZE"`
		MaxPageSize     int           `mapstructure:"MAX_PAGE_SIZE"`
	} `mapstructure:"LEDGER"`
	Leaderboard struct {
		CacheTTL        time.Duration `mapstructure:"CACHE_TTL"`
		DefaultPageSize int           `mapstructure:"DEFAULT_PAGE_SIZE"`
		MaxPageSize     int           `mapstructure:"MAX_PAGE_SIZE"`
	} `mapstructure:"LEADERBOARD"`
	Catalog struct {
		PriorityStaleAfter time.Duration `mapstructure:"PRIORITY_STALE_AFTER"`
		StaleAfter         time.Duration `mapstructure:"STALE_AFTER"`
	} `mapstructure:"CATALOG"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "resource-ledger")
	v.SetDefault("HTTP_SERVER.ADDR", "8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("GRPC_SERVER.ADDR", "9090")
	v.SetDefault("OTEL.PROTOCOL", "grpc")
	v.SetDefault("DATABASE.TYPE", "sqlite")
	v.SetDefault("DATABASE.PATH", "ledger.db")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("DATABASE.TIMEZONE", "UTC")
	v.SetDefault("DATABASE.AUTO_MIGRATE", true)
	v.SetDefault("DATABASE.CONNECTION_POOL.MAX_IDLE_CONN", 5)
	v.SetDefault("DATABASE.CONNECTION_POOL.MAX_OPEN_CONNS", 20)
	v.SetDefault("DATABASE.CONNECTION_POOL.CONN_MAX_LIFETIME", time.Hour)
	v.SetDefault("DATABASE.CONNECTION_POOL.CONN_MAX_IDLE_TIME", 10*time.Minute)
	v.SetDefault("REDIS.POOL_SIZE", 10)
	v.SetDefault("REDIS.POOL_TIMEOUT", 4*time.Second)
	v.SetDefault("SNOWFLAKE.NODE_ID", 1)
	v.SetDefault("ACCESS_CONTROL.ROLES", map[string][]string{
		"viewer": {"read"},
		"member": {"write"},
		"admin":  {"admin"},
	})
	v.SetDefault("LEDGER.BULK_CONCURRENCY", 1)
	v.SetDefault("LEDGER.DEFAULT_PAGE_SIZE", 50)
	v.SetDefault("LEDGER.MAX_PAGE_SIZE", 100)
	v.SetDefault("LEADERBOARD.CACHE_TTL", 15*time.Second)
	v.SetDefault("LEADERBOARD.DEFAULT_PAGE_SIZE", 50)
	v.SetDefault("LEADERBOARD.MAX_PAGE_SIZE", 100)
	v.SetDefault("CATALOG.PRIORITY_STALE_AFTER", 24*time.Hour)
	v.SetDefault("CATALOG.STALE_AFTER", 48*time.Hour)
}

// LoadConfig reads config.yaml from the working directory, or the file named
// by CONFIG_PATH, and applies environment overrides such as DATABASE_TYPE.
func LoadConfig() (*Config, error) {
	return Load(os.Getenv("CONFIG_PATH"))
}

// Load reads the configuration file at path. An empty path searches for
// config.yaml in the working directory; a missing file falls back to defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.TLS.Enable && (c.TLS.CertPath == "" || c.TLS.KeyPath == "") {
		return fmt.Errorf("tls enabled but TLS.CERT_PATH or TLS.KEY_PATH not provided")
	}
	if c.Ledger.BulkConcurrency < 1 {
		return fmt.Errorf("LEDGER.BULK_CONCURRENCY must be >= 1")
	}
	if c.Leaderboard.MaxPageSize < 1 {
		return fmt.Errorf("LEADERBOARD.MAX_PAGE_SIZE must be >= 1")
	}
	switch c.Database.Type {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported DATABASE.TYPE %q", c.Database.Type)
	}
	return nil
}
