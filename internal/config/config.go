package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"donezo/internal/repository"
)

const EnvPrefix = "DONEZO"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Redis      RedisConfig      `mapstructure:"redis"`
	MQ         MQConfig         `mapstructure:"mq"`
	Worker     WorkerConfig     `mapstructure:"worker"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	RateLimitRPM    int           `mapstructure:"rate_limit_rpm"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int32         `mapstructure:"max_connections"`
	MinConnections int32         `mapstructure:"min_connections"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	Migrate        bool          `mapstructure:"migrate"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

type RepositoryConfig struct {
	Type     repository.Kind `mapstructure:"type"`
	SeedFile string          `mapstructure:"seed_file"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MQConfig struct {
	URL            string        `mapstructure:"url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type WorkerConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rpm", 300)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 1)
	v.SetDefault("database.idle_timeout", 5*time.Minute)
	v.SetDefault("database.migrate", true)
	v.SetDefault("database.connect_timeout", 30*time.Second)

	v.SetDefault("logging.development", false)

	v.SetDefault("repository.type", string(repository.InMemory))
	v.SetDefault("repository.seed_file", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("mq.url", "")
	v.SetDefault("mq.connect_timeout", 30*time.Second)

	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.interval", 5*time.Minute)
	v.SetDefault("worker.batch_size", 100)
}

// Load reads the YAML file at path, when given, and lets DONEZO_* environment
// variables override any key: DONEZO_DATABASE_URL sets database.url.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Repository.Type {
	case repository.InMemory:
	case repository.Postgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres repository"))
		}
	default:
		errs = append(errs, fmt.Errorf("repository.type %q is not supported", c.Repository.Type))
	}

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port must be set"))
	}
	if c.Database.MinConnections > c.Database.MaxConnections {
		errs = append(errs, errors.New("database.min_connections exceeds max_connections"))
	}
	// A zero bound would make the startup retry loop run forever.
	if c.Database.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("database.connect_timeout must be positive"))
	}
	if c.MQ.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("mq.connect_timeout must be positive"))
	}
	if c.Worker.Enabled && c.Worker.Interval <= 0 {
		errs = append(errs, errors.New("worker.interval must be positive"))
	}
	if c.Worker.BatchSize <= 0 {
		errs = append(errs, errors.New("worker.batch_size must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}
