// Package config загружает настройки сервисов клуба из YAML-файла (CONFIG_PATH)
// с переопределением через переменные окружения.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	Timezone                string `yaml:"timezone" env:"CLUB_TIMEZONE" env-default:"UTC"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	Screenshots             `yaml:"screenshots"`
	Ledger                  `yaml:"ledger"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	// RateLimit запросов в секунду на клиента; 0 отключает ограничение.
	RateLimit float64 `yaml:"rate_limit" env-default:"20"`
	RateBurst int     `yaml:"rate_burst" env-default:"40"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env-default:"1h"`
}

// JWTToken настройки проверки токенов операторов
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"12h"`
}

// RabbitMQ настройки брокера уведомлений
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	MaxRetries int           `yaml:"max_retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// SMTP настройки почтового сервера
type SMTP struct {
	Host string `yaml:"host" env:"SMTP_HOST"`
	Port string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User string `yaml:"user" env:"SMTP_USER"`
	Pass string `yaml:"pass" env:"SMTP_PASS"`
}

// Screenshots настройки подписанных ссылок на скриншоты оплат
type Screenshots struct {
	BaseURL    string        `yaml:"base_url" env:"SCREENSHOTS_BASE_URL"`
	SigningKey string        `yaml:"signing_key" env:"SCREENSHOTS_SIGNING_KEY"`
	URLTTL     time.Duration `yaml:"url_ttl" env-default:"5m"`
}

// Ledger параметры предметной области
type Ledger struct {
	ExpiringWindowDays int           `yaml:"expiring_window_days" env-default:"7"`
	SchedulerInterval  time.Duration `yaml:"scheduler_interval" env-default:"12h"`
}

// Load читает конфиг из path. Если рядом с процессом лежит .env, его
// переменные применяются до чтения окружения.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: load .env: %w", op, err)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига по пути из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.ExpiringWindowDays < 0 {
		return fmt.Errorf("ledger.expiring_window_days must be >= 0, got %d", c.ExpiringWindowDays)
	}
	if c.JWTSecretKey == "" {
		return errors.New("jwttoken.jwt_secret_key is required")
	}
	if c.URLTTL <= 0 {
		return fmt.Errorf("screenshots.url_ttl must be positive")
	}
	return nil
}

// String печатает конфиг со скрытыми секретами.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Timezone: %s\n"+
			"Storage: %s\n"+
			"Redis: %s db=%d\n"+
			"HTTP: %s timeout=%s idle=%s\n"+
			"RabbitMQ: %s\n"+
			"SMTP: %s:%s user=%s\n"+
			"Screenshots: %s ttl=%s\n"+
			"Ledger: expiring_window_days=%d scheduler_interval=%s\n",
		c.Env,
		c.Timezone,
		mask(c.StorageConnectionString),
		c.AddressRedis, c.DB,
		c.AddressHTTP, c.TimeoutHTTP, c.IdleTimeout,
		mask(c.RabbitMQ.URL),
		c.SMTP.Host, c.SMTP.Port, c.SMTP.User,
		c.BaseURL, c.URLTTL,
		c.ExpiringWindowDays, c.SchedulerInterval,
	)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
