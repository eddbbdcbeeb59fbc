package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "./config/local.yaml"

type Config struct {
	Env         string        `yaml:"env" env-default:"local"`
	StoragePath string        `yaml:"storage_path" env:"STORAGE_PATH" env-required:"true"`
	RedisAddr   string        `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	LockTTL     time.Duration `yaml:"lock_ttl" env:"LOCK_TTL" env-default:"10s"`
	HTTPServer  `yaml:"http_server"`
	Schedule    Schedule  `yaml:"schedule"`
	Auth        Auth      `yaml:"auth"`
	CORS        CORS      `yaml:"cors"`
	RateLimit   RateLimit `yaml:"rate_limit"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env-default:"localhost:8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
}

// Schedule describes the daily booking window and how far ahead users may book.
type Schedule struct {
	StartHour           int    `yaml:"start_hour" env-default:"9"`
	EndHour             int    `yaml:"end_hour" env-default:"18"`
	EarliestDaysCanBook int    `yaml:"earliest_days_can_book" env-default:"2"`
	MaximumDaysCanBook  int    `yaml:"maximum_days_can_book" env-default:"30"`
	Timezone            string `yaml:"timezone" env:"SCHEDULE_TIMEZONE" env-default:"UTC"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	Issuer    string        `yaml:"issuer" env-default:"appointment-service"`
	TokenTTL  time.Duration `yaml:"token_ttl" env-default:"24h"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env-default:"http://localhost:3001"`
	AllowedMethods []string `yaml:"allowed_methods" env-default:"GET,POST,PATCH,DELETE,OPTIONS"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"10"`
	Burst int     `yaml:"burst" env-default:"20"`
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("Config file does not exist: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	return cfg
}

func Load(configPath string) (*Config, error) {
	const op = "config.Load"

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.Schedule.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := time.LoadLocation(cfg.Schedule.Timezone); err != nil {
		return nil, fmt.Errorf("%s: schedule timezone: %w", op, err)
	}

	return &cfg, nil
}

func (s Schedule) validate() error {
	if s.StartHour < 0 || s.EndHour > 24 || s.StartHour >= s.EndHour {
		return errors.New("schedule: start_hour must be before end_hour within 0..24")
	}
	if s.EarliestDaysCanBook < 0 || s.EarliestDaysCanBook > s.MaximumDaysCanBook {
		return errors.New("schedule: earliest_days_can_book must be between 0 and maximum_days_can_book")
	}
	return nil
}
