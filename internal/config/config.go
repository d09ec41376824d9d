package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL         string `yaml:"ttl"`
		TimeLimit   string `yaml:"time_limit"`
		MaxAttempts int    `yaml:"max_attempts"`
		DefaultQuiz string `yaml:"default_quiz"`
		// File optionally points at a YAML quiz definition used instead of the built-in sample.
		File string `yaml:"file"`
	} `yaml:"quiz"`
	Auth struct {
		JWTSecret          string `yaml:"jwt_secret"`
		TokenTTL           string `yaml:"token_ttl"`
		MaxPasswordChanges int    `yaml:"max_password_changes"`
		RequireEmailOTP    bool   `yaml:"require_email_otp"`
		OTPTTL             string `yaml:"otp_ttl"`
	} `yaml:"auth"`
	Mail struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"mail"`
	Camera struct {
		HeartbeatWindow string `yaml:"heartbeat_window"`
	} `yaml:"camera"`
}

// Load reads YAML config from path, then applies environment overrides.
// Values from a .env file in the working directory are loaded into the environment first.
// A missing config file is not an error; the service then runs on defaults and environment.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv lets secrets and endpoints come from the environment instead of the YAML file.
func applyEnv(cfg *Config) {
	setString(&cfg.Postgres.URL, "POSTGRES_URL")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Mail.Host, "SMTP_HOST")
	setString(&cfg.Mail.Username, "SMTP_USERNAME")
	setString(&cfg.Mail.Password, "SMTP_PASSWORD")
	setString(&cfg.Mail.From, "SMTP_FROM")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	if raw := os.Getenv("SMTP_PORT"); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil {
			cfg.Mail.Port = port
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
