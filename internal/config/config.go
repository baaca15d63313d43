// Package config loads process configuration from environment variables.
// The Environment value is built once in main and passed to every component
// that needs it; nothing in this package caches global state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment holds every tunable the service reads at startup.
type Environment struct {
	// Server
	Host      string
	Port      int
	ServerDNS string

	// Database
	DBHost        string
	DBPort        int
	DBUser        string
	DBPass        string
	DBName        string
	DBMaxOpen     int
	DBMaxIdle     int
	DBConnMaxLife time.Duration

	// Access tokens
	AccessTokenSecret string
	AccessTokenTTL    time.Duration

	// Mail verification tokens
	MailTokenSecret string
	MailTokenTTL    time.Duration

	// SMTP
	MailServer   string
	MailPort     int
	MailUsername string
	MailPassword string
	MailFrom     string

	// Notification publishing
	AWSRegion       string
	SNSUserTopicARN string
}

// Load reads the environment once and applies defaults for anything unset.
// It fails fast when a token secret is missing so the service never starts
// with unsigned-token semantics.
func Load() (Environment, error) {
	env := Environment{
		Host:      getString("HOST", "0.0.0.0"),
		Port:      getInt("PORT", 8081),
		ServerDNS: getString("SERVER_DNS", "http://localhost:8081"),

		DBHost:        getString("DB_HOST", "localhost"),
		DBPort:        getInt("DB_PORT", 5432),
		DBUser:        getString("DB_USER", "postgres"),
		DBPass:        getString("DB_PASS", ""),
		DBName:        getString("DB_NAME", "db_authenticator"),
		DBMaxOpen:     getInt("DB_MAX_OPEN_CONNS", 50),
		DBMaxIdle:     getInt("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLife: getDuration("DB_CONN_MAX_LIFETIME_SECONDS", 15*time.Minute),

		AccessTokenSecret: os.Getenv("ACCESS_TOKEN_SECRET_KEY"),
		AccessTokenTTL:    getDuration("ACCESS_TOKEN_EXPIRE_DELTA_IN_SECONDS", 1800*time.Second),

		MailTokenSecret: os.Getenv("MAIL_TOKEN_SECRET_KEY"),
		MailTokenTTL:    getDuration("MAIL_TOKEN_EXPIRE_DELTA_IN_SECONDS", 600*time.Second),

		MailServer:   getString("MAIL_SERVER", "localhost"),
		MailPort:     getInt("MAIL_PORT", 587),
		MailUsername: os.Getenv("MAIL_USERNAME"),
		MailPassword: os.Getenv("MAIL_PASSWORD"),
		MailFrom:     getString("MAIL_FROM", "no-reply@unicamp.br"),

		AWSRegion:       getString("AWS_REGION", "us-east-1"),
		SNSUserTopicARN: os.Getenv("SNS_USER_TOPIC_ARN"),
	}

	if env.AccessTokenSecret == "" {
		return Environment{}, fmt.Errorf("config: ACCESS_TOKEN_SECRET_KEY is required")
	}
	if env.MailTokenSecret == "" {
		return Environment{}, fmt.Errorf("config: MAIL_TOKEN_SECRET_KEY is required")
	}
	if env.AccessTokenSecret == env.MailTokenSecret {
		return Environment{}, fmt.Errorf("config: access and mail token secrets must differ")
	}
	return env, nil
}

// DSN builds the PostgreSQL connection string for database/sql + pgx.
func (e Environment) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		e.DBUser, e.DBPass, e.DBHost, e.DBPort, e.DBName,
	)
}

// Addr returns the listen address for the HTTP server.
func (e Environment) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

func getString(key, fallback string) string {
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
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getDuration reads an integer number of seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
