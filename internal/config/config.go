package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field
// corresponds to an environment variable. Required variables are
// enforced by must() and missing values cause the program to exit
// with a fatal log message; everything else carries a default so a
// bare development environment still boots.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to sign supervisor JWTs
	// AccessTTLMin is the supervisor access token lifetime in minutes.
	AccessTTLMin int
	// BcryptCost is the bcrypt cost for supervisor password hashing.
	BcryptCost int

	Resolver ResolverConfig
	SMTP     SMTPConfig
	AMQPURL  string // RabbitMQ URL for delivery events (optional)

	// SessionTTL bounds how long an unfinished chat conversation is
	// kept in the session store before it expires.
	SessionTTL time.Duration

	// RateLimitPerMin caps public discount requests per client per
	// minute; 0 disables the limiter.
	RateLimitPerMin int
}

// ResolverConfig selects and tunes the show MatchResolver. Kind is
// "baseline" (deterministic token similarity) or "ollama". Timeout
// bounds a single resolver call; on expiry the pipeline treats the
// result as no match.
type ResolverConfig struct {
	Kind    string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// SMTPConfig configures the outbound mail notifier. When Host is
// empty the notifier is disabled and markSent records a failed
// delivery instead of silently pretending.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Load reads configuration values from environment variables and
// returns a Config.
func Load() Config {
	return Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"), // empty allowed
		DBHost:       must("DB_HOST"),
		DBPort:       must("DB_PORT"),
		DBName:       must("DB_NAME"),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:   mustInt("BCRYPT_COST"),
		Resolver: ResolverConfig{
			Kind:    getenv("RESOLVER_KIND", "baseline"),
			BaseURL: getenv("OLLAMA_URL", "http://localhost:11434"),
			Model:   getenv("OLLAMA_MODEL", "llama3"),
			Timeout: parseDur(getenv("RESOLVER_TIMEOUT", "10s")),
		},
		SMTP: SMTPConfig{
			Host: os.Getenv("SMTP_HOST"),
			Port: atoi(getenv("SMTP_PORT", "587")),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
			From: getenv("SMTP_FROM", "descuentos@indiehoy.com"),
		},
		AMQPURL:         os.Getenv("RABBITMQ_URL"),
		SessionTTL:      parseDur(getenv("CHAT_SESSION_TTL", "30m")),
		RateLimitPerMin: atoi(getenv("RATE_LIMIT_PER_MIN", "30")),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an
// integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
