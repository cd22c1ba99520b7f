package config

import (
	"os"
	"strconv"
	"time"

	platformstrings "calibra/pkg/platform/strings"
)

// Store backends accepted by STORE_BACKEND.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Oracle modes accepted by ORACLE_MODE.
const (
	OracleHTTP      = "http"
	OracleSimulated = "simulated"
)

// Config is the full process configuration.
type Config struct {
	Server   Server
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Oracle   OracleConfig
	Issuance IssuanceConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Environment     string
	StoreBackend    string
	AdminTokenHash  string
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

// IsProduction reports whether dev conveniences must be refused.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
}

type KafkaConfig struct {
	Brokers         string
	Topic           string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
	PollInterval    time.Duration
	BatchSize       int
}

// Enabled reports whether lifecycle events should be shipped to Kafka.
func (k KafkaConfig) Enabled() bool {
	return k.Brokers != ""
}

// AuthConfig holds bearer token settings for requesters.
type AuthConfig struct {
	JWTSigningKey     string
	JWTIssuer         string
	AllowedRequesters []string
}

// OracleConfig describes the verification transport.
type OracleConfig struct {
	Mode           string
	BaseURL        string
	APIKey         string
	Identity       string
	SigningKey     string
	Timeout        time.Duration
	AccreditedLabs []string
	SimulatedDelay time.Duration
}

// IssuanceConfig seeds the runtime-adjustable certification settings.
type IssuanceConfig struct {
	VerificationSource string
	IssuerTarget       string
	IssuerAPIKey       string
	SecretsReference   string
	StrictContentRefs  bool
	IssuerTimeout      time.Duration
	FailureThreshold   int
	Cooldown           time.Duration
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() Config {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "dev-secret-key-change-in-production"
	}
	oracleKey := os.Getenv("ORACLE_SIGNING_KEY")
	if oracleKey == "" {
		oracleKey = "dev-oracle-key-change-in-production"
	}

	return Config{
		Server: Server{
			Addr:            getEnv("CALIBRA_ADDR", ":8080"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			StoreBackend:    getEnv("STORE_BACKEND", StoreMemory),
			AdminTokenHash:  os.Getenv("ADMIN_TOKEN_HASH"),
			MaxBodyBytes:    int64(getInt("MAX_BODY_BYTES", 64<<10)),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			KeyPrefix:    getEnv("REDIS_KEY_PREFIX", "calibra:req:"),
		},
		Kafka: KafkaConfig{
			Brokers:         os.Getenv("KAFKA_BROKERS"),
			Topic:           getEnv("EVENTS_TOPIC", "calibra.certification.events"),
			Acks:            getEnv("KAFKA_ACKS", "all"),
			Retries:         getInt("KAFKA_RETRIES", 3),
			DeliveryTimeout: getDuration("KAFKA_DELIVERY_TIMEOUT", 30*time.Second),
			PollInterval:    getDuration("OUTBOX_POLL_INTERVAL", 250*time.Millisecond),
			BatchSize:       getInt("OUTBOX_BATCH_SIZE", 100),
		},
		Auth: AuthConfig{
			JWTSigningKey:     jwtSigningKey,
			JWTIssuer:         getEnv("JWT_ISSUER", "calibra"),
			AllowedRequesters: getList("ALLOWED_REQUESTERS"),
		},
		Oracle: OracleConfig{
			Mode:           getEnv("ORACLE_MODE", OracleSimulated),
			BaseURL:        os.Getenv("ORACLE_BASE_URL"),
			APIKey:         os.Getenv("ORACLE_API_KEY"),
			Identity:       getEnv("ORACLE_IDENTITY", "oracle-router"),
			SigningKey:     oracleKey,
			Timeout:        getDuration("ORACLE_TIMEOUT", 10*time.Second),
			AccreditedLabs: getList("ACCREDITED_LABS"),
			SimulatedDelay: getDuration("ORACLE_SIMULATED_DELAY", 50*time.Millisecond),
		},
		Issuance: IssuanceConfig{
			VerificationSource: os.Getenv("VERIFICATION_SOURCE"),
			IssuerTarget:       os.Getenv("ISSUER_TARGET"),
			IssuerAPIKey:       os.Getenv("ISSUER_API_KEY"),
			SecretsReference:   os.Getenv("ORACLE_SECRETS_REF"),
			StrictContentRefs:  os.Getenv("CONTENT_REF_STRICT") == "true",
			IssuerTimeout:      getDuration("ISSUER_TIMEOUT", 10*time.Second),
			FailureThreshold:   getInt("ISSUER_FAILURE_THRESHOLD", 5),
			Cooldown:           getDuration("ISSUER_COOLDOWN", 30*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getList splits a comma-separated variable, dropping blanks and duplicates.
func getList(key string) []string {
	return platformstrings.SplitList(os.Getenv(key))
}
