package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration. Optional backends (Postgres,
// Redis, Kafka) stay disabled when their variables are unset so the service
// can run against in-memory stores for local development.
type Server struct {
	Addr string

	// DatabaseURL enables Postgres-backed stores when set.
	DatabaseURL string

	// KeyDir is the root directory holding per-entity key artifacts
	// (<KeyDir>/practitioners/<id>/..., <KeyDir>/organizations/<id>/...).
	KeyDir string

	// SessionSigningKey verifies ordinary session tokens minted by the
	// account subsystem.
	SessionSigningKey string

	// AccessTokenSigningKey signs temporary record-access tokens. It must
	// differ from SessionSigningKey so tokens cannot cross purposes.
	AccessTokenSigningKey string
	AccessTokenMaxTTL     time.Duration

	// KafkaBrokers enables the certificate-issued event publisher when set.
	KafkaBrokers []string
	KafkaTopic   string

	// RedisURL enables the QR text cache when set.
	RedisURL string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("PETCERT_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	keyDir := os.Getenv("PETCERT_KEY_DIR")
	if keyDir == "" {
		keyDir = "./keys"
	}

	sessionKey := os.Getenv("PETCERT_SESSION_SIGNING_KEY")
	if sessionKey == "" {
		// Development default; override in any real deployment.
		sessionKey = "dev-session-key-change-in-production"
	}

	accessKey := os.Getenv("PETCERT_ACCESS_TOKEN_SIGNING_KEY")
	if accessKey == "" {
		accessKey = "dev-access-token-key-change-in-production"
	}

	topic := os.Getenv("PETCERT_KAFKA_TOPIC")
	if topic == "" {
		topic = "petcert.certificates.issued"
	}

	var brokers []string
	if raw := os.Getenv("PETCERT_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:                  addr,
		DatabaseURL:           os.Getenv("PETCERT_DATABASE_URL"),
		KeyDir:                keyDir,
		SessionSigningKey:     sessionKey,
		AccessTokenSigningKey: accessKey,
		AccessTokenMaxTTL:     72 * time.Hour,
		KafkaBrokers:          brokers,
		KafkaTopic:            topic,
		RedisURL:              os.Getenv("PETCERT_REDIS_URL"),
	}
}
