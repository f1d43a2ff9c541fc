package config

import (
	"fmt"
	"log"
	"os"
	"time"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env               string
	HTTPPort          string
	DataDir           string
	RedisAddr         string
	JWTIssuer         string
	JWTSigningKey     string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	QueueBackend      string
	AttachmentBackend string
	AttachmentTTL     time.Duration
	AttachmentMaxMB   int
	StudentAuthDelay  time.Duration
	RateLimitPerMin   int
	AuditMaxEntries   int
	LogLevel          string
	LogFormat         string
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() App {
	return App{
		Env:               getEnv("APP_ENV", "dev"),
		HTTPPort:          getEnv("HTTP_PORT", "8081"),
		DataDir:           getEnv("DATA_DIR", "data/snapshots"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		JWTIssuer:         getEnv("JWT_ISSUER", "excusedesk"),
		JWTSigningKey:     getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AccessTTL:         durationEnv("ACCESS_TTL", 15*time.Minute),
		RefreshTTL:        durationEnv("REFRESH_TTL", 24*time.Hour),
		QueueBackend:      getEnv("QUEUE_BACKEND", "redis"),
		AttachmentBackend: getEnv("ATTACHMENT_BACKEND", "redis"),
		AttachmentTTL:     durationEnv("ATTACHMENT_TTL", 4*time.Hour),
		AttachmentMaxMB:   intEnv("ATTACHMENT_MAX_MB", 5),
		StudentAuthDelay:  durationEnv("STUDENT_AUTH_DELAY", 400*time.Millisecond),
		RateLimitPerMin:   intEnv("RATE_LIMIT_PER_MIN", 120),
		AuditMaxEntries:   intEnv("AUDIT_MAX_ENTRIES", 1000),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
