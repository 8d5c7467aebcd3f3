package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers   []string
	KafkaFeedTopic string

	// Schedule service
	ScheduleBaseURL  string
	ScheduleToken    string
	ScheduleTimeout  time.Duration
	PatternCacheTTL  time.Duration
	ContributorsFile string

	// Circulation resolution. The window brackets the feed header timestamp
	// in the trip's operating timezone; a candidate service day is accepted
	// only if its computed start falls inside the window.
	CirculationWindowBefore time.Duration
	CirculationWindowAfter  time.Duration

	// Retention. Ingestion records are kept longer than trip updates so the
	// audit trail outlives the operational state.
	TripUpdateRetentionDays      int
	IngestionRecordRetentionDays int
	SweepInterval                time.Duration

	// Dedup cache
	FingerprintTTL time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 4*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "tripflow"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "tripflow123"),
		PostgresDB:       getEnv("POSTGRES_DB", "tripflow"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:   getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaFeedTopic: getEnv("KAFKA_FEED_TOPIC", "tripflow.trip-updates"),

		ScheduleBaseURL:  getEnv("SCHEDULE_BASE_URL", "http://localhost:9191"),
		ScheduleToken:    getEnv("SCHEDULE_TOKEN", ""),
		ScheduleTimeout:  getDuration("SCHEDULE_TIMEOUT", 10*time.Second),
		PatternCacheTTL:  getDuration("PATTERN_CACHE_TTL", 10*time.Minute),
		ContributorsFile: getEnv("CONTRIBUTORS_FILE", ""),

		CirculationWindowBefore: getDuration("CIRCULATION_WINDOW_BEFORE", 4*time.Hour),
		CirculationWindowAfter:  getDuration("CIRCULATION_WINDOW_AFTER", 3*time.Hour),

		TripUpdateRetentionDays:      getIntEnv("TRIP_UPDATE_RETENTION_DAYS", 3),
		IngestionRecordRetentionDays: getIntEnv("INGESTION_RECORD_RETENTION_DAYS", 10),
		SweepInterval:                getDuration("SWEEP_INTERVAL", 12*time.Hour),

		FingerprintTTL: getDuration("FINGERPRINT_TTL", 24*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
