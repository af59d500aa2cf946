package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"AlertMate/go-backend/internal/drowsiness"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	GRPCPort           string
	HTTPPort           string
	LandmarkServiceURL string
	CORSOrigins        string

	MaxConnections   int
	RateLimitPerMin  int
	FrameRatePerSec  int
	MaxMessageSizeMB int
	LogLevel         string
	LogFile          string
	Environment      string

	DBName     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	RedisAddress  string
	RedisPassword string
	RedisDB       int
	AlertChannel  string

	Detection drowsiness.Config
	// emitIntervalSet records that EMIT_INTERVAL was given explicitly.
	emitIntervalSet bool
}

// DetectionFor returns Detection with the emit interval preset of mode
// ("fast", "cli", "socket") unless EMIT_INTERVAL was set.
func (c *Config) DetectionFor(mode string) drowsiness.Config {
	d := c.Detection
	if c.emitIntervalSet {
		return d
	}
	if iv, ok := drowsiness.EmitIntervalPreset(mode); ok {
		d.EmitInterval = iv
	}
	return d
}

func (p *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.DBHost, p.DBPort, p.DBUser, p.DBPassword, p.DBName, p.DBSSLMode)
}

// DSNForLog masks the password.
func (p *Config) DSNForLog() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=*** dbname=%s sslmode=%s",
		p.DBHost, p.DBPort, p.DBUser, p.DBName, p.DBSSLMode)
}

func (c *Config) IsDev() bool {
	return c.Environment == "dev"
}

// DatabaseEnabled is false when no DB_HOST is configured; the server then
// runs without persistence.
func (c *Config) DatabaseEnabled() bool {
	return c.DBHost != ""
}

// LoadConfig reads .env (if present) and the process environment. The
// returned notes describe fallbacks that the caller may want to log.
func LoadConfig() (*Config, []string, error) {
	var notes []string
	if err := godotenv.Load(); err != nil {
		notes = append(notes, "no .env file found, using system environment variables")
	}

	cfg := &Config{
		GRPCPort:           getEnv("GRPC_PORT", "50051"),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		LandmarkServiceURL: getEnv("LANDMARK_SERVICE_URL", "localhost:9000"),
		CORSOrigins:        getEnv("CORS_ORIGINS", "*"),
		MaxConnections:     getEnvInt("MAX_CONNECTIONS", 1000),
		RateLimitPerMin:    getEnvInt("RATE_PER_MIN", 1000),
		FrameRatePerSec:    getEnvInt("FRAME_RATE_PER_SEC", 60),
		MaxMessageSizeMB:   getEnvInt("MAX_MESSAGE_SIZE_MB", 50),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            getEnv("LOG_FILE", ""),
		Environment:        getEnv("ENVIRONMENT", "production"),
		DBHost:             getEnv("DB_HOST", ""),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", ""),
		DBName:             getEnv("DB_NAME", "alertmate"),
		DBSSLMode:          getEnv("DB_SSLMODE", "disable"),
		RedisAddress:       getEnv("REDIS_ADDRESS", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		AlertChannel:       getEnv("ALERT_CHANNEL", "alertmate:alerts"),
		Detection:          DetectionFromEnv(drowsiness.DefaultConfig()),
		emitIntervalSet:    os.Getenv("EMIT_INTERVAL") != "",
	}

	if cfg.DatabaseEnabled() && cfg.DBPassword == "" {
		notes = append(notes, "DB_PASSWORD is not set")
	}

	if err := ValidateDetection(cfg.Detection); err != nil {
		return nil, notes, err
	}
	return cfg, notes, nil
}

// DetectionFromEnv applies EAR_THRESHOLD, EAR_TIME_THRESHOLD, MAR_THRESHOLD,
// MAR_TIME_THRESHOLD, DROWSY_FRAME_THRESHOLD, EMIT_INTERVAL and NUM_LANDMARKS
// on top of base. EMIT_INTERVAL accepts a duration or a preset name.
func DetectionFromEnv(base drowsiness.Config) drowsiness.Config {
	th := &base.Thresholds
	th.EAR = getEnvFloat("EAR_THRESHOLD", th.EAR)
	th.EARHold = getEnvDuration("EAR_TIME_THRESHOLD", th.EARHold)
	th.MAR = getEnvFloat("MAR_THRESHOLD", th.MAR)
	th.MARHold = getEnvDuration("MAR_TIME_THRESHOLD", th.MARHold)
	th.DrowsyFrames = getEnvInt("DROWSY_FRAME_THRESHOLD", th.DrowsyFrames)

	if v := os.Getenv("EMIT_INTERVAL"); v != "" {
		if d, ok := drowsiness.EmitIntervalPreset(v); ok {
			base.EmitInterval = d
		} else {
			base.EmitInterval = getEnvDuration("EMIT_INTERVAL", base.EmitInterval)
		}
	}
	base.Landmarks = getEnvInt("NUM_LANDMARKS", base.Landmarks)
	return base
}

var validate = validator.New()

func ValidateDetection(c drowsiness.Config) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid detection config: %w", err)
	}
	return nil
}

func getEnv(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("750ms") or plain seconds ("0.5").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if d, err := parseDuration(v); err == nil {
		return d
	}
	return defaultVal
}

func parseDuration(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
