package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "TASKDESK_"

// loadEnvFile loads TASKDESK_ENV_FILE, or .env in the working directory.
// Variables already present in the environment win over the file.
func loadEnvFile() {
	path := os.Getenv(envPrefix + "ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		panic(fmt.Errorf("load %s: %w", path, err))
	}
}

// parseEnv overlays TASKDESK_* variables. Malformed numbers and durations
// panic, like malformed flags.
func parseEnv(config *Config) {
	loadEnvFile()

	envString(&config.HTTPAddr, "HTTP_ADDR")
	envString(&config.TLSCertFile, "TLS_CERT_FILE")
	envString(&config.TLSKeyFile, "TLS_KEY_FILE")
	envBool(&config.TrustForwardedProto, "TRUST_FORWARDED_PROTO")
	envString(&config.GinMode, "GIN_MODE")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envDuration(&config.SessionTTL, "SESSION_TTL")
	envDuration(&config.SweepInterval, "SWEEP_INTERVAL")
	envInt(&config.ThrottleThreshold, "THROTTLE_THRESHOLD")
	envDuration(&config.ThrottleDelay, "THROTTLE_DELAY")
	envDuration(&config.ThrottleWindow, "THROTTLE_WINDOW")
	envString(&config.ThrottleBackend, "THROTTLE_BACKEND")
	envString(&config.RedisAddr, "REDIS_ADDR")
	envString(&config.RedisPassword, "REDIS_PASSWORD")
	envInt(&config.RedisDB, "REDIS_DB")
	envInt(&config.BcryptCost, "BCRYPT_COST")
	envInt(&config.TxRetries, "TX_RETRIES")
	envString(&config.LogLevel, "LOG_LEVEL")
	envString(&config.LogFormat, "LOG_FORMAT")
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func envString(dst *string, name string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func envInt(dst *int, name string) {
	if v, ok := lookup(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(fmt.Errorf("%s%s: %w", envPrefix, name, err))
		}
		*dst = n
	}
}

func envBool(dst *bool, name string) {
	if v, ok := lookup(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(fmt.Errorf("%s%s: %w", envPrefix, name, err))
		}
		*dst = b
	}
}

func envDuration(dst *time.Duration, name string) {
	if v, ok := lookup(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(fmt.Errorf("%s%s: %w", envPrefix, name, err))
		}
		*dst = d
	}
}
