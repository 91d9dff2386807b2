package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/taskdesk/internal/flagx"
	"github.com/dmitrijs2005/taskdesk/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept both
// "15s" style strings and integer nanoseconds. Absent fields keep the value
// they had before the file was read.
type JsonConfig struct {
	HTTPAddr            string          `json:"http_addr"`
	TLSCertFile         string          `json:"tls_cert_file"`
	TLSKeyFile          string          `json:"tls_key_file"`
	TrustForwardedProto *bool           `json:"trust_forwarded_proto"`
	GinMode             string          `json:"gin_mode"`
	DatabaseDSN         string          `json:"database_dsn"`
	SessionTTL          *timex.Duration `json:"session_ttl"`
	SweepInterval       *timex.Duration `json:"sweep_interval"`
	ThrottleThreshold   int             `json:"throttle_threshold"`
	ThrottleDelay       *timex.Duration `json:"throttle_delay"`
	ThrottleWindow      *timex.Duration `json:"throttle_window"`
	ThrottleBackend     string          `json:"throttle_backend"`
	RedisAddr           string          `json:"redis_addr"`
	RedisPassword       string          `json:"redis_password"`
	RedisDB             *int            `json:"redis_db"`
	BcryptCost          int             `json:"bcrypt_cost"`
	TxRetries           int             `json:"tx_retries"`
	LogLevel            string          `json:"log_level"`
	LogFormat           string          `json:"log_format"`
}

// parseJson loads the file named by -c or -config, if any, into config.
// An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	path := flagx.ConfigPath(os.Args[1:])
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.TLSCertFile, c.TLSCertFile)
	setString(&config.TLSKeyFile, c.TLSKeyFile)
	if c.TrustForwardedProto != nil {
		config.TrustForwardedProto = *c.TrustForwardedProto
	}
	setString(&config.GinMode, c.GinMode)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.SweepInterval != nil {
		config.SweepInterval = c.SweepInterval.Duration
	}
	setInt(&config.ThrottleThreshold, c.ThrottleThreshold)
	if c.ThrottleDelay != nil {
		config.ThrottleDelay = c.ThrottleDelay.Duration
	}
	if c.ThrottleWindow != nil {
		config.ThrottleWindow = c.ThrottleWindow.Duration
	}
	setString(&config.ThrottleBackend, c.ThrottleBackend)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	setInt(&config.BcryptCost, c.BcryptCost)
	setInt(&config.TxRetries, c.TxRetries)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
