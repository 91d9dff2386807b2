package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/taskdesk/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string             HTTPS bind address (e.g., ":8443")
//	-d string             PostgreSQL DSN
//	-t duration           session lifetime (e.g., "1h")
//	-l string             log level
//	-tls-cert string      TLS certificate file
//	-tls-key string       TLS key file
//	-trust-proxy          honour X-Forwarded-Proto (use -trust-proxy=true)
//	-throttle-backend     memory or redis
//	-redis string         Redis address for the redis throttle backend
//
// os.Args is filtered with flagx.FilterArgs first so flags owned by other
// components (-c/-config) do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-d", "-t", "-l", "-tls-cert", "-tls-key", "-trust-proxy", "-throttle-backend", "-redis",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.DurationVar(&config.SessionTTL, "t", config.SessionTTL, "session lifetime")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.TLSCertFile, "tls-cert", config.TLSCertFile, "TLS certificate file")
	fs.StringVar(&config.TLSKeyFile, "tls-key", config.TLSKeyFile, "TLS key file")
	fs.BoolVar(&config.TrustForwardedProto, "trust-proxy", config.TrustForwardedProto, "trust X-Forwarded-Proto")
	fs.StringVar(&config.ThrottleBackend, "throttle-backend", config.ThrottleBackend, "login throttle backend (memory|redis)")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
