package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN       string
	DataDir     string
	CacheSize   int
	LogFile     string
	MetricsFile string
	Debug       bool
}

// Load reads .env (if present) and then the process environment.
// Variables already set in the environment win over .env.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] ignoring .env: %v", err)
	}

	cfg := Config{
		DBDSN:       envStr("DB_DSN", "cinepos.db"), // sqlite file in working dir
		DataDir:     envStr("DATA_DIR", "data"),
		CacheSize:   envInt("CACHE_SIZE", 5),
		LogFile:     os.Getenv("LOG_FILE"),
		MetricsFile: os.Getenv("METRICS_FILE"),
		Debug:       envBool("DEBUG", false),
	}
	log.Printf("[config] DB_DSN=%s DATA_DIR=%s CACHE_SIZE=%d LOG_FILE=%s METRICS_FILE=%s DEBUG=%t",
		cfg.DBDSN, cfg.DataDir, cfg.CacheSize, cfg.LogFile, cfg.MetricsFile, cfg.Debug)
	return cfg
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] bad %s=%q, using %d", k, v, d)
		return d
	}
	return n
}

func envBool(k string, d bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return b
}
