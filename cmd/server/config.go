package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// Config is the resolved server configuration. Precedence: flags, then
// environment (including .env), then defaults.
type Config struct {
	Port              int
	DBPath            string
	SchedulerEnabled  bool
	SchedulerInterval time.Duration
	Parallelism       int
	RangeMaxDays      int
	CORSOrigins       []string
}

// LoadEnv loads .env from the working directory when present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	} else {
		log.Println(".env file loaded")
	}
}

// GetEnv returns the variable or the first default when it is unset or empty.
func GetEnv(key string, defaultValue ...string) string {
	value := os.Getenv(key)
	if value == "" && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(GetEnv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(GetEnv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Invalid %s=%q, using %t", key, v, def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(GetEnv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("Invalid %s=%q, using %v", key, v, def)
		return def
	}
	return d
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// ParseConfig reads the environment and then the command-line flags in args.
func ParseConfig(args []string) (Config, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	port := fs.Int("port", getEnvInt("PORT", 8080), "HTTP server port")
	dbPath := fs.String("db", GetEnv("DB_PATH", "attendance.db"), "SQLite database path")
	schedEnabled := fs.Bool("scheduler", getEnvBool("SCHEDULER_ENABLED", true), "Run the daily evaluation scheduler")
	schedInterval := fs.Duration("scheduler-interval", getEnvDuration("SCHEDULER_INTERVAL", time.Hour), "Scheduler check interval")
	parallelism := fs.Int("parallelism", getEnvInt("EVAL_PARALLELISM", attendance.DefaultRangeParallelism), "Employees evaluated at once in a range")
	maxDays := fs.Int("range-max-days", getEnvInt("RANGE_MAX_DAYS", generic.DefaultMaxRangeDays), "Default range evaluation bound in days")
	origins := fs.String("cors-origins", GetEnv("CORS_ORIGINS"), "Comma-separated allowed CORS origins")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:              *port,
		DBPath:            *dbPath,
		SchedulerEnabled:  *schedEnabled,
		SchedulerInterval: *schedInterval,
		Parallelism:       *parallelism,
		RangeMaxDays:      generic.ClampMaxDays(*maxDays),
		CORSOrigins:       splitOrigins(*origins),
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = attendance.DefaultRangeParallelism
	}
	if cfg.SchedulerInterval <= 0 {
		cfg.SchedulerInterval = time.Hour
	}
	return cfg, nil
}
