package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"questgen/internal/db"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	AppEnv            string
	HTTPAddr          string
	DBDriver          db.Driver
	DBDSN             string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifeMins int

	UploadDir       string
	MaxUploadMB     int
	CORSOrigins     []string
	CSRFEnforced    bool
	RateLimitPerMin int

	AdminUser     string
	AdminPassHash string

	RecentDraftWindow int
}

func LoadConfig() Config {
	return Config{
		AppEnv:            envOrDefault("APP_ENV", "development"),
		HTTPAddr:          envOrDefault("HTTP_ADDR", ":8080"),
		DBDriver:          db.Driver(strings.ToLower(envOrDefault("DB_DRIVER", string(db.DriverSQLite)))),
		DBDSN:             os.Getenv("DB_DSN"),
		DBMaxOpenConns:    intOrDefault("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    intOrDefault("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifeMins: intOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
		UploadDir:         envOrDefault("UPLOAD_DIR", "./uploads"),
		MaxUploadMB:       intOrDefault("MAX_UPLOAD_MB", 20),
		CORSOrigins:       splitList(envOrDefault("CORS_ORIGINS", "http://localhost:3000")),
		CSRFEnforced:      boolOrDefault("CSRF_ENFORCED", false),
		RateLimitPerMin:   intOrDefault("RATE_LIMIT_PER_MINUTE", 60),
		AdminUser:         envOrDefault("ADMIN_USER", "admin"),
		AdminPassHash:     os.Getenv("ADMIN_PASS_HASH"),
		RecentDraftWindow: intOrDefault("RECENT_DRAFT_WINDOW", 5),
	}
}

// Pool returns the database pool settings.
func (c Config) Pool() db.PoolConfig {
	return db.PoolConfig{
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(c.DBConnMaxLifeMins) * time.Minute,
	}
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsToInt(v string) int {
	n, _ := strconv.Atoi(v)
	return n
}

func intOrDefault(key string, fallback int) int {
	v := stringsToInt(os.Getenv(key))
	if v <= 0 {
		return fallback
	}
	return v
}

func boolOrDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
