package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Gateway drivers.
const (
	DriverSupabase = "supabase"
	DriverSQL      = "sql"
	DriverMemory   = "memory"
)

// AppConfig holds environment driven configuration values.
// Secrets have no defaults in code and must come from config.json, .env or the environment.
type AppConfig struct {
	AppPort            string
	GatewayDriver      string
	AllowedOrigins     []string
	RateLimitPerMinute int
	JWTSecret          string
	SessionTTLHours    int
	DraftTTLHours      int
	// Hosted gateway
	SupabaseURL       string
	SupabaseAnonKey   string
	StorageBucket     string
	GatewayTimeoutSec int
	// Self-hosted gateway
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for drafts, preferences and revoked sessions. Empty host disables it.
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// NATS activity events. Empty URL disables publishing.
	NatsURL           string
	NatsSubjectPrefix string
	// Local object storage
	UploadDir     string
	PublicBaseURL string
	MaxUploadMB   int
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Gin framework configuration
	GinMode string
	GinPath string
}

var (
	mu     sync.RWMutex
	cfg    AppConfig
	loaded bool
)

// DefaultPath is where Load looks for the JSON file.
var DefaultPath = filepath.Join("config", "config.json")

// Load loads the application configuration once. Invalid configuration is fatal.
func Load() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()

	c, err := LoadFrom(DefaultPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	Set(c)
	return c
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	ok := loaded
	c := cfg
	mu.RUnlock()
	if !ok {
		return Load()
	}
	return c
}

// Set replaces the cached configuration.
func Set(c AppConfig) {
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

// LoadFrom builds a configuration with precedence
// JSON file -> defaults -> .env -> environment variables, then validates it.
func LoadFrom(path string) (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(&c)
	// .env never overrides variables already set in the environment
	_ = godotenv.Load()
	if err := applyEnvOverrides(&c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// Validate checks the settings the selected gateway driver depends on.
func (c AppConfig) Validate() error {
	var errs []error
	switch c.GatewayDriver {
	case DriverSupabase:
		if c.SupabaseURL == "" {
			errs = append(errs, errors.New("SUPABASE_URL must be set for the supabase gateway"))
		}
		if c.SupabaseAnonKey == "" {
			errs = append(errs, errors.New("SUPABASE_ANON_KEY must be set for the supabase gateway"))
		}
	case DriverSQL:
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET must be set for the sql gateway"))
		}
		if c.DBDriver != "postgres" && c.DBDriver != "mysql" {
			errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported GATEWAY_DRIVER %q", c.GatewayDriver))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must not be negative"))
	}
	return errors.Join(errs...)
}

// RedisEnabled reports whether a redis host is configured.
func (c AppConfig) RedisEnabled() bool {
	return c.RedisHost != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads grouped sections from path into out. A missing file is not an error.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if s, ok := m[key].(string); ok {
			return s
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if f, ok := m[key].(float64); ok {
			return int(f)
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		b, _ := m[key].(bool)
		return b
	}
	getStringSlice := func(m map[string]any, key string) []string {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.GatewayDriver = getString(app, "GatewayDriver")
		out.JWTSecret = getString(app, "JWTSecret")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.SessionTTLHours = getInt(app, "SessionTTLHours")
		out.DraftTTLHours = getInt(app, "DraftTTLHours")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
	}

	if gw, ok := raw["gateway"].(map[string]any); ok {
		out.SupabaseURL = getString(gw, "SupabaseURL")
		out.SupabaseAnonKey = getString(gw, "SupabaseAnonKey")
		out.StorageBucket = getString(gw, "StorageBucket")
		out.GatewayTimeoutSec = getInt(gw, "TimeoutSec")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "DBDriver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if nt, ok := raw["nats"].(map[string]any); ok {
		out.NatsURL = getString(nt, "URL")
		out.NatsSubjectPrefix = getString(nt, "SubjectPrefix")
	}

	if st, ok := raw["storage"].(map[string]any); ok {
		out.UploadDir = getString(st, "UploadDir")
		out.PublicBaseURL = getString(st, "PublicBaseURL")
		out.MaxUploadMB = getInt(st, "MaxUploadMB")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		out.GinMode = getString(g, "Mode")
		out.GinPath = getString(g, "LogPath")
	}
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GatewayDriver == "" {
		c.GatewayDriver = DriverSupabase
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.SessionTTLHours == 0 {
		c.SessionTTLHours = 24 * 30
	}
	if c.DraftTTLHours == 0 {
		c.DraftTTLHours = 24
	}
	if c.StorageBucket == "" {
		c.StorageBucket = "post-images"
	}
	if c.GatewayTimeoutSec == 0 {
		c.GatewayTimeoutSec = 15
	}
	if c.DBDriver == "" {
		c.DBDriver = "postgres"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		if c.DBDriver == "mysql" {
			c.DBPort = "3306"
		} else {
			c.DBPort = "5432"
		}
	}
	if c.DBName == "" {
		c.DBName = "discourse"
	}
	if c.RedisHost != "" && c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.NatsSubjectPrefix == "" {
		c.NatsSubjectPrefix = "discourse"
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join("static", "storage")
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = "http://localhost:" + c.AppPort
	}
	if c.MaxUploadMB == 0 {
		c.MaxUploadMB = 5
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	var errs []error
	setInt := func(key string, dst *int) {
		if v := getEnv(key, ""); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid integer %s=%q", key, v))
				return
			}
			*dst = i
		}
	}
	setString := func(key string, dst *string) {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := getEnv(key, ""); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	setString("APP_PORT", &c.AppPort)
	setString("GATEWAY_DRIVER", &c.GatewayDriver)
	setString("JWT_SECRET", &c.JWTSecret)
	setInt("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	setInt("SESSION_TTL_HOURS", &c.SessionTTLHours)
	setInt("DRAFT_TTL_HOURS", &c.DraftTTLHours)
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}

	setString("SUPABASE_URL", &c.SupabaseURL)
	setString("SUPABASE_ANON_KEY", &c.SupabaseAnonKey)
	setString("STORAGE_BUCKET", &c.StorageBucket)
	setInt("GATEWAY_TIMEOUT_SEC", &c.GatewayTimeoutSec)

	setString("DB_DRIVER", &c.DBDriver)
	setString("DATABASE_URI", &c.DatabaseURI)
	setString("DB_HOST", &c.DBHost)
	setString("DB_PORT", &c.DBPort)
	setString("DB_USER", &c.DBUser)
	setString("DB_PASSWORD", &c.DBPassword)
	setString("DB_NAME", &c.DBName)

	setString("REDIS_HOST", &c.RedisHost)
	setInt("REDIS_PORT", &c.RedisPort)
	setInt("REDIS_DB", &c.RedisDB)
	setString("REDIS_PASSWORD", &c.RedisPassword)
	if c.RedisHost != "" && c.RedisPort == 0 {
		c.RedisPort = 6379
	}

	setString("NATS_URL", &c.NatsURL)
	setString("NATS_SUBJECT_PREFIX", &c.NatsSubjectPrefix)

	setString("UPLOAD_DIR", &c.UploadDir)
	setString("PUBLIC_BASE_URL", &c.PublicBaseURL)
	setInt("MAX_UPLOAD_MB", &c.MaxUploadMB)

	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_PATH", &c.LogPath)
	setInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	setInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	setInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	setBool("LOG_COMPRESS", &c.LogCompress)

	setString("GIN_MODE", &c.GinMode)
	setString("GIN_PATH", &c.GinPath)
	return errors.Join(errs...)
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
