package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the activity services.
type Config struct {
	AppName  string
	AppEnv   string
	AppPort  string
	LogLevel string

	MongoURI              string
	MongoTimeout          time.Duration
	ActivityDatabase      string
	ActivityCollection    string
	ArchiveDatabase       string
	ActivityEnabled       bool
	RetentionMonths       int
	ArchiveLockTTL        time.Duration
	ArchiveSearchCacheTTL time.Duration
	IndexArchiveYearsBack int
	ExtraRoles            []string
	ExtraModules          []string

	RedisURL          string
	NATSURL           string
	NATSSubjectPrefix string
	JWTSecret         string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// UsesMemoryStore reports whether MONGO_URI selects the in-process store.
func (c Config) UsesMemoryStore() bool {
	return strings.HasPrefix(strings.ToLower(c.MongoURI), "memory://")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Activity API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.timeout", "10s")
	v.SetDefault("mongo.db_activity", "maatify_activity")
	v.SetDefault("mongo.collection_activity", "user_activities")
	v.SetDefault("mongo.db_activity_archive", "maatify_activity_archive")
	v.SetDefault("mongo.activity_enabled", true)
	v.SetDefault("activity.retention_months", 6)
	v.SetDefault("archive.lock_ttl", "30m")
	v.SetDefault("archive.search_cache_ttl", "5m")
	v.SetDefault("index.archive_years_back", 2)
	v.SetDefault("nats.subject_prefix", "activity")

	mongoTimeout, err := parseDuration(v, "mongo.timeout")
	if err != nil {
		return Config{}, err
	}
	lockTTL, err := parseDuration(v, "archive.lock_ttl")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDuration(v, "archive.search_cache_ttl")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:               v.GetString("app.name"),
		AppEnv:                v.GetString("app.env"),
		AppPort:               v.GetString("app.port"),
		LogLevel:              strings.ToLower(v.GetString("log.level")),
		MongoURI:              v.GetString("mongo.uri"),
		MongoTimeout:          mongoTimeout,
		ActivityDatabase:      v.GetString("mongo.db_activity"),
		ActivityCollection:    v.GetString("mongo.collection_activity"),
		ArchiveDatabase:       v.GetString("mongo.db_activity_archive"),
		ActivityEnabled:       v.GetBool("mongo.activity_enabled"),
		RetentionMonths:       v.GetInt("activity.retention_months"),
		ArchiveLockTTL:        lockTTL,
		ArchiveSearchCacheTTL: cacheTTL,
		IndexArchiveYearsBack: v.GetInt("index.archive_years_back"),
		ExtraRoles:            splitList(v.GetString("activity.extra_roles")),
		ExtraModules:          splitList(v.GetString("activity.extra_modules")),
		RedisURL:              v.GetString("redis.url"),
		NATSURL:               v.GetString("nats.url"),
		NATSSubjectPrefix:     v.GetString("nats.subject_prefix"),
		JWTSecret:             v.GetString("jwt.secret"),
	}

	if strings.TrimSpace(cfg.MongoURI) == "" {
		return Config{}, fmt.Errorf("mongo uri must be provided")
	}

	if cfg.RetentionMonths <= 0 {
		return Config{}, fmt.Errorf("activity retention months must be positive, got %d", cfg.RetentionMonths)
	}

	if cfg.ActivityCollection == "" || cfg.ActivityDatabase == "" || cfg.ArchiveDatabase == "" {
		return Config{}, fmt.Errorf("activity database, collection and archive database must be provided")
	}

	if cfg.IndexArchiveYearsBack < 0 {
		cfg.IndexArchiveYearsBack = 0
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	value := strings.TrimSpace(v.GetString(key))
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return duration, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
