package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Event store backends.
const (
	EventStoreClickHouse = "clickhouse"
	EventStoreSQLite     = "sqlite"
)

// Config holds every setting the API process needs. It is resolved once at
// startup and treated as read-only afterwards.
type Config struct {
	Port        string
	Environment string
	GinMode     string

	LogLevel    string
	LogPretty   bool
	ServiceName string
	InstanceID  string

	EventStore string
	SQLitePath string
	ClickHouse ClickHouseConfig

	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration

	CORSOrigins []string

	MaxEventsPerBatch int
	ExtraEventTypes   []string
	QueryTimeout      time.Duration
	IngestTimeout     time.Duration

	Archive ArchiveConfig
}

type ClickHouseConfig struct {
	Host       string
	NativePort int
	Database   string
	Username   string
	Password   string
}

// ArchiveConfig controls the optional S3 copy of accepted telemetry batches.
// An empty Bucket disables archiving.
type ArchiveConfig struct {
	Bucket    string
	Prefix    string
	Region    string
	Timeout   time.Duration
	Retries   int
	QueueSize int
}

// Enabled reports whether batches should be archived.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// LoadOptions carries values that come from the command line rather than
// the environment.
type LoadOptions struct {
	ConfigFile string
	Port       string
}

var devOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5500",
	"http://localhost:5500",
	"http://localhost:3000",
}

var prodOrigins = []string{
	"https://balram-complex-frontend.vercel.app",
	"https://balramcomplex.com",
	"http://127.0.0.1:5500",
	"http://localhost:5500",
}

// Load resolves the configuration from defaults, an optional YAML file and the
// process environment, in increasing order of precedence.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.AutomaticEnv()

	if opts.Port != "" {
		v.Set("port", opts.Port)
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "3000")
	v.SetDefault("node_env", "development")
	v.SetDefault("gin_mode", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("service_name", "balram-api")
	v.SetDefault("event_store", EventStoreClickHouse)
	v.SetDefault("sqlite_path", "telemetry.db")
	v.SetDefault("clickhouse_native_port", 9000)
	v.SetDefault("jwt_ttl", "24h")
	v.SetDefault("cors_origins", "")
	v.SetDefault("max_events_per_batch", 1000)
	v.SetDefault("extra_event_types", "")
	v.SetDefault("query_timeout", "10s")
	v.SetDefault("ingest_timeout", "15s")
	v.SetDefault("archive_bucket", "")
	v.SetDefault("archive_prefix", "telemetry/raw")
	v.SetDefault("aws_region", "ap-south-1")
	v.SetDefault("archive_timeout", "5s")
	v.SetDefault("archive_retries", 3)
	v.SetDefault("archive_queue_size", 256)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:        v.GetString("port"),
		Environment: firstNonEmpty(v.GetString("app_env"), v.GetString("node_env")),
		GinMode:     v.GetString("gin_mode"),

		LogLevel:    v.GetString("log_level"),
		LogPretty:   v.GetBool("log_pretty"),
		ServiceName: v.GetString("service_name"),
		InstanceID:  instanceID(),

		EventStore: strings.ToLower(strings.TrimSpace(v.GetString("event_store"))),
		SQLitePath: v.GetString("sqlite_path"),
		ClickHouse: ClickHouseConfig{
			Host:       v.GetString("clickhouse_host"),
			NativePort: v.GetInt("clickhouse_native_port"),
			Database:   v.GetString("clickhouse_db_name"),
			Username:   v.GetString("clickhouse_username"),
			Password:   v.GetString("clickhouse_password"),
		},

		DatabaseURL: v.GetString("database_url"),

		JWTSecret: v.GetString("jwt_secret_key"),
		JWTTTL:    v.GetDuration("jwt_ttl"),

		MaxEventsPerBatch: v.GetInt("max_events_per_batch"),
		ExtraEventTypes:   splitList(v.GetString("extra_event_types")),
		QueryTimeout:      v.GetDuration("query_timeout"),
		IngestTimeout:     v.GetDuration("ingest_timeout"),

		Archive: ArchiveConfig{
			Bucket:    v.GetString("archive_bucket"),
			Prefix:    strings.Trim(v.GetString("archive_prefix"), "/"),
			Region:    v.GetString("aws_region"),
			Timeout:   v.GetDuration("archive_timeout"),
			Retries:   v.GetInt("archive_retries"),
			QueueSize: v.GetInt("archive_queue_size"),
		},
	}

	cfg.CORSOrigins = splitList(v.GetString("cors_origins"))
	if len(cfg.CORSOrigins) == 0 {
		if cfg.IsProduction() {
			cfg.CORSOrigins = prodOrigins
		} else {
			cfg.CORSOrigins = devOrigins
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted sensibly.
func (c Config) Validate() error {
	switch c.EventStore {
	case EventStoreClickHouse:
		if c.ClickHouse.Host == "" || c.ClickHouse.Database == "" {
			return fmt.Errorf("CLICKHOUSE_HOST and CLICKHOUSE_DB_NAME must be set when EVENT_STORE=%s", EventStoreClickHouse)
		}
	case EventStoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH must be set when EVENT_STORE=%s", EventStoreSQLite)
		}
	default:
		return fmt.Errorf("unsupported EVENT_STORE %q", c.EventStore)
	}
	if c.MaxEventsPerBatch <= 0 {
		return fmt.Errorf("MAX_EVENTS_PER_BATCH must be positive, got %d", c.MaxEventsPerBatch)
	}
	if c.QueryTimeout <= 0 || c.IngestTimeout <= 0 {
		return fmt.Errorf("QUERY_TIMEOUT and INGEST_TIMEOUT must be positive")
	}
	return nil
}

// IsProduction reports whether the process runs with NODE_ENV/APP_ENV=production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsRelease reports whether internal error detail must be hidden from clients.
func (c Config) IsRelease() bool {
	return c.GinMode == "release" || c.IsProduction()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// instanceID identifies this process in logs: the hostname, or random hex when
// the hostname is unavailable.
func instanceID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	var b [6]byte
	if _, err := rand.Read(b[:]); err == nil {
		return hex.EncodeToString(b[:])
	}
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}
