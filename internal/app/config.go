package app

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/pedrohsmesquita/Lectria/internal/bibliography"
	"github.com/pedrohsmesquita/Lectria/internal/data/db"
	"github.com/pedrohsmesquita/Lectria/internal/generation"
	"github.com/pedrohsmesquita/Lectria/internal/jobs/worker"
	"github.com/pedrohsmesquita/Lectria/internal/observability"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/envutil"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
	"github.com/pedrohsmesquita/Lectria/internal/services"
	"github.com/pedrohsmesquita/Lectria/internal/sources"
	"github.com/pedrohsmesquita/Lectria/internal/temporalx"
)

const (
	SourceStorageLocal = "local"
	SourceStorageGCS   = "gcs"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
	LockTTL  time.Duration
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type SourcesConfig struct {
	Storage string
	Root    string
	GCS     sources.GCSConfig
}

type Config struct {
	Port            string
	AutoMigrate     bool
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	PromptsFile     string

	DB           db.Config
	Redis        RedisConfig
	OpenAI       generation.OpenAIConfig
	Generation   services.GenerationConfig
	Sources      SourcesConfig
	Temporal     temporalx.Config
	Otel         observability.OtelConfig
	Worker       worker.Config
	Bibliography bibliography.ChapterNames
}

// fileValues holds CONFIG_FILE flattened to env-style keys: [temporal]
// address becomes TEMPORAL_ADDRESS. A key present in the process
// environment always wins over the file.
type fileValues map[string]string

func readConfigFile(path string) (fileValues, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var tree map[string]any
	if err := toml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	out := fileValues{}
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, tree map[string]any, out fileValues) {
	keys := make([]string, 0, len(tree))
	for k := range tree {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		name := strings.ToUpper(strings.ReplaceAll(k, "-", "_"))
		if prefix != "" {
			name = prefix + "_" + name
		}
		switch v := tree[k].(type) {
		case map[string]any:
			flatten(name, v, out)
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			out[name] = strings.Join(parts, ",")
		case time.Time:
			out[name] = v.Format(time.RFC3339)
		default:
			out[name] = fmt.Sprint(v)
		}
	}
}

type settings struct {
	file fileValues
	log  *logger.Logger
}

func (s settings) str(key, def string) string {
	if v, ok := s.file[key]; ok {
		def = v
	}
	return strings.TrimSpace(envutil.GetEnv(key, def, s.log))
}

func (s settings) integer(key string, def int) int {
	if v, ok := s.file[key]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			def = n
		}
	}
	return envutil.GetEnvAsInt(key, def, s.log)
}

func (s settings) boolean(key string, def bool) bool {
	if v, ok := s.file[key]; ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			def = b
		}
	}
	return envutil.GetEnvAsBool(key, def, s.log)
}

func (s settings) duration(key string, def time.Duration) time.Duration {
	if v, ok := s.file[key]; ok {
		v = strings.TrimSpace(v)
		if d, err := time.ParseDuration(v); err == nil {
			def = d
		} else if secs, err := strconv.Atoi(v); err == nil {
			def = time.Duration(secs) * time.Second
		}
	}
	return envutil.GetEnvAsDuration(key, def, s.log)
}

func (s settings) float(key string, def float64) float64 {
	raw := s.str(key, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.log.Warn("Config value is not a number, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return f
}

func (s settings) list(key string) []string {
	var out []string
	for _, part := range strings.Split(s.str(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadConfig reads the environment, layered over CONFIG_FILE when it is set.
func LoadConfig(log *logger.Logger) (Config, error) {
	s := settings{log: log}
	if path := strings.TrimSpace(envutil.GetEnv("CONFIG_FILE", "", log)); path != "" {
		file, err := readConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		log.Info("Loaded config file", "path", path, "keys", len(file))
		s.file = file
	}

	cfg := Config{
		Port:            s.str("PORT", "8080"),
		AutoMigrate:     s.boolean("AUTO_MIGRATE", true),
		ShutdownTimeout: s.duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		CORSOrigins:     s.list("CORS_ALLOWED_ORIGINS"),
		PromptsFile:     s.str("PROMPTS_FILE", ""),

		DB: db.Config{
			Driver:     strings.ToLower(s.str("DB_DRIVER", db.DriverPostgres)),
			DSN:        s.str("DATABASE_URL", ""),
			SQLitePath: s.str("SQLITE_PATH", "lectria.db"),
		},
		Redis: RedisConfig{
			Addr:     s.str("REDIS_ADDR", ""),
			Password: s.str("REDIS_PASSWORD", ""),
			DB:       s.integer("REDIS_DB", 0),
			Channel:  s.str("REDIS_CHANNEL", "lectria:sse"),
			LockTTL:  s.duration("BOOK_LOCK_TTL", 2*time.Minute),
		},
		OpenAI: generation.OpenAIConfig{
			APIKey:     s.str("OPENAI_API_KEY", ""),
			BaseURL:    s.str("OPENAI_BASE_URL", "https://api.openai.com"),
			Model:      s.str("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout:    s.duration("OPENAI_TIMEOUT", 120*time.Second),
			MaxRetries: s.integer("OPENAI_MAX_RETRIES", 2),
		},
		Generation: services.GenerationConfig{
			MaxAttempts:    s.integer("GENERATION_MAX_ATTEMPTS", 5),
			BackoffBase:    s.duration("GENERATION_BACKOFF_BASE", 60*time.Second),
			BackoffMax:     s.duration("GENERATION_BACKOFF_MAX", 15*time.Minute),
			MaxSourceBytes: s.integer("SOURCE_MAX_BYTES", sources.DefaultMaxBytes),
		},
		Sources: SourcesConfig{
			Storage: strings.ToLower(s.str("SOURCE_STORAGE", SourceStorageLocal)),
			Root:    s.str("SOURCE_ROOT", "."),
			GCS: sources.GCSConfig{
				Bucket:          s.str("SOURCE_BUCKET", ""),
				EmulatorHost:    s.str("GCS_EMULATOR_HOST", ""),
				CredentialsFile: s.str("GOOGLE_APPLICATION_CREDENTIALS", ""),
			},
		},
		Temporal: temporalx.Config{
			Address:               s.str("TEMPORAL_ADDRESS", ""),
			Namespace:             s.str("TEMPORAL_NAMESPACE", ""),
			TaskQueue:             s.str("TEMPORAL_TASK_QUEUE", ""),
			ClientCertPath:        s.str("TEMPORAL_CLIENT_CERT", ""),
			ClientKeyPath:         s.str("TEMPORAL_CLIENT_KEY", ""),
			ClientCAPath:          s.str("TEMPORAL_CA", ""),
			AutoRegisterNamespace: s.boolean("TEMPORAL_AUTO_REGISTER_NAMESPACE", true),
			RetentionDays:         s.integer("TEMPORAL_RETENTION_DAYS", 7),
			Concurrency:           s.integer("TEMPORAL_CONCURRENCY", 2),
		},
		Otel: observability.OtelConfig{
			Enabled:     s.boolean("OTEL_ENABLED", false),
			ServiceName: s.str("OTEL_SERVICE_NAME", "lectria"),
			Environment: s.str("OTEL_ENVIRONMENT", "development"),
			Version:     s.str("OTEL_SERVICE_VERSION", ""),
			Endpoint:    s.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     observability.ParseHeaders(s.str("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    s.boolean("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: s.float("OTEL_SAMPLER_RATIO", 0.1),
		},
		Worker: worker.Config{
			Concurrency:  s.integer("WORKER_CONCURRENCY", 2),
			PollInterval: s.duration("WORKER_POLL_INTERVAL", time.Second),
			MaxAttempts:  s.integer("WORKER_MAX_ATTEMPTS", 3),
			StaleRunning: s.duration("WORKER_STALE_RUNNING", 10*time.Minute),
		},
		Bibliography: bibliography.ChapterNames{
			ChapterTitle: s.str("BIBLIOGRAPHY_CHAPTER_TITLE", "References"),
			SectionTitle: s.str("BIBLIOGRAPHY_SECTION_TITLE", "Reference List"),
		},
	}

	if cfg.DB.DSN == "" && cfg.DB.Driver != db.DriverSQLite {
		cfg.DB.DSN = db.PostgresDSN(
			s.str("POSTGRES_USER", "postgres"),
			s.str("POSTGRES_PASSWORD", ""),
			s.str("POSTGRES_HOST", "localhost"),
			s.str("POSTGRES_PORT", "5432"),
			s.str("POSTGRES_NAME", "lectria"),
			s.str("POSTGRES_SSLMODE", "disable"),
		)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DB.Driver {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	switch c.Sources.Storage {
	case SourceStorageLocal:
	case SourceStorageGCS:
		if c.Sources.GCS.Bucket == "" {
			return fmt.Errorf("SOURCE_STORAGE=gcs requires SOURCE_BUCKET")
		}
	default:
		return fmt.Errorf("unsupported SOURCE_STORAGE %q", c.Sources.Storage)
	}
	if c.Redis.LockTTL < time.Second {
		return fmt.Errorf("BOOK_LOCK_TTL must be at least 1s")
	}
	return nil
}
