package db

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Service struct {
	db     *gorm.DB
	driver string
	log    *logger.Logger
}

type Config struct {
	Driver     string
	DSN        string
	SQLitePath string
}

// NewService connects to Postgres by default. Driver "sqlite" opens SQLitePath
// instead, which is what the admin CLI and local runs use.
func NewService(logg *logger.Logger, c Config) (*Service, error) {
	serviceLog := logg.With("service", "DBService")
	driver := strings.ToLower(strings.TrimSpace(c.Driver))

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	cfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	switch driver {
	case DriverSQLite:
		path := strings.TrimSpace(c.SQLitePath)
		if path == "" {
			path = "lectria.db"
		}
		db, err := OpenSQLite(path, cfg)
		if err != nil {
			return nil, err
		}
		serviceLog.Info("Connected to SQLite", "path", path)
		return &Service{db: db, driver: driver, log: serviceLog}, nil
	case DriverPostgres, "":
		if strings.TrimSpace(c.DSN) == "" {
			return nil, fmt.Errorf("missing Postgres DSN")
		}
		db, err := gorm.Open(postgres.Open(c.DSN), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		serviceLog.Info("Connected to Postgres")
		return &Service{db: db, driver: DriverPostgres, log: serviceLog}, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

// PostgresDSN assembles a URL from discrete POSTGRES_* settings.
func PostgresDSN(user, password, host, port, name, sslMode string) string {
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + name,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String()
}

// OpenSQLite opens a single-connection SQLite database. One connection keeps
// writers serialized, so every call inside a transaction must use that tx.
func OpenSQLite(path string, cfg *gorm.Config) (*gorm.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_foreign_keys=on"
	}
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Driver() string { return s.driver }

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
