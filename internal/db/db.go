package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// uniqueViolation is the Postgres SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

// Options configures Connect.
type Options struct {
	DSN          string
	MaxOpenConns int
	// Schema, when set, prefixes every table ("crime.reports").
	Schema string
}

// Connect opens the Postgres connection pool. The returned handle is passed
// explicitly to every store; nothing in the process keeps it globally.
func Connect(opts Options, log *zap.Logger) (*gorm.DB, error) {
	if opts.DSN == "" {
		return nil, errors.New("database DSN is empty")
	}

	// Slow queries surface in the structured log stream.
	lg := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             100 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	naming := schema.NamingStrategy{}
	if opts.Schema != "" {
		naming.TablePrefix = opts.Schema + "."
	}

	d, err := gorm.Open(postgres.Open(opts.DSN), &gorm.Config{
		Logger:         lg,
		NamingStrategy: naming,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := d.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	maxOpenConns := opts.MaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = 20
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxOpenConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info("connected to database", zap.Int("maxOpenConns", maxOpenConns))
	return d, nil
}

// IsUniqueViolation reports whether err came from a unique constraint. gorm
// translates it for dialects it knows; the pgconn check covers raw driver errors.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Ping checks the pool can reach the server.
func Ping(d *gorm.DB) error {
	sqlDB, err := d.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
