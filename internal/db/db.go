// Package db opens the Postgres connection behind the document store.
package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/HackGT12/app-view-sub000/internal/config"
)

var ErrNoDSN = errors.New("db.dsn is empty")

type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

// Open connects with the pool settings from cfg. Slow queries and errors
// go to log at warn level; a nil log silences gorm.
func Open(cfg config.DBConfig, log *zap.Logger) (*DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, ErrNoDSN
	}
	gl := gormlogger.Default.LogMode(gormlogger.Silent)
	if log != nil {
		gl = gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{Logger: gl})
	if err != nil {
		return nil, err
	}

	sqldb, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return &DB{Gorm: gdb, SQL: sqldb}, nil
}

func (d *DB) Close() error {
	if d == nil || d.SQL == nil {
		return nil
	}
	return d.SQL.Close()
}

// Ping is the readiness check for the store.
func (d *DB) Ping(ctx context.Context) error {
	if d == nil || d.SQL == nil {
		return errors.New("db not open")
	}
	return d.SQL.PingContext(ctx)
}

// SetTimezone pins the session time zone used for createdAt columns.
func (d *DB) SetTimezone(tz string) error {
	tz = strings.TrimSpace(tz)
	if d == nil || d.SQL == nil || tz == "" {
		return nil
	}
	_, err := d.SQL.Exec("SELECT set_config('TimeZone', $1, false)", tz)
	return err
}
