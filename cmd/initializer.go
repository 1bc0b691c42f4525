package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"tripbot/internal/config"
	"tripbot/internal/tripbot"
	"tripbot/internal/tripbot/lock"
	"tripbot/internal/tripbot/repo"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger
	registry *prometheus.Registry
	deps     *tripbot.Deps
}

// stdLogger adapts the INFO and ERROR loggers to the module Logger interface.
type stdLogger struct {
	info *log.Logger
	err  *log.Logger
}

func (l stdLogger) Infof(format string, args ...interface{}) {
	l.info.Output(2, fmt.Sprintf(format, args...))
}

func (l stdLogger) Errorf(format string, args ...interface{}) {
	l.err.Output(2, fmt.Sprintf(format, args...))
}

func openStore(ctx context.Context, cfg config.Config, logger stdLogger) (tripbot.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendMySQL, config.BackendPostgres:
		db, err := openDB(cfg.Database.Driver, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		store := repo.NewSQLStore(db, cfg.Database.Driver, logger)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, func() { db.Close() }, nil
	default:
		svc, err := repo.NewSheetsService(ctx, cfg.Sheets.CredentialsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("sheets service: %w", err)
		}
		return repo.NewSheetsStore(svc, cfg.Sheets.SpreadsheetID, cfg.Sheets.Tab, logger), func() {}, nil
	}
}

// openLocker uses Redis when configured so several replicas can share the
// per-trip lock; a single process falls back to an in-memory lock.
func openLocker(ctx context.Context, cfg config.Config, ttl time.Duration, logger stdLogger) (lock.Locker, func(), error) {
	if cfg.Redis.Addr == "" {
		return lock.NewKeyedMutex(), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Infof("Using redis lock at %s", cfg.Redis.Addr)
	return lock.NewRedisLocker(rdb, ttl, logger), func() { rdb.Close() }, nil
}

func openDB(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		log.Printf("Failed to open DB: %v", err)
		return nil, err
	}
	if err = db.Ping(); err != nil {
		log.Printf("Failed to ping DB: %v", err)
		return nil, err
	}
	db.SetMaxIdleConns(5)
	log.Println("Successfully connected to database")
	return db, nil
}
