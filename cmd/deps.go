package cmd

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/apiclient"
	"github.com/frahmantamala/salon-portal/internal/auth"
	authpg "github.com/frahmantamala/salon-portal/internal/auth/postgres"
	authredis "github.com/frahmantamala/salon-portal/internal/auth/redis"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/session"
)

// sessionBackend is the opened session store plus what the health check and shutdown need.
type sessionBackend struct {
	Store auth.Store
	Ping  func(ctx context.Context) error
	Close func() error
}

func newAPIClient(cfg *internal.Config, lg *slog.Logger) *apiclient.Client {
	return apiclient.NewClient(apiclient.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	}, lg)
}

func openSessionBackend(ctx context.Context, cfg internal.SessionConfig, lg *slog.Logger) (*sessionBackend, error) {
	switch cfg.Driver {
	case internal.SessionDriverPostgres, internal.SessionDriverSQLite:
		db, err := initDB(cfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql handle: %w", err)
		}
		return &sessionBackend{
			Store: authpg.NewSessionStore(db, cfg.Owner),
			Ping:  sqlDB.PingContext,
			Close: sqlDB.Close,
		}, nil

	case internal.SessionDriverRedis:
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return &sessionBackend{
			Store: authredis.NewSessionStore(client, cfg.KeyPrefix+":", cfg.Owner, cfg.TTL),
			Ping:  func(ctx context.Context) error { return client.Ping(ctx).Err() },
			Close: client.Close,
		}, nil

	default:
		lg.Warn("session store is in memory; logins do not survive a restart")
		return &sessionBackend{
			Store: auth.NewMemoryStore(),
			Ping:  func(context.Context) error { return nil },
			Close: func() error { return nil },
		}, nil
	}
}

// initDB opens the gorm handle for the session table. Postgres schemas come from goose
// migrations; a local sqlite file is migrated in place.
func initDB(cfg internal.SessionConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	if cfg.Driver == internal.SessionDriverSQLite {
		db, err := gorm.Open(sqlite.Open(cfg.Source), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite session store: %w", err)
		}
		if err := db.AutoMigrate(&session.Record{}); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite session store: %w", err)
		}
		return db, nil
	}

	db, err := gorm.Open(postgres.Open(cfg.Source), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres session store: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// restoreSession rebuilds the persisted login for this process's owner.
func restoreSession(ctx context.Context, cfg *internal.Config, lg *slog.Logger) (*auth.Session, *sessionBackend, error) {
	backend, err := openSessionBackend(ctx, cfg.Session, lg)
	if err != nil {
		return nil, nil, err
	}
	sess := auth.NewSession(newAPIClient(cfg, lg), backend.Store, lg)
	if err := sess.Restore(ctx); err != nil {
		_ = backend.Close()
		return nil, nil, fmt.Errorf("failed to restore session: %w", err)
	}
	return sess, backend, nil
}
