// Package app assembles the store, lock and services from configuration.
// Every command builds on it so they all share one wiring.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/appointment-booking/internal/account"
	"github.com/hackgods/appointment-booking/internal/api"
	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/config"
	"github.com/hackgods/appointment-booking/internal/db"
	"github.com/hackgods/appointment-booking/internal/logger"
	redisclient "github.com/hackgods/appointment-booking/internal/redis"
	"github.com/hackgods/appointment-booking/internal/slot"
	"github.com/hackgods/appointment-booking/internal/store"
	"github.com/hackgods/appointment-booking/internal/store/memory"
	"github.com/hackgods/appointment-booking/internal/validation"
)

type App struct {
	Slots        *slot.Service
	Appointments *appointment.Service
	Accounts     *account.Service
	Tokens       *auth.Tokens
	Validator    *validation.Validator
	Checks       []api.Check

	pool  *pgxpool.Pool
	redis *redis.Client
	log   *logger.Logger
}

type repositories struct {
	tx           store.TxRunner
	slots        slot.Repository
	appointments appointment.Repository
	accounts     account.Repository
}

// Build connects to the configured backends. Call Close when done.
func Build(ctx context.Context, cfg config.Config, name string, log *logger.Logger) (*App, error) {
	a := &App{log: log}

	repos, err := a.openStore(ctx, cfg, name)
	if err != nil {
		return nil, err
	}

	locker := redisclient.NewNoopLocker()
	if cfg.RedisEnabled {
		rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis connection error: %w", err)
		}
		a.redis = rdb
		locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
		a.Checks = append(a.Checks, api.Check{Name: "redis", Probe: redisclient.PingCheck(rdb)})
		log.Info("connected to Redis", "addr", cfg.RedisAddr)
	}

	validator, err := validation.New()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Validator = validator
	a.Tokens = auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiresIn)
	a.Slots = slot.NewService(repos.slots, log)
	a.Appointments = appointment.NewService(repos.appointments, a.Slots, repos.tx, locker, log)
	a.Accounts = account.NewService(repos.accounts, repos.tx, a.Tokens, validator, log)

	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.Config, name string) (repositories, error) {
	if cfg.StoreDriver == config.StoreMemory {
		a.log.Warn("using in-memory store, data is lost on exit")
		mem := memory.New()
		return repositories{
			tx:           mem,
			slots:        mem.Slots(),
			appointments: mem.Appointments(),
			accounts:     mem.Accounts(),
		}, nil
	}

	pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(pgCtx, db.PoolOptions{DSN: cfg.PostgresDSN, ApplicationName: name})
	if err != nil {
		return repositories{}, fmt.Errorf("postgres connection error: %w", err)
	}
	a.pool = pool
	a.log.Info("connected to Postgres")

	if cfg.Migrate {
		if err := db.Migrate(pgCtx, pool); err != nil {
			pool.Close()
			return repositories{}, err
		}
		a.log.Info("schema applied")
	}

	a.Checks = append(a.Checks, api.Check{Name: "postgres", Critical: true, Probe: db.PingCheck(pool)})

	pg := store.NewPostgres(pool, cfg.QueryTimeout)
	return repositories{
		tx:           pg,
		slots:        slot.NewPgRepository(pg),
		appointments: appointment.NewPgRepository(pg),
		accounts:     account.NewPgRepository(pg),
	}, nil
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("error closing redis", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
