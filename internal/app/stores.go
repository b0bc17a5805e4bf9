package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"token-risk-monitor/internal/config"
	"token-risk-monitor/internal/storage"
	chstore "token-risk-monitor/internal/storage/clickhouse"
	"token-risk-monitor/internal/storage/memory"
	"token-risk-monitor/internal/storage/migrations"
	pgstore "token-risk-monitor/internal/storage/postgres"
	redisstore "token-risk-monitor/internal/storage/redis"
)

// stores holds the persistence backends selected by configuration.
type stores struct {
	snapshots storage.SnapshotStore
	scores    storage.ScoreStore
	closers   []func() error
}

func (s *stores) close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// openStores connects the snapshot and score backends and applies migrations.
func openStores(ctx context.Context, cfg config.StorageConfig) (*stores, error) {
	s := &stores{}

	switch cfg.Backend {
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error { pool.Close(); return nil })
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			s.close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.snapshots = pgstore.NewSnapshotStore(pool)

	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		s.closers = append(s.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			s.close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		s.snapshots = redisstore.NewSnapshotStore(client, cfg.RedisKey)

	default:
		s.snapshots = memory.NewSnapshotStore()
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		s.closers = append(s.closers, conn.Close)
		s.scores = chstore.NewScoreStore(conn)
	} else {
		s.scores = memory.NewScoreStore()
	}

	return s, nil
}
