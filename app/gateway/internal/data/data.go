package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/iWorld-y/custom_search/app/gateway/internal/conf"
)

// Data 持有缓存后端用到的连接，未配置的连接为 nil
type Data struct {
	db  *sql.DB
	rdb *redis.Client
}

func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(logger)
	d := &Data{}

	if c != nil && c.Database != nil && c.Database.Source != "" {
		db, err := sql.Open(c.Database.Driver, c.Database.Source)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := initSchema(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		d.db = db
	}

	if c != nil && c.Redis != nil && c.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       int(c.Redis.Db),
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			if d.db != nil {
				d.db.Close()
			}
			return nil, nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		d.rdb = rdb
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		if d.db != nil {
			d.db.Close()
		}
		if d.rdb != nil {
			d.rdb.Close()
		}
	}
	return d, cleanup, nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS search_cache (
			cache_key TEXT PRIMARY KEY,
			payload JSONB NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to init search_cache table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_search_cache_expires_at ON search_cache (expires_at)`); err != nil {
		return fmt.Errorf("failed to init search_cache index: %w", err)
	}
	return nil
}
