package sink

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kireeti123/skyarclog/internal/config"
	logpkg "github.com/kireeti123/skyarclog/pkg/log"
)

const redisWriteTimeout = 5 * time.Second

// RedisSink pushes formatted entries onto a Redis list. Consumers drain the
// list with BRPOP, giving a minimal log shipping pipeline.
type RedisSink struct {
	name      string
	filter    Filter
	formatter logpkg.Formatter
	key       string
	client    *redis.Client
}

func buildRedis(cfg config.SinkConfig) (Sink, error) {
	addr := cfg.Settings["addr"]
	if addr == "" {
		return nil, fmt.Errorf("redis sink requires an %q setting", "addr")
	}
	key := cfg.Settings["key"]
	if key == "" {
		key = "skyarclog:logs"
	}
	db := 0
	if v := cfg.Settings["db"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("redis sink: bad db %q: %w", v, err)
		}
		db = n
	}
	filter, err := NewFilter(cfg.Filter)
	if err != nil {
		return nil, err
	}
	return &RedisSink{
		name:      cfg.Name,
		filter:    filter,
		formatter: formatterFor(cfg.Format),
		key:       key,
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Settings["password"],
			DB:       db,
		}),
	}, nil
}

func (s *RedisSink) Name() string { return s.name }

func (s *RedisSink) Write(e *logpkg.Entry) error {
	if !s.filter.Match(e) {
		return nil
	}
	formatted, err := s.formatter.Format(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisWriteTimeout)
	defer cancel()
	return s.client.LPush(ctx, s.key, formatted).Err()
}

func (s *RedisSink) Close() error { return s.client.Close() }
