package main

import (
	"fmt"

	"github.com/aretw0/merits/internal/adapters/file"
	"github.com/aretw0/merits/internal/config"
	"github.com/aretw0/merits/pkg/adapters/memory"
	"github.com/aretw0/merits/pkg/adapters/redis"
	"github.com/aretw0/merits/pkg/ports"
)

// sequences is an opened sequence store with its locker.
type sequences struct {
	store  ports.SequenceStore
	locker ports.Locker
	close  func() error
}

// openStore opens the store the configuration selects.
func openStore(cfg config.StoreConfig) (*sequences, error) {
	nop := func() error { return nil }
	switch cfg.Kind {
	case config.StoreMemory, "":
		return &sequences{store: memory.NewStore(), locker: memory.NewLocker(), close: nop}, nil
	case config.StoreFile:
		return &sequences{store: file.New(cfg.Dir), locker: memory.NewLocker(), close: nop}, nil
	case config.StoreRedis:
		opts := []redis.Option{redis.WithPrefix(cfg.Redis.Prefix)}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Redis.TTL))
		}
		s := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		return &sequences{
			store:  s,
			locker: redis.NewLocker(s.Client(), cfg.Redis.Prefix),
			close:  s.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}
