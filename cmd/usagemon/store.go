package main

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/logger"
	"codeberg.org/mutker/usagemon/internal/metrics"
	"codeberg.org/mutker/usagemon/internal/metrics/badger"
)

const (
	badgerGCInterval     = 10 * time.Minute
	badgerGCDiscardRatio = 0.5
)

func openStore(cfg metrics.Config) (metrics.Store, error) {
	logger.Info().Str("backend", cfg.Backend).Str("path", cfg.Path).Msg("Opening metrics store")

	switch cfg.Backend {
	case metrics.BackendSQLite:
		return metrics.NewRepository(cfg, logger.Default())
	case metrics.BackendBadger:
		db, err := badger.New(badger.Config{Path: cfg.Path})
		if err != nil {
			return nil, err
		}
		return db, nil
	case metrics.BackendMemory:
		return metrics.NewMemoryStore(), nil
	default:
		return nil, errors.New().WithData(errors.ErrInvalidBackend, cfg.Backend)
	}
}

// startStoreMaintenance runs periodic value log GC for badger stores.
func startStoreMaintenance(ctx context.Context, wg *sync.WaitGroup, store metrics.Store) {
	db, ok := store.(*badger.Storage)
	if !ok {
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(badgerGCInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := db.RunGC(badgerGCDiscardRatio); err != nil {
					logger.Warn().Err(err).Msg("Badger value log GC failed")
				}
			}
		}
	}()
}
