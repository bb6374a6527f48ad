package metrics

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config
}

// NewRepository opens (and if needed creates) the SQLite rollup store.
func NewRepository(cfg Config, log logger.Logger) (Store, error) {
	errFactory := errors.New()

	if cfg.Path == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.Path,
			Error: err.Error(),
		})
	}

	// WAL lets query handlers read while the collector appends
	dsn := cfg.Path + "?_journal=WAL&_auto_vacuum=2&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := ValidateAndUpdateSchema(db, cfg.BackupPath(), log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.Path).
		Int("schema_version", SchemaVersion).
		Msg("Metrics repository initialized")

	return &repository{
		db:     db,
		logger: log,
		cfg:    cfg,
	}, nil
}

func (r *repository) Append(ctx context.Context, record Record) error {
	errFactory := errors.New()

	if err := record.Validate(); err != nil {
		return errFactory.Wrap(ErrStoreWrite, err)
	}

	if _, err := r.db.ExecContext(ctx, insertRollupSQL,
		record.Resource,
		string(record.Scope),
		record.Entity,
		record.Value,
		record.Timestamp.UnixNano(),
	); err != nil {
		return errFactory.Wrap(ErrStoreWrite, err)
	}

	return nil
}

func (r *repository) QueryLatest(ctx context.Context, key Key) (Record, bool, error) {
	records, err := r.QueryRecent(ctx, key, 1)
	if err != nil {
		return Record{}, false, err
	}
	if len(records) == 0 {
		return Record{}, false, nil
	}

	return records[0], true, nil
}

func (r *repository) QueryRecent(ctx context.Context, key Key, limit int) ([]Record, error) {
	errFactory := errors.New()

	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, selectRecentSQL,
		key.Resource, string(key.Scope), key.Entity, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrStoreRead, err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var (
			record Record
			scope  string
			nanos  int64
		)
		if err := rows.Scan(&record.Resource, &scope, &record.Entity, &record.Value, &nanos); err != nil {
			return nil, errFactory.Wrap(ErrStoreRead, err)
		}
		record.Scope = Scope(scope)
		record.Timestamp = time.Unix(0, nanos)
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStoreRead, err)
	}

	return records, nil
}

func (r *repository) Entities(ctx context.Context, resource string, scope Scope) ([]string, error) {
	errFactory := errors.New()

	rows, err := r.db.QueryContext(ctx, selectEntitiesSQL, resource, string(scope))
	if err != nil {
		return nil, errFactory.Wrap(ErrStoreRead, err)
	}
	defer rows.Close()

	var entities []string
	for rows.Next() {
		var entity string
		if err := rows.Scan(&entity); err != nil {
			return nil, errFactory.Wrap(ErrStoreRead, err)
		}
		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStoreRead, err)
	}

	return entities, nil
}

func (r *repository) Close() error {
	// Checkpoint WAL and cleanup on close
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	r.logger.Info().Msg("Metrics repository closed gracefully")

	return nil
}
