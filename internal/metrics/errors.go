package metrics

import "codeberg.org/mutker/usagemon/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig  = errors.ErrInvalidConfig
	ErrInvalidDBPath  = errors.ErrorCode("metrics_invalid_db_path")
	ErrInvalidBackend = errors.ErrInvalidBackend

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("metrics_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("metrics_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("metrics_schema_migration_failed")

	// Storage Errors
	ErrStorageInit  = errors.ErrInitFailed
	ErrStorageClose = errors.ErrShutdownFailed
	ErrStoreWrite   = errors.ErrStoreWrite
	ErrStoreRead    = errors.ErrStoreRead

	// Record Errors
	ErrInvalidRecord = errors.ErrorCode("metrics_invalid_record")
)
