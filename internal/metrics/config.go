package metrics

import (
	"path/filepath"

	"codeberg.org/mutker/usagemon/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm = 0o755
	defaultDBPath  = "/var/lib/usagemon/metrics.db"

	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

type Config struct {
	Backend   string `mapstructure:"backend"`
	Path      string `mapstructure:"path"`
	BackupDir string `mapstructure:"backup_dir"`
}

func DefaultConfig() Config {
	return Config{
		Backend: BackendSQLite,
		Path:    defaultDBPath,
	}
}

// BackupPath returns the directory schema backups are written to.
func (c Config) BackupPath() string {
	if c.BackupDir != "" {
		return c.BackupDir
	}

	return filepath.Join(filepath.Dir(c.Path), "backups")
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch c.Backend {
	case BackendSQLite, BackendBadger:
		if c.Path == "" {
			return errFactory.New(ErrInvalidDBPath)
		}
	case BackendMemory:
	default:
		return errFactory.WithData(ErrInvalidBackend, c.Backend)
	}

	return nil
}
