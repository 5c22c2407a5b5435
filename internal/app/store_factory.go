package app

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/shrimpsizemoose/semla/internal/store"
	"github.com/shrimpsizemoose/semla/internal/store/postgres"
	"github.com/shrimpsizemoose/semla/internal/store/sqlite"
	"github.com/shrimpsizemoose/semla/migrations"
)

// NewStore picks the backend from the DSN. Migrations are the embedded set
// unless migrationsDir points somewhere else.
func NewStore(dsn, migrationsDir string) (store.Store, error) {
	dbType := store.DBTypeSQLite
	if strings.HasPrefix(dsn, "postgres") {
		dbType = store.DBTypePostgres
	}

	var migrationFS fs.FS = migrations.FS
	if migrationsDir != "" {
		migrationFS = os.DirFS(migrationsDir)
	}

	switch dbType {
	case store.DBTypePostgres:
		return postgres.NewPostgresStore(dsn, migrationFS)
	case store.DBTypeSQLite:
		return sqlite.NewSQLiteStore(dsn, migrationFS)
	default:
		return nil, fmt.Errorf("unable to determine database type from DSN: %s", dsn)
	}
}
