package sqlite

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/shrimpsizemoose/semla/internal/store"
)

const driverName = "sqlite"

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

type SQLiteStore struct {
	store.BaseStore
}

func NewSQLiteStore(dsn string, migrations fs.FS) (*SQLiteStore, error) {
	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}
	// :memory: databases live per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			return query
		},
		IsUniqueViolation: isUniqueViolation,
	}}

	if err := s.ApplyMigrations(migrations, translateToSQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return s, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// sqliteReplacements is ordered: longer tokens go before their prefixes.
var sqliteReplacements = []struct{ from, to string }{
	{"BIGINT", "INTEGER"},
	{"VARCHAR(16)", "TEXT"},
	{"FALSE", "0"},
	{"TRUE", "1"},
}

// translateToSQLite converts Postgres SQL to SQLite dialect
func translateToSQLite(sql string) string {
	result := sql
	for _, r := range sqliteReplacements {
		result = strings.ReplaceAll(result, r.from, r.to)
	}
	return result
}
