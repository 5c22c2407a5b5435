package postgres

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/shrimpsizemoose/semla/internal/store"
)

const uniqueViolation = pq.ErrorCode("23505")

type PostgresStore struct {
	store.BaseStore
}

func NewPostgresStore(dsn string, migrations fs.FS) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &PostgresStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			return sqlx.Rebind(sqlx.DOLLAR, query)
		},
		IsUniqueViolation: isUniqueViolation,
		RowLock:           " FOR UPDATE",
	}}

	if err := s.ApplyMigrations(migrations, nil); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return s, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
