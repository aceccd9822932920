package script

import (
	"context"
	"database/sql"
	"errors"

	"results-hotline/internal/locale"
)

// PostgresStore reads scripts from the scripts table.
//
// NOTE: Assumed schema:
//
//	CREATE TABLE scripts (
//	  name     TEXT NOT NULL,
//	  language TEXT NOT NULL,
//	  body     TEXT NOT NULL,
//	  PRIMARY KEY (name, language)
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, name string, lang locale.Language) (Script, error) {
	const q = `
SELECT name, language, body
FROM scripts
WHERE name = $1 AND language = $2
`
	var sc Script
	var langCol string
	if err := s.db.QueryRowContext(ctx, q, name, string(locale.Resolve(lang))).Scan(
		&sc.Name,
		&langCol,
		&sc.Body,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Script{}, ErrNotFound
		}
		return Script{}, err
	}
	sc.Language = locale.Language(langCol)
	return sc, nil
}
