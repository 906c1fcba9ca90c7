package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE recommendation_likes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				recommendation_id INTEGER REFERENCES recommendations (id) ON DELETE CASCADE NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_recommendation_likes_created_at ON recommendation_likes (created_at, recommendation_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE site_settings (
				id INTEGER PRIMARY KEY,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				google_books_api_key TEXT NOT NULL DEFAULT '',
				enable_google_books BOOLEAN NOT NULL DEFAULT TRUE,
				enable_open_library BOOLEAN NOT NULL DEFAULT TRUE,
				enable_audible BOOLEAN NOT NULL DEFAULT TRUE,
				enable_goodreads BOOLEAN NOT NULL DEFAULT TRUE,
				enable_public_import BOOLEAN NOT NULL DEFAULT FALSE,
				enable_public_metadata_refresh BOOLEAN NOT NULL DEFAULT FALSE,
				enable_get_this_book_links BOOLEAN NOT NULL DEFAULT TRUE
			)
`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("DROP TABLE IF EXISTS site_settings")
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec("DROP TABLE IF EXISTS recommendation_likes")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
