package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE recommendations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT NOT NULL,
				recommended_by TEXT NOT NULL DEFAULT '',
				note TEXT NOT NULL DEFAULT '',
				added_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				likes INTEGER NOT NULL DEFAULT 0,
				series_description TEXT NOT NULL DEFAULT '',
				is_staff_pick BOOLEAN NOT NULL DEFAULT FALSE
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_recommendations_added_at ON recommendations (added_at)`)
		if err != nil {
			return errors.WithStack(err)
		}
		// At most one recommendation can be the staff pick.
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_recommendations_staff_pick ON recommendations (is_staff_pick) WHERE is_staff_pick = 1`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE recommendation_items (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				recommendation_id INTEGER REFERENCES recommendations (id) ON DELETE CASCADE NOT NULL,
				title TEXT NOT NULL,
				authors TEXT NOT NULL DEFAULT '',
				thumbnail_url TEXT NOT NULL DEFAULT '',
				google_volume_id TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				page_count INTEGER,
				narrator TEXT NOT NULL DEFAULT '',
				listening_length TEXT NOT NULL DEFAULT '',
				categories TEXT NOT NULL DEFAULT '',
				publisher TEXT NOT NULL DEFAULT '',
				published_date TEXT NOT NULL DEFAULT '',
				purchase_date TEXT NOT NULL DEFAULT '',
				release_date TEXT NOT NULL DEFAULT '',
				average_rating TEXT NOT NULL DEFAULT '',
				rating_count TEXT NOT NULL DEFAULT '',
				series_name TEXT NOT NULL DEFAULT '',
				series_sequence TEXT NOT NULL DEFAULT '',
				product_id TEXT NOT NULL DEFAULT '',
				asin TEXT NOT NULL DEFAULT '',
				book_url TEXT NOT NULL DEFAULT '',
				series_url TEXT NOT NULL DEFAULT '',
				abridged TEXT NOT NULL DEFAULT '',
				language TEXT NOT NULL DEFAULT '',
				copyright TEXT NOT NULL DEFAULT '',
				series_order INTEGER
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_recommendation_items_recommendation_id ON recommendation_items (recommendation_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE comments (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				recommendation_id INTEGER REFERENCES recommendations (id) ON DELETE CASCADE NOT NULL,
				author TEXT NOT NULL DEFAULT 'Anonymous',
				text TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_comments_recommendation_id ON comments (recommendation_id)`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("DROP TABLE IF EXISTS comments")
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec("DROP TABLE IF EXISTS recommendation_items")
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec("DROP TABLE IF EXISTS recommendations")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
