package backup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"

	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/models"
)

type RestoreOptions struct {
	ClearExisting bool
}

// Summary reports what a restore did.
type Summary struct {
	RecommendationsProcessed int  `json:"recommendations_processed"`
	RecommendationsAdded     int  `json:"recommendations_added"`
	ItemsAdded               int  `json:"items_added"`
	ItemsUpdated             int  `json:"items_updated"`
	CommentsAdded            int  `json:"comments_added"`
	RowsSkipped              int  `json:"rows_skipped"`
	ClearedExisting          bool `json:"cleared_existing"`
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// Filename is the download name of a backup taken at now.
func Filename(now time.Time) string {
	return "OpenShelf_FullBackup_" + now.Format("20060102_150405") + ".csv"
}

// Export writes every recommendation as CSV, one row per item, ordered by
// recommendation title.
func (svc *Service) Export(ctx context.Context, w io.Writer) error {
	recs := []*models.Recommendation{}
	err := svc.db.
		NewSelect().
		Model(&recs).
		Relation("Items", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.OrderExpr("ri.series_order IS NULL, ri.series_order ASC, ri.id ASC")
		}).
		Relation("Comments", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("c.created_at ASC", "c.id ASC")
		}).
		OrderExpr("r.title ASC, r.id ASC").
		Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return errors.WithStack(err)
	}
	for _, rec := range recs {
		comments := EncodeComments(rec.Comments)
		if len(rec.Items) == 0 {
			if err := cw.Write(encodeRecord(rec, nil, comments)); err != nil {
				return errors.WithStack(err)
			}
			continue
		}
		for _, item := range rec.Items {
			if err := cw.Write(encodeRecord(rec, item, comments)); err != nil {
				return errors.WithStack(err)
			}
		}
	}
	cw.Flush()

	logger.FromContext(ctx).Info("exported backup", logger.Data{"recommendations": len(recs)})
	return errors.WithStack(cw.Error())
}

// Restore loads a full backup. The file is validated and parsed before
// anything is written, and all writes happen in one transaction.
// Recommendations and items are matched by ID and overwritten; comments
// already present with the same author, text and timestamp are skipped.
func (svc *Service) Restore(ctx context.Context, filename string, data []byte, opts RestoreOptions) (*Summary, error) {
	log := logger.FromContext(ctx)

	if len(data) == 0 {
		return nil, errcodes.ValidationError("Please select a backup file.")
	}
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		return nil, errcodes.ValidationError("Please upload a CSV file.")
	}
	records, skipped, err := ReadRecords(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, errcodes.ValidationError("The backup file could not be read: " + err.Error())
	}
	if len(records) == 0 {
		if skipped > 0 {
			return nil, errcodes.ValidationError("The backup file has no readable rows.")
		}
		return nil, errcodes.ValidationError("The backup file is empty.")
	}

	groups := groupByRecommendation(records)
	summary := &Summary{
		RecommendationsProcessed: len(groups),
		RowsSkipped:              skipped,
		ClearedExisting:          opts.ClearExisting,
	}

	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if opts.ClearExisting {
			if err := clearAll(ctx, tx); err != nil {
				return err
			}
		}
		for _, group := range groups {
			if err := restoreGroup(ctx, tx, group, summary); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	log.Info("restored backup", logger.Data{
		"recommendations": summary.RecommendationsProcessed,
		"added":           summary.RecommendationsAdded,
		"items_added":     summary.ItemsAdded,
		"items_updated":   summary.ItemsUpdated,
		"comments_added":  summary.CommentsAdded,
		"rows_skipped":    summary.RowsSkipped,
		"cleared":         opts.ClearExisting,
	})

	return summary, nil
}

// groupByRecommendation groups records by recommendation ID, keeping the
// order in which each ID first appears.
func groupByRecommendation(records []*Record) [][]*Record {
	index := map[int]int{}
	groups := [][]*Record{}
	for _, r := range records {
		id := r.Recommendation.ID
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, []*Record{})
		}
		groups[i] = append(groups[i], r)
	}
	return groups
}

func clearAll(ctx context.Context, tx bun.Tx) error {
	for _, model := range []interface{}{
		(*models.Comment)(nil),
		(*models.RecommendationLike)(nil),
		(*models.RecommendationItem)(nil),
		(*models.Recommendation)(nil),
	} {
		_, err := tx.
			NewDelete().
			Model(model).
			Where("1 = 1").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func restoreGroup(ctx context.Context, tx bun.Tx, group []*Record, summary *Summary) error {
	rec := group[0].Recommendation

	exists, err := tx.
		NewSelect().
		Model((*models.Recommendation)(nil)).
		Where("r.id = ?", rec.ID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	if rec.IsStaffPick {
		_, err = tx.
			NewUpdate().
			Model((*models.Recommendation)(nil)).
			Set("is_staff_pick = ?", false).
			Where("is_staff_pick = ?", true).
			Where("id != ?", rec.ID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	if exists {
		_, err = tx.
			NewUpdate().
			Model(rec).
			Column("title", "recommended_by", "note", "added_at", "likes", "series_description", "is_staff_pick").
			WherePK().
			Exec(ctx)
	} else {
		_, err = tx.
			NewInsert().
			Model(rec).
			Exec(ctx)
		summary.RecommendationsAdded++
	}
	if err != nil {
		return errors.WithStack(err)
	}

	for _, record := range group {
		if record.Item == nil {
			continue
		}
		if err := restoreItem(ctx, tx, rec.ID, record.Item, summary); err != nil {
			return err
		}
	}

	return restoreComments(ctx, tx, rec.ID, group[0].Comments, summary)
}

func restoreItem(ctx context.Context, tx bun.Tx, recommendationID int, item *models.RecommendationItem, summary *Summary) error {
	item.RecommendationID = recommendationID

	exists, err := tx.
		NewSelect().
		Model((*models.RecommendationItem)(nil)).
		Where("ri.id = ?", item.ID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	if exists {
		_, err = tx.
			NewUpdate().
			Model(item).
			WherePK().
			Exec(ctx)
		summary.ItemsUpdated++
	} else {
		_, err = tx.
			NewInsert().
			Model(item).
			Exec(ctx)
		summary.ItemsAdded++
	}
	return errors.WithStack(err)
}

func restoreComments(ctx context.Context, tx bun.Tx, recommendationID int, cell string, summary *Summary) error {
	parsed := DecodeComments(cell)
	if len(parsed) == 0 {
		return nil
	}

	existing := []*models.Comment{}
	err := tx.
		NewSelect().
		Model(&existing).
		Where("c.recommendation_id = ?", recommendationID).
		Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	seen := func(p ParsedComment) bool {
		for _, c := range existing {
			if c.Author == p.Author && c.Text == p.Text && c.CreatedAt.Equal(p.CreatedAt) {
				return true
			}
		}
		return false
	}

	for _, p := range parsed {
		if seen(p) {
			continue
		}
		comment := &models.Comment{
			RecommendationID: recommendationID,
			Author:           p.Author,
			Text:             p.Text,
			CreatedAt:        p.CreatedAt,
		}
		_, err := tx.
			NewInsert().
			Model(comment).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		existing = append(existing, comment)
		summary.CommentsAdded++
	}
	return nil
}
