package libraryimport

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"

	"github.com/openshelf/openshelf/pkg/enrich"
	"github.com/openshelf/openshelf/pkg/htmlutil"
	"github.com/openshelf/openshelf/pkg/jobs"
	"github.com/openshelf/openshelf/pkg/models"
)

// DefaultRecommender is credited with imported books when the uploader
// doesn't give a name.
const DefaultRecommender = "CSV Import"

const (
	missingOrder    = 999
	missingSequence = 9999
)

// ItemEnricher fills an item's empty fields from the catalog sources.
type ItemEnricher interface {
	EnrichItem(ctx context.Context, item *models.RecommendationItem) bool
}

// Importer turns personal library rows into recommendations on the job
// tracker.
type Importer struct {
	db       *bun.DB
	enricher ItemEnricher
	tracker  *jobs.Tracker
}

func NewImporter(db *bun.DB, enricher ItemEnricher, tracker *jobs.Tracker) *Importer {
	return &Importer{
		db:       db,
		enricher: enricher,
		tracker:  tracker,
	}
}

// Start queues an import of rows and returns the job ID.
func (im *Importer) Start(rows []*Row, recommender string) (string, error) {
	recommender = strings.TrimSpace(recommender)
	if recommender == "" {
		recommender = DefaultRecommender
	}
	return im.tracker.Start(jobs.KindImport, func(ctx context.Context, progress *jobs.Progress) (string, error) {
		return im.run(ctx, progress, rows, recommender)
	})
}

func (im *Importer) run(ctx context.Context, progress *jobs.Progress, rows []*Row, recommender string) (string, error) {
	log := logger.FromContext(ctx)

	progress.Update(5, "Reading CSV...")
	if len(rows) == 0 {
		return "", errors.New("No records found.")
	}

	progress.Update(10, fmt.Sprintf("Analysing %d records...", len(rows)))
	seriesNames := []string{}
	standaloneTitles := []string{}
	for _, row := range rows {
		if row.SeriesName != "" {
			seriesNames = append(seriesNames, strings.ToLower(row.SeriesName))
		} else {
			standaloneTitles = append(standaloneTitles, strings.ToLower(rowTitle(row)))
		}
	}
	existingSeries, err := im.loadExisting(ctx, seriesNames, true)
	if err != nil {
		return "", err
	}
	existingStandalone, err := im.loadExisting(ctx, standaloneTitles, false)
	if err != nil {
		return "", err
	}

	progress.Update(20, "Importing to Database...")
	touchedRecs := []*models.Recommendation{}
	touchedItems := []*models.RecommendationItem{}
	now := time.Now().UTC()

	for _, group := range groupBySeries(rows) {
		name := group[0].SeriesName
		rec := findRecommendation(existingSeries, name)
		if rec == nil {
			rec = &models.Recommendation{
				Title:             name,
				RecommendedBy:     recommender,
				AddedAt:           now,
				SeriesDescription: "Imported Series: " + name,
			}
			existingSeries = append(existingSeries, rec)
		}

		for _, row := range group {
			if item := findItem(rec.Items, row.Title); item != nil {
				enrich.MergeItem(item, rowToItem(row))
				touchedItems = append(touchedItems, item)
				continue
			}
			item := rowToItem(row)
			rec.Items = append(rec.Items, item)
			touchedItems = append(touchedItems, item)
		}

		Renumber(rec.Items)
		touchedRecs = appendOnce(touchedRecs, rec)
	}

	for _, row := range rows {
		if row.SeriesName != "" {
			continue
		}
		title := rowTitle(row)
		rec := findRecommendation(existingStandalone, title)
		if rec == nil {
			item := rowToItem(row)
			rec = &models.Recommendation{
				Title:         title,
				RecommendedBy: recommender,
				AddedAt:       now,
				Note:          row.Summary,
				Items:         []*models.RecommendationItem{item},
			}
			existingStandalone = append(existingStandalone, rec)
			touchedItems = append(touchedItems, item)
		} else if len(rec.Items) > 0 {
			enrich.MergeItem(rec.Items[0], rowToItem(row))
			touchedItems = append(touchedItems, rec.Items[0])
		}
		touchedRecs = appendOnce(touchedRecs, rec)
	}

	if err := im.save(ctx, touchedRecs); err != nil {
		return "", err
	}
	progress.Update(50, "Data Imported. Fetching Metadata...")

	total := len(touchedItems)
	for i, item := range touchedItems {
		progress.Update(50+(i+1)*50/total, fmt.Sprintf("Fetching Metadata: %s (%d/%d)", item.Title, i+1, total))
		im.enricher.EnrichItem(ctx, item)
	}
	if err := im.save(ctx, touchedRecs); err != nil {
		return "", err
	}

	log.Info("library import finished", logger.Data{"rows": len(rows), "recommendations": len(touchedRecs), "items": total})
	return fmt.Sprintf("Done! Imported %d books.", len(rows)), nil
}

// loadExisting finds recommendations whose lowercased title is in titles.
// Series imports only match recommendations with more than one item and
// standalone imports only those with at most one.
func (im *Importer) loadExisting(ctx context.Context, titles []string, series bool) ([]*models.Recommendation, error) {
	recs := []*models.Recommendation{}
	if len(titles) == 0 {
		return recs, nil
	}

	err := im.db.
		NewSelect().
		Model(&recs).
		Relation("Items", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.OrderExpr("ri.series_order IS NULL, ri.series_order ASC, ri.id ASC")
		}).
		Where("lower(r.title) IN (?)", bun.In(titles)).
		Order("r.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	matched := []*models.Recommendation{}
	for _, rec := range recs {
		if rec.IsSeries() == series {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

func (im *Importer) save(ctx context.Context, recs []*models.Recommendation) error {
	err := im.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, rec := range recs {
			if rec.ID == 0 {
				_, err := tx.
					NewInsert().
					Model(rec).
					Returning("*").
					Exec(ctx)
				if err != nil {
					return errors.WithStack(err)
				}
			}

			for _, item := range rec.Items {
				item.RecommendationID = rec.ID
				var err error
				if item.ID == 0 {
					_, err = tx.
						NewInsert().
						Model(item).
						Returning("*").
						Exec(ctx)
				} else {
					_, err = tx.
						NewUpdate().
						Model(item).
						WherePK().
						Exec(ctx)
				}
				if err != nil {
					return errors.WithStack(err)
				}
			}
		}
		return nil
	})
	return errors.WithStack(err)
}

// groupBySeries groups rows that have a series name, case-insensitively,
// in the order each series first appears.
func groupBySeries(rows []*Row) [][]*Row {
	index := map[string]int{}
	groups := [][]*Row{}
	for _, row := range rows {
		if row.SeriesName == "" {
			continue
		}
		key := strings.ToLower(row.SeriesName)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, []*Row{})
		}
		groups[i] = append(groups[i], row)
	}
	return groups
}

// Renumber orders items by their explicit order (missing last), then by
// series sequence (unparseable last), and numbers them 1..N.
func Renumber(items []*models.RecommendationItem) {
	order := func(item *models.RecommendationItem) int {
		if item.SeriesOrder == nil {
			return missingOrder
		}
		return *item.SeriesOrder
	}
	sort.SliceStable(items, func(i, j int) bool {
		oi, oj := order(items[i]), order(items[j])
		if oi != oj {
			return oi < oj
		}
		return parseSequence(items[i].SeriesSequence) < parseSequence(items[j].SeriesSequence)
	})
	for i, item := range items {
		n := i + 1
		item.SeriesOrder = &n
	}
}

func parseSequence(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return missingSequence
	}
	return f
}

func rowTitle(row *Row) string {
	if row.Title == "" {
		return "Unknown"
	}
	return row.Title
}

func rowToItem(row *Row) *models.RecommendationItem {
	authors := row.Author
	if authors == "" {
		authors = "Unknown"
	}
	description := htmlutil.CleanString(row.Description)
	if description == "" {
		description = htmlutil.CleanString(row.Summary)
	}

	item := &models.RecommendationItem{
		Title:           rowTitle(row),
		Authors:         authors,
		Narrator:        row.NarratedBy,
		Description:     description,
		Categories:      row.Genre,
		Publisher:       row.Publisher,
		PublishedDate:   row.ReleaseDate,
		ListeningLength: row.Duration,
		PurchaseDate:    row.PurchaseDate,
		ReleaseDate:     row.ReleaseDate,
		AverageRating:   row.AveRating,
		RatingCount:     row.RatingCount,
		SeriesName:      row.SeriesName,
		SeriesSequence:  row.SeriesSequence,
		ProductID:       row.ProductID,
		ASIN:            row.ASIN,
		BookURL:         row.BookURL,
		SeriesURL:       row.SeriesURL,
		Abridged:        row.Abridged,
		Language:        row.Language,
		Copyright:       row.Copyright,
	}
	if n, err := strconv.Atoi(strings.TrimSpace(row.SeriesSequence)); err == nil {
		item.SeriesOrder = &n
	}
	return item
}

func findRecommendation(recs []*models.Recommendation, title string) *models.Recommendation {
	for _, rec := range recs {
		if strings.EqualFold(rec.Title, title) {
			return rec
		}
	}
	return nil
}

func findItem(items []*models.RecommendationItem, title string) *models.RecommendationItem {
	for _, item := range items {
		if strings.EqualFold(item.Title, title) {
			return item
		}
	}
	return nil
}

func appendOnce(recs []*models.Recommendation, rec *models.Recommendation) []*models.Recommendation {
	for _, r := range recs {
		if r == rec {
			return recs
		}
	}
	return append(recs, rec)
}
