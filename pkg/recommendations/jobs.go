package recommendations

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/openshelf/openshelf/pkg/catalog"
	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/goodreads"
	"github.com/openshelf/openshelf/pkg/jobs"
	"github.com/openshelf/openshelf/pkg/models"
	"github.com/openshelf/openshelf/pkg/seriesorder"
)

// ItemEnricher fills an item's empty fields from the catalog sources.
type ItemEnricher interface {
	EnrichItem(ctx context.Context, item *models.RecommendationItem) bool
}

// SeriesFinder lists the books of a series in reading order.
type SeriesFinder interface {
	SeriesBooks(ctx context.Context, seriesName, firstBookTitle string) []goodreads.SeriesBook
}

// JobRunner starts the long running recommendation operations on the job
// tracker. Every job loads what it needs through the service, so nothing
// from the triggering request outlives it.
type JobRunner struct {
	service  *Service
	enricher ItemEnricher
	series   SeriesFinder
	settings catalog.SettingsLoader
	tracker  *jobs.Tracker
}

func NewJobRunner(service *Service, enricher ItemEnricher, series SeriesFinder, settings catalog.SettingsLoader, tracker *jobs.Tracker) *JobRunner {
	return &JobRunner{
		service:  service,
		enricher: enricher,
		series:   series,
		settings: settings,
		tracker:  tracker,
	}
}

func (r *JobRunner) StartRefresh(recommendationID int) (string, error) {
	return r.tracker.Start(jobs.KindRefresh, func(ctx context.Context, progress *jobs.Progress) (string, error) {
		return r.refresh(ctx, progress, recommendationID)
	})
}

func (r *JobRunner) StartBulkRefresh(recommendationIDs []int) (string, error) {
	return r.tracker.Start(jobs.KindBulkRefresh, func(ctx context.Context, progress *jobs.Progress) (string, error) {
		return r.bulkRefresh(ctx, progress, recommendationIDs)
	})
}

func (r *JobRunner) StartDiscoverSeries(recommendationID int) (string, error) {
	return r.tracker.Start(jobs.KindDiscoverSeries, func(ctx context.Context, progress *jobs.Progress) (string, error) {
		return r.discoverSeries(ctx, progress, recommendationID)
	})
}

func (r *JobRunner) load(ctx context.Context, id int) (*models.Recommendation, error) {
	rec, err := r.service.Retrieve(ctx, id)
	if err != nil {
		if errors.Is(err, errcodes.NotFound("Recommendation")) {
			return nil, errors.New("Recommendation not found")
		}
		return nil, errors.WithStack(err)
	}
	return rec, nil
}

func (r *JobRunner) refresh(ctx context.Context, progress *jobs.Progress, recommendationID int) (string, error) {
	log := logger.FromContext(ctx)

	progress.Update(5, "Loading recommendation...")
	rec, err := r.load(ctx, recommendationID)
	if err != nil {
		return "", err
	}

	updated := 0
	total := len(rec.Items)
	for i, item := range rec.Items {
		progress.Update(10+(i+1)*80/total, fmt.Sprintf("Fetching metadata: %s (%d/%d)", item.Title, i+1, total))
		if r.enricher.EnrichItem(ctx, item) {
			updated++
		}
	}

	progress.Update(90, "Finalizing...")
	if seriesorder.Resolve(rec.Items) {
		log.Info("series order incomplete or ambiguous, ordered by published date", logger.Data{"recommendation_id": rec.ID})
		updated += len(rec.Items)
	}

	if err := r.service.SaveItems(ctx, rec.Items); err != nil {
		return "", errors.WithStack(err)
	}
	log.Info("refreshed recommendation metadata", logger.Data{"recommendation_id": rec.ID, "updated": updated})

	return fmt.Sprintf("Complete! Updated %d book(s)", updated), nil
}

func (r *JobRunner) bulkRefresh(ctx context.Context, progress *jobs.Progress, ids []int) (string, error) {
	log := logger.FromContext(ctx)

	progress.Update(5, "Loading recommendations...")
	recs := []*models.Recommendation{}
	total := 0
	for _, id := range ids {
		rec, err := r.service.Retrieve(ctx, id)
		if err != nil {
			log.Warn("skipping missing recommendation", logger.Data{"recommendation_id": id})
			continue
		}
		recs = append(recs, rec)
		total += len(rec.Items)
	}

	if total == 0 {
		return fmt.Sprintf("Refreshed metadata for %d recommendations (0 items updated).", len(recs)), nil
	}

	updated := 0
	current := 0
	for _, rec := range recs {
		for _, item := range rec.Items {
			current++
			progress.Update(10+current*85/total, fmt.Sprintf("Fetching metadata: %s (%d/%d)", item.Title, current, total))
			if r.enricher.EnrichItem(ctx, item) {
				updated++
			}
		}
		if err := r.service.SaveItems(ctx, rec.Items); err != nil {
			return "", errors.WithStack(err)
		}
	}

	return fmt.Sprintf("Refreshed metadata for %d recommendations (%d items updated).", len(recs), updated), nil
}

func (r *JobRunner) discoverSeries(ctx context.Context, progress *jobs.Progress, recommendationID int) (string, error) {
	log := logger.FromContext(ctx)

	progress.Update(5, "Loading recommendation...")
	rec, err := r.load(ctx, recommendationID)
	if err != nil {
		return "", err
	}
	if !rec.IsSeries() {
		return "", errors.New("This is not a series recommendation")
	}

	settings, err := r.settings.Get(ctx)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if !settings.EnableGoodreads {
		return "", errors.New("Goodreads is disabled in site settings")
	}

	progress.Update(10, "Searching Goodreads...")
	firstBookTitle := ""
	if len(rec.Items) > 0 {
		firstBookTitle = rec.Items[0].Title
	}
	books := r.series.SeriesBooks(ctx, rec.Title, firstBookTitle)
	if len(books) == 0 {
		return "", errors.New("Could not find series information on Goodreads")
	}

	total := len(books)
	progress.Update(30, fmt.Sprintf("Found %d books. Processing...", total))

	added, updated := 0, 0
	for i, book := range books {
		progress.Update(30+(i+1)*60/total, fmt.Sprintf("Processing: %s (%d/%d)", book.Title, i+1, total))

		order := int(book.Order)
		existing := findByTitle(rec.Items, book.Title)
		if existing != nil {
			existing.SeriesOrder = &order
			existing.SeriesSequence = book.Sequence()
			if existing.ThumbnailURL == "" && book.CoverURL != "" {
				existing.ThumbnailURL = book.CoverURL
			}
			updated++
			continue
		}

		rec.Items = append(rec.Items, &models.RecommendationItem{
			RecommendationID: rec.ID,
			Title:            book.Title,
			Authors:          book.Author,
			ThumbnailURL:     book.CoverURL,
			SeriesOrder:      &order,
			SeriesSequence:   book.Sequence(),
		})
		added++
	}

	progress.Update(95, "Saving changes...")
	if err := r.service.SaveItems(ctx, rec.Items); err != nil {
		return "", errors.WithStack(err)
	}
	log.Info("discovered series books", logger.Data{"recommendation_id": rec.ID, "added": added, "updated": updated})

	return fmt.Sprintf("Complete! Added %d new books, updated %d existing books", added, updated), nil
}

func findByTitle(items []*models.RecommendationItem, title string) *models.RecommendationItem {
	for _, item := range items {
		if strings.EqualFold(strings.TrimSpace(item.Title), strings.TrimSpace(title)) {
			return item
		}
	}
	return nil
}
