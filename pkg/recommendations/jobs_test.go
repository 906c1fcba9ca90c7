package recommendations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/pkg/goodreads"
	"github.com/openshelf/openshelf/pkg/jobs"
	"github.com/openshelf/openshelf/pkg/models"
	"github.com/openshelf/openshelf/pkg/worker"
)

// inlineSubmitter runs each task before Submit returns.
type inlineSubmitter struct{}

func (inlineSubmitter) Submit(task worker.Task) error {
	err := task.Run(context.Background())
	if task.Finish != nil {
		task.Finish(err)
	}
	return nil
}

type fakeEnricher struct {
	descriptions map[string]string
}

func (f *fakeEnricher) EnrichItem(_ context.Context, item *models.RecommendationItem) bool {
	desc, ok := f.descriptions[item.Title]
	if !ok || item.Description != "" {
		return false
	}
	item.Description = desc
	return true
}

type fakeSeries struct {
	books []goodreads.SeriesBook
}

func (f *fakeSeries) SeriesBooks(_ context.Context, _, _ string) []goodreads.SeriesBook {
	return f.books
}

type staticSettings struct {
	settings *models.SiteSettings
}

func (s staticSettings) Get(_ context.Context) (*models.SiteSettings, error) {
	return s.settings, nil
}

func newTestRunner(t *testing.T, enricher ItemEnricher, series SeriesFinder, settings *models.SiteSettings) (*JobRunner, *Service, *jobs.Tracker) {
	t.Helper()

	svc := NewService(newTestDB(t))
	tracker := jobs.NewTracker(inlineSubmitter{})
	if settings == nil {
		settings = models.DefaultSiteSettings()
	}
	return NewJobRunner(svc, enricher, series, staticSettings{settings}, tracker), svc, tracker
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	enricher := &fakeEnricher{descriptions: map[string]string{"The Final Empire": "Ash falls."}}
	runner, svc, tracker := newTestRunner(t, enricher, &fakeSeries{}, nil)
	ctx := context.Background()

	rec := createRec(ctx, t, svc, "Mistborn", "Ana",
		&models.RecommendationItem{Title: "The Final Empire"},
		&models.RecommendationItem{Title: "The Well of Ascension"},
	)

	id, err := runner.StartRefresh(rec.ID)
	require.NoError(t, err)

	status := tracker.Poll(id)
	assert.True(t, status.IsComplete)
	assert.Equal(t, 100, status.Percent)
	assert.Equal(t, "Complete! Updated 1 book(s)", status.Message)

	item, err := svc.RetrieveItem(ctx, rec.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Ash falls.", item.Description)
}

func TestRefresh_MissingRecommendation(t *testing.T) {
	t.Parallel()

	runner, _, tracker := newTestRunner(t, &fakeEnricher{}, &fakeSeries{}, nil)

	id, err := runner.StartRefresh(42)
	require.NoError(t, err)

	status := tracker.Poll(id)
	assert.True(t, status.IsError)
	assert.Equal(t, "Recommendation not found", status.Message)
}

func TestRefresh_StoreFailureKeepsCause(t *testing.T) {
	t.Parallel()

	runner, svc, tracker := newTestRunner(t, &fakeEnricher{}, &fakeSeries{}, nil)
	require.NoError(t, svc.db.Close())

	id, err := runner.StartRefresh(1)
	require.NoError(t, err)

	status := tracker.Poll(id)
	assert.True(t, status.IsError)
	assert.NotEqual(t, "Recommendation not found", status.Message)
	assert.Contains(t, status.Message, "database is closed")
}

func TestBulkRefresh_SkipsMissing(t *testing.T) {
	t.Parallel()

	enricher := &fakeEnricher{descriptions: map[string]string{"Dune": "Spice.", "Emma": "Matchmaking."}}
	runner, svc, tracker := newTestRunner(t, enricher, &fakeSeries{}, nil)
	ctx := context.Background()

	a := createRec(ctx, t, svc, "Dune", "Ana")
	b := createRec(ctx, t, svc, "Emma", "Ben")

	id, err := runner.StartBulkRefresh([]int{a.ID, b.ID, 999})
	require.NoError(t, err)

	status := tracker.Poll(id)
	assert.True(t, status.IsComplete)
	assert.Equal(t, "Refreshed metadata for 2 recommendations (2 items updated).", status.Message)
}

func TestDiscoverSeries(t *testing.T) {
	t.Parallel()

	series := &fakeSeries{books: []goodreads.SeriesBook{
		{Title: "The Final Empire", Author: "Brandon Sanderson", CoverURL: "https://covers.test/1.jpg", Order: 1},
		{Title: "The Well of Ascension", Author: "Brandon Sanderson", Order: 2},
		{Title: "The Hero of Ages", Author: "Brandon Sanderson", CoverURL: "https://covers.test/3.jpg", Order: 3},
	}}
	runner, svc, tracker := newTestRunner(t, &fakeEnricher{}, series, nil)
	ctx := context.Background()

	rec := createRec(ctx, t, svc, "Mistborn", "Ana",
		&models.RecommendationItem{Title: "the final empire", ThumbnailURL: "https://mine.test/cover.jpg"},
		&models.RecommendationItem{Title: "The Well of Ascension"},
	)

	id, err := runner.StartDiscoverSeries(rec.ID)
	require.NoError(t, err)

	status := tracker.Poll(id)
	assert.True(t, status.IsComplete)
	assert.Equal(t, "Complete! Added 1 new books, updated 2 existing books", status.Message)

	got, err := svc.Retrieve(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 3)
	assert.Equal(t, []string{"the final empire", "The Well of Ascension", "The Hero of Ages"}, itemTitles(got.Items))
	assert.Equal(t, "https://mine.test/cover.jpg", got.Items[0].ThumbnailURL)
	assert.Equal(t, "3", got.Items[2].SeriesSequence)
	assert.Equal(t, "https://covers.test/3.jpg", got.Items[2].ThumbnailURL)
}

func TestDiscoverSeries_Failures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("not a series", func(t *testing.T) {
		t.Parallel()
		runner, svc, tracker := newTestRunner(t, &fakeEnricher{}, &fakeSeries{}, nil)
		rec := createRec(ctx, t, svc, "Dune", "Ana")

		id, err := runner.StartDiscoverSeries(rec.ID)
		require.NoError(t, err)
		status := tracker.Poll(id)
		assert.True(t, status.IsError)
		assert.Equal(t, "This is not a series recommendation", status.Message)
	})

	t.Run("goodreads disabled", func(t *testing.T) {
		t.Parallel()
		settings := models.DefaultSiteSettings()
		settings.EnableGoodreads = false
		runner, svc, tracker := newTestRunner(t, &fakeEnricher{}, &fakeSeries{}, settings)
		rec := createRec(ctx, t, svc, "Pair", "Ana",
			&models.RecommendationItem{Title: "One"},
			&models.RecommendationItem{Title: "Two"},
		)

		id, err := runner.StartDiscoverSeries(rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "Goodreads is disabled in site settings", tracker.Poll(id).Message)
	})

	t.Run("nothing found", func(t *testing.T) {
		t.Parallel()
		runner, svc, tracker := newTestRunner(t, &fakeEnricher{}, &fakeSeries{}, nil)
		rec := createRec(ctx, t, svc, "Pair", "Ana",
			&models.RecommendationItem{Title: "One"},
			&models.RecommendationItem{Title: "Two"},
		)

		id, err := runner.StartDiscoverSeries(rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "Could not find series information on Goodreads", tracker.Poll(id).Message)
	})
}
