package enrich

import (
	"context"
	"testing"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/pkg/catalog"
	"github.com/openshelf/openshelf/pkg/models"
)

func fullCandidate(source string) *catalog.Result {
	return &catalog.Result{
		Source:          source,
		ID:              source + "-id",
		Title:           "Mistborn",
		FullDescription: source + " description",
		ThumbnailURL:    source + ".jpg",
		PageCount:       pointerutil.Int(541),
		Categories:      "Fantasy",
		Publisher:       source + " publisher",
		PublishedDate:   "2006",
		Language:        "en",
		Narrator:        source + " narrator",
		ListeningLength: "24 hrs",
		Rating:          "4.5",
		URL:             "https://" + source,
	}
}

func TestMergeMissing_FillsEmptyFields(t *testing.T) {
	t.Parallel()

	item := &models.RecommendationItem{Title: "Mistborn"}
	changed := MergeMissing(item, fullCandidate(catalog.SourceGoogleBooks))

	assert.True(t, changed)
	assert.Equal(t, "google description", item.Description)
	assert.Equal(t, "google.jpg", item.ThumbnailURL)
	require.NotNil(t, item.PageCount)
	assert.Equal(t, 541, *item.PageCount)
	assert.Equal(t, "google-id", item.GoogleVolumeID)
	assert.Equal(t, "google narrator", item.Narrator)
	assert.Equal(t, "24 hrs", item.ListeningLength)
}

func TestMergeMissing_NeverOverwrites(t *testing.T) {
	t.Parallel()

	item := &models.RecommendationItem{
		Title:           "Mistborn",
		Description:     "mine",
		ThumbnailURL:    "mine.jpg",
		PageCount:       pointerutil.Int(100),
		Categories:      "mine",
		Publisher:       "mine",
		PublishedDate:   "mine",
		Language:        "mine",
		Narrator:        "mine",
		ListeningLength: "mine",
		GoogleVolumeID:  "mine",
		AverageRating:   "mine",
		BookURL:         "mine",
	}
	before := *item
	before.PageCount = pointerutil.Int(100)

	for _, source := range []string{catalog.SourceGoogleBooks, catalog.SourceOpenLibrary, catalog.SourceAudible, catalog.SourceGoodreads} {
		assert.False(t, MergeMissing(item, fullCandidate(source)), source)
	}
	assert.Equal(t, before, *item)
}

func TestMergeMissing_EmptyCandidateIsNoop(t *testing.T) {
	t.Parallel()

	item := &models.RecommendationItem{Title: "Elantris"}
	assert.False(t, MergeMissing(item, &catalog.Result{Source: catalog.SourceGoogleBooks}))
	assert.False(t, MergeMissing(item, &catalog.Result{Source: catalog.SourceOpenLibrary, PageCount: pointerutil.Int(0)}))
	assert.False(t, MergeMissing(item, nil))
	assert.Equal(t, models.RecommendationItem{Title: "Elantris"}, *item)
}

func TestMergeMissing_Idempotent(t *testing.T) {
	t.Parallel()

	item := &models.RecommendationItem{Title: "Mistborn"}
	c := fullCandidate(catalog.SourceOpenLibrary)
	require.True(t, MergeMissing(item, c))
	once := *item
	assert.False(t, MergeMissing(item, c))
	assert.Equal(t, once, *item)
}

func TestMergeMissing_VolumeIDOnlyFromGoogle(t *testing.T) {
	t.Parallel()

	item := &models.RecommendationItem{Title: "Mistborn"}
	MergeMissing(item, fullCandidate(catalog.SourceOpenLibrary))
	assert.Empty(t, item.GoogleVolumeID)
}

func TestMergeMissing_PrefersFullDescription(t *testing.T) {
	t.Parallel()

	item := &models.RecommendationItem{}
	MergeMissing(item, &catalog.Result{Description: "short...", FullDescription: "the whole thing"})
	assert.Equal(t, "the whole thing", item.Description)

	item = &models.RecommendationItem{}
	MergeMissing(item, &catalog.Result{Description: "only short"})
	assert.Equal(t, "only short", item.Description)
}

func TestMergeItem(t *testing.T) {
	t.Parallel()

	item := &models.RecommendationItem{Title: "Mistborn", Narrator: "Michael Kramer"}
	from := &models.RecommendationItem{
		Title:     "ignored",
		Narrator:  "someone else",
		ASIN:      "B002UZMLXM",
		PageCount: pointerutil.Int(541),
	}

	assert.True(t, MergeItem(item, from))
	assert.Equal(t, "Mistborn", item.Title)
	assert.Equal(t, "Michael Kramer", item.Narrator)
	assert.Equal(t, "B002UZMLXM", item.ASIN)
	assert.Equal(t, 541, *item.PageCount)
	assert.False(t, MergeItem(item, from))
}

type fakeSearcher struct {
	results     []catalog.Result
	description string
	queries     []string
	fetches     int
}

func (f *fakeSearcher) SearchAll(_ context.Context, query string) []catalog.Result {
	f.queries = append(f.queries, query)
	return f.results
}

func (f *fakeSearcher) FetchDescription(_ context.Context, _, _ string) string {
	f.fetches++
	return f.description
}

func TestEnrichItem_PassOrderFirstWriterWins(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{results: []catalog.Result{
		{Source: catalog.SourceGoodreads, Title: "Mistborn", ThumbnailURL: "goodreads.jpg", Rating: "4.47"},
		{Source: catalog.SourceAudible, Title: "Mistborn", Narrator: "Michael Kramer", ThumbnailURL: "audible.jpg", ListeningLength: "24 hrs"},
		{Source: catalog.SourceOpenLibrary, Title: "Something Else", ThumbnailURL: "wrong.jpg"},
		{Source: catalog.SourceOpenLibrary, Title: "Mistborn: The Final Empire", FullDescription: "Ash.", PageCount: pointerutil.Int(541)},
	}}

	item := &models.RecommendationItem{Title: "Mistborn", Authors: "Brandon Sanderson"}
	assert.True(t, New(s).EnrichItem(context.Background(), item))

	assert.Equal(t, []string{"Mistborn Brandon Sanderson"}, s.queries)
	// The catalog pass has no thumbnail on its best match, so audible's
	// cover is the first one written.
	assert.Equal(t, "audible.jpg", item.ThumbnailURL)
	assert.Equal(t, "Ash.", item.Description)
	assert.Equal(t, "Michael Kramer", item.Narrator)
	assert.Equal(t, "4.47", item.AverageRating)
	assert.Equal(t, 0, s.fetches)
}

func TestEnrichItem_FallsBackToDescriptionFetch(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{
		results:     []catalog.Result{{Source: catalog.SourceAudible, Title: "Elantris", Narrator: "Jack Garrett"}},
		description: "Elantris was beautiful, once.",
	}

	item := &models.RecommendationItem{Title: "Elantris", Authors: "Brandon Sanderson"}
	assert.True(t, New(s).EnrichItem(context.Background(), item))
	assert.Equal(t, "Elantris was beautiful, once.", item.Description)
	assert.Equal(t, 1, s.fetches)
}

func TestEnrichItem_NothingFound(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{}
	item := &models.RecommendationItem{Title: "Unknown Book"}
	assert.False(t, New(s).EnrichItem(context.Background(), item))
	assert.False(t, New(s).EnrichItem(context.Background(), &models.RecommendationItem{}))
}

func TestEnrichRecommendation_CountsChangedItems(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{results: []catalog.Result{{Source: catalog.SourceGoogleBooks, Title: "Mistborn", Publisher: "Tor"}}}
	rec := &models.Recommendation{Items: []*models.RecommendationItem{
		{Title: "Mistborn"},
		{Title: "Mistborn", Publisher: "Gollancz", Description: "x"},
	}}

	assert.Equal(t, 1, New(s).EnrichRecommendation(context.Background(), rec))
}
