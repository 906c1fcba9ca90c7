package enrich

import (
	"strings"

	"github.com/openshelf/openshelf/pkg/catalog"
	"github.com/openshelf/openshelf/pkg/models"
)

// MergeMissing copies candidate values into the item's empty fields. Fields
// that already hold a value are never overwritten. It reports whether any
// field changed.
func MergeMissing(item *models.RecommendationItem, candidate *catalog.Result) bool {
	if item == nil || candidate == nil {
		return false
	}

	changed := false
	fill := func(dst *string, src string) {
		if strings.TrimSpace(*dst) == "" && strings.TrimSpace(src) != "" {
			*dst = src
			changed = true
		}
	}

	desc := candidate.FullDescription
	if desc == "" {
		desc = candidate.Description
	}
	fill(&item.Description, desc)
	fill(&item.ThumbnailURL, candidate.ThumbnailURL)
	fill(&item.Publisher, candidate.Publisher)
	fill(&item.PublishedDate, candidate.PublishedDate)
	fill(&item.Categories, candidate.Categories)
	fill(&item.Narrator, candidate.Narrator)
	fill(&item.ListeningLength, candidate.ListeningLength)
	fill(&item.Language, candidate.Language)
	fill(&item.AverageRating, candidate.Rating)
	fill(&item.BookURL, candidate.URL)
	if candidate.Source == catalog.SourceGoogleBooks {
		fill(&item.GoogleVolumeID, candidate.ID)
	}

	if (item.PageCount == nil || *item.PageCount == 0) && candidate.PageCount != nil && *candidate.PageCount > 0 {
		pc := *candidate.PageCount
		item.PageCount = &pc
		changed = true
	}

	return changed
}

// MergeItem fills the empty fields of item from another stored item. Title,
// identity and ordering fields are left alone.
func MergeItem(item, from *models.RecommendationItem) bool {
	if item == nil || from == nil {
		return false
	}

	changed := false
	fill := func(dst *string, src string) {
		if strings.TrimSpace(*dst) == "" && strings.TrimSpace(src) != "" {
			*dst = src
			changed = true
		}
	}

	fill(&item.Authors, from.Authors)
	fill(&item.ThumbnailURL, from.ThumbnailURL)
	fill(&item.GoogleVolumeID, from.GoogleVolumeID)
	fill(&item.Description, from.Description)
	fill(&item.Narrator, from.Narrator)
	fill(&item.ListeningLength, from.ListeningLength)
	fill(&item.Categories, from.Categories)
	fill(&item.Publisher, from.Publisher)
	fill(&item.PublishedDate, from.PublishedDate)
	fill(&item.PurchaseDate, from.PurchaseDate)
	fill(&item.ReleaseDate, from.ReleaseDate)
	fill(&item.AverageRating, from.AverageRating)
	fill(&item.RatingCount, from.RatingCount)
	fill(&item.SeriesName, from.SeriesName)
	fill(&item.SeriesSequence, from.SeriesSequence)
	fill(&item.ProductID, from.ProductID)
	fill(&item.ASIN, from.ASIN)
	fill(&item.BookURL, from.BookURL)
	fill(&item.SeriesURL, from.SeriesURL)
	fill(&item.Abridged, from.Abridged)
	fill(&item.Language, from.Language)
	fill(&item.Copyright, from.Copyright)

	if (item.PageCount == nil || *item.PageCount == 0) && from.PageCount != nil && *from.PageCount > 0 {
		pc := *from.PageCount
		item.PageCount = &pc
		changed = true
	}

	return changed
}
