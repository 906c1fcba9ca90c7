package recommendations

import (
	"github.com/openshelf/openshelf/pkg/models"
)

type ListRecommendationsQuery struct {
	Limit       int     `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=200"`
	Offset      int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search      *string `query:"search" json:"search,omitempty" validate:"omitempty,max=200"`
	Genre       *string `query:"genre" json:"genre,omitempty" validate:"omitempty,max=200"`
	Recommender *string `query:"recommender" json:"recommender,omitempty" validate:"omitempty,max=100"`
	Narrator    *string `query:"narrator" json:"narrator,omitempty" validate:"omitempty,max=300"`
	Sort        string  `query:"sort" json:"sort,omitempty" default:"recent" validate:"oneof=recent popular title author year length"`
}

// ItemPayload describes one book, usually a catalog search result the
// user picked.
type ItemPayload struct {
	Title           string `json:"title" mod:"trim" validate:"required,max=500"`
	Authors         string `json:"authors" mod:"trim" validate:"max=500"`
	ThumbnailURL    string `json:"thumbnail_url" validate:"omitempty,url"`
	GoogleVolumeID  string `json:"google_volume_id" validate:"max=100"`
	Description     string `json:"description"`
	PageCount       *int   `json:"page_count,omitempty" validate:"omitempty,min=0"`
	Narrator        string `json:"narrator" validate:"max=500"`
	ListeningLength string `json:"listening_length" validate:"max=100"`
	Categories      string `json:"categories" validate:"max=500"`
	Publisher       string `json:"publisher" validate:"max=300"`
	PublishedDate   string `json:"published_date" validate:"max=50"`
	Language        string `json:"language" validate:"max=50"`
	SeriesName      string `json:"series_name" validate:"max=300"`
	SeriesSequence  string `json:"series_sequence" validate:"max=20"`
	BookURL         string `json:"book_url" validate:"omitempty,url"`
}

func (p ItemPayload) toModel() *models.RecommendationItem {
	return &models.RecommendationItem{
		Title:           p.Title,
		Authors:         p.Authors,
		ThumbnailURL:    p.ThumbnailURL,
		GoogleVolumeID:  p.GoogleVolumeID,
		Description:     p.Description,
		PageCount:       p.PageCount,
		Narrator:        p.Narrator,
		ListeningLength: p.ListeningLength,
		Categories:      p.Categories,
		Publisher:       p.Publisher,
		PublishedDate:   p.PublishedDate,
		Language:        p.Language,
		SeriesName:      p.SeriesName,
		SeriesSequence:  p.SeriesSequence,
		BookURL:         p.BookURL,
	}
}

type CreateRecommendationPayload struct {
	Title             string        `json:"title" mod:"trim" validate:"required,max=300"`
	RecommendedBy     string        `json:"recommended_by" mod:"trim" validate:"required,max=100"`
	Note              string        `json:"note" validate:"max=5000"`
	SeriesDescription string        `json:"series_description" validate:"max=5000"`
	Items             []ItemPayload `json:"items" validate:"min=1,max=100,dive"`
}

type UpdateRecommendationPayload struct {
	Title             *string `json:"title,omitempty" validate:"omitempty,max=300"`
	RecommendedBy     *string `json:"recommended_by,omitempty" validate:"omitempty,max=100"`
	Note              *string `json:"note,omitempty" validate:"omitempty,max=5000"`
	SeriesDescription *string `json:"series_description,omitempty" validate:"omitempty,max=5000"`
}

type UpdateItemPayload struct {
	Title           *string `json:"title,omitempty" validate:"omitempty,max=500"`
	Authors         *string `json:"authors,omitempty" validate:"omitempty,max=500"`
	Description     *string `json:"description,omitempty"`
	Publisher       *string `json:"publisher,omitempty" validate:"omitempty,max=300"`
	PublishedDate   *string `json:"published_date,omitempty" validate:"omitempty,max=50"`
	PageCount       *int    `json:"page_count,omitempty" validate:"omitempty,min=0"`
	Categories      *string `json:"categories,omitempty" validate:"omitempty,max=500"`
	Narrator        *string `json:"narrator,omitempty" validate:"omitempty,max=500"`
	ListeningLength *string `json:"listening_length,omitempty" validate:"omitempty,max=100"`
	ThumbnailURL    *string `json:"thumbnail_url,omitempty" validate:"omitempty,url"`
	BookURL         *string `json:"book_url,omitempty" validate:"omitempty,url"`
	Language        *string `json:"language,omitempty" validate:"omitempty,max=50"`
	SeriesOrder     *int    `json:"series_order,omitempty" validate:"omitempty,min=1"`
}

type CommentPayload struct {
	Author string `json:"author" mod:"trim" validate:"max=100"`
	Text   string `json:"text" mod:"trim" validate:"required,max=2000"`
}

type ReorderItemsPayload struct {
	ItemIDs []int `json:"item_ids" validate:"min=1,dive,min=1"`
}

type BulkEditItemsPayload struct {
	ItemIDs       []int   `json:"item_ids" validate:"min=1,dive,min=1"`
	Authors       *string `json:"authors,omitempty" validate:"omitempty,max=500"`
	Categories    *string `json:"categories,omitempty" validate:"omitempty,max=500"`
	Narrator      *string `json:"narrator,omitempty" validate:"omitempty,max=500"`
	Publisher     *string `json:"publisher,omitempty" validate:"omitempty,max=300"`
	PublishedYear *string `json:"published_year,omitempty" validate:"omitempty,max=50"`
	Language      *string `json:"language,omitempty" validate:"omitempty,max=50"`
}

type BulkRemoveItemsPayload struct {
	ItemIDs []int `json:"item_ids" validate:"min=1,dive,min=1"`
}

type BulkIDsPayload struct {
	IDs []int `json:"ids" validate:"min=1,dive,min=1"`
}

type BulkUpdatePayload struct {
	IDs         []int   `json:"ids" validate:"min=1,dive,min=1"`
	Recommender *string `json:"recommender,omitempty" validate:"omitempty,max=100"`
	Category    *string `json:"category,omitempty" validate:"omitempty,max=500"`
}
