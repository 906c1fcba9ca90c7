package models

import (
	"github.com/uptrace/bun"
)

type RecommendationItem struct {
	bun.BaseModel `bun:"table:recommendation_items,alias:ri"`

	ID               int    `bun:",pk,nullzero" json:"id"`
	RecommendationID int    `json:"recommendation_id"`
	Title            string `json:"title"`
	Authors          string `json:"authors"`
	ThumbnailURL     string `bun:"thumbnail_url" json:"thumbnail_url"`
	GoogleVolumeID   string `bun:"google_volume_id" json:"google_volume_id"`
	Description      string `json:"description"`
	PageCount        *int   `json:"page_count"`
	Narrator         string `json:"narrator"`
	ListeningLength  string `json:"listening_length"`
	// Categories is a comma separated list of genres.
	Categories     string `json:"categories"`
	Publisher      string `json:"publisher"`
	PublishedDate  string `json:"published_date"`
	PurchaseDate   string `json:"purchase_date"`
	ReleaseDate    string `json:"release_date"`
	AverageRating  string `json:"average_rating"`
	RatingCount    string `json:"rating_count"`
	SeriesName     string `json:"series_name"`
	SeriesSequence string `json:"series_sequence"`
	ProductID      string `bun:"product_id" json:"product_id"`
	ASIN           string `bun:"asin" json:"asin"`
	BookURL        string `bun:"book_url" json:"book_url"`
	SeriesURL      string `bun:"series_url" json:"series_url"`
	Abridged       string `json:"abridged"`
	Language       string `json:"language"`
	Copyright      string `json:"copyright"`
	SeriesOrder    *int   `json:"series_order"`
}
