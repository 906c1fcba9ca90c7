package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Recommendation struct {
	bun.BaseModel `bun:"table:recommendations,alias:r"`

	ID                int                   `bun:",pk,nullzero" json:"id"`
	Title             string                `json:"title"`
	RecommendedBy     string                `json:"recommended_by"`
	Note              string                `json:"note"`
	AddedAt           time.Time             `json:"added_at"`
	Likes             int                   `json:"likes"`
	SeriesDescription string                `json:"series_description"`
	IsStaffPick       bool                  `json:"is_staff_pick"`
	Items             []*RecommendationItem `bun:"rel:has-many,join:id=recommendation_id" json:"items"`
	Comments          []*Comment            `bun:"rel:has-many,join:id=recommendation_id" json:"comments,omitempty"`
	LikeHistory       []*RecommendationLike `bun:"rel:has-many,join:id=recommendation_id" json:"-"`
}

// IsSeries reports whether the recommendation groups more than one book.
func (r *Recommendation) IsSeries() bool {
	return len(r.Items) > 1
}
