package models

import (
	"time"

	"github.com/uptrace/bun"
)

const AnonymousAuthor = "Anonymous"

type Comment struct {
	bun.BaseModel `bun:"table:comments,alias:c"`

	ID               int       `bun:",pk,nullzero" json:"id"`
	RecommendationID int       `json:"recommendation_id"`
	Author           string    `json:"author"`
	Text             string    `json:"text"`
	CreatedAt        time.Time `json:"created_at"`
}

// RecommendationLike is a single like event. The running total lives on
// Recommendation.Likes; the events back time windowed popularity.
type RecommendationLike struct {
	bun.BaseModel `bun:"table:recommendation_likes,alias:rl"`

	ID               int       `bun:",pk,nullzero" json:"id"`
	RecommendationID int       `json:"recommendation_id"`
	CreatedAt        time.Time `json:"created_at"`
}
