package recommendations

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/htmlutil"
	"github.com/openshelf/openshelf/pkg/models"
)

const (
	SortRecent  = "recent"
	SortPopular = "popular"
	SortTitle   = "title"
	SortAuthor  = "author"
	SortYear    = "year"
	SortLength  = "length"
)

// maxNarratorNames is how many names a narrator filter option keeps before
// the rest are dropped. Narrator filters match by prefix, so the shortened
// value still finds the item.
const maxNarratorNames = 3

type ListOptions struct {
	Limit       *int
	Offset      *int
	Search      *string
	Genre       *string
	Recommender *string
	Narrator    *string
	Sort        string

	includeTotal bool
}

type UpdateOptions struct {
	Columns []string
}

// BulkEditOptions holds the item fields a bulk edit overwrites. Nil or
// blank values leave the field alone.
type BulkEditOptions struct {
	Authors       *string
	Categories    *string
	Narrator      *string
	Publisher     *string
	PublishedYear *string
	Language      *string
}

// BulkUpdateOptions holds the recommendation level fields a bulk update
// overwrites. Category applies to every item of every selected
// recommendation.
type BulkUpdateOptions struct {
	Recommender *string
	Category    *string
}

type FilterOptions struct {
	Genres       []string `json:"genres"`
	Recommenders []string `json:"recommenders"`
	Narrators    []string `json:"narrators"`
}

type Highlights struct {
	HighestRated *models.Recommendation `json:"highest_rated"`
	StaffPick    *models.Recommendation `json:"staff_pick"`
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func orderedItems(sq *bun.SelectQuery) *bun.SelectQuery {
	return sq.OrderExpr("ri.series_order IS NULL, ri.series_order ASC, ri.id ASC")
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (svc *Service) Create(ctx context.Context, rec *models.Recommendation) error {
	if len(rec.Items) == 0 {
		return errcodes.ValidationError("Please add at least one book to the recommendation.")
	}
	if rec.AddedAt.IsZero() {
		rec.AddedAt = time.Now().UTC()
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewInsert().
			Model(rec).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		for i, item := range rec.Items {
			item.ID = 0
			item.RecommendationID = rec.ID
			if item.SeriesOrder == nil {
				order := i + 1
				item.SeriesOrder = &order
			}
		}

		_, err = tx.
			NewInsert().
			Model(&rec.Items).
			Returning("*").
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) Retrieve(ctx context.Context, id int) (*models.Recommendation, error) {
	rec := &models.Recommendation{}

	err := svc.db.
		NewSelect().
		Model(rec).
		Relation("Items", orderedItems).
		Relation("Comments", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("c.created_at DESC", "c.id DESC")
		}).
		Where("r.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Recommendation")
		}
		return nil, errors.WithStack(err)
	}

	return rec, nil
}

func (svc *Service) List(ctx context.Context, opts ListOptions) ([]*models.Recommendation, error) {
	r, _, err := svc.list(ctx, opts)
	return r, errors.WithStack(err)
}

func (svc *Service) ListWithTotal(ctx context.Context, opts ListOptions) ([]*models.Recommendation, int, error) {
	opts.includeTotal = true
	return svc.list(ctx, opts)
}

func (svc *Service) list(ctx context.Context, opts ListOptions) ([]*models.Recommendation, int, error) {
	recs := []*models.Recommendation{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&recs).
		Relation("Items", orderedItems)

	if opts.Genre != nil && *opts.Genre != "" {
		q = q.Where(`EXISTS (SELECT 1 FROM recommendation_items AS gi WHERE gi.recommendation_id = r.id AND gi.categories LIKE ? ESCAPE '\')`,
			"%"+likePattern(*opts.Genre)+"%")
	}
	if opts.Recommender != nil && *opts.Recommender != "" {
		q = q.Where("r.recommended_by = ?", *opts.Recommender)
	}
	if opts.Narrator != nil && *opts.Narrator != "" {
		q = q.Where(`EXISTS (SELECT 1 FROM recommendation_items AS ni WHERE ni.recommendation_id = r.id AND ni.narrator LIKE ? ESCAPE '\')`,
			likePattern(*opts.Narrator)+"%")
	}
	if opts.Search != nil && strings.TrimSpace(*opts.Search) != "" {
		term := "%" + likePattern(strings.ToLower(strings.TrimSpace(*opts.Search))) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where(`lower(r.title) LIKE ? ESCAPE '\'`, term).
				WhereOr(`lower(r.series_description) LIKE ? ESCAPE '\'`, term).
				WhereOr(`EXISTS (SELECT 1 FROM recommendation_items AS si WHERE si.recommendation_id = r.id AND (lower(si.title) LIKE ? ESCAPE '\' OR lower(si.authors) LIKE ? ESCAPE '\' OR lower(si.series_name) LIKE ? ESCAPE '\'))`,
					term, term, term)
		})
	}

	switch opts.Sort {
	case SortPopular:
		q = q.OrderExpr("r.likes DESC, r.added_at DESC")
	case SortTitle:
		q = q.OrderExpr("r.title ASC")
	case SortAuthor:
		q = q.OrderExpr("(SELECT MIN(ai.authors) FROM recommendation_items AS ai WHERE ai.recommendation_id = r.id) ASC")
	case SortYear:
		q = q.OrderExpr("(SELECT MAX(yi.published_date) FROM recommendation_items AS yi WHERE yi.recommendation_id = r.id) DESC")
	case SortLength:
		q = q.OrderExpr("(SELECT COALESCE(SUM(COALESCE(li.page_count, 0)), 0) FROM recommendation_items AS li WHERE li.recommendation_id = r.id) DESC")
	default:
		q = q.OrderExpr("r.added_at DESC")
	}
	q = q.OrderExpr("r.id DESC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return recs, total, nil
}

// Filters returns the values the listing can be filtered by.
func (svc *Service) Filters(ctx context.Context) (*FilterOptions, error) {
	opts := &FilterOptions{Genres: []string{}, Recommenders: []string{}, Narrators: []string{}}

	err := svc.db.
		NewSelect().
		Model((*models.Recommendation)(nil)).
		ColumnExpr("DISTINCT r.recommended_by").
		Where("r.recommended_by != ''").
		OrderExpr("r.recommended_by ASC").
		Scan(ctx, &opts.Recommenders)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var narrators []string
	err = svc.db.
		NewSelect().
		Model((*models.RecommendationItem)(nil)).
		ColumnExpr("DISTINCT ri.narrator").
		Where("ri.narrator != ''").
		Scan(ctx, &narrators)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	opts.Narrators = distinctSorted(narrators, func(n string) []string {
		parts := strings.Split(n, ",")
		if len(parts) <= maxNarratorNames {
			return []string{n}
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return []string{strings.Join(parts[:maxNarratorNames], ", ")}
	})

	var categories []string
	err = svc.db.
		NewSelect().
		Model((*models.RecommendationItem)(nil)).
		Column("ri.categories").
		Where("ri.categories != ''").
		Scan(ctx, &categories)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	opts.Genres = distinctSorted(categories, func(c string) []string {
		return strings.Split(c, ",")
	})

	return opts, nil
}

func distinctSorted(values []string, expand func(string) []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, v := range values {
		for _, e := range expand(v) {
			e = strings.TrimSpace(e)
			if e == "" || seen[e] {
				continue
			}
			seen[e] = true
			out = append(out, e)
		}
	}
	sort.Strings(out)
	return out
}

// Highlights picks the recommendation with the most likes in the calendar
// month of now (UTC) and the current staff pick. When nothing was liked
// this month the all-time most liked recommendation is used instead.
func (svc *Service) Highlights(ctx context.Context, now time.Time) (*Highlights, error) {
	h := &Highlights{}

	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var trending struct {
		RecommendationID int
		Count            int
	}
	err := svc.db.
		NewSelect().
		Model((*models.RecommendationLike)(nil)).
		Column("rl.recommendation_id").
		ColumnExpr("COUNT(*) AS count").
		Where("rl.created_at >= ?", start).
		Where("rl.created_at < ?", end).
		Group("rl.recommendation_id").
		OrderExpr("count DESC, rl.recommendation_id ASC").
		Limit(1).
		Scan(ctx, &trending)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.WithStack(err)
	}

	if trending.RecommendationID > 0 {
		h.HighestRated, err = svc.findOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("r.id = ?", trending.RecommendationID)
		})
	} else {
		h.HighestRated, err = svc.findOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("r.likes DESC, r.added_at DESC")
		})
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	h.StaffPick, err = svc.findOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("r.is_staff_pick = ?", true)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return h, nil
}

// findOne returns nil without an error when nothing matches.
func (svc *Service) findOne(ctx context.Context, apply func(q *bun.SelectQuery) *bun.SelectQuery) (*models.Recommendation, error) {
	rec := &models.Recommendation{}
	q := svc.db.
		NewSelect().
		Model(rec).
		Relation("Items", orderedItems)
	err := apply(q).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}
	return rec, nil
}

func (svc *Service) Update(ctx context.Context, rec *models.Recommendation, opts UpdateOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	res, err := svc.db.
		NewUpdate().
		Model(rec).
		Column(opts.Columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(requireRows(res, "Recommendation"))
}

// Like adds one like and records when it happened. It returns the new
// total.
func (svc *Service) Like(ctx context.Context, id int) (int, error) {
	var likes int

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.
			NewUpdate().
			Model((*models.Recommendation)(nil)).
			Set("likes = likes + 1").
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if err := requireRows(res, "Recommendation"); err != nil {
			return err
		}

		_, err = tx.
			NewInsert().
			Model(&models.RecommendationLike{RecommendationID: id, CreatedAt: time.Now().UTC()}).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		err = tx.
			NewSelect().
			Model((*models.Recommendation)(nil)).
			Column("r.likes").
			Where("r.id = ?", id).
			Scan(ctx, &likes)
		return errors.WithStack(err)
	})
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return likes, nil
}

func (svc *Service) exists(ctx context.Context, db bun.IDB, id int) error {
	ok, err := db.
		NewSelect().
		Model((*models.Recommendation)(nil)).
		Where("r.id = ?", id).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if !ok {
		return errcodes.NotFound("Recommendation")
	}
	return nil
}

func (svc *Service) AddComment(ctx context.Context, recommendationID int, author, text string) (*models.Comment, error) {
	if err := svc.exists(ctx, svc.db, recommendationID); err != nil {
		return nil, err
	}

	author = strings.TrimSpace(author)
	if author == "" {
		author = models.AnonymousAuthor
	}
	comment := &models.Comment{
		RecommendationID: recommendationID,
		Author:           author,
		Text:             strings.TrimSpace(text),
		CreatedAt:        time.Now().UTC(),
	}

	_, err := svc.db.
		NewInsert().
		Model(comment).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return comment, nil
}

func (svc *Service) ListComments(ctx context.Context, recommendationID int) ([]*models.Comment, error) {
	comments := []*models.Comment{}
	err := svc.db.
		NewSelect().
		Model(&comments).
		Where("c.recommendation_id = ?", recommendationID).
		Order("c.created_at DESC", "c.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return comments, nil
}

// AddItem appends an item after the recommendation's current last item.
func (svc *Service) AddItem(ctx context.Context, recommendationID int, item *models.RecommendationItem) error {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := svc.exists(ctx, tx, recommendationID); err != nil {
			return err
		}

		var last int
		err := tx.
			NewSelect().
			Model((*models.RecommendationItem)(nil)).
			ColumnExpr("COALESCE(MAX(ri.series_order), 0)").
			Where("ri.recommendation_id = ?", recommendationID).
			Scan(ctx, &last)
		if err != nil {
			return errors.WithStack(err)
		}

		order := last + 1
		item.ID = 0
		item.RecommendationID = recommendationID
		item.SeriesOrder = &order

		_, err = tx.
			NewInsert().
			Model(item).
			Returning("*").
			Exec(ctx)
		return errors.WithStack(err)
	})
	return errors.WithStack(err)
}

func (svc *Service) RetrieveItem(ctx context.Context, id int) (*models.RecommendationItem, error) {
	item := &models.RecommendationItem{}
	err := svc.db.
		NewSelect().
		Model(item).
		Where("ri.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Item")
		}
		return nil, errors.WithStack(err)
	}
	return item, nil
}

func (svc *Service) UpdateItem(ctx context.Context, item *models.RecommendationItem, opts UpdateOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	res, err := svc.db.
		NewUpdate().
		Model(item).
		Column(opts.Columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(requireRows(res, "Item"))
}

func (svc *Service) RemoveItem(ctx context.Context, id int) error {
	res, err := svc.db.
		NewDelete().
		Model((*models.RecommendationItem)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(requireRows(res, "Item"))
}

// ReorderItems numbers the given items 1..N in the order given. IDs that
// don't belong to the recommendation are ignored.
func (svc *Service) ReorderItems(ctx context.Context, recommendationID int, itemIDs []int) error {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for i, id := range itemIDs {
			_, err := tx.
				NewUpdate().
				Model((*models.RecommendationItem)(nil)).
				Set("series_order = ?", i+1).
				Where("id = ?", id).
				Where("recommendation_id = ?", recommendationID).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	})
	return errors.WithStack(err)
}

func (svc *Service) listItems(ctx context.Context, recommendationID int, ids []int) ([]*models.RecommendationItem, error) {
	items := []*models.RecommendationItem{}
	if len(ids) == 0 {
		return items, nil
	}
	err := svc.db.
		NewSelect().
		Model(&items).
		Where("ri.recommendation_id = ?", recommendationID).
		Where("ri.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return items, nil
}

// BulkEditItems overwrites the given fields on the selected items and
// returns how many were changed.
func (svc *Service) BulkEditItems(ctx context.Context, recommendationID int, ids []int, opts BulkEditOptions) (int, error) {
	items, err := svc.listItems(ctx, recommendationID, ids)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if len(items) == 0 {
		return 0, errcodes.NotFound("Items")
	}

	columns := []string{}
	set := func(column string, v *string, apply func(item *models.RecommendationItem, v string)) {
		if v == nil || strings.TrimSpace(*v) == "" {
			return
		}
		columns = append(columns, column)
		for _, item := range items {
			apply(item, strings.TrimSpace(*v))
		}
	}
	set("authors", opts.Authors, func(item *models.RecommendationItem, v string) { item.Authors = v })
	set("categories", opts.Categories, func(item *models.RecommendationItem, v string) { item.Categories = v })
	set("narrator", opts.Narrator, func(item *models.RecommendationItem, v string) { item.Narrator = v })
	set("publisher", opts.Publisher, func(item *models.RecommendationItem, v string) { item.Publisher = v })
	set("published_date", opts.PublishedYear, func(item *models.RecommendationItem, v string) { item.PublishedDate = v })
	set("language", opts.Language, func(item *models.RecommendationItem, v string) { item.Language = v })
	if len(columns) == 0 {
		return 0, nil
	}

	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, item := range items {
			_, err := tx.
				NewUpdate().
				Model(item).
				Column(columns...).
				WherePK().
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return len(items), nil
}

// BulkRemoveItems deletes the selected items and returns how many were
// removed.
func (svc *Service) BulkRemoveItems(ctx context.Context, recommendationID int, ids []int) (int, error) {
	if len(ids) == 0 {
		return 0, errcodes.NotFound("Items")
	}
	res, err := svc.db.
		NewDelete().
		Model((*models.RecommendationItem)(nil)).
		Where("recommendation_id = ?", recommendationID).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if n == 0 {
		return 0, errcodes.NotFound("Items")
	}
	return int(n), nil
}

// BulkDelete removes recommendations together with their items, comments
// and like history, and returns how many recommendations were removed.
func (svc *Service) BulkDelete(ctx context.Context, ids []int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range []interface{}{
			(*models.RecommendationItem)(nil),
			(*models.Comment)(nil),
			(*models.RecommendationLike)(nil),
		} {
			_, err := tx.
				NewDelete().
				Model(model).
				Where("recommendation_id IN (?)", bun.In(ids)).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		res, err := tx.
			NewDelete().
			Model((*models.Recommendation)(nil)).
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		deleted, err = res.RowsAffected()
		return errors.WithStack(err)
	})
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return int(deleted), nil
}

// BulkUpdate sets the recommender and/or the category of every item on the
// selected recommendations and returns how many recommendations matched.
func (svc *Service) BulkUpdate(ctx context.Context, ids []int, opts BulkUpdateOptions) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var count int
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		count, err = tx.
			NewSelect().
			Model((*models.Recommendation)(nil)).
			Where("r.id IN (?)", bun.In(ids)).
			Count(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if opts.Recommender != nil && strings.TrimSpace(*opts.Recommender) != "" {
			_, err = tx.
				NewUpdate().
				Model((*models.Recommendation)(nil)).
				Set("recommended_by = ?", strings.TrimSpace(*opts.Recommender)).
				Where("id IN (?)", bun.In(ids)).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		if opts.Category != nil && strings.TrimSpace(*opts.Category) != "" {
			_, err = tx.
				NewUpdate().
				Model((*models.RecommendationItem)(nil)).
				Set("categories = ?", strings.TrimSpace(*opts.Category)).
				Where("recommendation_id IN (?)", bun.In(ids)).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return count, nil
}

// ToggleStaffPick flips the staff pick flag. Picking a recommendation
// clears any other pick in the same transaction. It returns the new state.
func (svc *Service) ToggleStaffPick(ctx context.Context, id int) (bool, error) {
	var picked bool

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		rec := &models.Recommendation{}
		err := tx.
			NewSelect().
			Model(rec).
			Where("r.id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Recommendation")
			}
			return errors.WithStack(err)
		}

		picked = !rec.IsStaffPick
		if picked {
			_, err = tx.
				NewUpdate().
				Model((*models.Recommendation)(nil)).
				Set("is_staff_pick = ?", false).
				Where("is_staff_pick = ?", true).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		_, err = tx.
			NewUpdate().
			Model((*models.Recommendation)(nil)).
			Set("is_staff_pick = ?", picked).
			Where("id = ?", id).
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return false, errors.WithStack(err)
	}

	return picked, nil
}

// Resanitize decodes entities, strips markup and collapses whitespace in
// the text fields of every item. It returns how many items changed.
func (svc *Service) Resanitize(ctx context.Context) (int, error) {
	items := []*models.RecommendationItem{}
	err := svc.db.
		NewSelect().
		Model(&items).
		Scan(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	updated := 0
	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, item := range items {
			columns := sanitizeItem(item)
			if len(columns) == 0 {
				continue
			}
			_, err := tx.
				NewUpdate().
				Model(item).
				Column(columns...).
				WherePK().
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return updated, nil
}

func sanitizeItem(item *models.RecommendationItem) []string {
	columns := []string{}
	fields := []struct {
		column string
		value  *string
	}{
		{"title", &item.Title},
		{"authors", &item.Authors},
		{"description", &item.Description},
		{"publisher", &item.Publisher},
		{"narrator", &item.Narrator},
		{"categories", &item.Categories},
	}
	for _, f := range fields {
		if *f.value == "" {
			continue
		}
		if cleaned := htmlutil.Sanitize(*f.value); cleaned != *f.value {
			*f.value = cleaned
			columns = append(columns, f.column)
		}
	}
	return columns
}

// SaveItems writes items back after a background job touched them. Items
// without an ID are inserted.
func (svc *Service) SaveItems(ctx context.Context, items []*models.RecommendationItem) error {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, item := range items {
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
		return nil
	})
	return errors.WithStack(err)
}

func requireRows(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		return errcodes.NotFound(entity)
	}
	return nil
}
