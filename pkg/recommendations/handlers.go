package recommendations

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	echologger "github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/logger"

	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/jobs"
	"github.com/openshelf/openshelf/pkg/models"
)

type handler struct {
	recommendationService *Service
	jobRunner             *JobRunner
	enricher              ItemEnricher
}

func paramID(c echo.Context, entity string) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		return 0, errcodes.NotFound(entity)
	}
	return id, nil
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListRecommendationsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	recs, total, err := h.recommendationService.ListWithTotal(ctx, ListOptions{
		Limit:       &params.Limit,
		Offset:      &params.Offset,
		Search:      params.Search,
		Genre:       params.Genre,
		Recommender: params.Recommender,
		Narrator:    params.Narrator,
		Sort:        params.Sort,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Recommendations []*models.Recommendation `json:"recommendations"`
		Total           int                      `json:"total"`
	}{recs, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) filters(c echo.Context) error {
	opts, err := h.recommendationService.Filters(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, opts))
}

func (h *handler) highlights(c echo.Context) error {
	hl, err := h.recommendationService.Highlights(c.Request().Context(), time.Now())
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, hl))
}

func (h *handler) retrieve(c echo.Context) error {
	id, err := paramID(c, "Recommendation")
	if err != nil {
		return err
	}

	rec, err := h.recommendationService.Retrieve(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, rec))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	log := echologger.FromEchoContext(c)

	params := CreateRecommendationPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	rec := &models.Recommendation{
		Title:             params.Title,
		RecommendedBy:     params.RecommendedBy,
		Note:              params.Note,
		SeriesDescription: params.SeriesDescription,
	}
	for _, p := range params.Items {
		item := p.toModel()
		// Best effort.
		h.enricher.EnrichItem(ctx, item)
		rec.Items = append(rec.Items, item)
	}

	if err := h.recommendationService.Create(ctx, rec); err != nil {
		return errors.WithStack(err)
	}
	log.Info("recommendation created", logger.Data{"recommendation_id": rec.ID, "items": len(rec.Items)})

	return errors.WithStack(c.JSON(http.StatusCreated, rec))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := paramID(c, "Recommendation")
	if err != nil {
		return err
	}

	params := UpdateRecommendationPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	rec, err := h.recommendationService.Retrieve(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateOptions{Columns: []string{}}
	if params.Title != nil && *params.Title != rec.Title {
		rec.Title = *params.Title
		opts.Columns = append(opts.Columns, "title")
	}
	if params.RecommendedBy != nil && *params.RecommendedBy != rec.RecommendedBy {
		rec.RecommendedBy = *params.RecommendedBy
		opts.Columns = append(opts.Columns, "recommended_by")
	}
	if params.Note != nil && *params.Note != rec.Note {
		rec.Note = *params.Note
		opts.Columns = append(opts.Columns, "note")
	}
	if params.SeriesDescription != nil && *params.SeriesDescription != rec.SeriesDescription {
		rec.SeriesDescription = *params.SeriesDescription
		opts.Columns = append(opts.Columns, "series_description")
	}

	if err := h.recommendationService.Update(ctx, rec, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, rec))
}

func (h *handler) delete(c echo.Context) error {
	id, err := paramID(c, "Recommendation")
	if err != nil {
		return err
	}

	n, err := h.recommendationService.BulkDelete(c.Request().Context(), []int{id})
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		return errcodes.NotFound("Recommendation")
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) like(c echo.Context) error {
	id, err := paramID(c, "Recommendation")
	if err != nil {
		return err
	}

	likes, err := h.recommendationService.Like(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]int{"likes": likes}))
}

func (h *handler) listComments(c echo.Context) error {
	id, err := paramID(c, "Recommendation")
	if err != nil {
		return err
	}

	comments, err := h.recommendationService.ListComments(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, comments))
}

func (h *handler) addComment(c echo.Context) error {
	id, err := paramID(c, "Recommendation")
	if err != nil {
		return err
	}

	params := CommentPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	comment, err := h.recommendationService.AddComment(c.Request().Context(), id, params.Author, params.Text)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, comment))
}

func (h *handler) addItem(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := paramID(c, "Recommendation")
	if err != nil {
		return err
	}

	params := ItemPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	item := params.toModel()
	h.enricher.EnrichItem(ctx, item)

	if err := h.recommendationService.AddItem(ctx, id, item); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, item))
}

func (h *handler) reorderItems(c echo.Context) error {
	id, err := paramID(c, "Recommendation")
	if err != nil {
		return err
	}

	params := ReorderItemsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if err := h.recommendationService.ReorderItems(c.Request().Context(), id, params.ItemIDs); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]bool{"success": true}))
}

func (h *handler) bulkEditItems(c echo.Context) error {
	id, err := paramID(c, "Recommendation")
	if err != nil {
		return err
	}

	params := BulkEditItemsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	updated, err := h.recommendationService.BulkEditItems(c.Request().Context(), id, params.ItemIDs, BulkEditOptions{
		Authors:       params.Authors,
		Categories:    params.Categories,
		Narrator:      params.Narrator,
		Publisher:     params.Publisher,
		PublishedYear: params.PublishedYear,
		Language:      params.Language,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]int{"updated": updated}))
}

func (h *handler) bulkRemoveItems(c echo.Context) error {
	id, err := paramID(c, "Recommendation")
	if err != nil {
		return err
	}

	params := BulkRemoveItemsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	removed, err := h.recommendationService.BulkRemoveItems(c.Request().Context(), id, params.ItemIDs)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]int{"removed": removed}))
}

func (h *handler) updateItem(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := paramID(c, "Item")
	if err != nil {
		return err
	}

	params := UpdateItemPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	item, err := h.recommendationService.RetrieveItem(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateOptions{Columns: []string{}}
	setString := func(column string, dst *string, v *string) {
		if v != nil && *v != *dst {
			*dst = *v
			opts.Columns = append(opts.Columns, column)
		}
	}
	setString("title", &item.Title, params.Title)
	setString("authors", &item.Authors, params.Authors)
	setString("description", &item.Description, params.Description)
	setString("publisher", &item.Publisher, params.Publisher)
	setString("published_date", &item.PublishedDate, params.PublishedDate)
	setString("categories", &item.Categories, params.Categories)
	setString("narrator", &item.Narrator, params.Narrator)
	setString("listening_length", &item.ListeningLength, params.ListeningLength)
	setString("thumbnail_url", &item.ThumbnailURL, params.ThumbnailURL)
	setString("book_url", &item.BookURL, params.BookURL)
	setString("language", &item.Language, params.Language)
	if params.PageCount != nil {
		item.PageCount = params.PageCount
		opts.Columns = append(opts.Columns, "page_count")
	}
	if params.SeriesOrder != nil {
		item.SeriesOrder = params.SeriesOrder
		opts.Columns = append(opts.Columns, "series_order")
	}

	if err := h.recommendationService.UpdateItem(ctx, item, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, item))
}

func (h *handler) removeItem(c echo.Context) error {
	id, err := paramID(c, "Item")
	if err != nil {
		return err
	}

	if err := h.recommendationService.RemoveItem(c.Request().Context(), id); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) startRefresh(c echo.Context) error {
	id, err := paramID(c, "Recommendation")
	if err != nil {
		return err
	}
	if _, err := h.recommendationService.Retrieve(c.Request().Context(), id); err != nil {
		return errors.WithStack(err)
	}

	jobID, err := h.jobRunner.StartRefresh(id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, jobs.StartedResponse{Success: true, ProcessID: jobID}))
}

func (h *handler) startDiscoverSeries(c echo.Context) error {
	id, err := paramID(c, "Recommendation")
	if err != nil {
		return err
	}
	if _, err := h.recommendationService.Retrieve(c.Request().Context(), id); err != nil {
		return errors.WithStack(err)
	}

	jobID, err := h.jobRunner.StartDiscoverSeries(id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, jobs.StartedResponse{Success: true, ProcessID: jobID}))
}

func (h *handler) bulkDelete(c echo.Context) error {
	params := BulkIDsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	deleted, err := h.recommendationService.BulkDelete(c.Request().Context(), params.IDs)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]int{"deleted": deleted}))
}

func (h *handler) bulkUpdate(c echo.Context) error {
	params := BulkUpdatePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	updated, err := h.recommendationService.BulkUpdate(c.Request().Context(), params.IDs, BulkUpdateOptions{
		Recommender: params.Recommender,
		Category:    params.Category,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]int{"updated": updated}))
}

func (h *handler) startBulkRefresh(c echo.Context) error {
	params := BulkIDsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	jobID, err := h.jobRunner.StartBulkRefresh(params.IDs)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, jobs.StartedResponse{Success: true, ProcessID: jobID}))
}

func (h *handler) toggleStaffPick(c echo.Context) error {
	id, err := paramID(c, "Recommendation")
	if err != nil {
		return err
	}

	picked, err := h.recommendationService.ToggleStaffPick(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]bool{"is_staff_pick": picked}))
}

func (h *handler) resanitize(c echo.Context) error {
	updated, err := h.recommendationService.Resanitize(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]int{"updated": updated}))
}
