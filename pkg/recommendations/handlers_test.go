package recommendations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/pkg/auth"
	"github.com/openshelf/openshelf/pkg/binder"
	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/jobs"
	"github.com/openshelf/openshelf/pkg/models"
	"github.com/openshelf/openshelf/pkg/settings"
)

const testAdminToken = "let-me-in"

type testServer struct {
	e        *echo.Echo
	svc      *Service
	settings *settings.Service
	tracker  *jobs.Tracker
}

func newTestServer(t *testing.T, enricher ItemEnricher) *testServer {
	t.Helper()

	db := newTestDB(t)
	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	svc := NewService(db)
	settingsService := settings.NewService(db)
	tracker := jobs.NewTracker(inlineSubmitter{})
	runner := NewJobRunner(svc, enricher, &fakeSeries{}, settingsService, tracker)
	authMiddleware := auth.NewMiddleware(testAdminToken)

	RegisterRoutes(e, svc, runner, enricher, authMiddleware, settingsService)
	admin := e.Group("/admin", authMiddleware.RequireAdmin)
	RegisterAdminRoutesWithGroup(admin, svc, runner)

	return &testServer{e: e, svc: svc, settings: settingsService, tracker: tracker}
}

func (s *testServer) do(t *testing.T, method, path, body string, admin bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if admin {
		req.Header.Set(auth.HeaderAdminToken, testAdminToken)
	}
	rr := httptest.NewRecorder()
	s.e.ServeHTTP(rr, req)
	return rr
}

func TestHandlerCreate_EnrichesItems(t *testing.T) {
	t.Parallel()

	enricher := &fakeEnricher{descriptions: map[string]string{"Piranesi": "A house of endless halls."}}
	s := newTestServer(t, enricher)

	rr := s.do(t, http.MethodPost, "/recommendations", `{
		"title": " Piranesi ",
		"recommended_by": "Ana",
		"items": [{"title": "Piranesi", "authors": "Susanna Clarke"}]
	}`, false)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var rec models.Recommendation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "Piranesi", rec.Title)
	require.Len(t, rec.Items, 1)
	assert.Equal(t, "A house of endless halls.", rec.Items[0].Description)
}

func TestHandlerCreate_Validation(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEnricher{})

	rr := s.do(t, http.MethodPost, "/recommendations", `{"title":"No books","recommended_by":"Ana","items":[]}`, false)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = s.do(t, http.MethodPost, "/recommendations", `{"title":"Bad","recommended_by":"Ana","items":[{"title":"X","thumbnail_url":"not a url"}]}`, false)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestHandlerList(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEnricher{})
	ctx := context.Background()
	createRec(ctx, t, s.svc, "Beta", "Ana")
	createRec(ctx, t, s.svc, "Alpha", "Ben")

	rr := s.do(t, http.MethodGet, "/recommendations?sort=title&limit=1", "", false)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Recommendations []*models.Recommendation `json:"recommendations"`
		Total           int                      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, []string{"Alpha"}, recTitles(resp.Recommendations))

	rr = s.do(t, http.MethodGet, "/recommendations?sort=random", "", false)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestHandlerLikeAndComment(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEnricher{})
	rec := createRec(context.Background(), t, s.svc, "Liked", "Ana")
	base := "/recommendations/" + strconv.Itoa(rec.ID)

	rr := s.do(t, http.MethodPost, base+"/like", "", false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"likes":1}`, rr.Body.String())

	rr = s.do(t, http.MethodPost, base+"/comments", `{"text":"Great read"}`, false)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var comment models.Comment
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &comment))
	assert.Equal(t, models.AnonymousAuthor, comment.Author)

	rr = s.do(t, http.MethodPost, "/recommendations/999/like", "", false)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerAdminRoutes_RequireToken(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEnricher{})
	rec := createRec(context.Background(), t, s.svc, "Pick me", "Ana")
	path := "/admin/recommendations/" + strconv.Itoa(rec.ID) + "/staff-pick"

	rr := s.do(t, http.MethodPost, path, "", false)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, http.MethodPost, path, "", true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"is_staff_pick":true}`, rr.Body.String())

	rr = s.do(t, http.MethodPost, "/admin/recommendations/bulk-delete", `{"ids":[`+strconv.Itoa(rec.ID)+`]}`, true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"deleted":1}`, rr.Body.String())
}

func TestHandlerRefresh_PublicToggle(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEnricher{})
	ctx := context.Background()
	rec := createRec(ctx, t, s.svc, "Refresh me", "Ana")
	path := "/recommendations/" + strconv.Itoa(rec.ID) + "/refresh"

	rr := s.do(t, http.MethodPost, path, "", false)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	current, err := s.settings.Get(ctx)
	require.NoError(t, err)
	current.EnablePublicMetadataRefresh = true
	_, err = s.settings.Update(ctx, current)
	require.NoError(t, err)

	rr = s.do(t, http.MethodPost, path, "", false)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var started jobs.StartedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &started))
	assert.True(t, started.Success)
	assert.True(t, s.tracker.Poll(started.ProcessID).IsComplete)

	rr = s.do(t, http.MethodPost, "/recommendations/999/refresh", "", true)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerItemRoutes(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEnricher{})
	rec := createRec(context.Background(), t, s.svc, "Series", "Ana",
		&models.RecommendationItem{Title: "One"},
		&models.RecommendationItem{Title: "Two"},
	)
	itemPath := "/items/" + strconv.Itoa(rec.Items[0].ID)

	rr := s.do(t, http.MethodPut, itemPath, `{"narrator":"Kate Reading"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, http.MethodPut, itemPath, `{"narrator":"Kate Reading","series_order":5}`, true)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var item models.RecommendationItem
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &item))
	assert.Equal(t, "Kate Reading", item.Narrator)
	require.NotNil(t, item.SeriesOrder)
	assert.Equal(t, 5, *item.SeriesOrder)

	rr = s.do(t, http.MethodDelete, itemPath, "", true)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
