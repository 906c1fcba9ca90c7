package settings

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/openshelf/openshelf/pkg/binder"
	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/migrations"
	"github.com/openshelf/openshelf/pkg/models"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestServiceGet_ReturnsDefaultsWhenUnsaved(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, settings.EnableGoogleBooks)
	assert.True(t, settings.EnableGoodreads)
	assert.True(t, settings.EnableGetThisBookLinks)
	assert.False(t, settings.EnablePublicImport)
	assert.Empty(t, settings.GoogleBooksAPIKey)
}

func TestServiceUpdate_Upserts(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	settings := models.DefaultSiteSettings()
	settings.EnableAudible = false
	settings.GoogleBooksAPIKey = "  key-1 "
	_, err := svc.Update(ctx, settings)
	require.NoError(t, err)

	settings.EnablePublicImport = true
	_, err = svc.Update(ctx, settings)
	require.NoError(t, err)

	count, err := db.NewSelect().Model((*models.SiteSettings)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	saved, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.False(t, saved.EnableAudible)
	assert.True(t, saved.EnablePublicImport)
	assert.Equal(t, "key-1", saved.GoogleBooksAPIKey)

	enabled, err := svc.PublicImportEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	enabled, err = svc.PublicMetadataRefreshEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestHandlerUpdate_PartialPayload(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))
	h := &handler{settingsService: svc}

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	req := httptest.NewRequest(http.MethodPut, "/admin/settings", strings.NewReader(`{"enable_goodreads":false}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rr := httptest.NewRecorder()

	require.NoError(t, h.update(e.NewContext(req, rr)))
	assert.Equal(t, http.StatusOK, rr.Code)

	var body models.SiteSettings
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body.EnableGoodreads)
	assert.True(t, body.EnableGoogleBooks)
}
