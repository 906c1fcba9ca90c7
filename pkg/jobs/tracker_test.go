package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/pkg/binder"
	"github.com/openshelf/openshelf/pkg/config"
	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/worker"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	pool := worker.New(config.NewForTest())
	pool.Start()
	t.Cleanup(pool.Shutdown)
	return NewTracker(pool)
}

func waitDone(t *testing.T, tr *Tracker, id string) Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s := tr.Poll(id); s.Done() {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never finished", id)
	return Status{}
}

func TestPoll_UnknownID(t *testing.T) {
	t.Parallel()

	s := NewTracker(nil).Poll("does-not-exist")
	assert.Equal(t, 0, s.Percent)
	assert.Equal(t, "Unknown process", s.Message)
	assert.True(t, s.IsError)
	assert.False(t, s.IsComplete)
}

func TestStart_Complete(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(t)
	release := make(chan struct{})
	updated := make(chan struct{})

	id, err := tr.Start(KindRefresh, func(_ context.Context, p *Progress) (string, error) {
		p.Update(40, "Fetching metadata: Mistborn (1/2)")
		close(updated)
		<-release
		return "Complete! Updated 2 book(s)", nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	<-updated
	mid := tr.Poll(id)
	assert.Equal(t, 40, mid.Percent)
	assert.Equal(t, "Fetching metadata: Mistborn (1/2)", mid.Message)
	assert.False(t, mid.Done())
	assert.Equal(t, KindRefresh, mid.Kind)

	close(release)
	s := waitDone(t, tr, id)
	assert.True(t, s.IsComplete)
	assert.False(t, s.IsError)
	assert.Equal(t, 100, s.Percent)
	assert.Equal(t, "Complete! Updated 2 book(s)", s.Message)
}

func TestStart_InitialStatus(t *testing.T) {
	t.Parallel()

	// A pool that never runs anything leaves the job in its initial state.
	tr := NewTracker(worker.New(config.NewForTest()))
	id, err := tr.Start(KindImport, func(_ context.Context, _ *Progress) (string, error) {
		return "", nil
	})
	require.NoError(t, err)

	s := tr.Poll(id)
	assert.Equal(t, 0, s.Percent)
	assert.Equal(t, "Starting...", s.Message)
	assert.False(t, s.Done())
}

func TestStart_ErrorAndPanicBecomeFailed(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(t)

	failID, err := tr.Start(KindDiscoverSeries, func(_ context.Context, _ *Progress) (string, error) {
		return "", errors.New("This is not a series recommendation")
	})
	require.NoError(t, err)
	s := waitDone(t, tr, failID)
	assert.True(t, s.IsError)
	assert.Equal(t, "This is not a series recommendation", s.Message)

	panicID, err := tr.Start(KindImport, func(_ context.Context, _ *Progress) (string, error) {
		panic("nil map")
	})
	require.NoError(t, err)
	s = waitDone(t, tr, panicID)
	assert.True(t, s.IsError)
	assert.Contains(t, s.Message, "nil map")
}

func TestProgress_Clamps(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(t)
	checked := make(chan struct{})
	id, err := tr.Start(KindImport, func(_ context.Context, p *Progress) (string, error) {
		p.Update(150, "over")
		assert.Equal(t, 100, tr.Poll(p.ID()).Percent)
		p.Update(-5, "under")
		assert.Equal(t, 0, tr.Poll(p.ID()).Percent)
		close(checked)
		return "done", nil
	})
	require.NoError(t, err)
	<-checked
	waitDone(t, tr, id)
}

func TestStart_QueueFull(t *testing.T) {
	t.Parallel()

	cfg := config.NewForTest()
	cfg.WorkerQueueSize = 1
	tr := NewTracker(worker.New(cfg))
	noop := func(_ context.Context, _ *Progress) (string, error) { return "", nil }

	_, err := tr.Start(KindImport, noop)
	require.NoError(t, err)
	_, err = tr.Start(KindImport, noop)
	require.Error(t, err)

	var e *errcodes.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, http.StatusServiceUnavailable, e.HTTPCode)
}

func TestHandlers(t *testing.T) {
	t.Parallel()

	tr := NewTracker(worker.New(config.NewForTest()))
	id, err := tr.Start(KindImport, func(_ context.Context, _ *Progress) (string, error) { return "", nil })
	require.NoError(t, err)

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	RegisterRoutes(e, tr)

	get := func(path string) (int, map[string]interface{}) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return rec.Code, body
	}

	code, body := get("/progress?jobId=" + id)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Starting...", body["message"])
	assert.Equal(t, false, body["isError"])

	code, body = get("/jobs/unknown")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Unknown process", body["message"])
	assert.Equal(t, true, body["isError"])

	code, _ = get("/progress")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}
