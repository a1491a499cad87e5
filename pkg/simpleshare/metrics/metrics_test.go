package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-share/pkg/simpleshare"
)

var _ simpleshare.EventSink = (*Sink)(nil)

func TestSinkCounts(t *testing.T) {
	s := NewSink()
	ctx := context.Background()

	require.NoError(t, s.ItemUploaded(ctx, "A", simpleshare.NewFileRecord("a.txt", "A.txt")))
	require.NoError(t, s.ItemUploaded(ctx, "B", simpleshare.NewURLRecord("https://x.y")))
	require.NoError(t, s.ItemResolved(ctx, "A", simpleshare.KindFile, nil))
	require.NoError(t, s.ItemResolved(ctx, "Z", "", simpleshare.ErrNotFound))
	require.NoError(t, s.ItemResolved(ctx, "B", simpleshare.KindURL, errors.Join(simpleshare.ErrInvalidURL)))
	require.NoError(t, s.ItemDeleted(ctx, "A"))
	require.NoError(t, s.ItemRenamed(ctx, "B", "C"))

	assert.Equal(t, 1.0, testutil.ToFloat64(s.uploads.WithLabelValues("file")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.uploads.WithLabelValues("url")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.resolves.WithLabelValues("file", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.resolves.WithLabelValues("unknown", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.resolves.WithLabelValues("url", "invalid_url")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.deletes))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.renames))
}

func TestHandlerExposesMetrics(t *testing.T) {
	s := NewSink()
	require.NoError(t, s.ItemDeleted(context.Background(), "A"))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "simpleshare_deletes_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
