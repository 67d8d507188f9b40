package export_test

import (
	"context"
	"net/http"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/renovo-atelier/atelier/basket"
	"github.com/renovo-atelier/atelier/cache"
	"github.com/renovo-atelier/atelier/export"
	"github.com/renovo-atelier/atelier/localization"
	"github.com/renovo-atelier/atelier/routing"
	"github.com/renovo-atelier/atelier/site"
)

func newSite(t *testing.T) *site.Site {
	t.Helper()
	manager, err := localization.NewManager(nil)
	require.NoError(t, err)

	raw := cache.NewInMemoryCache()
	t.Cleanup(func() { _ = raw.Close() })

	st, err := site.New(site.Options{
		Routing:  routing.Default(),
		Manager:  manager,
		Sessions: basket.NewSessions(basket.NewStore(raw, time.Hour), time.Hour, false),
		SiteURL:  "https://renovo-atelier.example",
	})
	require.NoError(t, err)
	return st
}

func TestKey(t *testing.T) {
	assert.Equal(t, "en/index.html", export.Key("/en/"))
	assert.Equal(t, "ua/basket/index.html", export.Key("/ua/basket"))
	assert.Equal(t, "index.html", export.Key("/"))
}

func TestExportWritesEveryLocalePage(t *testing.T) {
	ctx := context.Background()
	st := newSite(t)
	bucket := memblob.OpenBucket(nil)
	defer func() { _ = bucket.Close() }()

	written, err := export.New(export.Options{
		Handler:     st.Handler(),
		Routing:     st.Routing(),
		Assets:      site.Assets(),
		Concurrency: 3,
	}).Export(ctx, bucket)
	require.NoError(t, err)

	for _, key := range []string{
		"en/index.html", "ru/index.html", "pl/index.html", "ua/index.html",
		"en/basket/index.html", "ua/basket/index.html",
		"404.html",
		"static/site.css", "og-image.jpg", "services/repair.svg",
	} {
		assert.Contains(t, written, key)
		exists, existsErr := bucket.Exists(ctx, key)
		require.NoError(t, existsErr)
		assert.True(t, exists, key)
	}

	home, err := bucket.ReadAll(ctx, "pl/index.html")
	require.NoError(t, err)
	assert.Contains(t, string(home), `<html lang="pl">`)
	assert.Contains(t, string(home), "Nasze usługi")

	attrs, err := bucket.Attributes(ctx, "en/index.html")
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", attrs.ContentType)

	notFound, err := bucket.ReadAll(ctx, "404.html")
	require.NoError(t, err)
	assert.Contains(t, string(notFound), "Page not found")
}

func TestExportReportsFailingPages(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer func() { _ = bucket.Close() }()

	broken := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ru/" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		status := http.StatusOK
		if r.URL.Path == "/en/404.html" {
			status = http.StatusNotFound
		}
		w.WriteHeader(status)
	})

	written, err := export.New(export.Options{
		Handler: broken,
		Routing: routing.Default(),
		Pages:   []string{"/"},
		Assets:  fstest.MapFS{"robots.txt": {Data: []byte("User-agent: *\n")}},
	}).Export(ctx, bucket)
	require.ErrorIs(t, err, export.ErrPageStatus)
	assert.Equal(t, []string{"404.html", "en/index.html", "pl/index.html", "robots.txt", "ua/index.html"}, written)
}

func TestOpenBucket(t *testing.T) {
	ctx := context.Background()
	bucket, err := export.OpenBucket(ctx, "mem://")
	require.NoError(t, err)
	require.NoError(t, bucket.Close())

	_, err = export.OpenBucket(ctx, "nope://bucket")
	require.Error(t, err)

	dir := t.TempDir()
	bucket, err = export.OpenBucket(ctx, "file://"+dir)
	require.NoError(t, err)
	require.NoError(t, bucket.WriteAll(ctx, "en/index.html", []byte("ok"), nil))
	require.NoError(t, bucket.Close())
}
