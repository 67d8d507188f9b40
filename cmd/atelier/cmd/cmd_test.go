package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renovo-atelier/atelier"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("BASKET_CACHE_URI", "mem://basket")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		routesJSON = false
		exportBucket = ""
		exportConcurrency = 0
		translationsDir = ""
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRoutesCommand(t *testing.T) {
	out, err := execute(t, "routes")
	require.NoError(t, err)
	assert.Contains(t, out, "POST")
	assert.Contains(t, out, "/{locale}/basket/toggle")
	assert.NotContains(t, out, "og-image.jpg")
}

func TestRoutesCommandJSON(t *testing.T) {
	out, err := execute(t, "routes", "--json")
	require.NoError(t, err)

	var routes []atelier.RouteInfo
	require.NoError(t, json.Unmarshal([]byte(out), &routes))
	assert.Contains(t, routes, atelier.RouteInfo{Method: "GET", Path: "/og-image.jpg", Handler: "asset"})
	assert.Contains(t, routes, atelier.RouteInfo{Method: "POST", Path: "/{locale}/language", Handler: "language switch"})
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "export", "--bucket", "file://"+dir, "--concurrency", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "exported")

	for _, name := range []string{"en/index.html", "ua/basket/index.html", "404.html", "static/site.css"} {
		_, statErr := os.Stat(filepath.Join(dir, filepath.FromSlash(name)))
		assert.NoError(t, statErr, name)
	}
}

func TestMissingTranslationsFail(t *testing.T) {
	_, err := execute(t, "routes", "--translations", t.TempDir())
	require.ErrorIs(t, err, errNoTranslations)
}
