package pages

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"

	"github.com/multizone/pkg/logger"
	"github.com/multizone/pkg/zone"
)

func newRouter(t *testing.T, s *Site) *httprouter.Router {
	t.Helper()
	r := httprouter.New()
	assert.NoError(t, s.Register(r))
	return r
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestMainPage(t *testing.T) {
	zones := []zone.Zone{{Name: "zone-one", BaseURL: "http://localhost:3001"}}
	s, err := NewSite(KindMain, Options{Name: "main-app", Zones: zones}, logger.New("pages", logger.LevelInfo))
	assert.NoError(t, err)
	r := newRouter(t, s)

	rec := get(r, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "Multi-Zone Architecture")
	assert.Contains(t, body, `href="/zone-one"`)
	assert.Contains(t, body, "Navigate to Zone One")
	assert.Contains(t, body, "http://localhost:3001")
	assert.Contains(t, body, `href="/_next/static/main.css"`)

	rec = get(r, "/_next/static/main.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "linear-gradient")
}

func TestZonePage(t *testing.T) {
	s, err := NewSite(KindZone, Options{Name: "zone-one", AssetPrefix: "/zone-one-static/"}, logger.New("pages", logger.LevelInfo))
	assert.NoError(t, err)
	r := newRouter(t, s)

	rec := get(r, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Welcome to Zone One")
	assert.Contains(t, body, "Back to Main App")
	assert.Contains(t, body, `href="/zone-one-static/_next/static/zone.css"`)

	rec = get(r, "/_next/static/zone.css")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(r, "/_next/static/missing.css")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(r, "/zone-one-static/_next/static/zone.css")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCustomAssetRoot(t *testing.T) {
	s, err := NewSite(KindZone, Options{Name: "zone-one", AssetPrefix: "/zone-one-static", AssetRoot: "assets"}, logger.New("pages", logger.LevelInfo))
	assert.NoError(t, err)
	r := newRouter(t, s)

	assert.Contains(t, get(r, "/").Body.String(), `href="/zone-one-static/assets/static/zone.css"`)
	assert.Equal(t, http.StatusOK, get(r, "/assets/static/zone.css").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/_next/static/zone.css").Code)

	_, err = NewSite(KindZone, Options{Name: "zone-one", AssetRoot: "a/b"}, logger.New("pages", logger.LevelInfo))
	assert.Error(t, err)
}

func TestUnknownKind(t *testing.T) {
	_, err := NewSite(Kind("other"), Options{Name: "x"}, logger.New("pages", logger.LevelInfo))
	assert.Error(t, err)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Zone One", title("zone-one"))
	assert.Equal(t, "Main App", title("main-app"))
	assert.Equal(t, "Z2", title("z2"))
}
