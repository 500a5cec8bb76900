package pages

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/multizone/pkg/logger"
	"github.com/multizone/pkg/zone"
)

//go:embed templates/*.html static/*
var files embed.FS

// DocsURL is linked from both pages.
const DocsURL = "https://nextjs.org/docs/app/building-your-application/deploying/multi-zones"

// DefaultAssetRoot is the path segment under which an app serves its own
// assets when none is configured.
const DefaultAssetRoot = "_next"

var funcs = template.FuncMap{
	"title": title,
}

// Kind selects which page an app renders.
type Kind string

const (
	// KindMain is the orchestrating app's hub page.
	KindMain Kind = "main"
	// KindZone is a zone's own landing page.
	KindZone Kind = "zone"
)

// Options describe the app a Site renders for.
type Options struct {
	Name string
	// AssetPrefix is prepended to asset URLs the page emits.
	AssetPrefix string
	// AssetRoot is the single path segment assets are served under.
	AssetRoot string
	// Zones lists the zones the main page links to.
	Zones []zone.Zone
}

// Page is the data a page template renders.
type Page struct {
	Title       string
	Name        string
	AssetPrefix string
	AssetRoot   string
	DocsURL     string
	Zones       []zone.Zone
}

// Site renders one app's fixed pages and serves its embedded assets.
type Site struct {
	kind   Kind
	page   Page
	body   []byte
	logger *logger.Logger
}

// NewSite renders the page for kind once.
func NewSite(kind Kind, opts Options, logger *logger.Logger) (*Site, error) {
	root := strings.Trim(opts.AssetRoot, "/")
	if root == "" {
		root = DefaultAssetRoot
	}
	if strings.Contains(root, "/") {
		return nil, fmt.Errorf("asset root %q must be a single path segment", opts.AssetRoot)
	}
	page := Page{
		Name:        opts.Name,
		AssetPrefix: strings.TrimRight(opts.AssetPrefix, "/"),
		AssetRoot:   root,
		DocsURL:     DocsURL,
		Zones:       opts.Zones,
	}
	var file string
	switch kind {
	case KindMain:
		page.Title = "Multi-Zone Architecture"
		file = "templates/main.html"
	case KindZone:
		page.Title = title(opts.Name)
		file = "templates/zone.html"
	default:
		return nil, fmt.Errorf("unknown page kind %q", kind)
	}

	tmpl, err := template.New(file[len("templates/"):]).Funcs(funcs).ParseFS(files, file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", file, err)
	}

	return &Site{kind: kind, page: page, body: buf.Bytes(), logger: logger}, nil
}

// Register mounts the page at / and the assets under /{AssetRoot}/static/.
func (s *Site) Register(r *httprouter.Router) error {
	static, err := fs.Sub(files, "static")
	if err != nil {
		return err
	}
	r.GET("/", s.index)
	r.HEAD("/", s.index)
	r.ServeFiles("/"+s.page.AssetRoot+"/static/*filepath", http.FS(static))
	return nil
}

func (s *Site) index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(s.body); err != nil {
		s.logger.Debug("Failed to write page: %v", err)
	}
}

// title turns "zone-one" into "Zone One".
func title(name string) string {
	words := strings.Split(name, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
