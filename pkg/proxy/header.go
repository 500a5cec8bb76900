package proxy

import (
	"bytes"
	"fmt"
	"net/http"
	"text/template"

	"github.com/multizone/pkg/logger"
)

// AllZones selects header templates that apply to every zone.
const AllZones = "*"

// ForwardInfo is the data header templates render against.
type ForwardInfo struct {
	Zone        string
	Method      string
	Host        string
	Path        string
	Destination string
	RemoteAddr  string
}

type headerTemplate struct {
	header string
	tmpl   *template.Template
}

// HeaderInjector renders headers added to requests forwarded to a zone
type HeaderInjector struct {
	mappings  map[string][]headerTemplate
	templates *TemplateManager
	logger    *logger.Logger
}

// NewHeaderInjector creates a new header injector
func NewHeaderInjector(logger *logger.Logger) *HeaderInjector {
	return &HeaderInjector{
		mappings:  make(map[string][]headerTemplate),
		templates: NewTemplateManager(logger),
		logger:    logger,
	}
}

// Templates returns the named templates header templates may reference
func (h *HeaderInjector) Templates() *TemplateManager {
	return h.templates
}

// AddHeader adds a header template for a zone, or for every zone with AllZones
func (h *HeaderInjector) AddHeader(zone, headerName, templateStr string) error {
	if headerName == "" {
		return fmt.Errorf("header name is required")
	}
	tmpl, err := h.templates.Compile(zone+"/"+headerName, templateStr)
	if err != nil {
		return err
	}
	h.mappings[zone] = append(h.mappings[zone], headerTemplate{
		header: http.CanonicalHeaderKey(headerName),
		tmpl:   tmpl,
	})
	h.logger.Info("Added header template for zone %q: %s = %q", zone, headerName, templateStr)
	return nil
}

// Headers renders the headers for a zone. Empty values are skipped; zone
// specific templates override AllZones templates for the same header.
func (h *HeaderInjector) Headers(zone string, info *ForwardInfo) (map[string]string, error) {
	headers := make(map[string]string)
	for _, key := range []string{AllZones, zone} {
		for _, ht := range h.mappings[key] {
			var buf bytes.Buffer
			if err := ht.tmpl.Execute(&buf, info); err != nil {
				return nil, fmt.Errorf("failed to render header %s: %w", ht.header, err)
			}
			if value := buf.String(); value != "" {
				headers[ht.header] = value
			} else {
				h.logger.Debug("Skipping empty header %q for zone %s", ht.header, zone)
			}
		}
	}
	return headers, nil
}

// Empty reports whether no header templates are configured
func (h *HeaderInjector) Empty() bool {
	return len(h.mappings) == 0
}
