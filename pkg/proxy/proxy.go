package proxy

import (
	"context"
	"log"
	"net/http"
	"net/http/httputil"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/multizone/pkg/logger"
	"github.com/multizone/pkg/metrics"
	"github.com/multizone/pkg/router"
)

type decisionKey struct{}

// Options configures optional parts of a Handler
type Options struct {
	// Transport carries forwarded requests. Defaults to an
	// OpenTelemetry instrumented http.DefaultTransport.
	Transport http.RoundTripper
	// Headers renders extra headers onto forwarded requests.
	Headers *HeaderInjector
}

// Handler applies the rewrite table to every request before the app's own
// routes. External destinations are forwarded through a shared reverse
// proxy; internal destinations rewrite the path and continue locally;
// unmatched requests go straight to the local routes.
type Handler struct {
	router  *router.Router
	local   http.Handler
	headers *HeaderInjector
	proxy   *httputil.ReverseProxy
	logger  *logger.Logger
}

// New creates a Handler in front of local
func New(r *router.Router, local http.Handler, l *logger.Logger, opts Options) *Handler {
	if opts.Transport == nil {
		opts.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	if local == nil {
		local = http.NotFoundHandler()
	}

	h := &Handler{
		router:  r,
		local:   local,
		headers: opts.Headers,
		logger:  l,
	}
	h.proxy = &httputil.ReverseProxy{
		Rewrite:      h.rewrite,
		Transport:    opts.Transport,
		ErrorHandler: h.upstreamError,
		ErrorLog:     log.New(logger.NewLogWriter(l, logger.LevelError), "", 0),
	}
	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d, err := h.router.ResolveDestination(r.URL.EscapedPath(), r.URL.RawQuery)
	if err != nil {
		h.logger.Error("Failed to resolve %s: %v", r.URL.Path, err)
		http.Error(w, "invalid rewrite destination", http.StatusInternalServerError)
		return
	}

	switch {
	case !d.Matched:
		metrics.MetricFallthrough.Inc()
		h.local.ServeHTTP(w, r)
	case d.Internal:
		metrics.MetricRewrites.WithLabelValues(d.Zone, "internal").Inc()
		h.logger.Debug("Rewriting %s to %s", r.URL.Path, d.URL.Path)
		h.local.ServeHTTP(w, internalRequest(r, d))
	default:
		metrics.MetricRewrites.WithLabelValues(d.Zone, "external").Inc()
		h.logger.Debug("Forwarding %s %s to zone %s at %s", r.Method, r.URL.Path, d.Zone, d.URL)
		ctx := context.WithValue(r.Context(), decisionKey{}, d)
		h.proxy.ServeHTTP(w, r.WithContext(ctx))
	}
}

// rewrite points the outbound request at the matched destination
func (h *Handler) rewrite(pr *httputil.ProxyRequest) {
	d := pr.In.Context().Value(decisionKey{}).(router.Decision)

	target := *d.URL
	pr.Out.URL = &target
	pr.Out.Host = ""
	pr.SetXForwarded()

	if h.headers == nil {
		return
	}
	headers, err := h.headers.Headers(d.Zone, &ForwardInfo{
		Zone:        d.Zone,
		Method:      pr.In.Method,
		Host:        pr.In.Host,
		Path:        pr.In.URL.Path,
		Destination: target.String(),
		RemoteAddr:  pr.In.RemoteAddr,
	})
	if err != nil {
		h.logger.Error("Failed to render headers for zone %s: %v", d.Zone, err)
		return
	}
	for name, value := range headers {
		pr.Out.Header.Set(name, value)
	}
}

func (h *Handler) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	zone := "unknown"
	if d, ok := r.Context().Value(decisionKey{}).(router.Decision); ok {
		zone = d.Zone
	}
	metrics.MetricUpstreamErrors.WithLabelValues(zone).Inc()
	h.logger.Error("Upstream error for zone %s on %s: %v", zone, r.URL.Path, err)
	w.WriteHeader(http.StatusBadGateway)
}

// internalRequest returns a shallow copy of r addressed to the rewritten path
func internalRequest(r *http.Request, d router.Decision) *http.Request {
	out := r.Clone(r.Context())
	u := *r.URL
	u.Path = d.URL.Path
	u.RawPath = d.URL.RawPath
	u.RawQuery = d.URL.RawQuery
	out.URL = &u
	out.RequestURI = u.RequestURI()
	return out
}
