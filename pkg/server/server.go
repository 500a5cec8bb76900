package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/multizone/pkg/config"
	"github.com/multizone/pkg/logger"
	"github.com/multizone/pkg/metrics"
	"github.com/multizone/pkg/pages"
	"github.com/multizone/pkg/proxy"
	"github.com/multizone/pkg/router"
	mztls "github.com/multizone/pkg/tls"
	"github.com/multizone/pkg/zone"
)

// ShutdownTimeout bounds graceful shutdown once the run context is done
const ShutdownTimeout = 5 * time.Second

// App is one front-end application: its rewrite table in front of its own
// pages, assets, health and metrics endpoints.
type App struct {
	config    *config.Config
	router    *router.Router
	handler   http.Handler
	tlsConfig *tls.Config
	logger    *logger.Logger
}

// New assembles an app of the given kind. Zone base URLs are resolved from
// env exactly once, here.
func New(kind pages.Kind, cfg *config.Config, env zone.Env, l *logger.Logger) (*App, error) {
	zones := cfg.ResolveZones(env)
	for _, z := range zones {
		l.Info("Zone %s resolved to %s", z.Name, z.BaseURL)
	}

	var routes []router.Route
	if cfg.Server.AssetPrefix != "" {
		route, err := router.AssetRoute(cfg.Server.Name, cfg.Server.AssetPrefix, cfg.Server.AssetRoot)
		if err != nil {
			return nil, fmt.Errorf("asset route: %w", err)
		}
		routes = append(routes, route)
	}
	zoneRoutes, err := router.ZoneRoutes(zones...)
	if err != nil {
		return nil, fmt.Errorf("zone routes: %w", err)
	}
	routes = append(routes, zoneRoutes...)

	r, err := router.NewRouter(l.Named("router"), routes...)
	if err != nil {
		return nil, err
	}
	metrics.MetricRules.Set(float64(len(routes)))

	headers, err := newHeaderInjector(cfg, l.Named("headers"))
	if err != nil {
		return nil, err
	}

	site, err := pages.NewSite(kind, pages.Options{
		Name:        cfg.Server.Name,
		AssetPrefix: cfg.Server.AssetPrefix,
		AssetRoot:   cfg.Server.AssetRoot,
		Zones:       zones,
	}, l.Named("pages"))
	if err != nil {
		return nil, err
	}
	local := httprouter.New()
	if err := site.Register(local); err != nil {
		return nil, err
	}
	local.HandlerFunc(http.MethodGet, "/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	local.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	app := &App{
		config: cfg,
		router: r,
		handler: otelhttp.NewHandler(
			proxy.New(r, local, l.Named("proxy"), proxy.Options{Headers: headers}),
			cfg.Server.Name,
		),
		logger: l,
	}

	tlsCfg := mztls.Config{
		CertFile: cfg.Server.TLS.CertFile,
		KeyFile:  cfg.Server.TLS.KeyFile,
		CAFile:   cfg.Server.TLS.CAFile,
	}
	if tlsCfg.Enabled() {
		app.tlsConfig, err = mztls.NewTLSConfig(tlsCfg)
		if err != nil {
			return nil, fmt.Errorf("tls: %w", err)
		}
	}
	return app, nil
}

func newHeaderInjector(cfg *config.Config, l *logger.Logger) (*proxy.HeaderInjector, error) {
	h := proxy.NewHeaderInjector(l)
	for _, tmpl := range cfg.Headers.Templates {
		var err error
		if tmpl.File != "" {
			err = h.Templates().AddTemplateFile(tmpl.Name, tmpl.File)
		} else {
			err = h.Templates().AddTemplateString(tmpl.Name, tmpl.Template)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, inject := range cfg.Headers.Inject {
		templateStr := inject.Template
		if inject.Ref != "" {
			templateStr = h.Templates().CreateTemplateReference(inject.Ref)
		}
		if err := h.AddHeader(inject.Zone, inject.Header, templateStr); err != nil {
			return nil, err
		}
	}
	if h.Empty() {
		return nil, nil
	}
	return h, nil
}

// Handler returns the app's root handler
func (a *App) Handler() http.Handler {
	return a.handler
}

// Router returns the app's rewrite router
func (a *App) Router() *router.Router {
	return a.router
}

// Run listens on the configured address and serves until ctx is done
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.config.Server.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.config.Server.Listen, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          log.New(logger.NewLogWriter(a.logger, logger.LevelWarn), "", 0),
	}

	if a.tlsConfig != nil {
		srv.TLSConfig = a.tlsConfig
		ln = tls.NewListener(ln, a.tlsConfig)
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("%s listening on %s (tls=%t)", a.config.Server.Name, ln.Addr(), a.tlsConfig != nil)
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		a.logger.Info("Shutting down %s", a.config.Server.Name)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
