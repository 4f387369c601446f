// Package app wires configuration into the harvester's components and owns
// their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/api"
	"github.com/Adda-Baaj/arthik-khobor/internal/classify"
	"github.com/Adda-Baaj/arthik-khobor/internal/config"
	"github.com/Adda-Baaj/arthik-khobor/internal/crawler"
	"github.com/Adda-Baaj/arthik-khobor/internal/logger"
	"github.com/Adda-Baaj/arthik-khobor/internal/newsroom"
	"github.com/Adda-Baaj/arthik-khobor/internal/pipeline"
	"github.com/Adda-Baaj/arthik-khobor/internal/rewrite"
	"github.com/Adda-Baaj/arthik-khobor/internal/scheduler"
	"github.com/Adda-Baaj/arthik-khobor/internal/store"
	"github.com/Adda-Baaj/arthik-khobor/internal/wordpress"
	"github.com/Adda-Baaj/arthik-khobor/pkg/browser"
	"github.com/Adda-Baaj/arthik-khobor/pkg/httpclient"
	"github.com/Adda-Baaj/arthik-khobor/pkg/providers"
	"github.com/Adda-Baaj/arthik-khobor/pkg/publishers"
)

// App holds every long-lived component. Build it with New and release it with Close.
type App struct {
	cfg config.Config
	log logger.Logger

	store    store.Store
	renderer *browser.ChromeRenderer
	events   *publishers.Dispatcher

	Pipeline  *pipeline.Pipeline
	Newsroom  *newsroom.Service
	Scheduler *scheduler.Scheduler
}

// New connects the store, loads the source and publisher catalogs and wires
// the pipeline, newsroom and scheduler. Anything opened before a failure is closed.
func New(ctx context.Context, cfg config.Config, log logger.Logger) (_ *App, err error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	a := &App{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	catalog, err := providers.LoadProviders(cfg.Sources.File)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}

	a.store, err = store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		MongoURI:    cfg.Store.MongoURI,
		Database:    cfg.Store.Database,
		Collection:  cfg.Store.Collection,
		PostgresDSN: cfg.Store.PostgresDSN,
		BoltPath:    cfg.Store.BoltPath,
		Timeout:     cfg.Store.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a.events, err = buildEvents(ctx, cfg.Publishers, log)
	if err != nil {
		return nil, err
	}

	classifier := classify.Default()
	client := httpclient.NewRestyClient(cfg.HTTP.Timeout, httpclient.WithUserAgent(providers.DefaultUserAgent))

	var renderer browser.Renderer
	if cfg.Browser.Enabled {
		a.renderer = browser.NewChromeRenderer(browser.Options{
			ExecPath:        cfg.Browser.ExecPath,
			Headless:        cfg.Browser.Headless,
			UserAgent:       providers.DefaultUserAgent,
			NavigateTimeout: cfg.HTTP.Timeout,
			WaitTimeout:     cfg.Browser.WaitTimeout,
		}, log)
		renderer = a.renderer
	}

	sources, err := providers.NewSources(catalog, providers.Deps{
		Client:     client,
		Renderer:   renderer,
		Enricher:   crawler.NewScraper(client, renderer, log),
		Classifier: classifier,
		Log:        log,
	}, cfg.HTTP.Timeout)
	if err != nil {
		return nil, fmt.Errorf("build sources: %w", err)
	}

	gen, err := buildGenerator(cfg.Rewrite, log)
	if err != nil {
		return nil, err
	}
	rewriter := rewrite.New(gen, rewrite.Options{
		FallbackAuthor: cfg.Rewrite.FallbackAuthor,
		Classifier:     classifier,
	}, log)

	a.Pipeline = pipeline.New(pipeline.FromSources(sources), rewriter, a.store, pipeline.Options{
		Gate: pipeline.Gate{
			MinTitle:       cfg.Pipeline.MinTitleLength,
			MinDescription: cfg.Pipeline.MinDescriptionLength,
		},
		Classifier: classifier,
		Events:     a.events,
	}, log)

	var wp newsroom.WordPress
	if cfg.WordPress.Enabled() {
		wpClient, err := wordpress.NewClient(wordpress.Config{
			BaseURL:     cfg.WordPress.BaseURL,
			Username:    cfg.WordPress.Username,
			AppPassword: cfg.WordPress.AppPassword,
			Categories:  cfg.WordPress.Categories,
			Timeout:     cfg.HTTP.Timeout,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("wordpress client: %w", err)
		}
		wp = wpClient
	} else {
		log.WarnObj("wordpress not configured, publishing disabled", "wordpress_disabled", nil)
	}
	a.Newsroom = newsroom.NewService(a.store, wp, a.events, log)

	if cfg.Scheduler.Enabled {
		a.Scheduler, err = scheduler.New(cfg.Scheduler.Cron, cfg.Scheduler.Timezone, cfg.Scheduler.Sources, a.Pipeline, log)
		if err != nil {
			return nil, err
		}
	}

	log.InfoObj("harvester wired", "app_ready", map[string]any{
		"sources":    len(a.Pipeline.Sources()),
		"store":      cfg.Store.Driver,
		"publishers": a.events.Len(),
		"rewrite":    gen != nil,
		"wordpress":  wp != nil,
		"scheduler":  a.Scheduler != nil,
	})
	return a, nil
}

func buildGenerator(cfg config.RewriteConfig, log logger.Logger) (rewrite.Generator, error) {
	if !cfg.Enabled || cfg.APIKey == "" {
		log.WarnObj("rewrite service not configured, articles keep their source text", "rewrite_disabled", map[string]any{
			"enabled": cfg.Enabled,
		})
		return nil, nil
	}
	gen, err := rewrite.NewGenerator(rewrite.GeneratorConfig{
		Provider:    cfg.Provider,
		Endpoint:    cfg.Endpoint,
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		Timeout:     cfg.Timeout,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("rewrite generator: %w", err)
	}
	return gen, nil
}

func buildEvents(ctx context.Context, cfg config.PublishersConfig, log logger.Logger) (*publishers.Dispatcher, error) {
	if cfg.File == "" {
		return publishers.NewDispatcher(nil, log), nil
	}
	sinks, err := publishers.LoadCatalog(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	pubs, err := publishers.DefaultFactories().BuildAll(ctx, sinks.Active(), log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	return publishers.NewDispatcher(pubs, log), nil
}

// Serve runs the HTTP API and, when enabled, the scheduler until ctx is
// cancelled, then shuts both down within http.shutdown_timeout.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           api.NewRouter(api.NewHandler(a.Pipeline, a.Newsroom, a.log)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if a.Scheduler != nil {
		a.Scheduler.Start(ctx)
		a.log.InfoObj("scheduler started", "scheduler_started", map[string]any{
			"cron":     a.cfg.Scheduler.Cron,
			"timezone": a.cfg.Scheduler.Timezone,
			"next":     a.Scheduler.Next().Format(time.RFC3339),
		})
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.InfoObj("http server listening", "http_listen", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("shutdown http server: %w", err))
	}
	a.log.InfoObj("http server stopped", "http_stopped", nil)
	return serveErr
}

// Close releases the browser, the publishers and the store, in that order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.renderer != nil {
		if err := a.renderer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if err := a.events.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
