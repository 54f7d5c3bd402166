package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/groovybuild/internal/buildctx"
	"git.home.luguber.info/inful/groovybuild/internal/builder"
	"git.home.luguber.info/inful/groovybuild/internal/classpath"
	"git.home.luguber.info/inful/groovybuild/internal/config"
	"git.home.luguber.info/inful/groovybuild/internal/depgraph"
	"git.home.luguber.info/inful/groovybuild/internal/diag"
	"git.home.luguber.info/inful/groovybuild/internal/engine"
	"git.home.luguber.info/inful/groovybuild/internal/extension"
	"git.home.luguber.info/inful/groovybuild/internal/groovyc"
	"git.home.luguber.info/inful/groovybuild/internal/metrics"
	"git.home.luguber.info/inful/groovybuild/internal/outputindex"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
	"git.home.luguber.info/inful/groovybuild/internal/stubs"
	"git.home.luguber.info/inful/groovybuild/internal/watch"
	"git.home.luguber.info/inful/groovybuild/internal/workpool"
)

// buildSystem is everything a command needs once wiring is done.
type buildSystem struct {
	project  *projectmodel.Project
	engine   *engine.Engine
	store    *outputindex.Store
	registry *prom.Registry
	pool     *workpool.Group
	natsSink *diag.NATSSink
}

// close releases the system's resources in reverse wiring order.
func (s *buildSystem) close() {
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.pool.StopAndWait(stopCtx); err != nil {
		slog.Warn("Workers did not stop cleanly", "error", err)
	}
	if s.natsSink != nil {
		if err := s.natsSink.Close(); err != nil {
			slog.Warn("Diagnostics sink close failed", "error", err)
		}
	}
	if err := s.store.Close(); err != nil {
		slog.Warn("Index close failed", "error", err)
	}
}

// wire assembles the full build system from configuration.
func wire(cfg *config.Config) (*buildSystem, error) {
	project, err := projectmodel.FromConfig(&cfg.Project)
	if err != nil {
		return nil, fmt.Errorf("resolving project model: %w", err)
	}

	store, err := outputindex.NewStore(cfg.Index.Path, cfg.Index.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("opening output index: %w", err)
	}

	system := &buildSystem{project: project, store: store, pool: &workpool.Group{}}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		system.registry = prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(system.registry)
	}

	bctx := buildctx.NewContext(project)
	sink := diag.Sink(diag.NewSlogSink(slog.Default()))
	if cfg.Diagnostics != nil && cfg.Diagnostics.Enabled {
		natsSink, err := diag.NewNATSSink(cfg.Diagnostics)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("connecting diagnostics sink: %w", err)
		}
		system.natsSink = natsSink
		sink = diag.Multi(sink, natsSink.ForBuild(bctx.BuildID))
	}
	bctx.WithMessages(sink)

	registry := extension.NewRegistry()
	assembler := classpath.NewAssembler(cfg.Compiler.RunnerJar, cfg.Compiler.ExtraClasspath, registry)
	invoker := groovyc.NewInvoker(&cfg.Compiler, system.pool, nil, recorder)
	stubCoord := stubs.NewCoordinator(cfg.Stubs.Root, bctx, recorder)
	updater := depgraph.NewUpdater(bctx, recorder)
	driver := builder.NewDriver(cfg, bctx, assembler, registry, invoker, stubCoord, updater, store, recorder)

	system.engine = engine.New(cfg, project, bctx, store, driver, stubCoord,
		engine.NewJavacRunner(&cfg.Compiler), assembler, recorder)
	return system, nil
}

func runBuild(ctx context.Context, cfg *config.Config, rebuild bool) error {
	system, err := wire(cfg)
	if err != nil {
		return err
	}
	defer system.close()

	summary, err := system.engine.Build(ctx, rebuild)
	if err != nil {
		return err
	}
	for chunk, verdict := range summary.Verdicts {
		slog.Debug("Chunk verdict", "chunk", chunk, "verdict", verdict.String())
	}
	if summary.Failed {
		return errors.New("build finished with failures")
	}
	return nil
}

func runWatch(ctx context.Context, cfg *config.Config) error {
	if cfg.Watch == nil || !cfg.Watch.Enabled {
		return errors.New("watch is not enabled in the configuration")
	}

	system, err := wire(cfg)
	if err != nil {
		return err
	}
	defer system.close()

	if system.registry != nil {
		serveMetrics(ctx, cfg.Metrics, system.registry, system.pool)
	}

	daemon, err := watch.NewDaemon(cfg.Watch, system.project, system.engine)
	if err != nil {
		return err
	}
	return daemon.Run(ctx)
}

// serveMetrics exposes the Prometheus endpoint for the lifetime of the
// watch daemon.
func serveMetrics(ctx context.Context, cfg *config.MetricsConfig, registry *prom.Registry, pool *workpool.Group) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.HTTPHandler(registry))
	server := &http.Server{Addr: cfg.Listen, Handler: mux}

	pool.Go(func() {
		slog.Info("Metrics endpoint listening", "addr", cfg.Listen, "path", cfg.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics endpoint failed", "error", err)
		}
	})
	pool.Go(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Metrics endpoint shutdown failed", "error", err)
		}
	})
}

func runIndex(ctx context.Context, cfg *config.Config, source, target string) error {
	store, err := outputindex.NewStore(cfg.Index.Path, cfg.Index.CacheSize)
	if err != nil {
		return fmt.Errorf("opening output index: %w", err)
	}
	defer store.Close()

	switch {
	case source != "":
		outputs, err := store.OutputsOf(ctx, source)
		if err != nil {
			return err
		}
		if len(outputs) == 0 {
			fmt.Printf("no outputs recorded for %s\n", source)
			return nil
		}
		for _, out := range outputs {
			fmt.Println(out)
		}
	case target != "":
		sources, err := store.TrackedSources(ctx, target)
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			fmt.Printf("no sources tracked for target %s\n", target)
			return nil
		}
		for _, src := range sources {
			fmt.Println(src)
		}
	default:
		return errors.New("one of --source or --target is required")
	}
	return nil
}
