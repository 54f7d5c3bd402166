// Package watch keeps a project continuously compiled: it watches every
// module source root, coalesces change bursts into incremental builds, and
// optionally runs scheduled full rebuilds.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/groovybuild/internal/config"
	"git.home.luguber.info/inful/groovybuild/internal/engine"
	"git.home.luguber.info/inful/groovybuild/internal/logfields"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
	"git.home.luguber.info/inful/groovybuild/internal/util/sets"
	"git.home.luguber.info/inful/groovybuild/internal/workpool"
)

// Builder runs one build session over the whole project.
type Builder interface {
	Build(ctx context.Context, fullRebuild bool) (*engine.Summary, error)
}

// Daemon drives builds from filesystem events. Builds are serialized on
// the daemon's run loop; the debouncer queues at most one follow-up while
// a build is in flight.
type Daemon struct {
	cfg       *config.WatchConfig
	project   *projectmodel.Project
	builder   Builder
	debouncer *Debouncer
	pool      *workpool.Group

	// fullRebuilds carries scheduled full-rebuild requests into the run
	// loop. Capacity one: a second request during a running rebuild is
	// redundant.
	fullRebuilds chan struct{}
}

// NewDaemon wires a watch daemon from validated configuration.
func NewDaemon(cfg *config.WatchConfig, project *projectmodel.Project, builder Builder) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("watch configuration is required")
	}
	debouncer, err := NewDebouncer(cfg.QuietPeriodDuration(), cfg.MaxDelayDuration())
	if err != nil {
		return nil, err
	}
	return &Daemon{
		cfg:          cfg,
		project:      project,
		builder:      builder,
		debouncer:    debouncer,
		pool:         &workpool.Group{},
		fullRebuilds: make(chan struct{}, 1),
	}, nil
}

// Run builds once, then watches until the context is canceled. The
// initial build catches up on everything changed while the daemon was
// down.
func (d *Daemon) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, root := range d.sourceRoots() {
		if err := watchRecursive(watcher, root); err != nil {
			return fmt.Errorf("watching %s: %w", root, err)
		}
	}

	scheduler, err := d.startSchedule()
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				slog.Warn("Scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	d.pool.Go(func() { d.debouncer.Run(ctx) })
	d.pool.Go(func() { d.pumpEvents(ctx, watcher) })
	defer func() {
		if err := d.pool.StopAndWait(context.Background()); err != nil {
			slog.Warn("Watch workers did not stop cleanly", logfields.Error(err))
		}
	}()

	d.build(ctx, false)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Watch daemon stopping")
			return nil
		case trigger := <-d.debouncer.Triggers():
			slog.Info("Source changes detected",
				logfields.Files(trigger.Changes), slog.String("cause", trigger.Cause))
			d.build(ctx, false)
		case <-d.fullRebuilds:
			slog.Info("Scheduled full rebuild starting")
			d.build(ctx, true)
		}
	}
}

func (d *Daemon) build(ctx context.Context, full bool) {
	if ctx.Err() != nil {
		return
	}
	summary, err := d.builder.Build(ctx, full)
	if err != nil {
		slog.Error("Build failed", logfields.Error(err))
		return
	}
	if summary.Failed {
		slog.Error("Build finished with failures",
			logfields.DurationMS(float64(summary.Duration.Milliseconds())))
	}
}

// pumpEvents feeds relevant filesystem events into the debouncer and
// extends the watch into directories created after startup.
func (d *Daemon) pumpEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchRecursive(watcher, event.Name); err != nil {
						slog.Warn("Could not watch new directory",
							slog.String("dir", event.Name), logfields.Error(err))
					}
					continue
				}
			}
			if compilableSource(event.Name) {
				slog.Debug("Source changed", logfields.Source(event.Name),
					slog.String("op", event.Op.String()))
				d.debouncer.Notify()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// startSchedule installs the optional cron job for full rebuilds.
func (d *Daemon) startSchedule() (gocron.Scheduler, error) {
	if d.cfg.Schedule == "" {
		return nil, nil
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.CronJob(d.cfg.Schedule, false),
		gocron.NewTask(d.requestFullRebuild),
		gocron.WithName("full-rebuild"),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduling full rebuilds: %w", err)
	}
	scheduler.Start()
	slog.Info("Full rebuild schedule active", slog.String("schedule", d.cfg.Schedule))
	return scheduler, nil
}

func (d *Daemon) requestFullRebuild() {
	select {
	case d.fullRebuilds <- struct{}{}:
	default:
	}
}

// sourceRoots lists every distinct production and test source root of the
// project.
func (d *Daemon) sourceRoots() []string {
	seen := sets.New[string]()
	var roots []string
	for _, m := range d.project.Modules {
		for _, root := range append(append([]string{}, m.SourceRoots...), m.TestSourceRoots...) {
			clean := filepath.Clean(root)
			if !seen.Has(clean) {
				seen.Add(clean)
				roots = append(roots, clean)
			}
		}
	}
	return roots
}

// watchRecursive adds root and every directory below it. fsnotify watches
// are not recursive on their own. A missing root is fine; the create event
// on its parent is not observable, so it only becomes watched after a
// restart, which matches how build tools treat not-yet-created roots.
func watchRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if entry.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func compilableSource(path string) bool {
	return strings.HasSuffix(path, ".groovy") ||
		strings.HasSuffix(path, ".gpp") ||
		strings.HasSuffix(path, ".java")
}
