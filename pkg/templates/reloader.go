package templates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/seamed/tracker/pkg/observability"
)

// Reloader serves templates from a directory and swaps in a fresh catalog
// whenever a YAML file there changes. A directory that fails to load leaves
// the previous catalog in place.
type Reloader struct {
	dir     string
	delay   time.Duration
	logger  *observability.Logger
	catalog atomic.Pointer[Catalog]
}

// NewReloader loads dir once. The initial load must succeed.
func NewReloader(dir string, delay time.Duration, logger *observability.Logger) (*Reloader, error) {
	r := &Reloader{dir: dir, delay: delay, logger: logger.WithField("templates_dir", dir)}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// List implements the API template source
func (r *Reloader) List() []*Template {
	return r.catalog.Load().List()
}

// Get implements the API template source
func (r *Reloader) Get(id string) (*Template, error) {
	return r.catalog.Load().Get(id)
}

func (r *Reloader) reload() error {
	c, err := Load(os.DirFS(r.dir))
	if err != nil {
		return err
	}
	r.catalog.Store(c)
	return nil
}

// Watch reloads on changes until ctx is cancelled. Bursts of events within
// the delay are collapsed into one reload.
func (r *Reloader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(r.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", r.dir, err)
	}

	timer := time.NewTimer(r.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".yaml" {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				timer.Reset(r.delay)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.WithError(err).Warn("template watcher error")
		case <-timer.C:
			if err := r.reload(); err != nil {
				r.logger.WithError(err).Error("template reload failed, keeping previous catalog")
				continue
			}
			r.logger.WithField("templates", len(r.List())).Info("templates reloaded")
		}
	}
}
