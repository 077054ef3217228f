package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_browser/logger"
	"github.com/mogaika/scene_browser/scene"
	"github.com/mogaika/scene_browser/scene/object"
	"github.com/mogaika/scene_browser/status"
)

// Browser owns the currently served scene. Reload and Replace swap it
// atomically, readers keep the result they got.
type Browser struct {
	Session string

	loader *scene.Loader
	source string
	log    *logger.Logger

	mu         sync.RWMutex
	current    *scene.Result
	generation int
	issued     int
	loadedAt   time.Time
}

func NewBrowser(loader *scene.Loader, source string, log *logger.Logger) *Browser {
	return &Browser{
		Session: uuid.NewString(),
		loader:  loader,
		source:  source,
		log:     log.Component("browser"),
	}
}

func (b *Browser) Source() string {
	return b.source
}

// Current returns the served scene and its generation, nil before the first load.
func (b *Browser) Current() (*scene.Result, int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current, b.generation
}

func (b *Browser) onLoad(generation int) func(object.Node) {
	return func(root object.Node) {
		b.log.Info("scene ready", "generation", generation, "nodes", root.Object().Count())
		status.Info("Scene %d ready", generation)
	}
}

func (b *Browser) nextGeneration() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.issued++
	return b.issued
}

func (b *Browser) set(res *scene.Result, generation int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if generation <= b.generation {
		// a newer load finished first
		return
	}
	b.current = res
	b.generation = generation
	b.loadedAt = time.Now()
}

// Reload parses the source document again.
func (b *Browser) Reload(ctx context.Context) error {
	if b.source == "" {
		return errors.Errorf("No scene source configured")
	}
	gen := b.nextGeneration()
	res, err := b.loader.Load(ctx, b.source, b.onLoad(gen))
	if err != nil {
		status.Error("Failed to load %s: %v", b.source, err)
		return errors.Wrapf(err, "Failed to load scene")
	}
	b.report(res)
	b.set(res, gen)
	return nil
}

// Replace serves an uploaded document instead of the source.
func (b *Browser) Replace(ctx context.Context, data []byte) error {
	gen := b.nextGeneration()
	res, err := b.loader.ParseJSON(ctx, data, b.onLoad(gen))
	if err != nil {
		return errors.Wrapf(err, "Failed to parse uploaded scene")
	}
	b.report(res)
	b.set(res, gen)
	return nil
}

func (b *Browser) report(res *scene.Result) {
	if n := len(res.Diagnostics()); n != 0 {
		b.log.Warn("scene parsed with diagnostics", "count", n)
	}
}

func (b *Browser) LoadedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loadedAt
}
