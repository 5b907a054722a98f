// Package catalog keeps the named datasets a server answers queries for. Each
// dataset holds an immutable query-engine snapshot that a reload replaces
// wholesale, so in-flight queries always see one consistent version.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/language"

	"github.com/alfredjeanlab/gridq/internal/agent"
	"github.com/alfredjeanlab/gridq/internal/dataset"
	"github.com/alfredjeanlab/gridq/internal/events"
	"github.com/alfredjeanlab/gridq/internal/idgen"
	"github.com/alfredjeanlab/gridq/internal/model"
)

var (
	// ErrNotFound is returned for a dataset name that was never registered.
	ErrNotFound = errors.New("dataset not found")
	// ErrNotLoaded is returned when a dataset is registered but has no snapshot yet.
	ErrNotLoaded = errors.New("dataset not loaded")
)

type snapshot struct {
	id       string
	engine   *agent.StaticAgent[model.Record]
	loadedAt time.Time
}

type entry struct {
	name   string
	source dataset.Source

	loadMu  sync.Mutex // serializes loads of this dataset
	current atomic.Pointer[snapshot]
	lastErr atomic.Pointer[string]
}

// Catalog is safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]*entry

	publisher events.Publisher
	logger    *slog.Logger
	locale    language.Tag
	onLoad    func(model.DatasetInfo)
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithPublisher sets where load events are sent.
func WithPublisher(p events.Publisher) Option {
	return func(c *Catalog) { c.publisher = p }
}

// WithLogger sets the catalog logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// WithLocale sets the collation locale for every snapshot.
func WithLocale(tag language.Tag) Option {
	return func(c *Catalog) { c.locale = tag }
}

// WithLoadHook registers fn to be called after every successful load.
func WithLoadHook(fn func(model.DatasetInfo)) Option {
	return func(c *Catalog) { c.onLoad = fn }
}

// New creates an empty catalog.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		entries:   make(map[string]*entry),
		publisher: &events.NoopPublisher{},
		logger:    slog.Default(),
		locale:    language.English,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a dataset without loading it.
func (c *Catalog) Register(name string, src dataset.Source) error {
	if name == "" {
		return fmt.Errorf("register: dataset name is required")
	}
	if src == nil {
		return fmt.Errorf("register %q: source is nil", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[name]; ok {
		return fmt.Errorf("register %q: already registered", name)
	}
	c.entries[name] = &entry{name: name, source: src}
	return nil
}

func (c *Catalog) lookup(name string) (*entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e, nil
}

// Load reads the dataset's source and swaps in a new snapshot. On failure
// the previous snapshot keeps serving.
func (c *Catalog) Load(ctx context.Context, name string) (model.DatasetInfo, error) {
	e, err := c.lookup(name)
	if err != nil {
		return model.DatasetInfo{}, err
	}

	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	start := time.Now()
	rows, err := e.source.Load(ctx)
	if err != nil {
		msg := err.Error()
		e.lastErr.Store(&msg)
		c.logger.Error("dataset load failed", "dataset", name, "source", e.source.String(), "err", err)
		c.publish(ctx, events.TopicDatasetLoadFailed, events.DatasetLoadFailed{
			Dataset: name,
			Source:  e.source.String(),
			Error:   msg,
		})
		return info(e), fmt.Errorf("load %s: %w", name, err)
	}

	snap := &snapshot{
		id:       idgen.Snapshot(),
		engine:   agent.NewStatic[model.Record](rows, agent.WithLocale(c.locale)),
		loadedAt: time.Now().UTC(),
	}
	e.current.Store(snap)
	e.lastErr.Store(nil)
	took := time.Since(start)

	c.logger.Info("dataset loaded", "dataset", name, "snapshot", snap.id, "rows", len(rows), "took", took)
	c.publish(ctx, events.TopicDatasetLoaded, events.DatasetLoaded{
		Dataset:    name,
		SnapshotID: snap.id,
		Source:     e.source.String(),
		Rows:       len(rows),
		LoadedAt:   snap.loadedAt,
		Took:       took,
	})

	di := info(e)
	if c.onLoad != nil {
		c.onLoad(di)
	}
	return di, nil
}

// LoadAll loads every registered dataset. Failures do not stop the remaining
// loads; they are joined into the returned error.
func (c *Catalog) LoadAll(ctx context.Context) error {
	var errs []error
	for _, name := range c.Names() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.Load(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Catalog) publish(ctx context.Context, topic string, event any) {
	if err := c.publisher.Publish(ctx, topic, event); err != nil {
		c.logger.Warn("failed to publish event", "topic", topic, "err", err)
	}
}

// Names returns the registered dataset names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)
	return names
}

// List describes every registered dataset, sorted by name.
func (c *Catalog) List() []model.DatasetInfo {
	names := c.Names()
	out := make([]model.DatasetInfo, 0, len(names))
	for _, name := range names {
		if e, err := c.lookup(name); err == nil {
			out = append(out, info(e))
		}
	}
	return out
}

// Info describes one dataset.
func (c *Catalog) Info(name string) (model.DatasetInfo, error) {
	e, err := c.lookup(name)
	if err != nil {
		return model.DatasetInfo{}, err
	}
	return info(e), nil
}

func info(e *entry) model.DatasetInfo {
	di := model.DatasetInfo{Name: e.name, Source: e.source.String()}
	if snap := e.current.Load(); snap != nil {
		loadedAt := snap.loadedAt
		di.Loaded = true
		di.SnapshotID = snap.id
		di.Rows = snap.engine.Len()
		di.LoadedAt = &loadedAt
	}
	if msg := e.lastErr.Load(); msg != nil {
		di.LastError = *msg
	}
	return di
}

// Engine returns the current query engine for name.
func (c *Catalog) Engine(name string) (agent.DataAgent[model.Record], error) {
	snap, err := c.current(name)
	if err != nil {
		return nil, err
	}
	return snap.engine, nil
}

func (c *Catalog) current(name string) (*snapshot, error) {
	e, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	snap := e.current.Load()
	if snap == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	return snap, nil
}

// Fetch runs q against the current snapshot of name.
func (c *Catalog) Fetch(ctx context.Context, name string, q model.Query) (model.Result, error) {
	if err := ctx.Err(); err != nil {
		return model.Result{}, err
	}
	snap, err := c.current(name)
	if err != nil {
		return model.Result{}, err
	}
	rows, total := snap.engine.Query(q)
	return model.Result{
		Rows:     rows,
		Total:    total,
		Page:     q.EffectivePage(),
		PageSize: q.EffectivePageSize(),
	}, nil
}

// FilePaths maps each file-backed dataset to its path.
func (c *Catalog) FilePaths() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string)
	for name, e := range c.entries {
		if fs, ok := e.source.(*dataset.FileSource); ok {
			out[name] = fs.Path
		}
	}
	return out
}
