package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"BlogHarvester/internal/adapter"
	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/metrics"
	"BlogHarvester/internal/notify"
	"BlogHarvester/internal/ports"
	"BlogHarvester/internal/resolver"
)

// HarvesterDeps wires all collaborators into one harvest run.
type HarvesterDeps struct {
	Sources              ports.SourceRepository
	Registry             *adapter.Registry
	Gateway              *DedupGateway
	Pipeline             *Pipeline
	Posts                ports.PostRepository
	Companies            ports.CompanyRepository
	Fanout               *notify.Fanout
	Alerter              ports.Alerter
	Metrics              *metrics.Metrics
	Logger               *slog.Logger
	MaxConcurrentSources int
	MaxConcurrentPosts   int
	MinOverlap           float64
	MinMarketCap         float64
}

// Harvester iterates tracked sources, dispatches each to its adapter,
// funnels surviving posts through the classification pipeline, persists
// them and fans notifications out. Safe to invoke twice: duplicate runs
// only re-discover already-dedup'd links.
type Harvester struct {
	deps HarvesterDeps
}

// NewHarvester constructs the orchestration component.
func NewHarvester(deps HarvesterDeps) *Harvester {
	if deps.MaxConcurrentSources <= 0 {
		deps.MaxConcurrentSources = 6
	}
	if deps.MaxConcurrentPosts <= 0 {
		deps.MaxConcurrentPosts = 4
	}
	return &Harvester{deps: deps}
}

// Run executes one full harvest.
func (h *Harvester) Run(ctx context.Context, when time.Time) error {
	started := time.Now()
	d := h.deps

	sources, err := d.Sources.ListActive(ctx)
	if err != nil {
		h.escalate(ctx, fmt.Sprintf("harvest could not load sources: %v", err))
		return fmt.Errorf("list active sources: %w", err)
	}
	h.info("harvest started", "sources", len(sources), "day", when.Format("2006-01-02"))

	merged, sourceFailures := h.collect(ctx, sources)
	h.info("adapters done", "posts", len(merged), "source_failures", sourceFailures)
	if d.Metrics != nil {
		d.Metrics.PostsHarvested.Add(float64(len(merged)))
		d.Metrics.SourceFailures.Add(float64(sourceFailures))
	}

	if len(merged) == 0 {
		if sourceFailures > 0 && len(sources) > 0 {
			h.escalate(ctx, fmt.Sprintf("harvest produced zero posts with %d/%d sources failing; possible systemic outage", sourceFailures, len(sources)))
		}
		return nil
	}

	fresh, err := d.Gateway.FilterNew(ctx, merged)
	if err != nil {
		h.escalate(ctx, fmt.Sprintf("harvest aborted at dedup with nothing persisted: %v", err))
		return fmt.Errorf("dedup: %w", err)
	}
	h.info("dedup done", "new_posts", len(fresh), "known", len(merged)-len(fresh))
	if len(fresh) == 0 {
		return nil
	}

	res, err := h.buildResolver(ctx)
	if err != nil {
		h.escalate(ctx, fmt.Sprintf("harvest aborted loading reference companies, %d new posts dropped: %v", len(fresh), err))
		return fmt.Errorf("load reference companies: %w", err)
	}

	enriched := h.classifyAll(ctx, fresh, res)

	if err := d.Posts.SaveBatch(ctx, enriched); err != nil {
		h.escalate(ctx, fmt.Sprintf("harvest aborted at persistence, %d enriched posts lost: %v", len(enriched), err))
		return fmt.Errorf("persist batch: %w", err)
	}
	links := make([]string, 0, len(enriched))
	for _, post := range enriched {
		links = append(links, post.Link)
	}
	d.Gateway.MarkPersisted(ctx, links)
	if d.Metrics != nil {
		d.Metrics.PostsPersisted.Add(float64(len(enriched)))
		d.Metrics.HarvestDuration.Observe(time.Since(started).Seconds())
	}

	if d.Fanout != nil {
		created, err := d.Fanout.Dispatch(ctx, enriched)
		if err != nil {
			h.warn("notification fan-out failed", "error", err)
		}
		if d.Metrics != nil {
			d.Metrics.Notifications.Add(float64(created))
		}
	}

	h.info("harvest finished", "persisted", len(enriched), "took", time.Since(started).String())
	return nil
}

// collect fans out across sources with a bounded pool. Adapters share
// no mutable state, so failures stay per-source.
func (h *Harvester) collect(ctx context.Context, sources []domain.Source) ([]domain.RawPost, int) {
	d := h.deps

	var (
		mu       sync.Mutex
		merged   []domain.RawPost
		failures int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.MaxConcurrentSources)
	for _, source := range sources {
		source := source
		g.Go(func() error {
			posts, err := h.fetchSource(gctx, source)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				h.warn("source failed", "source", source.ID, "error", err)
				return nil
			}
			merged = append(merged, posts...)
			return nil
		})
	}
	_ = g.Wait()
	return merged, failures
}

func (h *Harvester) fetchSource(ctx context.Context, source domain.Source) ([]domain.RawPost, error) {
	a, err := h.deps.Registry.Resolve(source.PlatformKind)
	if err != nil {
		return nil, err
	}
	posts, err := a.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if posts[i].SourceID == "" {
			posts[i].SourceID = source.ID
		}
	}
	if touchErr := h.deps.Sources.TouchLastChecked(ctx, source.ID, time.Now().UTC()); touchErr != nil {
		h.warn("last-checked update failed", "source", source.ID, "error", touchErr)
	}
	h.info("source done", "source", source.ID, "posts", len(posts))
	return posts, nil
}

func (h *Harvester) buildResolver(ctx context.Context) (*resolver.Resolver, error) {
	companies, err := h.deps.Companies.All(ctx)
	if err != nil {
		return nil, err
	}
	return resolver.New(companies, h.deps.MinOverlap, h.deps.MinMarketCap), nil
}

// classifyAll pipelines independent posts concurrently; stages stay
// sequential within a post.
func (h *Harvester) classifyAll(ctx context.Context, posts []domain.RawPost, res *resolver.Resolver) []domain.EnrichedPost {
	d := h.deps

	enriched := make([]domain.EnrichedPost, len(posts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.MaxConcurrentPosts)
	for i, post := range posts {
		i, post := i, post
		g.Go(func() error {
			enriched[i] = d.Pipeline.Process(gctx, post, res)
			return nil
		})
	}
	_ = g.Wait()
	return enriched
}

func (h *Harvester) escalate(ctx context.Context, message string) {
	h.warn("escalating", "message", message)
	if h.deps.Alerter == nil {
		return
	}
	if err := h.deps.Alerter.Alert(ctx, message); err != nil {
		h.warn("alert delivery failed", "error", err)
	}
}

func (h *Harvester) info(msg string, args ...any) {
	if h.deps.Logger != nil {
		h.deps.Logger.Info(msg, args...)
	}
}

func (h *Harvester) warn(msg string, args ...any) {
	if h.deps.Logger != nil {
		h.deps.Logger.Warn(msg, args...)
	}
}
