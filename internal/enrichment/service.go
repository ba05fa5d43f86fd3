// Package enrichment backfills market capitalizations for reference
// companies from a rate-limited provider chain.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/metrics"
	"BlogHarvester/internal/ports"
)

// backoffBase spaces fallback retries at 3s, 6s, 9s.
const backoffBase = 3 * time.Second

// ServiceDeps wires the backfill worker.
type ServiceDeps struct {
	Companies ports.CompanyRepository
	Primary   ports.MarketCapProvider
	Fallback  ports.MarketCapProvider
	Breaker   *Breaker
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	BatchSize int
	MaxDelay  time.Duration
	Retries   int
	// Sleep is swappable in tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

// Service consumes unchecked CompanyReference rows in small
// oldest-first batches. The creation-time cursor is re-scheduled after
// each batch instead of looping in-process, which bounds memory and
// survives restarts (a restart simply resumes at the oldest unchecked
// row).
type Service struct {
	companies ports.CompanyRepository
	primary   ports.MarketCapProvider
	fallback  ports.MarketCapProvider
	breaker   *Breaker
	metrics   *metrics.Metrics
	logger    *slog.Logger
	batchSize int
	maxDelay  time.Duration
	retries   int
	sleep     func(time.Duration)

	mu     sync.Mutex
	cursor time.Time
}

// NewService constructs the backfill worker.
func NewService(deps ServiceDeps) *Service {
	if deps.BatchSize <= 0 {
		deps.BatchSize = 20
	}
	if deps.Retries <= 0 {
		deps.Retries = 3
	}
	if deps.Sleep == nil {
		deps.Sleep = time.Sleep
	}
	if deps.Breaker == nil {
		deps.Breaker = NewBreaker()
	}
	return &Service{
		companies: deps.Companies,
		primary:   deps.Primary,
		fallback:  deps.Fallback,
		breaker:   deps.Breaker,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		batchSize: deps.BatchSize,
		maxDelay:  deps.MaxDelay,
		retries:   deps.Retries,
		sleep:     deps.Sleep,
	}
}

// RunBatch processes one cursor batch. MarketCapChecked flips true for
// every row regardless of lookup outcome, so a refresh cycle always
// terminates.
func (s *Service) RunBatch(ctx context.Context, _ time.Time) error {
	s.mu.Lock()
	cursor := s.cursor
	s.mu.Unlock()

	batch, err := s.companies.UncheckedBatch(ctx, cursor, s.batchSize)
	if err != nil {
		return fmt.Errorf("load unchecked batch: %w", err)
	}
	if len(batch) == 0 {
		// Queue drained; next refresh cycle starts from the top with
		// the primary provider eligible again.
		s.mu.Lock()
		s.cursor = time.Time{}
		s.mu.Unlock()
		s.breaker.Reset()
		return nil
	}

	var found, missed int
	for _, ref := range batch {
		s.politeDelay()

		cap, ok := s.lookup(ctx, ref)
		if ok {
			found++
		} else {
			missed++
		}
		if err := s.companies.PatchMarketCap(ctx, ref.InstrumentToken, cap, ok); err != nil {
			return fmt.Errorf("patch %s: %w", ref.Name, err)
		}
	}

	s.mu.Lock()
	s.cursor = batch[len(batch)-1].CreatedAt
	s.mu.Unlock()

	s.info("enrichment batch done", "size", len(batch), "found", found, "missed", missed)
	return nil
}

// lookup walks the provider chain: primary unless tripped, then the
// fallback with exponential backoff on rate limits.
func (s *Service) lookup(ctx context.Context, ref domain.CompanyReference) (float64, bool) {
	if s.primary != nil && !s.breaker.Tripped() {
		cap, err := s.primary.MarketCap(ctx, ref)
		if err == nil {
			s.count(s.primary.Name(), "ok")
			return cap, true
		}
		s.count(s.primary.Name(), "error")
		if errors.Is(err, ports.ErrRateLimited) {
			s.warn("primary provider rate limited, disabling for this run", "provider", s.primary.Name())
			s.breaker.Trip()
		} else {
			s.warn("primary lookup failed", "company", ref.Name, "error", err)
		}
	}

	if s.fallback == nil {
		return 0, false
	}
	for attempt := 1; attempt <= s.retries; attempt++ {
		cap, err := s.fallback.MarketCap(ctx, ref)
		if err == nil {
			s.count(s.fallback.Name(), "ok")
			return cap, true
		}
		s.count(s.fallback.Name(), "error")
		if !errors.Is(err, ports.ErrRateLimited) {
			s.warn("fallback lookup failed", "company", ref.Name, "error", err)
			return 0, false
		}
		if attempt < s.retries {
			s.sleep(time.Duration(attempt) * backoffBase)
		}
	}
	s.warn("fallback exhausted retries", "company", ref.Name)
	return 0, false
}

// politeDelay spaces external calls with a randomized pause.
func (s *Service) politeDelay() {
	if s.maxDelay <= 0 {
		return
	}
	s.sleep(time.Duration(rand.Int63n(int64(s.maxDelay))))
}

func (s *Service) count(provider, outcome string) {
	if s.metrics != nil {
		s.metrics.EnrichmentLookups.WithLabelValues(provider, outcome).Inc()
	}
}

func (s *Service) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Service) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
