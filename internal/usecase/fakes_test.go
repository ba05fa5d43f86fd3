package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"BlogHarvester/internal/domain"
)

// memPosts is an in-memory PostRepository keyed by link.
type memPosts struct {
	mu         sync.Mutex
	saved      map[string]domain.EnrichedPost
	existsCall int
	saveErr    error
}

func newMemPosts() *memPosts {
	return &memPosts{saved: map[string]domain.EnrichedPost{}}
}

func (m *memPosts) ExistingLinks(_ context.Context, links []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existsCall++
	out := map[string]bool{}
	for _, link := range links {
		if _, ok := m.saved[link]; ok {
			out[link] = true
		}
	}
	return out, nil
}

func (m *memPosts) SaveBatch(_ context.Context, posts []domain.EnrichedPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	for _, p := range posts {
		m.saved[p.Link] = p
	}
	return nil
}

func (m *memPosts) ListByClassification(_ context.Context, class domain.Classification, limit, offset int) ([]domain.EnrichedPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.EnrichedPost
	for _, p := range m.saved {
		if p.Classification == class {
			out = append(out, p)
		}
	}
	return out, nil
}

// memCache is an in-memory LinkCache; failErr makes every call fail.
type memCache struct {
	mu      sync.Mutex
	seen    map[string]bool
	failErr error
}

func newMemCache() *memCache {
	return &memCache{seen: map[string]bool{}}
}

func (c *memCache) Seen(_ context.Context, links []string) (map[string]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return nil, c.failErr
	}
	out := map[string]bool{}
	for _, link := range links {
		if c.seen[link] {
			out[link] = true
		}
	}
	return out, nil
}

func (c *memCache) MarkSeen(_ context.Context, links []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return c.failErr
	}
	for _, link := range links {
		c.seen[link] = true
	}
	return nil
}

// scriptedCompletion returns canned payloads keyed by system prompt.
type scriptedCompletion struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     map[string]int
}

func newScriptedCompletion() *scriptedCompletion {
	return &scriptedCompletion{
		responses: map[string]string{},
		errs:      map[string]error{},
		calls:     map[string]int{},
	}
}

func (s *scriptedCompletion) Complete(_ context.Context, system, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[system]++
	if err := s.errs[system]; err != nil {
		return "", err
	}
	resp, ok := s.responses[system]
	if !ok {
		return "", fmt.Errorf("unscripted system prompt")
	}
	return resp, nil
}

func (s *scriptedCompletion) callCount(system string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[system]
}

// recordingAlerter captures alert messages.
type recordingAlerter struct {
	mu       sync.Mutex
	messages []string
}

func (a *recordingAlerter) Alert(_ context.Context, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
	return nil
}

func (a *recordingAlerter) all() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.messages...)
}

// memSources is a fixed SourceRepository.
type memSources struct {
	mu      sync.Mutex
	sources []domain.Source
	touched map[string]time.Time
}

func newMemSources(sources ...domain.Source) *memSources {
	return &memSources{sources: sources, touched: map[string]time.Time{}}
}

func (m *memSources) ListActive(context.Context) ([]domain.Source, error) {
	return m.sources, nil
}

func (m *memSources) Upsert(context.Context, domain.Source) error { return nil }

func (m *memSources) TouchLastChecked(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched[id] = at
	return nil
}

// memCompanies serves a fixed reference list.
type memCompanies struct {
	refs []domain.CompanyReference
}

func (m *memCompanies) All(context.Context) ([]domain.CompanyReference, error) {
	return m.refs, nil
}

func (m *memCompanies) UpsertBatch(context.Context, []domain.CompanyReference) error { return nil }

func (m *memCompanies) UncheckedBatch(context.Context, time.Time, int) ([]domain.CompanyReference, error) {
	return nil, nil
}

func (m *memCompanies) PatchMarketCap(context.Context, int64, float64, bool) error { return nil }

// memTrackers answers ActiveByTarget from a static table.
type memTrackers struct {
	trackers []domain.Tracker
}

func (m *memTrackers) Create(context.Context, domain.Tracker) error { return nil }

func (m *memTrackers) ActiveByTarget(_ context.Context, targetType domain.TargetType, targetID string) ([]domain.Tracker, error) {
	var out []domain.Tracker
	for _, t := range m.trackers {
		if t.Active && t.TargetType == targetType && t.TargetID == targetID {
			out = append(out, t)
		}
	}
	return out, nil
}

// memNotifications records inserts.
type memNotifications struct {
	mu       sync.Mutex
	inserted []domain.Notification
}

func (m *memNotifications) Insert(_ context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted = append(m.inserted, n)
	return nil
}

func (m *memNotifications) all() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Notification(nil), m.inserted...)
}

// memQueue records published delivery tasks.
type memQueue struct {
	mu    sync.Mutex
	tasks []domain.DeliveryTask
}

func (m *memQueue) Publish(_ context.Context, task domain.DeliveryTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *memQueue) all() []domain.DeliveryTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.DeliveryTask(nil), m.tasks...)
}

var errBrokenSource = errors.New("upstream returned 403")

// stubAdapter returns fixed posts for one platform kind.
type stubAdapter struct {
	kind  domain.PlatformKind
	posts []domain.RawPost
	err   error
}

func (s *stubAdapter) Kind() domain.PlatformKind { return s.kind }

func (s *stubAdapter) Fetch(context.Context, domain.Source) ([]domain.RawPost, error) {
	return s.posts, s.err
}
