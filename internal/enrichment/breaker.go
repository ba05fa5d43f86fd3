package enrichment

import "sync"

// Breaker disables the primary market-data provider for the remainder
// of a run after one rate-limit signal. Within a run it only ever
// transitions false→true; a race costs at most one extra failed call.
// The worker closes it again when the unchecked queue drains.
type Breaker struct {
	mu      sync.Mutex
	tripped bool
}

// NewBreaker returns a closed breaker.
func NewBreaker() *Breaker {
	return &Breaker{}
}

// Trip opens the breaker.
func (b *Breaker) Trip() {
	b.mu.Lock()
	b.tripped = true
	b.mu.Unlock()
}

// Tripped reports whether the primary provider is disabled.
func (b *Breaker) Tripped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripped
}

// Reset closes the breaker for a new run.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.tripped = false
	b.mu.Unlock()
}
