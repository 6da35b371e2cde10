package backoff

import (
	"math/rand"
	"sync"
	"time"
)

// Default policy constants.
const (
	// Floor is the initial retry delay.
	Floor = 2 * time.Second

	// Ceiling is the maximum retry delay.
	Ceiling = 30 * time.Second

	// Multiplier is the factor by which the delay grows after each failure.
	Multiplier = 2.0
)

// Backoff tracks the retry delay for one failing operation.
//
// Each retry context (probing, connecting) owns its own Backoff; sharing
// one instance across contexts would let unrelated failures contaminate
// each other's timing.
type Backoff struct {
	mu sync.Mutex

	// Current delay (before jitter)
	current time.Duration

	// Configuration
	floor      time.Duration
	ceiling    time.Duration
	multiplier float64
	jitter     float64

	// Attempt counter
	attempts int

	// Random source for jitter
	rng *rand.Rand
}

// Config customizes backoff parameters.
type Config struct {
	Floor      time.Duration
	Ceiling    time.Duration
	Multiplier float64

	// Jitter is the maximum random extension as a fraction of the base
	// delay. Zero means delays are exact.
	Jitter float64
}

// New creates a backoff with the default policy: 2s doubling to 30s, no jitter.
func New() *Backoff {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a backoff with custom parameters.
// Zero or invalid fields fall back to the defaults.
func NewWithConfig(cfg Config) *Backoff {
	if cfg.Floor <= 0 {
		cfg.Floor = Floor
	}
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = Ceiling
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = Multiplier
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}

	return &Backoff{
		current:    cfg.Floor,
		floor:      cfg.Floor,
		ceiling:    cfg.Ceiling,
		multiplier: cfg.Multiplier,
		jitter:     cfg.Jitter,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the delay to wait before the next attempt and advances
// the backoff. Successive calls return non-decreasing base delays,
// clamped to the ceiling.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.addJitter(b.current)

	b.attempts++
	next := time.Duration(float64(b.current) * b.multiplier)
	if next > b.ceiling {
		next = b.ceiling
	}
	b.current = next

	return delay
}

// Peek returns the delay the next call to Next would return, without advancing.
func (b *Backoff) Peek() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addJitter(b.current)
}

// Reset restores the floor delay. Call after the operation succeeds.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.floor
	b.attempts = 0
}

// Attempts returns the number of delays handed out since the last reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Current returns the current base delay (without jitter).
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *Backoff) addJitter(d time.Duration) time.Duration {
	if b.jitter <= 0 {
		return d
	}
	return d + time.Duration(float64(d)*b.jitter*b.rng.Float64())
}
