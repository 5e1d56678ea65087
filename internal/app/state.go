package app

import (
	"sync"
)

// Progress tracks how many of the announced items of a transfer have been
// processed. It is safe for concurrent use.
type Progress struct {
	mu        sync.Mutex
	total     int64
	processed int64
}

// NewProgress creates a new Progress instance.
func NewProgress() *Progress {
	return &Progress{}
}

// SetTotal records the item count announced by the start command and resets
// the processed count.
func (p *Progress) SetTotal(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	p.processed = 0
}

// Advance marks one more item as processed and returns the new count.
func (p *Progress) Advance() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed++
	return p.processed
}

// Snapshot returns the processed and total counts.
func (p *Progress) Snapshot() (processed, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.total
}

// Fraction returns processed/total clamped to [0, 1]; zero when no total is known.
func (p *Progress) Fraction() float64 {
	processed, total := p.Snapshot()
	if total <= 0 {
		return 0
	}
	if processed >= total {
		return 1
	}
	return float64(processed) / float64(total)
}
