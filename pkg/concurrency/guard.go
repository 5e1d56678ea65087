package concurrency

import (
	"errors"
	"fmt"
	"sync"
)

var ErrBusy = errors.New("a transfer session is already running")

// Guard admits one session at a time and remembers who holds it, so a
// rejected peer can be told which session it collided with.
type Guard struct {
	mu     sync.Mutex
	holder string
	busy   bool
}

func NewGuard() *Guard {
	return &Guard{}
}

// Execute runs task on behalf of holder unless another session is running,
// in which case it fails fast with an error wrapping ErrBusy.
func (g *Guard) Execute(holder string, task func() error) error {
	g.mu.Lock()
	if g.busy {
		current := g.holder
		g.mu.Unlock()
		return fmt.Errorf("%w with %s", ErrBusy, current)
	}
	g.busy = true
	g.holder = holder
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.busy = false
		g.holder = ""
		g.mu.Unlock()
	}()
	return task()
}
