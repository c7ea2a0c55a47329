package ratelimit

import (
	"fmt"
	"sync"

	"github.com/deusflow/newsky/internal/logger"
)

// Budget caps how many calls a run may make to a paid or rate-limited API.
// A max of 0 means unlimited.
type Budget struct {
	mu    sync.Mutex
	name  string
	max   int
	count int
}

func NewBudget(name string, max int) *Budget {
	return &Budget{name: name, max: max}
}

// Use records one call, failing when the budget is exhausted.
func (b *Budget) Use() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max > 0 && b.count >= b.max {
		return fmt.Errorf("%s request budget exceeded (%d)", b.name, b.max)
	}
	b.count++
	logger.Debug("request budget", "api", b.name, "used", b.count, "limit", b.max)
	return nil
}

func (b *Budget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
