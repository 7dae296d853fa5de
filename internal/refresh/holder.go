package refresh

import (
	"sync"

	"certdash/internal/pipeline"
)

// Holder shares the current dashboard between the web server and the
// refresh job. Dashboards are never mutated after Swap.
type Holder struct {
	mu      sync.RWMutex
	current *pipeline.Dashboard
}

func NewHolder(d *pipeline.Dashboard) *Holder {
	return &Holder{current: d}
}

func (h *Holder) Current() *pipeline.Dashboard {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Swap installs d and returns the dashboard it replaced.
func (h *Holder) Swap(d *pipeline.Dashboard) *pipeline.Dashboard {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.current
	h.current = d
	return prev
}
