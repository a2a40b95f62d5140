// Package stats logs periodic cache and traffic summaries on a cron
// schedule.
package stats

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Snapshot is a point-in-time view of the proxy's counters.
type Snapshot struct {
	CacheEntries    int
	CacheHits       uint64
	CacheMisses     uint64
	BackendTimeouts uint64
}

// Manager logs a stats snapshot on each cron firing. A nil Manager is a
// valid no-op, mirroring an empty cron spec.
type Manager struct {
	cron     *cron.Cron
	snapshot func() Snapshot
}

// NewManager builds a Manager for the given cron spec. An empty spec
// returns (nil, nil).
func NewManager(spec string, snapshot func() Snapshot) (*Manager, error) {
	if spec == "" {
		return nil, nil
	}

	m := &Manager{
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
		snapshot: snapshot,
	}
	if _, err := m.cron.AddFunc(spec, m.report); err != nil {
		return nil, fmt.Errorf("invalid stats cron spec %q: %w", spec, err)
	}
	return m, nil
}

func (m *Manager) Start() {
	if m == nil {
		return
	}
	m.cron.Start()
}

func (m *Manager) Stop() {
	if m == nil {
		return
	}
	ctx := m.cron.Stop()
	<-ctx.Done()
}

func (m *Manager) report() {
	s := m.snapshot()
	log.Printf("Cache stats: entries=%d hits=%d misses=%d backend_timeouts=%d",
		s.CacheEntries, s.CacheHits, s.CacheMisses, s.BackendTimeouts)
}
