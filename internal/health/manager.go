package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds each individual check
const DefaultTimeout = 5 * time.Second

// Report is one named check result
type Report struct {
	Name   string  `json:"name" yaml:"name"`
	Result *Result `json:"result" yaml:"result"`
}

// Manager coordinates health checks and aggregates results.
type Manager struct {
	mu       sync.RWMutex
	checkers []Checker
	timeout  time.Duration
}

// NewManager creates a manager with the default per-check timeout.
func NewManager(checkers ...Checker) *Manager {
	return &Manager{checkers: checkers, timeout: DefaultTimeout}
}

// WithTimeout sets a custom timeout for health checks.
func (m *Manager) WithTimeout(timeout time.Duration) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return m
}

// AddChecker registers a new health checker.
func (m *Manager) AddChecker(checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, checker)
}

// Check runs every checker concurrently, each under its own timeout, and
// returns the reports in registration order.
func (m *Manager) Check(ctx context.Context) []Report {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	timeout := m.timeout
	m.mu.RUnlock()

	reports := make([]Report, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			result := c.Check(checkCtx)
			if result == nil {
				result = Unhealthy("check returned no result")
			}
			if result.Latency == 0 {
				result.Latency = time.Since(start)
			}
			reports[i] = Report{Name: c.Name(), Result: result}
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

// OverallStatus is unhealthy if any report is, else degraded if any report
// is, else healthy.
func OverallStatus(reports []Report) Status {
	status := StatusHealthy
	for _, r := range reports {
		switch r.Result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// CheckNames returns the names of all registered checkers.
func (m *Manager) CheckNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.checkers))
	for i, checker := range m.checkers {
		names[i] = checker.Name()
	}
	return names
}
