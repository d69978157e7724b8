// Package progress draws a spinner on a terminal while a blocking portal call
// such as an export or an IMEI upload runs.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultInterval is the time between spinner frames
const DefaultInterval = 100 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Indicator shows an animated message until stopped
type Indicator struct {
	writer    io.Writer
	message   string
	interval  time.Duration
	enabled   bool
	startTime time.Time

	mu         sync.Mutex
	spinnerIdx int
	width      int
	stopChan   chan struct{}
	done       chan struct{}
	startOnce  sync.Once
	stopOnce   sync.Once
}

// Config holds configuration for the indicator
type Config struct {
	Writer  io.Writer
	Message string
	// Interval of zero uses DefaultInterval
	Interval time.Duration
	// Enabled is false for structured output, --quiet, or a non-terminal
	Enabled bool
	IsCI    bool // Set to true in CI/CD environments to disable animation
}

// NewIndicator creates a new progress indicator
func NewIndicator(cfg Config) *Indicator {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	// Auto-detect CI environment
	if !cfg.IsCI {
		cfg.IsCI = os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"
	}

	return &Indicator{
		writer:   cfg.Writer,
		message:  cfg.Message,
		interval: cfg.Interval,
		enabled:  cfg.Enabled && !cfg.IsCI,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Enabled reports whether the indicator draws anything
func (p *Indicator) Enabled() bool {
	return p.enabled
}

// Start begins the animation. Calling it more than once has no effect.
func (p *Indicator) Start() {
	p.startOnce.Do(func() {
		p.startTime = time.Now()
		if !p.enabled {
			close(p.done)
			return
		}
		p.render()
		go p.spinnerLoop()
	})
}

// Stop ends the animation and clears the line. It returns the time elapsed
// since Start.
func (p *Indicator) Stop() time.Duration {
	p.Start()
	p.stopOnce.Do(func() {
		close(p.stopChan)
		<-p.done
		if p.enabled {
			p.mu.Lock()
			fmt.Fprintf(p.writer, "\r%s\r", strings.Repeat(" ", p.width))
			p.mu.Unlock()
		}
	})
	return time.Since(p.startTime)
}

func (p *Indicator) spinnerLoop() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.render()
		}
	}
}

func (p *Indicator) render() {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := fmt.Sprintf("%s %s (%s)", spinnerFrames[p.spinnerIdx], p.message, formatDuration(time.Since(p.startTime)))
	if n := len([]rune(line)); n > p.width {
		p.width = n
	}
	fmt.Fprintf(p.writer, "\r%s", line)
	p.spinnerIdx = (p.spinnerIdx + 1) % len(spinnerFrames)
}

// Run shows the indicator while fn runs
func Run[T any](cfg Config, fn func() (T, error)) (T, error) {
	p := NewIndicator(cfg)
	p.Start()
	defer p.Stop()
	return fn()
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
