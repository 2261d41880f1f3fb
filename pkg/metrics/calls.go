package metrics

import (
	"sort"
	"sync"
	"time"
)

// CallStats tracks the calls made to a single tool.
type CallStats struct {
	Calls    int64         `json:"calls"`
	Failures int64         `json:"failures"`
	Total    time.Duration `json:"-"`
	Last     time.Time     `json:"last"`
}

// ToolStat is a snapshot row for one tool.
type ToolStat struct {
	Tool      string    `json:"tool"`
	Calls     int64     `json:"calls"`
	Failures  int64     `json:"failures"`
	TotalSecs float64   `json:"total_seconds"`
	AvgMillis float64   `json:"avg_ms"`
	Last      time.Time `json:"last"`
}

/*
CallEvent describes one finished tool call, as handed to observers.
*/
type CallEvent struct {
	Tool     string    `json:"tool"`
	Failed   bool      `json:"failed"`
	Millis   int64     `json:"duration_ms"`
	Finished time.Time `json:"finished"`
}

// ToolMetrics tracks call metrics per tool for one server instance.
type ToolMetrics struct {
	mu        sync.RWMutex
	started   time.Time
	tools     map[string]*CallStats
	observers []func(CallEvent)
}

// NewToolMetrics creates a new ToolMetrics instance
func NewToolMetrics() *ToolMetrics {
	return &ToolMetrics{started: time.Now(), tools: make(map[string]*CallStats)}
}

/*
Observe registers fn to be called after every recorded call. Observers run on
the caller's goroutine, outside the lock, and must not block.
*/
func (m *ToolMetrics) Observe(fn func(CallEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.observers = append(m.observers, fn)
}

// RecordCall records a finished tool call
func (m *ToolMetrics) RecordCall(tool string, failed bool, duration time.Duration) {
	m.mu.Lock()

	stats, ok := m.tools[tool]

	if !ok {
		stats = &CallStats{}
		m.tools[tool] = stats
	}

	stats.Calls++
	if failed {
		stats.Failures++
	}
	stats.Total += duration
	stats.Last = time.Now()

	event := CallEvent{Tool: tool, Failed: failed, Millis: duration.Milliseconds(), Finished: stats.Last}
	observers := append([]func(CallEvent){}, m.observers...)

	m.mu.Unlock()

	for _, fn := range observers {
		fn(event)
	}
}

// Get returns a copy of the stats for one tool.
func (m *ToolMetrics) Get(tool string) (CallStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats, ok := m.tools[tool]

	if !ok {
		return CallStats{}, false
	}

	return *stats, true
}

/*
Snapshot returns one row per called tool, sorted by tool name.
*/
func (m *ToolMetrics) Snapshot() []ToolStat {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]ToolStat, 0, len(m.tools))

	for tool, stats := range m.tools {
		row := ToolStat{
			Tool:      tool,
			Calls:     stats.Calls,
			Failures:  stats.Failures,
			TotalSecs: stats.Total.Seconds(),
			Last:      stats.Last,
		}

		if stats.Calls > 0 {
			row.AvgMillis = float64(stats.Total.Milliseconds()) / float64(stats.Calls)
		}

		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Tool < rows[j].Tool })

	return rows
}

// GetMetrics returns the totals across all tools.
func (m *ToolMetrics) GetMetrics() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var calls, failures int64

	for _, stats := range m.tools {
		calls += stats.Calls
		failures += stats.Failures
	}

	return map[string]any{
		"uptime_seconds": time.Since(m.started).Seconds(),
		"tools_used":     len(m.tools),
		"total_calls":    calls,
		"failed_calls":   failures,
	}
}

// Reset clears all recorded calls.
func (m *ToolMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = time.Now()
	m.tools = make(map[string]*CallStats)
}
