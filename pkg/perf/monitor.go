// Package perf implements PerformanceMonitor & Benchmarks (spec §4.14,
// C14): wraps core operations with start/end timing, maintains sliding-
// window metrics, detects regressions against a rolling baseline, and
// applies bounded auto-optimization remedies when thresholds are exceeded.
package perf

import (
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codeready-toolchain/taskcore/pkg/config"
)

// Sample is one completed operation timing (spec §4.14:
// "{duration, memoryDelta}").
type Sample struct {
	Duration    time.Duration
	MemoryDelta int64
	At          time.Time
}

// Handle is returned by StartOperation and consumed by EndOperation.
type Handle struct {
	name       string
	start      time.Time
	startAlloc uint64
}

// Severity is the closed set of regression bands (spec §4.14).
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"      // >10%
	SeverityMedium   Severity = "medium"   // >20%
	SeverityHigh     Severity = "high"     // >30%
	SeverityCritical Severity = "critical" // >50%
)

// Regression is one operation's detected degradation.
type Regression struct {
	Name     string
	Baseline time.Duration
	Recent   time.Duration
	PctDelta float64
	Severity Severity
}

// Monitor is the concrete PerformanceMonitor. Sampling uses a dedicated zap
// logger so high-frequency start/end events never share a pipeline with
// business-event logs (spec SPEC_FULL §4.14 ambient detail).
type Monitor struct {
	mu             sync.Mutex
	samples        map[string][]Sample
	baselineWindow time.Duration
	cfg            config.PerformanceConfig
	log            *zap.SugaredLogger
	remedies       Remedies
}

// Remedies are the concrete auto-optimize actions a Monitor may apply (spec
// §4.14: "cache prune, GC hint, concurrency cap reduction"). Any nil field
// disables that remedy.
type Remedies struct {
	PruneCache         func()
	ReduceConcurrency  func()
}

// New constructs a Monitor. baselineWindow is "N hours" from spec §4.14:
// samples older than it form the baseline, newer ones form the recent mean.
func New(cfg config.PerformanceConfig, baselineWindow time.Duration, log *zap.SugaredLogger, remedies Remedies) *Monitor {
	if log == nil {
		l, _ := zap.NewProduction()
		log = l.Sugar()
	}
	if baselineWindow <= 0 {
		baselineWindow = time.Hour
	}
	return &Monitor{
		samples:        make(map[string][]Sample),
		baselineWindow: baselineWindow,
		cfg:            cfg,
		log:            log,
		remedies:       remedies,
	}
}

// StartOperation begins timing name.
func (m *Monitor) StartOperation(name string) *Handle {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return &Handle{name: name, start: time.Now(), startAlloc: ms.Alloc}
}

// EndOperation completes timing for h and records the sample.
func (m *Monitor) EndOperation(h *Handle) Sample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	s := Sample{
		Duration:    time.Since(h.start),
		MemoryDelta: int64(ms.Alloc) - int64(h.startAlloc),
		At:          time.Now(),
	}

	m.mu.Lock()
	m.samples[h.name] = append(m.samples[h.name], s)
	m.mu.Unlock()

	m.log.Debugw("operation completed", "operation", h.name, "durationMs", s.Duration.Milliseconds(), "memoryDeltaBytes", s.MemoryDelta)
	return s
}

// DetectRegressions computes, for every operation with samples on both
// sides of the baseline window relative to now, the percentage change in
// mean duration and its severity band (spec §4.14).
func (m *Monitor) DetectRegressions(now time.Time) []Regression {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Regression
	for name, samples := range m.samples {
		var baseline, recent []Sample
		cutoff := now.Add(-m.baselineWindow)
		for _, s := range samples {
			if s.At.Before(cutoff) {
				baseline = append(baseline, s)
			} else {
				recent = append(recent, s)
			}
		}
		if len(baseline) == 0 || len(recent) == 0 {
			continue
		}

		baselineMean := meanDuration(baseline)
		recentMean := meanDuration(recent)
		if baselineMean == 0 {
			continue
		}
		pct := float64(recentMean-baselineMean) / float64(baselineMean)

		sev := severityOf(pct)
		if sev == SeverityNone {
			continue
		}
		out = append(out, Regression{Name: name, Baseline: baselineMean, Recent: recentMean, PctDelta: pct, Severity: sev})
	}
	return out
}

func severityOf(pct float64) Severity {
	switch {
	case pct > 0.5:
		return SeverityCritical
	case pct > 0.3:
		return SeverityHigh
	case pct > 0.2:
		return SeverityMedium
	case pct > 0.1:
		return SeverityLow
	default:
		return SeverityNone
	}
}

func meanDuration(samples []Sample) time.Duration {
	var sum time.Duration
	for _, s := range samples {
		sum += s.Duration
	}
	return sum / time.Duration(len(samples))
}

// AutoOptimize applies remedies appropriate to the worst severity among
// regressions and returns the names of the actions actually applied (spec
// §4.14: "Auto-optimize applies known remedies... returns the list of
// applied actions").
func (m *Monitor) AutoOptimize(regressions []Regression) []string {
	worst := SeverityNone
	for _, r := range regressions {
		if severityRank(r.Severity) > severityRank(worst) {
			worst = r.Severity
		}
	}

	var applied []string
	if worst == SeverityNone {
		return applied
	}

	if m.remedies.PruneCache != nil {
		m.remedies.PruneCache()
		applied = append(applied, "cache_prune")
	}
	if severityRank(worst) >= severityRank(SeverityHigh) {
		runtime.GC()
		applied = append(applied, "gc_hint")
	}
	if severityRank(worst) >= severityRank(SeverityCritical) && m.remedies.ReduceConcurrency != nil {
		m.remedies.ReduceConcurrency()
		applied = append(applied, "concurrency_cap_reduction")
	}
	return applied
}

func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}
