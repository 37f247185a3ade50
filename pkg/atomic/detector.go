// Package atomic implements AtomicDetector (spec §4.7, C7): an
// oracle-backed predicate for "is this task atomic?" with a deterministic
// heuristic fallback for when the oracle is unreachable.
package atomic

import (
	"context"
	"errors"
	"log/slog"

	"github.com/codeready-toolchain/taskcore/pkg/oracle"
)

// Request is the minimal task/project shape Detector needs.
type Request struct {
	Title              string
	Description        string
	EstimatedHours     float64
	AcceptanceCriteria int
	FilePaths          int
	ProjectContext     string
}

// Result mirrors oracle.AtomicResult; kept as a separate type so callers
// depend on pkg/atomic's contract rather than the oracle wire shape.
type Result struct {
	IsAtomic          bool
	Confidence        float64
	Reasoning         string
	EstimatedHours    float64
	ComplexityFactors []string
	Recommendations   []string
	FromHeuristic     bool
}

// heuristicLowHours/heuristicHighHours bound the canonical atomic range,
// 5-10 minutes (spec §3, §4.7).
const (
	heuristicLowHours  = 0.08
	heuristicHighHours = 0.17
	// confidenceFloor is the minimum oracle confidence accepted as-is
	// (spec §4.7: "results with confidence < 0.6 are treated as 'not
	// atomic' unless the heuristic agrees").
	confidenceFloor = 0.6
)

// Detector is the concrete AtomicDetector.
type Detector struct {
	oracle oracle.Client
	log    *slog.Logger
}

// New constructs a Detector. log may be nil, in which case slog.Default()
// is used.
func New(client oracle.Client, log *slog.Logger) *Detector {
	if log == nil {
		log = slog.Default()
	}
	return &Detector{oracle: client, log: log}
}

// IsAtomic implements isAtomic (spec §4.7): consults the oracle by
// default; on oracle unavailability, or when its confidence falls below
// confidenceFloor and the heuristic disagrees, falls back to the
// deterministic heuristic. The disagreement rule is symmetric: it defers
// to the heuristic whether the oracle says atomic and the heuristic says
// not, or the oracle says not-atomic and the heuristic says atomic — low
// confidence discards the oracle's verdict outright, in either direction.
func (d *Detector) IsAtomic(ctx context.Context, req Request) (*Result, error) {
	heuristic := d.heuristic(req)

	oracleReq := oracle.AtomicRequest{
		Title:              req.Title,
		Description:        req.Description,
		EstimatedHours:     req.EstimatedHours,
		AcceptanceCriteria: req.AcceptanceCriteria,
		FilePaths:          req.FilePaths,
		ProjectContext:     req.ProjectContext,
	}

	res, err := d.oracle.DetectAtomic(ctx, oracleReq)
	if err != nil {
		var unavailable *oracle.Unavailable
		if errors.As(err, &unavailable) {
			d.log.Warn("atomic detector: oracle unavailable, falling back to heuristic", "error", err)
			return heuristic, nil
		}
		return nil, err
	}

	if res.Confidence < confidenceFloor && res.IsAtomic != heuristic.IsAtomic {
		d.log.Info("atomic detector: low-confidence oracle result disagrees with heuristic, deferring to heuristic",
			"oracle_confidence", res.Confidence, "oracle_is_atomic", res.IsAtomic, "heuristic_is_atomic", heuristic.IsAtomic)
		return heuristic, nil
	}

	return &Result{
		IsAtomic:          res.IsAtomic,
		Confidence:        res.Confidence,
		Reasoning:         res.Reasoning,
		EstimatedHours:    res.EstimatedHours,
		ComplexityFactors: res.ComplexityFactors,
		Recommendations:   res.Recommendations,
	}, nil
}

// heuristic implements the deterministic fallback (spec §4.7): isAtomic
// iff 0.08 <= estimatedHours <= 0.17 AND exactly one acceptance criterion
// AND at most 3 file paths.
func (d *Detector) heuristic(req Request) *Result {
	atomic := req.EstimatedHours >= heuristicLowHours &&
		req.EstimatedHours <= heuristicHighHours &&
		req.AcceptanceCriteria == 1 &&
		req.FilePaths <= 3

	var factors []string
	if req.EstimatedHours < heuristicLowHours || req.EstimatedHours > heuristicHighHours {
		factors = append(factors, "estimated hours outside 0.08-0.17 atomic range")
	}
	if req.AcceptanceCriteria != 1 {
		factors = append(factors, "acceptance criteria count is not exactly 1")
	}
	if req.FilePaths > 3 {
		factors = append(factors, "touches more than 3 file paths")
	}

	confidence := 1.0
	if !atomic {
		confidence = 0.5
	}

	return &Result{
		IsAtomic:          atomic,
		Confidence:        confidence,
		Reasoning:         "deterministic heuristic: hours range, single acceptance criterion, file path bound",
		EstimatedHours:    req.EstimatedHours,
		ComplexityFactors: factors,
		FromHeuristic:     true,
	}
}
