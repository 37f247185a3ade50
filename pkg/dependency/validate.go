package dependency

import "fmt"

// Severity is the closed set of validation-finding severities (spec §4.5).
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Finding is one severity-annotated validation result.
type Finding struct {
	Severity Severity
	Message  string
}

// ValidationReport is the non-fatal result of ValidateProjectDependencies.
type ValidationReport struct {
	Errors      []Finding
	Warnings    []Finding
	Suggestions []string
}

// ValidateProjectDependencies inspects projectId's dependency graph for
// cycles, dangling edges, and orphaned tasks, returning a report that is
// always non-fatal (spec §4.5: "always non-fatal").
func (o *Ops) ValidateProjectDependencies(projectID string) (*ValidationReport, error) {
	graph, err := o.GenerateDependencyGraph(projectID)
	if err != nil {
		return nil, err
	}

	report := &ValidationReport{}

	if graph.Statistics.CyclicDependencies > 0 {
		report.Errors = append(report.Errors, Finding{
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("%d task(s) are part of a dependency cycle", graph.Statistics.CyclicDependencies),
		})
	}

	for _, edge := range graph.Edges {
		if _, ok := graph.Nodes[edge.FromTaskID]; !ok {
			report.Errors = append(report.Errors, Finding{
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("dependency %s references unknown task %s", edge.ID, edge.FromTaskID),
			})
		}
		if _, ok := graph.Nodes[edge.ToTaskID]; !ok {
			report.Errors = append(report.Errors, Finding{
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("dependency %s references unknown task %s", edge.ID, edge.ToTaskID),
			})
		}
	}

	if graph.Statistics.OrphanedTasks > 0 {
		report.Warnings = append(report.Warnings, Finding{
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("%d task(s) have no dependencies or dependents", graph.Statistics.OrphanedTasks),
		})
		report.Suggestions = append(report.Suggestions, "consider linking orphaned tasks into the epic's dependency chain or confirming they are independently schedulable")
	}

	if len(graph.CriticalPath) > 0 {
		report.Suggestions = append(report.Suggestions, fmt.Sprintf("critical path spans %d task(s); prioritize scheduling along it", len(graph.CriticalPath)))
	}

	return report, nil
}
