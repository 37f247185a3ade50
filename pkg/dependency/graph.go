package dependency

import (
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/codeready-toolchain/taskcore/pkg/domain"
)

// GenerateDependencyGraph loads every task and dependency in projectId,
// builds nodes/edges, runs Kahn's topological sort (recording a cycle if
// fewer nodes are emitted than exist), computes a simplified additive
// critical path over the DAG, and persists the result (spec §4.5 step 3-5).
func (o *Ops) GenerateDependencyGraph(projectID string) (*domain.DependencyGraph, error) {
	if cached, ok := o.graphCache.Get(projectID); ok {
		return cached.(*domain.DependencyGraph), nil
	}

	tasks, err := o.store.ListTasksByProject(projectID)
	if err != nil {
		return nil, err
	}
	taskByID := make(map[string]*domain.AtomicTask, len(tasks))
	inProject := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		taskByID[t.ID] = t
		inProject[t.ID] = true
	}

	edges, err := o.store.ListDependenciesForProject(projectID, inProject)
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]domain.GraphNode, len(tasks))
	for _, t := range tasks {
		nodes[t.ID] = domain.GraphNode{
			TaskID:         t.ID,
			Title:          t.Title,
			Status:         t.Status,
			Priority:       t.Priority,
			EstimatedHours: t.EstimatedHours,
			Dependencies:   append([]string(nil), t.Dependencies...),
			Dependents:     append([]string(nil), t.Dependents...),
		}
	}

	order, cyclic := o.topoSort(taskByID)
	criticalPath := o.criticalPath(order, taskByID)

	for _, id := range criticalPath {
		if n, ok := nodes[id]; ok {
			n.CriticalPath = true
			nodes[id] = n
		}
	}
	for depth, id := range order {
		if n, ok := nodes[id]; ok {
			n.Depth = depth
			nodes[id] = n
		}
	}

	stats := domain.GraphStatistics{
		TotalTasks:        len(tasks),
		TotalDependencies: len(edges),
		MaxDepth:          len(order),
		CyclicDependencies: cyclicCount(len(tasks), len(order), cyclic),
		OrphanedTasks:     countOrphans(tasks),
	}

	graph := &domain.DependencyGraph{
		ProjectID:      projectID,
		Nodes:          nodes,
		Edges:          edgeValues(edges),
		ExecutionOrder: order,
		CriticalPath:   criticalPath,
		Statistics:     stats,
		Metadata: domain.GraphMetadata{
			GeneratedAt: time.Now(),
			IsValid:     !cyclic,
		},
	}
	if cyclic {
		graph.Metadata.ValidationErrors = append(graph.Metadata.ValidationErrors, "dependency graph contains a cycle")
	}

	if err := o.store.SaveDependencyGraph(graph); err != nil {
		return nil, err
	}
	o.graphCache.Set(projectID, graph, gocache.DefaultExpiration)
	return graph, nil
}

func cyclicCount(total, emitted int, cyclic bool) int {
	if !cyclic {
		return 0
	}
	return total - emitted
}

func countOrphans(tasks []*domain.AtomicTask) int {
	n := 0
	for _, t := range tasks {
		if len(t.Dependencies) == 0 && len(t.Dependents) == 0 {
			n++
		}
	}
	return n
}

func edgeValues(edges []*domain.Dependency) []domain.Dependency {
	out := make([]domain.Dependency, len(edges))
	for i, e := range edges {
		out[i] = *e
	}
	return out
}

// topoSort runs Kahn's algorithm over task.Dependencies edges (edge t ->
// d means t depends on d, so d must be emitted before t). Ties among
// zero-in-degree candidates break by priority desc, then createdAt asc,
// then lexicographic taskId (spec §4.5).
func (o *Ops) topoSort(taskByID map[string]*domain.AtomicTask) ([]string, bool) {
	inDegree := make(map[string]int, len(taskByID))
	dependents := make(map[string][]string, len(taskByID)) // d -> tasks that depend on d
	for id, t := range taskByID {
		if _, ok := inDegree[id]; !ok {
			inDegree[id] = 0
		}
		for _, dep := range t.Dependencies {
			if _, ok := taskByID[dep]; !ok {
				continue // dependency outside this project's task set
			}
			inDegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sortCandidates(ready, taskByID)

	var order []string
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		var newlyReady []string
		for _, dependent := range dependents[next] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				newlyReady = append(newlyReady, dependent)
			}
		}
		sortCandidates(newlyReady, taskByID)
		ready = mergeSorted(ready, newlyReady, taskByID)
	}

	return order, len(order) < len(taskByID)
}

// sortCandidates orders a batch of zero-in-degree candidates by the
// spec's tie-break rule.
func sortCandidates(ids []string, taskByID map[string]*domain.AtomicTask) {
	sort.Slice(ids, func(i, j int) bool {
		return less(taskByID[ids[i]], taskByID[ids[j]])
	})
}

func mergeSorted(a, b []string, taskByID map[string]*domain.AtomicTask) []string {
	if len(b) == 0 {
		return a
	}
	merged := append(a, b...)
	sortCandidates(merged, taskByID)
	return merged
}

func less(a, b *domain.AtomicTask) bool {
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() > b.Priority.Rank()
	}
	if !a.Metadata.CreatedAt.Equal(b.Metadata.CreatedAt) {
		return a.Metadata.CreatedAt.Before(b.Metadata.CreatedAt)
	}
	return a.ID < b.ID
}

// criticalPath computes a simplified additive critical path: path[n] starts
// at estimatedHours(n); walking order in topological sequence, for each
// dependent of n, if path[n]+hours(dependent) > path[dependent], update and
// record a predecessor edge. The path ending at the maximum path[n] is
// reconstructed via predecessors (spec §4.5 step 4).
func (o *Ops) criticalPath(order []string, taskByID map[string]*domain.AtomicTask) []string {
	if len(order) == 0 {
		return nil
	}

	pathHours := make(map[string]float64, len(order))
	predecessor := make(map[string]string, len(order))
	for _, id := range order {
		pathHours[id] = taskByID[id].EstimatedHours
	}

	for _, id := range order {
		t := taskByID[id]
		for _, dep := range t.Dependents {
			target, ok := taskByID[dep]
			if !ok {
				continue
			}
			candidate := pathHours[id] + target.EstimatedHours
			if candidate > pathHours[dep] {
				pathHours[dep] = candidate
				predecessor[dep] = id
			}
		}
	}

	end := order[0]
	for _, id := range order {
		if pathHours[id] > pathHours[end] {
			end = id
		}
	}

	var path []string
	for cur := end; cur != ""; {
		path = append([]string{cur}, path...)
		prev, ok := predecessor[cur]
		if !ok {
			break
		}
		cur = prev
	}
	return path
}
