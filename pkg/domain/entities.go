package domain

import "time"

// Metadata carries the bookkeeping fields common to mutable entities.
type Metadata struct {
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
	Version   int       `json:"version" yaml:"version"`
	CreatedBy string    `json:"createdBy,omitempty" yaml:"createdBy,omitempty"`
}

// TechStack records the languages/frameworks/tools a Project targets.
type TechStack struct {
	Languages  []string `json:"languages,omitempty" yaml:"languages,omitempty"`
	Frameworks []string `json:"frameworks,omitempty" yaml:"frameworks,omitempty"`
	Tools      []string `json:"tools,omitempty" yaml:"tools,omitempty"`
}

// Project is the top-level grouping entity (spec §3).
type Project struct {
	FormatVersion string    `json:"formatVersion" yaml:"formatVersion"`
	ID            string    `json:"projectId" yaml:"projectId"`
	Name          string    `json:"name" yaml:"name"`
	Description   string    `json:"description" yaml:"description"`
	RootPath      string    `json:"rootPath" yaml:"rootPath"`
	Status        Status    `json:"status" yaml:"status"`
	Priority      Priority  `json:"priority" yaml:"priority"`
	TechStack     TechStack `json:"techStack" yaml:"techStack"`
	EpicIDs       []string  `json:"epicIds" yaml:"epicIds"`
	Metadata      Metadata  `json:"metadata" yaml:"metadata"`
}

// Epic groups tasks by functional area within exactly one Project (spec §3).
type Epic struct {
	FormatVersion string   `json:"formatVersion" yaml:"formatVersion"`
	ID            string   `json:"epicId" yaml:"epicId"`
	ProjectID     string   `json:"projectId" yaml:"projectId"`
	Title         string   `json:"title" yaml:"title"`
	Description   string   `json:"description" yaml:"description"`
	Status        Status   `json:"status" yaml:"status"`
	Priority      Priority `json:"priority" yaml:"priority"`
	EstimatedHours float64 `json:"estimatedHours" yaml:"estimatedHours"`
	TaskIDs       []string `json:"taskIds" yaml:"taskIds"`
	Dependencies  []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Dependents    []string `json:"dependents,omitempty" yaml:"dependents,omitempty"`
	Metadata      Metadata `json:"metadata" yaml:"metadata"`
}

// AcceptanceCriterion is a single pass/fail statement a task must satisfy.
type AcceptanceCriterion struct {
	Description string `json:"description" yaml:"description"`
}

// AtomicTask is the indivisible unit of executable work (spec §3).
//
// Estimated atomic range is 0.08-0.17 hours (5-10 minutes); see
// pkg/atomic for the heuristic that enforces this.
type AtomicTask struct {
	FormatVersion        string                `json:"formatVersion"`
	ID                   string                `json:"taskId"`
	Title                string                `json:"title"`
	Description          string                `json:"description"`
	Status               Status                `json:"status"`
	Priority             Priority              `json:"priority"`
	Type                 TaskType              `json:"type"`
	FunctionalArea       string                `json:"functionalArea"`
	EstimatedHours       float64               `json:"estimatedHours"`
	AcceptanceCriteria   []AcceptanceCriterion `json:"acceptanceCriteria"`
	Dependencies         []string              `json:"dependencies"`
	Dependents           []string              `json:"dependents"`
	FilePaths            []string              `json:"filePaths,omitempty"`
	TestingRequirements  []string              `json:"testingRequirements,omitempty"`
	QualityCriteria      []string              `json:"qualityCriteria,omitempty"`
	AssignedAgent        string                `json:"assignedAgent,omitempty"`
	EpicID               string                `json:"epicId"`
	ProjectID            string                `json:"projectId"`
	Tags                 []string              `json:"tags,omitempty"`
	Metadata             Metadata              `json:"metadata"`
}

// Dependency is a directed edge in the task DAG: FromTaskID depends on
// ToTaskID, meaning ToTaskID must complete first (spec §3).
type Dependency struct {
	FormatVersion string         `json:"formatVersion"`
	ID            string         `json:"dependencyId"`
	FromTaskID    string         `json:"fromTaskId"`
	ToTaskID      string         `json:"toTaskId"`
	Type          DependencyType `json:"type"`
	Description   string         `json:"description,omitempty"`
	Critical      bool           `json:"critical"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// GraphNode is a per-task view inside a derived DependencyGraph (spec §3).
type GraphNode struct {
	TaskID         string   `json:"taskId"`
	Title          string   `json:"title"`
	Status         Status   `json:"status"`
	Priority       Priority `json:"priority"`
	EstimatedHours float64  `json:"estimatedHours"`
	Dependencies   []string `json:"dependencies"`
	Dependents     []string `json:"dependents"`
	Depth          int      `json:"depth"`
	CriticalPath   bool     `json:"criticalPath"`
}

// GraphStatistics summarizes a DependencyGraph (spec §3).
type GraphStatistics struct {
	TotalTasks         int `json:"totalTasks"`
	TotalDependencies  int `json:"totalDependencies"`
	MaxDepth           int `json:"maxDepth"`
	CyclicDependencies int `json:"cyclicDependencies"`
	OrphanedTasks      int `json:"orphanedTasks"`
}

// GraphMetadata carries generation provenance for a DependencyGraph.
type GraphMetadata struct {
	GeneratedAt      time.Time `json:"generatedAt"`
	IsValid          bool      `json:"isValid"`
	ValidationErrors []string  `json:"validationErrors,omitempty"`
}

// DependencyGraph is the per-project derived view over the task DAG (spec §3).
//
// Invariant: if Metadata.IsValid then len(ExecutionOrder) == len(Nodes) and
// the graph contains no cycles.
type DependencyGraph struct {
	ProjectID      string               `json:"projectId"`
	Nodes          map[string]GraphNode `json:"nodes"`
	Edges          []Dependency         `json:"edges"`
	ExecutionOrder []string             `json:"executionOrder"`
	CriticalPath   []string             `json:"criticalPath"`
	Statistics     GraphStatistics      `json:"statistics"`
	Metadata       GraphMetadata        `json:"metadata"`
}

// AgentPerformance tracks an agent's historical throughput (spec §3).
type AgentPerformance struct {
	TasksCompleted      int     `json:"tasksCompleted"`
	AverageCompletionTime float64 `json:"averageCompletionTime"` // hours
	SuccessRate         float64 `json:"successRate"`             // [0,1]
}

// AgentMetadata carries agent-supplied descriptive information.
type AgentMetadata struct {
	Version             string   `json:"version,omitempty"`
	SupportedProtocols   []string `json:"supportedProtocols,omitempty"`
	Preferences          map[string]string `json:"preferences,omitempty"`
}

// Agent is the authoritative registry entry for a remote executor (spec §3).
//
// Invariant: Status == AgentBusy iff len(CurrentTasks) == MaxConcurrentTasks;
// Status == AgentAvailable implies len(CurrentTasks) < MaxConcurrentTasks.
type Agent struct {
	ID                 string           `json:"agentId"`
	Capabilities       []Capability     `json:"capabilities"`
	Tags               []string         `json:"tags,omitempty"`
	Status             AgentStatus      `json:"status"`
	TransportType      TransportType    `json:"transportType"`
	SessionID          string           `json:"sessionId"`
	MaxConcurrentTasks int              `json:"maxConcurrentTasks"`
	CurrentTasks       []string         `json:"currentTasks"`
	RegisteredAt       time.Time        `json:"registeredAt"`
	LastSeen           time.Time        `json:"lastSeen"`
	LastHeartbeat      time.Time        `json:"lastHeartbeat"`
	Performance        AgentPerformance `json:"performance"`
	Metadata           AgentMetadata    `json:"metadata"`

	// HTTPEndpoint and HTTPAuthToken back the http transport (spec §6):
	// dispatch POSTs to HTTPEndpoint carrying HTTPAuthToken as a bearer
	// credential; agents with no push channel are instead polled at
	// config.TransportConfig.PollingInterval.
	HTTPEndpoint  string `json:"httpEndpoint,omitempty"`
	HTTPAuthToken string `json:"httpAuthToken,omitempty"`
}

// HasCapability reports whether the agent declares cap among its closed
// capability set.
func (a *Agent) HasCapability(cap Capability) bool {
	for _, c := range a.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// HasCapabilities reports whether the agent's capability set is a superset
// of required (used by AgentOrchestrator matching, spec §4.11 step 1).
func (a *Agent) HasCapabilities(required []Capability) bool {
	for _, req := range required {
		if !a.HasCapability(req) {
			return false
		}
	}
	return true
}

// Load returns the agent's current utilization in [0,1].
func (a *Agent) Load() float64 {
	if a.MaxConcurrentTasks <= 0 {
		return 1
	}
	return float64(len(a.CurrentTasks)) / float64(a.MaxConcurrentTasks)
}

// RichTaskResult is one leaf outcome recorded by a DecompositionSession.
type RichTaskResult struct {
	TaskID   string `json:"taskId"`
	Success  bool   `json:"success"`
	Warnings []string `json:"warnings,omitempty"`
}

// DecompositionSession is the transient record of one RDD invocation (spec §3).
type DecompositionSession struct {
	ID              string           `json:"id"`
	ProjectID       string           `json:"projectId"`
	RootTask        AtomicTask       `json:"rootTask"`
	Status          SessionStatus    `json:"status"`
	Progress        int              `json:"progress"` // 0-100
	PersistedTasks  []string         `json:"persistedTasks"`
	RichResults     []RichTaskResult `json:"richResults"`
	StartTime       time.Time        `json:"startTime"`
	EndTime         time.Time        `json:"endTime"`
}
