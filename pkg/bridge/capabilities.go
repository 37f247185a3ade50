package bridge

import "github.com/codeready-toolchain/taskcore/pkg/domain"

// capabilityAliases is the registry-string -> orchestrator-capability-enum
// mapping table spec §4.12 names explicitly (spec §9 redesign note: "Dynamic
// capability tagging -> closed enum + free-form tags"). Entries beyond the
// spec's literal table are additional spellings an external agent directory
// plausibly uses for the same capability; anything still unrecognized falls
// back to CapabilityGeneral rather than being dropped.
var capabilityAliases = map[string]domain.Capability{
	"code_generation": domain.CapabilityGeneral,
	"general":         domain.CapabilityGeneral,
	"frontend":        domain.CapabilityFrontend,
	"ui":              domain.CapabilityFrontend,
	"backend":         domain.CapabilityBackend,
	"server":          domain.CapabilityBackend,
	"database":        domain.CapabilityDatabase,
	"db":              domain.CapabilityDatabase,
	"testing":         domain.CapabilityTesting,
	"qa":              domain.CapabilityTesting,
	"devops":          domain.CapabilityDevops,
	"deployment":      domain.CapabilityDevops,
	"infra":           domain.CapabilityDevops,
	"documentation":   domain.CapabilityDocumentation,
	"docs":            domain.CapabilityDocumentation,
	"refactoring":     domain.CapabilityRefactoring,
	"refactor":        domain.CapabilityRefactoring,
	"debugging":       domain.CapabilityDebugging,
	"debug":           domain.CapabilityDebugging,
}

// NormalizeCapabilities maps a list of free-form capability strings onto
// the closed Capability enum, deduplicating and mapping anything
// unrecognized to CapabilityGeneral (spec §4.12: "unknown -> general").
// Called by RegistrationRequest.ToAgent before a unified Agent record ever
// reaches RegisterAgent.
func NormalizeCapabilities(raw []string) []domain.Capability {
	seen := make(map[domain.Capability]bool, len(raw))
	out := make([]domain.Capability, 0, len(raw))
	for _, r := range raw {
		cap, ok := capabilityAliases[r]
		if !ok {
			cap = domain.CapabilityGeneral
		}
		if seen[cap] {
			continue
		}
		seen[cap] = true
		out = append(out, cap)
	}
	return out
}

// RegistrationRequest is the wire shape for the agent-registration HTTP
// endpoint: identical to domain.Agent except Capabilities arrives as the
// free-form strings an external agent directory advertises, which
// ToAgent normalizes through the table above before RegisterAgent ever
// sees the record (spec §4.12).
type RegistrationRequest struct {
	domain.Agent
	Capabilities []string `json:"capabilities"`
}

// ToAgent returns the domain.Agent backing r with Capabilities normalized
// onto the closed enum.
func (r RegistrationRequest) ToAgent() *domain.Agent {
	a := r.Agent
	a.Capabilities = NormalizeCapabilities(r.Capabilities)
	return &a
}
