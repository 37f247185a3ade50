// Package ids generates deterministic, collision-free identifiers for each
// entity kind (spec §4.4, C4). Generation never sleeps; uniqueness is
// enforced by checking an Existence predicate supplied by the caller
// (normally storage.Engine.Exists) before an ID is emitted.
package ids

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Existence reports whether id is already in use for kind.
type Existence func(id string) bool

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s and collapses runs of non-alphanumeric characters to a
// single hyphen, trimming leading/trailing hyphens.
func Slug(s string) string {
	lower := strings.ToLower(s)
	slug := slugRe.ReplaceAllString(lower, "-")
	return strings.Trim(slug, "-")
}

// Generator emits entity IDs in the formats spec §4.4 defines. It holds no
// state of its own; uniqueness checks are delegated to an injected
// Existence predicate so the generator never needs direct storage access.
type Generator struct{}

// New constructs a Generator.
func New() *Generator { return &Generator{} }

// Project generates "PID-<NAME-SLUG>-<NNN>", a 3-digit ordinal scoped to
// the slug.
func (g *Generator) Project(name string, exists Existence) (string, error) {
	slug := strings.ToUpper(Slug(name))
	if slug == "" {
		slug = "PROJECT"
	}
	for n := 1; n <= 999; n++ {
		id := fmt.Sprintf("PID-%s-%03d", slug, n)
		if !exists(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("exhausted 999 project ordinals for slug %q", slug)
}

// scaffoldingPattern matches the forbidden scaffolding epic IDs (spec §4.6,
// §8 invariant 3): E001, E002, E003, E1, E2, E3 (case sensitive, anchored).
var scaffoldingPattern = regexp.MustCompile(`^E0{0,2}[123]$`)

var forbiddenEpicLiterals = map[string]bool{
	"default-epic": true,
	"temp-epic":    true,
	"scaffolding":  true,
	"setup":        true,
	"basic":        true,
	"generic":      true,
}

// IsForbiddenEpicID reports whether id matches one of the forbidden
// scaffolding patterns or literals (spec §4.6, §8 invariant 3).
func IsForbiddenEpicID(id string) bool {
	if scaffoldingPattern.MatchString(id) {
		return true
	}
	return forbiddenEpicLiterals[strings.ToLower(id)]
}

// Epic generates "<projectId>-E<NNN>" and guarantees the result never
// matches the forbidden scaffolding pattern, per spec §4.4/§4.6. Callers
// that want an area-derived ID (e.g. "<projectId>-auth-epic") should build
// it directly and still run it through IsForbiddenEpicID before emission.
func (g *Generator) Epic(projectID string, exists Existence) (string, error) {
	for n := 1; n <= 999; n++ {
		id := fmt.Sprintf("%s-E%03d", projectID, n)
		if IsForbiddenEpicID(id) || IsForbiddenEpicID(fmt.Sprintf("E%03d", n)) {
			continue
		}
		if !exists(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("exhausted 999 epic ordinals for project %q", projectID)
}

var monotonicTaskRe = regexp.MustCompile(`^T(\d+)$`)

// Task generates "T<monotonic>" when projectID/epicID are empty, or
// "<projectId>-<epicId>-T<NNN>" otherwise (spec §4.4).
func (g *Generator) Task(projectID, epicID string, exists Existence) (string, error) {
	if projectID == "" || epicID == "" {
		return g.monotonicTask(exists)
	}
	for n := 1; n <= 99999; n++ {
		id := fmt.Sprintf("%s-%s-T%03d", projectID, epicID, n)
		if !exists(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("exhausted task ordinals for %s/%s", projectID, epicID)
}

func (g *Generator) monotonicTask(exists Existence) (string, error) {
	for n := 1; n <= 1_000_000; n++ {
		id := fmt.Sprintf("T%d", n)
		if !exists(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("exhausted monotonic task counter")
}

// ParseMonotonicTask extracts the numeric ordinal from a "T<n>" ID, used by
// callers that want to seed the monotonic counter from existing IDs rather
// than scanning from 1 every time.
func ParseMonotonicTask(id string) (int, bool) {
	m := monotonicTaskRe.FindStringSubmatch(id)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Dependency generates "DEP-<fromTaskId>-<toTaskId>-<NNN>" (spec §4.4).
func (g *Generator) Dependency(fromTaskID, toTaskID string, exists Existence) (string, error) {
	for n := 1; n <= 999; n++ {
		id := fmt.Sprintf("DEP-%s-%s-%03d", fromTaskID, toTaskID, n)
		if !exists(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("exhausted dependency ordinals for %s->%s", fromTaskID, toTaskID)
}
