// Package epic implements EpicResolver (spec §4.6, C6): mapping a task's
// title/description/tags to a functional-area epic, creating one only when
// no matching epic already exists, and rejecting scaffolding-pattern epic
// IDs on every emission path (spec §8 invariant 3).
package epic

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/codeready-toolchain/taskcore/pkg/corerr"
	"github.com/codeready-toolchain/taskcore/pkg/domain"
	"github.com/codeready-toolchain/taskcore/pkg/ids"
)

// Store is the subset of StorageEngine EpicResolver needs.
type Store interface {
	EpicExists(id string) bool
	CreateEpic(e *domain.Epic) error
	ListEpicsByProject(projectID string) ([]*domain.Epic, error)
}

// Resolver is the concrete EpicResolver.
type Resolver struct {
	store Store
	gen   *ids.Generator
}

// New constructs a Resolver bound to store.
func New(store Store, gen *ids.Generator) *Resolver {
	return &Resolver{store: store, gen: gen}
}

// TaskContext is the subset of an AtomicTask EpicResolver inspects.
type TaskContext struct {
	Title       string
	Description string
	Tags        []string
	// FunctionalArea, when already known, short-circuits token extraction.
	FunctionalArea string
}

// Source records which resolution strategy (spec §4.6 steps 1-4) produced
// the result, for logging and for the "source" field in Result.
type Source string

const (
	SourceExisting Source = "existing-match"
	SourceArea     Source = "area-synthesized"
	SourceFallback Source = "fallback-main"
)

// Result is resolveEpicContext's return value (spec §4.6).
type Result struct {
	EpicID   string
	EpicName string
	Source   Source
	Created  bool
}

// functionalAreaTokens is the closed-ish vocabulary EpicResolver scans
// title/description/tags for (spec §4.6 step 1). Order matters only for
// determinism of iteration below a map would not give; a slice keeps token
// matching order stable.
var functionalAreaTokens = []string{
	"auth", "api", "ui", "data", "integration", "admin", "performance",
	"content", "user", "security", "testing", "deployment", "documentation",
}

// areaAliases maps a loosely-matched token to the canonical functional area
// name used in epic titles/IDs.
var areaAliases = map[string]string{
	"auth":          "auth",
	"api":           "api",
	"ui":            "ui",
	"data":          "data",
	"integration":   "integration",
	"admin":         "admin",
	"performance":   "performance",
	"content":       "content-management",
	"user":          "user-management",
	"security":      "auth",
	"testing":       "testing",
	"deployment":    "deployment",
	"documentation": "documentation",
}

// extractArea returns the first functional-area token found in the task's
// title, description, and tags (spec §4.6 step 1). Empty string if none.
func extractArea(tc TaskContext) string {
	if tc.FunctionalArea != "" {
		return tc.FunctionalArea
	}
	haystack := strings.ToLower(tc.Title + " " + tc.Description + " " + strings.Join(tc.Tags, " "))
	for _, tok := range functionalAreaTokens {
		if strings.Contains(haystack, tok) {
			return areaAliases[tok]
		}
	}
	return ""
}

// ResolveInput is resolveEpicContext's argument (spec §4.6).
type ResolveInput struct {
	ProjectID   string
	TaskContext TaskContext
}

// Resolve implements resolveEpicContext (spec §4.6):
//  1. extract a functional-area token,
//  2. look for an existing epic whose title/description overlaps it,
//  3. synthesize "<projectId>-<area>-epic" and create it if none matched,
//  4. fall back to "<projectId>-main-epic" when no area token was found.
//
// Every candidate ID is checked against ids.IsForbiddenEpicID before it is
// ever returned or persisted (spec §4.6 "Forbidden outputs").
func (r *Resolver) Resolve(in ResolveInput) (*Result, error) {
	area := extractArea(in.TaskContext)

	existing, err := r.store.ListEpicsByProject(in.ProjectID)
	if err != nil {
		return nil, err
	}

	if area != "" {
		if match := bestMatch(existing, area); match != nil && !ids.IsForbiddenEpicID(match.ID) {
			return &Result{EpicID: match.ID, EpicName: match.Title, Source: SourceExisting, Created: false}, nil
		}
	}

	var (
		epicID   string
		epicName string
		source   Source
	)
	if area != "" {
		epicID = fmt.Sprintf("%s-%s-epic", in.ProjectID, area)
		epicName = areaTitle(area)
		source = SourceArea
	} else {
		epicID = fmt.Sprintf("%s-main-epic", in.ProjectID)
		epicName = "Main"
		source = SourceFallback
	}

	if ids.IsForbiddenEpicID(epicID) {
		return nil, corerr.ScaffoldingEpicRejected(fmt.Sprintf("synthesized epic id %q matches a forbidden scaffolding pattern", epicID))
	}

	if r.store.EpicExists(epicID) {
		for _, e := range existing {
			if e.ID == epicID {
				return &Result{EpicID: epicID, EpicName: e.Title, Source: source, Created: false}, nil
			}
		}
	}

	now := time.Now()
	e := &domain.Epic{
		ID:          epicID,
		ProjectID:   in.ProjectID,
		Title:       epicName,
		Description: fmt.Sprintf("Auto-resolved epic for functional area %q", area),
		Status:      domain.StatusPending,
		Priority:    domain.PriorityMedium,
		Metadata: domain.Metadata{
			CreatedAt: now,
			UpdatedAt: now,
			Version:   1,
		},
	}
	if err := r.store.CreateEpic(e); err != nil {
		return nil, err
	}

	return &Result{EpicID: epicID, EpicName: epicName, Source: source, Created: true}, nil
}

// bestMatch scans existing for the epic whose title/description shares the
// most token overlap with area, preferring higher overlap (spec §4.6 step 2:
// "case-insensitive token overlap ≥ 1, preferring higher overlap").
func bestMatch(existing []*domain.Epic, area string) *domain.Epic {
	type scored struct {
		epic  *domain.Epic
		score int
	}
	var candidates []scored
	areaWords := strings.Fields(strings.ReplaceAll(area, "-", " "))
	for _, e := range existing {
		haystack := strings.ToLower(e.Title + " " + e.Description)
		score := 0
		for _, w := range areaWords {
			if strings.Contains(haystack, w) {
				score++
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{epic: e, score: score})
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	return candidates[0].epic
}

func areaTitle(area string) string {
	words := strings.Split(area, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
