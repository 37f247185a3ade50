package oracle

import "encoding/json"

// SalvageThreshold is the input-length threshold (bytes) above which
// Salvage scans for balanced top-level `{...}` substrings instead of
// parsing the whole input directly (spec §6).
const SalvageThreshold = 1024

// Predicate reports whether a parsed candidate satisfies the caller's
// schema (spec §6 step (c): "keep those passing a schema predicate").
type Predicate func(candidate map[string]any) bool

// PrimaryArrayKey names the schema's primary array field (spec §6 step
// (d): "prefer the one with the largest non-empty value under the
// schema's primary array, e.g. fileScores").
type PrimaryArrayKey string

// Salvage implements the JSON-salvage algorithm (spec §6, §8 boundary
// behaviors):
//
//  1. If len(input) <= SalvageThreshold, return input unchanged without
//     scanning (spec: "JSON salvage given input ≤ threshold returns the
//     input unchanged").
//  2. Otherwise scan for balanced top-level `{...}` substrings.
//  3. Parse each; keep those that unmarshal cleanly AND satisfy pred.
//  4. Among valid candidates, prefer the one whose primaryArrayKey array
//     is longest (ties broken by first occurrence).
//  5. If no candidate is valid, return the original input unchanged
//     (spec: "malformed input with no valid candidate returns the
//     original input unchanged").
func Salvage(input []byte, pred Predicate, primaryArrayKey PrimaryArrayKey) []byte {
	if len(input) <= SalvageThreshold {
		return input
	}

	candidates := balancedObjects(input)
	if len(candidates) == 0 {
		return input
	}

	var (
		best      []byte
		bestScore = -1
	)
	for _, c := range candidates {
		var parsed map[string]any
		if err := json.Unmarshal(c, &parsed); err != nil {
			continue
		}
		if pred != nil && !pred(parsed) {
			continue
		}
		score := 0
		if primaryArrayKey != "" {
			if arr, ok := parsed[string(primaryArrayKey)].([]any); ok {
				score = len(arr)
			}
		}
		if score > bestScore {
			bestScore = score
			best = c
		}
	}

	if best == nil {
		return input
	}
	return best
}

// balancedObjects scans s for every top-level balanced `{...}` substring,
// tracking brace depth and skipping over quoted strings (so braces inside
// string literals don't perturb the count).
func balancedObjects(s []byte) [][]byte {
	var out [][]byte
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, b := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					out = append(out, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return out
}
