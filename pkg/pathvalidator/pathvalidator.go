// Package pathvalidator constrains every filesystem path the core touches
// to a configured read-root or write-root, rejecting traversal and escape
// attempts (spec §4.1, C1). Every storage operation must call Validate
// before touching the filesystem.
package pathvalidator

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/codeready-toolchain/taskcore/pkg/corerr"
)

// Mode is the access mode a path is being validated for.
type Mode string

const (
	ModeRead  Mode = "read"
	ModeWrite Mode = "write"
)

// ViolationType is the closed set of reasons Validate can reject a path.
type ViolationType string

const (
	ViolationEscape       ViolationType = "escape"
	ViolationReservedRoot ViolationType = "reserved-root"
	ViolationTraversal    ViolationType = "traversal"
)

// Result is the outcome of one Validate call.
type Result struct {
	Valid         bool
	ResolvedPath  string
	ViolationType ViolationType
	Err           error
}

// Validator holds the two configured roots. Read and write may be the same
// directory; they are validated independently per call.
type Validator struct {
	readRoot  string
	writeRoot string
}

// New builds a Validator from the configured roots. Both roots are cleaned
// and made absolute up front so every subsequent comparison is apples to
// apples.
func New(readRoot, writeRoot string) (*Validator, error) {
	absRead, err := filepath.Abs(readRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve read root: %w", err)
	}
	absWrite, err := filepath.Abs(writeRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve write root: %w", err)
	}
	return &Validator{
		readRoot:  filepath.Clean(absRead),
		writeRoot: filepath.Clean(absWrite),
	}, nil
}

// Validate rejects path if its raw form contains a ".." segment, then
// resolves it to an absolute form and checks it lies beneath the root
// configured for mode and does not resolve to the filesystem root "/".
func (v *Validator) Validate(path string, mode Mode) Result {
	root := v.readRoot
	if mode == ModeWrite {
		root = v.writeRoot
	}

	if strings.Contains(filepath.ToSlash(path), "../") || filepath.Base(path) == ".." {
		return v.reject(ViolationTraversal, fmt.Errorf("path contains traversal segment: %q", path))
	}

	var joined string
	if filepath.IsAbs(path) {
		joined = filepath.Clean(path)
	} else {
		joined = filepath.Clean(filepath.Join(root, path))
	}

	if joined == string(filepath.Separator) {
		return v.reject(ViolationReservedRoot, fmt.Errorf("path resolves to filesystem root"))
	}

	if joined != root && !strings.HasPrefix(joined, root+string(filepath.Separator)) {
		return v.reject(ViolationEscape, fmt.Errorf("path %q escapes configured root %q", joined, root))
	}

	return Result{Valid: true, ResolvedPath: joined}
}

func (v *Validator) reject(vt ViolationType, err error) Result {
	return Result{
		Valid:         false,
		ViolationType: vt,
		Err:           corerr.PathViolation(err.Error()),
	}
}

// MustValidate is a convenience for call sites that want a *corerr.Error
// directly instead of a Result (storage operations call this before
// touching the filesystem, per spec §4.1).
func (v *Validator) MustValidate(path string, mode Mode) (string, error) {
	res := v.Validate(path, mode)
	if !res.Valid {
		return "", res.Err
	}
	return res.ResolvedPath, nil
}
