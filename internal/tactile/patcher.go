package tactile

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"visionfix/internal/diff"
	"visionfix/internal/logging"
)

var (
	// ErrFileNotFound means the target does not exist (or is not a regular
	// file inside the project). No file is created.
	ErrFileNotFound = errors.New("file not found")
	// ErrNoMatch means the old code does not occur verbatim in the file.
	ErrNoMatch = errors.New("old code not found in file")
	// ErrEmptyOldCode rejects an empty search string, which would match
	// everywhere.
	ErrEmptyOldCode = errors.New("old code is empty")
)

// PatchEvent is emitted for every Apply call.
type PatchEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	Path         string    `json:"path"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	OldHash      string    `json:"old_hash,omitempty"`
	NewHash      string    `json:"new_hash,omitempty"`
	LinesAdded   int       `json:"lines_added,omitempty"`
	LinesRemoved int       `json:"lines_removed,omitempty"`
}

// PatchResult describes a successful substitution.
type PatchResult struct {
	Path         string `json:"path"`     // resolved path on disk
	RelPath      string `json:"rel_path"` // path relative to the project dir
	OldHash      string `json:"old_hash"`
	NewHash      string `json:"new_hash"`
	Diff         string `json:"diff"` // unified diff of the change
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
}

// Patcher performs single-occurrence exact-text substitutions inside a
// project directory.
type Patcher struct {
	mu sync.RWMutex

	projectDir string
	sourceRoot string
	diff       *diff.Engine

	auditCallback func(PatchEvent)
}

// NewPatcher creates a Patcher rooted at projectDir. sourceRoot is the
// conventional source directory (usually "src") used for bare paths.
func NewPatcher(projectDir, sourceRoot string) *Patcher {
	if abs, err := filepath.Abs(projectDir); err == nil {
		projectDir = abs
	}
	if sourceRoot == "" {
		sourceRoot = "src"
	}
	return &Patcher{
		projectDir: filepath.Clean(projectDir),
		sourceRoot: filepath.ToSlash(filepath.Clean(sourceRoot)),
		diff:       diff.NewEngine(diff.DefaultContext),
	}
}

// SetAuditCallback sets the callback for patch events.
func (p *Patcher) SetAuditCallback(callback func(PatchEvent)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.auditCallback = callback
}

func (p *Patcher) emitAudit(event PatchEvent) {
	p.mu.RLock()
	callback := p.auditCallback
	p.mu.RUnlock()
	if callback != nil {
		callback(event)
	}
}

// ProjectDir returns the absolute project directory.
func (p *Patcher) ProjectDir() string { return p.projectDir }

// ResolvePath maps a model-supplied path onto the file system:
//
//	/abs/path            used as-is
//	src/app/x.ts         <project>/src/app/x.ts
//	<project>/src/x.ts   <project parent>/<project>/src/x.ts
//	app/x.ts             <project>/src/app/x.ts
func (p *Patcher) ResolvePath(path string) string {
	path = strings.TrimSpace(path)
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	slashed := strings.TrimPrefix(filepath.ToSlash(path), "./")
	projectName := filepath.Base(p.projectDir)

	switch {
	case strings.HasPrefix(slashed, p.sourceRoot+"/"):
		return filepath.Join(p.projectDir, filepath.FromSlash(slashed))
	case strings.HasPrefix(slashed, projectName+"/"):
		return filepath.Join(filepath.Dir(p.projectDir), filepath.FromSlash(slashed))
	default:
		return filepath.Join(p.projectDir, filepath.FromSlash(p.sourceRoot), filepath.FromSlash(slashed))
	}
}

// locate resolves path and checks it names an existing regular file inside
// the project.
func (p *Patcher) locate(path string) (string, os.FileInfo, error) {
	resolved := p.ResolvePath(path)
	rel, err := filepath.Rel(p.projectDir, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return resolved, nil, fmt.Errorf("%w: %s is outside %s", ErrFileNotFound, path, p.projectDir)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return resolved, nil, fmt.Errorf("%w: %s", ErrFileNotFound, resolved)
		}
		return resolved, nil, fmt.Errorf("stat %s: %w", resolved, err)
	}
	if !info.Mode().IsRegular() {
		return resolved, nil, fmt.Errorf("%w: %s is not a regular file", ErrFileNotFound, resolved)
	}
	return resolved, info, nil
}

// ReadFile returns the content of a project file addressed the same way as
// Apply's path argument.
func (p *Patcher) ReadFile(path string) (string, error) {
	resolved, _, err := p.locate(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", resolved, err)
	}
	return string(data), nil
}

// Apply replaces the first occurrence of oldCode with newCode in the file at
// path. The file is left untouched on any error.
func (p *Patcher) Apply(path, oldCode, newCode string) (*PatchResult, error) {
	timer := logging.StartTimer(logging.CategoryPatch, "Patch apply")
	defer timer.Stop()

	result, err := p.apply(path, oldCode, newCode)

	event := PatchEvent{Timestamp: time.Now(), Path: path, Success: err == nil}
	if err != nil {
		event.Error = err.Error()
		logging.PatchWarn("Patch not applied to %s: %v", path, err)
	} else {
		event.Path = result.RelPath
		event.OldHash = result.OldHash
		event.NewHash = result.NewHash
		event.LinesAdded = result.LinesAdded
		event.LinesRemoved = result.LinesRemoved
		logging.Patch("Patched %s (+%d/-%d)", result.RelPath, result.LinesAdded, result.LinesRemoved)
	}
	p.emitAudit(event)

	return result, err
}

func (p *Patcher) apply(path, oldCode, newCode string) (*PatchResult, error) {
	if oldCode == "" {
		return nil, ErrEmptyOldCode
	}

	resolved, info, err := p.locate(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", resolved, err)
	}
	content := string(data)

	if !strings.Contains(content, oldCode) {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, resolved)
	}
	updated := strings.Replace(content, oldCode, newCode, 1)

	if err := os.WriteFile(resolved, []byte(updated), info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("write %s: %w", resolved, err)
	}

	rel, _ := filepath.Rel(p.projectDir, resolved)
	rel = filepath.ToSlash(rel)
	fd := p.diff.ComputeDiff(rel, rel, content, updated)

	return &PatchResult{
		Path:         resolved,
		RelPath:      rel,
		OldHash:      computeHash(content),
		NewHash:      computeHash(updated),
		Diff:         fd.Unified(),
		LinesAdded:   fd.Added,
		LinesRemoved: fd.Removed,
	}, nil
}

// computeHash computes SHA256 hash of content.
func computeHash(content string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
}
