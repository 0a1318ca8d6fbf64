// Package collect produces the screenshot artifacts each cycle analyzes.
package collect

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrCollectionFailed means the collector ran but did not succeed.
	ErrCollectionFailed = errors.New("screenshot collection failed")
	// ErrNoArtifacts means collection succeeded but produced no screenshots.
	ErrNoArtifacts = errors.New("no screenshots captured")
)

// Artifact is one captured screenshot.
type Artifact struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// NewArtifact derives the artifact name from the file base name.
func NewArtifact(path string) Artifact {
	base := filepath.Base(path)
	return Artifact{Path: path, Name: strings.TrimSuffix(base, filepath.Ext(base))}
}

// Collector captures the current visual state of the application.
type Collector interface {
	Collect(ctx context.Context) ([]Artifact, error)
	Name() string
}

// ClearArtifacts removes *.png files from dir, creating dir if needed.
func ClearArtifacts(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create screenshots dir: %w", err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", m, err)
		}
	}
	return nil
}

// ListArtifacts returns the *.png files in dir sorted by name.
func ListArtifacts(dir string) ([]Artifact, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	out := make([]Artifact, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, NewArtifact(m))
	}
	return out, nil
}
