// internal/mapping/reorganize.go
package mapping

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// MovePlan groups flat transcript files by their classified target
// folder. Filenames within a folder keep the sorted enumeration order.
type MovePlan struct {
	SourceDir string
	Folders   map[string][]string
}

// Total returns the number of files covered by the plan.
func (p *MovePlan) Total() int {
	n := 0
	for _, files := range p.Folders {
		n += len(files)
	}
	return n
}

// FolderNames returns the plan's target folders in sorted order.
func (p *MovePlan) FolderNames() []string {
	names := make([]string, 0, len(p.Folders))
	for name := range p.Folders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PlanReorganization classifies every .txt file directly under
// sourceDir and returns the resulting move plan. A missing source
// directory yields an empty plan.
func (c *Classifier) PlanReorganization(sourceDir string) (*MovePlan, error) {
	plan := &MovePlan{
		SourceDir: sourceDir,
		Folders:   make(map[string][]string),
	}

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		if os.IsNotExist(err) {
			return plan, nil
		}
		return nil, fmt.Errorf("failed to read source dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	for _, name := range files {
		folder := c.Classify(name)
		plan.Folders[folder] = append(plan.Folders[folder], name)
	}

	return plan, nil
}

// MoveResult summarizes an applied plan.
type MoveResult struct {
	Moved   int
	Skipped int
}

// ApplyPlan moves the planned files into folders under targetRoot. A
// file already present at its destination is treated as a duplicate:
// the source copy is deleted and the move is counted as skipped. An
// emptied source directory is removed afterwards.
func ApplyPlan(plan *MovePlan, targetRoot string, logger *zap.Logger) (*MoveResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	result := &MoveResult{}
	for _, folder := range plan.FolderNames() {
		targetDir := filepath.Join(targetRoot, folder)
		if err := os.MkdirAll(targetDir, 0o755); err != nil {
			return result, fmt.Errorf("failed to create %s: %w", targetDir, err)
		}
		for _, name := range plan.Folders[folder] {
			src := filepath.Join(plan.SourceDir, name)
			dest := filepath.Join(targetDir, name)
			if _, err := os.Stat(dest); err == nil {
				logger.Info("destination exists, removing duplicate",
					zap.String("folder", folder),
					zap.String("file", name),
				)
				if err := os.Remove(src); err != nil {
					return result, fmt.Errorf("failed to remove duplicate %s: %w", src, err)
				}
				result.Skipped++
				continue
			}
			if err := os.Rename(src, dest); err != nil {
				return result, fmt.Errorf("failed to move %s: %w", src, err)
			}
			result.Moved++
		}
	}

	// Best effort: only succeeds when the source is now empty.
	if err := os.Remove(plan.SourceDir); err == nil {
		logger.Info("removed empty source directory", zap.String("dir", plan.SourceDir))
	}

	return result, nil
}
