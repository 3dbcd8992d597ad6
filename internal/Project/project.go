package project

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// A project directory is the long-lived ground truth for one target scope.
// Canonical files live at its root, one per artifact type, and only ever
// grow; per-run raw output and deltas live under history/<date>/.

// MergeResult is returned by MergeIntoCanonical for logging and notification
// decisions.
type MergeResult struct {
	CanonicalPath string
	DeltaPath     string
	NewCount      int
}

// Ensure resolves and creates the project directory and its history root.
func Ensure(projectDir string) (string, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return "", fmt.Errorf("resolve project dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, "history"), 0o755); err != nil {
		return "", fmt.Errorf("create project dir: %w", err)
	}
	return abs, nil
}

// CanonicalPath returns the path of a canonical file inside the project.
func CanonicalPath(projectDir, fileName string) string {
	return filepath.Join(projectDir, fileName)
}

// ReadLines returns the lines of path without trailing newlines. A missing
// file reads as empty, matching first-run behavior everywhere.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// WriteLines writes trimmed non-empty lines to path, replacing any previous
// content. An empty slice still produces the file, so every delta is an
// auditable record even on a quiet day.
func WriteLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeTrimmed(f, lines)
}

// AppendLines appends trimmed non-empty lines to path, creating it if needed.
func AppendLines(path string, lines []string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeTrimmed(f, lines)
}

func writeTrimmed(f *os.File, lines []string) error {
	w := bufio.NewWriter(f)
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		if _, err := w.WriteString(s + "\n"); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

// ComputeNewLines returns the candidates not already present in existing,
// trimmed, deduplicated, in first-seen order.
func ComputeNewLines(existing, candidates []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, line := range existing {
		s := strings.TrimSpace(line)
		if s != "" {
			seen[s] = struct{}{}
		}
	}

	newLines := []string{}
	for _, line := range candidates {
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		newLines = append(newLines, s)
	}
	return newLines
}

// MergeIntoCanonical folds a candidate batch into the canonical file for one
// artifact type. The delta (candidates not seen in any prior run) is written
// to snapshotDir/deltaFileName unconditionally; the canonical file is
// appended to only when the delta is non-empty. Merging the same batch twice
// yields NewCount == 0 the second time and leaves the canonical file
// byte-identical.
func MergeIntoCanonical(projectDir, canonicalFile string, candidates []string, snapshotDir, deltaFileName string) (MergeResult, error) {
	canonicalPath := CanonicalPath(projectDir, canonicalFile)

	existing, err := ReadLines(canonicalPath)
	if err != nil {
		return MergeResult{}, fmt.Errorf("read canonical %s: %w", canonicalFile, err)
	}

	newLines := ComputeNewLines(existing, candidates)

	deltaPath := filepath.Join(snapshotDir, deltaFileName)
	if err := WriteLines(deltaPath, newLines); err != nil {
		return MergeResult{}, fmt.Errorf("write delta %s: %w", deltaFileName, err)
	}

	if len(newLines) > 0 {
		if err := AppendLines(canonicalPath, newLines); err != nil {
			return MergeResult{}, fmt.Errorf("append canonical %s: %w", canonicalFile, err)
		}
	}

	return MergeResult{
		CanonicalPath: canonicalPath,
		DeltaPath:     deltaPath,
		NewCount:      len(newLines),
	}, nil
}
