// Package security guards the paths the tagging run writes to.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory checks that filePath resolves inside safeDir on
// the host filesystem. Symlinks in the existing part of either path are
// resolved first, so a link inside safeDir that points elsewhere is
// rejected. safeDir must exist.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory path: %w", err)
	}

	canonicalPath := absPath
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		canonicalPath = resolved
	} else {
		// Destination does not exist yet: resolve the nearest existing
		// ancestor instead, e.g. out/evil-link/img.tif with evil-link -> /etc.
		for checkPath := absPath; ; {
			parentDir := filepath.Dir(checkPath)
			if parentDir == checkPath {
				break
			}
			if resolved, err := filepath.EvalSymlinks(parentDir); err == nil {
				relToParent, _ := filepath.Rel(parentDir, absPath)
				canonicalPath = filepath.Join(resolved, relToParent)
				break
			}
			checkPath = parentDir
		}
	}

	canonicalSafeDir, err := filepath.EvalSymlinks(absSafeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory symlinks: %w", err)
	}
	return checkRelative(filePath, safeDir, canonicalSafeDir, canonicalPath)
}

// ValidatePathLexically checks containment on cleaned paths only, without
// touching the host filesystem. It is the check used for in-memory trees.
func ValidatePathLexically(filePath, safeDir string) error {
	return checkRelative(filePath, safeDir, filepath.Clean(safeDir), filepath.Clean(filePath))
}

func checkRelative(filePath, safeDir, base, target string) error {
	relPath, err := filepath.Rel(base, target)
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || filepath.IsAbs(relPath) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// ValidatePathWithinAllowedDirs checks if a file path is within any of the allowed directories.
// Returns nil if the path is valid, or an error describing why it was rejected.
func ValidatePathWithinAllowedDirs(filePath string, allowedDirs []string) error {
	if len(allowedDirs) == 0 {
		return fmt.Errorf("no allowed directories specified")
	}
	for _, dir := range allowedDirs {
		if err := ValidatePathWithinDirectory(filePath, dir); err == nil {
			return nil
		}
	}
	return fmt.Errorf("path must be within one of the allowed directories: %v", allowedDirs)
}

// ValidateReportPath checks a chart or plot destination. Reports may go in
// the run's output directory or below the current working directory.
func ValidateReportPath(filePath, outputDir string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	allowed := []string{cwd}
	if outputDir != "" {
		allowed = append([]string{outputDir}, allowed...)
	}
	return ValidatePathWithinAllowedDirs(filePath, allowed)
}
