package safety

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	wildcard "github.com/IGLOU-EU/go-wildcard/v2"
)

// ErrPathNotAllowed is returned when a path falls outside every allowed root.
var ErrPathNotAllowed = errors.New("path is outside the allowed directories")

// allowedFilePatterns is the extension allowlist for file reads. Only
// text-like formats pass; real .env files are deliberately absent while
// .env.example is matched explicitly because it carries no live secrets.
var allowedFilePatterns = []string{
	"*.log", "*.txt", "*.json", "*.yaml", "*.yml", "*.toml", "*.ini",
	"*.conf", "*.cfg", "*.md", "*.xml", "*.csv", "*.service", "*.properties",
	"*.env.example",
}

// PathAllowed reports whether path is one of the allowed directories or a
// proper descendant of one. The check is lexical: the path is made absolute
// and cleaned but symlinks are not resolved (see ValidateRealPath for that).
// Boundaries are component-aware, so /home/user never matches /home/username.
// An empty allowlist allows nothing.
func PathAllowed(path string, allowedDirs []string) bool {
	if strings.TrimSpace(path) == "" || len(allowedDirs) == 0 {
		return false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	abs = filepath.Clean(abs)

	for _, dir := range allowedDirs {
		root := filepath.Clean(dir)
		if root == "" || !filepath.IsAbs(root) {
			continue
		}
		if abs == root {
			return true
		}
		if strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// ValidateRealPath resolves symlinks to the path's real target and re-checks
// containment against the allowlist. This catches a symlink planted inside an
// allowed directory that points outside it. The resolved path is returned and
// must be used for every subsequent operation on the file; the original is
// attacker-influenced once symlinks enter the picture.
func ValidateRealPath(path string, allowedDirs []string) (string, error) {
	if !PathAllowed(path, allowedDirs) {
		return "", ErrPathNotAllowed
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if !PathAllowed(resolved, allowedDirs) {
		return "", ErrPathNotAllowed
	}
	return resolved, nil
}

// ExtensionAllowed reports whether the file name matches the text-format
// allowlist. A bare ".env" never passes even though ".env.example" does.
func ExtensionAllowed(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	if name == ".env" || strings.HasSuffix(name, "/.env") {
		return false
	}
	for _, pattern := range allowedFilePatterns {
		if wildcard.Match(pattern, name) {
			return true
		}
	}
	return false
}

// LooksBinary reports whether the buffer contains a null byte. Extension is
// attacker-controllable metadata; the content check is the ground truth.
func LooksBinary(buf []byte) bool {
	return bytes.IndexByte(buf, 0) >= 0
}
