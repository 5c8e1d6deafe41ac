package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxPathLength = 4096

// FilePathValidator checks config and log paths before they are opened.
type FilePathValidator struct {
	// AllowedBaseDirs restricts file operations to specific base directories;
	// empty allows all.
	AllowedBaseDirs []string
	// AllowHomeExpansion determines if tilde expansion is permitted
	AllowHomeExpansion bool
	// AllowRelativePaths keeps relative paths relative instead of resolving
	// them against the working directory.
	AllowRelativePaths bool
	MaxPathLength      int
}

// NewFilePathValidator confines paths to the roundnews state and config
// directories and the temp dir.
func NewFilePathValidator() *FilePathValidator {
	return &FilePathValidator{
		AllowedBaseDirs:    AppDirs(),
		AllowHomeExpansion: true,
		AllowRelativePaths: false,
		MaxPathLength:      maxPathLength,
	}
}

// NewPermissiveFilePathValidator accepts any well-formed path.
func NewPermissiveFilePathValidator() *FilePathValidator {
	return &FilePathValidator{
		AllowHomeExpansion: true,
		AllowRelativePaths: true,
		MaxPathLength:      maxPathLength,
	}
}

// AppDirs lists the directories roundnews writes to by default.
func AppDirs() []string {
	homeDir, _ := os.UserHomeDir()
	return []string{
		filepath.Join(homeDir, ".roundnews"),
		filepath.Join(homeDir, ".config", "roundnews"),
		os.TempDir(),
	}
}

// ValidateAndSanitize validates and normalizes a file path
func (v *FilePathValidator) ValidateAndSanitize(path string) (string, error) {
	if path == "" {
		return "", errors.New("path cannot be empty")
	}
	if len(path) > v.MaxPathLength {
		return "", fmt.Errorf("path too long (max %d characters)", v.MaxPathLength)
	}

	if err := validateCharacters(path); err != nil {
		return "", err
	}

	normalized, err := v.normalizePath(path)
	if err != nil {
		return "", fmt.Errorf("path normalization failed: %w", err)
	}

	if err := v.validateBaseDirs(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

func validateCharacters(path string) error {
	for _, char := range path {
		switch {
		case char == 0:
			return errors.New("path contains null bytes")
		case char < 32 && char != '\t':
			return errors.New("path contains control characters")
		}
	}

	for _, seq := range []string{"../", "..\\", "//", "\\\\"} {
		if strings.Contains(path, seq) {
			return fmt.Errorf("path contains dangerous sequence: %s", seq)
		}
	}
	if path == ".." || strings.HasSuffix(path, "/..") {
		return errors.New("directory traversal not allowed")
	}
	return nil
}

func (v *FilePathValidator) normalizePath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		if !v.AllowHomeExpansion || !strings.HasPrefix(path, "~/") {
			return "", errors.New("tilde expansion not allowed or invalid tilde usage")
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !v.AllowRelativePaths && !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("cannot make path absolute: %w", err)
		}
		path = abs
	}

	return filepath.Clean(path), nil
}

func (v *FilePathValidator) validateBaseDirs(path string) error {
	if len(v.AllowedBaseDirs) == 0 {
		return nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("cannot resolve absolute path: %w", err)
	}

	for _, baseDir := range v.AllowedBaseDirs {
		absBase, err := filepath.Abs(baseDir)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absBase, absPath)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}

	return fmt.Errorf("path not within allowed directories: %v", v.AllowedBaseDirs)
}

// ValidateDirectory validates a directory path, creating it when asked.
// A missing directory is not an error when create is false.
func (v *FilePathValidator) ValidateDirectory(path string, create bool) (string, error) {
	validated, err := v.ValidateAndSanitize(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(validated)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if create {
			if err := os.MkdirAll(validated, 0o755); err != nil {
				return "", fmt.Errorf("failed to create directory: %w", err)
			}
		}
	case err != nil:
		return "", fmt.Errorf("checking directory: %w", err)
	case !info.IsDir():
		return "", fmt.Errorf("path exists but is not a directory: %s", validated)
	}

	return validated, nil
}

// ValidateFile validates a path that will be read or written as a file.
func (v *FilePathValidator) ValidateFile(path string) (string, error) {
	validated, err := v.ValidateAndSanitize(path)
	if err != nil {
		return "", err
	}

	if info, err := os.Stat(validated); err == nil && info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", validated)
	}
	return validated, nil
}

// IsPathSafe performs a quick safety check on a path without full validation
func IsPathSafe(path string) bool {
	if len(path) > maxPathLength {
		return false
	}
	return !strings.Contains(path, "\x00") &&
		!strings.Contains(path, "../") &&
		!strings.Contains(path, "..\\")
}
