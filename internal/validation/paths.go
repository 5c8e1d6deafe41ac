package validation

import (
	"os"
	"path/filepath"
)

// PathHandler resolves the files roundnews reads and writes, falling back
// to the default locations when no path is given.
type PathHandler struct {
	validator *FilePathValidator
}

func NewSecurePathHandler() *PathHandler {
	return &PathHandler{validator: NewFilePathValidator()}
}

func NewPermissivePathHandler() *PathHandler {
	return &PathHandler{validator: NewPermissiveFilePathValidator()}
}

// ConfigPath returns a validated config file path, defaulting to
// ~/.config/roundnews/config.toml.
func (ph *PathHandler) ConfigPath(userPath string) (string, error) {
	if userPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		userPath = filepath.Join(homeDir, ".config", "roundnews", "config.toml")
	}
	return ph.validator.ValidateFile(userPath)
}

// LogPath returns a validated log file path, defaulting to
// ~/.roundnews/roundnews.log. The parent directory is created.
func (ph *PathHandler) LogPath(userPath string) (string, error) {
	if userPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		userPath = filepath.Join(homeDir, ".roundnews", "roundnews.log")
	}

	path, err := ph.validator.ValidateFile(userPath)
	if err != nil {
		return "", err
	}
	if _, err := ph.EnsureDirectory(filepath.Dir(path)); err != nil {
		return "", err
	}
	return path, nil
}

// EnsureDirectory validates path and creates it if missing.
func (ph *PathHandler) EnsureDirectory(path string) (string, error) {
	return ph.validator.ValidateDirectory(path, true)
}
