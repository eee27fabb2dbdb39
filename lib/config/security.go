package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-i2p/logger"
)

// SecureFilePermissions for files containing sensitive data (e.g., keys)
const SecureFilePermissions = 0o600

// SecureDirPermissions for directories containing sensitive files
const SecureDirPermissions = 0o700

// StandardDirPermissions for non-sensitive directories
const StandardDirPermissions = 0o755

// ResolvePath resolves userPath against basePath. Absolute paths are taken
// as they are; relative paths must stay inside basePath.
func ResolvePath(basePath, userPath string) (string, error) {
	if basePath == "" {
		return "", fmt.Errorf("base path cannot be empty")
	}
	cleanBase, err := filepath.Abs(filepath.Clean(basePath))
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}
	if userPath == "" {
		return cleanBase, nil
	}
	if filepath.IsAbs(userPath) {
		return filepath.Clean(userPath), nil
	}

	resolved := filepath.Join(cleanBase, userPath)
	baseWithSep := cleanBase + string(filepath.Separator)
	if resolved != cleanBase && !strings.HasPrefix(resolved, baseWithSep) {
		log.WithFields(logger.Fields{
			"at":            "ResolvePath",
			"reason":        "path_traversal_attempt",
			"base_path":     cleanBase,
			"resolved_path": resolved,
		}).Warn("potential path traversal blocked")
		return "", fmt.Errorf("path %q escapes base directory %q", userPath, basePath)
	}
	return resolved, nil
}

// CreateSecureDirectory creates a directory with secure permissions.
// Use this for directories that contain or will contain sensitive files.
func CreateSecureDirectory(path string) error {
	cleanPath := filepath.Clean(path)

	if err := os.MkdirAll(cleanPath, SecureDirPermissions); err != nil {
		return fmt.Errorf("failed to create secure directory %q: %w", cleanPath, err)
	}

	// Verify and fix permissions (MkdirAll leaves existing directories alone)
	if err := os.Chmod(cleanPath, SecureDirPermissions); err != nil {
		log.WithFields(logger.Fields{
			"at":     "CreateSecureDirectory",
			"reason": "chmod_failed",
			"path":   cleanPath,
			"error":  err.Error(),
		}).Warn("could not set secure permissions on directory")
	}

	log.WithFields(logger.Fields{
		"at":     "CreateSecureDirectory",
		"reason": "directory_created",
		"path":   cleanPath,
		"mode":   fmt.Sprintf("%04o", SecureDirPermissions),
	}).Debug("created secure directory")
	return nil
}
