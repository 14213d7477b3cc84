// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fs keeps file lookups inside a configured root.
package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a path resolves outside its root.
var ErrOutsideRoot = errors.New("path outside root")

// ConfineAbsPath returns the real path of targetAbs if it lies under root.
func ConfineAbsPath(root, targetAbs string) (string, error) {
	if filepath.Separator != '\\' && strings.Contains(targetAbs, "\\") {
		return "", fmt.Errorf("path contains backslash: %s", targetAbs)
	}
	if !filepath.IsAbs(targetAbs) {
		return "", fmt.Errorf("target path must be absolute: %s", targetAbs)
	}
	realRoot, err := resolveRoot(root)
	if err != nil {
		return "", err
	}
	return resolveUnder(realRoot, filepath.Clean(targetAbs))
}

// IsRegularFile returns an error unless path is an existing regular file.
func IsRegularFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	return nil
}

func resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root path: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", err
		}
		return abs, nil
	}
	return real, nil
}

// resolveUnder follows symlinks in fullPath. A missing leaf is resolved via
// its parent so that not-yet-existing files can still be checked.
func resolveUnder(root, fullPath string) (string, error) {
	real, err := filepath.EvalSymlinks(fullPath)
	if err != nil {
		if _, lerr := os.Lstat(fullPath); lerr == nil {
			return "", fmt.Errorf("resolve path: %w", err)
		}
		dir := filepath.Dir(fullPath)
		parent, perr := filepath.EvalSymlinks(dir)
		if perr == nil {
			real = filepath.Join(parent, filepath.Base(fullPath))
		} else if _, serr := os.Stat(dir); serr == nil {
			return "", fmt.Errorf("resolve parent path: %w", perr)
		} else {
			real = fullPath
		}
	}

	rel, err := filepath.Rel(root, real)
	if err != nil {
		return "", fmt.Errorf("rel computation failed: %w", err)
	}
	if escapes(rel) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, real)
	}
	return real, nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
