// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package library resolves and lists local video files under a media root.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/jbfp/videocaster/internal/log"
	platformfs "github.com/jbfp/videocaster/internal/platform/fs"
)

// ErrOutsideRoot is returned by Resolve and List when confinement is enabled
// and a path leaves the media root.
var ErrOutsideRoot = platformfs.ErrOutsideRoot

// ErrInvalidPath is returned for paths that can never name a file.
var ErrInvalidPath = errors.New("library: invalid path")

// DefaultExtensions are the video extensions listed when none are configured.
var DefaultExtensions = []string{"avi", "mkv", "mp4"}

// Config configures a Library.
type Config struct {
	Root       string
	Confine    bool
	Extensions []string
}

// Item is one directory entry offered to the player UI.
type Item struct {
	IsDir bool   `json:"isDir"`
	Name  string `json:"name"`
}

// Listing is the content of one directory.
type Listing struct {
	Items    []Item `json:"items"`
	RealPath string `json:"realPath"`
}

// Library answers path questions relative to a media root.
type Library struct {
	root       string
	confine    bool
	extensions map[string]struct{}
	logger     zerolog.Logger
}

// New builds a library. An empty root falls back to the user's home
// directory, then to the filesystem root.
func New(cfg Config) *Library {
	root := cfg.Root
	if root == "" {
		if home, err := os.UserHomeDir(); err == nil {
			root = home
		} else {
			root = string(filepath.Separator)
		}
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			set[e] = struct{}{}
		}
	}

	return &Library{
		root:       root,
		confine:    cfg.Confine,
		extensions: set,
		logger:     log.WithComponent("library"),
	}
}

// Root returns the absolute media root.
func (l *Library) Root() string {
	return l.root
}

// Resolve maps p to a filesystem path. Relative paths are taken from the
// media root and an empty path is the root itself.
func (l *Library) Resolve(p string) (string, error) {
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("%w: contains NUL byte", ErrInvalidPath)
	}
	if p == "" {
		return l.root, nil
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(l.root, p)
	}
	p = normalize(filepath.Clean(p))

	if !l.confine {
		return p, nil
	}
	return platformfs.ConfineAbsPath(l.root, p)
}

// IsVideo reports whether name carries one of the configured extensions.
func (l *Library) IsVideo(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	_, ok := l.extensions[ext]
	return ok
}

// List returns the visible entries of dir: directories first, then video
// files, each group in case-insensitive order. A ".." entry leads when the
// directory has a parent that may be visited.
func (l *Library) List(dir string) (*Listing, error) {
	path, err := l.Resolve(dir)
	if err != nil {
		return nil, err
	}

	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	entries, err := os.ReadDir(real)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", real, err)
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		isDir := e.IsDir()
		if e.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(real, name)); err == nil {
				isDir = info.IsDir()
			}
		}
		if !isDir && !l.IsVideo(name) {
			continue
		}
		items = append(items, Item{IsDir: isDir, Name: name})
	}

	fold := cases.Fold()
	keys := make(map[string]string, len(items))
	for _, it := range items {
		keys[it.Name] = fold.String(it.Name)
	}
	slices.SortFunc(items, func(a, b Item) int {
		if a.IsDir != b.IsDir {
			if a.IsDir {
				return -1
			}
			return 1
		}
		return strings.Compare(keys[a.Name], keys[b.Name])
	})

	if l.hasVisibleParent(real) {
		items = append([]Item{{IsDir: true, Name: ".."}}, items...)
	}

	l.logger.Debug().Str(log.FieldPath, real).Int("count", len(items)).Str("event", "library.list").Msg("listed directory")
	return &Listing{Items: items, RealPath: real}, nil
}

func (l *Library) hasVisibleParent(real string) bool {
	parent := filepath.Dir(real)
	if parent == real {
		return false
	}
	if !l.confine {
		return true
	}
	_, err := platformfs.ConfineAbsPath(l.root, parent)
	return err == nil
}

// normalize prefers the path as given and falls back to its NFC form when
// only that one exists on disk.
func normalize(p string) string {
	if _, err := os.Lstat(p); err == nil || !errors.Is(err, os.ErrNotExist) {
		return p
	}
	if nfc := norm.NFC.String(p); nfc != p {
		if _, err := os.Lstat(nfc); err == nil {
			return nfc
		}
	}
	return p
}
