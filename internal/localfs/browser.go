// Package localfs is the local filesystem collaborator: directory listing,
// tree walking and hidden-file filtering shared by the CLI panel commands
// and the archive helper.
package localfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileEntry represents a file or directory in the local filesystem.
type FileEntry struct {
	Path    string // Full path
	Name    string // Base name
	Size    int64  // Size in bytes (0 for directories)
	IsDir   bool
	ModTime time.Time
	Mode    fs.FileMode
}

// ListDirectory returns the contents of a directory, filtered by options and
// sorted directories first, then case-insensitively by name, matching the
// ordering of remote listings.
func ListDirectory(path string, opts ListOptions) ([]FileEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	result := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()

		if !opts.IncludeHidden && IsHiddenName(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Entry disappeared or is unreadable; leave it out.
			continue
		}

		result = append(result, FileEntry{
			Path:    filepath.Join(path, name),
			Name:    name,
			Size:    info.Size(),
			IsDir:   entry.IsDir(),
			ModTime: info.ModTime(),
			Mode:    info.Mode(),
		})
	}

	SortEntries(result)
	return result, nil
}

// SortEntries orders entries directories first, then case-insensitively by
// name.
func SortEntries(entries []FileEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

// WalkFunc is the callback signature for Walk.
// Return filepath.SkipDir to skip a directory, any other error to stop.
type WalkFunc func(entry FileEntry) error

// Walk traverses a directory tree depth-first, calling fn for each entry.
// Directories are visited before their contents.
func Walk(root string, opts WalkOptions, fn WalkFunc) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entry; keep walking.
			return nil
		}

		name := d.Name()

		if !opts.IncludeHidden && IsHiddenName(name) {
			if d.IsDir() && opts.SkipHiddenDirs {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		return fn(FileEntry{
			Path:    path,
			Name:    name,
			Size:    info.Size(),
			IsDir:   d.IsDir(),
			ModTime: info.ModTime(),
			Mode:    info.Mode(),
		})
	})
}

// WalkFiles visits only regular files, skipping directory entries. Used to
// size a folder before archiving it.
func WalkFiles(root string, opts WalkOptions, fn WalkFunc) error {
	return Walk(root, opts, func(entry FileEntry) error {
		if entry.IsDir {
			return nil
		}
		return fn(entry)
	})
}
