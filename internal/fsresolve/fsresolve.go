// Package fsresolve implements the filesystem and artifact resolver
// (spec §4.A): choosing between a preferred and a drop-in filename
// within a directory, and best-effort recursive removal.
package fsresolve

import (
	"os"
	"path/filepath"

	"github.com/sqlitch/sqlitch/internal/coreerr"
)

// Resolution describes which of a preferred/drop-in filename pair was
// found, if either.
type Resolution struct {
	// Path is the full path to the resolved file. Empty if neither
	// name exists.
	Path string
	// IsDropIn is true when the drop-in (SQLitch-native) name was
	// the one found, false for the preferred (Sqitch-compatible)
	// name.
	IsDropIn bool
	// SourceName is the bare filename that was resolved ("" if
	// neither exists).
	SourceName string
}

// Resolve picks one of preferred or fallback within root. If both
// exist, it fails with ArtifactConflictError naming both. If neither
// exists, it returns a zero Resolution and a nil error — absence is
// not itself an error; callers decide whether that's fatal.
func Resolve(root, preferred, fallback string) (Resolution, error) {
	prefPath := filepath.Join(root, preferred)
	fallPath := filepath.Join(root, fallback)

	prefExists := exists(prefPath)
	fallExists := exists(fallPath)

	switch {
	case prefExists && fallExists:
		return Resolution{}, &coreerr.ArtifactConflictError{Preferred: prefPath, DropIn: fallPath}
	case prefExists:
		return Resolution{Path: prefPath, IsDropIn: false, SourceName: preferred}, nil
	case fallExists:
		return Resolution{Path: fallPath, IsDropIn: true, SourceName: fallback}, nil
	default:
		return Resolution{}, nil
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Cleanup removes each of names from root, best-effort: missing
// entries are not an error, and directories are removed recursively.
// It returns the first unexpected error encountered, if any, after
// attempting every name.
func Cleanup(root string, names []string) error {
	var firstErr error
	for _, name := range names {
		if err := Remove(filepath.Join(root, name)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Remove deletes path whether it is a file, symlink, or directory
// tree. Missing paths are treated as already-removed (idempotent).
func Remove(path string) error {
	err := os.RemoveAll(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
