package build

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/jaff/internal/errors"
)

// Patterns selecting the extra files of the source root.
const (
	extrasPattern  = "*.*"
	extrasExcluded = "*" + OutputExt
)

// CopyExtras copies the regular files directly under src whose names
// match *.* into dist, skipping *.html. Dot-files are included; names
// without a dot and subdirectories are not. It returns the names of the
// copied files.
func CopyExtras(src, dist string) ([]string, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeInternalError, "reading "+src, err)
	}
	if err := os.MkdirAll(dist, 0755); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeWriteFailed, "creating "+dist, err)
	}

	var copied []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if !isExtra(name) {
			continue
		}
		if err := copyFile(filepath.Join(src, name), filepath.Join(dist, name)); err != nil {
			return copied, err
		}
		copied = append(copied, name)
	}
	return copied, nil
}

func isExtra(name string) bool {
	if ok, _ := filepath.Match(extrasPattern, name); !ok {
		return false
	}
	excluded, _ := filepath.Match(extrasExcluded, strings.ToLower(name))
	return !excluded
}

func copyFile(from, to string) error {
	in, err := os.Open(from)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeInternalError, "opening "+from, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.NewIOError(errors.ErrCodeInternalError, "stat "+from, err)
	}

	out, err := os.OpenFile(to, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.NewIOError(errors.ErrCodeWriteFailed, "creating "+to, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.NewIOError(errors.ErrCodeWriteFailed, "copying to "+to, err)
	}
	if err := out.Close(); err != nil {
		return errors.NewIOError(errors.ErrCodeWriteFailed, "closing "+to, err)
	}
	return nil
}
