package build

import (
	"os"

	"github.com/conneroisu/jaff/internal/errors"
)

// Clean removes each of paths recursively. Paths that do not exist are
// skipped, empty ones ignored. Every path is attempted even after a failure.
func Clean(paths ...string) error {
	var errs []error
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, errors.WrapIO(err, errors.ErrCodeWriteFailed, "removing "+path))
		}
	}
	return errors.CombineErrors(errs...)
}
