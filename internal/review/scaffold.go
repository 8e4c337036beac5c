package review

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fulmenhq/pyreview/pkg/logger"
)

// PackageMarker is the file pylint uses to treat a directory as a package
const PackageMarker = "__init__.py"

// acquirePackageMarker ensures dir contains an __init__.py for the duration of a lint run.
// The returned release func removes the marker only if this call created it; a marker that
// already existed is left alone. release is always non-nil and safe to call once.
func acquirePackageMarker(dir string) (release func(), err error) {
	marker := filepath.Join(dir, PackageMarker)
	noop := func() {}

	// O_EXCL makes the existence check and creation a single step, so a marker created by
	// someone else between check and write is never claimed as ours.
	f, err := os.OpenFile(marker, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) // #nosec G304 -- fixed name inside the target dir
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			logger.Debug("package marker already present; leaving it untouched", logger.String("path", marker))
			return noop, nil
		}
		return noop, fmt.Errorf("create package marker: %w", err)
	}
	if cerr := f.Close(); cerr != nil {
		logger.Warn("failed to close package marker", logger.String("path", marker), logger.Err(cerr))
	}
	logger.Debug("created package marker", logger.String("path", marker))

	return func() {
		if rerr := os.Remove(marker); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			logger.Warn("could not remove temporary package marker", logger.String("path", marker), logger.Err(rerr))
		}
	}, nil
}
