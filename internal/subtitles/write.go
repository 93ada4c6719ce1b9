package subtitles

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"capgate/internal/cue"
	"capgate/internal/fileutil"
	"capgate/internal/services"
)

const lockRetryDelay = 50 * time.Millisecond

// WriteFile serializes cues and atomically replaces path with the result.
// An advisory lock on <path>.lock serializes writers across processes; the
// lock file is left in place.
func WriteFile(ctx context.Context, path string, cues []cue.Cue, format Format) error {
	content, err := Serialize(cues, format)
	if err != nil {
		return err
	}
	if path == "" {
		return services.Wrap(services.ErrInvalidInput, "write", "path", "output path is required", nil)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrInvalidInput, "write", "mkdir", dir, err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return services.Wrap(services.ErrTimeout, "write", "lock", path, err)
	}
	if !locked {
		return services.Wrap(services.ErrTimeout, "write", "lock", fmt.Sprintf("could not lock %s", path), nil)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	if err := fileutil.WriteAtomic(path, []byte(content), 0o644); err != nil {
		var werr *fileutil.WriteError
		if errors.As(err, &werr) {
			return services.Wrap(services.ErrTransient, "write", werr.Op, werr.Path, werr.Err)
		}
		return services.Wrap(services.ErrTransient, "write", "commit", path, err)
	}
	return nil
}
