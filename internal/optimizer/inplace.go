package optimizer

import (
	"fmt"
	"os"
)

// OptimizeInPlace converts the file at path in place. The original is
// renamed to path.bak while the converted copy is written; on any failure
// the backup is restored, on success it is removed. Interrupting the
// process mid-run leaves the backup behind rather than a half-written
// original.
func OptimizeInPlace(path string, opts Options) error {
	backup := path + ".bak"
	if err := os.Rename(path, backup); err != nil {
		return fmt.Errorf("backup original: %w", err)
	}

	success := false
	defer func() {
		if success {
			os.Remove(backup)
		} else {
			os.Remove(path)
			os.Rename(backup, path)
		}
	}()

	if err := Process(backup, path, opts); err != nil {
		return err
	}

	success = true
	return nil
}
