package atomic

import (
	"errors"
	"io"
)

// ValidateFile checks that every declared top-level atom fits inside the
// physical file. Returns false for files that are truncated or not valid
// containers at all; the error is reserved for I/O failures.
func ValidateFile(rs io.ReadSeeker) (bool, error) {
	fileSize, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return false, err
	}

	index, err := BuildIndex(rs)
	if err != nil {
		if errors.Is(err, ErrMalformed) {
			return false, nil
		}
		return false, err
	}

	last := index.Atoms[len(index.Atoms)-1]
	if last.Size == 0 {
		// Runs to end of file, cannot be truncated by definition.
		return true, nil
	}
	return last.End() <= fileSize, nil
}
