package analyzer

import (
	"fmt"
	"os"

	"github.com/danielgtaylor/qtfaststart/pkg/atomic"
)

// CheckFastStart reports whether the file at path already has its moov atom
// in front of mdat. Returns an error if the file is not a valid container.
func CheckFastStart(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	index, err := atomic.BuildIndex(f)
	if err != nil {
		return false, err
	}
	return index.MoovFirst(), nil
}

// ValidateFile reports whether the file at path is complete: every declared
// top-level atom must fit inside the physical file.
func ValidateFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return atomic.ValidateFile(f)
}
