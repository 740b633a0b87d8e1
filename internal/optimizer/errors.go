package optimizer

import (
	"errors"

	"github.com/danielgtaylor/qtfaststart/pkg/atomic"
)

// Error kinds reported by Process. All are fatal to the run; match with
// errors.Is.
var (
	// ErrMalformedFile indicates the input is not a valid MOV/MP4 container:
	// required top-level atoms are missing or the atom structure is
	// truncated or corrupt.
	ErrMalformedFile = atomic.ErrMalformed

	// ErrAlreadyOptimized indicates the file already has the requested
	// layout and there are no reclaimable free atoms, so there is nothing to
	// do. Expected and user-facing, not a sign of corruption.
	ErrAlreadyOptimized = errors.New("file appears to already be set up for streaming")

	// ErrCompressedMoov indicates the moov atom is compressed (legacy
	// QuickTime cmov), which this engine does not decompress.
	ErrCompressedMoov = errors.New("compressed moov atoms are not supported")
)
