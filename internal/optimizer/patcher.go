package optimizer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/danielgtaylor/qtfaststart/pkg/atomic"
)

// PatchMoov rebases every stco/co64 entry in the moov buffer by delta. The
// buffer holds the complete raw moov atom, header included, and is mutated
// in place: entry counts, table sizes and entry widths never change, only
// the offset values.
func PatchMoov(moov []byte, delta int64) error {
	reader := bytes.NewReader(moov)
	root, err := atomic.ReadAtomHeader(reader)
	if err != nil {
		return err
	}
	if root.Size != int64(len(moov)) {
		return fmt.Errorf("%w: moov reports %d bytes but buffer holds %d",
			ErrMalformedFile, root.Size, len(moov))
	}

	tables, err := atomic.FindChunkOffsets(reader, root)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if err := patchTable(moov, table, delta); err != nil {
			return err
		}
	}
	return nil
}

// patchTable rewrites one chunk-offset table. The table layout after the
// atom header is a 32-bit version/flags word, a 32-bit entry count, then
// big-endian entries of 4 (stco) or 8 (co64) bytes.
func patchTable(moov []byte, table atomic.Atom, delta int64) error {
	width := int64(4)
	if table.Type == atomic.TypeCo64 {
		width = 8
	}

	body := table.BodyStart()
	if table.End()-body < 8 {
		return fmt.Errorf("%w: %s atom too small for its table header", ErrMalformedFile, table.Type)
	}
	count := int64(binary.BigEndian.Uint32(moov[body+4 : body+8]))

	entries := body + 8
	if entries+count*width > table.End() {
		return fmt.Errorf("%w: %s atom declares %d entries but is %d bytes",
			ErrMalformedFile, table.Type, count, table.Size)
	}

	for i := int64(0); i < count; i++ {
		at := entries + i*width
		var entry int64
		if width == 4 {
			entry = int64(binary.BigEndian.Uint32(moov[at : at+4]))
		} else {
			entry = int64(binary.BigEndian.Uint64(moov[at : at+8]))
		}

		patched := entry + delta
		if patched < 0 {
			// A negative absolute offset means the planner miscounted the
			// bytes it removed. Refusing to write garbage is the only safe
			// response.
			return fmt.Errorf("chunk offset %d%+d is negative: layout plan is inconsistent", entry, delta)
		}
		if width == 4 {
			if patched > math.MaxUint32 {
				return fmt.Errorf("%w: patched offset %d does not fit a 32-bit stco entry",
					ErrMalformedFile, patched)
			}
			binary.BigEndian.PutUint32(moov[at:at+4], uint32(patched))
		} else {
			binary.BigEndian.PutUint64(moov[at:at+8], uint64(patched))
		}
	}
	return nil
}
