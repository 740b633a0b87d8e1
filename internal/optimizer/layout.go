package optimizer

import "github.com/danielgtaylor/qtfaststart/pkg/atomic"

// Layout selects where the moov atom lands in the output file.
type Layout int

const (
	// MoovFirst places moov ahead of mdat so playback can start while the
	// file is still downloading. The default.
	MoovFirst Layout = iota
	// MoovLast places moov after mdat, for producers that want the media
	// data physically first with the index appended.
	MoovLast
)

func (l Layout) String() string {
	if l == MoovLast {
		return "moov-last"
	}
	return "moov-first"
}

// Plan describes the byte movements of one conversion run.
type Plan struct {
	// Delta is added to every chunk-offset entry: the net number of bytes
	// the new layout inserts before each sample's position.
	Delta int64
	// BytesRemoved counts free and spurious zero atom bytes dropped from in
	// front of mdat.
	BytesRemoved int64
}

// PlanLayout computes the chunk-offset delta for rewriting the indexed file
// into the target layout. Free atoms ahead of mdat are reclaimed only when
// cleanup is set; the 8-byte headers of spurious zero atoms ahead of mdat
// are always dropped. moov's own size enters the delta exactly when moov
// crosses the mdat boundary between the old and the new layout.
//
// Returns ErrAlreadyOptimized when the delta works out to zero: the file
// already has the requested shape and no cleanup is possible.
func PlanLayout(index *atomic.Index, target Layout, cleanup bool) (Plan, error) {
	var removed int64
	for _, atom := range index.Atoms {
		if atom.Offset >= index.Mdat.Offset {
			continue
		}
		switch {
		case atom.IsZeroAtom():
			removed += 8
		case atom.Type == atomic.TypeFree && cleanup:
			removed += atom.Size
		}
	}

	delta := -removed
	switch {
	case !index.MoovFirst() && target == MoovFirst:
		// moov moves from behind mdat to in front of it.
		delta += index.Moov.Size
	case index.MoovFirst() && target == MoovLast:
		// moov moves from in front of mdat to behind it.
		delta -= index.Moov.Size
	}

	if delta == 0 {
		return Plan{}, ErrAlreadyOptimized
	}
	return Plan{Delta: delta, BytesRemoved: removed}, nil
}
