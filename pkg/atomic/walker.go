package atomic

import (
	"fmt"
	"io"
)

// maxWalkDepth caps container nesting while walking the moov tree. Real
// files nest chunk-offset tables four levels deep; anything deeper than this
// is corrupt or hostile.
const maxWalkDepth = 16

// isContainer reports whether this atom type holds child atoms that may
// transitively contain chunk-offset tables.
func isContainer(typ string) bool {
	switch typ {
	case "trak", "mdia", "minf", "stbl":
		return true
	}
	return false
}

// FindChunkOffsets walks the children of parent depth-first, left to right,
// and returns every stco and co64 atom found, in the order they physically
// appear. Leaf atoms of other types are skipped without being interpreted.
// A child header that cannot be read before the declared end of its parent
// is reported as ErrMalformed.
func FindChunkOffsets(rs io.ReadSeeker, parent Atom) ([]Atom, error) {
	type span struct {
		pos, end int64
		depth    int
	}

	var found []Atom
	stack := []span{{pos: parent.BodyStart(), end: parent.End(), depth: 0}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.pos >= top.end {
			stack = stack[:len(stack)-1]
			continue
		}
		if top.end-top.pos < 8 {
			return nil, fmt.Errorf("%w: %d stray bytes inside container atom at offset %d",
				ErrMalformed, top.end-top.pos, top.pos)
		}

		if _, err := rs.Seek(top.pos, io.SeekStart); err != nil {
			return nil, err
		}
		child, err := ReadAtomHeader(rs)
		if err != nil {
			return nil, fmt.Errorf("%w: unreadable atom at offset %d", ErrMalformed, top.pos)
		}
		child.Offset = top.pos
		if child.Size == 0 || child.End() > top.end {
			return nil, fmt.Errorf("%w: %q atom at offset %d overruns its parent",
				ErrMalformed, child.Type, child.Offset)
		}

		// Advance the parent before (possibly) descending so the walk
		// resumes at the next sibling.
		top.pos = child.End()

		switch {
		case child.Type == TypeStco || child.Type == TypeCo64:
			found = append(found, child)
		case isContainer(child.Type):
			if top.depth+1 > maxWalkDepth {
				return nil, fmt.Errorf("%w: containers nested more than %d deep",
					ErrMalformed, maxWalkDepth)
			}
			stack = append(stack, span{pos: child.BodyStart(), end: child.End(), depth: top.depth + 1})
		}
	}

	return found, nil
}

// Children returns the direct children of parent, one level only.
func Children(rs io.ReadSeeker, parent Atom) ([]Atom, error) {
	var children []Atom
	pos := parent.BodyStart()
	for pos < parent.End() {
		if _, err := rs.Seek(pos, io.SeekStart); err != nil {
			return nil, err
		}
		child, err := ReadAtomHeader(rs)
		if err != nil {
			return nil, fmt.Errorf("%w: unreadable child atom at offset %d", ErrMalformed, pos)
		}
		child.Offset = pos
		if child.Size == 0 || child.End() > parent.End() {
			return nil, fmt.Errorf("%w: %q atom at offset %d overruns its parent",
				ErrMalformed, child.Type, child.Offset)
		}
		children = append(children, child)
		pos = child.End()
	}
	return children, nil
}

// MoovIsCompressed reports whether any direct child of moov is a cmov atom.
// Compressed moov metadata is a legacy QuickTime feature that cannot be
// patched without decompressing it first.
func MoovIsCompressed(rs io.ReadSeeker, moov Atom) (bool, error) {
	children, err := Children(rs, moov)
	if err != nil {
		return false, err
	}
	for _, child := range children {
		if child.Type == TypeCmov {
			return true, nil
		}
	}
	return false, nil
}
