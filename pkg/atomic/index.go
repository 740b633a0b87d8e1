package atomic

import (
	"fmt"
	"io"
)

// Index is the ordered list of top-level atoms found in a file. Moov and
// Mdat are always present in a validated index; Ftyp may be absent in very
// old QuickTime files.
type Index struct {
	Atoms []Atom

	Ftyp    Atom
	Moov    Atom
	Mdat    Atom
	HasFtyp bool

	hasMoov bool
	hasMdat bool
}

// BuildIndex scans the top-level atoms of rs from the start of the stream
// and validates that moov and mdat are both present.
func BuildIndex(rs io.ReadSeeker) (*Index, error) {
	index, err := Scan(rs)
	if err != nil {
		return nil, err
	}
	if err := index.validate(); err != nil {
		return nil, err
	}
	return index, nil
}

// Scan reads the top-level atoms of rs from the start of the stream without
// requiring moov or mdat to be present. A zero-size mdat terminates the scan
// ("runs to end of file"); the spurious all-zero atom is recorded and
// skipped. Anything else that is not a well-formed atom header is reported
// as ErrMalformed rather than silently ending the scan.
func Scan(rs io.ReadSeeker) (*Index, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	index := &Index{}
	for {
		pos, err := rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}

		atom, err := ReadAtomHeader(rs)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		atom.Offset = pos

		if atom.IsZeroAtom() {
			// Only the 8-byte header exists on disk; keep scanning right
			// after it.
			index.record(atom)
			continue
		}

		if !isPrintableType(atom.Type) {
			return nil, fmt.Errorf("%w: invalid top-level atom type %q at offset %d",
				ErrMalformed, atom.Type, pos)
		}

		if atom.Size == 0 {
			if atom.Type != TypeMdat {
				return nil, fmt.Errorf("%w: zero-size %q atom at offset %d",
					ErrMalformed, atom.Type, pos)
			}
			// mdat with no size extends to the end of the file, so nothing
			// can follow it.
			index.record(atom)
			break
		}

		index.record(atom)
		if _, err := rs.Seek(pos+atom.Size, io.SeekStart); err != nil {
			return nil, err
		}
	}

	return index, nil
}

func (ix *Index) record(atom Atom) {
	ix.Atoms = append(ix.Atoms, atom)
	switch atom.Type {
	case TypeFtyp:
		if !ix.HasFtyp {
			ix.Ftyp = atom
			ix.HasFtyp = true
		}
	case TypeMoov:
		if !ix.hasMoov {
			ix.Moov = atom
			ix.hasMoov = true
		}
	case TypeMdat:
		if !ix.hasMdat {
			ix.Mdat = atom
			ix.hasMdat = true
		}
	}
}

func (ix *Index) validate() error {
	for _, required := range []struct {
		name    string
		present bool
	}{
		{TypeMoov, ix.hasMoov},
		{TypeMdat, ix.hasMdat},
	} {
		if !required.present {
			return fmt.Errorf("%w: %s atom not found, is this a valid MOV/MP4 file?",
				ErrMalformed, required.name)
		}
	}
	return nil
}

// MoovFirst reports whether moov already precedes mdat.
func (ix *Index) MoovFirst() bool {
	return ix.Moov.Offset < ix.Mdat.Offset
}
