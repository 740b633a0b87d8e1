package atomic

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrMalformed reports a structurally invalid MP4/MOV container: a truncated
// atom header, a nonsense size field, or a required atom that is missing.
// Match with errors.Is.
var ErrMalformed = errors.New("malformed MP4/MOV structure")

// Well-known atom types.
const (
	TypeFtyp = "ftyp"
	TypeMoov = "moov"
	TypeMdat = "mdat"
	TypeFree = "free"
	TypeCmov = "cmov"
	TypeStco = "stco"
	TypeCo64 = "co64"

	// typeZero is the four-NUL type of the spurious zero atom some encoders
	// emit at top level.
	typeZero = "\x00\x00\x00\x00"
)

// Atom is one MP4 box header and its position in the file.
type Atom struct {
	Type       string // fourcc
	Offset     int64  // byte offset of the header start
	Size       int64  // total size including header; 0 means "runs to EOF"
	HeaderSize int64  // 8, or 16 with the 64-bit size extension
}

// End returns the offset just past the atom.
func (a Atom) End() int64 {
	return a.Offset + a.Size
}

// BodyStart returns the offset of the first payload byte.
func (a Atom) BodyStart() int64 {
	return a.Offset + a.HeaderSize
}

// IsZeroAtom reports whether this is the spurious zero-size, zero-type atom.
func (a Atom) IsZeroAtom() bool {
	return a.Size == 0 && a.Type == typeZero
}

// ReadAtomHeader reads the next atom header from r: a big-endian 32-bit size
// and a fourcc, plus a 64-bit size extension when the size field is 1. The
// body is not consumed. A clean end of stream returns io.EOF; a partial
// header returns ErrMalformed.
func ReadAtomHeader(r io.Reader) (Atom, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return Atom{}, io.EOF
		}
		return Atom{}, fmt.Errorf("%w: truncated atom header", ErrMalformed)
	}

	atom := Atom{
		Size:       int64(binary.BigEndian.Uint32(header[0:4])),
		Type:       string(header[4:8]),
		HeaderSize: 8,
	}

	if atom.Size == 1 {
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return Atom{}, fmt.Errorf("%w: truncated 64-bit size of %q atom", ErrMalformed, atom.Type)
		}
		size := binary.BigEndian.Uint64(ext[:])
		if size > math.MaxInt64 {
			return Atom{}, fmt.Errorf("%w: %q atom size %d overflows", ErrMalformed, atom.Type, size)
		}
		atom.Size = int64(size)
		atom.HeaderSize = 16
	}

	// Size 0 is legal here ("runs to EOF"); the indexer decides whether the
	// atom type may actually carry it.
	if atom.Size != 0 && atom.Size < atom.HeaderSize {
		return Atom{}, fmt.Errorf("%w: %q atom needs at least %d bytes but reports %d",
			ErrMalformed, atom.Type, atom.HeaderSize, atom.Size)
	}

	return atom, nil
}

// isPrintableType reports whether the fourcc consists of printable ASCII.
// Binary garbage where a top-level atom type should be means the scan ran
// into non-atom bytes.
func isPrintableType(typ string) bool {
	for i := 0; i < len(typ); i++ {
		if typ[i] < 0x20 || typ[i] > 0x7e {
			return false
		}
	}
	return true
}
