package atomic

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

// makeAtom builds an atom header followed by payload bytes.
func makeAtom(typ string, payload []byte) []byte {
	buf := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(8+len(payload)))
	copy(buf[4:8], typ)
	copy(buf[8:], payload)
	return buf
}

// makeAtomHeader builds a bare header with an explicit size field.
func makeAtomHeader(typ string, size uint32) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], size)
	copy(buf[4:8], typ)
	return buf
}

func TestReadAtomHeader(t *testing.T) {
	atom, err := ReadAtomHeader(bytes.NewReader(makeAtomHeader("moov", 108)))
	if err != nil {
		t.Fatalf("ReadAtomHeader failed: %v", err)
	}
	if atom.Type != "moov" || atom.Size != 108 || atom.HeaderSize != 8 {
		t.Errorf("got %+v", atom)
	}
}

func TestReadAtomHeaderExtendedSize(t *testing.T) {
	buf := makeAtomHeader("mdat", 1)
	ext := make([]byte, 8)
	binary.BigEndian.PutUint64(ext, 1<<33)
	buf = append(buf, ext...)

	atom, err := ReadAtomHeader(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("ReadAtomHeader failed: %v", err)
	}
	if atom.Size != 1<<33 || atom.HeaderSize != 16 {
		t.Errorf("got %+v", atom)
	}
}

func TestReadAtomHeaderCleanEOF(t *testing.T) {
	_, err := ReadAtomHeader(bytes.NewReader(nil))
	if err != io.EOF {
		t.Errorf("expected io.EOF for empty stream, got %v", err)
	}
}

func TestReadAtomHeaderTruncated(t *testing.T) {
	_, err := ReadAtomHeader(bytes.NewReader([]byte{0, 0, 0, 16, 'm'}))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for partial header, got %v", err)
	}
}

func TestReadAtomHeaderBadSize(t *testing.T) {
	_, err := ReadAtomHeader(bytes.NewReader(makeAtomHeader("free", 5)))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for size 5, got %v", err)
	}
}

func TestBuildIndexOrder(t *testing.T) {
	var file bytes.Buffer
	file.Write(makeAtom("ftyp", []byte("isomiso2")))
	file.Write(makeAtom("free", make([]byte, 8)))
	file.Write(makeAtom("mdat", []byte("0123456789abcdef")))
	file.Write(makeAtom("moov", nil))

	index, err := BuildIndex(bytes.NewReader(file.Bytes()))
	if err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	want := []struct {
		typ    string
		offset int64
		size   int64
	}{
		{"ftyp", 0, 16},
		{"free", 16, 16},
		{"mdat", 32, 24},
		{"moov", 56, 8},
	}
	if len(index.Atoms) != len(want) {
		t.Fatalf("expected %d atoms, got %d", len(want), len(index.Atoms))
	}
	for i, w := range want {
		a := index.Atoms[i]
		if a.Type != w.typ || a.Offset != w.offset || a.Size != w.size {
			t.Errorf("atom %d: expected %+v, got %+v", i, w, a)
		}
	}
	if !index.HasFtyp || index.Moov.Offset != 56 || index.Mdat.Offset != 32 {
		t.Errorf("index lookups wrong: %+v", index)
	}
	if index.MoovFirst() {
		t.Error("moov is after mdat, MoovFirst should be false")
	}
}

func TestBuildIndexZeroAtom(t *testing.T) {
	var file bytes.Buffer
	file.Write(makeAtom("ftyp", []byte("isomiso2")))
	file.Write(make([]byte, 8)) // spurious all-zero atom
	file.Write(makeAtom("mdat", []byte("data")))
	file.Write(makeAtom("moov", nil))

	index, err := BuildIndex(bytes.NewReader(file.Bytes()))
	if err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}
	if len(index.Atoms) != 4 {
		t.Fatalf("expected 4 atoms, got %d", len(index.Atoms))
	}
	if !index.Atoms[1].IsZeroAtom() {
		t.Errorf("expected zero atom at index 1, got %+v", index.Atoms[1])
	}
	if index.Atoms[2].Type != "mdat" || index.Atoms[2].Offset != 24 {
		t.Errorf("scan did not resume after zero atom: %+v", index.Atoms[2])
	}
}

func TestBuildIndexZeroSizeMdatStopsScan(t *testing.T) {
	var file bytes.Buffer
	file.Write(makeAtom("moov", nil))
	file.Write(makeAtomHeader("mdat", 0))
	file.Write([]byte("media bytes running to end of file"))

	index, err := BuildIndex(bytes.NewReader(file.Bytes()))
	if err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}
	last := index.Atoms[len(index.Atoms)-1]
	if last.Type != "mdat" || last.Size != 0 {
		t.Errorf("expected trailing zero-size mdat, got %+v", last)
	}
}

func TestBuildIndexMissingAtoms(t *testing.T) {
	noMdat := makeAtom("moov", nil)
	_, err := BuildIndex(bytes.NewReader(noMdat))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed without mdat, got %v", err)
	}
	if got := err.Error(); !bytes.Contains([]byte(got), []byte("mdat")) {
		t.Errorf("error should name the missing atom: %q", got)
	}

	var noMoov bytes.Buffer
	noMoov.Write(makeAtom("ftyp", []byte("isomiso2")))
	noMoov.Write(makeAtom("mdat", []byte("data")))
	_, err = BuildIndex(bytes.NewReader(noMoov.Bytes()))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed without moov, got %v", err)
	}
	if got := err.Error(); !bytes.Contains([]byte(got), []byte("moov")) {
		t.Errorf("error should name the missing atom: %q", got)
	}
}

func TestScanWithoutMoov(t *testing.T) {
	// Scan lists whatever atoms are present without requiring moov/mdat.
	var buf bytes.Buffer
	buf.Write(makeAtom("ftyp", []byte("isomiso2")))
	buf.Write(makeAtom("free", []byte("junk")))

	index, err := Scan(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(index.Atoms) != 2 {
		t.Fatalf("expected 2 atoms, got %d", len(index.Atoms))
	}
	if index.Atoms[0].Type != TypeFtyp || index.Atoms[1].Type != TypeFree {
		t.Errorf("unexpected atom order: %v", index.Atoms)
	}
}

func TestBuildIndexGarbageType(t *testing.T) {
	var file bytes.Buffer
	file.Write(makeAtom("moov", nil))
	file.Write(makeAtom("mdat", []byte("data")))
	file.Write([]byte{0, 0, 0, 12, 0xff, 0xfe, 0x01, 0x02, 0, 0, 0, 0})

	_, err := BuildIndex(bytes.NewReader(file.Bytes()))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for binary type code, got %v", err)
	}
}

func TestBuildIndexTruncatedHeader(t *testing.T) {
	var file bytes.Buffer
	file.Write(makeAtom("moov", nil))
	file.Write(makeAtom("mdat", []byte("data")))
	file.Write([]byte{0, 0, 0}) // three trailing bytes, not a header

	_, err := BuildIndex(bytes.NewReader(file.Bytes()))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for truncated trailing header, got %v", err)
	}
}

func TestValidateFile(t *testing.T) {
	var ok bytes.Buffer
	ok.Write(makeAtom("moov", nil))
	ok.Write(makeAtom("mdat", []byte("data")))

	complete, err := ValidateFile(bytes.NewReader(ok.Bytes()))
	if err != nil {
		t.Fatalf("ValidateFile failed: %v", err)
	}
	if !complete {
		t.Error("expected complete file")
	}

	// Declared mdat size larger than the bytes actually present.
	var truncated bytes.Buffer
	truncated.Write(makeAtom("moov", nil))
	truncated.Write(makeAtomHeader("mdat", 1024))
	truncated.Write([]byte("short"))

	complete, err = ValidateFile(bytes.NewReader(truncated.Bytes()))
	if err != nil {
		t.Fatalf("ValidateFile failed: %v", err)
	}
	if complete {
		t.Error("expected truncated file to be flagged")
	}
}
