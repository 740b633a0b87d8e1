package analyzer

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/danielgtaylor/qtfaststart/pkg/atomic"
)

// Metadata holds the subset of video file metadata the inspector surfaces.
type Metadata struct {
	Size     int64     `json:"size"`
	Duration float64   `json:"duration"` // seconds
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Codec    string    `json:"codec"`
	Modified time.Time `json:"modified"`
}

// GetMetadata extracts duration, dimensions and codec from the moov tree of
// the MP4 file at path. Fields that cannot be parsed are left at their zero
// values; only I/O and structural failures are errors.
func GetMetadata(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	meta := &Metadata{
		Size:     info.Size(),
		Modified: info.ModTime(),
	}

	index, err := atomic.BuildIndex(f)
	if err != nil {
		return nil, err
	}

	children, err := atomic.Children(f, index.Moov)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		switch child.Type {
		case "mvhd":
			if err := parseMvhd(f, child, meta); err != nil {
				return nil, err
			}
		case "trak":
			if err := parseTrak(f, child, meta); err != nil {
				return nil, err
			}
		}
	}
	return meta, nil
}

// parseMvhd pulls timescale and duration out of the movie header. Version 1
// uses 64-bit timestamps, version 0 32-bit.
func parseMvhd(rs io.ReadSeeker, mvhd atomic.Atom, meta *Metadata) error {
	body, err := readBody(rs, mvhd, 32)
	if err != nil {
		return err
	}

	var timescale uint32
	var duration uint64
	switch {
	case len(body) >= 32 && body[0] == 1:
		// version(1) flags(3) creation(8) modification(8)
		timescale = binary.BigEndian.Uint32(body[20:24])
		duration = binary.BigEndian.Uint64(body[24:32])
	case len(body) >= 20 && body[0] == 0:
		// version(1) flags(3) creation(4) modification(4)
		timescale = binary.BigEndian.Uint32(body[12:16])
		duration = uint64(binary.BigEndian.Uint32(body[16:20]))
	}
	if timescale != 0 {
		meta.Duration = float64(duration) / float64(timescale)
	}
	return nil
}

// parseTrak records dimensions and codec for the first video track found:
// audio tracks carry zero width and height in tkhd.
func parseTrak(rs io.ReadSeeker, trak atomic.Atom, meta *Metadata) error {
	children, err := atomic.Children(rs, trak)
	if err != nil {
		return err
	}

	var width, height int
	var codec string
	for _, child := range children {
		switch child.Type {
		case "tkhd":
			width, height, err = parseTkhd(rs, child)
			if err != nil {
				return err
			}
		case "mdia":
			codec, err = findCodec(rs, child)
			if err != nil {
				return err
			}
		}
	}

	if width > 0 && height > 0 && meta.Width == 0 {
		meta.Width = width
		meta.Height = height
		if codec != "" {
			meta.Codec = codec
		}
	}
	return nil
}

func parseTkhd(rs io.ReadSeeker, tkhd atomic.Atom) (width, height int, err error) {
	body, err := readBody(rs, tkhd, 88)
	if err != nil {
		return 0, 0, err
	}

	// Width and height are 16.16 fixed point, after version/flags,
	// timestamps, track id, duration, reserved words and the 36-byte
	// transform matrix.
	var w, h uint32
	switch {
	case len(body) >= 88 && body[0] == 1:
		w = binary.BigEndian.Uint32(body[80:84])
		h = binary.BigEndian.Uint32(body[84:88])
	case len(body) >= 84 && body[0] == 0:
		w = binary.BigEndian.Uint32(body[76:80])
		h = binary.BigEndian.Uint32(body[80:84])
	}
	return int(w >> 16), int(h >> 16), nil
}

// findCodec descends mdia -> minf -> stbl -> stsd and returns the fourcc of
// the first sample entry.
func findCodec(rs io.ReadSeeker, parent atomic.Atom) (string, error) {
	children, err := atomic.Children(rs, parent)
	if err != nil {
		return "", err
	}
	for _, child := range children {
		switch child.Type {
		case "minf", "stbl":
			codec, err := findCodec(rs, child)
			if codec != "" || err != nil {
				return codec, err
			}
		case "stsd":
			body, err := readBody(rs, child, 16)
			if err != nil {
				return "", err
			}
			if len(body) < 16 {
				return "", nil
			}
			// version/flags(4) entry count(4), then the first sample entry:
			// size(4) fourcc(4).
			return string(body[12:16]), nil
		}
	}
	return "", nil
}

// readBody reads up to want bytes of the atom's payload, tolerating shorter
// atoms by returning what fits; callers index defensively.
func readBody(rs io.ReadSeeker, atom atomic.Atom, want int64) ([]byte, error) {
	size := atom.Size - atom.HeaderSize
	if size < want {
		want = size
	}
	if want < 0 {
		want = 0
	}
	if _, err := rs.Seek(atom.BodyStart(), io.SeekStart); err != nil {
		return nil, err
	}
	body := make([]byte, want)
	if _, err := io.ReadFull(rs, body); err != nil {
		return nil, fmt.Errorf("%w: %q atom truncated", atomic.ErrMalformed, atom.Type)
	}
	return body, nil
}
