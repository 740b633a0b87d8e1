package optimizer

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/rs/zerolog"

	"github.com/danielgtaylor/qtfaststart/pkg/atomic"
)

// copyChunkSize bounds the per-read buffer while streaming atom payloads.
const copyChunkSize = 8192

// ProgressFunc receives conversion progress in [0, 1] and a short message.
type ProgressFunc func(progress float64, message string)

// Options controls a single conversion run. The zero value requests the
// default behavior: moov first, free atoms reclaimed, no byte limit.
type Options struct {
	// Layout is the target placement of the moov atom.
	Layout Layout
	// KeepFree leaves free atoms in place instead of reclaiming them.
	KeepFree bool
	// Limit caps the bytes copied per atom. Useful for producing truncated
	// samples with intact headers for bug reports. 0 means unlimited.
	Limit int64
	// Log receives diagnostics. nil disables logging.
	Log *zerolog.Logger
	// Progress, when set, is called as the run advances.
	Progress ProgressFunc
}

func (o Options) cleanup() bool {
	return !o.KeepFree
}

func (o Options) logger() zerolog.Logger {
	if o.Log == nil {
		return zerolog.Nop()
	}
	return *o.Log
}

func (o Options) report(progress float64, message string) {
	if o.Progress != nil {
		o.Progress(progress, message)
	}
}

// Process rewrites the file at inPath into a new file at outPath with moov
// placed according to the requested layout and every chunk-offset entry
// rebased to the new physical positions. The input file is never modified.
//
// Returns ErrMalformedFile, ErrAlreadyOptimized or ErrCompressedMoov for
// the expected failure modes; no output file is created in any of them.
func Process(inPath, outPath string, opts Options) error {
	log := opts.logger()

	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	index, err := atomic.BuildIndex(in)
	if err != nil {
		return err
	}
	for _, atom := range index.Atoms {
		log.Debug().Str("atom", atom.Type).Int64("offset", atom.Offset).Int64("size", atom.Size).Msg("indexed")
	}
	opts.report(0.1, "indexed top-level atoms")

	plan, err := PlanLayout(index, opts.Layout, opts.cleanup())
	if err != nil {
		return err
	}
	log.Info().
		Int64("delta", plan.Delta).
		Int64("removed", plan.BytesRemoved).
		Stringer("layout", opts.Layout).
		Msg("layout planned")
	opts.report(0.2, "layout planned")

	compressed, err := atomic.MoovIsCompressed(in, index.Moov)
	if err != nil {
		return err
	}
	if compressed {
		return ErrCompressedMoov
	}

	moov := make([]byte, index.Moov.Size)
	if _, err := in.Seek(index.Moov.Offset, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.ReadFull(in, moov); err != nil {
		return fmt.Errorf("%w: moov atom truncated", ErrMalformedFile)
	}
	if err := PatchMoov(moov, plan.Delta); err != nil {
		return err
	}
	opts.report(0.5, "patched chunk offsets")

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	if err := writeAtoms(in, out, index, moov, opts, log); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	opts.report(0.95, "wrote output")

	if err := copyPermissions(inPath, outPath); err != nil {
		// The converted file is complete; losing the mode bits is not worth
		// failing the run over.
		log.Warn().Err(err).Msg("could not copy file permissions")
	}
	opts.report(1.0, "done")
	return nil
}

// writeAtoms streams the reordered atoms to out: ftyp verbatim first, the
// patched moov either right after it or at the very end, and every other
// top-level atom in between, minus the atoms the plan removes.
func writeAtoms(in io.ReadSeeker, out io.Writer, index *atomic.Index, moov []byte, opts Options, log zerolog.Logger) error {
	for _, atom := range index.Atoms {
		if atom.Type == atomic.TypeFtyp {
			log.Debug().Int64("size", atom.Size).Msg("writing ftyp")
			if err := copyAtom(in, out, atom, 0); err != nil {
				return err
			}
		}
	}

	if opts.Layout == MoovFirst {
		log.Debug().Int("size", len(moov)).Msg("writing moov")
		if _, err := out.Write(moov); err != nil {
			return err
		}
	}

	for _, atom := range index.Atoms {
		switch {
		case atom.Type == atomic.TypeFtyp || atom.Type == atomic.TypeMoov:
			continue
		case atom.IsZeroAtom():
			// Only a stray 8-byte header; never carried over.
			continue
		case atom.Type == atomic.TypeFree && opts.cleanup():
			continue
		}
		if atom.Size == 0 && opts.Layout == MoovLast {
			// moov still has to follow. A size field of 0 would make
			// parsers absorb it into the mdat payload, so the written
			// header gets an explicit size.
			log.Debug().Str("atom", atom.Type).Msg("writing unbounded atom with explicit size")
			if err := copyUnboundedMdat(in, out, atom, opts.Limit); err != nil {
				return err
			}
			continue
		}
		log.Debug().Str("atom", atom.Type).Int64("size", atom.Size).Msg("writing atom")
		if err := copyAtom(in, out, atom, opts.Limit); err != nil {
			return err
		}
	}

	if opts.Layout == MoovLast {
		log.Debug().Int("size", len(moov)).Msg("writing moov")
		if _, err := out.Write(moov); err != nil {
			return err
		}
	}
	return nil
}

// copyAtom streams one atom from its position in the source, header
// included. A zero-size atom runs to the end of the source. When limit is
// nonzero at most limit bytes are copied.
func copyAtom(in io.ReadSeeker, out io.Writer, atom atomic.Atom, limit int64) error {
	if _, err := in.Seek(atom.Offset, io.SeekStart); err != nil {
		return err
	}

	if atom.Size == 0 {
		if limit > 0 {
			_, err := io.CopyN(out, in, limit)
			if err == io.EOF {
				err = nil
			}
			return err
		}
		_, err := io.Copy(out, in)
		return err
	}

	want := atom.Size
	if limit > 0 && limit < want {
		want = limit
	}

	buf := make([]byte, copyChunkSize)
	for want > 0 {
		chunk := int64(len(buf))
		if want < chunk {
			chunk = want
		}
		n, err := in.Read(buf[:chunk])
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
			want -= int64(n)
		}
		if err == io.EOF {
			if want > 0 {
				return fmt.Errorf("%w: %q atom is %d bytes short", ErrMalformedFile, atom.Type, want)
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// copyUnboundedMdat rewrites a zero-size mdat with an explicit size covering
// everything from its header to the end of the source, so that atoms written
// after it stay visible to parsers. The size must fit the existing 4-byte
// field: widening the header to the 64-bit form would shift the payload and
// invalidate the planned chunk offsets.
func copyUnboundedMdat(in io.ReadSeeker, out io.Writer, atom atomic.Atom, limit int64) error {
	end, err := in.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	size := end - atom.Offset
	if size < atom.HeaderSize {
		return fmt.Errorf("%w: %q atom header extends past end of file", ErrMalformedFile, atom.Type)
	}
	if size > math.MaxUint32 {
		return fmt.Errorf("%w: %d byte %q atom needs a 64-bit size to be followed by other atoms",
			ErrMalformedFile, size, atom.Type)
	}

	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(size))
	copy(header[4:8], atom.Type)
	if _, err := out.Write(header[:]); err != nil {
		return err
	}

	if _, err := in.Seek(atom.BodyStart(), io.SeekStart); err != nil {
		return err
	}
	want := size - atom.HeaderSize
	if limit > 0 {
		capped := limit - atom.HeaderSize
		if capped < 0 {
			capped = 0
		}
		if capped < want {
			want = capped
		}
	}
	_, err = io.CopyN(out, in, want)
	return err
}

func copyPermissions(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, info.Mode().Perm())
}
