// Package binfmt implements the on-disk framing shared by the graph files:
// a fixed header, raw little-endian slices and a CRC32 trailer, written
// atomically through a temp file.
package binfmt

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"
	"unsafe"
)

// ErrChecksum is returned when the stored CRC32 does not match the payload.
var ErrChecksum = errors.New("CRC32 mismatch")

const bufferSize = 1 << 20

// Number is the set of element types that can be written as raw slices.
type Number interface {
	~uint32 | ~int32 | ~float32 | ~float64 | ~uint64
}

// Writer hashes everything written through it.
type Writer struct {
	w    io.Writer
	hash hash.Hash32
}

// NewWriter wraps w with a CRC32 (IEEE) hash.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, hash: crc32.NewIEEE()}
}

func (cw *Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

// Sum32 returns the checksum of the bytes written so far.
func (cw *Writer) Sum32() uint32 { return cw.hash.Sum32() }

// Reader hashes everything read through it.
type Reader struct {
	r    io.Reader
	hash hash.Hash32
}

// NewReader wraps r with a CRC32 (IEEE) hash.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, hash: crc32.NewIEEE()}
}

func (cr *Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}

// Sum32 returns the checksum of the bytes read so far.
func (cr *Reader) Sum32() uint32 { return cr.hash.Sum32() }

// AtomicWrite writes a file through fn, appends the CRC32 trailer and renames
// the temp file into place only when everything succeeded.
func AtomicWrite(path string, fn func(w io.Writer) error) error {
	return ReplaceFile(path, func(w io.Writer) error {
		cw := NewWriter(w)
		if err := fn(cw); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, cw.Sum32()); err != nil {
			return fmt.Errorf("write CRC32: %w", err)
		}
		return nil
	})
}

// ReplaceFile writes path through a buffered temp file and renames it into
// place. The old file stays untouched if fn fails.
func ReplaceFile(path string, fn func(w io.Writer) error) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	bw := bufio.NewWriterSize(f, bufferSize)
	if err := fn(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadVerified opens path, hands the payload to fn and checks the trailer.
// fn must consume the payload exactly.
func ReadVerified(path string, fn func(r io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, bufferSize)
	cr := NewReader(br)
	if err := fn(cr); err != nil {
		return err
	}

	var stored uint32
	if err := binary.Read(br, binary.LittleEndian, &stored); err != nil {
		return fmt.Errorf("read CRC32: %w", err)
	}
	if computed := cr.Sum32(); stored != computed {
		return fmt.Errorf("%w: stored=%08x computed=%08x", ErrChecksum, stored, computed)
	}
	return nil
}

// WriteSlice writes s as raw bytes in host order, which is little-endian on
// every platform we build for.
func WriteSlice[T Number](w io.Writer, s []T) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(s[0])))
	_, err := w.Write(b)
	return err
}

// ReadSlice reads n elements written by WriteSlice.
func ReadSlice[T Number](r io.Reader, n int) ([]T, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]T, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*int(unsafe.Sizeof(s[0])))
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// WriteLenPrefixed writes a uint32 element count followed by the slice.
func WriteLenPrefixed[T Number](w io.Writer, s []T) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	return WriteSlice(w, s)
}

// ReadLenPrefixed reads a slice written by WriteLenPrefixed, refusing counts
// above limit.
func ReadLenPrefixed[T Number](r io.Reader, limit uint32) ([]T, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > limit {
		return nil, fmt.Errorf("length %d exceeds limit %d", n, limit)
	}
	return ReadSlice[T](r, int(n))
}
