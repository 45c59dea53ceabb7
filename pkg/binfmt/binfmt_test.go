package binfmt

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	ints := []uint32{1, 2, 3, 40_000}
	floats := []float64{0.5, -1.25, 1e9}

	err := AtomicWrite(path, func(w io.Writer) error {
		if err := WriteSlice(w, ints); err != nil {
			return err
		}
		return WriteLenPrefixed(w, floats)
	})
	require.NoError(t, err)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be gone")

	var gotInts []uint32
	var gotFloats []float64
	err = ReadVerified(path, func(r io.Reader) error {
		var err error
		if gotInts, err = ReadSlice[uint32](r, len(ints)); err != nil {
			return err
		}
		gotFloats, err = ReadLenPrefixed[float64](r, 10)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, ints, gotInts)
	assert.Equal(t, floats, gotFloats)
}

func TestReadVerifiedDetectsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, AtomicWrite(path, func(w io.Writer) error {
		return WriteSlice(w, []uint32{7, 8, 9})
	}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[0] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	err = ReadVerified(path, func(r io.Reader) error {
		_, err := ReadSlice[uint32](r, 3)
		return err
	})
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestReadLenPrefixedLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, AtomicWrite(path, func(w io.Writer) error {
		return binary.Write(w, binary.LittleEndian, uint32(1000))
	}))

	err := ReadVerified(path, func(r io.Reader) error {
		_, err := ReadLenPrefixed[float32](r, 10)
		return err
	})
	assert.ErrorContains(t, err, "exceeds limit")
}

func TestReplaceFileKeepsOldOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chargers.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	boom := errors.New("boom")
	err := ReplaceFile(path, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}
