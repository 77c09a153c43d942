// Package feature reads the externally produced potential-data vector:
// consecutive little-endian float32 values, element N at byte offset N*4.
package feature

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// RecordSize is the width of one encoded element.
const RecordSize = 4

var (
	// ErrUnavailable means the source itself is missing.
	ErrUnavailable = errors.New("feature: source unavailable")
	// ErrOutOfRange means the index is negative or past the end.
	ErrOutOfRange = errors.New("feature: index out of range")
)

// Source yields one feature value by index. Implementations never write.
type Source interface {
	At(index int) (float32, error)
}

// File reads a single element from disk on each call.
type File struct {
	Path string
}

// At seeks to index*4 and decodes one float32.
func (f File) At(index int) (float32, error) {
	if index < 0 {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrUnavailable, f.Path)
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer fh.Close()

	var buf [RecordSize]byte
	if _, err := fh.ReadAt(buf[:], int64(index)*RecordSize); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("%w: %d", ErrOutOfRange, index)
		}
		return 0, fmt.Errorf("feature: read %s: %w", f.Path, err)
	}
	return decode(buf[:]), nil
}

// Vector is an in-memory Source.
type Vector []float32

// At returns v[index].
func (v Vector) At(index int) (float32, error) {
	if index < 0 || index >= len(v) {
		return 0, fmt.Errorf("%w: %d (len %d)", ErrOutOfRange, index, len(v))
	}
	return v[index], nil
}

// Encode serializes values in the on-disk format.
func Encode(values []float32) []byte {
	out := make([]byte, len(values)*RecordSize)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*RecordSize:], math.Float32bits(v))
	}
	return out
}

// Decode parses the on-disk format. A trailing partial record is an error.
func Decode(data []byte) ([]float32, error) {
	if len(data)%RecordSize != 0 {
		return nil, fmt.Errorf("feature: %d bytes is not a multiple of %d", len(data), RecordSize)
	}
	out := make([]float32, len(data)/RecordSize)
	for i := range out {
		out[i] = decode(data[i*RecordSize:])
	}
	return out, nil
}

func decode(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// Read loads the whole vector from path.
func Read(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, path)
		}
		return nil, fmt.Errorf("feature: read %s: %w", path, err)
	}
	return Decode(data)
}

// Write replaces path with values. The file is written to a temp file in the
// same directory and renamed into place, so readers see the old or the new
// vector, never a partial one.
func Write(path string, values []float32) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("feature: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("feature: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(Encode(values)); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("feature: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("feature: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("feature: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("feature: rename: %w", err)
	}
	return nil
}
