package feature

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeVector(t *testing.T, values []float32) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "potential.bin")
	if err := Write(path, values); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return path
}

func TestRoundTripExact(t *testing.T) {
	values := []float32{512.25, 37.0, 10.5}
	path := writeVector(t, values)

	got, err := File{Path: path}.At(0)
	if err != nil {
		t.Fatalf("At(0): %v", err)
	}
	if got != 512.25 {
		t.Fatalf("At(0) = %v, want 512.25", got)
	}

	all, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff(values, all); diff != "" {
		t.Errorf("Read mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripPreservesBits(t *testing.T) {
	values := []float32{
		0, float32(math.Copysign(0, -1)), math.SmallestNonzeroFloat32, math.MaxFloat32,
		float32(math.Inf(1)), float32(math.Inf(-1)), 1.0 / 3.0,
	}
	got, err := Decode(Encode(values))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := range values {
		if math.Float32bits(values[i]) != math.Float32bits(got[i]) {
			t.Errorf("index %d: bits %08x != %08x", i, math.Float32bits(values[i]), math.Float32bits(got[i]))
		}
	}

	nan := float32(math.NaN())
	got, _ = Decode(Encode([]float32{nan}))
	if math.Float32bits(got[0]) != math.Float32bits(nan) {
		t.Error("NaN payload not preserved")
	}
}

func TestLittleEndianLayout(t *testing.T) {
	// 1.0f = 0x3f800000
	data := Encode([]float32{1.0})
	want := []byte{0x00, 0x00, 0x80, 0x3f}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("layout mismatch (-want +got):\n%s", diff)
	}
}

func TestFileAtEachOffset(t *testing.T) {
	values := []float32{512.25, 37.0, 10.5}
	path := writeVector(t, values)
	src := File{Path: path}

	for i, want := range values {
		got, err := src.At(i)
		if err != nil {
			t.Fatalf("At(%d): %v", i, err)
		}
		if got != want {
			t.Errorf("At(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestFileMissingIsUnavailable(t *testing.T) {
	_, err := File{Path: filepath.Join(t.TempDir(), "absent.bin")}.At(0)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestFileOutOfRange(t *testing.T) {
	path := writeVector(t, []float32{1, 2})
	src := File{Path: path}

	for _, idx := range []int{-1, 2, 1000} {
		if _, err := src.At(idx); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("At(%d) err = %v, want ErrOutOfRange", idx, err)
		}
	}
}

func TestFileShortRecordIsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bin")
	data := append(Encode([]float32{600}), 0x01, 0x02)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if v, err := (File{Path: path}).At(0); err != nil || v != 600 {
		t.Fatalf("At(0) = %v, %v", v, err)
	}
	if _, err := (File{Path: path}).At(1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("At(1) err = %v, want ErrOutOfRange", err)
	}
	if _, err := Read(path); err == nil {
		t.Error("Read should reject a partial trailing record")
	}
}

func TestWriteReplacesAtomically(t *testing.T) {
	path := writeVector(t, []float32{1, 2, 3})
	if err := Write(path, []float32{9}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff([]float32{9}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the vector file, found %d entries", len(entries))
	}
}

func TestVectorAt(t *testing.T) {
	v := Vector{600}
	if got, err := v.At(0); err != nil || got != 600 {
		t.Errorf("At(0) = %v, %v", got, err)
	}
	if _, err := v.At(1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("At(1) err = %v", err)
	}
}

func TestCacheReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "potential.bin")

	c, err := NewCache(path)
	if err != nil {
		t.Fatalf("NewCache on missing file: %v", err)
	}
	if _, err := c.At(0); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("At before file exists: %v", err)
	}

	if err := Write(path, []float32{600, 1}); err != nil {
		t.Fatal(err)
	}
	if err := c.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got, err := c.At(0); err != nil || got != 600 {
		t.Fatalf("At(0) = %v, %v", got, err)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d", c.Len())
	}

	os.Remove(path)
	c.Reload()
	if _, err := c.At(0); !errors.Is(err, ErrUnavailable) {
		t.Errorf("At after removal: %v", err)
	}
}

func TestCacheCorruptFileDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	os.WriteFile(path, []byte{1, 2, 3}, 0o644)

	c, err := NewCache(path)
	if err == nil {
		t.Fatal("expected NewCache to report a corrupt file")
	}
	if c != nil {
		t.Error("expected nil cache on corrupt file")
	}
}

func TestCacheConcurrentReaders(t *testing.T) {
	path := writeVector(t, []float32{1, 2, 3, 4})
	c, err := NewCache(path)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.At(j % 4)
				if i == 0 && j%50 == 0 {
					c.Reload()
				}
			}
		}(i)
	}
	wg.Wait()
}
