package main

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	testLASScale        = 0.001
	testLASHeaderSize   = 227
	testLASRecordLength = 20
)

// encodeTestLAS builds a minimal LAS 1.2, point format 0 payload.
func encodeTestLAS(points []lasPoint) []byte {
	header := make([]byte, testLASHeaderSize)
	copy(header[0:4], "LASF")
	header[24] = 1 // version major
	header[25] = 2 // version minor
	binary.LittleEndian.PutUint32(header[96:100], testLASHeaderSize)
	header[104] = 0 // point format
	binary.LittleEndian.PutUint16(header[105:107], testLASRecordLength)
	binary.LittleEndian.PutUint32(header[107:111], uint32(len(points)))

	for i, scale := range []float64{testLASScale, testLASScale, testLASScale} {
		binary.LittleEndian.PutUint64(header[131+i*8:], math.Float64bits(scale))
	}
	// offsets X/Y/Z stay zero, bounds are not needed by the reader

	buffer := bytes.NewBuffer(header)
	record := make([]byte, testLASRecordLength)
	for _, p := range points {
		binary.LittleEndian.PutUint32(record[0:4], uint32(int32(math.Round(p.X/testLASScale))))
		binary.LittleEndian.PutUint32(record[4:8], uint32(int32(math.Round(p.Y/testLASScale))))
		binary.LittleEndian.PutUint32(record[8:12], uint32(int32(math.Round(p.Z/testLASScale))))
		record[15] = p.Classification
		buffer.Write(record)
	}
	return buffer.Bytes()
}

func writeTestLAS(t *testing.T, points []lasPoint) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.las")
	if err := os.WriteFile(path, encodeTestLAS(points), 0o644); err != nil {
		t.Fatalf("writing test LAS file: %v", err)
	}
	return path
}

func TestReadLASPoints(t *testing.T) {
	want := []lasPoint{
		{X: 500123.456, Y: 7001234.789, Z: 52.5, Classification: GroundClassification},
		{X: 500130.0, Y: 7001240.0, Z: 61.25, Classification: 1},
	}
	path := writeTestLAS(t, want)

	header, points, err := readLASPoints(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if header.VersionMajor != 1 || header.VersionMinor != 2 {
		t.Errorf("unexpected version %d.%d", header.VersionMajor, header.VersionMinor)
	}
	if header.PointCount != uint64(len(want)) {
		t.Errorf("expected %d points in header, got %d", len(want), header.PointCount)
	}
	if len(points) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(points))
	}
	for i, p := range points {
		if math.Abs(p.X-want[i].X) > testLASScale || math.Abs(p.Y-want[i].Y) > testLASScale || math.Abs(p.Z-want[i].Z) > testLASScale {
			t.Errorf("point %d: expected (%f, %f, %f), got (%f, %f, %f)",
				i, want[i].X, want[i].Y, want[i].Z, p.X, p.Y, p.Z)
		}
		if p.Classification != want[i].Classification {
			t.Errorf("point %d: expected classification %d, got %d", i, want[i].Classification, p.Classification)
		}
	}
}

func TestReadLASClassificationMask(t *testing.T) {
	// formats 0-5 carry synthetic/key-point flags in the upper 3 bits
	path := writeTestLAS(t, []lasPoint{
		{X: 1, Y: 2, Z: 3, Classification: 0xe0 | GroundClassification},
	})

	_, points, err := readLASPoints(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if points[0].Classification != GroundClassification {
		t.Errorf("expected flag bits masked off, got classification %d", points[0].Classification)
	}
}

func TestReadLASRejectsLAZ(t *testing.T) {
	data := encodeTestLAS([]lasPoint{{X: 1, Y: 2, Z: 3}})
	data[104] |= 0x80 // compression bit

	_, err := readLASHeader(bytes.NewReader(data))
	if err == nil || !strings.Contains(err.Error(), "LAZ") {
		t.Errorf("expected LAZ rejection, got %v", err)
	}
}

func TestReadLASBadSignature(t *testing.T) {
	data := encodeTestLAS([]lasPoint{{X: 1, Y: 2, Z: 3}})
	copy(data[0:4], "XXXX")

	_, err := readLASHeader(bytes.NewReader(data))
	if err == nil {
		t.Error("expected error for bad signature")
	}
}

func TestReadLASCorruptPointCount(t *testing.T) {
	// header claims vastly more records than the file holds; the reader must
	// fail instead of allocating for the declared count
	data := encodeTestLAS([]lasPoint{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}})
	binary.LittleEndian.PutUint32(data[107:111], 1<<30)
	path := filepath.Join(t.TempDir(), "corrupt.las")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing test LAS file: %v", err)
	}

	_, _, err := readLASPoints(path)
	if err == nil || !strings.Contains(err.Error(), "can hold at most") {
		t.Errorf("expected point count rejection, got %v", err)
	}
}

func TestReadLASTruncatedPoints(t *testing.T) {
	data := encodeTestLAS([]lasPoint{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}})
	path := filepath.Join(t.TempDir(), "truncated.las")
	if err := os.WriteFile(path, data[:len(data)-10], 0o644); err != nil {
		t.Fatalf("writing test LAS file: %v", err)
	}

	_, _, err := readLASPoints(path)
	if err == nil {
		t.Error("expected error for truncated point data")
	}
}
