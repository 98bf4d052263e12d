package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// lasHeader represents the subset of the LAS public header block needed for
// elevation extraction.
type lasHeader struct {
	VersionMajor   uint8
	VersionMinor   uint8
	PointFormat    uint8
	RecordLength   uint16
	PointCount     uint64
	OffsetToPoints uint32
	ScaleX         float64
	ScaleY         float64
	ScaleZ         float64
	OffsetX        float64
	OffsetY        float64
	OffsetZ        float64
	MinX           float64
	MaxX           float64
	MinY           float64
	MaxY           float64
	MinZ           float64
	MaxZ           float64
}

// lasPoint represents one decoded point record: projected position, elevation
// and ASPRS classification.
type lasPoint struct {
	X              float64
	Y              float64
	Z              float64
	Classification uint8
}

// lasHeaderSize14 is the public header size of LAS 1.4; earlier versions carry
// a shorter header, so the read buffer is sized for the maximum.
const lasHeaderSize14 = 375

/*
readLASHeader parses the public header block of a LAS file. LAZ (compressed)
payloads are rejected: the point format field carries the compression bit.
*/
func readLASHeader(reader io.Reader) (lasHeader, error) {
	var header lasHeader

	buffer := make([]byte, lasHeaderSize14)
	n, err := io.ReadFull(reader, buffer[:227])
	if err != nil {
		return header, fmt.Errorf("error reading LAS public header (%d bytes read): %w", n, err)
	}

	if string(buffer[0:4]) != "LASF" {
		return header, fmt.Errorf("not a LAS file: signature [%q] instead of LASF", buffer[0:4])
	}

	header.VersionMajor = buffer[24]
	header.VersionMinor = buffer[25]
	header.OffsetToPoints = binary.LittleEndian.Uint32(buffer[96:100])
	header.PointFormat = buffer[104]
	header.RecordLength = binary.LittleEndian.Uint16(buffer[105:107])
	header.PointCount = uint64(binary.LittleEndian.Uint32(buffer[107:111]))

	header.ScaleX = math.Float64frombits(binary.LittleEndian.Uint64(buffer[131:139]))
	header.ScaleY = math.Float64frombits(binary.LittleEndian.Uint64(buffer[139:147]))
	header.ScaleZ = math.Float64frombits(binary.LittleEndian.Uint64(buffer[147:155]))
	header.OffsetX = math.Float64frombits(binary.LittleEndian.Uint64(buffer[155:163]))
	header.OffsetY = math.Float64frombits(binary.LittleEndian.Uint64(buffer[163:171]))
	header.OffsetZ = math.Float64frombits(binary.LittleEndian.Uint64(buffer[171:179]))

	header.MaxX = math.Float64frombits(binary.LittleEndian.Uint64(buffer[179:187]))
	header.MinX = math.Float64frombits(binary.LittleEndian.Uint64(buffer[187:195]))
	header.MaxY = math.Float64frombits(binary.LittleEndian.Uint64(buffer[195:203]))
	header.MinY = math.Float64frombits(binary.LittleEndian.Uint64(buffer[203:211]))
	header.MaxZ = math.Float64frombits(binary.LittleEndian.Uint64(buffer[211:219]))
	header.MinZ = math.Float64frombits(binary.LittleEndian.Uint64(buffer[219:227]))

	// bit 7 of the point format marks LAZ compression
	if header.PointFormat&0x80 != 0 {
		return header, fmt.Errorf("compressed LAZ point data is not supported (point format 0x%02x)", header.PointFormat)
	}

	// LAS 1.4 moved the authoritative point count behind the legacy field
	if header.VersionMajor == 1 && header.VersionMinor >= 4 {
		rest := buffer[227:lasHeaderSize14]
		if _, err := io.ReadFull(reader, rest); err != nil {
			return header, fmt.Errorf("error reading LAS 1.4 header extension: %w", err)
		}
		count := binary.LittleEndian.Uint64(buffer[247:255])
		if count > 0 {
			header.PointCount = count
		}
	}

	if header.PointFormat > 10 {
		return header, fmt.Errorf("unsupported point data record format %d", header.PointFormat)
	}
	classOffset := lasClassificationOffset(header.PointFormat)
	if int(header.RecordLength) <= classOffset {
		return header, fmt.Errorf("point record length %d too short for format %d", header.RecordLength, header.PointFormat)
	}

	return header, nil
}

/*
lasClassificationOffset returns the byte offset of the classification field
inside a point record. Formats 0-5 store it in byte 15 (class in the lower 5
bits), formats 6-10 in byte 16 as a full byte.
*/
func lasClassificationOffset(pointFormat uint8) int {
	if pointFormat <= 5 {
		return 15
	}
	return 16
}

/*
readLASPoints reads and decodes all point records of a LAS file. The X/Y/Z
integers are scaled and offset per the header, yielding coordinates in the
projected CRS of the archive.
*/
func readLASPoints(path string) (lasHeader, []lasPoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return lasHeader{}, nil, fmt.Errorf("error [%w] at os.Open(), file %s", err, path)
	}
	defer file.Close()

	header, err := readLASHeader(bufio.NewReader(file))
	if err != nil {
		return header, nil, fmt.Errorf("error reading LAS header of [%s]: %w", path, err)
	}

	// the header point count is untrusted input; cap it against the number of
	// records the file can physically hold before allocating
	info, err := file.Stat()
	if err != nil {
		return header, nil, fmt.Errorf("error [%w] at file.Stat(), file %s", err, path)
	}
	var maxRecords uint64
	if info.Size() > int64(header.OffsetToPoints) {
		maxRecords = uint64(info.Size()-int64(header.OffsetToPoints)) / uint64(header.RecordLength)
	}
	if header.PointCount > maxRecords {
		return header, nil, fmt.Errorf("header of [%s] declares %d point records, file can hold at most %d", path, header.PointCount, maxRecords)
	}

	if _, err := file.Seek(int64(header.OffsetToPoints), io.SeekStart); err != nil {
		return header, nil, fmt.Errorf("error [%w] at file.Seek(), file %s", err, path)
	}

	reader := bufio.NewReaderSize(file, 1024*1024)
	classOffset := lasClassificationOffset(header.PointFormat)
	classMask := uint8(0xff)
	if header.PointFormat <= 5 {
		classMask = 0x1f
	}

	points := make([]lasPoint, 0, header.PointCount)
	record := make([]byte, header.RecordLength)
	for i := uint64(0); i < header.PointCount; i++ {
		if _, err := io.ReadFull(reader, record); err != nil {
			return header, nil, fmt.Errorf("error reading point record %d of %d from [%s]: %w", i, header.PointCount, path, err)
		}

		rawX := int32(binary.LittleEndian.Uint32(record[0:4]))
		rawY := int32(binary.LittleEndian.Uint32(record[4:8]))
		rawZ := int32(binary.LittleEndian.Uint32(record[8:12]))

		points = append(points, lasPoint{
			X:              float64(rawX)*header.ScaleX + header.OffsetX,
			Y:              float64(rawY)*header.ScaleY + header.OffsetY,
			Z:              float64(rawZ)*header.ScaleZ + header.OffsetZ,
			Classification: record[classOffset] & classMask,
		})
	}

	return header, points, nil
}
