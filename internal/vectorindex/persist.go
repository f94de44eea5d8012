package vectorindex

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Vector file layout, little-endian:
//
//	magic   [4]byte "DCVX"
//	version uint32
//	rows    uint32
//	dim     uint32
//	data    rows*dim float32
var vectorMagic = [4]byte{'D', 'C', 'V', 'X'}

const vectorFormatVersion = 1

var ErrCorrupt = errors.New("embedding files are corrupt")

func encodeVectors(w io.Writer, snap *snapshot) error {
	header := []uint32{vectorFormatVersion, uint32(snap.len()), uint32(snap.dim)}
	if _, err := w.Write(vectorMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}

	buf := make([]byte, 4*snap.dim)
	for _, v := range snap.vectors {
		for i, f := range v {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func decodeVectors(data []byte) ([][]float32, int, error) {
	const headerLen = 16
	if len(data) < headerLen || !bytes.Equal(data[:4], vectorMagic[:]) {
		return nil, 0, fmt.Errorf("%w: bad header", ErrCorrupt)
	}
	version := binary.LittleEndian.Uint32(data[4:])
	rows := int(binary.LittleEndian.Uint32(data[8:]))
	dim := int(binary.LittleEndian.Uint32(data[12:]))
	if version != vectorFormatVersion {
		return nil, 0, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, version)
	}
	if len(data)-headerLen != rows*dim*4 {
		return nil, 0, fmt.Errorf("%w: expected %d rows of %d, have %d bytes", ErrCorrupt, rows, dim, len(data)-headerLen)
	}

	vectors := make([][]float32, rows)
	off := headerLen
	for r := 0; r < rows; r++ {
		v := make([]float32, dim)
		for i := range v {
			v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		vectors[r] = v
	}
	return vectors, dim, nil
}

// readSnapshot loads both files. If neither exists the result is an empty
// snapshot; if only one exists the pair is treated as corrupt.
func readSnapshot(vectorsPath, mappingPath string) (*snapshot, error) {
	empty := &snapshot{rows: map[int64]int{}}

	vecData, vecErr := os.ReadFile(vectorsPath)
	mapData, mapErr := os.ReadFile(mappingPath)
	if os.IsNotExist(vecErr) && os.IsNotExist(mapErr) {
		return empty, nil
	}
	if vecErr != nil {
		return nil, fmt.Errorf("read %s: %w", vectorsPath, vecErr)
	}
	if mapErr != nil {
		return nil, fmt.Errorf("read %s: %w", mappingPath, mapErr)
	}

	vectors, dim, err := decodeVectors(vecData)
	if err != nil {
		return nil, err
	}

	rows := map[int64]int{}
	if err := json.Unmarshal(mapData, &rows); err != nil {
		return nil, fmt.Errorf("%w: mapping: %v", ErrCorrupt, err)
	}
	for id, row := range rows {
		if row < 0 || row >= len(vectors) {
			return nil, fmt.Errorf("%w: section %d maps to row %d of %d", ErrCorrupt, id, row, len(vectors))
		}
	}

	return &snapshot{vectors: vectors, rows: rows, dim: dim}, nil
}

func writeSnapshot(vectorsPath, mappingPath string, snap *snapshot) error {
	var vec bytes.Buffer
	if err := encodeVectors(&vec, snap); err != nil {
		return err
	}
	mapping, err := json.Marshal(snap.rows)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(vectorsPath, vec.Bytes()); err != nil {
		return err
	}
	return writeFileAtomic(mappingPath, mapping)
}

// writeFileAtomic replaces path via a temp file in the same directory so a
// crash never leaves a half-written file behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
