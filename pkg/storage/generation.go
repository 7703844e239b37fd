// Package storage persists BFS generations: the immutable record set
// a round produces and the next round consumes. Records are written
// snappy-compressed with per-record checksums; a generation file is
// never modified after it is written, only deleted by the
// orchestrator once it is two rounds old.
package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/snappy"

	"github.com/dd0wney/wikibfs/pkg/mapred"
)

// GenerationStore reads and writes generation files under one data
// directory. The zero round is the extraction output; round k holds
// the merged records of BFS round k.
type GenerationStore struct {
	dataDir string

	mu    sync.Mutex
	stats GenerationStats
}

// GenerationStats tracks cumulative write volume and compression.
type GenerationStats struct {
	GenerationsWritten uint64
	RecordsWritten     uint64
	BytesUncompressed  uint64
	BytesCompressed    uint64
}

// CompressionRatio returns the fraction of bytes saved by compression.
func (s GenerationStats) CompressionRatio() float64 {
	if s.BytesUncompressed == 0 {
		return 0
	}
	return 1.0 - float64(s.BytesCompressed)/float64(s.BytesUncompressed)
}

// NewGenerationStore creates the data directory if needed.
func NewGenerationStore(dataDir string) (*GenerationStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create generation directory: %w", err)
	}
	return &GenerationStore{dataDir: dataDir}, nil
}

// Path returns the file path of a generation.
func (s *GenerationStore) Path(round int) string {
	return filepath.Join(s.dataDir, fmt.Sprintf("gen-%05d.seg", round))
}

// Write durably persists one generation. The file is written to a
// temporary name and renamed into place after a sync, so a generation
// either exists completely or not at all; re-running a failed write
// is safe.
func (s *GenerationStore) Write(round int, records []mapred.KV) error {
	tmpPath := s.Path(round) + ".tmp"

	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create generation file: %w", err)
	}

	writer := bufio.NewWriter(file)
	var uncompressed, compressed uint64

	for _, kv := range records {
		n, err := writeRecord(writer, kv)
		if err != nil {
			file.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("generation %d: %w", round, err)
		}
		uncompressed += uint64(len(kv.Value))
		compressed += uint64(n)
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("generation %d: flush: %w", round, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("generation %d: sync: %w", round, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("generation %d: close: %w", round, err)
	}

	if err := os.Rename(tmpPath, s.Path(round)); err != nil {
		return fmt.Errorf("generation %d: rename: %w", round, err)
	}

	s.mu.Lock()
	s.stats.GenerationsWritten++
	s.stats.RecordsWritten += uint64(len(records))
	s.stats.BytesUncompressed += uncompressed
	s.stats.BytesCompressed += compressed
	s.mu.Unlock()

	return nil
}

// writeRecord writes one framed record and returns the compressed
// value size.
// Format: [KeyLen:4][Key][DataLen:4][Data:N][Checksum:4]
func writeRecord(w *bufio.Writer, kv mapred.KV) (int, error) {
	compressedValue := snappy.Encode(nil, []byte(kv.Value))

	if err := binary.Write(w, binary.BigEndian, uint32(len(kv.Key))); err != nil {
		return 0, err
	}
	if _, err := w.WriteString(kv.Key); err != nil {
		return 0, err
	}

	if err := binary.Write(w, binary.BigEndian, uint32(len(compressedValue))); err != nil {
		return 0, err
	}
	if _, err := w.Write(compressedValue); err != nil {
		return 0, err
	}

	checksum := crc32.ChecksumIEEE(compressedValue)
	if err := binary.Write(w, binary.BigEndian, checksum); err != nil {
		return 0, err
	}

	return len(compressedValue), nil
}

// Read loads all records of a generation. A framing or checksum
// error is storage corruption and fails the read.
func (s *GenerationStore) Read(round int) ([]mapred.KV, error) {
	file, err := os.Open(s.Path(round))
	if err != nil {
		return nil, fmt.Errorf("generation %d: %w", round, err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	var records []mapred.KV

	for {
		kv, err := readRecord(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("generation %d: %w", round, err)
		}
		records = append(records, kv)
	}

	return records, nil
}

func readRecord(r *bufio.Reader) (mapred.KV, error) {
	var keyLen uint32
	if err := binary.Read(r, binary.BigEndian, &keyLen); err != nil {
		if err == io.EOF {
			return mapred.KV{}, io.EOF
		}
		return mapred.KV{}, fmt.Errorf("key length: %w", err)
	}

	key := make([]byte, keyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return mapred.KV{}, fmt.Errorf("key: %w", err)
	}

	var dataLen uint32
	if err := binary.Read(r, binary.BigEndian, &dataLen); err != nil {
		return mapred.KV{}, fmt.Errorf("data length: %w", err)
	}

	compressedValue := make([]byte, dataLen)
	if _, err := io.ReadFull(r, compressedValue); err != nil {
		return mapred.KV{}, fmt.Errorf("data: %w", err)
	}

	var checksum uint32
	if err := binary.Read(r, binary.BigEndian, &checksum); err != nil {
		return mapred.KV{}, fmt.Errorf("checksum: %w", err)
	}
	if crc32.ChecksumIEEE(compressedValue) != checksum {
		return mapred.KV{}, fmt.Errorf("checksum mismatch for key %q", string(key))
	}

	value, err := snappy.Decode(nil, compressedValue)
	if err != nil {
		return mapred.KV{}, fmt.Errorf("failed to decompress record %q: %w", string(key), err)
	}

	return mapred.KV{Key: string(key), Value: string(value)}, nil
}

// Delete reclaims a generation's storage. Deleting a generation that
// was never written (or is already gone) is not an error, which keeps
// the orchestrator's reclaim schedule simple.
func (s *GenerationStore) Delete(round int) error {
	if err := os.Remove(s.Path(round)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("generation %d: %w", round, err)
	}
	return nil
}

// Exists reports whether a generation file is present on disk.
func (s *GenerationStore) Exists(round int) bool {
	_, err := os.Stat(s.Path(round))
	return err == nil
}

// Stats returns cumulative write statistics.
func (s *GenerationStore) Stats() GenerationStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
