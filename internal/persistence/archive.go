// Snapshot series export: newline-delimited JSON compressed with
// zstd, one record per simulated day. Meant for offline analysis, not
// for resume.
package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/realmsim/internal/econ"
)

// ExportArchive writes the snapshot series to path as zstd-compressed
// JSON lines.
func ExportArchive(path string, series []econ.EconomySnapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}

	enc := json.NewEncoder(zw)
	for i := range series {
		if err := enc.Encode(&series[i]); err != nil {
			zw.Close()
			return fmt.Errorf("encode day %d: %w", series[i].Day, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

// ImportArchive reads a snapshot series written by ExportArchive.
func ImportArchive(path string) ([]econ.EconomySnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer zr.Close()

	var series []econ.EconomySnapshot
	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		var snap econ.EconomySnapshot
		if err := json.Unmarshal(sc.Bytes(), &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		series = append(series, snap)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return series, nil
}
