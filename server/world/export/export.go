// Package export writes realised terrain to zstd compressed snapshot files and
// reads them back.
package export

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/orchardguard/tractor/server/world"
	"github.com/orchardguard/tractor/server/world/stream"
	"github.com/orchardguard/tractor/server/world/terrain"
)

// Version is the snapshot format written by Write.
const Version = 1

// ErrVersion is returned when reading a snapshot of an unsupported version.
var ErrVersion = errors.New("export: unsupported snapshot version")

// Header is written as a JSON line in front of the snapshot body so that tools
// can inspect a file without decoding the chunks.
type Header struct {
	Version      int     `json:"version"`
	Seed         int64   `json:"seed"`
	Tick         int64   `json:"tick"`
	Chunks       int     `json:"chunks"`
	SizeX        float64 `json:"size_x"`
	SizeZ        float64 `json:"size_z"`
	Subdivisions int     `json:"subdivisions"`
	CreatedAt    string  `json:"created_at"`
}

// Snapshot is the full content of a snapshot file.
type Snapshot struct {
	Header  Header
	Columns []*stream.Column
}

// Capture takes a snapshot of every chunk realised in w.
func Capture(w *world.World) Snapshot {
	var snap Snapshot
	<-w.Exec(func(tx *world.Tx) {
		snap = CaptureTx(tx)
	})
	return snap
}

// CaptureTx takes a snapshot of every chunk realised in the World of tx. It is
// used by code that already runs inside a transaction.
func CaptureTx(tx *world.Tx) Snapshot {
	w := tx.World()
	cols := tx.Columns()
	conf := w.Terrain()
	return Snapshot{
		Header: Header{
			Version:      Version,
			Seed:         w.Seed(),
			Tick:         w.CurrentTick(),
			Chunks:       len(cols),
			SizeX:        conf.SizeX,
			SizeZ:        conf.SizeZ,
			Subdivisions: conf.Subdivisions,
			CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		},
		Columns: cols,
	}
}

// Write writes snap to path, creating parent directories as needed.
func Write(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()
	bw := bufio.NewWriterSize(enc, 256*1024)

	if snap.Header.Version == 0 {
		snap.Header.Version = Version
	}
	snap.Header.Chunks = len(snap.Columns)
	hb, err := json.Marshal(snap.Header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(snap.Columns); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}

// Read reads a snapshot written by Write.
func Read(path string) (Snapshot, error) {
	var snap Snapshot
	err := read(path, func(br *bufio.Reader, h Header) error {
		snap.Header = h
		if err := gob.NewDecoder(br).Decode(&snap.Columns); err != nil {
			return fmt.Errorf("gob decode: %w", err)
		}
		return nil
	})
	return snap, err
}

// ReadHeader reads only the header of the snapshot at path.
func ReadHeader(path string) (Header, error) {
	var header Header
	err := read(path, func(_ *bufio.Reader, h Header) error {
		header = h
		return nil
	})
	return header, err
}

func read(path string, f func(br *bufio.Reader, h Header) error) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	dec, err := zstd.NewReader(file)
	if err != nil {
		return err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return fmt.Errorf("read snapshot %v: version %d: %w", path, h.Version, ErrVersion)
	}
	return f(br, h)
}

// Column returns the column at pos in snap.
func (snap Snapshot) Column(pos terrain.ChunkPos) (*stream.Column, bool) {
	for _, col := range snap.Columns {
		if col.Pos() == pos {
			return col, true
		}
	}
	return nil, false
}
