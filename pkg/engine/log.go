package engine

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ssargent/blinkdb/pkg/codec"
)

// LogEngine is an append-only durable Engine: every Put or Update appends a
// fresh record (recid, bytes) to the tail of a single file, and an
// in-memory index remembers the byte offset of each recid's most recent
// record. "Update" therefore never rewrites a byte in place; the log grows
// and the old copy becomes dead space, exactly like pkg/store's log-backed
// KVStore treats an overwritten key.
//
// Grounded on pkg/store's LogWriter (buffered append + fsync-on-commit) and
// LogReader (CRC32-framed record decode, linear scan to rebuild an index at
// open), both driven through codec.RecordCodec — here the codec's "key" is
// the recid, big-endian encoded as 8 bytes.
type LogEngine struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	codec   *codec.RecordCodec
	offsets map[int64]int64
	offset  int64
	nextID  atomic.Int64
	closed  bool
}

// OpenLogEngine opens (creating if absent) the log file at path and replays
// it to rebuild the recid -> offset index, mirroring the recovery scan
// pkg/store's KVStore performs when it opens its own log.
func OpenLogEngine(path string) (*LogEngine, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("engine: create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("engine: open log file: %w", err)
	}

	e := &LogEngine{
		file:    file,
		codec:   codec.NewRecordCodec(),
		offsets: make(map[int64]int64),
	}
	e.nextID.Store(CatalogRecid + 1)

	if err := e.replay(); err != nil {
		file.Close()
		return nil, err
	}

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		return nil, fmt.Errorf("engine: seek to end of log: %w", err)
	}
	e.writer = bufio.NewWriter(file)

	return e, nil
}

func (e *LogEngine) replay() error {
	reader := bufio.NewReader(e.file)
	var offset int64
	maxID := e.nextID.Load() - 1

	for {
		header := make([]byte, 20)
		if _, err := io.ReadFull(reader, header); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("engine: replay log header: %w", err)
		}

		keySize := binary.LittleEndian.Uint32(header[4:8])
		valueSize := binary.LittleEndian.Uint32(header[8:12])
		body := make([]byte, keySize+valueSize)
		if _, err := io.ReadFull(reader, body); err != nil {
			return fmt.Errorf("engine: replay log body: %w", err)
		}

		full := make([]byte, 20+len(body))
		copy(full, header)
		copy(full[20:], body)

		record, err := e.codec.Decode(full)
		if err != nil {
			return fmt.Errorf("engine: decode replayed record at offset %d: %w", offset, err)
		}
		if err := record.Validate(); err != nil {
			return fmt.Errorf("engine: corrupt record at offset %d: %w", offset, err)
		}

		recid, ok := decodeRecid(record.Key)
		if !ok {
			return fmt.Errorf("%w: replayed record key is not a recid", ErrNotFound)
		}
		e.offsets[recid] = offset
		if recid > maxID {
			maxID = recid
		}
		offset += int64(len(full))
	}

	e.offset = offset
	e.nextID.Store(maxID + 1)
	return nil
}

func decodeRecid(b []byte) (int64, bool) {
	if len(b) != 8 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(b)), true
}

func encodeRecid(recid int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(recid))
	return buf
}

// Get implements Engine.
func (e *LogEngine) Get(recid int64) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	offset, ok := e.offsets[recid]
	if !ok {
		return nil, ErrNotFound
	}
	if err := e.writer.Flush(); err != nil {
		return nil, fmt.Errorf("engine: flush before read: %w", err)
	}
	return e.readAt(offset)
}

func (e *LogEngine) readAt(offset int64) ([]byte, error) {
	header := make([]byte, 20)
	if _, err := e.file.ReadAt(header, offset); err != nil {
		return nil, fmt.Errorf("engine: read record header: %w", err)
	}
	keySize := binary.LittleEndian.Uint32(header[4:8])
	valueSize := binary.LittleEndian.Uint32(header[8:12])
	body := make([]byte, keySize+valueSize)
	if _, err := e.file.ReadAt(body, offset+20); err != nil {
		return nil, fmt.Errorf("engine: read record body: %w", err)
	}
	full := make([]byte, 20+len(body))
	copy(full, header)
	copy(full[20:], body)
	record, err := e.codec.Decode(full)
	if err != nil {
		return nil, fmt.Errorf("engine: decode record: %w", err)
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("engine: corrupt record: %w", err)
	}
	return record.Value, nil
}

func (e *LogEngine) append(recid int64, data []byte) error {
	encoded, err := e.codec.Encode(encodeRecid(recid), data)
	if err != nil {
		return fmt.Errorf("engine: encode record: %w", err)
	}
	n, err := e.writer.Write(encoded)
	if err != nil {
		return fmt.Errorf("engine: append record: %w", err)
	}
	e.offsets[recid] = e.offset
	e.offset += int64(n)
	return nil
}

// Put implements Engine.
func (e *LogEngine) Put(data []byte) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, ErrClosed
	}
	recid := e.nextID.Add(1) - 1
	if err := e.append(recid, data); err != nil {
		return 0, err
	}
	return recid, nil
}

// Update implements Engine.
func (e *LogEngine) Update(recid int64, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.append(recid, data)
}

// Commit implements Engine: flushes the buffered writer and fsyncs the file,
// the same two-step pkg/store's LogWriter.sync performs on every commit.
func (e *LogEngine) Commit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if err := e.writer.Flush(); err != nil {
		return fmt.Errorf("engine: flush log: %w", err)
	}
	return e.file.Sync()
}

// Close implements Engine.
func (e *LogEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	if err := e.writer.Flush(); err != nil {
		e.file.Close()
		return fmt.Errorf("engine: flush log on close: %w", err)
	}
	e.closed = true
	return e.file.Close()
}

// IsReadOnly implements Engine.
func (e *LogEngine) IsReadOnly() bool { return false }
