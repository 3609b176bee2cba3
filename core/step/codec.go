// Package step implements the on-disk encoding for undo step records
// and the timestamp manifest. Each recorded command execution is one
// file named UndoStep-<timestamp> containing the backup blob followed
// by the entry key (user, timestamp, command string). All integers are
// little-endian, tightly packed, no version header.
package step

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const filePrefix = "UndoStep-"

// ErrTruncated indicates a step or manifest file ended mid-field.
var ErrTruncated = errors.New("truncated step record")

// Section selects which parts of a step record a read populates.
// Key-only reads are used for manifest reconciliation; data-only reads
// warm the cache without touching the trailing key fields.
type Section uint8

const (
	SectionData Section = 1 << iota
	SectionKey
	SectionAll = SectionData | SectionKey
)

// Record is the decoded form of a step file.
type Record struct {
	UserID    int32
	Timestamp uint64
	Command   string
	Data      []byte
}

// FilePath returns the step file path for a timestamp under dir.
func FilePath(dir string, timestamp uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%s%d", filePrefix, timestamp))
}

// ParseFileName extracts the timestamp from a step file name.
func ParseFileName(name string) (uint64, bool) {
	if !strings.HasPrefix(name, filePrefix) {
		return 0, false
	}
	ts, err := strconv.ParseUint(name[len(filePrefix):], 10, 64)
	return ts, err == nil
}

// WriteFile encodes r and writes it to its step file under dir.
func (r *Record) WriteFile(dir string) error {
	return os.WriteFile(FilePath(dir, r.Timestamp), r.encode(), 0644)
}

func (r *Record) encode() []byte {
	dataLen := len(r.Data)
	cmdLen := len(r.Command)
	buf := make([]byte, 4+dataLen+4+8+4+cmdLen)

	offset := 0
	binary.LittleEndian.PutUint32(buf[offset:], uint32(dataLen))
	offset += 4

	copy(buf[offset:], r.Data)
	offset += dataLen

	binary.LittleEndian.PutUint32(buf[offset:], uint32(r.UserID))
	offset += 4

	binary.LittleEndian.PutUint64(buf[offset:], r.Timestamp)
	offset += 8

	binary.LittleEndian.PutUint32(buf[offset:], uint32(cmdLen))
	offset += 4

	copy(buf[offset:], r.Command)

	return buf
}

// ReadFile decodes the step file for timestamp under dir, populating
// only the sections selected by sel. The returned record starts with the
// timestamp it was read for; a read that includes the key section
// replaces it with the timestamp stored in the file.
func ReadFile(dir string, timestamp uint64, sel Section) (*Record, error) {
	file, err := os.Open(FilePath(dir, timestamp))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rec := &Record{Timestamp: timestamp}
	if err := rec.decodeFrom(file, sel); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *Record) decodeFrom(file *os.File, sel Section) error {
	dataLen, err := readUint32(file)
	if err != nil {
		return err
	}

	if sel&SectionData != 0 {
		r.Data = make([]byte, dataLen)
		if _, err := io.ReadFull(file, r.Data); err != nil {
			return fmt.Errorf("%w: data section", ErrTruncated)
		}
	} else if _, err := file.Seek(int64(dataLen), io.SeekCurrent); err != nil {
		return err
	}

	if sel&SectionKey == 0 {
		return nil
	}
	return r.decodeKey(file)
}

func (r *Record) decodeKey(file *os.File) error {
	userID, err := readUint32(file)
	if err != nil {
		return err
	}
	r.UserID = int32(userID)

	var ts [8]byte
	if _, err := io.ReadFull(file, ts[:]); err != nil {
		return fmt.Errorf("%w: timestamp", ErrTruncated)
	}
	r.Timestamp = binary.LittleEndian.Uint64(ts[:])

	cmdLen, err := readUint32(file)
	if err != nil {
		return err
	}
	cmd := make([]byte, cmdLen)
	if _, err := io.ReadFull(file, cmd); err != nil {
		return fmt.Errorf("%w: command string", ErrTruncated)
	}
	r.Command = string(cmd)

	return nil
}

func readUint32(file *os.File) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(file, b[:]); err != nil {
		return 0, fmt.Errorf("%w: length field", ErrTruncated)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// Remove deletes the step file for timestamp under dir. Absence is not
// an error.
func Remove(dir string, timestamp uint64) error {
	err := os.Remove(FilePath(dir, timestamp))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
