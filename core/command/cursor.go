package command

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

// ErrShortRead indicates a cursor read past the end of the blob.
var ErrShortRead = errors.New("short read from backup blob")

// Cursor is a sequential read/write head over a backup blob. Writes
// insert at the current offset, growing the blob; reads copy out and
// advance. Commands must read during Undo in the same order they wrote
// during Backup.
type Cursor struct {
	buf    *[]byte
	offset int
}

// NewCursor creates a cursor over the blob at offset zero.
func NewCursor(buf *[]byte) *Cursor {
	return &Cursor{buf: buf}
}

// Write inserts p at the current offset and advances past it.
func (c *Cursor) Write(p []byte) {
	*c.buf = slices.Insert(*c.buf, c.offset, p...)
	c.offset += len(p)
}

// Read copies len(p) bytes out at the current offset and advances.
func (c *Cursor) Read(p []byte) error {
	if c.offset+len(p) > len(*c.buf) {
		return fmt.Errorf("%w: need %d bytes at offset %d of %d",
			ErrShortRead, len(p), c.offset, len(*c.buf))
	}
	copy(p, (*c.buf)[c.offset:])
	c.offset += len(p)
	return nil
}

// WriteInt32 writes v little-endian.
func (c *Cursor) WriteInt32(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	c.Write(b[:])
}

// ReadInt32 reads a little-endian int32.
func (c *Cursor) ReadInt32() (int32, error) {
	var b [4]byte
	if err := c.Read(b[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}

// WriteInt64 writes v little-endian.
func (c *Cursor) WriteInt64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	c.Write(b[:])
}

// ReadInt64 reads a little-endian int64.
func (c *Cursor) ReadInt64() (int64, error) {
	var b [8]byte
	if err := c.Read(b[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// WriteBytes writes p with a little-endian uint32 length prefix.
func (c *Cursor) WriteBytes(p []byte) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(len(p)))
	c.Write(b[:])
	c.Write(p)
}

// ReadBytes reads a length-prefixed byte string written by WriteBytes.
func (c *Cursor) ReadBytes() ([]byte, error) {
	var b [4]byte
	if err := c.Read(b[:]); err != nil {
		return nil, err
	}
	p := make([]byte, binary.LittleEndian.Uint32(b[:]))
	if err := c.Read(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Len returns the current blob length.
func (c *Cursor) Len() int {
	return len(*c.buf)
}
