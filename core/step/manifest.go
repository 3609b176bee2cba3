package step

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ManifestName is the manifest file name under the undo directory.
const ManifestName = "UndoTimestamps.bin"

// ManifestPath returns the default manifest location under dir.
func ManifestPath(dir string) string {
	return filepath.Join(dir, ManifestName)
}

// WriteManifest writes the ordered list of active timestamps to path.
// The count doubles as the cursor position on reload.
func WriteManifest(path string, timestamps []uint64) error {
	buf := make([]byte, 4+8*len(timestamps))
	binary.LittleEndian.PutUint32(buf, uint32(len(timestamps)))
	for i, ts := range timestamps {
		binary.LittleEndian.PutUint64(buf[4+8*i:], ts)
	}
	return os.WriteFile(path, buf, 0644)
}

// ReadManifest reads the ordered timestamp list from path.
func ReadManifest(path string) ([]uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var header [4]byte
	if _, err := io.ReadFull(file, header[:]); err != nil {
		return nil, fmt.Errorf("%w: manifest count", ErrTruncated)
	}
	count := binary.LittleEndian.Uint32(header[:])

	timestamps := make([]uint64, count)
	body := make([]byte, 8*count)
	if _, err := io.ReadFull(file, body); err != nil {
		return nil, fmt.Errorf("%w: manifest entries", ErrTruncated)
	}
	for i := range timestamps {
		timestamps[i] = binary.LittleEndian.Uint64(body[8*i:])
	}
	return timestamps, nil
}
