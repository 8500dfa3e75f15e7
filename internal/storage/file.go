package storage

import (
	"fmt"
	"io"
	"os"
)

// FileDevice stores the slot region in a regular file, e.g. an image on the
// SD card. Device nodes are rejected: raw flash needs erase ioctls this type
// does not issue.
// The region occupies the tail of the file; a new or short file is extended
// with erased bytes. Every write is synced before it returns.
type FileDevice struct {
	path     string
	f        *os.File
	start    int64
	size     int64
	slotSize int
	numSlots int
}

// NewFileDevice returns a device backed by path. Nothing is opened until Init.
func NewFileDevice(path string) *FileDevice {
	return &FileDevice{path: path}
}

// Init opens (or creates) the backing file and reserves the region.
func (d *FileDevice) Init(regionBytes int64, slotSize, numSlots int) error {
	if slotSize <= 0 || numSlots <= 0 || int64(slotSize)*int64(numSlots) > regionBytes {
		return fmt.Errorf("storage: invalid geometry region=%d slot=%d slots=%d", regionBytes, slotSize, numSlots)
	}
	f, err := os.OpenFile(d.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", d.path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat %s: %w", d.path, err)
	}
	if !fi.Mode().IsRegular() {
		f.Close()
		return fmt.Errorf("storage: %s is not a regular file", d.path)
	}

	size := fi.Size()
	if size < regionBytes {
		pad := make([]byte, regionBytes-size)
		fill(pad, erasedByte)
		if _, err := f.WriteAt(pad, size); err != nil {
			f.Close()
			return fmt.Errorf("extend %s: %w", d.path, err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return fmt.Errorf("sync %s: %w", d.path, err)
		}
		size = regionBytes
	}

	d.f = f
	d.size = regionBytes
	d.start = size - regionBytes
	d.slotSize = slotSize
	d.numSlots = numSlots
	return nil
}

// ReadSlot returns a copy of slot i.
func (d *FileDevice) ReadSlot(i int) ([]byte, error) {
	off, err := d.offset(i)
	if err != nil {
		return nil, err
	}
	b := make([]byte, d.slotSize)
	if _, err := d.f.ReadAt(b, off); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read slot %d: %w", i, err)
	}
	return b, nil
}

// WriteSlot writes and syncs slot i.
func (d *FileDevice) WriteSlot(i int, b []byte) error {
	off, err := d.offset(i)
	if err != nil {
		return err
	}
	if len(b) != d.slotSize {
		return fmt.Errorf("storage: write %d bytes into %d-byte slot", len(b), d.slotSize)
	}
	if _, err := d.f.WriteAt(b, off); err != nil {
		return fmt.Errorf("write slot %d: %w", i, err)
	}
	return d.f.Sync()
}

// EraseRegion fills the whole region with 0xFF.
func (d *FileDevice) EraseRegion() error {
	if d.f == nil {
		return ErrNotInitialized
	}
	buf := make([]byte, d.size)
	fill(buf, erasedByte)
	if _, err := d.f.WriteAt(buf, d.start); err != nil {
		return fmt.Errorf("erase region: %w", err)
	}
	return d.f.Sync()
}

// Close releases the backing file.
func (d *FileDevice) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

func (d *FileDevice) offset(i int) (int64, error) {
	if d.f == nil {
		return 0, ErrNotInitialized
	}
	if i < 0 || i >= d.numSlots {
		return 0, fmt.Errorf("%w: %d", ErrSlotRange, i)
	}
	return d.start + int64(i)*int64(d.slotSize), nil
}
