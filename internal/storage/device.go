// Package storage persists controller values in a wear-leveled, CRC-protected
// slot log on a block device, falling back to RAM when no device is usable.
package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by device operations before a successful Init.
	ErrNotInitialized = errors.New("storage: device not initialized")
	// ErrSlotRange is returned for a slot index outside the region.
	ErrSlotRange = errors.New("storage: slot index out of range")
	// ErrIndex is returned for a payload index outside the value set.
	ErrIndex = errors.New("storage: value index out of range")
)

// BlockDevice is a byte-addressable region split into fixed-size slots.
type BlockDevice interface {
	// Init reserves regionBytes for numSlots slots of slotSize bytes.
	Init(regionBytes int64, slotSize, numSlots int) error
	// ReadSlot returns a copy of slot i.
	ReadSlot(i int) ([]byte, error)
	// WriteSlot programs slot i. The slot should be in the erased state.
	WriteSlot(i int, b []byte) error
	// EraseRegion returns the whole region to the erased (0xFF) state.
	EraseRegion() error
}

// MemDevice is a volatile BlockDevice with the same slot layout.
// Writes overwrite in place; nothing survives a restart.
type MemDevice struct {
	buf      []byte
	slotSize int
	numSlots int
}

// NewMemDevice returns an uninitialized RAM device.
func NewMemDevice() *MemDevice {
	return &MemDevice{}
}

// Init allocates the region in the erased state.
func (m *MemDevice) Init(regionBytes int64, slotSize, numSlots int) error {
	if slotSize <= 0 || numSlots <= 0 || int64(slotSize)*int64(numSlots) > regionBytes {
		return fmt.Errorf("storage: invalid geometry region=%d slot=%d slots=%d", regionBytes, slotSize, numSlots)
	}
	m.buf = make([]byte, regionBytes)
	m.slotSize = slotSize
	m.numSlots = numSlots
	fill(m.buf, erasedByte)
	return nil
}

// ReadSlot returns a copy of slot i.
func (m *MemDevice) ReadSlot(i int) ([]byte, error) {
	off, err := m.offset(i)
	if err != nil {
		return nil, err
	}
	out := make([]byte, m.slotSize)
	copy(out, m.buf[off:off+m.slotSize])
	return out, nil
}

// WriteSlot overwrites slot i.
func (m *MemDevice) WriteSlot(i int, b []byte) error {
	off, err := m.offset(i)
	if err != nil {
		return err
	}
	if len(b) != m.slotSize {
		return fmt.Errorf("storage: write %d bytes into %d-byte slot", len(b), m.slotSize)
	}
	copy(m.buf[off:], b)
	return nil
}

// EraseRegion resets every byte to 0xFF.
func (m *MemDevice) EraseRegion() error {
	if m.buf == nil {
		return ErrNotInitialized
	}
	fill(m.buf, erasedByte)
	return nil
}

func (m *MemDevice) offset(i int) (int, error) {
	if m.buf == nil {
		return 0, ErrNotInitialized
	}
	if i < 0 || i >= m.numSlots {
		return 0, fmt.Errorf("%w: %d", ErrSlotRange, i)
	}
	return i * m.slotSize, nil
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
