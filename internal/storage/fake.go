package storage

import "fmt"

// FakeDevice is a test double that behaves like NOR flash: programming can
// only clear bits, so writing over non-erased data corrupts the slot unless
// the region was erased first. Errors can be injected per operation.
type FakeDevice struct {
	MemDevice

	// InitError, if set, is returned by Init.
	InitError error
	// WriteError, if set, is returned by WriteSlot.
	WriteError error
	// EraseError, if set, is returned by EraseRegion.
	EraseError error

	// Writes counts successful WriteSlot calls.
	Writes int
	// Erases counts successful EraseRegion calls.
	Erases int
}

// NewFakeDevice creates a FakeDevice.
func NewFakeDevice() *FakeDevice {
	return &FakeDevice{}
}

// Init fails with InitError if set.
func (f *FakeDevice) Init(regionBytes int64, slotSize, numSlots int) error {
	if f.InitError != nil {
		return f.InitError
	}
	return f.MemDevice.Init(regionBytes, slotSize, numSlots)
}

// WriteSlot ANDs b into the slot, like programming flash.
func (f *FakeDevice) WriteSlot(i int, b []byte) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	off, err := f.offset(i)
	if err != nil {
		return err
	}
	if len(b) != f.slotSize {
		return fmt.Errorf("storage: write %d bytes into %d-byte slot", len(b), f.slotSize)
	}
	for k, c := range b {
		f.buf[off+k] &= c
	}
	f.Writes++
	return nil
}

// EraseRegion fails with EraseError if set.
func (f *FakeDevice) EraseRegion() error {
	if f.EraseError != nil {
		return f.EraseError
	}
	if err := f.MemDevice.EraseRegion(); err != nil {
		return err
	}
	f.Erases++
	return nil
}

// Poke overwrites raw bytes of slot i, bypassing flash semantics.
func (f *FakeDevice) Poke(i int, b []byte) error {
	return f.MemDevice.WriteSlot(i, b)
}
