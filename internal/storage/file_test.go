package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileDevicePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.bin")

	dev := NewFileDevice(path)
	l := OpenLog(dev, 8)
	if !l.Available() {
		t.Fatal("file device should be available")
	}
	l.Load()
	want := [NumValues]uint16{7, 1200, 880, 215}
	if err := l.Save(want); err != nil {
		t.Fatal(err)
	}
	dev.Close()

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != 8*SlotSize {
		t.Errorf("file size: got %d, want %d", fi.Size(), 8*SlotSize)
	}

	dev2 := NewFileDevice(path)
	defer dev2.Close()
	l2 := OpenLog(dev2, 8)
	got, found := l2.Load()
	if !found || got != want {
		t.Errorf("got %v found=%v, want %v", got, found, want)
	}
	if l2.Cursor() != 1 {
		t.Errorf("cursor: got %d, want 1", l2.Cursor())
	}
}

func TestFileDeviceRejectsDirectory(t *testing.T) {
	dev := NewFileDevice(t.TempDir())
	if err := dev.Init(8*SlotSize, SlotSize, 8); err == nil {
		t.Error("expected error for directory path")
	}
}

func TestFileDeviceRejectsDeviceNode(t *testing.T) {
	dev := NewFileDevice(os.DevNull)
	if err := dev.Init(8*SlotSize, SlotSize, 8); err == nil {
		t.Fatal("expected error for a character device")
	}
	if l := OpenLog(NewFileDevice(os.DevNull), 8); l.Available() {
		t.Error("device node should fall back to the RAM log")
	}
}
