package storage

import (
	"encoding/binary"
	"fmt"
	"log"
)

const (
	// DefaultNumSlots is the slot count of the reference configuration.
	DefaultNumSlots = 100
	// fallbackScanSlots bounds the recovery scan on the RAM fallback.
	fallbackScanSlots = 10
)

// LogStats counts slot log activity since start.
type LogStats struct {
	Writes   int
	Failures int
	Erases   int
}

// Log is an append-only, sequence-numbered slot log. The newest record is
// the valid slot with the highest sequence number. Space is reclaimed by
// erasing the whole region when the cursor wraps onto written data.
// Not safe for concurrent use; the caller synchronizes.
type Log struct {
	dev       BlockDevice
	numSlots  int
	cursor    int
	lastSeq   uint32 // highest sequence loaded or written
	available bool
	stats     LogStats
}

// OpenLog initializes dev for numSlots slots. If dev is nil or Init fails,
// the log transparently uses a RAM device with the same layout and
// Available reports false.
func OpenLog(dev BlockDevice, numSlots int) *Log {
	if numSlots < 1 {
		numSlots = DefaultNumSlots
	}
	region := int64(numSlots) * SlotSize
	l := &Log{numSlots: numSlots}

	if dev != nil {
		if err := dev.Init(region, SlotSize, numSlots); err != nil {
			log.Printf("storage: block device unavailable (%v), using RAM slot log", err)
		} else {
			l.dev = dev
			l.available = true
			log.Printf("storage: block device ready (%d slots of %d bytes)", numSlots, SlotSize)
			return l
		}
	}

	mem := NewMemDevice()
	// Geometry is valid by construction.
	_ = mem.Init(region, SlotSize, numSlots)
	l.dev = mem
	return l
}

// Available reports whether a real block device backs the log.
func (l *Log) Available() bool {
	return l.available
}

// Cursor returns the slot the next save will write.
func (l *Log) Cursor() int {
	return l.cursor
}

// NumSlots returns the slot count.
func (l *Log) NumSlots() int {
	return l.numSlots
}

// Stats returns write counters.
func (l *Log) Stats() LogStats {
	return l.stats
}

// Load finds the newest valid slot and positions the cursor after it.
// On a real device every slot is scanned; on the RAM fallback only the last
// few slots are. Corrupt and unwritten slots are skipped. When nothing valid
// is found the values are zero, found is false and the cursor resets to 0.
func (l *Log) Load() (values [NumValues]uint16, found bool) {
	start := 0
	if !l.available && l.numSlots > fallbackScanSlots {
		start = l.numSlots - fallbackScanSlots
	}

	var best Slot
	bestIdx := 0
	for i := start; i < l.numSlots; i++ {
		b, err := l.dev.ReadSlot(i)
		if err != nil {
			continue
		}
		s, err := DecodeSlot(b)
		if err != nil || s.Sequence == SentinelSequence {
			continue
		}
		if !found || s.Sequence > best.Sequence {
			best = s
			bestIdx = i
			found = true
		}
	}

	if !found {
		l.cursor = 0
		log.Printf("storage: no valid slots, starting fresh")
		return values, false
	}
	l.cursor = (bestIdx + 1) % l.numSlots
	l.lastSeq = best.Sequence
	log.Printf("storage: loaded slot %d (seq=%d)", bestIdx, best.Sequence)
	return best.Values, true
}

// Save appends values as a new record at the cursor. The cursor advances
// whether or not the write succeeds. The sequence continues from the higher
// of the last good record and the slot before the cursor, so a failed write
// never resets numbering.
func (l *Log) Save(values [NumValues]uint16) (err error) {
	slot := l.cursor
	defer func() {
		l.cursor = (slot + 1) % l.numSlots
		if err != nil {
			l.stats.Failures++
		} else {
			l.stats.Writes++
		}
	}()

	last := l.lastSeq
	prev := (slot - 1 + l.numSlots) % l.numSlots
	if b, rerr := l.dev.ReadSlot(prev); rerr == nil {
		if p := binary.LittleEndian.Uint32(b[0:4]); p != SentinelSequence {
			last = max(last, p)
		}
	}
	seq := last + 1
	data := Slot{Sequence: seq, Values: values}.Encode()

	if l.available {
		probe, rerr := l.dev.ReadSlot(slot)
		if rerr == nil && !isErased(probe) {
			if eerr := l.dev.EraseRegion(); eerr != nil {
				return fmt.Errorf("erase before slot %d: %w", slot, eerr)
			}
			l.stats.Erases++
			log.Printf("storage: erased region on wrap at slot %d", slot)
		}
	}

	if werr := l.dev.WriteSlot(slot, data); werr != nil {
		return fmt.Errorf("write slot %d: %w", slot, werr)
	}
	l.lastSeq = seq
	log.Printf("storage: saved slot %d (seq=%d)", slot, seq)
	return nil
}
