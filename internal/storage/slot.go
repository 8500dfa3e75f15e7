package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Slot layout, version 1 (64 bytes, little-endian):
//
//	[0:4]   sequence number
//	[4:24]  ten uint16 payload values
//	[24]    CRC8 over bytes 0..23
//	[25:64] padding, left in the erased (0xFF) state
const (
	SlotSize         = 64
	NumValues        = 10
	SentinelSequence = 0xFFFFFFFF

	crcOffset     = 4 + 2*NumValues
	erasedByte    = 0xFF
	crcPolynomial = 0x07
	crcInit       = 0xFF
)

// ErrCRC is returned when a slot's stored checksum does not match its contents.
var ErrCRC = errors.New("storage: slot crc mismatch")

// Slot is one record of the persistent log.
type Slot struct {
	Sequence uint32
	Values   [NumValues]uint16
}

// Encode serializes the slot into a SlotSize buffer with its CRC set.
func (s Slot) Encode() []byte {
	b := make([]byte, SlotSize)
	for i := range b {
		b[i] = erasedByte
	}
	binary.LittleEndian.PutUint32(b[0:4], s.Sequence)
	for i, v := range s.Values {
		binary.LittleEndian.PutUint16(b[4+2*i:], v)
	}
	b[crcOffset] = crc8(b[:crcOffset])
	return b
}

// DecodeSlot parses a slot buffer and verifies its CRC.
// The sequence number is returned even on a CRC mismatch.
func DecodeSlot(b []byte) (Slot, error) {
	var s Slot
	if len(b) < crcOffset+1 {
		return s, fmt.Errorf("storage: short slot (%d bytes)", len(b))
	}
	s.Sequence = binary.LittleEndian.Uint32(b[0:4])
	for i := range s.Values {
		s.Values[i] = binary.LittleEndian.Uint16(b[4+2*i:])
	}
	if crc8(b[:crcOffset]) != b[crcOffset] {
		return s, ErrCRC
	}
	return s, nil
}

// Valid reports whether b holds a slot with a matching CRC and a written sequence.
func Valid(b []byte) bool {
	s, err := DecodeSlot(b)
	return err == nil && s.Sequence != SentinelSequence
}

func isErased(b []byte) bool {
	for _, c := range b {
		if c != erasedByte {
			return false
		}
	}
	return true
}

// crc8 is CRC-8 with polynomial 0x07, initial value 0xFF, no reflection, no final xor.
func crc8(data []byte) uint8 {
	crc := uint8(crcInit)
	for _, c := range data {
		crc ^= c
		for j := 0; j < 8; j++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
