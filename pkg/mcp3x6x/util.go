package mcp3x6x

import (
	"encoding/binary"

	"periph.io/x/conn/v3/physic"
)

// Sample is one decoded conversion result.
type Sample struct {
	// Channel is the scan channel id, or InvalidChannel.
	Channel uint8
	// Value is the decoded word. For the sign extended formats it keeps only
	// the sign in bit 31 and the data bits below it.
	Value int32

	bits uint8
}

// Code returns Value as a two's complement number of the converter's full width.
func (s Sample) Code() int32 {
	if s.bits == 0 || s.bits >= 32 {
		return s.Value
	}
	shift := 32 - s.bits
	return int32(uint32(s.Value)<<shift) >> shift
}

// payloadWidth is the ADCDATA read size for the given format.
func payloadWidth(f DataFormat, resolutionMax int) int {
	if f == SgnData {
		return resolutionMax / 8
	}
	return 4
}

// wordFromWire assembles a big-endian ADCDATA payload into a right aligned word.
func wordFromWire(b []byte) uint32 {
	var buf [4]byte
	copy(buf[4-len(b):], b)
	return binary.BigEndian.Uint32(buf[:])
}

// decodeValue converts a raw ADCDATA word into a signed value.
func decodeValue(f DataFormat, resolutionMax int, raw uint32) (int32, error) {
	bits := uint(resolutionMax)
	switch f {
	case SgnData:
		shift := 32 - bits
		return int32(raw<<shift) >> shift, nil
	case SgnDataZero:
		return int32(raw >> (32 - bits)), nil
	case SgnExtData, IDSgnExtData:
		sign := (raw >> (bits + 1)) & 1
		raw = raw&^(1<<31) | sign<<31
		return int32(raw & (1<<31 | (1<<bits - 1))), nil
	default:
		return -1, ErrUnknownFormat
	}
}

// channelFromWord extracts the channel id carried by IDSgnExtData words.
func channelFromWord(raw uint32) uint8 {
	return uint8((raw >> 28) & 0x0F)
}

// ConvertToVolts converts a two's complement code to a voltage.
// Full scale is +/- vRef over 2^(resolution) codes.
func ConvertToVolts(code int32, vRef physic.ElectricPotential, resolution int) physic.ElectricPotential {
	if resolution <= 0 {
		return 0
	}
	return physic.ElectricPotential(int64(code) * int64(vRef) / (int64(1) << uint(resolution)))
}
