package mcp3x6x

// Input is a 4-bit multiplexer input code.
type Input byte

const (
	CH0 Input = iota
	CH1
	CH2
	CH3
	CH4
	CH5
	CH6
	CH7
	AGND
	AVDD
	_
	REFINP
	REFINM
	TEMPP
	TEMPM
	VCM
)

func (in Input) String() string {
	switch in {
	case CH0:
		return "CH0"
	case CH1:
		return "CH1"
	case CH2:
		return "CH2"
	case CH3:
		return "CH3"
	case CH4:
		return "CH4"
	case CH5:
		return "CH5"
	case CH6:
		return "CH6"
	case CH7:
		return "CH7"
	case AGND:
		return "AGND"
	case AVDD:
		return "AVDD"
	case REFINP:
		return "REFIN+"
	case REFINM:
		return "REFIN-"
	case TEMPP:
		return "TEMP_P"
	case TEMPM:
		return "TEMP_M"
	case VCM:
		return "VCM"
	default:
		return "(invalid input)"
	}
}

// Mux is a MUX register value: VIN+ in the high nibble, VIN- in the low one.
type Mux byte

// SingleEnded selects in against AGND.
func SingleEnded(in Input) Mux {
	return Differential(in, AGND)
}

// Differential selects pos against neg.
func Differential(pos, neg Input) Mux {
	return Mux(byte(pos&0x0F)<<4 | byte(neg&0x0F))
}

// Pos returns the VIN+ input.
func (m Mux) Pos() Input { return Input(m >> 4) }

// Neg returns the VIN- input.
func (m Mux) Neg() Input { return Input(m & 0x0F) }

func (m Mux) String() string {
	return m.Pos().String() + "/" + m.Neg().String()
}

// ChannelPair is a simple struct that holds positive/negative inputs.
type ChannelPair struct {
	Pos Input
	Neg Input
}

// Mux returns the MUX register value for the pair.
func (p ChannelPair) Mux() Mux {
	return Differential(p.Pos, p.Neg)
}

// Scan channel ids, as reported in bits 31:28 of IDSgnExtData words and as
// bit positions in the SCAN register.
const (
	ChannelDiffA  = 8
	ChannelDiffB  = 9
	ChannelDiffC  = 10
	ChannelDiffD  = 11
	ChannelTemp   = 12
	ChannelAVDD   = 13
	ChannelVCM    = 14
	ChannelOffset = 15

	// NumChannels is the size of the channel id space and of the result cache.
	NumChannels = 16

	// InvalidChannel marks a sample whose channel could not be resolved.
	InvalidChannel uint8 = 0xFF
)

// channelID maps a channel id to the MUX setting the chip uses for it in scan mode.
var channelID = [NumChannels]Mux{
	SingleEnded(CH0),
	SingleEnded(CH1),
	SingleEnded(CH2),
	SingleEnded(CH3),
	SingleEnded(CH4),
	SingleEnded(CH5),
	SingleEnded(CH6),
	SingleEnded(CH7),
	Differential(CH0, CH1),
	Differential(CH2, CH3),
	Differential(CH4, CH5),
	Differential(CH6, CH7),
	Differential(TEMPP, TEMPM),
	Differential(AVDD, AGND),
	Differential(VCM, AGND),
	Differential(AGND, AGND),
}

// ChannelMux returns the MUX setting for a channel id.
func ChannelMux(id uint8) (Mux, bool) {
	if id >= NumChannels {
		return 0, false
	}
	return channelID[id], true
}

// channelMask returns the channel ids available on a part with the given
// number of analog inputs.
func channelMask(channels int) uint16 {
	var mask uint16
	for i := 0; i < channels && i < 8; i++ {
		mask |= 1 << i
	}
	for i := 0; i < channels/2 && i < 4; i++ {
		mask |= 1 << (ChannelDiffA + i)
	}
	mask |= 1<<ChannelTemp | 1<<ChannelAVDD | 1<<ChannelVCM | 1<<ChannelOffset
	return mask
}

// lookupChannel scans the channel table for mux, honouring the variant mask.
// It returns InvalidChannel and ErrChannelNotFound on a miss.
func lookupChannel(mask uint16, mux Mux) (uint8, error) {
	for i := range channelID {
		if channelID[i] == mux && mask&(1<<i) != 0 {
			return uint8(i), nil
		}
	}
	return InvalidChannel, ErrChannelNotFound
}
