package mcp3x6x

// Settings mirrors the writable configuration registers of the chip.
//
// Every With* method is a pure transition: it returns the updated copy and
// the register write that brings the chip in line with it. The Device only
// commits the copy once the write went out.
type Settings struct {
	Config0 byte
	Config1 byte
	Config2 byte
	Config3 byte
	IRQ     byte
	Mux     Mux
	Scan    uint32 // 24 bits
	Timer   uint32 // 24 bits
	Lock    byte
}

// DefaultSettings returns the power-on register values.
func DefaultSettings() Settings {
	return Settings{
		Config0: defaultCONFIG0,
		Config1: defaultCONFIG1,
		Config2: defaultCONFIG2,
		Config3: defaultCONFIG3,
		IRQ:     defaultIRQ,
		Mux:     defaultMUX,
		Lock:    DefaultLockKey,
	}
}

// RegisterWrite is one register's worth of bytes, MSB first.
type RegisterWrite struct {
	Reg  Register
	Data [3]byte
	N    int
}

// Bytes returns the payload to clock out after the command byte.
func (w *RegisterWrite) Bytes() []byte {
	return w.Data[:w.N]
}

func write8(reg Register, v byte) RegisterWrite {
	return RegisterWrite{Reg: reg, Data: [3]byte{v}, N: 1}
}

func write24(reg Register, v uint32) RegisterWrite {
	return RegisterWrite{Reg: reg, Data: [3]byte{byte(v >> 16), byte(v >> 8), byte(v)}, N: 3}
}

func (s Settings) DataFormat() DataFormat {
	return DataFormat((s.Config3 & config3FORMATmask) >> config3FORMATshift)
}

func (s Settings) ConvMode() ConvMode {
	return ConvMode((s.Config3 & config3CONVmask) >> config3CONVshift)
}

func (s Settings) ADCMode() ADCMode {
	return ADCMode(s.Config0 & config0ADCmask)
}

func (s Settings) ClockSelection() ClockSelection {
	return ClockSelection((s.Config0 & config0CLKmask) >> config0CLKshift)
}

// InternalReference reports CONFIG0 VREF_SEL.
func (s Settings) InternalReference() bool {
	return s.Config0&config0VREFSELbit != 0
}

func (s Settings) WithDataFormat(f DataFormat) (Settings, RegisterWrite) {
	s.Config3 = s.Config3&^config3FORMATmask | byte(f)<<config3FORMATshift&config3FORMATmask
	return s, write8(RegCONFIG3, s.Config3)
}

func (s Settings) WithConvMode(m ConvMode) (Settings, RegisterWrite) {
	s.Config3 = s.Config3&^config3CONVmask | byte(m)<<config3CONVshift&config3CONVmask
	return s, write8(RegCONFIG3, s.Config3)
}

func (s Settings) WithADCMode(m ADCMode) (Settings, RegisterWrite) {
	s.Config0 = s.Config0&^config0ADCmask | byte(m)&config0ADCmask
	return s, write8(RegCONFIG0, s.Config0)
}

func (s Settings) WithClockSelection(c ClockSelection) (Settings, RegisterWrite) {
	s.Config0 = s.Config0&^config0CLKmask | byte(c)<<config0CLKshift&config0CLKmask
	return s, write8(RegCONFIG0, s.Config0)
}

func (s Settings) WithInternalReference(on bool) (Settings, RegisterWrite) {
	if on {
		s.Config0 |= config0VREFSELbit
	} else {
		s.Config0 &^= config0VREFSELbit
	}
	return s, write8(RegCONFIG0, s.Config0)
}

func (s Settings) WithMux(m Mux) (Settings, RegisterWrite) {
	s.Mux = m
	return s, write8(RegMUX, byte(m))
}

// scanChannelBits are the SCAN bits selecting channels; the upper byte holds
// the delay setting.
const scanChannelBits = 0xFFFF

// WithScanChannel sets or clears the SCAN bit of channel id.
func (s Settings) WithScanChannel(id uint8, on bool) (Settings, RegisterWrite) {
	if id < NumChannels {
		if on {
			s.Scan |= 1 << id
		} else {
			s.Scan &^= 1 << id
		}
	}
	s.Scan &= 0xFFFFFF
	return s, write24(RegSCAN, s.Scan)
}

// WithScanList replaces the channel selection bits of SCAN with ids,
// keeping the delay and offset bits above them.
func (s Settings) WithScanList(ids ...uint8) (Settings, RegisterWrite) {
	s.Scan &^= scanChannelBits
	for _, id := range ids {
		if id < NumChannels {
			s.Scan |= 1 << id
		}
	}
	s.Scan &= 0xFFFFFF
	return s, write24(RegSCAN, s.Scan)
}

func (s Settings) WithTimer(t uint32) (Settings, RegisterWrite) {
	s.Timer = t & 0xFFFFFF
	return s, write24(RegTIMER, s.Timer)
}

func (s Settings) WithLock(key byte) (Settings, RegisterWrite) {
	s.Lock = key
	return s, write8(RegLOCK, key)
}

// effectiveResolution applies the sign bit consumed by the plain formats to
// base. It is recomputed from base on every format change, so setting the
// same format twice does not decrement twice.
func effectiveResolution(base int, f DataFormat) int {
	switch f {
	case SgnData, SgnDataZero:
		return base - 1
	case SgnExtData, IDSgnExtData:
		return base
	default:
		return -1
	}
}
