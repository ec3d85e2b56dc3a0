package mcp3x6x

import "fmt"

// Status is the byte the chip clocks out while it receives a command byte.
type Status byte

// Has reports whether all bits of flag are set on the wire.
func (s Status) Has(flag byte) bool { return byte(s)&flag == flag }

// DataReady reports whether a new conversion result is waiting.
func (s Status) DataReady() bool { return !s.Has(StatusDRbit) }

// CRCConfigOK reports whether the configuration CRC check passed.
func (s Status) CRCConfigOK() bool { return s.Has(StatusCRCCFGbit) }

// PowerOnReset reports whether a POR event happened since the flag was last cleared.
func (s Status) PowerOnReset() bool { return !s.Has(StatusPORbit) }

// Address returns the device address echoed in bits 5:4.
func (s Status) Address() byte { return (byte(s) & StatusADDRmask) >> 4 }

func (s Status) String() string {
	return fmt.Sprintf("Status{raw:0x%02X, addr:%d, dr:%t, crccfg:%t, por:%t}",
		byte(s), s.Address(), s.DataReady(), s.CRCConfigOK(), s.PowerOnReset())
}
