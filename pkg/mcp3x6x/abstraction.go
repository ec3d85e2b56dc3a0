package mcp3x6x

import (
	"errors"

	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

// SPISettings are the per-transaction bus parameters.
type SPISettings struct {
	Frequency physic.Frequency
	Mode      uint8
	LSBFirst  bool
}

// DefaultSPISettings are the parameters every transaction is framed with.
var DefaultSPISettings = SPISettings{
	Frequency: SPIFrequency,
	Mode:      SPIMode,
}

// SerialInterface is the bus transport the driver talks through.
//
// Transfer must be full duplex: the returned byte is the one clocked in while
// b was clocked out, which is how the chip reports its status byte.
type SerialInterface interface {
	drivers.SPI

	// BeginTransaction claims the bus with the given settings.
	BeginTransaction(SPISettings) error
	// EndTransaction releases the bus.
	EndTransaction() error

	// SetCS drives the chip-select line; the chip is selected while low.
	SetCS(high bool) error

	Init() error

	// Close closes the interface.
	Close() error
}

// PinOutput drives a GPIO line.
type PinOutput func(high bool)

// Bus adapts a [drivers.SPI] (such as a configured TinyGo machine.SPI) and a
// chip-select output into a [SerialInterface].
type Bus struct {
	drivers.SPI

	CS PinOutput

	// Configure is called by BeginTransaction when set, so the host can
	// reconfigure a shared peripheral. Optional.
	Configure func(SPISettings) error
}

// NewBus returns a Bus on spi with chip-select cs.
func NewBus(spi drivers.SPI, cs PinOutput) *Bus {
	return &Bus{SPI: spi, CS: cs}
}

func (b *Bus) BeginTransaction(s SPISettings) error {
	if b.Configure != nil {
		return b.Configure(s)
	}
	return nil
}

func (b *Bus) EndTransaction() error { return nil }

func (b *Bus) SetCS(high bool) error {
	if b.CS != nil {
		b.CS(high)
	}
	return nil
}

func (b *Bus) Init() error { return nil }

func (b *Bus) Close() error { return nil }

func (d *Device) setCSLow() error {
	return d.spi.SetCS(false)
}

func (d *Device) setCSHigh() error {
	return d.spi.SetCS(true)
}

// deselect parks chip select high while holding the bus, so it cannot race
// other users of a shared bridge.
func (d *Device) deselect() error {
	if err := d.spi.BeginTransaction(DefaultSPISettings); err != nil {
		return err
	}
	return errors.Join(d.setCSHigh(), d.spi.EndTransaction())
}
