// Package ft232h carries MCP3x6x bus traffic over an FTDI FT232H USB bridge
// in MPSSE SPI mode, with chip select and the IRQ line on spare GPIO pins.
package ft232h

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/yunginnanet/ft232h"
	"periph.io/x/conn/v3/physic"

	"github.com/yunginnanet/ftdi-mcp3x6x/pkg/mcp3x6x"
)

// MaxClock is the fastest SCK the MPSSE engine generates.
const MaxClock = 30 * physic.MegaHertz

// DeviceInfo represents a snapshot of the device information for the [FT232H] device.
type DeviceInfo struct {
	Index       int
	Serial      string
	Description string
	ProductID   string
	VendorID    string
	IsOpen      bool
	IsHighSpeed bool
}

func (info DeviceInfo) String() string {
	return fmt.Sprintf(
		"DeviceInfo{Index:%d, Serial:%s, Description:%s, ProductID:%s, VendorID:%s, IsOpen:%t, IsHighSpeed:%t}",
		info.Index, info.Serial, info.Description, info.ProductID, info.VendorID, info.IsOpen, info.IsHighSpeed,
	)
}

// FT232H is an FT232H bridge wired to one MCP3x6x.
//
// It implements [mcp3x6x.SerialInterface]. Transfer and mixed Tx calls go
// through the full duplex MPSSE swap, so the status byte the chip clocks out
// with every command reaches the driver.
type FT232H struct {
	*ft232h.FT232H

	log  zerolog.Logger
	desc Descriptor

	spi  mpsse
	gpio portC

	// bus serializes MPSSE access between transactions and IRQ polling.
	bus      sync.Mutex
	settings mcp3x6x.SPISettings

	csPin  ft232h.CPin
	irqPin ft232h.CPin
	hasIRQ bool

	// MaxClock caps the requested SCK. Defaults to the package MaxClock.
	MaxClock physic.Frequency
}

var _ mcp3x6x.SerialInterface = (*FT232H)(nil)

// mpsse is the part of *ft232h.SPI the bridge drives.
type mpsse interface {
	GetConfig() *ft232h.SPIConfig
	Config(cfg *ft232h.SPIConfig) error
	Init() error
	Close() error
	Read(count uint, start, stop bool) ([]uint8, error)
	Write(data []uint8, start, stop bool) (uint, error)
	Swap(data []uint8, start, stop bool) ([]uint8, error)
}

// portC is the part of *ft232h.GPIO used for chip select and IRQ.
type portC interface {
	ConfigPin(pin ft232h.CPin, dir ft232h.Dir, val bool) error
	Set(pin ft232h.CPin, val bool) error
	Get(pin ft232h.CPin) (bool, error)
}

// ErrNoIRQ is returned by IRQ helpers when no IRQ pin was configured.
var ErrNoIRQ = errors.New("ft232h: IRQ pin not set")

// Info returns a snapshot of the device information for the FT232H device. Read-only.
func (ft *FT232H) Info() DeviceInfo {
	vid, pid := ft.vidPid()
	return DeviceInfo{
		Index:       ft.Index(),
		Serial:      ft.Serial(),
		Description: ft.Desc(),
		ProductID:   pid,
		VendorID:    vid,
		IsOpen:      ft.IsOpen(),
		IsHighSpeed: ft.IsHiSpeed(),
	}
}

func (ft *FT232H) String() string {
	info := ft.Info()
	return fmt.Sprintf("FT232H[%s:%s]: %s", info.VendorID, info.ProductID, info.Description)
}

// Descriptor returns the descriptor the bridge was opened with.
func (ft *FT232H) Descriptor() Descriptor {
	return ft.desc
}

// WithLogger sets the logger used for pin setup and bus reconfiguration.
func (ft *FT232H) WithLogger(l zerolog.Logger) *FT232H {
	ft.log = l.With().Str("bridge", "ft232h").Logger()
	return ft
}

// ConnectFT232h opens the first FT232H found, or the one matching choice.
func ConnectFT232h(choice ...Descriptor) (ft *FT232H, err error) {
	ft = &FT232H{log: zerolog.Nop(), MaxClock: MaxClock}

	switch len(choice) {
	case 0:
		ft.FT232H, err = ft232h.New()
	case 1:
		if err = choice[0].Validate(); err != nil {
			return nil, err
		}
		ft.desc = choice[0]
		ft.FT232H, err = ft232h.OpenMask(choice[0].Mask())
	default:
		return nil, fmt.Errorf("ft232h: expected at most one descriptor, got %d", len(choice))
	}

	if err != nil {
		return nil, fmt.Errorf("ft232h: open: %w", err)
	}
	ft.spi, ft.gpio = ft.FT232H.SPI, ft.FT232H.GPIO
	return ft, nil
}
