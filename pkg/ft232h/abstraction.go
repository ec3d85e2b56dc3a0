package ft232h

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yunginnanet/ft232h"

	"github.com/yunginnanet/ftdi-mcp3x6x/pkg/mcp3x6x"
)

// DefaultPollInterval is the IRQ sampling period used by WaitIRQ and Edges.
const DefaultPollInterval = 100 * time.Microsecond

// SetIRQ configures C pin number pin as the input wired to the chip's
// active-low IRQ output.
func (ft *FT232H) SetIRQ(pin uint) error {
	p, err := cPin(pin)
	if err != nil {
		return err
	}
	ft.irqPin = p
	ft.hasIRQ = true
	ft.log.Debug().Str("pin", ft.irqPin.String()).Any("pos", ft.irqPin.Pos()).Msg("irq set")
	return ft.gpio.ConfigPin(ft.irqPin, ft232h.Input, true)
}

func (ft *FT232H) IRQPin() ft232h.CPin {
	return ft.irqPin
}

// SetCSPin configures C pin number pin as the chip-select output, deasserted.
func (ft *FT232H) SetCSPin(pin uint) error {
	p, err := cPin(pin)
	if err != nil {
		return err
	}
	ft.csPin = p
	ft.log.Debug().Str("pin", ft.csPin.String()).Any("pos", ft.csPin.Pos()).Msg("cs set")
	return ft.gpio.ConfigPin(ft.csPin, ft232h.Output, true)
}

func (ft *FT232H) CSPin() ft232h.CPin {
	return ft.csPin
}

func (ft *FT232H) SetCS(high bool) error {
	return ft.gpio.Set(ft.csPin, high)
}

// irqLow samples the IRQ pin. Callers hold ft.bus.
func (ft *FT232H) irqLow() (bool, error) {
	hl, err := ft.gpio.Get(ft.irqPin)
	if err != nil {
		return false, fmt.Errorf("failed to read IRQ pin: %w", err)
	}
	return !hl, nil
}

// WaitIRQ blocks until the IRQ line is low or ctx is done.
func (ft *FT232H) WaitIRQ(ctx context.Context) error {
	if !ft.hasIRQ {
		return ErrNoIRQ
	}
	t := time.NewTicker(DefaultPollInterval)
	defer t.Stop()
	for {
		ft.bus.Lock()
		low, err := ft.irqLow()
		ft.bus.Unlock()
		if err != nil {
			return err
		}
		if low {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Edges samples the IRQ pin every interval and sends on the returned channel
// for every falling edge. The channel is closed when ctx is done or the pin
// cannot be read.
func (ft *FT232H) Edges(ctx context.Context, interval time.Duration) (<-chan struct{}, error) {
	if !ft.hasIRQ {
		return nil, ErrNoIRQ
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	edges := make(chan struct{})
	go func() {
		defer close(edges)
		t := time.NewTicker(interval)
		defer t.Stop()
		wasLow := false
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			ft.bus.Lock()
			low, err := ft.irqLow()
			ft.bus.Unlock()
			if err != nil {
				ft.log.Error().Err(err).Msg("irq poll")
				return
			}
			if low && !wasLow {
				select {
				case edges <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
			wasLow = low
		}
	}()
	return edges, nil
}

// BeginTransaction claims the bridge and reprograms the MPSSE clock and mode
// when s differs from the previous transaction.
func (ft *FT232H) BeginTransaction(s mcp3x6x.SPISettings) error {
	ft.bus.Lock()
	if s == ft.settings {
		return nil
	}
	cfg := ft.spi.GetConfig()
	cfg.Clock = clockHz(s.Frequency, ft.MaxClock)
	cfg.Mode = s.Mode
	if err := ft.spi.Config(cfg); err != nil {
		ft.bus.Unlock()
		return fmt.Errorf("ft232h: configure spi: %w", err)
	}
	ft.log.Debug().Uint32("clock", cfg.Clock).Uint8("mode", s.Mode).Msg("spi configured")
	ft.settings = s
	return nil
}

func (ft *FT232H) EndTransaction() error {
	ft.bus.Unlock()
	return nil
}

// Transfer clocks out b and returns the byte clocked in alongside it.
func (ft *FT232H) Transfer(b byte) (byte, error) {
	in, err := ft.spi.Swap([]byte{b}, false, false)
	if err != nil {
		return 0, err
	}
	if len(in) < 1 {
		return 0, errors.New("ft232h: short swap")
	}
	return in[0], nil
}

// Tx exchanges w and r without touching chip select. Write-only and
// read-only calls use the plain MPSSE write and read; anything else is one
// full duplex swap of max(len(w), len(r)) bytes with w padded by zeros.
func (ft *FT232H) Tx(w, r []byte) error {
	switch {
	case len(r) == 0:
		if len(w) == 0 {
			return nil
		}
		_, err := ft.spi.Write(w, false, false)
		return err
	case len(w) == 0:
		in, err := ft.spi.Read(uint(len(r)), false, false)
		if err != nil {
			return err
		}
		return fill(r, in)
	}
	out := make([]byte, max(len(w), len(r)))
	copy(out, w)
	in, err := ft.spi.Swap(out, false, false)
	if err != nil {
		return err
	}
	return fill(r, in)
}

func fill(r, in []byte) error {
	if len(in) < len(r) {
		return fmt.Errorf("ft232h: short read: %d of %d bytes", len(in), len(r))
	}
	copy(r, in)
	return nil
}

func (ft *FT232H) Init() error {
	return ft.spi.Init()
}

func (ft *FT232H) Close() error {
	return ft.spi.Close()
}
