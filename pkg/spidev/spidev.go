//go:build linux

// Package spidev carries MCP3x6x bus traffic over a Linux spidev port, with
// chip select and the IRQ line on GPIO character device lines.
//
// The kernel would otherwise toggle chip select around every ioctl, which
// splits a command byte from its payload, so the port is opened with
// spi.NoCS and CS is driven by hand.
package spidev

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/warthog618/gpiod"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/yunginnanet/ftdi-mcp3x6x/pkg/mcp3x6x"
)

// ErrSettingsChanged is returned when a transaction asks for bus settings
// other than the ones the port was connected with; spidev ports connect once.
var ErrSettingsChanged = errors.New("spidev: bus settings cannot change after connect")

// Config selects the port and lines. Port is a spireg name such as
// "/dev/spidev0.0" or "SPI0.0"; empty picks the first port.
type Config struct {
	Port     string
	GPIOChip string
	CS       int

	// IRQ is the line offset of the chip's IRQ output; negative disables it.
	IRQ int

	// MaxFrequency caps SCK. Zero leaves the driver's request as is.
	MaxFrequency physic.Frequency

	Logger *zerolog.Logger
}

// Port is a spidev port wired to one MCP3x6x.
type Port struct {
	cfg Config
	log zerolog.Logger

	mu       sync.Mutex
	port     spi.PortCloser
	conn     spi.Conn
	settings mcp3x6x.SPISettings

	chip *gpiod.Chip
	cs   *gpiod.Line
	irq  *gpiod.Line

	edgeMu sync.Mutex
	edges  chan struct{}

	// scratch buffers for padded full duplex transfers
	wbuf, rbuf [8]byte
}

var _ mcp3x6x.SerialInterface = (*Port)(nil)

// Open initializes periph, opens the spidev port and requests the GPIO lines.
// The SPI connection itself is made on the first transaction.
func Open(cfg Config) (*Port, error) {
	p := &Port{cfg: cfg, log: zerolog.Nop()}
	if cfg.Logger != nil {
		p.log = cfg.Logger.With().Str("port", cfg.Port).Logger()
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("spidev: host init: %w", err)
	}

	var err error
	if p.port, err = spireg.Open(cfg.Port); err != nil {
		return nil, fmt.Errorf("spidev: open %q: %w", cfg.Port, err)
	}

	if p.chip, err = gpiod.NewChip(cfg.GPIOChip, gpiod.WithConsumer("mcp3x6x")); err != nil {
		return nil, multierr.Append(fmt.Errorf("spidev: open %s: %w", cfg.GPIOChip, err), p.port.Close())
	}
	if p.cs, err = p.chip.RequestLine(cfg.CS, gpiod.AsOutput(1)); err != nil {
		return nil, multierr.Append(fmt.Errorf("spidev: request cs line %d: %w", cfg.CS, err), p.Close())
	}
	if cfg.IRQ >= 0 {
		p.edges = make(chan struct{}, 1)
		p.irq, err = p.chip.RequestLine(cfg.IRQ,
			gpiod.WithFallingEdge,
			gpiod.WithEventHandler(p.onEdge))
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("spidev: request irq line %d: %w", cfg.IRQ, err), p.Close())
		}
	}

	p.log.Debug().Str("gpiochip", cfg.GPIOChip).Int("cs", cfg.CS).Int("irq", cfg.IRQ).Msg("opened")
	return p, nil
}

// onEdge runs on the gpiod event goroutine. Edges that arrive while the
// previous one is still pending are coalesced.
func (p *Port) onEdge(evt gpiod.LineEvent) {
	p.edgeMu.Lock()
	defer p.edgeMu.Unlock()
	if p.edges == nil {
		return
	}
	select {
	case p.edges <- struct{}{}:
	default:
		p.log.Trace().Dur("timestamp", evt.Timestamp).Msg("edge coalesced")
	}
}

// Edges returns the falling edges seen on the IRQ line. The channel is closed
// by Close.
func (p *Port) Edges() (<-chan struct{}, error) {
	if p.irq == nil {
		return nil, errors.New("spidev: IRQ line not configured")
	}
	return p.edges, nil
}

// WaitIRQ blocks until the IRQ line reads low or ctx is done.
func (p *Port) WaitIRQ(ctx context.Context, interval time.Duration) error {
	if p.irq == nil {
		return errors.New("spidev: IRQ line not configured")
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		v, err := p.irq.Value()
		if err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (p *Port) connect(s mcp3x6x.SPISettings) error {
	freq := s.Frequency
	if p.cfg.MaxFrequency > 0 && freq > p.cfg.MaxFrequency {
		freq = p.cfg.MaxFrequency
	}
	mode := spi.Mode(s.Mode) | spi.NoCS
	if s.LSBFirst {
		mode |= spi.LSBFirst
	}
	c, err := p.port.Connect(freq, mode, 8)
	if err != nil {
		return fmt.Errorf("spidev: connect: %w", err)
	}
	p.conn = c
	p.settings = s
	p.log.Debug().Stringer("freq", freq).Uint8("mode", s.Mode).Msg("connected")
	return nil
}

// BeginTransaction claims the port. The first call connects with s.
func (p *Port) BeginTransaction(s mcp3x6x.SPISettings) error {
	p.mu.Lock()
	if p.conn == nil {
		if err := p.connect(s); err != nil {
			p.mu.Unlock()
			return err
		}
	} else if s != p.settings {
		p.mu.Unlock()
		return ErrSettingsChanged
	}
	return nil
}

func (p *Port) EndTransaction() error {
	p.mu.Unlock()
	return nil
}

func (p *Port) SetCS(high bool) error {
	v := 0
	if high {
		v = 1
	}
	return p.cs.SetValue(v)
}

// Transfer clocks out b and returns the byte clocked in alongside it.
func (p *Port) Transfer(b byte) (byte, error) {
	p.wbuf[0] = b
	if err := p.conn.Tx(p.wbuf[:1], p.rbuf[:1]); err != nil {
		return 0, err
	}
	return p.rbuf[0], nil
}

// Tx runs one full duplex exchange of max(len(w), len(r)) bytes, padding w
// with zeros.
func (p *Port) Tx(w, r []byte) error {
	n := max(len(w), len(r))
	if n == 0 {
		return nil
	}
	var wb, rb []byte
	if n <= len(p.wbuf) {
		wb, rb = p.wbuf[:n], p.rbuf[:n]
	} else {
		wb, rb = make([]byte, n), make([]byte, n)
	}
	clear(wb)
	copy(wb, w)
	if err := p.conn.Tx(wb, rb); err != nil {
		return err
	}
	copy(r, rb)
	return nil
}

func (p *Port) Init() error { return nil }

// Close releases the lines and the port. It is safe to call on a partially
// opened Port.
func (p *Port) Close() error {
	var err error
	if p.irq != nil {
		err = multierr.Append(err, p.irq.Close())
		p.irq = nil
	}
	p.edgeMu.Lock()
	if p.edges != nil {
		close(p.edges)
		p.edges = nil
	}
	p.edgeMu.Unlock()
	if p.cs != nil {
		err = multierr.Append(err, p.cs.Close())
		p.cs = nil
	}
	if p.chip != nil {
		err = multierr.Append(err, p.chip.Close())
		p.chip = nil
	}
	if p.port != nil {
		err = multierr.Append(err, p.port.Close())
		p.port = nil
	}
	return err
}
