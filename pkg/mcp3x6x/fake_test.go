package mcp3x6x

import (
	"errors"
	"sync"

	"github.com/l0nax/go-spew/spew"
)

var pprint = spew.ConfigState{
	Indent:                  "\t",
	MaxDepth:                0,
	DisableMethods:          false,
	DisablePointerMethods:   false,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	ContinueOnMethod:        true,
	SortKeys:                true,
	SpewKeys:                true,
	HighlightValues:         false,
	HighlightHex:            true,
}

const (
	statusReady    = 0x13 // addr 1, DR low, CRC ok, no POR
	statusNotReady = 0x17
)

var errInjected = errors.New("injected bus failure")

// frame is one chip-select low..high window as seen by the chip.
type frame struct {
	Cmd byte
	W   []byte
	R   int
}

// fakeChip emulates the SPI side of an MCP3x6x closely enough to record
// what the driver clocks out and to feed it canned register contents.
type fakeChip struct {
	mu sync.Mutex

	selected bool
	cur      frame
	frames   []frame

	adc  []byte
	regs map[Register][]byte

	// notReadyPolls is the number of IRQ register reads answered with DR high.
	notReadyPolls int
	failCmd       byte
	inits         int
	closed        bool
}

func newFakeChip() *fakeChip {
	return &fakeChip{regs: make(map[Register][]byte)}
}

func (c *fakeChip) bus() *Bus {
	return NewBus(c, c.setCS)
}

func (c *fakeChip) setCS(high bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !high && !c.selected:
		c.selected = true
		c.cur = frame{}
	case high && c.selected:
		c.selected = false
		c.frames = append(c.frames, c.cur)
	}
}

func (c *fakeChip) Transfer(b byte) (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur.Cmd = b
	if c.failCmd != 0 && b == c.failCmd {
		return 0, errInjected
	}
	if b == CMDSREAD|byte(RegIRQ)<<2 && c.notReadyPolls > 0 {
		c.notReadyPolls--
		return statusNotReady, nil
	}
	return statusReady, nil
}

func (c *fakeChip) Tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur.W = append(c.cur.W, w...)
	c.cur.R += len(r)
	if len(r) == 0 {
		return nil
	}
	reg := Register((c.cur.Cmd >> 2) & 0x0F)
	if reg == RegADCDATA {
		copy(r, c.adc)
	} else {
		copy(r, c.regs[reg])
	}
	return nil
}

func (c *fakeChip) Frames() []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]frame, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *fakeChip) Reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

func (c *fakeChip) setADC(b ...byte) {
	c.mu.Lock()
	c.adc = b
	c.mu.Unlock()
}

// countingBus wraps a Bus so Init and Close calls can be observed.
type countingBus struct {
	*Bus
	chip *fakeChip
}

func (b countingBus) Init() error {
	b.chip.mu.Lock()
	b.chip.inits++
	b.chip.mu.Unlock()
	return nil
}

func (b countingBus) Close() error {
	b.chip.mu.Lock()
	b.chip.closed = true
	b.chip.mu.Unlock()
	return nil
}

// guardedBus counts chip select changes made without holding the bus.
type guardedBus struct {
	countingBus
	inTx     bool
	outside  int
}

func (b *guardedBus) BeginTransaction(s SPISettings) error {
	b.inTx = true
	return b.countingBus.BeginTransaction(s)
}

func (b *guardedBus) EndTransaction() error {
	b.inTx = false
	return b.countingBus.EndTransaction()
}

func (b *guardedBus) SetCS(high bool) error {
	if !b.inTx {
		b.outside++
	}
	return b.countingBus.SetCS(high)
}
