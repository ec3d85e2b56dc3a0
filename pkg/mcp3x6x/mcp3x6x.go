// Package mcp3x6x drives the Microchip MCP3461/2/4 and MCP3561/2/4 delta-sigma
// ADCs over SPI.
//
// The driver keeps a shadow copy of the configuration registers. Every setter
// writes the affected register through to the chip and only then updates the
// shadow, so the shadow always equals what was last written.
//
// Two wiring modes are supported:
//
//	polled:   New(...)         MUX mode, AnalogRead per conversion
//	scanning: NewScanning(...) continuous scan, samples delivered on IRQ edges
//
// All bus traffic is serialized by a mutex held for the whole chip-select
// frame, including transfers made from ISRHandler.
package mcp3x6x

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"
)

// Pins describes how the chip is wired. IRQ and MCLK are only used as
// capability flags: either being non-zero selects scan mode in Begin.
type Pins struct {
	CS   uint8
	IRQ  uint8
	MCLK uint8
	MOSI uint8
	MISO uint8
	SCK  uint8
}

// Config controls non-hardware behaviour. Only Variant is required.
type Config struct {
	Variant Variant
	Pins    Pins

	// Logger receives debug output. Defaults to a disabled logger.
	Logger *zerolog.Logger

	// ConversionTimeout, when positive, makes AnalogRead poll the data-ready
	// flag before reading, failing with ErrTimeout once it elapses.
	ConversionTimeout time.Duration

	// PollInterval is the wait between data-ready polls. Default 1 ms.
	PollInterval time.Duration
}

// Device provides high-level control over an MCP3x6x.
type Device struct {
	mu  sync.Mutex
	spi SerialInterface
	log zerolog.Logger

	variant       Variant
	pins          Pins
	resolutionMax int
	channelsMax   int
	channelMask   uint16

	pollInterval      time.Duration
	conversionTimeout time.Duration

	// baseResolution is resolutionMax unless lowered by SetResolution.
	baseResolution int
	resolution     int

	settings  Settings
	status    Status
	reference physic.ElectricPotential

	differential bool
	continuous   bool

	sample Sample
	result [NumChannels]int32

	regLW [NumRegisters]uint32 // "Last Write" register data
	regLR [NumRegisters]uint32 // "Last Read" register data

	// Fixed buffer so reads from ISRHandler do not allocate.
	rbuf [4]byte
}

// New constructs a Device for polled (multiplexer) operation.
// It does not touch the bus; call Begin.
func New(spi SerialInterface, cfg Config) (*Device, error) {
	resMax, chMax, err := cfg.Variant.Capabilities()
	if err != nil {
		return nil, err
	}
	if spi == nil {
		return nil, errors.New("mcp3x6x: nil serial interface")
	}

	d := &Device{
		spi:               spi,
		log:               zerolog.Nop(),
		variant:           cfg.Variant,
		pins:              cfg.Pins,
		resolutionMax:     resMax,
		channelsMax:       chMax,
		channelMask:       channelMask(chMax),
		pollInterval:      cfg.PollInterval,
		conversionTimeout: cfg.ConversionTimeout,
		baseResolution:    resMax,
		resolution:        resMax,
		settings:          DefaultSettings(),
	}
	if cfg.Logger != nil {
		d.log = cfg.Logger.With().Str("device", cfg.Variant.String()).Logger()
	}
	if d.pollInterval <= 0 {
		d.pollInterval = time.Millisecond
	}
	return d, nil
}

// NewScanning constructs a Device for scan mode, with conversions clocked
// continuously and results announced on the irq line.
func NewScanning(irq, mclk uint8, spi SerialInterface, cfg Config) (*Device, error) {
	cfg.Pins.IRQ = irq
	cfg.Pins.MCLK = mclk
	return New(spi, cfg)
}

func (d *Device) scanMode() bool {
	return d.pins.IRQ != 0 || d.pins.MCLK != 0
}

// Begin resets the chip and configures it for the wiring mode.
//
// Scan mode: channel id + sign extended format, continuous conversion,
// conversion started. Polled mode: plain signed format, internal reference,
// standby.
func (d *Device) Begin() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.spi.Init(); err != nil {
		return fmt.Errorf("init serial interface: %w", err)
	}
	if err := d.deselect(); err != nil {
		return fmt.Errorf("deselect: %w", err)
	}

	if _, err := d.reset(); err != nil {
		return err
	}

	if err := d.apply(d.settings.WithClockSelection(ClockInternal)); err != nil {
		return err
	}

	if d.scanMode() {
		if err := d.setDataFormat(IDSgnExtData); err != nil {
			return err
		}
		if err := d.apply(d.settings.WithConvMode(Continuous)); err != nil {
			return err
		}
		d.continuous = true
		if _, err := d.conversion(); err != nil {
			return err
		}
	} else {
		if err := d.setDataFormat(SgnData); err != nil {
			return err
		}
		if err := d.setReference(0); err != nil {
			return err
		}
		if _, err := d.standby(); err != nil {
			return err
		}
	}

	d.log.Debug().Bool("scan", d.scanMode()).Int("resolution", d.resolution).Msg("initialized")
	return nil
}

// Close shuts the chip down and closes the serial interface.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.fullShutdown()
	return errors.Join(err, d.spi.Close())
}

// Read reads and decodes the current ADCDATA into out.
//
// The channel is taken from the data word in IDSgnExtData format and from
// the MUX shadow otherwise; if it cannot be resolved out.Channel is
// InvalidChannel and ErrChannelNotFound is returned alongside the value.
func (d *Device) Read(out *Sample) (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read(out)
}

func (d *Device) read(out *Sample) (Status, error) {
	f := d.settings.DataFormat()
	b, st, err := d.readRegister(RegADCDATA, payloadWidth(f, d.resolutionMax))
	if err != nil {
		return st, err
	}
	raw := wordFromWire(b)
	d.regLR[RegADCDATA] = raw

	value, err := decodeValue(f, d.resolutionMax, raw)
	if err != nil {
		return st, err
	}
	out.Value = value
	out.bits = uint8(d.resolutionMax)

	if f == IDSgnExtData {
		out.Channel = channelFromWord(raw)
	} else {
		out.Channel, err = lookupChannel(d.channelMask, d.settings.Mux)
	}

	d.log.Debug().Uint32("raw", raw).Uint8("channel", out.Channel).Int32("value", out.Value).Msg("adc data")
	return st, err
}

func (d *Device) store(s Sample) {
	if s.Channel < NumChannels {
		d.result[s.Channel] = s.Value
	}
}

// ISRHandler services a data-ready edge: it performs one read and stores the
// value in the result cache under its channel id. It waits for any
// foreground transaction to finish first.
func (d *Device) ISRHandler() (Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.read(&d.sample)
	if err == nil {
		d.store(d.sample)
	}
	return d.sample, err
}

// Lock writes key to the LOCK register; any key but DefaultLockKey locks
// register writes.
func (d *Device) Lock(key byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.apply(d.settings.WithLock(key))
}

// Unlock writes DefaultLockKey to the LOCK register.
func (d *Device) Unlock() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.apply(d.settings.WithLock(DefaultLockKey))
}

// SetDataFormat selects the ADCDATA layout and adjusts the effective
// resolution. An unknown format sets the resolution to -1 and is not written.
func (d *Device) SetDataFormat(f DataFormat) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setDataFormat(f)
}

func (d *Device) setDataFormat(f DataFormat) error {
	if f > IDSgnExtData {
		d.resolution = -1
		return fmt.Errorf("%w: %d", ErrUnknownFormat, f)
	}
	if err := d.apply(d.settings.WithDataFormat(f)); err != nil {
		return err
	}
	d.resolution = effectiveResolution(d.baseResolution, f)
	return nil
}

func (d *Device) SetConvMode(m ConvMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.apply(d.settings.WithConvMode(m))
}

func (d *Device) SetADCMode(m ADCMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.apply(d.settings.WithADCMode(m))
}

func (d *Device) SetClockSelection(c ClockSelection) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.apply(d.settings.WithClockSelection(c))
}

// SetScanChannel adds the channel selected by m to the scan list.
func (d *Device) SetScanChannel(m Mux) error {
	return d.updateScan(m, true)
}

// UnsetScanChannel removes the channel selected by m from the scan list.
func (d *Device) UnsetScanChannel(m Mux) error {
	return d.updateScan(m, false)
}

func (d *Device) updateScan(m Mux, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := lookupChannel(d.channelMask, m)
	if err != nil {
		return fmt.Errorf("%w: %s on %s", err, m, d.variant)
	}
	return d.apply(d.settings.WithScanChannel(id, on))
}

// SetScanDelay sets the TIMER register: the number of DMCLK periods between
// scan cycles.
func (d *Device) SetScanDelay(periods uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.apply(d.settings.WithTimer(periods))
}

// SetReference records the reference voltage used for conversions to volts.
// Zero selects the internal 2.4 V reference (VREF_SEL); any other value is
// kept host side only.
func (d *Device) SetReference(v physic.ElectricPotential) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setReference(v)
}

func (d *Device) setReference(v physic.ElectricPotential) error {
	if v == 0 {
		if err := d.apply(d.settings.WithInternalReference(true)); err != nil {
			return err
		}
		v = InternalReference
	}
	d.reference = v
	return nil
}

func (d *Device) Reference() physic.ElectricPotential {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reference
}

// AnalogRead selects m, starts a conversion and returns the decoded value.
// The value is also stored in the result cache.
func (d *Device) AnalogRead(m Mux) (int32, error) {
	s, err := d.ReadSample(m)
	return s.Value, err
}

// ReadSample is AnalogRead returning the whole decoded sample.
func (d *Device) ReadSample(m Mux) (Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.apply(d.settings.WithMux(m)); err != nil {
		return Sample{Channel: InvalidChannel}, err
	}
	if _, err := d.conversion(); err != nil {
		return Sample{Channel: InvalidChannel}, err
	}
	if err := d.waitDataReady(); err != nil {
		return Sample{Channel: InvalidChannel}, err
	}
	if _, err := d.read(&d.sample); err != nil {
		return d.sample, err
	}
	d.store(d.sample)
	return d.sample, nil
}

// AnalogReadDifferential reads pos against neg.
func (d *Device) AnalogReadDifferential(pos, neg Input) (int32, error) {
	return d.AnalogRead(Differential(pos, neg))
}

// waitDataReady polls the status byte until DR is asserted, if a
// conversion timeout is configured.
func (d *Device) waitDataReady() error {
	if d.conversionTimeout <= 0 {
		return nil
	}
	deadline := time.Now().Add(d.conversionTimeout)
	for {
		_, st, err := d.readRegister(RegIRQ, 1)
		if err != nil {
			return err
		}
		if st.DataReady() {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(d.pollInterval)
	}
}

func (d *Device) SingleEndedMode() {
	d.mu.Lock()
	d.differential = false
	d.mu.Unlock()
}

func (d *Device) DifferentialMode() {
	d.mu.Lock()
	d.differential = true
	d.mu.Unlock()
}

func (d *Device) IsDifferential() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.differential
}

func (d *Device) IsContinuous() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.continuous
}

// StartContinuousDifferential flags differential operation and switches the
// chip to continuous conversion.
func (d *Device) StartContinuousDifferential() error {
	return d.startDifferential(Continuous)
}

// StartSingleDifferential flags differential operation and switches the
// chip to one-shot conversions ending in standby.
func (d *Device) StartSingleDifferential() error {
	return d.startDifferential(OneShotStandby)
}

func (d *Device) startDifferential(m ConvMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.apply(d.settings.WithConvMode(m)); err != nil {
		return err
	}
	d.continuous = m == Continuous
	d.differential = true
	return nil
}

// SetResolution lowers the effective resolution. Requests at or above the
// variant's maximum are ignored.
func (d *Device) SetResolution(bits int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if bits > 0 && bits < d.resolutionMax {
		d.baseResolution = bits
		d.resolution = bits
	}
}

// Resolution returns the effective resolution in bits, or -1 after an
// unknown data format was requested.
func (d *Device) Resolution() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resolution
}

// MaxValue returns 2^Resolution, or 0 if the resolution is invalid.
func (d *Device) MaxValue() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.resolution < 0 || d.resolution > 31 {
		return 0
	}
	return 1 << uint(d.resolution)
}

// IsComplete reports the data-ready flag of the most recent transaction.
func (d *Device) IsComplete() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status.DataReady()
}

// Status returns the status byte of the most recent transaction.
func (d *Device) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Settings returns a copy of the shadow registers.
func (d *Device) Settings() Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings
}

// LastSample returns the most recently decoded sample.
func (d *Device) LastSample() Sample {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sample
}

// Result returns the last value read on channel id; stale values are not
// cleared.
func (d *Device) Result(id uint8) int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id >= NumChannels {
		return 0
	}
	return d.result[id]
}

// Results returns a copy of the result cache.
func (d *Device) Results() [NumChannels]int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}

func (d *Device) Variant() Variant { return d.variant }
func (d *Device) ResolutionMax() int { return d.resolutionMax }
func (d *Device) ChannelsMax() int { return d.channelsMax }
func (d *Device) ChannelMask() uint16 { return d.channelMask }
func (d *Device) Pins() Pins { return d.pins }
func (d *Device) ScanMode() bool { return d.scanMode() }

// ToVolts converts a two's complement code (see Sample.Code) to a voltage
// using the configured reference.
func (d *Device) ToVolts(code int32) physic.ElectricPotential {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ConvertToVolts(code, d.reference, d.resolutionMax-1)
}
