package mcp3x6x

import "periph.io/x/conn/v3/physic"

// Constants from the datasheet

// Register is a 4-bit register address.
type Register byte

// Register Addresses
const (
	// RegADCDATA holds the latest conversion result (width depends on DATA_FORMAT)
	RegADCDATA Register = 0x0
	// RegCONFIG0 holds VREF_SEL, CLK_SEL, CS_SEL and ADC_MODE
	RegCONFIG0 Register = 0x1
	// RegCONFIG1 holds the AMCLK prescaler and OSR
	RegCONFIG1 Register = 0x2
	// RegCONFIG2 holds BOOST, GAIN and AZ_MUX
	RegCONFIG2 Register = 0x3
	// RegCONFIG3 holds CONV_MODE, DATA_FORMAT and CRC/calibration enables
	RegCONFIG3 Register = 0x4
	// RegIRQ holds the IRQ pin configuration and the read-only status copies
	RegIRQ Register = 0x5
	// RegMUX is the input multiplexer register
	RegMUX Register = 0x6
	// RegSCAN is the 24-bit scan mode configuration
	RegSCAN Register = 0x7
	// RegTIMER is the 24-bit delay between scan cycles
	RegTIMER Register = 0x8
	// RegOFFSETCAL is the 24-bit offset calibration
	RegOFFSETCAL Register = 0x9
	// RegGAINCAL is the 24-bit gain calibration
	RegGAINCAL Register = 0xA
	// RegRESERVED0 must hold 0x900000
	RegRESERVED0 Register = 0xB
	// RegRESERVED1 must hold 0x50
	RegRESERVED1 Register = 0xC
	// RegLOCK is the SPI write lock key
	RegLOCK Register = 0xD
	// RegRESERVED2 holds the chip ID
	RegRESERVED2 Register = 0xE
	// RegCRCCFG is the configuration CRC
	RegCRCCFG Register = 0xF

	// NumRegisters is the total number of registers.
	NumRegisters = 0x10
)

var registerNames = [NumRegisters]string{
	"ADCDATA", "CONFIG0", "CONFIG1", "CONFIG2", "CONFIG3", "IRQ", "MUX", "SCAN",
	"TIMER", "OFFSETCAL", "GAINCAL", "RESERVED0", "RESERVED1", "LOCK", "RESERVED2", "CRCCFG",
}

func (r Register) String() string {
	if r >= NumRegisters {
		return "(invalid register)"
	}
	return registerNames[r]
}

// Width returns the register size in bytes. ADCDATA is reported at its
// widest (32-bit formats); the actual read width depends on DATA_FORMAT.
func (r Register) Width() int {
	switch r {
	case RegADCDATA:
		return 4
	case RegSCAN, RegTIMER, RegOFFSETCAL, RegGAINCAL, RegRESERVED0:
		return 3
	case RegRESERVED2, RegCRCCFG:
		return 2
	default:
		return 1
	}
}

// Command byte layout: [7:6] device address, [5:2] register or fast command, [1:0] type.
const (
	deviceAddress = 0x01
	cmdAddr       = deviceAddress << 6

	CMDCONVERSION   = cmdAddr | 0x0A<<2 // start conversion (0x68)
	CMDSTANDBY      = cmdAddr | 0x0B<<2 // ADC_MODE = standby (0x6C)
	CMDSHUTDOWN     = cmdAddr | 0x0C<<2 // ADC_MODE = shutdown (0x70)
	CMDFULLSHUTDOWN = cmdAddr | 0x0D<<2 // CONFIG0 = 0x00 (0x74)
	CMDRESET        = cmdAddr | 0x0E<<2 // full device reset (0x78)

	CMDSREAD  = cmdAddr | 0x01 // static read, OR with addr<<2
	CMDIWRITE = cmdAddr | 0x02 // incremental write, OR with addr<<2
	CMDIREAD  = cmdAddr | 0x03 // incremental read, OR with addr<<2
)

// DefaultLockKey unlocks register writes.
const DefaultLockKey = 0xA5

// Bits for the status byte clocked out with every command byte.
// DR, CRCCFG and POR are active low.
const (
	StatusPORbit    = 0x01
	StatusCRCCFGbit = 0x02
	StatusDRbit     = 0x04
	StatusADDRmask  = 0x30
)

// CONFIG0 fields
const (
	config0VREFSELbit = 0x80
	config0CLKmask    = 0x30
	config0CLKshift   = 4
	config0ADCmask    = 0x03
)

// CONFIG3 fields
const (
	config3CONVmask    = 0xC0
	config3CONVshift   = 6
	config3FORMATmask  = 0x30
	config3FORMATshift = 4
)

// Power-on register values.
const (
	defaultCONFIG0 = 0xC0
	defaultCONFIG1 = 0x0C
	defaultCONFIG2 = 0x8B
	defaultCONFIG3 = 0x00
	defaultIRQ     = 0x73
	defaultMUX     = 0x01
)

// SPI bus parameters.
const (
	SPIFrequency = 20 * physic.MegaHertz
	SPIMode      = 0
)

// InternalReference is the MCP3x6xR internal voltage reference.
const InternalReference = 2400 * physic.MilliVolt

// DataFormat selects the ADCDATA layout (CONFIG3 DATA_FORMAT).
type DataFormat byte

const (
	// SgnData is 24/16-bit two's complement, no padding.
	SgnData DataFormat = iota
	// SgnDataZero is 24/16-bit data left justified in 32 bits, zero padded.
	SgnDataZero
	// SgnExtData is 32-bit with the sign repeated above the data.
	SgnExtData
	// IDSgnExtData is SgnExtData with the channel id in bits 31:28.
	IDSgnExtData
)

func (f DataFormat) String() string {
	switch f {
	case SgnData:
		return "sgn_data"
	case SgnDataZero:
		return "sgn_data_zero"
	case SgnExtData:
		return "sgnext_data"
	case IDSgnExtData:
		return "id_sgnext_data"
	default:
		return "(invalid format)"
	}
}

// ConvMode is CONFIG3 CONV_MODE.
type ConvMode byte

const (
	OneShotShutdown ConvMode = 0x0
	OneShotStandby  ConvMode = 0x2
	Continuous      ConvMode = 0x3
)

// ADCMode is CONFIG0 ADC_MODE.
type ADCMode byte

const (
	ADCShutdown   ADCMode = 0x0
	ADCStandby    ADCMode = 0x2
	ADCConversion ADCMode = 0x3
)

// ClockSelection is CONFIG0 CLK_SEL.
type ClockSelection byte

const (
	ClockExternal       ClockSelection = 0x0
	ClockInternal       ClockSelection = 0x2
	ClockInternalOutput ClockSelection = 0x3
)
