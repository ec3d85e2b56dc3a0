package mcp3x6x

import (
	"errors"
	"fmt"
)

// transfer frames one command byte and its payload under a single chip
// select. The byte clocked in with cmd is kept as the current status.
// Callers hold d.mu.
func (d *Device) transfer(cmd byte, w, r []byte) (Status, error) {
	if err := d.spi.BeginTransaction(DefaultSPISettings); err != nil {
		return d.status, err
	}
	if err := d.setCSLow(); err != nil {
		return d.status, errors.Join(err, d.spi.EndTransaction())
	}

	st, err := d.spi.Transfer(cmd)
	if err == nil {
		d.status = Status(st)
		if len(w) > 0 || len(r) > 0 {
			err = d.spi.Tx(w, r)
		}
	}

	err = errors.Join(err, d.setCSHigh(), d.spi.EndTransaction())
	return d.status, err
}

// writeRegister clocks out w with an incremental write.
func (d *Device) writeRegister(w RegisterWrite) (Status, error) {
	cmd := byte(CMDIWRITE) | byte(w.Reg)<<2
	st, err := d.transfer(cmd, w.Bytes(), nil)
	if err != nil {
		return st, fmt.Errorf("write %s: %w", w.Reg, err)
	}
	d.regLW[w.Reg] = wordFromWire(w.Bytes())
	d.log.Debug().Stringer("reg", w.Reg).Hex("data", w.Bytes()).Stringer("status", st).Msg("register write")
	return st, nil
}

// apply writes the register produced by a settings transition and commits
// next only once the write went out.
func (d *Device) apply(next Settings, w RegisterWrite) error {
	if _, err := d.writeRegister(w); err != nil {
		return err
	}
	d.settings = next
	return nil
}

// readRegister reads n bytes of reg with a static read into d.rbuf.
func (d *Device) readRegister(reg Register, n int) ([]byte, Status, error) {
	if reg >= NumRegisters {
		return nil, d.status, fmt.Errorf("invalid register address 0x%02X", byte(reg))
	}
	buf := d.rbuf[:n]
	clear(buf)
	cmd := byte(CMDSREAD) | byte(reg)<<2
	st, err := d.transfer(cmd, nil, buf)
	if err != nil {
		return nil, st, fmt.Errorf("read %s: %w", reg, err)
	}
	return buf, st, nil
}

// ReadRegister reads reg from the chip. ADCDATA is read at the width of the
// current data format.
func (d *Device) ReadRegister(reg Register) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readRegisterValue(reg)
}

func (d *Device) readRegisterValue(reg Register) (uint32, error) {
	n := reg.Width()
	if reg == RegADCDATA {
		n = payloadWidth(d.settings.DataFormat(), d.resolutionMax)
	}
	b, _, err := d.readRegister(reg, n)
	if err != nil {
		return 0, err
	}
	v := wordFromWire(b)
	if reg < NumRegisters {
		d.regLR[reg] = v
	}
	return v, nil
}

// LastReadRegister returns the value of reg from the most recent readback.
func (d *Device) LastReadRegister(reg Register) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if reg >= NumRegisters {
		return 0
	}
	return d.regLR[reg]
}

// LastWrittenRegister returns the value most recently written to reg.
func (d *Device) LastWrittenRegister(reg Register) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if reg >= NumRegisters {
		return 0
	}
	return d.regLW[reg]
}

// Registers returns the most recent readback of every register.
func (d *Device) Registers() map[Register]uint32 {
	d.mu.Lock()
	r := make(map[Register]uint32, NumRegisters)
	for reg, val := range d.regLR {
		r[Register(reg)] = val
	}
	d.mu.Unlock()
	return r
}

// ReadAllRegisters reads every register back from the chip.
func (d *Device) ReadAllRegisters() (map[Register]uint32, error) {
	d.mu.Lock()
	for reg := Register(0); reg < NumRegisters; reg++ {
		if _, err := d.readRegisterValue(reg); err != nil {
			d.mu.Unlock()
			return nil, err
		}
	}
	d.mu.Unlock()
	return d.Registers(), nil
}
