package mcp3x6x

import "fmt"

// fastCommand sends a single command byte with no payload. Callers hold d.mu.
func (d *Device) fastCommand(cmd byte) (Status, error) {
	st, err := d.transfer(cmd, nil, nil)
	if err != nil {
		return st, fmt.Errorf("fast command 0x%02X: %w", cmd, err)
	}
	d.log.Debug().Uint8("cmd", cmd).Stringer("status", st).Msg("fast command")
	return st, nil
}

// reset issues a full device reset; the shadow registers return to their
// power-on values.
func (d *Device) reset() (Status, error) {
	st, err := d.fastCommand(CMDRESET)
	if err != nil {
		return st, err
	}
	d.settings = DefaultSettings()
	d.resolution = effectiveResolution(d.baseResolution, d.settings.DataFormat())
	return st, nil
}

// Reset triggers a full device reset.
func (d *Device) Reset() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reset()
}

// Standby puts the ADC in standby; bias and clock stay up.
func (d *Device) Standby() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.standby()
}

func (d *Device) standby() (Status, error) {
	st, err := d.fastCommand(CMDSTANDBY)
	if err == nil {
		d.settings.Config0 = d.settings.Config0&^config0ADCmask | byte(ADCStandby)
	}
	return st, err
}

// Conversion starts a conversion (or a scan cycle in scan mode).
func (d *Device) Conversion() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conversion()
}

func (d *Device) conversion() (Status, error) {
	st, err := d.fastCommand(CMDCONVERSION)
	if err == nil {
		d.settings.Config0 = d.settings.Config0&^config0ADCmask | byte(ADCConversion)
	}
	return st, err
}

// Shutdown puts the ADC in shutdown mode.
func (d *Device) Shutdown() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, err := d.fastCommand(CMDSHUTDOWN)
	if err == nil {
		d.settings.Config0 = d.settings.Config0&^config0ADCmask | byte(ADCShutdown)
	}
	return st, err
}

// FullShutdown clears CONFIG0, shutting down the whole chip.
func (d *Device) FullShutdown() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fullShutdown()
}

func (d *Device) fullShutdown() (Status, error) {
	st, err := d.fastCommand(CMDFULLSHUTDOWN)
	if err == nil {
		d.settings.Config0 = 0
	}
	return st, err
}
