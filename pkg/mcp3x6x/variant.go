package mcp3x6x

import (
	"errors"
	"fmt"
)

// Errors returned by the driver.
var (
	ErrUnsupportedVariant = errors.New("mcp3x6x: unsupported device variant")
	ErrUnknownFormat      = errors.New("mcp3x6x: unknown data format")
	ErrChannelNotFound    = errors.New("mcp3x6x: channel not found")
	ErrTimeout            = errors.New("mcp3x6x: timeout waiting for data ready")
	ErrNotScanMode        = errors.New("mcp3x6x: device not configured for scan mode")
)

// Variant identifies the chip model.
type Variant uint16

const (
	MCP3461 Variant = 0x3461
	MCP3462 Variant = 0x3462
	MCP3464 Variant = 0x3464
	MCP3561 Variant = 0x3561
	MCP3562 Variant = 0x3562
	MCP3564 Variant = 0x3564
)

// Capabilities returns the resolution in bits and the number of analog inputs.
func (v Variant) Capabilities() (resolution, channels int, err error) {
	switch v {
	case MCP3461:
		return 16, 2, nil
	case MCP3462:
		return 16, 4, nil
	case MCP3464:
		return 16, 8, nil
	case MCP3561:
		return 24, 2, nil
	case MCP3562:
		return 24, 4, nil
	case MCP3564:
		return 24, 8, nil
	default:
		return 0, 0, fmt.Errorf("%w: 0x%04X", ErrUnsupportedVariant, uint16(v))
	}
}

func (v Variant) String() string {
	if _, _, err := v.Capabilities(); err != nil {
		return "(invalid variant)"
	}
	return fmt.Sprintf("MCP%04X", uint16(v))
}

// ParseVariant accepts "MCP3564", "mcp3564" or "3564".
func ParseVariant(s string) (Variant, error) {
	var n uint16
	if len(s) > 3 && (s[:3] == "MCP" || s[:3] == "mcp") {
		s = s[3:]
	}
	if _, err := fmt.Sscanf(s, "%x", &n); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedVariant, s)
	}
	v := Variant(n)
	if _, _, err := v.Capabilities(); err != nil {
		return 0, err
	}
	return v, nil
}
