package ft232h

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yunginnanet/ft232h"
)

var ErrBadDescriptor = fmt.Errorf("invalid FT232H descriptor provided")

// Descriptor identifies which FT232H to open when several are attached.
type Descriptor struct {
	Index  int
	Serial string
	mask   *ft232h.Mask
}

// Validate checks if [Descriptor] is valid.
func (ftd Descriptor) Validate() error {
	if ftd.Index < 0 && ftd.Serial == "" && emptyMask(ftd.mask) {
		return ErrBadDescriptor
	}
	return nil
}

// Mask returns the [ft232h.Mask] used to match the device. A mask given to
// ByMask is copied, never modified.
func (ftd Descriptor) Mask() *ft232h.Mask {
	m := new(ft232h.Mask)
	if ftd.mask != nil {
		*m = *ftd.mask
	}
	if ftd.Serial != "" {
		m.Serial = ftd.Serial
	}
	if ftd.Index >= 0 {
		m.Index = strconv.Itoa(ftd.Index)
	}
	return m
}

func (ftd Descriptor) String() string {
	switch {
	case ftd.Serial != "":
		return "serial:" + ftd.Serial
	case ftd.Index >= 0:
		return "index:" + strconv.Itoa(ftd.Index)
	case !emptyMask(ftd.mask):
		return fmt.Sprintf("mask:%+v", *ftd.mask)
	default:
		return "(invalid descriptor)"
	}
}

func ByIndex(index int) Descriptor {
	return Descriptor{Index: index}
}

func BySerial(serial string) Descriptor {
	return Descriptor{Serial: serial, Index: -1}
}

func ByMask(mask *ft232h.Mask) Descriptor {
	return Descriptor{mask: mask, Index: -1}
}

// ParseDescriptor reads the forms printed by Descriptor.String:
// "index:N", "serial:S", or a bare index.
func ParseDescriptor(s string) (Descriptor, error) {
	s = strings.TrimSpace(s)
	kind, val, found := strings.Cut(s, ":")
	if !found {
		kind, val = "index", s
	}
	switch strings.ToLower(kind) {
	case "index":
		idx, err := strconv.Atoi(val)
		if err != nil || idx < 0 {
			return Descriptor{}, fmt.Errorf("%w: bad index %q", ErrBadDescriptor, val)
		}
		return ByIndex(idx), nil
	case "serial":
		if val == "" {
			return Descriptor{}, fmt.Errorf("%w: empty serial", ErrBadDescriptor)
		}
		return BySerial(val), nil
	default:
		return Descriptor{}, fmt.Errorf("%w: unknown selector %q", ErrBadDescriptor, kind)
	}
}
