package ft232h

import (
	"fmt"

	"github.com/yunginnanet/ft232h"
	"periph.io/x/conn/v3/physic"
)

func (ft *FT232H) vidPid() (vid string, pid string) {
	return fmt.Sprintf("%04x", ft.VID()), fmt.Sprintf("%04x", ft.PID())
}

func emptyMask(mask *ft232h.Mask) bool {
	return mask == nil || (mask.Serial == "" && mask.PID == "" && mask.VID == "" && mask.Desc == "" && mask.Index == "")
}

// clockHz converts a requested SCK to the MPSSE clock setting, capped at
// limit. A zero request selects limit.
func clockHz(want, limit physic.Frequency) uint32 {
	if limit <= 0 || limit > MaxClock {
		limit = MaxClock
	}
	if want <= 0 || want > limit {
		want = limit
	}
	return uint32(want / physic.Hertz)
}

// cPin maps a C port pin number (0-7) to the bitmask the MPSSE GPIO uses.
func cPin(pin uint) (ft232h.CPin, error) {
	p := ft232h.C(pin)
	if !p.Valid() {
		return 0, fmt.Errorf("ft232h: no C pin %d", pin)
	}
	return p, nil
}
