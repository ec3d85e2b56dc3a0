package mcp3x6x

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSettingsTransitions(t *testing.T) {
	base := DefaultSettings()

	tests := []struct {
		name      string
		apply     func(Settings) (Settings, RegisterWrite)
		wantWrite RegisterWrite
		check     func(t *testing.T, s Settings)
	}{
		{
			name:      "DataFormat",
			apply:     func(s Settings) (Settings, RegisterWrite) { return s.WithDataFormat(IDSgnExtData) },
			wantWrite: RegisterWrite{Reg: RegCONFIG3, Data: [3]byte{0x30}, N: 1},
			check: func(t *testing.T, s Settings) {
				if s.DataFormat() != IDSgnExtData {
					t.Errorf("expected %s, got %s", IDSgnExtData, s.DataFormat())
				}
			},
		},
		{
			name:      "ConvMode",
			apply:     func(s Settings) (Settings, RegisterWrite) { return s.WithConvMode(Continuous) },
			wantWrite: RegisterWrite{Reg: RegCONFIG3, Data: [3]byte{0xC0}, N: 1},
			check: func(t *testing.T, s Settings) {
				if s.ConvMode() != Continuous {
					t.Errorf("expected continuous, got %d", s.ConvMode())
				}
				if s.DataFormat() != SgnData {
					t.Errorf("data format clobbered: %s", s.DataFormat())
				}
			},
		},
		{
			name:      "ADCMode",
			apply:     func(s Settings) (Settings, RegisterWrite) { return s.WithADCMode(ADCStandby) },
			wantWrite: RegisterWrite{Reg: RegCONFIG0, Data: [3]byte{0xC2}, N: 1},
			check: func(t *testing.T, s Settings) {
				if s.ADCMode() != ADCStandby {
					t.Errorf("expected standby, got %d", s.ADCMode())
				}
			},
		},
		{
			name:      "ClockSelection",
			apply:     func(s Settings) (Settings, RegisterWrite) { return s.WithClockSelection(ClockInternal) },
			wantWrite: RegisterWrite{Reg: RegCONFIG0, Data: [3]byte{0xE0}, N: 1},
			check: func(t *testing.T, s Settings) {
				if s.ClockSelection() != ClockInternal {
					t.Errorf("expected internal clock, got %d", s.ClockSelection())
				}
			},
		},
		{
			name:      "ExternalReference",
			apply:     func(s Settings) (Settings, RegisterWrite) { return s.WithInternalReference(false) },
			wantWrite: RegisterWrite{Reg: RegCONFIG0, Data: [3]byte{0x40}, N: 1},
			check: func(t *testing.T, s Settings) {
				if s.InternalReference() {
					t.Error("VREF_SEL still set")
				}
			},
		},
		{
			name:      "Mux",
			apply:     func(s Settings) (Settings, RegisterWrite) { return s.WithMux(Differential(CH2, CH3)) },
			wantWrite: RegisterWrite{Reg: RegMUX, Data: [3]byte{0x23}, N: 1},
		},
		{
			name:      "ScanChannel",
			apply:     func(s Settings) (Settings, RegisterWrite) { return s.WithScanChannel(ChannelTemp, true) },
			wantWrite: RegisterWrite{Reg: RegSCAN, Data: [3]byte{0x00, 0x10, 0x00}, N: 3},
		},
		{
			name:      "Timer",
			apply:     func(s Settings) (Settings, RegisterWrite) { return s.WithTimer(0xFF123456) },
			wantWrite: RegisterWrite{Reg: RegTIMER, Data: [3]byte{0x12, 0x34, 0x56}, N: 3},
			check: func(t *testing.T, s Settings) {
				if s.Timer != 0x123456 {
					t.Errorf("timer not truncated to 24 bits: 0x%X", s.Timer)
				}
			},
		},
		{
			name:      "Lock",
			apply:     func(s Settings) (Settings, RegisterWrite) { return s.WithLock(0x00) },
			wantWrite: RegisterWrite{Reg: RegLOCK, Data: [3]byte{0x00}, N: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := base
			next, w := tt.apply(base)
			if diff := cmp.Diff(tt.wantWrite, w); diff != "" {
				t.Errorf("register write mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(before, base); diff != "" {
				t.Errorf("transition mutated its receiver:\n%s", diff)
			}
			if tt.check != nil {
				tt.check(t, next)
			}
		})
	}
}

func TestScanChannelBits(t *testing.T) {
	s := DefaultSettings()
	s, _ = s.WithScanChannel(0, true)
	s, _ = s.WithScanChannel(ChannelDiffB, true)
	s, w := s.WithScanChannel(ChannelOffset, true)
	if s.Scan != 0x8201 {
		t.Errorf("expected 0x8201, got 0x%X", s.Scan)
	}
	if diff := cmp.Diff([]byte{0x00, 0x82, 0x01}, w.Bytes()); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	s, _ = s.WithScanChannel(ChannelDiffB, false)
	if s.Scan != 0x8001 {
		t.Errorf("expected 0x8001 after clearing, got 0x%X", s.Scan)
	}

	s, _ = s.WithScanChannel(NumChannels, true)
	if s.Scan != 0x8001 {
		t.Errorf("out of range id changed the scan list: 0x%X", s.Scan)
	}
}

func TestScanListReplaces(t *testing.T) {
	s := DefaultSettings()
	s.Scan = 0xE00004 // delay bits plus CH2
	s, w := s.WithScanList(0, ChannelTemp, NumChannels)
	if s.Scan != 0xE01001 {
		t.Errorf("expected 0xE01001, got 0x%X", s.Scan)
	}
	if diff := cmp.Diff([]byte{0xE0, 0x10, 0x01}, w.Bytes()); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	s, _ = s.WithScanList()
	if s.Scan != 0xE00000 {
		t.Errorf("empty list should keep only the delay bits, got 0x%X", s.Scan)
	}
}

func TestEffectiveResolution(t *testing.T) {
	tests := []struct {
		base int
		f    DataFormat
		want int
	}{
		{24, SgnData, 23},
		{24, SgnDataZero, 23},
		{24, SgnExtData, 24},
		{24, IDSgnExtData, 24},
		{16, SgnData, 15},
		{20, SgnData, 19},
		{24, DataFormat(9), -1},
	}
	for _, tt := range tests {
		if got := effectiveResolution(tt.base, tt.f); got != tt.want {
			t.Errorf("%d/%s: expected %d, got %d", tt.base, tt.f, tt.want, got)
		}
	}
}
