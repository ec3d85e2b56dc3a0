package mcp3x6x

import (
	"errors"
	"testing"
)

func TestVariantCapabilities(t *testing.T) {
	tests := []struct {
		v          Variant
		resolution int
		channels   int
	}{
		{MCP3461, 16, 2},
		{MCP3462, 16, 4},
		{MCP3464, 16, 8},
		{MCP3561, 24, 2},
		{MCP3562, 24, 4},
		{MCP3564, 24, 8},
	}
	for _, tt := range tests {
		t.Run(tt.v.String(), func(t *testing.T) {
			res, ch, err := tt.v.Capabilities()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res != tt.resolution || ch != tt.channels {
				t.Errorf("expected %d bits/%d channels, got %d/%d", tt.resolution, tt.channels, res, ch)
			}

			d, err := New(newFakeChip().bus(), Config{Variant: tt.v})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.ResolutionMax() != tt.resolution || d.ChannelsMax() != tt.channels {
				t.Errorf("device reports %d bits/%d channels", d.ResolutionMax(), d.ChannelsMax())
			}
		})
	}

	t.Run("Unsupported", func(t *testing.T) {
		if _, _, err := Variant(0x3563).Capabilities(); !errors.Is(err, ErrUnsupportedVariant) {
			t.Errorf("expected ErrUnsupportedVariant, got %v", err)
		}
		if _, err := New(newFakeChip().bus(), Config{Variant: 0x1234}); !errors.Is(err, ErrUnsupportedVariant) {
			t.Errorf("expected ErrUnsupportedVariant from New, got %v", err)
		}
	})

	t.Run("NilInterface", func(t *testing.T) {
		if _, err := New(nil, Config{Variant: MCP3564}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestParseVariant(t *testing.T) {
	for _, s := range []string{"MCP3564", "mcp3564", "3564"} {
		t.Run(s, func(t *testing.T) {
			v, err := ParseVariant(s)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v != MCP3564 {
				t.Errorf("expected MCP3564, got %s", v)
			}
		})
	}
	for _, s := range []string{"", "MCP", "3565", "ads1256"} {
		t.Run("Invalid/"+s, func(t *testing.T) {
			if _, err := ParseVariant(s); !errors.Is(err, ErrUnsupportedVariant) {
				t.Errorf("expected ErrUnsupportedVariant, got %v", err)
			}
		})
	}
}
