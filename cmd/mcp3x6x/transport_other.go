//go:build !linux

package main

import (
	"fmt"

	"github.com/warthog618/config"

	"github.com/yunginnanet/ftdi-mcp3x6x/pkg/mcp3x6x"
)

func platformDefaults(map[string]interface{}) {}

func openTransport(cfg *config.Config, scan bool) (mcp3x6x.SerialInterface, edgeSource, error) {
	switch t := cfg.MustGet("transport").String(); t {
	case "ft232h":
		return openFT232H(cfg, scan)
	default:
		return nil, nil, fmt.Errorf("unknown transport %q (only ft232h is available on this platform)", t)
	}
}
