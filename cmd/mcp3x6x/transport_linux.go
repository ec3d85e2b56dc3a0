//go:build linux

package main

import (
	"context"
	"fmt"

	"github.com/warthog618/config"
	"github.com/warthog618/gpiod/device/rpi"

	"github.com/yunginnanet/ftdi-mcp3x6x/pkg/mcp3x6x"
	"github.com/yunginnanet/ftdi-mcp3x6x/pkg/spidev"
)

// platformDefaults wires spidev to a Raspberry Pi header: SPI0 with CS on
// CE0 driven as a GPIO and IRQ on GPIO25.
func platformDefaults(m map[string]interface{}) {
	m["spidev.port"] = ""
	m["spidev.gpiochip"] = "gpiochip0"
	m["spidev.cs"] = rpi.J8p24
	m["spidev.irq"] = rpi.J8p22
}

func openTransport(cfg *config.Config, scan bool) (mcp3x6x.SerialInterface, edgeSource, error) {
	switch t := cfg.MustGet("transport").String(); t {
	case "ft232h":
		return openFT232H(cfg, scan)
	case "spidev":
		irq := -1
		if scan {
			irq = cfg.MustGet("spidev.irq").Int()
		}
		port, err := spidev.Open(spidev.Config{
			Port:     cfg.MustGet("spidev.port").String(),
			GPIOChip: cfg.MustGet("spidev.gpiochip").String(),
			CS:       cfg.MustGet("spidev.cs").Int(),
			IRQ:      irq,
			Logger:   &log,
		})
		if err != nil {
			return nil, nil, err
		}
		edges := func(context.Context) (<-chan struct{}, error) {
			return port.Edges()
		}
		return port, edges, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q (want ft232h or spidev)", t)
	}
}
