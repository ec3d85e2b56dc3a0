package main

import (
	"context"
	"fmt"

	"github.com/warthog618/config"

	"github.com/yunginnanet/ftdi-mcp3x6x/pkg/ft232h"
	"github.com/yunginnanet/ftdi-mcp3x6x/pkg/mcp3x6x"
)

func openFT232H(cfg *config.Config, scan bool) (mcp3x6x.SerialInterface, edgeSource, error) {
	desc, err := ft232h.ParseDescriptor(cfg.MustGet("ft232h.index").String())
	if err != nil {
		return nil, nil, err
	}
	bridge, err := ft232h.ConnectFT232h(desc)
	if err != nil {
		return nil, nil, err
	}
	bridge.WithLogger(log)

	log.Info().Any("info", bridge.Info()).
		Msgf("connected to FT232H: %s", bridge)

	if err = bridge.SetCSPin(uint(cfg.MustGet("ft232h.cs").Int())); err != nil {
		return nil, nil, fmt.Errorf("cs pin: %w", err)
	}
	if !scan {
		return bridge, nil, nil
	}
	if err = bridge.SetIRQ(uint(cfg.MustGet("ft232h.irq").Int())); err != nil {
		return nil, nil, fmt.Errorf("irq pin: %w", err)
	}
	edges := func(ctx context.Context) (<-chan struct{}, error) {
		return bridge.Edges(ctx, ft232h.DefaultPollInterval)
	}
	return bridge, edges, nil
}
