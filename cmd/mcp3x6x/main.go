package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
	"github.com/warthog618/config/pflag"

	"github.com/yunginnanet/ftdi-mcp3x6x/pkg/mcp3x6x"
)

var log zerolog.Logger

func init() {
	cw := zerolog.ConsoleWriter{Out: os.Stdout}
	log = zerolog.New(cw).With().Timestamp().Logger()
}

// edgeSource yields IRQ falling edges until ctx is done.
type edgeSource func(ctx context.Context) (<-chan struct{}, error)

func loadConfig() *config.Config {
	defaultConfig := map[string]interface{}{
		"transport":    "ft232h",
		"variant":      "MCP3564",
		"ft232h.index": "0",
		"ft232h.cs":    0x00,
		"ft232h.irq":   0x01,
		"channels":     "0,1,12",
		"samples":      10,
		"interval":     "100ms",
		"scan":         false,
		"log.level":    "info",
	}
	platformDefaults(defaultConfig)
	def := dict.New(dict.WithMap(defaultConfig))
	flags := []pflag.Flag{
		{Short: 'c', Name: "config-file"},
		{Short: 't', Name: "transport"},
		{Short: 'v', Name: "variant"},
		{Short: 'n', Name: "samples"},
		{Short: 's', Name: "scan"},
	}
	cfg := config.New(
		pflag.New(pflag.WithFlags(flags)),
		env.New(env.WithEnvPrefix("MCP3X6X_")),
		config.WithDefault(def))
	cfg.Append(
		blob.NewConfigFile(cfg, "config.file", "mcp3x6x.json", json.NewDecoder()))
	cfg = cfg.GetConfig("", config.WithMust)
	return cfg
}

// parseChannels reads a comma separated list of scan channel ids.
func parseChannels(s string) ([]mcp3x6x.Mux, error) {
	var muxes []mcp3x6x.Mux
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		id, err := strconv.ParseUint(f, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("bad channel %q: %w", f, err)
		}
		m, ok := mcp3x6x.ChannelMux(uint8(id))
		if !ok {
			return nil, fmt.Errorf("bad channel %q: ids run 0-%d", f, mcp3x6x.NumChannels-1)
		}
		muxes = append(muxes, m)
	}
	if len(muxes) == 0 {
		return nil, fmt.Errorf("no channels selected")
	}
	return muxes, nil
}

func main() {
	cfg := loadConfig()

	lvl, err := zerolog.ParseLevel(cfg.MustGet("log.level").String())
	if err != nil {
		log.Fatal().Err(err).Msg("bad log level")
	}
	log = log.Level(lvl)

	variant, err := mcp3x6x.ParseVariant(cfg.MustGet("variant").String())
	if err != nil {
		log.Fatal().Err(err).Msg("bad variant")
	}
	muxes, err := parseChannels(cfg.MustGet("channels").String())
	if err != nil {
		log.Fatal().Err(err).Msg("bad channel list")
	}
	scan := cfg.MustGet("scan").Bool()

	bus, edges, err := openTransport(cfg, scan)
	if err != nil {
		log.Fatal().Err(err).Str("transport", cfg.MustGet("transport").String()).
			Msg("failed to open transport")
	}

	devCfg := mcp3x6x.Config{Variant: variant, Logger: &log}
	var adc *mcp3x6x.Device
	if scan {
		adc, err = mcp3x6x.NewScanning(1, 0, bus, devCfg)
	} else {
		adc, err = mcp3x6x.New(bus, devCfg)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create device")
	}

	log.Info().Stringer("variant", variant).Bool("scan", scan).Msg("initializing")
	if err = adc.Begin(); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize")
	}
	defer func() {
		if err := adc.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close")
		}
		log.Info().Msg("closed")
	}()

	regs, err := adc.ReadAllRegisters()
	if err != nil {
		log.Error().Err(err).Msg("failed to read registers")
	} else {
		log.Debug().Any("values", regs).Msg("registers")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	samples := cfg.MustGet("samples").Int()
	if scan {
		err = runScan(ctx, adc, edges, muxes, samples)
	} else {
		err = runPolled(ctx, adc, muxes, samples, cfg.MustGet("interval").Duration())
	}
	if err != nil {
		log.Error().Err(err).Msg("sampling stopped")
	}
}

func runPolled(ctx context.Context, adc *mcp3x6x.Device, muxes []mcp3x6x.Mux, samples int, interval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chScan, err := adc.PollChannels(ctx, interval, sampleLogger(adc, samples*len(muxes), cancel), muxes...)
	if err != nil {
		return err
	}
	<-ctx.Done()
	chScan.Stop()
	return chScan.Wait(context.Background())
}

// sampleLogger logs every sample and calls done after limit samples; a
// limit of zero or less never calls done.
func sampleLogger(adc *mcp3x6x.Device, limit int, done context.CancelFunc) mcp3x6x.DataCallback {
	var n atomic.Int64
	return func(s mcp3x6x.Sample) {
		m, _ := mcp3x6x.ChannelMux(s.Channel)
		log.Info().Uint8("channel", s.Channel).Stringer("mux", m).Int32("code", s.Code()).
			Stringer("volts", adc.ToVolts(s.Code())).Msg("sample")
		if limit > 0 && n.Add(1) >= int64(limit) {
			done()
		}
	}
}

func runScan(ctx context.Context, adc *mcp3x6x.Device, edges edgeSource, muxes []mcp3x6x.Mux, samples int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := edges(ctx)
	if err != nil {
		return err
	}

	chScan, err := adc.ScanChannels(ctx, ch, sampleLogger(adc, samples, cancel), muxes...)
	if err != nil {
		return err
	}
	<-ctx.Done()
	return chScan.Wait(context.Background())
}
