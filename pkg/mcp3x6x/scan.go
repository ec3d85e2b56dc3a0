package mcp3x6x

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DataCallback receives every sample read by a ChannelScan.
type DataCallback func(s Sample)

// maxScanErrors stops a scan that keeps failing.
const maxScanErrors = 50

type ChannelScan struct {
	done     *atomic.Bool
	running  *atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	finished chan struct{}
	callback DataCallback
	err      []error
	errMu    sync.Mutex
}

func newChannelScan(onData DataCallback) *ChannelScan {
	return &ChannelScan{
		done:     &atomic.Bool{},
		running:  &atomic.Bool{},
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
		callback: onData,
		err:      make([]error, 0),
	}
}

func (cs *ChannelScan) addErr(err error) {
	if err == nil {
		return
	}
	cs.errMu.Lock()
	cs.err = append(cs.err, err)
	tooMany := len(cs.err) > maxScanErrors
	cs.errMu.Unlock()
	if tooMany {
		cs.Stop()
	}
}

// Err returns every error collected so far, joined.
func (cs *ChannelScan) Err() error {
	cs.errMu.Lock()
	defer cs.errMu.Unlock()
	if len(cs.err) == 0 {
		return nil
	}
	return fmt.Errorf("channel scan errors: %w", errors.Join(cs.err...))
}

// Stop asks the scan loop to exit after the current sample. It does not wait
// for an edge to arrive; use Wait to block until the loop is gone.
func (cs *ChannelScan) Stop() {
	cs.done.Store(true)
	cs.stopOnce.Do(func() { close(cs.stop) })
}

func (cs *ChannelScan) IsDone() bool {
	return cs.done.Load()
}

func (cs *ChannelScan) IsRunning() bool {
	return cs.running.Load()
}

// Wait blocks until the scan loop has exited or ctx is done, and returns Err.
func (cs *ChannelScan) Wait(ctx context.Context) error {
	select {
	case <-cs.finished:
	case <-ctx.Done():
		return errors.Join(ctx.Err(), cs.Err())
	}
	return cs.Err()
}

// ScanChannels makes the channels selected by muxes the scan list, replacing
// any earlier selection in a single SCAN write, starts continuous conversion, and services every edge received on edges with
// ISRHandler, handing the sample to onData.
//
// The device must have been created with NewScanning. The loop exits when
// ctx is done, edges is closed, Stop is called, or too many errors pile up.
func (d *Device) ScanChannels(
	ctx context.Context,
	edges <-chan struct{},
	onData DataCallback,
	muxes ...Mux,
) (*ChannelScan, error) {
	if !d.scanMode() {
		return nil, ErrNotScanMode
	}
	if len(muxes) == 0 {
		return nil, errors.New("no channels to scan")
	}

	d.mu.Lock()
	ids := make([]uint8, 0, len(muxes))
	for _, m := range muxes {
		id, err := lookupChannel(d.channelMask, m)
		if err != nil {
			d.mu.Unlock()
			return nil, fmt.Errorf("%w: %s on %s", err, m, d.variant)
		}
		ids = append(ids, id)
	}
	if err := d.apply(d.settings.WithScanList(ids...)); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	if err := d.apply(d.settings.WithConvMode(Continuous)); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	d.continuous = true
	_, err := d.conversion()
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("start scan: %w", err)
	}

	chScan := newChannelScan(onData)
	chScan.running.Store(true)

	go func() {
		defer close(chScan.finished)
		defer chScan.running.Store(false)
		for !chScan.done.Load() {
			select {
			case <-ctx.Done():
				chScan.done.Store(true)
				return
			case <-chScan.stop:
				return
			case _, ok := <-edges:
				if !ok {
					chScan.done.Store(true)
					return
				}
			}
			s, err := d.ISRHandler()
			if err != nil {
				chScan.addErr(err)
				continue
			}
			if chScan.callback != nil {
				chScan.callback(s)
			}
		}
	}()

	return chScan, nil
}

// PollChannels cycles through muxes with ReadSample, one conversion per
// entry, handing each sample to onData and sleeping interval after every
// full pass. It is the polled counterpart of ScanChannels.
//
// Samples whose channel cannot be resolved are still delivered, with
// Channel set to InvalidChannel; the lookup error is not collected.
func (d *Device) PollChannels(
	ctx context.Context,
	interval time.Duration,
	onData DataCallback,
	muxes ...Mux,
) (*ChannelScan, error) {
	if len(muxes) == 0 {
		return nil, errors.New("no channels to scan")
	}

	d.mu.Lock()
	if d.continuous {
		if err := d.apply(d.settings.WithConvMode(OneShotStandby)); err != nil {
			d.mu.Unlock()
			return nil, fmt.Errorf("leave continuous mode: %w", err)
		}
		d.continuous = false
	}
	d.mu.Unlock()

	chScan := newChannelScan(onData)
	chScan.running.Store(true)

	go func() {
		defer close(chScan.finished)
		defer chScan.running.Store(false)

		t := time.NewTicker(max(interval, time.Microsecond))
		defer t.Stop()

		for !chScan.done.Load() {
			for _, m := range muxes {
				if chScan.done.Load() {
					break
				}
				s, err := d.ReadSample(m)
				if err != nil && !errors.Is(err, ErrChannelNotFound) {
					chScan.addErr(err)
					continue
				}
				if chScan.callback != nil {
					chScan.callback(s)
				}
			}
			select {
			case <-ctx.Done():
				chScan.done.Store(true)
			case <-chScan.stop:
			case <-t.C:
			}
		}
	}()

	return chScan, nil
}
