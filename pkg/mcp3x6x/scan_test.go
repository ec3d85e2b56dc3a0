package mcp3x6x

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestScanChannels(t *testing.T) {
	t.Run("NotScanMode", func(t *testing.T) {
		d, _ := testDevice(t, MCP3562, false)
		_, err := d.ScanChannels(context.Background(), nil, nil, SingleEnded(CH0))
		if !errors.Is(err, ErrNotScanMode) {
			t.Errorf("expected ErrNotScanMode, got %v", err)
		}
	})

	t.Run("NoChannels", func(t *testing.T) {
		d, _ := testDevice(t, MCP3562, true)
		if _, err := d.ScanChannels(context.Background(), nil, nil); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("Edges", func(t *testing.T) {
		d, chip := testDevice(t, MCP3562, true)
		if err := d.Begin(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		chip.Reset()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		edges := make(chan struct{})
		samples := make(chan Sample, 4)
		scan, err := d.ScanChannels(ctx, edges, func(s Sample) { samples <- s },
			SingleEnded(CH3), Differential(TEMPP, TEMPM))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		checkFrames(t, chip, []frame{
			writeFrame(RegSCAN, 0x00, 0x10, 0x08),
			writeFrame(RegCONFIG3, 0xF0),
			{Cmd: CMDCONVERSION},
		})

		chip.setADC(0x3F, 0xFF, 0xFF, 0x00) // channel 3, -256
		edges <- struct{}{}
		var s Sample
		select {
		case s = <-samples:
		case <-ctx.Done():
			t.Fatal("timed out waiting for sample")
		}
		if s.Channel != 3 || s.Code() != -256 {
			t.Errorf("unexpected sample %+v", s)
		}
		if d.Result(3) != s.Value {
			t.Errorf("result cache holds %d, want %d", d.Result(3), s.Value)
		}

		chip.setADC(0xC0, 0x00, 0x01, 0x00) // channel 12, 256
		edges <- struct{}{}
		select {
		case s = <-samples:
		case <-ctx.Done():
			t.Fatal("timed out waiting for sample")
		}
		if s.Channel != ChannelTemp || s.Code() != 256 {
			t.Errorf("unexpected sample %+v", s)
		}

		close(edges)
		if err = scan.Wait(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !scan.IsDone() || scan.IsRunning() {
			t.Error("scan should be finished")
		}
	})

	t.Run("Cancel", func(t *testing.T) {
		d, _ := testDevice(t, MCP3562, true)
		if err := d.Begin(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		scan, err := d.ScanChannels(ctx, make(chan struct{}), nil, SingleEnded(CH0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cancel()

		wctx, wcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer wcancel()
		if err = scan.Wait(wctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("StopWithoutEdges", func(t *testing.T) {
		d, _ := testDevice(t, MCP3562, true)
		if err := d.Begin(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		scan, err := d.ScanChannels(context.Background(), make(chan struct{}), nil, SingleEnded(CH0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
		scan.Stop()
		scan.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err = scan.Wait(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if scan.IsRunning() {
			t.Error("scan loop still running after Stop")
		}
	})

	t.Run("ReplacesScanList", func(t *testing.T) {
		d, chip := testDevice(t, MCP3562, true)
		if err := d.Begin(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := d.SetScanChannel(SingleEnded(CH2)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		chip.Reset()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		scan, err := d.ScanChannels(ctx, make(chan struct{}), nil, SingleEnded(CH0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := d.Settings().Scan; got != 0x000001 {
			t.Errorf("expected scan list 0x000001, got 0x%06X", got)
		}
		if frames := chip.Frames(); len(frames) == 0 || frames[0].Cmd != CMDIWRITE|byte(RegSCAN)<<2 {
			t.Errorf("expected a single SCAN write first, got %v", frames)
		}
		scan.Stop()
		if err = scan.Wait(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("UnknownChannelKeepsScanList", func(t *testing.T) {
		d, chip := testDevice(t, MCP3562, true)
		if err := d.Begin(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := d.SetScanChannel(SingleEnded(CH2)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		chip.Reset()

		_, err := d.ScanChannels(context.Background(), nil, nil, SingleEnded(CH0), SingleEnded(CH5))
		if !errors.Is(err, ErrChannelNotFound) {
			t.Errorf("expected ErrChannelNotFound, got %v", err)
		}
		if got := d.Settings().Scan; got != 0x000004 {
			t.Errorf("scan list changed to 0x%06X", got)
		}
		checkFrames(t, chip, []frame{})
	})

	t.Run("Errors", func(t *testing.T) {
		d, chip := testDevice(t, MCP3562, true)
		if err := d.Begin(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		edges := make(chan struct{})
		scan, err := d.ScanChannels(context.Background(), edges, nil, SingleEnded(CH0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		chip.mu.Lock()
		chip.failCmd = CMDSREAD | byte(RegADCDATA)<<2
		chip.mu.Unlock()

		edges <- struct{}{}
		close(edges)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err = scan.Wait(ctx); !errors.Is(err, errInjected) {
			t.Errorf("expected injected error, got %v", err)
		}
	})
}

func TestPollChannels(t *testing.T) {
	d, chip := testDevice(t, MCP3562, false)
	if err := d.Begin(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.StartContinuousDifferential(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chip.setADC(0x00, 0x01, 0x00)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	samples := make(chan Sample, 16)
	scan, err := d.PollChannels(ctx, time.Millisecond, func(s Sample) {
		select {
		case samples <- s:
		default:
		}
	}, SingleEnded(CH0), SingleEnded(CH1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.IsContinuous() {
		t.Error("polling should leave continuous mode")
	}

	for i := 0; i < 4; i++ {
		select {
		case s := <-samples:
			if want := uint8(i % 2); s.Channel != want || s.Value != 256 {
				t.Errorf("sample %d: expected 256 on channel %d, got %+v", i, want, s)
			}
		case <-ctx.Done():
			t.Fatal("timed out waiting for samples")
		}
	}

	scan.Stop()
	if err = scan.Wait(ctx); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if d.Result(0) != 256 || d.Result(1) != 256 {
		t.Errorf("result cache not filled: %v", d.Results())
	}

	if _, err = d.PollChannels(ctx, time.Millisecond, nil); err == nil {
		t.Error("expected error for empty channel list")
	}
}
