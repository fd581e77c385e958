package app

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/sonoviz/sonoviz/internal/analyzer"
	"github.com/sonoviz/sonoviz/internal/audio"
)

func testApp(t *testing.T) *App {
	t.Helper()
	a, err := New(Config{
		Analyzer: analyzer.Config{SampleRate: 44100, BufferSize: 256, FFTSize: 256},
		Log:      log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func sineFrame(n int) audio.Frame {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.5 * float64(i%16) / 16)
	}
	return audio.Frame{Samples: samples, Channels: 1, SampleRate: 44100, Timestamp: time.Now()}
}

func TestRunProcessesAndPublishes(t *testing.T) {
	a := testApp(t)

	sub, cancel := a.Subscribe(4)
	defer cancel()

	frames := make(chan audio.Frame, 1)
	frames <- sineFrame(256)
	close(frames)

	if err := a.Run(context.Background(), frames); err != nil {
		t.Fatalf("run: %v", err)
	}

	if a.Processed() != 1 {
		t.Fatalf("processed=%d want=1", a.Processed())
	}
	if a.Skipped() != 0 {
		t.Fatalf("skipped=%d want=0", a.Skipped())
	}

	select {
	case f := <-sub:
		if f.Timestamp.IsZero() {
			t.Fatal("subscriber received zero-timestamp features")
		}
	default:
		t.Fatal("subscriber did not receive the published frame")
	}

	if a.Latest().Timestamp.IsZero() {
		t.Fatal("Latest not updated after a processed frame")
	}
}

func TestLatestZeroBeforeFirstFrame(t *testing.T) {
	a := testApp(t)
	if f := a.Latest(); f != (analyzer.Features{}) {
		t.Fatalf("latest=%+v want zero value before first frame", f)
	}
}

func TestSubscribeDropsWhenFull(t *testing.T) {
	a := testApp(t)

	sub, cancel := a.Subscribe(1)
	defer cancel()

	first := analyzer.Features{Volume: 0.1}
	second := analyzer.Features{Volume: 0.2}
	a.publish(first)
	a.publish(second) // channel full, must not block

	got := <-sub
	if got.Volume != first.Volume {
		t.Fatalf("volume=%f want=%f (oldest buffered frame)", got.Volume, first.Volume)
	}
	select {
	case f := <-sub:
		t.Fatalf("unexpected second frame %+v, overflow should drop", f)
	default:
	}

	// Latest always tracks the newest publish, dropped or not.
	if a.Latest().Volume != second.Volume {
		t.Fatalf("latest volume=%f want=%f", a.Latest().Volume, second.Volume)
	}
}

func TestUnsubscribedChannelStopsReceiving(t *testing.T) {
	a := testApp(t)

	sub, cancel := a.Subscribe(4)
	cancel()

	a.publish(analyzer.Features{Volume: 0.5})
	select {
	case f := <-sub:
		t.Fatalf("cancelled subscriber received %+v", f)
	default:
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	a := testApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	frames := make(chan audio.Frame)

	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx, frames)
	}()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("run returned %v want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not stop after cancellation")
	}
}
