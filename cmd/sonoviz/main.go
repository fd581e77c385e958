package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/eiannone/keyboard"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sonoviz/sonoviz/internal/analyzer"
	"github.com/sonoviz/sonoviz/internal/app"
	"github.com/sonoviz/sonoviz/internal/audio"
	"github.com/sonoviz/sonoviz/internal/web"
)

type options struct {
	deviceName      string
	filePath        string
	noAudio         bool
	sampleRate      float64
	bufferSize      int
	fftSize         int
	framesPerBuffer int
	httpAddr        string
	quiet           bool
}

func main() {
	opts := options{}

	rootCmd := &cobra.Command{
		Use:           "sonoviz",
		Short:         "Real-time audio analysis for visualizers",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.deviceName, "device", "d", "",
		"Input device name (substring match); empty auto-detects")
	rootCmd.PersistentFlags().StringVarP(&opts.filePath, "file", "f", "",
		"Analyze a media file (.wav, .mp3, .ogg) instead of capturing")
	rootCmd.PersistentFlags().BoolVar(&opts.noAudio, "no-audio", false,
		"Run with a synthetic signal (no capture device needed)")
	rootCmd.PersistentFlags().Float64VarP(&opts.sampleRate, "sample-rate", "s", analyzer.DefaultSampleRate,
		"Sample rate in Hz for the synthetic source")
	rootCmd.PersistentFlags().IntVar(&opts.bufferSize, "buffer-size", analyzer.DefaultBufferSize,
		"Sliding analysis buffer length in samples (power of two)")
	rootCmd.PersistentFlags().IntVar(&opts.fftSize, "fft-size", analyzer.DefaultFFTSize,
		"FFT length in samples (power of two)")
	rootCmd.PersistentFlags().IntVarP(&opts.framesPerBuffer, "frames-per-buffer", "b", 1024,
		"Capture chunk size in frames")
	rootCmd.PersistentFlags().StringVar(&opts.httpAddr, "http", "",
		"Serve features over HTTP/WebSocket on this address (e.g. :8080)")
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false,
		"Disable the terminal meters")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listDevices()
		},
	}
	rootCmd.AddCommand(listCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func listDevices() error {
	if err := audio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}
	defer audio.Terminate()

	devices, err := audio.ListDevices()
	if err != nil {
		return err
	}
	fmt.Printf("\n=== Audio Input Devices ===\n\n")
	for _, dev := range devices {
		if dev.MaxInput == 0 {
			continue
		}
		marker := ""
		if dev.IsDefaultInput {
			marker = " (default)"
		}
		fmt.Printf("- %s [%s]%s\n    inputs:%d sample:%.0f Hz\n",
			dev.Name, dev.HostAPI, marker, dev.MaxInput, dev.DefaultSampleHz)
	}
	return nil
}

func run(opts options) error {
	logger := log.New(os.Stderr, "[sonoviz] ", log.LstdFlags)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	source, err := openSource(opts, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := source.Close(); err != nil {
			logger.Printf("source close: %v", err)
		}
	}()

	pipeline, err := app.New(app.Config{
		Analyzer: analyzer.Config{
			SampleRate: source.SampleRate(),
			BufferSize: opts.bufferSize,
			FFTSize:    opts.fftSize,
		},
		Log: logger,
	})
	if err != nil {
		return err
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- pipeline.Run(ctx, source.Frames())
	}()

	if opts.httpAddr != "" {
		server := web.NewServer(pipeline, logger)
		go func() {
			if err := server.Start(ctx, opts.httpAddr); err != nil {
				logger.Printf("web server: %v", err)
			}
		}()
	}

	startKeyListener(ctx, cancel, logger)
	if !opts.quiet {
		go meterLoop(ctx, pipeline)
	}

	err = <-runErr
	if !opts.quiet {
		fmt.Println()
	}
	logger.Printf("processed %d frames, skipped %d", pipeline.Processed(), pipeline.Skipped())
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openSource picks the frame producer: media file, synthetic generator, or
// a live capture stream.
func openSource(opts options, logger *log.Logger) (audio.Source, error) {
	switch {
	case opts.filePath != "":
		source, err := audio.OpenFile(opts.filePath, opts.framesPerBuffer)
		if err != nil {
			return nil, err
		}
		logger.Printf("analyzing %s @ %.0f Hz", opts.filePath, source.SampleRate())
		return source, nil

	case opts.noAudio:
		logger.Println("audio disabled, using synthetic generator")
		return app.NewGenerator(opts.sampleRate, opts.framesPerBuffer), nil

	default:
		if err := audio.Initialize(); err != nil {
			return nil, fmt.Errorf("initialize portaudio: %w", err)
		}
		capture, err := audio.NewCapture(audio.CaptureConfig{
			DeviceName:      opts.deviceName,
			Channels:        2,
			FramesPerBuffer: opts.framesPerBuffer,
		})
		if err != nil {
			audio.Terminate()
			return nil, fmt.Errorf("audio capture: %w", err)
		}
		if info := capture.Device(); info != nil {
			logger.Printf("audio capture started on %q @ %.0f Hz", info.Name, capture.SampleRate())
		}
		return capture, nil
	}
}

func startKeyListener(ctx context.Context, cancel context.CancelFunc, logger *log.Logger) {
	if err := keyboard.Open(); err != nil {
		logger.Printf("keyboard input disabled: %v", err)
		return
	}

	go func() {
		<-ctx.Done()
		_ = keyboard.Close()
	}()

	go func() {
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			if key == keyboard.KeyEsc || key == keyboard.KeyCtrlC || char == 'q' || char == 'Q' {
				cancel()
				return
			}
		}
	}()
}

// meterLoop paints one status line with the current band energies, beat
// and tempo, overwriting it in place.
func meterLoop(ctx context.Context, pipeline *app.App) {
	ticker := time.NewTicker(time.Second / 30)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		f := pipeline.Latest()
		line := fmt.Sprintf("sub%s bass%s lmid%s mid%s hmid%s pres%s bril%s  vol %.2f  bpm %3.0f%s",
			bar(f.SubBass), bar(f.Bass), bar(f.LowMid), bar(f.Mid),
			bar(f.HighMid), bar(f.Presence), bar(f.Brilliance),
			f.Volume, f.Tempo, beatMark(f.BeatConfidence))

		if fd := int(os.Stdout.Fd()); fd >= 0 {
			if w, _, err := term.GetSize(fd); err == nil && w > 0 && len(line) > w {
				line = line[:w]
			}
		}
		fmt.Printf("\r\x1b[2K%s", line)
	}
}

const meterWidth = 6

func bar(v float64) string {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	filled := int(v*meterWidth + 0.5)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", meterWidth-filled) + "]"
}

func beatMark(confidence float64) string {
	if confidence > 0 {
		return "  *"
	}
	return "   "
}
