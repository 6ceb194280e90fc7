package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"echofx/cmd"
	"echofx/internal/audio"
	"echofx/internal/config"
	"echofx/internal/effect"
	applog "echofx/internal/log"
	"echofx/internal/source"
	"echofx/internal/transport"
	"echofx/internal/transport/udp"
	"echofx/internal/tui"
	"echofx/pkg/build"
)

// main is the entry point for the echo effect host.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//   - Negotiate the stream format with the effect
//
// 2. Concurrent Phase (Hot Path):
//   - Start the duplex stream; the callback runs the effect
//   - Publish analysis and accept Mix control
//   - Start recording if enabled
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals, UI exit or effect failure
//   - Stop recording if active
//   - Close the effect and release resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		applog.Debugf("development build: %v", err)
	}

	inv, err := cmd.ParseArgs(os.Args[1:], os.Stdout)
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if inv.Command == cmd.CommandNone {
		return
	}
	applog.SetLevel(inv.Config.Level())

	switch inv.Command {
	case cmd.CommandList:
		err = listDevices(os.Stdout)
	case cmd.CommandFormats:
		err = printFormats(os.Stdout, inv.Config)
	case cmd.CommandRender:
		err = render(inv)
	default:
		err = runLive(inv)
	}
	if err != nil {
		applog.Fatalf("%v", err)
	}
}

func listDevices(w io.Writer) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()
	return audio.ListDevices(w)
}

func printFormats(w io.Writer, cfg *config.Config) error {
	fx := effect.NewEcho(nil, false)
	defer fx.Close(effect.CloseReasonDone)

	fmt.Fprintf(w, "\nSupported Formats\n\n")
	for i, f := range fx.SupportedFormats() {
		marker := " "
		if float64(f.SampleRate) == cfg.Audio.SampleRate {
			marker = "*"
		}
		fmt.Fprintf(w, "%s [%d] %s\n", marker, i, f)
	}
	fmt.Fprintln(w)
	return nil
}

func newEffect(cfg *config.Config) (*effect.Echo, *effect.PropertySet) {
	props := effect.NewPropertySet()
	props.Set(effect.MixKey, float32(cfg.Effect.Mix))
	return effect.NewEcho(props, cfg.Effect.DelayLine), props
}

func render(inv *cmd.Invocation) error {
	cfg := inv.Config

	src, err := source.Open(inv.Input)
	if err != nil {
		return err
	}
	defer src.Close()

	// Offline rendering runs at the file's rate; the effect decides whether it accepts it.
	cfg.Audio.SampleRate = float64(src.SampleRate())
	cfg.Analysis.Enabled = false

	fx, _ := newEffect(cfg)
	engine, err := audio.NewEngine(cfg, fx)
	if err != nil {
		return err
	}
	defer engine.Close()

	if _, err := engine.Negotiate(); err != nil {
		fx.Close(effect.CloseReasonUnsupportedFormat)
		return fmt.Errorf("%s: %w", inv.Input, err)
	}

	out, err := os.Create(inv.Output)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := engine.Render(ctx, src, out, inv.Loops)
	if err != nil {
		return err
	}
	fmt.Printf("Rendered %d frames (%d loop(s)) to %s, peak %.3f\n", stats.Frames, stats.Loops, inv.Output, stats.Peak)
	return out.Close()
}

func runLive(inv *cmd.Invocation) error {
	cfg := inv.Config

	// Limit OS threads to optimize for real-time audio processing:
	// - One thread dedicated to the audio callback (time-critical)
	// - One thread for UI, transports and I/O
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	fx, props := newEffect(cfg)

	var transports transport.Multi
	if cfg.Debug {
		transports = append(transports, transport.NewLoggingTransport())
	}
	if cfg.Transport.WebSocketEnabled {
		wst := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress, transport.PropertyControl(props))
		if err := wst.Start(); err != nil {
			wst.Close()
			return err
		}
		transports = append(transports, wst)
	}

	var opts []audio.Option
	if len(transports) > 0 {
		opts = append(opts, audio.WithTransport(transports))
	}
	engine, err := audio.NewEngine(cfg, fx, opts...)
	if err != nil {
		transports.Close()
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			applog.Errorf("Error closing audio engine: %v", err)
		}
	}()

	if _, err := engine.Negotiate(); err != nil {
		return err
	}

	if cfg.Transport.UDPEnabled && engine.Spectrum() != nil {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		defer sender.Close()

		publisher, err := udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, engine.Spectrum())
		if err != nil {
			return err
		}
		publisher.Start()
		defer publisher.Stop()
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	// The first callback marks the start of the hot path.
	if err := engine.StartStream(); err != nil {
		return err
	}
	if err := engine.StartPublishing(audio.DefaultPublishInterval); err != nil {
		return err
	}

	if cfg.Recording.Enabled {
		if err := os.MkdirAll(cfg.Recording.OutputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create recording directory: %w", err)
		}
		if err := engine.StartRecording(inv.OutputFile); err != nil {
			return err
		}
	}

	uiDone := make(chan error, 1)
	if inv.TUI {
		go func() {
			uiDone <- tui.Run(tui.Options{
				Props:   props,
				Formats: fx.SupportedFormats(),
				Level:   engine.Level,
			})
		}()
	} else {
		fmt.Printf("Running %s, press Ctrl+C to stop.\n", build.Get())
	}

	// Block until termination signal, UI exit or effect failure.
	var runErr error
	select {
	case <-done:
	case runErr = <-uiDone:
	case <-engine.Failed():
		runErr = fmt.Errorf("effect failed: %w", engine.Err())
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if engine.IsRecording() {
		if err := engine.StopRecording(); err != nil {
			applog.Errorf("Error stopping recording: %v", err)
		}
		fmt.Printf("\nRecording saved to: %s\n", inv.OutputFile)
	}

	return runErr
}
