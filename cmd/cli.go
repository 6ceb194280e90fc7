// Package cmd parses the command line into an Invocation for main to run.
package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"echofx/internal/config"
	"echofx/pkg/build"

	"github.com/spf13/cobra"
)

// Commands main dispatches on.
const (
	CommandNone    = "" // help or version was printed
	CommandLive    = "live"
	CommandList    = "list"
	CommandFormats = "formats"
	CommandRender  = "render"
)

// Invocation is the parsed command line with the resolved configuration.
type Invocation struct {
	Command    string
	Config     *config.Config
	TUI        bool
	Record     bool
	OutputFile string // Recording path for live mode.
	Input      string // Render source.
	Output     string // Render destination.
	Loops      int
}

// flagValues holds flag targets; only flags the user set override the file.
type flagValues struct {
	configPath   string
	inputDevice  int
	outputDevice int
	sampleRate   float64
	frames       int
	lowLatency   bool
	mix          float64
	noDelayLine  bool
	bitDepth     int
	verbose      bool
	wsAddr       string
	udpTarget    string
}

// ParseArgs runs the cobra command tree over args (without the program
// name). Help and version output go to out.
func ParseArgs(args []string, out io.Writer) (*Invocation, error) {
	info := build.Get()
	inv := &Invocation{}
	var flags flagValues

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         info.Description,
		Version:       info.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(flags.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, &flags)
			if err := cfg.Validate(); err != nil {
				return err
			}
			inv.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandLive
			if inv.Record && inv.OutputFile == "" {
				inv.OutputFile = filepath.Join(inv.Config.Recording.OutputDir,
					"recording-"+time.Now().UTC().Format("02-01-2006-150405")+".wav")
			}
			if inv.Record {
				inv.Config.Recording.Enabled = true
			}
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandList
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "formats",
		Short: "List the stream formats the effect accepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandFormats
			return nil
		},
	})

	renderCmd := &cobra.Command{
		Use:   "render <input> <output.wav>",
		Short: "Process an audio file offline (wav, aiff, mp3, ogg)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if inv.Loops < 1 {
				return fmt.Errorf("%w: --loops must be at least 1", config.ErrInvalidConfig)
			}
			inv.Command = CommandRender
			inv.Input, inv.Output = args[0], args[1]
			return nil
		},
	}
	renderCmd.Flags().IntVarP(&inv.Loops, "loops", "n", 1, "Number of passes over the input; the effect resets between passes")
	rootCmd.AddCommand(renderCmd)

	// Live mode
	rootCmd.Flags().BoolVarP(&inv.TUI, "tui", "t", false, "Show the terminal control panel")
	rootCmd.Flags().BoolVarP(&inv.Record, "record", "r", false, "Record the processed output")
	rootCmd.Flags().StringVarP(&inv.OutputFile, "output", "o", "",
		"Recording file name. Default is <output_dir>/recording-DD-MM-YYYY-HHMMSS.wav")

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "C", "", "Path to a YAML configuration file (default ./config.yaml if present)")

	// Audio Device Configuration
	pf.IntVarP(&flags.inputDevice, "input-device", "i", config.MinDeviceID,
		"Input device ID. Use 'list' command to see available devices.")
	pf.IntVarP(&flags.outputDevice, "output-device", "d", config.MinDeviceID,
		"Output device ID. Use 'list' command to see available devices.")
	pf.Float64VarP(&flags.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz); must be one the effect supports")
	pf.IntVarP(&flags.frames, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&flags.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")

	// Effect
	pf.Float64VarP(&flags.mix, "mix", "m", config.DefaultMix, "Initial Mix property, 0..1")
	pf.BoolVar(&flags.noDelayLine, "no-delay-line", false, "Do not keep the one second delay line")

	// Recording
	pf.IntVar(&flags.bitDepth, "bit-depth", config.DefaultBitDepth, "Recording bit depth (16 or 32)")

	// Transport
	pf.StringVar(&flags.wsAddr, "ws", "", "Serve analysis and Mix control over WebSocket at this address (e.g. :8080)")
	pf.StringVar(&flags.udpTarget, "udp", "", "Publish the spectrum as UDP packets to this host:port")

	// Debug Configuration
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return inv, nil
}

// applyFlags copies every flag the user set into cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config, f *flagValues) {
	changed := cmd.Flags().Changed

	if changed("input-device") {
		cfg.Audio.InputDevice = f.inputDevice
	}
	if changed("output-device") {
		cfg.Audio.OutputDevice = f.outputDevice
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = f.sampleRate
	}
	if changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = f.frames
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = f.lowLatency
	}
	if changed("mix") {
		cfg.Effect.Mix = f.mix
	}
	if changed("no-delay-line") {
		cfg.Effect.DelayLine = !f.noDelayLine
	}
	if changed("bit-depth") {
		cfg.Recording.BitDepth = f.bitDepth
	}
	if changed("ws") {
		cfg.Transport.WebSocketEnabled = true
		cfg.Transport.WebSocketAddress = f.wsAddr
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = true
		cfg.Transport.UDPTargetAddress = f.udpTarget
	}
	if changed("verbose") {
		cfg.Debug = f.verbose
	}
}
