// Package tui is the terminal control panel: device list, the formats the
// effect accepts, and a live Mix control.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"echofx/internal/analysis"
	"echofx/internal/audio"
	"echofx/internal/effect"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// MixStep is how far one left/right key press moves the Mix control.
const MixStep = 0.05

const refreshInterval = 100 * time.Millisecond

// ScreenType defines which screen is currently active
type ScreenType int

const (
	MixScreen ScreenType = iota
	ListScreen
	ConfigScreen
)

var keys = struct {
	quit, up, down, left, right, enter, back, tab key.Binding
}{
	quit:  key.NewBinding(key.WithKeys("q", "ctrl+c")),
	up:    key.NewBinding(key.WithKeys("up", "k")),
	down:  key.NewBinding(key.WithKeys("down", "j")),
	left:  key.NewBinding(key.WithKeys("left", "h")),
	right: key.NewBinding(key.WithKeys("right", "l")),
	enter: key.NewBinding(key.WithKeys("enter")),
	back:  key.NewBinding(key.WithKeys("esc")),
	tab:   key.NewBinding(key.WithKeys("tab")),
}

// Options wires the panel to a running host.
type Options struct {
	Props   *effect.PropertySet            // Written by the Mix control.
	Formats []effect.Format                // What the effect advertises.
	Level   func() analysis.Level          // Optional output meter.
	Devices func() ([]audio.Device, error) // Defaults to audio.GetDevices.
}

// Panel is the Bubble Tea model.
type Panel struct {
	opts          Options
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	mixBar        progress.Model
	levelBar      progress.Model
	ready         bool
	err           error
	activeScreen  ScreenType
	level         analysis.Level
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

type tickMsg time.Time

// NewPanel creates the model on the Mix screen.
func NewPanel(opts Options) Panel {
	if opts.Devices == nil {
		opts.Devices = audio.GetDevices
	}
	return Panel{
		opts:         opts,
		mixBar:       progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		levelBar:     progress.New(progress.WithSolidFill("#25A065"), progress.WithoutPercentage()),
		activeScreen: MixScreen,
	}
}

// Init initializes the Bubble Tea model
func (m Panel) Init() tea.Cmd {
	return tea.Batch(m.fetchDevices, tick())
}

func (m Panel) fetchDevices() tea.Msg {
	devices, err := m.opts.Devices()
	if err != nil {
		return errMsg{err}
	}
	return devicesMsg{devices}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Mix returns the value the panel currently shows.
func (m Panel) Mix() float64 {
	return float64(m.opts.Props.Float(effect.MixKey, effect.DefaultMix))
}

func (m Panel) nudgeMix(delta float64) {
	if m.opts.Props == nil {
		return
	}
	v := math.Round((m.Mix()+delta)*100) / 100
	v = min(max(v, 0), 1)
	m.opts.Props.Set(effect.MixKey, float32(v))
}

func (m Panel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		barWidth := min(max(msg.Width-20, 10), 60)
		m.mixBar.Width = barWidth
		m.levelBar.Width = barWidth

	case devicesMsg:
		m.devices = msg.devices

	case errMsg:
		m.err = msg.err

	case tickMsg:
		if m.opts.Level != nil {
			m.level = m.opts.Level()
		}
		cmds = append(cmds, tick())

	case tea.KeyMsg:
		if key.Matches(msg, keys.quit) {
			return m, tea.Quit
		}
		if key.Matches(msg, keys.tab) {
			m.activeScreen = (m.activeScreen + 1) % (ConfigScreen + 1)
			break
		}

		switch m.activeScreen {
		case MixScreen:
			switch {
			case key.Matches(msg, keys.left):
				m.nudgeMix(-MixStep)
			case key.Matches(msg, keys.right):
				m.nudgeMix(MixStep)
			}

		case ListScreen:
			switch {
			case key.Matches(msg, keys.up):
				if m.selectedIndex > 0 {
					m.selectedIndex--
				}
			case key.Matches(msg, keys.down):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
				}
			case key.Matches(msg, keys.enter):
				if len(m.devices) > 0 {
					m.activeScreen = ConfigScreen
				}
			}

		case ConfigScreen:
			if key.Matches(msg, keys.back) {
				m.activeScreen = ListScreen
			}
		}
	}

	m.viewport.SetContent(m.renderScreen())
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the UI
func (m Panel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\nPress q to exit."
	}

	var title, help string
	switch m.activeScreen {
	case MixScreen:
		title = titleStyle.Render("Echo")
		help = infoStyle.Render("←/→: Mix • Tab: Devices • q: Quit")
	case ListScreen:
		title = titleStyle.Render("Audio Device List")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Formats • Tab: Next • q: Quit")
	default:
		title = titleStyle.Render("Device Formats")
		help = infoStyle.Render("Esc: Back • Tab: Next • q: Quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m Panel) renderScreen() string {
	switch m.activeScreen {
	case MixScreen:
		return m.renderMix()
	case ListScreen:
		return m.renderDevices()
	default:
		return m.renderDeviceConfig()
	}
}

func (m Panel) renderMix() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Mix    %s %.2f\n", m.mixBar.ViewAs(m.Mix()), m.Mix())
	if m.opts.Level != nil {
		fmt.Fprintf(&sb, "Output %s %.2f\n", m.levelBar.ViewAs(min(m.level.Peak, 1)), m.level.Peak)
		sb.WriteString(dimStyle.Render(fmt.Sprintf("RMS %.3f", m.level.RMS)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderDevices formats the device list
func (m Panel) renderDevices() string {
	var sb strings.Builder

	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	for i, device := range m.devices {
		deviceInfo := fmt.Sprintf("[%d] %s (%s)\n", device.ID, device.Name, device.Type)
		deviceInfo += fmt.Sprintf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		deviceInfo += fmt.Sprintf("    Default sample rate: %.0f Hz\n",
			device.DefaultSampleRate)

		if i == m.selectedIndex {
			deviceInfo = highlightStyle.Render(deviceInfo)
		}

		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderDeviceConfig lists the effect's formats against the selected device.
func (m Panel) renderDeviceConfig() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	fmt.Fprintf(&sb, "Device: %s\n\n", device.Name)
	sb.WriteString("Effect formats:\n")

	for _, f := range m.opts.Formats {
		line := fmt.Sprintf("    %s\n", f)
		if float64(f.SampleRate) == device.DefaultSampleRate {
			line = highlightStyle.Render(fmt.Sprintf("  ▶ %s (device default)\n", f))
		}
		sb.WriteString(line)
	}

	return sb.String()
}

// Run launches the panel and blocks until the user quits.
func Run(opts Options) error {
	p := tea.NewProgram(
		NewPanel(opts),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
