// Package tui is a terminal dashboard for a running chamber controller.
// It polls the controller's telemetry endpoint and draws the recent history
// of each channel as a sparkline.
package tui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sweeney/chamber-controller/internal/status"
)

var (
	colorRed   = lipgloss.Color("#FF5555")
	colorGreen = lipgloss.Color("#50FA7B")
	colorCyan  = lipgloss.Color("#8BE9FD")
	colorWhite = lipgloss.Color("#F8F8F2")
	colorGray  = lipgloss.Color("#6272A4")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	labelStyle = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	valueStyle = lipgloss.NewStyle().Foreground(colorWhite)
	onStyle    = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(colorGray)
)

type tickMsg time.Time

type telemetryMsg struct {
	data status.TelemetryJSON
	err  error
}

// Fetcher loads the latest telemetry. HTTPFetcher is the production one.
type Fetcher func() (status.TelemetryJSON, error)

// HTTPFetcher returns a Fetcher that GETs base+"/api/telemetry".
func HTTPFetcher(client *http.Client, base string) Fetcher {
	url := strings.TrimRight(base, "/") + "/api/telemetry"
	return func() (status.TelemetryJSON, error) {
		var t status.TelemetryJSON
		resp, err := client.Get(url)
		if err != nil {
			return t, fmt.Errorf("fetch telemetry: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return t, fmt.Errorf("fetch telemetry: %s", resp.Status)
		}
		if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
			return t, fmt.Errorf("decode telemetry: %w", err)
		}
		return t, nil
	}
}

// Model is the bubbletea model.
type Model struct {
	fetch    Fetcher
	interval time.Duration
	width    int

	data    status.TelemetryJSON
	loaded  bool
	err     error
	paused  bool
}

// New returns a dashboard polling fetch every interval.
func New(fetch Fetcher, interval time.Duration) Model {
	return Model{fetch: fetch, interval: interval, width: 80}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(m.interval), fetchOnce(m.fetch))
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func fetchOnce(fetch Fetcher) tea.Cmd {
	return func() tea.Msg {
		data, err := fetch()
		return telemetryMsg{data: data, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "p", " ":
			m.paused = !m.paused
		case "r":
			return m, fetchOnce(m.fetch)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		if m.paused {
			return m, tick(m.interval)
		}
		return m, tea.Batch(tick(m.interval), fetchOnce(m.fetch))
	case telemetryMsg:
		m.err = msg.err
		if msg.err == nil {
			m.data = msg.data
			m.loaded = true
		}
	}
	return m, nil
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Chamber Controller"))
	if m.paused {
		sb.WriteString(helpStyle.Render("  [paused]"))
	}
	sb.WriteString("\n")

	if m.err != nil {
		sb.WriteString(errStyle.Render("error: "+m.err.Error()) + "\n")
	}
	if !m.loaded {
		sb.WriteString(helpStyle.Render("waiting for telemetry...") + "\n")
		return sb.String()
	}

	width := m.width - 30
	if width < 10 {
		width = 10
	}
	t := m.data.Telemetry
	sp := m.data.Setpoints

	var chart strings.Builder
	chart.WriteString(channelLine("CO2", ints(t.CO2), width, "%.0f ppm", float64(sp.CO2)))
	chart.WriteString(channelLine("Humidity", t.RH, width, "%.1f %%", sp.RH))
	chart.WriteString(channelLine("Temp", t.Temp, width, "%.1f C", sp.Temp))
	chart.WriteString(channelLine("Outside", t.TempOuter, width, "%.1f C", 0))
	sb.WriteString(panelStyle.Render(strings.TrimRight(chart.String(), "\n")) + "\n")

	o := m.data.Outputs
	outputs := strings.Join([]string{
		output("mixing", o.Mixing),
		output("fresh air", o.FreshAir),
		output("fogger", o.Fogger),
		output("heater", o.Heater),
	}, "  ")
	action := m.data.Action
	if m.data.Stage != "" && m.data.Stage != "IDLE" {
		action += " (" + m.data.Stage + ")"
	}
	sb.WriteString(panelStyle.Render(outputs+"\n"+labelStyle.Render("action")+valueStyle.Render(action)) + "\n")
	sb.WriteString(helpStyle.Render(fmt.Sprintf("as of %s  q quit  p pause  r refresh", m.data.Timestamp)))
	return sb.String()
}

func channelLine(name string, data []float64, width int, format string, setpoint float64) string {
	if len(data) == 0 {
		return labelStyle.Render(name) + helpStyle.Render("no samples") + "\n"
	}
	lo, hi := bounds(data)
	if setpoint != 0 {
		lo = min(lo, setpoint)
		hi = max(hi, setpoint)
	}
	last := fmt.Sprintf(format, data[len(data)-1])
	return labelStyle.Render(name) + valueStyle.Render(fmt.Sprintf("%-12s", last)) + sparkline(data, width, lo, hi) + "\n"
}

func output(name string, on bool) string {
	if on {
		return onStyle.Render(name + " ON")
	}
	return helpStyle.Render(name + " off")
}

func ints(v []int) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func bounds(data []float64) (lo, hi float64) {
	lo, hi = data[0], data[0]
	for _, v := range data[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// sparkline renders data as a single line of block characters scaled to
// [minVal, maxVal]. Longer series are resampled down to width.
func sparkline(data []float64, width int, minVal, maxVal float64) string {
	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	if maxVal <= minVal {
		maxVal = minVal + 1
	}

	resampled := data
	if len(data) > width {
		resampled = make([]float64, width)
		for i := 0; i < width; i++ {
			resampled[i] = data[i*len(data)/width]
		}
	}

	var sb strings.Builder
	for _, v := range resampled {
		ratio := (v - minVal) / (maxVal - minVal)
		ratio = max(0, min(1, ratio))
		idx := int(ratio * float64(len(blocks)-1))
		sb.WriteRune(blocks[idx])
	}
	return sb.String()
}
