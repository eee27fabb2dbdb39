package monitor

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-i2p/go-rns/lib/transport"
)

// EventMsg delivers an Event to a running Model.
type EventMsg Event

// statsMsg carries a fresh counter snapshot.
type statsMsg transport.Stats

// DefaultHistory is the number of events a Model keeps.
const DefaultHistory = 200

const statsInterval = time.Second

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

// Model is the bubbletea model of the announce monitor.
type Model struct {
	title   string
	history int
	events  []Event
	total   int
	stats   func() transport.Stats
	last    transport.Stats
	width   int
	height  int
}

// NewModel returns a model keeping the last history events. stats, when
// not nil, is polled once a second for the status line.
func NewModel(title string, history int, stats func() transport.Stats) Model {
	if history <= 0 {
		history = DefaultHistory
	}
	return Model{title: title, history: history, stats: stats}
}

func (m Model) Init() tea.Cmd {
	if m.stats == nil {
		return nil
	}
	return m.pollStats()
}

func (m Model) pollStats() tea.Cmd {
	stats := m.stats
	return tea.Tick(statsInterval, func(time.Time) tea.Msg {
		return statsMsg(stats())
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EventMsg:
		m.events = append(m.events, Event(msg))
		if over := len(m.events) - m.history; over > 0 {
			m.events = append([]Event(nil), m.events[over:]...)
		}
		m.total++
	case statsMsg:
		m.last = transport.Stats(msg)
		return m, m.pollStats()
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "c":
			m.events = nil
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteByte('\n')
	b.WriteString(statusStyle.Render(fmt.Sprintf("announces shown %d  accepted %d  rejected %d  packets %d",
		m.total, m.last.AnnouncesAccepted, m.last.AnnouncesRejected(), m.last.PacketsReceived)))
	b.WriteString("\n\n")

	events := m.events
	// Everything but the event list takes five lines.
	if room := m.height - 5; m.height > 0 && room < len(events) {
		if room < 0 {
			room = 0
		}
		events = events[len(events)-room:]
	}
	if len(events) == 0 {
		b.WriteString(helpStyle.Render("waiting for announces…"))
		b.WriteByte('\n')
	}
	for _, e := range events {
		line := Format(e)
		if m.width > 0 {
			line = lipgloss.NewStyle().MaxWidth(m.width).Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(helpStyle.Render("q quit  c clear"))
	return b.String()
}

// Events returns the events currently held, oldest first.
func (m Model) Events() []Event {
	return append([]Event(nil), m.events...)
}
