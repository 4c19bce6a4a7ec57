package screen

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"uploader/internal/logging"
	"uploader/internal/status"
)

// Controller receives operator actions.
type Controller interface {
	ClearImports() (int, error)
	Wake()
}

// Options configures a Model.
type Options struct {
	Snapshot   *status.Snapshot
	Hub        *logging.StreamHub
	Controller Controller
	Refresh    time.Duration
}

type tickMsg time.Time

type clearedMsg struct {
	removed int
	err     error
}

// Model is the bubbletea model for the status display.
type Model struct {
	snapshot   *status.Snapshot
	hub        *logging.StreamHub
	controller Controller
	refresh    time.Duration
	spinner    spinner.Model

	view       status.View
	lastEvent  string
	confirming bool
	notice     string
	width      int
}

// New builds a model and takes an initial reading of the snapshot.
func New(opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = phaseStyle

	refresh := opts.Refresh
	if refresh <= 0 {
		refresh = 500 * time.Millisecond
	}
	snap := opts.Snapshot
	if snap == nil {
		snap = status.New()
	}
	m := Model{
		snapshot:   snap,
		hub:        opts.Hub,
		controller: opts.Controller,
		refresh:    refresh,
		spinner:    s,
	}
	m.read()
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) read() {
	m.view = m.snapshot.Read()
	if evt, ok := m.hub.Latest(); ok {
		m.lastEvent = evt.Message
		if evt.File != "" {
			m.lastEvent += ": " + evt.File
		}
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.read()
		return m, m.tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case clearedMsg:
		m.confirming = false
		if msg.err != nil {
			m.notice = "Clear failed: " + msg.err.Error()
		} else {
			m.notice = ClearedText(msg.removed)
		}
		m.read()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if m.confirming {
		m.confirming = false
		if key == "y" || key == "Y" {
			m.notice = ""
			return m, m.clearImports()
		}
		m.notice = "Clear cancelled"
		return m, nil
	}
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "c":
		m.confirming = true
		m.notice = ""
	case "r":
		if m.controller != nil {
			m.controller.Wake()
		}
		m.notice = "Retrying now"
	}
	return m, nil
}

func (m Model) clearImports() tea.Cmd {
	controller := m.controller
	return func() tea.Msg {
		if controller == nil {
			return clearedMsg{}
		}
		removed, err := controller.ClearImports()
		return clearedMsg{removed: removed, err: err}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n\n")
	b.WriteString(counterStyle.Render(ImportedText(m.view.Imported)))
	b.WriteString("\n")
	b.WriteString(counterStyle.Render(UploadedText(m.view.Uploaded)))
	b.WriteString("\n\n")
	b.WriteString(m.phaseLine())
	b.WriteString("\n")
	if m.view.CameraModel != "" {
		b.WriteString(dimStyle.Render("Camera: " + m.view.CameraModel))
		b.WriteString("\n")
	}
	if m.lastEvent != "" {
		b.WriteString(dimStyle.Render("Last: " + m.lastEvent))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	switch {
	case m.confirming:
		b.WriteString(promptStyle.Render("Delete all imported images? (y/N)"))
	case m.notice != "":
		b.WriteString(m.notice)
	default:
		b.WriteString(dimStyle.Render("c clear imports  r retry now  q quit"))
	}

	box := boxStyle
	if m.width > 4 {
		box = box.Width(m.width - 2)
	}
	return box.Render(b.String()) + "\n"
}

func (m Model) header() string {
	connection := offlineStyle.Render(ConnectionText(false))
	if m.view.Online {
		connection = onlineStyle.Render(ConnectionText(true))
	}
	bars := SignalIndicator(m.view.SignalBars,
		func(s string) string { return onlineStyle.Render(s) },
		func(s string) string { return dimStyle.Render(s) },
	)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("Uploader"),
		"   ",
		connection,
		" ",
		bars,
	)
}

func (m Model) phaseLine() string {
	text := m.view.PhaseText
	switch m.view.Phase {
	case status.PhaseImporting.String(), status.PhaseUploading.String():
		return fmt.Sprintf("%s %s", m.spinner.View(), phaseStyle.Render(text))
	default:
		return phaseStyle.Render(text)
	}
}
