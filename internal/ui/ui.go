package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lunamare/tidesync/internal/tasks"
)

// eventLogSize bounds the scrolling per-track event log.
const eventLogSize = 12

// Model renders live sync progress from a [tasks.ProgressUpdate] stream.
type Model struct {
	updates <-chan tasks.ProgressUpdate

	spin   spinner.Model
	bar    progress.Model
	phase  tasks.Phase
	status string
	events []string
	step   int
	total  int
	done   bool
	width  int

	help help.Model
	keys keyMap
}

// keyMap defines the [key.Binding] mapping for the monitor.
type keyMap struct {
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "detach")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.quit}}
}

// NewModel creates a monitor consuming the given progress stream. The stream
// must be closed by the producer when the sync finishes.
func NewModel(updates <-chan tasks.ProgressUpdate) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		updates: updates,
		spin:    sp,
		bar:     progress.New(progress.WithDefaultGradient()),
		status:  "Starting sync...",
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// waitForUpdate blocks on the progress stream and wraps the next event.
func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.updates
		if !ok {
			return streamClosedMsg()
		}
		return progressMsg(update)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.waitForUpdate())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(msg.Width-4, 60)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgress:
			update := msg.data.(tasks.ProgressUpdate)
			return m.applyUpdate(update)
		case MsgStreamClosed:
			m.done = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// applyUpdate folds one progress event into the model.
func (m Model) applyUpdate(update tasks.ProgressUpdate) (tea.Model, tea.Cmd) {
	m.phase = update.Phase
	m.status = update.Message
	m.step = update.Step
	m.total = update.Total

	cmds := []tea.Cmd{m.waitForUpdate()}

	switch update.Phase {
	case tasks.SearchTracks:
		if update.Step > 0 {
			m.events = append(m.events, update.Message)
			if len(m.events) > eventLogSize {
				m.events = m.events[len(m.events)-eventLogSize:]
			}
		}
		if update.Total > 0 {
			cmds = append(cmds, m.bar.SetPercent(float64(update.Step)/float64(update.Total)))
		}
	case tasks.SyncComplete:
		m.events = append(m.events, update.Message)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("tidesync"))
	b.WriteString("\n")

	if m.done {
		b.WriteString(styles.ok.Render("✓ Sync complete"))
	} else {
		b.WriteString(fmt.Sprintf("%s %s", m.spin.View(), m.status))
	}
	b.WriteString("\n\n")

	if m.phase == tasks.SearchTracks && m.total > 0 {
		b.WriteString(m.bar.View())
		b.WriteString(fmt.Sprintf("  %d/%d\n\n", m.step, m.total))
	}

	for _, event := range m.events {
		b.WriteString(styles.help.Render(event))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")

	return b.String()
}

// Run attaches the monitor to a progress stream and blocks until the stream
// closes or the user detaches.
func Run(updates <-chan tasks.ProgressUpdate) error {
	_, err := tea.NewProgram(NewModel(updates)).Run()
	return err
}
