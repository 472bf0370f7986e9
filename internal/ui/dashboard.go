package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jimm98y/EgonAPI/internal/egon"
)

// changeLogSize is how many recent changes the dashboard keeps on screen
const changeLogSize = 8

// highlightFor is how long a changed element keeps its marker
const highlightFor = 10 * time.Second

// Controller is the part of egon.Client the dashboard drives
type Controller interface {
	GetCurrentState(ctx context.Context, cfg *egon.Configuration) (egon.StateDelta, error)
	ExecuteAction(ctx context.Context, elementID string, action egon.Action) bool
}

// Messages for async operations
type pollTickMsg struct{ id int }

type pollResultMsg struct {
	delta egon.StateDelta
	err   error
	at    time.Time
}

type actionResultMsg struct {
	elementID string
	action    egon.Action
	ok        bool
}

// dashboardKeyMap defines key bindings for the live dashboard
type dashboardKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	On      key.Binding
	Off     key.Binding
	Raise   key.Binding
	Lower   key.Binding
	Stop    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k dashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.On, k.Off, k.Raise, k.Lower, k.Stop, k.Refresh, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k dashboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.On, k.Off, k.Raise, k.Lower, k.Stop},
		{k.Refresh, k.Quit},
	}
}

func newDashboardKeyMap() dashboardKeyMap {
	return dashboardKeyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		On:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "on")),
		Off:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "off")),
		Raise:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "blind up")),
		Lower:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "blind down")),
		Stop:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "poll now")),
		Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// DashboardModel is a live view of a module. It polls on an interval,
// highlights changed elements and sends actions to the selected element.
type DashboardModel struct {
	ctx        context.Context
	title      string
	controller Controller
	cfg        *egon.Configuration
	labels     Labels
	interval   time.Duration

	Spinner spinner.Model
	Help    help.Model
	Keys    dashboardKeyMap

	width    int
	cursor   int
	polling  bool
	tickID   int
	lastPoll time.Time
	lastErr  error
	status   string
	changed  map[string]time.Time
	log      []string
	now      func() time.Time
}

// NewDashboard creates the dashboard model for an initialized configuration
func NewDashboard(ctx context.Context, title string, controller Controller, cfg *egon.Configuration, labels Labels, interval time.Duration) DashboardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	return DashboardModel{
		ctx:        ctx,
		title:      title,
		controller: controller,
		cfg:        cfg,
		labels:     labels,
		interval:   interval,
		Spinner:    s,
		Help:       help.New(),
		Keys:       newDashboardKeyMap(),
		width:      GetTerminalWidth(),
		changed:    make(map[string]time.Time),
		now:        time.Now,
	}
}

// Init starts the spinner and the first poll
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, m.poll())
}

func (m DashboardModel) poll() tea.Cmd {
	return func() tea.Msg {
		delta, err := m.controller.GetCurrentState(m.ctx, m.cfg)
		return pollResultMsg{delta: delta, err: err, at: m.now()}
	}
}

func (m DashboardModel) execute(elementID string, action egon.Action) tea.Cmd {
	return func() tea.Msg {
		ok := m.controller.ExecuteAction(m.ctx, elementID, action)
		return actionResultMsg{elementID: elementID, action: action, ok: ok}
	}
}

func (m DashboardModel) scheduleTick() tea.Cmd {
	id := m.tickID
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return pollTickMsg{id: id}
	})
}

// Update handles key presses, poll results and timer ticks
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case pollTickMsg:
		// Ticks from before a manual poll are stale
		if msg.id != m.tickID || m.polling {
			return m, nil
		}
		m.polling = true
		return m, m.poll()

	case pollResultMsg:
		m.polling = false
		m.lastPoll = msg.at
		m.lastErr = msg.err
		for _, change := range msg.delta {
			m.changed[change.Element.ID] = msg.at
			m.log = append([]string{RenderChange(change, m.labels, msg.at)}, m.log...)
		}
		if len(m.log) > changeLogSize {
			m.log = m.log[:changeLogSize]
		}
		m.tickID++
		return m, m.scheduleTick()

	case actionResultMsg:
		if msg.ok {
			m.status = SuccessTitleStyle.Render(fmt.Sprintf("%s %s → %s", SuccessMarker, msg.action, msg.elementID))
		} else {
			m.status = ErrorTitleStyle.Render(fmt.Sprintf("%s %s → %s rejected", FailureMarker, msg.action, msg.elementID))
		}
		return m, nil
	}

	return m, nil
}

func (m DashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	elements := m.cfg.Elements()

	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.Keys.Down):
		if m.cursor < len(elements)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.Keys.Refresh):
		if !m.polling {
			m.polling = true
			return m, m.poll()
		}

	default:
		action, ok := m.actionFor(msg)
		if !ok || len(elements) == 0 {
			return m, nil
		}
		target := elements[m.cursor]
		m.status = fmt.Sprintf("%s %s → %s…", m.Spinner.View(), action, target.ID)
		return m, m.execute(target.ID, action)
	}

	return m, nil
}

func (m DashboardModel) actionFor(msg tea.KeyMsg) (egon.Action, bool) {
	switch {
	case key.Matches(msg, m.Keys.On):
		return egon.ActionOn, true
	case key.Matches(msg, m.Keys.Off):
		return egon.ActionOff, true
	case key.Matches(msg, m.Keys.Raise):
		return egon.ActionUp, true
	case key.Matches(msg, m.Keys.Lower):
		return egon.ActionDown, true
	case key.Matches(msg, m.Keys.Stop):
		return egon.ActionStop, true
	default:
		return "", false
	}
}

// View renders the dashboard
func (m DashboardModel) View() string {
	var b strings.Builder

	b.WriteString(NewHeader(m.title, "egon watch --tui", nil).SetWidth(m.width).Render())
	b.WriteString("\n\n")

	now := m.now()
	for i, e := range m.cfg.Elements() {
		cursor := "  "
		if i == m.cursor {
			cursor = ChangeMarkerStyle.Render("→ ")
		}
		changedAt, ok := m.changed[e.ID]
		b.WriteString(cursor + RenderElementRow(e, m.labels, ok && now.Sub(changedAt) < highlightFor))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.polling:
		b.WriteString(m.Spinner.View() + " polling…")
	case m.lastErr != nil:
		b.WriteString(ErrorMessageStyle.Render("Poll failed: " + m.lastErr.Error()))
	case !m.lastPoll.IsZero():
		b.WriteString(ChangeTimeStyle.Render("Last poll " + m.lastPoll.Format("15:04:05")))
	}
	if m.status != "" {
		b.WriteString("   " + m.status)
	}
	b.WriteString("\n")

	if len(m.log) > 0 {
		b.WriteString("\n")
		b.WriteString(GroupTitleStyle.Render("Recent changes"))
		b.WriteString("\n")
		b.WriteString(strings.Join(m.log, "\n"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.Help.View(m.Keys))
	return b.String()
}

// RunDashboard runs the dashboard until the user quits or ctx is done
func RunDashboard(ctx context.Context, model DashboardModel) error {
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
