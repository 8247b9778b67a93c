// Package tui is the interactive terminal front end: a topicmap canvas on
// a cell surface, driven by bubbletea mouse and key events.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/recera/tmcanvas/internal/localstore"
	"github.com/recera/tmcanvas/pkg/canvas"
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/surface/cells"
	"github.com/recera/tmcanvas/pkg/topicmap"
)

const (
	doubleClickThreshold = 400 * time.Millisecond
	// panCells is how far one arrow key press pans, in cells.
	panCells = 4
)

// Options configures the terminal front end.
type Options struct {
	Topicmap *topicmap.Topicmap
	// Path is where Save writes the snapshot. Empty disables saving.
	Path string
	// Persistence defaults to an in-memory store seeded from Topicmap.
	Persistence canvas.Persistence
	Styles      style.Styles
	Canvas      canvas.Options
	Logger      *slog.Logger
	// TopicType is the type of topics created with the new topic key.
	TopicType string
}

// Model is the bubbletea model of the terminal canvas.
type Model struct {
	canvas  *canvas.Canvas
	surface *cells.Surface
	queue   *cmdQueue
	keys    KeyMap
	help    help.Model
	log     *slog.Logger
	now     func() time.Time

	path      string
	topicType string
	created   int

	width, height int
	menuIndex     int
	status        string
	err           error
	showHelp      bool
	quitting      bool

	lastClick     time.Time
	lastClickCell [2]int
}

// New creates the model and loads the topicmap.
func New(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tm := opts.Topicmap
	if tm == nil {
		tm = &topicmap.Topicmap{Name: "untitled"}
	}
	if opts.TopicType == "" {
		opts.TopicType = "dm4.notes.note"
	}

	m := &Model{
		surface:   cells.New(80, 23, cells.Options{}),
		queue:     &cmdQueue{},
		keys:      DefaultKeyMap,
		help:      help.New(),
		log:       logger,
		now:       time.Now,
		path:      opts.Path,
		topicType: opts.TopicType,
		width:     80,
		height:    24,
	}

	persist := opts.Persistence
	if persist == nil {
		store := localstore.New(logger)
		store.Seed(tm)
		persist = store
	}

	copts := opts.Canvas
	copts.Logger = logger
	copts.Executor = m.queue
	copts.Animate = m.queue.Animate
	if copts.TopicmapType == "" {
		copts.TopicmapType = tm.Type
	}

	m.canvas = canvas.New(m.surface, canvas.Collaborators{
		Persistence: persist,
		Styles:      opts.Styles,
		Commands:    canvas.CommandsFunc(m.commandsFor),
	}, copts)

	m.canvas.Hooks.Error.On(func(err *canvas.OpError) { m.err = err })
	m.canvas.Hooks.TopicCreated.On(func(t topicmap.Topic) {
		m.status = fmt.Sprintf("created topic %d", t.ID)
	})
	m.canvas.Hooks.AssociationCreated.On(func(a topicmap.Association) {
		m.status = fmt.Sprintf("associated %d with %d", a.Role1, a.Role2)
	})
	m.canvas.Hooks.TopicRevealRequested.On(func(id topicmap.ID) {
		if t := m.canvas.Store().Topic(id); t != nil {
			m.status = fmt.Sprintf("%s (%d)", t.Label, t.ID)
		}
	})
	m.canvas.Load(tm)
	return m
}

// Canvas returns the canvas driven by the model.
func (m *Model) Canvas() *canvas.Canvas { return m.canvas }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.queue.drain()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			return m, cmd
		}

	case tea.MouseMsg:
		m.handleMouse(msg)

	case continueMsg:
		msg.fn()

	case stepMsg:
		if msg.seq.Advance() && !msg.seq.Done() {
			return m, tea.Batch(stepAfter(msg.seq), m.queue.drain())
		}
	}
	return m, m.queue.drain()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width
	rows := height - 1
	if rows < 1 {
		rows = 1
	}
	m.surface.Resize(width, rows)
	m.canvas.SetSurface(m.surface)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Quit) && msg.String() == "ctrl+c" {
		m.quitting = true
		return tea.Quit
	}
	if m.canvas.Menu() != nil {
		m.handleMenuKey(msg)
		return nil
	}
	m.err = nil

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.Back):
		m.canvas.CancelGesture()
		m.showHelp = false
		m.status = ""
	case key.Matches(msg, m.keys.Up):
		m.canvas.Pan(topicmap.Point{Y: panCells * m.surface.LineHeight()})
	case key.Matches(msg, m.keys.Down):
		m.canvas.Pan(topicmap.Point{Y: -panCells * m.surface.LineHeight()})
	case key.Matches(msg, m.keys.Left):
		m.canvas.Pan(topicmap.Point{X: panCells * m.surface.MeasureText(" ")})
	case key.Matches(msg, m.keys.Right):
		m.canvas.Pan(topicmap.Point{X: -panCells * m.surface.MeasureText(" ")})
	case key.Matches(msg, m.keys.NewTopic):
		vp := m.canvas.Viewport()
		p := vp.ToCanvas(topicmap.Point{X: vp.Width / 2, Y: vp.Height / 2})
		m.createTopic(&p)
	case key.Matches(msg, m.keys.Save):
		m.save()
	default:
		if sel, ok := m.canvas.Selected(); ok {
			m.handleSelectionKey(msg, sel)
		}
	}
	return nil
}

func (m *Model) handleSelectionKey(msg tea.KeyMsg, sel canvas.Target) {
	switch {
	case key.Matches(msg, m.keys.Center):
		if t := m.canvas.Store().Topic(sel.ID); sel.Kind == canvas.TargetTopic && t != nil {
			m.canvas.ScrollToCenter(t.Position())
		}
	case key.Matches(msg, m.keys.Associate):
		m.associate(sel)
	case key.Matches(msg, m.keys.Hide):
		m.hide(sel)
	case key.Matches(msg, m.keys.Delete):
		m.remove(sel)
	}
}

func (m *Model) handleMenuKey(msg tea.KeyMsg) {
	menu := m.canvas.Menu()
	switch {
	case key.Matches(msg, m.keys.Up):
		m.menuIndex = nextCommand(menu.Commands, m.menuIndex, -1)
	case key.Matches(msg, m.keys.Down):
		m.menuIndex = nextCommand(menu.Commands, m.menuIndex, 1)
	case key.Matches(msg, m.keys.Enter):
		if err := m.canvas.InvokeMenu(m.menuIndex); err != nil {
			m.err = err
		}
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Quit):
		m.canvas.DismissMenu()
	}
}

// nextCommand steps from i in direction dir, skipping separators.
func nextCommand(cmds []canvas.Command, i, dir int) int {
	for j := i + dir; j >= 0 && j < len(cmds); j += dir {
		if !cmds[j].Separator {
			return j
		}
	}
	return i
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if msg.Y < 0 || msg.Y >= m.surface.Rows() {
		return
	}
	p := m.surface.CellCenter(msg.X, msg.Y)
	ev := canvas.PointerEvent{X: p.X, Y: p.Y}
	if msg.Shift {
		ev.Mods |= canvas.ModShift
	}
	if msg.Alt {
		ev.Mods |= canvas.ModAlt
	}
	if msg.Ctrl {
		ev.Mods |= canvas.ModCtrl
	}

	switch msg.Action {
	case tea.MouseActionMotion:
		m.canvas.PointerMove(ev)
	case tea.MouseActionRelease:
		ev.Button = releaseButton(msg.Button)
		m.canvas.PointerUp(ev)
	case tea.MouseActionPress:
		m.handlePress(msg, ev)
	}
}

// releaseButton maps the button of a release. Terminals without SGR mouse
// mode report releases without a button; those count as primary.
func releaseButton(b tea.MouseButton) canvas.Button {
	switch b {
	case tea.MouseButtonRight:
		return canvas.ButtonSecondary
	case tea.MouseButtonMiddle:
		return canvas.ButtonMiddle
	}
	return canvas.ButtonPrimary
}

func (m *Model) handlePress(msg tea.MouseMsg, ev canvas.PointerEvent) {
	switch msg.Button {
	case tea.MouseButtonLeft:
		m.err = nil
		cell := [2]int{msg.X, msg.Y}
		now := m.now()
		if cell == m.lastClickCell && now.Sub(m.lastClick) <= doubleClickThreshold {
			m.lastClick = time.Time{}
			m.canvas.DoubleClick(ev)
			return
		}
		m.lastClick, m.lastClickCell = now, cell
		m.canvas.PointerDown(ev)
	case tea.MouseButtonRight:
		ev.Button = canvas.ButtonSecondary
		m.menuIndex = 0
		if menu := m.canvas.ContextMenu(ev); menu != nil && len(menu.Commands) > 0 && menu.Commands[0].Separator {
			m.menuIndex = nextCommand(menu.Commands, 0, 1)
		}
	case tea.MouseButtonWheelUp:
		m.canvas.Pan(topicmap.Point{Y: m.surface.LineHeight()})
	case tea.MouseButtonWheelDown:
		m.canvas.Pan(topicmap.Point{Y: -m.surface.LineHeight()})
	}
}

// commandsFor builds the context menu entries for a target.
func (m *Model) commandsFor(target canvas.Target, _ string) []canvas.Command {
	switch target.Kind {
	case canvas.TargetTopic:
		return []canvas.Command{
			{Label: "Associate", Handler: m.associate},
			{Label: "Center", Handler: func(t canvas.Target) {
				if topic := m.canvas.Store().Topic(t.ID); topic != nil {
					m.canvas.ScrollToCenter(topic.Position())
				}
			}},
			{Separator: true},
			{Label: "Hide", Handler: m.hide},
			{Label: "Delete", Handler: m.remove},
		}
	case canvas.TargetAssociation:
		return []canvas.Command{
			{Label: "Hide", Handler: m.hide},
			{Label: "Delete", Handler: m.remove},
		}
	case canvas.TargetCanvas:
		return []canvas.Command{
			{Label: "New topic here", Handler: func(t canvas.Target) {
				p := t.Point
				m.createTopic(&p)
			}},
		}
	}
	return nil
}

func (m *Model) associate(t canvas.Target) {
	if t.Kind != canvas.TargetTopic {
		return
	}
	if err := m.canvas.BeginAssociation(t.ID); err != nil {
		m.err = err
		return
	}
	m.status = "click a topic to associate, esc cancels"
}

func (m *Model) hide(t canvas.Target) {
	switch t.Kind {
	case canvas.TargetTopic:
		m.canvas.HideTopic(t.ID)
	case canvas.TargetAssociation:
		m.canvas.HideAssociation(t.ID)
	}
}

func (m *Model) remove(t canvas.Target) {
	var err error
	switch t.Kind {
	case canvas.TargetTopic:
		err = m.canvas.DeleteTopic(t.ID)
	case canvas.TargetAssociation:
		err = m.canvas.DeleteAssociation(t.ID)
	}
	if err != nil {
		m.err = err
	}
}

func (m *Model) createTopic(p *topicmap.Point) {
	m.created++
	if _, err := m.canvas.CreateTopic(m.topicType, fmt.Sprintf("Topic %d", m.created), p); err != nil {
		m.err = err
	}
}

func (m *Model) save() {
	if m.path == "" {
		m.status = "no file to save to"
		return
	}
	if err := topicmap.SaveFile(m.path, m.canvas.Snapshot()); err != nil {
		m.err = err
		return
	}
	m.status = "saved " + m.path
	m.log.Info("topicmap saved", "path", m.path)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	lines := strings.Split(m.surface.Render(), "\n")
	if menu := m.canvas.Menu(); menu != nil {
		lines = overlay(lines, m.renderMenu(menu))
	} else if m.showHelp {
		lines = overlay(lines, menuStyle.Render(m.help.FullHelpView(m.keys.FullHelp())))
	}
	return strings.Join(lines, "\n") + "\n" + m.statusLine()
}

func (m *Model) renderMenu(menu *canvas.Menu) string {
	var b strings.Builder
	for i, cmd := range menu.Commands {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch {
		case cmd.Separator:
			b.WriteString(menuSeparatorStyle.Render("────────"))
		case i == m.menuIndex:
			b.WriteString(menuActiveStyle.Render(cmd.Label))
		default:
			b.WriteString(menuItemStyle.Render(cmd.Label))
		}
	}
	return menuStyle.Render(b.String())
}

// overlay replaces the bottom rows of lines with box.
func overlay(lines []string, box string) []string {
	rows := strings.Split(box, "\n")
	start := len(lines) - len(rows)
	if start < 0 {
		start = 0
		rows = rows[len(rows)-len(lines):]
	}
	out := append([]string(nil), lines[:start]...)
	return append(out, rows...)
}

func (m *Model) statusLine() string {
	left := statusStyle.Render(m.canvas.Mode().String())
	var msg string
	switch {
	case m.err != nil:
		msg = errorStyle.Render(m.err.Error())
	case m.status != "":
		msg = m.status
	default:
		msg = m.help.ShortHelpView(m.keys.ShortHelp())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", hintStyle.Render(msg))
}

// Run starts the terminal UI and blocks until it quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	m := New(opts)
	defer m.canvas.Close()
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}
