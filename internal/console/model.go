package console

import (
	"context"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	controller "github.com/koscakluka/foundry-core/core"
	"github.com/koscakluka/foundry-core/core/protocols"
)

// Controller is the part of the session controller the console drives.
type Controller interface {
	View() controller.View
	Subscribe(observer controller.Observer) (unsubscribe func())

	CreateSession(ctx context.Context, intent string) (protocols.Session, error)
	Select(ctx context.Context, id protocols.SessionID) error
	Reload(ctx context.Context) error
	StartAgents(ctx context.Context) error
	StopStreaming() error
	Kickoff(ctx context.Context) error
	EditDraft(text string) error
	DiscardEdits() error
	ApproveAndResume(ctx context.Context, editedDraft string) error
}

type focus int

const (
	focusList focus = iota
	focusIntent
	focusEditor
)

const (
	opCreate  = "create session"
	opSelect  = "open session"
	opReload  = "reload"
	opStart   = "start agents"
	opStop    = "stop watching"
	opKickoff = "kickoff"
	opEdit    = "edit draft"
	opDiscard = "discard edits"
	opApprove = "approve and resume"
)

// noticeFadeDelay is how long a success notice stays in the status bar.
const noticeFadeDelay = 3 * time.Second

// viewMsg carries a controller view into the bubbletea loop.
type viewMsg struct {
	view controller.View
}

// actionResultMsg is sent when a controller call completes. Successful
// calls change the view through the subscription.
type actionResultMsg struct {
	op  string
	err error
}

type noticeFadeMsg struct{}

// Model is the bubbletea model of the operator console.
type Model struct {
	ctx        context.Context
	controller Controller
	views      chan controller.View
	// Unsubscribe stops view delivery. Call it once the program exits.
	Unsubscribe func()

	keys     KeyMap
	help     help.Model
	showHelp bool

	view   controller.View
	cursor int
	focus  focus

	intent   textinput.Model
	editor   textarea.Model
	activity viewport.Model

	notice string
	err    string

	width  int
	height int
	ready  bool
}

func NewModel(ctx context.Context, ctrl Controller) Model {
	views := make(chan controller.View, 1)
	unsubscribe := ctrl.Subscribe(func(view controller.View) {
		// Only the newest view matters; replace one the loop has not
		// picked up yet.
		for {
			select {
			case views <- view:
				return
			default:
			}
			select {
			case <-views:
			default:
			}
		}
	})

	intent := textinput.New()
	intent.Placeholder = "What protocol should the agents draft?"
	intent.Prompt = "intent › "
	intent.CharLimit = 0

	editor := textarea.New()
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.MaxHeight = 0
	editor.Placeholder = "Draft awaiting review"

	m := Model{
		ctx:         ctx,
		controller:  ctrl,
		views:       views,
		Unsubscribe: unsubscribe,
		keys:        DefaultKeyMap,
		help:        help.New(),
		intent:      intent,
		editor:      editor,
		activity:    viewport.New(0, 0),
	}
	m.applyView(ctrl.View())
	return m
}

func (m Model) Init() tea.Cmd {
	return listenForView(m.views)
}

// listenForView blocks until the controller publishes a view.
func listenForView(views <-chan controller.View) tea.Cmd {
	return func() tea.Msg {
		view, ok := <-views
		if !ok {
			return nil
		}
		return viewMsg{view: view}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case viewMsg:
		m.applyView(msg.view)
		return m, listenForView(m.views)

	case actionResultMsg:
		return m.handleActionResult(msg)

	case noticeFadeMsg:
		m.notice = ""
		return m, nil

	case tea.KeyMsg:
		switch m.focus {
		case focusIntent:
			return m.handleIntentKeys(msg)
		case focusEditor:
			return m.handleEditorKeys(msg)
		default:
			return m.handleListKeys(msg)
		}
	}

	var cmd tea.Cmd
	m.activity, cmd = m.activity.Update(msg)
	return m, cmd
}

func (m *Model) applyView(view controller.View) {
	m.view = view
	m.cursor = min(m.cursor, max(len(view.Sessions)-1, 0))
	if m.focus != focusEditor && m.editor.Value() != view.Draft {
		m.editor.SetValue(view.Draft)
	}
	m.activity.SetContent(renderActivity(view.Activity, m.activity.Width))
}

func (m Model) handleActionResult(msg actionResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.op + ": " + msg.err.Error()
		return m, nil
	}
	m.err = ""
	if msg.op == opApprove && m.focus == focusEditor {
		m.editor.Blur()
		m.focus = focusList
	}
	if msg.op == opEdit {
		return m, nil
	}
	m.notice = msg.op + " ok"
	return m, tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg { return noticeFadeMsg{} })
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.resize()

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.view.Sessions)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Select):
		if m.cursor < len(m.view.Sessions) {
			id := m.view.Sessions[m.cursor].ID
			return m, m.run(opSelect, func(ctx context.Context) error { return m.controller.Select(ctx, id) })
		}

	case key.Matches(msg, m.keys.Create):
		m.focus = focusIntent
		m.intent.Reset()
		return m, m.intent.Focus()

	case key.Matches(msg, m.keys.Reload):
		return m, m.run(opReload, m.controller.Reload)

	case key.Matches(msg, m.keys.Start):
		return m, m.run(opStart, m.controller.StartAgents)

	case key.Matches(msg, m.keys.Stop):
		return m, m.run(opStop, func(context.Context) error { return m.controller.StopStreaming() })

	case key.Matches(msg, m.keys.Kickoff):
		return m, m.run(opKickoff, m.controller.Kickoff)

	case key.Matches(msg, m.keys.Discard):
		return m, m.run(opDiscard, func(context.Context) error { return m.controller.DiscardEdits() })

	case key.Matches(msg, m.keys.Approve):
		draft := m.view.Draft
		return m, m.run(opApprove, func(ctx context.Context) error { return m.controller.ApproveAndResume(ctx, draft) })

	case key.Matches(msg, m.keys.Edit):
		if m.view.SelectedID.IsZero() {
			return m, nil
		}
		m.focus = focusEditor
		m.editor.SetValue(m.view.Draft)
		return m, m.editor.Focus()

	default:
		var cmd tea.Cmd
		m.activity, cmd = m.activity.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleIntentKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.intent.Blur()
		m.focus = focusList
		return m, nil

	case msg.Type == tea.KeyEnter:
		intent := m.intent.Value()
		m.intent.Blur()
		m.intent.Reset()
		m.focus = focusList
		m.cursor = 0
		return m, m.run(opCreate, func(ctx context.Context) error {
			_, err := m.controller.CreateSession(ctx, intent)
			return err
		})
	}

	var cmd tea.Cmd
	m.intent, cmd = m.intent.Update(msg)
	return m, cmd
}

func (m Model) handleEditorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.editor.Blur()
		m.focus = focusList
		return m, nil

	case key.Matches(msg, m.keys.Approve):
		draft := m.editor.Value()
		return m, m.run(opApprove, func(ctx context.Context) error { return m.controller.ApproveAndResume(ctx, draft) })
	}

	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if after := m.editor.Value(); after != before {
		return m, tea.Batch(cmd, m.run(opEdit, func(context.Context) error { return m.controller.EditDraft(after) }))
	}
	return m, cmd
}

// run executes a controller call off the bubbletea loop.
func (m Model) run(op string, call func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionResultMsg{op: op, err: call(ctx)}
	}
}

func (m *Model) resize() {
	if !m.ready {
		return
	}
	_, right := m.paneWidths()
	m.editor.SetWidth(max(right-4, 10))
	m.editor.SetHeight(max(m.height/3, 3))
	m.activity.Width = max(right-4, 10)
	m.activity.Height = max(m.height-m.editor.Height()-m.chromeHeight()-12, 3)
	m.activity.SetContent(renderActivity(m.view.Activity, m.activity.Width))
	m.help.Width = m.width
}

func (m Model) paneWidths() (left, right int) {
	left = min(max(m.width/3, 24), 48)
	return left, max(m.width-left, 20)
}

func (m Model) chromeHeight() int {
	if m.showHelp {
		return 6
	}
	return 2
}

// selectedIndex returns the directory position of the selected session.
func (m Model) selectedIndex() int {
	return slices.IndexFunc(m.view.Sessions, func(s protocols.SessionSummary) bool { return s.ID == m.view.SelectedID })
}
