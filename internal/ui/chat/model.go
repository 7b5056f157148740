// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"

	"github.com/jeranaias/localchat/internal/config"
	"github.com/jeranaias/localchat/internal/export"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/ollama"
	"github.com/jeranaias/localchat/internal/session"
	"github.com/jeranaias/localchat/internal/stream"
	"github.com/jeranaias/localchat/internal/ui/styles"
)

// =============================================================================
// FOCUS AREAS
// =============================================================================

// focusArea identifies which pane receives keystrokes.
type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
	focusModels
)

// =============================================================================
// LIVE STREAM STATE
// =============================================================================

// liveStream is the UI-side state of one in-flight response. The stream id
// guards against events from a superseded stream landing in the display.
type liveStream struct {
	id           uuid.UUID
	tail         *model.Message
	typing       *TypingBuffer
	waitingFirst bool
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	// Wiring
	cfg    *config.Config
	theme  *styles.Theme
	keys   KeyMap
	client *ollama.Client
	store  *session.Store
	runner *stream.Runner

	// Components
	input    textinput.Model
	viewport viewport.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	// Layout
	width  int
	height int
	ready  bool

	// Focus & overlays
	focus    focusArea
	showHelp bool

	// Model selector
	models        []ollama.ModelInfo
	modelCursor   int
	selectedModel string
	modelsErr     error

	// Sidebar
	sidebarCursor int

	// Streams, keyed by session id. One live stream per session.
	streams map[int]*liveStream

	// Transient feedback
	errText    string
	statusText string
	statusSeq  int
}

// New creates the chat model. The runner's sink must deliver stream events
// to the program running this model.
func New(cfg *config.Config, client *ollama.Client, store *session.Store, runner *stream.Runner) *Model {
	theme := styles.NewTheme()

	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Prompt = "> "
	input.CharLimit = 0
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = theme.Thinking

	return &Model{
		cfg:           cfg,
		theme:         theme,
		keys:          DefaultKeyMap(),
		client:        client,
		store:         store,
		runner:        runner,
		input:         input,
		spin:          spin,
		selectedModel: cfg.Server.DefaultModel,
		streams:       make(map[int]*liveStream),
	}
}

// Init loads the model list and starts the input blink.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadModels(),
		textinput.Blink,
		m.spin.Tick,
	)
}

// =============================================================================
// COMMANDS
// =============================================================================

// loadModels fetches /api/tags off the update loop.
func (m *Model) loadModels() tea.Cmd {
	client := m.client
	timeout := m.cfg.Timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		models, err := client.ListModels(ctx)
		return ModelsLoadedMsg{Models: models, Err: err}
	}
}

// setStatus shows a transient status line for a few seconds.
func (m *Model) setStatus(text string) tea.Cmd {
	m.statusText = text
	m.statusSeq++
	seq := m.statusSeq
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return statusExpiredMsg{seq: seq}
	})
}

// exportOptions builds export options from config.
func (m *Model) exportOptions() *export.Options {
	dir := m.cfg.Export.Dir
	if dir == "" {
		dir = "."
	}
	return &export.Options{
		OutputDir:       dir,
		OpenAfterExport: m.cfg.Export.OpenAfterExport,
	}
}

// activeStream returns the live stream of the active session, if any.
func (m *Model) activeStream() *liveStream {
	return m.streams[m.store.ActiveID()]
}

// anyTypingPending reports whether any live stream has unrevealed text.
func (m *Model) anyTypingPending() bool {
	for _, ls := range m.streams {
		if ls.typing.Pending() {
			return true
		}
	}
	return false
}
