// Package tui provides the interactive reading view: transport
// controls over the playback engine, a progress readout, and a live
// preview of the extracted text. All playback and extraction state
// lives in the speech and extract packages; this model only renders it
// and translates keys into engine calls.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/voxread/voxread/extract"
	"github.com/voxread/voxread/speech"
)

const (
	statusMessageTimeout = time.Second * 3
	ellipsis             = "…"
	rateStep             = 0.25
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// ReloadFunc re-extracts the current source, used when the watched
// file changes on disk.
type ReloadFunc func() (extract.ContentSource, error)

type (
	fileChangedMsg   struct{}
	reloadedMsg      struct{ source extract.ContentSource }
	reloadFailedMsg  struct{ err error }
	statusTimeoutMsg struct{}
	watchClosedMsg   struct{}
)

// NewProgram returns a Tea program wrapping the reading model.
func NewProgram(cfg Config, engine *speech.Engine, source extract.ContentSource, path string, reload ReloadFunc) *tea.Program {
	log.Debug("starting reader UI", "title", source.Title, "chars", len(source.Content), "watch", cfg.WatchSource)
	m := newModel(cfg, engine, source, path, reload)
	return tea.NewProgram(m, tea.WithAltScreen())
}

type model struct {
	cfg    Config
	engine *speech.Engine
	source extract.ContentSource
	path   string
	reload ReloadFunc

	sessions chan speech.Session
	errs     chan error
	watcher  *fsnotify.Watcher

	session  speech.Session
	progress progress.Model
	width    int
	height   int
	status   string
	err      error
}

func newModel(cfg Config, engine *speech.Engine, source extract.ContentSource, path string, reload ReloadFunc) *model {
	m := &model{
		cfg:      cfg,
		engine:   engine,
		source:   source,
		path:     path,
		reload:   reload,
		sessions: make(chan speech.Session, 64),
		errs:     make(chan error, 8),
		progress: progress.New(progress.WithDefaultGradient()),
	}

	engine.OnSession(func(s speech.Session) {
		select {
		case m.sessions <- s:
		default: // renderer is behind; newer snapshots follow
		}
	})
	engine.OnError(func(err error) {
		select {
		case m.errs <- err:
		default:
		}
	})
	return m
}

func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.listenSession(), m.listenError()}
	if m.cfg.WatchSource && m.path != "" {
		cmds = append(cmds, m.watchSource())
	}
	return tea.Batch(cmds...)
}

func (m *model) listenSession() tea.Cmd {
	return func() tea.Msg {
		return speech.SessionMsg{Session: <-m.sessions}
	}
}

func (m *model) listenError() tea.Cmd {
	return func() tea.Msg {
		return speech.PlaybackErrorMsg{Err: <-m.errs}
	}
}

// watchSource starts an fsnotify watch on the source file and blocks
// until the file changes.
func (m *model) watchSource() tea.Cmd {
	return func() tea.Msg {
		if m.watcher == nil {
			w, err := fsnotify.NewWatcher()
			if err != nil {
				log.Debug("cannot watch source file", "err", err)
				return watchClosedMsg{}
			}
			if err := w.Add(m.path); err != nil {
				log.Debug("cannot watch source file", "path", m.path, "err", err)
				w.Close()
				return watchClosedMsg{}
			}
			m.watcher = w
		}
		for {
			select {
			case ev, ok := <-m.watcher.Events:
				if !ok {
					return watchClosedMsg{}
				}
				if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
					return fileChangedMsg{}
				}
			case _, ok := <-m.watcher.Errors:
				if !ok {
					return watchClosedMsg{}
				}
			}
		}
	}
}

func (m *model) reloadSource() tea.Cmd {
	return func() tea.Msg {
		src, err := m.reload()
		if err != nil {
			return reloadFailedMsg{err: err}
		}
		return reloadedMsg{source: src}
	}
}

func (m *model) setStatus(s string) tea.Cmd {
	m.status = s
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusTimeoutMsg{}
	})
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 10
		return m, nil

	case speech.SessionMsg:
		m.session = msg.Session
		return m, m.listenSession()

	case speech.PlaybackErrorMsg:
		m.err = msg.Err
		return m, m.listenError()

	case fileChangedMsg:
		log.Debug("source file changed, re-extracting", "path", m.path)
		m.engine.Stop()
		return m, tea.Batch(m.reloadSource(), m.watchSource())

	case reloadedMsg:
		m.source = msg.source
		m.session = m.engine.Session()
		return m, m.setStatus("source reloaded")

	case reloadFailedMsg:
		m.err = msg.err
		return m, nil

	case statusTimeoutMsg:
		m.status = ""
		return m, nil

	case watchClosedMsg:
		return m, nil
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.engine.Stop()
		if m.watcher != nil {
			m.watcher.Close()
		}
		return m, tea.Quit

	case " ":
		m.err = nil
		switch m.session.Status() {
		case speech.StatusPlaying:
			if err := m.engine.Pause(); err != nil {
				m.err = err
			}
		case speech.StatusPaused:
			if err := m.engine.Resume(); err != nil {
				m.err = err
			}
		default:
			if err := m.engine.Start(m.speakable(), 0); err != nil {
				m.err = err
			}
		}
		return m, nil

	case "s":
		m.engine.Stop()
		return m, nil

	case "+", "=":
		return m, m.adjustRate(rateStep)

	case "-", "_":
		return m, m.adjustRate(-rateStep)

	case "c":
		if err := clipboard.WriteAll(extract.StripMarkers(m.source.Content)); err != nil {
			m.err = err
			return m, nil
		}
		return m, m.setStatus("copied text to clipboard")

	case "r":
		if m.reload == nil {
			return m, nil
		}
		m.engine.Stop()
		return m, m.reloadSource()
	}
	return m, nil
}

func (m *model) adjustRate(delta float64) tea.Cmd {
	rate := m.engine.Settings().Rate + delta
	if rate < 0.1 {
		rate = 0.1
	}
	if rate > 3.0 {
		rate = 3.0
	}
	if err := m.engine.UpdateSettings(speech.SettingsUpdate{Rate: &rate}); err != nil {
		m.err = err
		return nil
	}
	return m.setStatus(fmt.Sprintf("rate %.2fx", rate))
}

// speakable is the engine input: markers stripped unless the user
// asked to hear them.
func (m *model) speakable() string {
	if m.cfg.ShowMarkers {
		return m.source.Content
	}
	return extract.StripMarkers(m.source.Content)
}

func (m *model) View() string {
	if m.width == 0 {
		return "loading…"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(runewidth.Truncate(m.source.Title, m.width-2, ellipsis)))
	b.WriteString("\n\n")

	bodyHeight := m.height - 7
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	b.WriteString(m.renderBody(bodyHeight))
	b.WriteString("\n")

	b.WriteString(m.progress.ViewAs(m.session.Progress()))
	b.WriteString(fmt.Sprintf(" %3.0f%%\n", m.session.Progress()*100))
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("space play/pause • s stop • +/- rate • c copy • r reload • q quit"))
	return b.String()
}

func (m *model) renderBody(lines int) string {
	content := m.source.Content
	if !m.cfg.ShowMarkers {
		content = extract.StripMarkers(content)
	}

	width := m.width
	if m.cfg.GlamourMaxWidth > 0 && width > int(m.cfg.GlamourMaxWidth) {
		width = int(m.cfg.GlamourMaxWidth)
	}

	var rendered string
	if m.cfg.GlamourEnabled && m.source.FileType == "markdown" {
		r, err := glamour.NewTermRenderer(
			glamour.WithStylePath(m.cfg.GlamourStyle),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			if out, rerr := r.Render(content); rerr == nil {
				rendered = out
			}
		}
	}
	if rendered == "" {
		rendered = wordwrap.String(content, width)
	}

	split := strings.Split(rendered, "\n")
	start := m.lineAtPosition(split)
	if start > len(split)-lines {
		start = len(split) - lines
	}
	if start < 0 {
		start = 0
	}
	end := start + lines
	if end > len(split) {
		end = len(split)
	}
	return strings.Join(split[start:end], "\n")
}

// lineAtPosition maps the playback position onto a rendered line so
// the view follows the voice.
func (m *model) lineAtPosition(lines []string) int {
	if m.session.TotalChars == 0 || m.session.Position == 0 {
		return 0
	}
	frac := float64(m.session.Position) / float64(m.session.TotalChars)
	return int(frac * float64(len(lines)))
}

func (m *model) statusLine() string {
	if m.err != nil {
		return errorStyle.Render(runewidth.Truncate("error: "+m.err.Error(), m.width, ellipsis))
	}
	if m.status != "" {
		return statusStyle.Render(m.status)
	}
	s := fmt.Sprintf("%s · char %d of %d", m.session.Status(), m.session.Position, m.session.TotalChars)
	return statusStyle.Render(runewidth.Truncate(s, m.width, ellipsis))
}
