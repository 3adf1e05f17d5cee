// Package tui renders the serial dashboard: a config bar of port
// chips, a shared line display, and an input bar that sends to the
// selected port group. Popups cover help, per-port actions, send
// group selection, and a ":" command bar.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"serialtui/pkg/portlog"
	"serialtui/pkg/script"
	"serialtui/pkg/serial"
)

// Options wires the dashboard to the rest of the application.
type Options struct {
	Hub       *serial.Hub
	Runner    *script.Runner
	Notifs    <-chan serial.Notification
	Logs      *portlog.Writer // nil when line logging is disabled
	ScriptDir string
	MaxLines  int // display scrollback, default 2000
}

// Run blocks until the user quits the dashboard.
func Run(opts Options) error {
	if opts.Hub == nil || opts.Runner == nil {
		return fmt.Errorf("tui needs a hub and a runner")
	}
	if opts.MaxLines <= 0 {
		opts.MaxLines = 2000
	}
	m := newModel(opts)
	defer m.sub.Cancel()
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

const (
	toastDuration = 4 * time.Second
	sendTimeout   = 2 * time.Second
	refreshEvery  = 500 * time.Millisecond
)

type lineMsg serial.LineEvent

type lineClosedMsg struct{}

type notifMsg serial.Notification

type refreshMsg time.Time

type sendResultMsg struct {
	err error
}

type popup int

const (
	popupNone popup = iota
	popupHelp
	popupPorts
	popupSendGroup
)

type model struct {
	opts  Options
	theme Theme
	sub   *serial.Subscription

	lines      []serial.LineEvent
	portFilter string // "" shows every port
	scroll     int    // rows scrolled up from the tail

	input       textinput.Model
	showCmdline bool
	cmdline     textinput.Model

	popup        popup
	cursor       int
	sendGroup    map[string]bool
	focusDisplay bool

	toast      *serial.Notification
	toastUntil time.Time

	status []serial.PortStatus

	width  int
	height int
	ready  bool
}

func newModel(opts Options) *model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "send..."
	ti.CharLimit = 512
	ti.Focus()

	ci := textinput.New()
	ci.Prompt = ":"
	ci.CharLimit = 256

	status := opts.Hub.Ports()
	group := make(map[string]bool, len(status))
	for _, p := range status {
		// Everything starts in the send group.
		group[p.Config.Name] = true
	}

	return &model{
		opts:      opts,
		theme:     DefaultTheme(),
		sub:       opts.Hub.Subscribe(serial.DefaultSubscriberBuffer),
		input:     ti,
		cmdline:   ci,
		sendGroup: group,
		status:    status,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitLine(), m.waitNotif(), m.refresh())
}

// --- Commands ---

func (m *model) waitLine() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.sub.Events()
		if !ok {
			return lineClosedMsg{}
		}
		return lineMsg(ev)
	}
}

func (m *model) waitNotif() tea.Cmd {
	if m.opts.Notifs == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-m.opts.Notifs
		if !ok {
			return nil
		}
		return notifMsg(n)
	}
}

func (m *model) refresh() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m *model) sendCmd(text string) tea.Cmd {
	ports := m.selectedPorts()
	hub := m.opts.Hub
	return func() tea.Msg {
		if len(ports) == 0 {
			return sendResultMsg{err: fmt.Errorf("send group is empty")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		return sendResultMsg{err: hub.Send(ctx, ports, []byte(text))}
	}
}

// selectedPorts returns the send group in config order.
func (m *model) selectedPorts() []string {
	var out []string
	for _, p := range m.status {
		if m.sendGroup[p.Config.Name] {
			out = append(out, p.Config.Name)
		}
	}
	return out
}

func (m *model) note(level serial.Level, format string, args ...any) {
	n := serial.Notification{Level: level, Source: "ui", Message: fmt.Sprintf(format, args...)}
	m.toast = &n
	m.toastUntil = time.Now().Add(toastDuration)
}

// --- Update ---

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case lineMsg:
		m.lines = append(m.lines, serial.LineEvent(msg))
		if over := len(m.lines) - m.opts.MaxLines; over > 0 {
			m.lines = m.lines[over:]
		}
		// Keep the viewport stable while scrolled back. The scroll
		// offset counts filtered rows, so a line the filter hides
		// must not shift it.
		if m.scroll > 0 && (m.portFilter == "" || msg.Port == m.portFilter) && m.scroll < len(m.lines) {
			m.scroll++
		}
		return m, m.waitLine()

	case lineClosedMsg:
		return m, nil

	case notifMsg:
		n := serial.Notification(msg)
		m.toast = &n
		m.toastUntil = time.Now().Add(toastDuration)
		return m, m.waitNotif()

	case refreshMsg:
		m.status = m.opts.Hub.Ports()
		if m.toast != nil && time.Now().After(m.toastUntil) {
			m.toast = nil
		}
		return m, m.refresh()

	case sendResultMsg:
		if msg.err != nil {
			m.note(serial.LevelWarn, "send: %v", msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.showCmdline {
		switch msg.Type {
		case tea.KeyEsc:
			m.showCmdline = false
			m.cmdline.SetValue("")
			m.input.Focus()
			return m, nil
		case tea.KeyEnter:
			line := m.cmdline.Value()
			m.showCmdline = false
			m.cmdline.SetValue("")
			m.input.Focus()
			return m.execCommand(line)
		}
		var cmd tea.Cmd
		m.cmdline, cmd = m.cmdline.Update(msg)
		return m, cmd
	}

	switch m.popup {
	case popupHelp:
		m.popup = popupNone
		return m, nil
	case popupPorts:
		return m.handlePortsKey(msg)
	case popupSendGroup:
		return m.handleSendGroupKey(msg)
	}

	if msg.Type == tea.KeyTab {
		m.focusDisplay = !m.focusDisplay
		if m.focusDisplay {
			m.input.Blur()
		} else {
			m.input.Focus()
		}
		return m, nil
	}
	if m.focusDisplay {
		return m.handleDisplayKey(msg)
	}

	switch msg.Type {
	case tea.KeyEsc:
		if m.input.Value() != "" {
			m.input.SetValue("")
		} else if m.portFilter != "" {
			m.portFilter = ""
		}
		return m, nil
	case tea.KeyEnter:
		text := m.input.Value()
		m.input.SetValue("")
		return m, m.sendCmd(text)
	case tea.KeyCtrlH:
		m.popup = popupHelp
		return m, nil
	case tea.KeyCtrlP:
		m.popup = popupPorts
		m.cursor = 0
		return m, nil
	case tea.KeyCtrlG:
		m.popup = popupSendGroup
		m.cursor = 0
		return m, nil
	case tea.KeyPgUp:
		m.scrollBy(m.displayHeight())
		return m, nil
	case tea.KeyPgDown:
		m.scrollBy(-m.displayHeight())
		return m, nil
	case tea.KeyEnd:
		m.scroll = 0
		return m, nil
	}

	if msg.String() == ":" && m.input.Value() == "" {
		m.showCmdline = true
		m.input.Blur()
		m.cmdline.Focus()
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleDisplayKey serves the display focus: scrolling only.
func (m *model) handleDisplayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.scrollBy(1)
	case "down", "j":
		m.scrollBy(-1)
	case "pgup", "ctrl+u":
		m.scrollBy(m.displayHeight())
	case "pgdown", "ctrl+d":
		m.scrollBy(-m.displayHeight())
	case "g":
		m.scroll = len(m.lines) - 1
		if m.scroll < 0 {
			m.scroll = 0
		}
	case "G", "end":
		m.scroll = 0
	case "esc", "i":
		m.focusDisplay = false
		m.input.Focus()
	case "?":
		m.popup = popupHelp
	}
	return m, nil
}

func (m *model) handlePortsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "ctrl+p":
		m.popup = popupNone
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.status)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(m.status) {
			p := m.status[m.cursor]
			if p.State == serial.StateIdle {
				if err := m.opts.Hub.Connect(p.Config.Name); err != nil {
					m.note(serial.LevelError, "connect %s: %v", p.Config.Name, err)
				}
			} else {
				m.opts.Hub.Disconnect(p.Config.Name)
			}
			m.status = m.opts.Hub.Ports()
		}
	case "f":
		if m.cursor < len(m.status) {
			name := m.status[m.cursor].Config.Name
			if m.portFilter == name {
				m.portFilter = ""
			} else {
				m.portFilter = name
			}
			m.popup = popupNone
		}
	}
	return m, nil
}

func (m *model) handleSendGroupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "enter", "ctrl+g":
		m.popup = popupNone
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.status)-1 {
			m.cursor++
		}
	case " ":
		if m.cursor < len(m.status) {
			name := m.status[m.cursor].Config.Name
			m.sendGroup[name] = !m.sendGroup[name]
		}
	case "a":
		for _, p := range m.status {
			m.sendGroup[p.Config.Name] = true
		}
	case "n":
		for _, p := range m.status {
			m.sendGroup[p.Config.Name] = false
		}
	}
	return m, nil
}

func (m *model) scrollBy(delta int) {
	max := len(m.lines) - 1
	m.scroll += delta
	if m.scroll > max {
		m.scroll = max
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

// --- Command bar ---

func (m *model) execCommand(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return m, nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "q", "quit":
		return m, tea.Quit
	case "connect":
		if len(args) != 1 {
			m.note(serial.LevelWarn, "usage: connect <port|all>")
			return m, nil
		}
		if args[0] == "all" {
			m.opts.Hub.ConnectAll()
		} else if err := m.opts.Hub.Connect(args[0]); err != nil {
			m.note(serial.LevelError, "connect %s: %v", args[0], err)
		}
		m.status = m.opts.Hub.Ports()
	case "disconnect":
		if len(args) != 1 {
			m.note(serial.LevelWarn, "usage: disconnect <port|all>")
			return m, nil
		}
		if args[0] == "all" {
			for _, name := range m.opts.Hub.PortNames() {
				m.opts.Hub.Disconnect(name)
			}
		} else {
			m.opts.Hub.Disconnect(args[0])
		}
		m.status = m.opts.Hub.Ports()
	case "run":
		if len(args) != 1 {
			m.note(serial.LevelWarn, "usage: run <script>")
			return m, nil
		}
		m.runScript(args[0])
	case "abort":
		m.opts.Runner.Abort()
	case "filter":
		if len(args) != 1 {
			m.note(serial.LevelWarn, "usage: filter <port|off>")
			return m, nil
		}
		if args[0] == "off" {
			m.portFilter = ""
		} else {
			m.portFilter = args[0]
		}
	case "clear":
		m.lines = nil
		m.scroll = 0
	case "purge":
		if m.opts.Logs == nil {
			m.note(serial.LevelWarn, "line logging is disabled")
			return m, nil
		}
		if err := m.opts.Logs.Purge(); err != nil {
			m.note(serial.LevelError, "%v", err)
		} else {
			m.note(serial.LevelInfo, "logs purged")
		}
	default:
		m.note(serial.LevelWarn, "unknown command %q", cmd)
	}
	return m, nil
}

// runScript resolves a script name against the script directory and
// hands the source to the runner. The runner reports lifecycle
// through notifications.
func (m *model) runScript(name string) {
	path := name
	if !filepath.IsAbs(path) && m.opts.ScriptDir != "" {
		path = filepath.Join(m.opts.ScriptDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		m.note(serial.LevelError, "run: %v", err)
		return
	}
	if _, err := m.opts.Runner.Run(filepath.Base(path), string(data)); err != nil {
		m.note(serial.LevelError, "run %s: %v", filepath.Base(path), err)
	}
}
