package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"serialtui/pkg/serial"
)

const timestampFmt = "15:04:05.000"

func (m *model) displayHeight() int {
	// Header, input bar, and status line each take one row.
	h := m.height - 3
	if h < 1 {
		h = 1
	}
	return h
}

func (m *model) View() string {
	if !m.ready {
		return "starting..."
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteByte('\n')

	switch m.popup {
	case popupHelp:
		b.WriteString(m.overlay(m.viewHelp()))
	case popupPorts:
		b.WriteString(m.overlay(m.viewPorts()))
	case popupSendGroup:
		b.WriteString(m.overlay(m.viewSendGroup()))
	default:
		b.WriteString(m.viewDisplay())
	}
	b.WriteByte('\n')

	if m.showCmdline {
		b.WriteString(m.cmdline.View())
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteByte('\n')
	b.WriteString(m.viewStatusLine())
	return b.String()
}

// viewHeader renders one chip per configured port, colored by state.
func (m *model) viewHeader() string {
	chips := make([]string, 0, len(m.status))
	for _, p := range m.status {
		label := p.Config.Name
		var chip string
		switch p.State {
		case serial.StateStreaming:
			chip = m.theme.ChipLive.Foreground(PortColor(p.Config.Color)).Render("● " + label)
		case serial.StateBackoff:
			chip = m.theme.ChipRetry.Render(fmt.Sprintf("◌ %s (retry %s)", label, p.RetryIn.Round(time.Second)))
		case serial.StateConnecting:
			chip = m.theme.ChipRetry.Render("◌ " + label)
		default:
			chip = m.theme.ChipIdle.Render("○ " + label)
		}
		chips = append(chips, chip)
	}
	header := strings.Join(chips, " ")
	if m.portFilter != "" {
		header += m.theme.Hint.Render("  [filter: " + m.portFilter + "]")
	}
	return header
}

func (m *model) visibleLines() []serial.LineEvent {
	if m.portFilter == "" {
		return m.lines
	}
	out := make([]serial.LineEvent, 0, len(m.lines))
	for _, ev := range m.lines {
		if ev.Port == m.portFilter {
			out = append(out, ev)
		}
	}
	return out
}

func (m *model) viewDisplay() string {
	lines := m.visibleLines()
	h := m.displayHeight()

	end := len(lines) - m.scroll
	if end < 0 {
		end = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	start := end - h
	if start < 0 {
		start = 0
	}

	rows := make([]string, 0, h)
	for _, ev := range lines[start:end] {
		stamp := m.theme.Timestamp.Render(ev.Timestamp.Format(timestampFmt))
		tag := lipgloss.NewStyle().
			Foreground(PortColor(m.portColor(ev.Port))).
			Render("[" + ev.Port + "]")
		rows = append(rows, fmt.Sprintf("%s %s %s", stamp, tag, ev.Text))
	}
	for len(rows) < h {
		rows = append(rows, "")
	}
	return strings.Join(rows, "\n")
}

func (m *model) portColor(name string) string {
	for _, p := range m.status {
		if p.Config.Name == name {
			return p.Config.Color
		}
	}
	return ""
}

func (m *model) viewStatusLine() string {
	if m.toast != nil {
		text := fmt.Sprintf("[%s] %s", m.toast.Source, m.toast.Message)
		switch m.toast.Level {
		case serial.LevelError:
			return m.theme.ToastError.Render(text)
		case serial.LevelWarn:
			return m.theme.ToastWarn.Render(text)
		default:
			return m.theme.ToastInfo.Render(text)
		}
	}

	group := m.selectedPorts()
	groupText := "none"
	if len(group) == len(m.status) {
		groupText = "all"
	} else if len(group) > 0 {
		groupText = strings.Join(group, ",")
	}
	hint := fmt.Sprintf("send to: %s", groupText)
	if m.focusDisplay {
		hint = "display focus (tab or i back to input)  |  " + hint
	}
	if m.opts.Runner.Running() {
		hint += "  |  script running (:abort to stop)"
	}
	if m.scroll > 0 {
		hint += fmt.Sprintf("  |  scrolled %d (End to follow)", m.scroll)
	}
	hint += "  |  ^H help"
	return m.theme.Hint.Render(hint)
}

// overlay centers popup content inside the display region.
func (m *model) overlay(content string) string {
	box := m.theme.Popup.Render(content)
	return lipgloss.Place(m.width, m.displayHeight(), lipgloss.Center, lipgloss.Center, box)
}

func (m *model) viewHelp() string {
	rows := []string{
		m.theme.PopupTitle.Render("serialtui"),
		"",
		"enter        send input to the send group",
		"tab          cycle focus between input and display",
		"ctrl+p       port list (connect, disconnect, filter)",
		"ctrl+g       send group selection",
		"pgup/pgdn    scroll the display, End follows the tail",
		"j/k g/G      scroll when the display has focus",
		"esc          clear input / drop the port filter",
		":            command bar",
		"",
		":connect <port|all>     :disconnect <port|all>",
		":run <script>           :abort",
		":filter <port|off>      :clear",
		":purge                  :quit",
		"",
		"any key to close",
	}
	return strings.Join(rows, "\n")
}

func (m *model) viewPorts() string {
	rows := []string{m.theme.PopupTitle.Render("ports"), ""}
	for i, p := range m.status {
		line := fmt.Sprintf("%-12s %-22s %6d  %s", p.Config.Name, p.Config.Path, p.Config.BaudRate, p.State)
		if p.State == serial.StateBackoff {
			line += fmt.Sprintf(" (retry %s)", p.RetryIn.Round(time.Second))
		}
		if i == m.cursor {
			line = m.theme.Selected.Render(line)
		}
		rows = append(rows, line)
	}
	rows = append(rows, "", m.theme.Hint.Render("enter toggle  f filter  esc close"))
	return strings.Join(rows, "\n")
}

func (m *model) viewSendGroup() string {
	rows := []string{m.theme.PopupTitle.Render("send group"), ""}
	for i, p := range m.status {
		mark := "[ ]"
		if m.sendGroup[p.Config.Name] {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s", mark, p.Config.Name)
		if i == m.cursor {
			line = m.theme.Selected.Render(line)
		}
		rows = append(rows, line)
	}
	rows = append(rows, "", m.theme.Hint.Render("space toggle  a all  n none  esc close"))
	return strings.Join(rows, "\n")
}
