package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme collects the lipgloss styles used by the dashboard.
type Theme struct {
	Header     lipgloss.Style
	Chip       lipgloss.Style
	ChipLive   lipgloss.Style
	ChipRetry  lipgloss.Style
	ChipIdle   lipgloss.Style
	Timestamp  lipgloss.Style
	InputBar   lipgloss.Style
	Hint       lipgloss.Style
	Popup      lipgloss.Style
	PopupTitle lipgloss.Style
	Selected   lipgloss.Style
	ToastInfo  lipgloss.Style
	ToastWarn  lipgloss.Style
	ToastError lipgloss.Style
}

func DefaultTheme() Theme {
	return Theme{
		Header:     lipgloss.NewStyle().Bold(true),
		Chip:       lipgloss.NewStyle().Padding(0, 1),
		ChipLive:   lipgloss.NewStyle().Padding(0, 1).Bold(true),
		ChipRetry:  lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("11")),
		ChipIdle:   lipgloss.NewStyle().Padding(0, 1).Faint(true),
		Timestamp:  lipgloss.NewStyle().Faint(true),
		InputBar:   lipgloss.NewStyle().Bold(true),
		Hint:       lipgloss.NewStyle().Faint(true),
		Popup:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		PopupTitle: lipgloss.NewStyle().Bold(true).Underline(true),
		Selected:   lipgloss.NewStyle().Bold(true).Reverse(true),
		ToastInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		ToastWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		ToastError: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
}

var namedColors = map[string]string{
	"black":   "0",
	"red":     "1",
	"green":   "2",
	"yellow":  "3",
	"blue":    "4",
	"magenta": "5",
	"cyan":    "6",
	"white":   "7",
	"gray":    "8",
	"grey":    "8",

	"bright-red":     "9",
	"bright-green":   "10",
	"bright-yellow":  "11",
	"bright-blue":    "12",
	"bright-magenta": "13",
	"bright-cyan":    "14",
	"bright-white":   "15",
}

// PortColor resolves a port's configured color: a known name, a
// #rrggbb hex value, or a raw 0-255 ANSI code. Unknown values come
// back as the terminal default.
func PortColor(name string) lipgloss.Color {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return lipgloss.Color("")
	}
	if code, ok := namedColors[name]; ok {
		return lipgloss.Color(code)
	}
	if strings.HasPrefix(name, "#") && (len(name) == 7 || len(name) == 4) {
		return lipgloss.Color(name)
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 0 && n <= 255 {
		return lipgloss.Color(name)
	}
	return lipgloss.Color("")
}
