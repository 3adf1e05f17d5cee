package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"serialtui/pkg/serial"
	"serialtui/pkg/tui"
)

var (
	flagConfig string
	flagDemo   bool
)

var rootCmd = &cobra.Command{
	Use:   "serialtui",
	Short: "Terminal dashboard for multiple serial ports",
	Long: `serialtui streams and controls many serial ports from one terminal:
a shared line display, group sends, per-port logs, and a scripting
language for automated command/response sequences.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("the dashboard needs a terminal; use %q for headless scripting", "serialtui run")
		}

		// The TUI consumes notifications through a channel; a full
		// channel drops rather than stalling a session goroutine.
		notifs := make(chan serial.Notification, 64)
		notify := serial.Notifier(func(n serial.Notification) {
			select {
			case notifs <- n:
			default:
			}
		})

		a, err := buildApp(flagConfig, flagDemo, notify)
		if err != nil {
			return err
		}
		defer a.close()

		return tui.Run(tui.Options{
			Hub:       a.hub,
			Runner:    a.runner,
			Notifs:    notifs,
			Logs:      a.logs,
			ScriptDir: a.scriptDir(),
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&flagDemo, "demo", false, "use built-in demo devices instead of real ports")
	rootCmd.AddCommand(portsCmd, runCmd)
}
