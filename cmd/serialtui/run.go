package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"serialtui/pkg/script"
	"serialtui/pkg/serial"
)

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run a script headlessly, printing port traffic to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		notify := consoleNotifier()
		a, err := buildApp(flagConfig, flagDemo, notify)
		if err != nil {
			return err
		}
		defer a.close()

		path := args[0]
		if !filepath.IsAbs(path) {
			if _, err := os.Stat(path); err != nil && a.scriptDir() != "" {
				path = filepath.Join(a.scriptDir(), path)
			}
		}
		source, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		sub := a.hub.Subscribe(serial.DefaultSubscriberBuffer)
		defer sub.Cancel()
		go printLines(a, sub)

		h, err := a.runner.Run(filepath.Base(path), string(source))
		if err != nil {
			return err
		}

		sigs := make(chan os.Signal, 2)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigs)

		for {
			select {
			case <-sigs:
				// First signal aborts the script; a second one gives
				// up on the teardown and exits hard.
				h.Abort()
				select {
				case <-h.Done():
				case <-sigs:
					os.Exit(130)
				}
			case <-h.Done():
				err := h.Err()
				switch {
				case err == nil:
					return nil
				case errors.Is(err, script.ErrAborted):
					return fmt.Errorf("script aborted")
				default:
					return err
				}
			}
		}
	},
}

var (
	stampColor = color.New(color.Faint)
	infoColor  = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed, color.Bold)

	portColors = map[string]*color.Color{
		"red":            color.New(color.FgRed),
		"green":          color.New(color.FgGreen),
		"yellow":         color.New(color.FgYellow),
		"blue":           color.New(color.FgBlue),
		"magenta":        color.New(color.FgMagenta),
		"cyan":           color.New(color.FgCyan),
		"white":          color.New(color.FgWhite),
		"bright-red":     color.New(color.FgHiRed),
		"bright-green":   color.New(color.FgHiGreen),
		"bright-yellow":  color.New(color.FgHiYellow),
		"bright-blue":    color.New(color.FgHiBlue),
		"bright-magenta": color.New(color.FgHiMagenta),
		"bright-cyan":    color.New(color.FgHiCyan),
	}
)

// consoleNotifier writes notifications to stderr, colored by level.
func consoleNotifier() serial.Notifier {
	return func(n serial.Notification) {
		c := infoColor
		switch n.Level {
		case serial.LevelWarn:
			c = warnColor
		case serial.LevelError:
			c = errColor
		}
		fmt.Fprintf(os.Stderr, "%s [%s] %s\n", c.Sprintf("%-5s", n.Level), n.Source, n.Message)
	}
}

// printLines streams received lines to stdout until the subscription
// closes.
func printLines(a *app, sub *serial.Subscription) {
	colors := make(map[string]*color.Color, len(a.cfg.Ports))
	for _, p := range a.cfg.Ports {
		if c, ok := portColors[p.Color]; ok {
			colors[p.Name] = c
		} else {
			colors[p.Name] = color.New(color.FgCyan)
		}
	}
	for ev := range sub.Events() {
		tag := "[" + ev.Port + "]"
		if c, ok := colors[ev.Port]; ok {
			tag = c.Sprint(tag)
		}
		fmt.Printf("%s %s %s\n", stampColor.Sprint(ev.Timestamp.Format("15:04:05.000")), tag, ev.Text)
	}
}
