package serial

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// DemoDevice emulates a chattering serial device on a pseudo
// terminal. The device goroutine owns the master side: it emits a
// telemetry line on every tick and answers each received line with an
// ACK. Sessions open the slave side through DemoOpener, so the full
// open/stream/reconnect path is exercised without hardware.
type DemoDevice struct {
	name   string
	master *os.File
	slave  *os.File

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewDemoDevice allocates a pty pair and starts the device goroutine.
// telemetry is called once per interval to produce the next line.
func NewDemoDevice(name string, interval time.Duration, telemetry func(seq int) string) (*DemoDevice, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("open pty for %s: %w", name, err)
	}
	// Raw mode on the slave keeps the line discipline from echoing
	// our own writes back as device output.
	if _, err := term.MakeRaw(int(slave.Fd())); err != nil {
		master.Close()
		slave.Close()
		return nil, fmt.Errorf("raw mode for %s: %w", name, err)
	}

	d := &DemoDevice{
		name:   name,
		master: master,
		slave:  slave,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go d.run(interval, telemetry)
	return d, nil
}

// Name returns the device's display name.
func (d *DemoDevice) Name() string { return d.name }

// Path returns the slave pty path to hand to a PortConfig.
func (d *DemoDevice) Path() string { return d.slave.Name() }

// PortConfig returns a ready port entry for this device.
func (d *DemoDevice) PortConfig(color string) PortConfig {
	return PortConfig{
		Name:  d.name,
		Path:  d.Path(),
		Color: color,
	}.WithDefaults()
}

// Close stops the device goroutine and releases both pty halves.
func (d *DemoDevice) Close() error {
	d.closeOnce.Do(func() {
		close(d.stop)
		d.master.Close()
		<-d.done
		d.slave.Close()
	})
	return nil
}

func (d *DemoDevice) run(interval time.Duration, telemetry func(seq int) string) {
	defer close(d.done)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(d.master)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-d.stop:
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	seq := 0
	for {
		select {
		case <-d.stop:
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(d.master, "ACK: %s\r\n", line); err != nil {
				return
			}
		case <-ticker.C:
			seq++
			if _, err := fmt.Fprintf(d.master, "%s\r\n", telemetry(seq)); err != nil {
				return
			}
		}
	}
}

// DemoOpener returns an OpenFunc that serves the given devices by
// slave path. Each open gets a fresh descriptor so reconnects behave
// like reopening a real port. Paths outside the device set fall back
// to the real serial opener.
func DemoOpener(devices ...*DemoDevice) OpenFunc {
	byPath := make(map[string]*DemoDevice, len(devices))
	for _, d := range devices {
		byPath[d.Path()] = d
	}
	return func(cfg PortConfig) (io.ReadWriteCloser, error) {
		if _, ok := byPath[cfg.Path]; !ok {
			return Open(cfg)
		}
		f, err := os.OpenFile(cfg.Path, os.O_RDWR, 0)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Path, err)
		}
		return f, nil
	}
}
