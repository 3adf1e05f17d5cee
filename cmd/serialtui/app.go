package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"serialtui/pkg/config"
	"serialtui/pkg/portlog"
	"serialtui/pkg/script"
	"serialtui/pkg/serial"
)

// app holds the wired-up runtime: hub, script runner, line logs, and
// any demo devices backing the ports.
type app struct {
	cfg     *config.Config
	hub     *serial.Hub
	runner  *script.Runner
	logs    *portlog.Writer
	devices []*serial.DemoDevice

	cancel context.CancelFunc
}

// buildApp assembles the runtime from either the config file or a
// set of demo devices. notify receives everything the components
// report.
func buildApp(configPath string, demo bool, notify serial.Notifier) (*app, error) {
	a := &app{}

	var open serial.OpenFunc
	if demo {
		devices, err := demoDevices()
		if err != nil {
			return nil, err
		}
		a.devices = devices
		open = serial.DemoOpener(devices...)

		cfg := &config.Config{}
		for i, d := range devices {
			cfg.Ports = append(cfg.Ports, d.PortConfig(demoColors[i%len(demoColors)]))
		}
		a.cfg = cfg
	} else {
		cfg, path, err := config.Load(configPath)
		if errors.Is(err, config.ErrConfigNotFound) && configPath == "" {
			created, cerr := ensureDefaultConfig(notify)
			if cerr != nil {
				a.close()
				return nil, cerr
			}
			cfg, path, err = config.Load(created)
		}
		if err != nil {
			a.close()
			return nil, err
		}
		notify.Notify(serial.LevelInfo, "config", "loaded %s", path)
		a.cfg = cfg
	}

	hub, err := serial.NewHub(a.cfg.Ports, serial.HubOptions{
		Notify: notify,
		Open:   open,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.hub = hub

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go hub.Run(ctx)

	if !a.cfg.Logs.Disabled {
		dir := a.cfg.Logs.Dir
		if dir == "" {
			dir = portlog.DefaultDir()
		} else {
			dir = config.ExpandPath(dir)
		}
		logs, err := portlog.New(dir)
		if err != nil {
			a.close()
			return nil, err
		}
		a.logs = logs
		go logs.Run(ctx, hub.Subscribe(serial.DefaultSubscriberBuffer), notify)
	}

	a.runner = script.NewRunner(hub, notify)

	if a.cfg.ShouldAutoConnect() {
		hub.ConnectAll()
	}
	return a, nil
}

func ensureDefaultConfig(notify serial.Notifier) (string, error) {
	path, created, err := config.EnsureDefault()
	if err != nil {
		return "", fmt.Errorf("no config found and could not create one: %w", err)
	}
	if created {
		notify.Notify(serial.LevelWarn, "config", "created starter config at %s, edit it for your ports", path)
	}
	return path, nil
}

func (a *app) scriptDir() string {
	if a.cfg == nil || a.cfg.ScriptDir == "" {
		return ""
	}
	return config.ExpandPath(a.cfg.ScriptDir)
}

func (a *app) close() {
	if a.cancel != nil {
		a.cancel()
		<-a.hub.Done()
	}
	for _, d := range a.devices {
		d.Close()
	}
	if a.logs != nil {
		a.logs.Close()
	}
}

var demoColors = []string{"green", "cyan", "magenta"}

// demoDevices builds three chatty pseudo ports: a NMEA-ish GPS, an
// AT-style modem, and a slow sensor.
func demoDevices() ([]*serial.DemoDevice, error) {
	gps, err := serial.NewDemoDevice("GPS", time.Second, func(seq int) string {
		lat := 48.1173 + 0.0001*float64(seq%60)
		lon := 11.5167 + 0.0001*float64(seq%60)
		return fmt.Sprintf("$GPGGA,%06d,%08.4f,N,%09.4f,E,1,08,0.9,545.4,M", seq, lat, lon)
	})
	if err != nil {
		return nil, err
	}

	modem, err := serial.NewDemoDevice("MODEM", 1500*time.Millisecond, func(seq int) string {
		if seq%10 == 0 {
			return "RING"
		}
		return fmt.Sprintf("+CSQ: %d,99", 10+seq%20)
	})
	if err != nil {
		gps.Close()
		return nil, err
	}

	sensor, err := serial.NewDemoDevice("SENSOR", 2*time.Second, func(seq int) string {
		temp := 21.5 + 2*math.Sin(float64(seq)/10)
		return fmt.Sprintf("TEMP=%.2fC HUM=%d%%", temp, 40+seq%15)
	})
	if err != nil {
		gps.Close()
		modem.Close()
		return nil, err
	}

	return []*serial.DemoDevice{gps, modem, sensor}, nil
}
