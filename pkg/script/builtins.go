package script

import (
	"context"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"time"

	"serialtui/pkg/serial"
)

// waitstrBuffer bounds how many lines can queue between a waitstr
// poll and the bus. Matches the default subscriber depth.
const waitstrBuffer = serial.DefaultSubscriberBuffer

func builtins() []*Builtin {
	return []*Builtin{
		{Name: "sendstr", Fn: builtinSendstr},
		{Name: "sendbin", Fn: builtinSendbin},
		{Name: "wait", Fn: builtinWait},
		{Name: "waitstr", Fn: builtinWaitstr},
		{Name: "print", Fn: builtinPrint},
		{Name: "len", Fn: builtinLen},
	}
}

func arity(pos Pos, name string, args []Value, want int) error {
	if len(args) != want {
		return errAt(pos, "%s takes %d argument(s), got %d", name, want, len(args))
	}
	return nil
}

// portList accepts either a single port name or an array of names.
func portList(pos Pos, v Value) ([]string, error) {
	switch t := v.(type) {
	case String:
		return []string{string(t)}, nil
	case Array:
		names := make([]string, 0, len(t))
		for _, elem := range t {
			s, ok := elem.(String)
			if !ok {
				return nil, errAt(pos, "port list must contain strings, got %s", elem.Type())
			}
			names = append(names, string(s))
		}
		if len(names) == 0 {
			return nil, errAt(pos, "port list is empty")
		}
		return names, nil
	}
	return nil, errAt(pos, "ports must be a string or array of strings, got %s", v.Type())
}

func stringArg(pos Pos, name string, v Value) (string, error) {
	s, ok := v.(String)
	if !ok {
		return "", errAt(pos, "%s must be a string, got %s", name, v.Type())
	}
	return string(s), nil
}

func numberArg(pos Pos, name string, v Value) (float64, error) {
	n, ok := v.(Number)
	if !ok {
		return 0, errAt(pos, "%s must be a number, got %s", name, v.Type())
	}
	return float64(n), nil
}

// send pushes data to the named ports. Ports with no live session
// are reported through the notifier and skipped; the script keeps
// running. Anything else is fatal to the run.
func send(ctx context.Context, in *Interp, pos Pos, ports []string, data []byte) error {
	err := in.host.Send(ctx, ports, data)
	if err == nil {
		return nil
	}
	var route *serial.RouteError
	if errors.As(err, &route) {
		in.notify.Notify(serial.LevelWarn, "script", "%s: %v", pos, route)
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrAborted
	}
	return &RuntimeError{Pos: pos, Msg: err.Error(), Err: err}
}

func builtinSendstr(ctx context.Context, in *Interp, pos Pos, args []Value) (Value, error) {
	if err := arity(pos, "sendstr", args, 2); err != nil {
		return nil, err
	}
	ports, err := portList(pos, args[0])
	if err != nil {
		return nil, err
	}
	text, err := stringArg(pos, "sendstr text", args[1])
	if err != nil {
		return nil, err
	}
	if err := send(ctx, in, pos, ports, []byte(text)); err != nil {
		return nil, err
	}
	return Null{}, nil
}

func builtinSendbin(ctx context.Context, in *Interp, pos Pos, args []Value) (Value, error) {
	if err := arity(pos, "sendbin", args, 2); err != nil {
		return nil, err
	}
	ports, err := portList(pos, args[0])
	if err != nil {
		return nil, err
	}
	text, err := stringArg(pos, "sendbin hex", args[1])
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(text, "0x") && !strings.HasPrefix(text, "0X") {
		return nil, errAt(pos, "sendbin wants a 0x-prefixed hex string, got %q", text)
	}
	data, err := hex.DecodeString(text[2:])
	if err != nil {
		return nil, errAt(pos, "bad hex string %q: %v", text, err)
	}
	if err := send(ctx, in, pos, ports, data); err != nil {
		return nil, err
	}
	return Null{}, nil
}

func builtinWait(ctx context.Context, in *Interp, pos Pos, args []Value) (Value, error) {
	if err := arity(pos, "wait", args, 1); err != nil {
		return nil, err
	}
	secs, err := numberArg(pos, "wait duration", args[0])
	if err != nil {
		return nil, err
	}
	if secs < 0 {
		return nil, errAt(pos, "wait duration must not be negative")
	}
	timer := time.NewTimer(time.Duration(secs * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-timer.C:
		return Null{}, nil
	case <-ctx.Done():
		return nil, ErrAborted
	}
}

// builtinWaitstr blocks until a line from one of the named ports
// matches the pattern, returning the matching line. The subscription
// starts before the wait, so lines arriving mid-call are not lost.
func builtinWaitstr(ctx context.Context, in *Interp, pos Pos, args []Value) (Value, error) {
	if err := arity(pos, "waitstr", args, 3); err != nil {
		return nil, err
	}
	ports, err := portList(pos, args[0])
	if err != nil {
		return nil, err
	}
	pattern, err := stringArg(pos, "waitstr pattern", args[1])
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errAt(pos, "bad pattern %q: %v", pattern, err)
	}
	secs, err := numberArg(pos, "waitstr timeout", args[2])
	if err != nil {
		return nil, err
	}
	if secs <= 0 {
		return nil, errAt(pos, "waitstr timeout must be positive")
	}

	want := make(map[string]bool, len(ports))
	for _, p := range ports {
		want[p] = true
	}

	sub := in.host.Subscribe(waitstrBuffer)
	defer sub.Cancel()

	timer := time.NewTimer(time.Duration(secs * float64(time.Second)))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ErrAborted
		case <-timer.C:
			return nil, &RuntimeError{
				Pos: pos,
				Msg: "waitstr " + pattern + ": " + ErrWaitTimeout.Error(),
				Err: ErrWaitTimeout,
			}
		case ev, ok := <-sub.Events():
			if !ok {
				return nil, errAt(pos, "event stream closed")
			}
			if want[ev.Port] && re.MatchString(ev.Text) {
				return String(ev.Text), nil
			}
		}
	}
}

func builtinPrint(ctx context.Context, in *Interp, pos Pos, args []Value) (Value, error) {
	parts := make([]string, 0, len(args))
	for _, v := range args {
		parts = append(parts, v.String())
	}
	in.notify.Notify(serial.LevelInfo, "script", "%s", strings.Join(parts, " "))
	return Null{}, nil
}

func builtinLen(ctx context.Context, in *Interp, pos Pos, args []Value) (Value, error) {
	if err := arity(pos, "len", args, 1); err != nil {
		return nil, err
	}
	switch t := args[0].(type) {
	case String:
		return Number(len(t)), nil
	case Array:
		return Number(len(t)), nil
	}
	return nil, errAt(pos, "len wants a string or array, got %s", args[0].Type())
}
