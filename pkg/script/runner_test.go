package script

import (
	"errors"
	"testing"
	"time"
)

func TestRunner_AbortTerminatesPromptly(t *testing.T) {
	r := NewRunner(newFakeHost(), nil)
	h, err := r.Run("sleeper", "wait(10)")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	h.Abort()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("run did not stop after abort")
	}
	if !errors.Is(h.Err(), ErrAborted) {
		t.Fatalf("Err() = %v, want ErrAborted", h.Err())
	}

	h.Abort() // second abort is a no-op
}

func TestRunner_SingleFlight(t *testing.T) {
	r := NewRunner(newFakeHost(), nil)
	h, err := r.Run("first", "wait(10)")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := r.Run("second", "wait(10)"); !errors.Is(err, ErrScriptRunning) {
		t.Fatalf("second Run = %v, want ErrScriptRunning", err)
	}

	h.Abort()
	<-h.Done()

	// The slot frees once the first run finishes.
	h2, err := r.Run("third", "let x = 1")
	if err != nil {
		t.Fatalf("Run after finish: %v", err)
	}
	<-h2.Done()
	if h2.Err() != nil {
		t.Fatalf("third run failed: %v", h2.Err())
	}
}

func TestRunner_ParseFailureDoesNotClaimSlot(t *testing.T) {
	r := NewRunner(newFakeHost(), nil)
	if _, err := r.Run("broken", "let = 1"); err == nil {
		t.Fatal("expected parse error")
	}
	if r.Running() {
		t.Fatal("broken script left the runner busy")
	}

	h, err := r.Run("fine", "let x = 1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	<-h.Done()
}

func TestRunner_LifecycleNotifications(t *testing.T) {
	var log notifyLog
	r := NewRunner(newFakeHost(), log.notifier())

	h, err := r.Run("job", "let x = 1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	<-h.Done()

	notes := log.all()
	if len(notes) != 2 {
		t.Fatalf("notifications = %d, want started + finished", len(notes))
	}
}
