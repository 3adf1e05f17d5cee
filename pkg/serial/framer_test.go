package serial

import (
	"reflect"
	"testing"
)

func TestLineFramer_SplitAcrossReads(t *testing.T) {
	var f lineFramer
	var got []string
	for _, chunk := range []string{"Hel", "lo\nWor", "ld\n"} {
		got = append(got, f.push([]byte(chunk))...)
	}
	want := []string{"Hello", "World"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
	if partial, ok := f.flush(); ok {
		t.Fatalf("unexpected trailing partial %q", partial)
	}
}

func TestLineFramer_CRLF(t *testing.T) {
	var f lineFramer
	got := f.push([]byte("one\r\ntwo\r\n"))
	want := []string{"one", "two"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
}

func TestLineFramer_BareCR(t *testing.T) {
	var f lineFramer
	got := f.push([]byte("alpha\rbeta\r"))
	want := []string{"alpha", "beta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
}

func TestLineFramer_EmptyLinesSuppressed(t *testing.T) {
	var f lineFramer
	if got := f.push([]byte("\n\r\n\r")); len(got) != 0 {
		t.Fatalf("expected no lines, got %q", got)
	}
}

func TestLineFramer_FlushPartial(t *testing.T) {
	var f lineFramer
	f.push([]byte("dangling"))
	partial, ok := f.flush()
	if !ok || partial != "dangling" {
		t.Fatalf("flush = %q, %v; want %q, true", partial, ok, "dangling")
	}
}
