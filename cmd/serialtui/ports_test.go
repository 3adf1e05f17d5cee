package main

import "testing"

func TestParityLetter(t *testing.T) {
	cases := []struct {
		parity string
		want   string
	}{
		{"", "N"},
		{"none", "N"},
		{"odd", "O"},
		{"even", "E"},
		{"Even", "E"},
		{"ODD", "O"},
		{"mark", "M"},
		{"space", "S"},
	}
	for _, c := range cases {
		if got := parityLetter(c.parity); got != c.want {
			t.Errorf("parityLetter(%q) = %q, want %q", c.parity, got, c.want)
		}
	}
}
