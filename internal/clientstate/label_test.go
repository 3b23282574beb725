package clientstate

import (
	"strings"
	"testing"
	"time"
)

func TestDeriveLabel(t *testing.T) {
	long := strings.Repeat("x", 41)
	exact := strings.Repeat("y", 40)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no title", in: "\\documentclass{article}", want: "Optimization"},
		{name: "title to end of line", in: "% CV Review for Go Engineer at Acme\n\\begin{document}", want: "Go Engineer at Acme"},
		{name: "case insensitive", in: "cv review FOR Platform Team", want: "Platform Team"},
		{name: "first match wins", in: "CV Review for First\nCV Review for Second", want: "First"},
		{name: "exactly forty kept", in: "CV Review for " + exact, want: exact},
		{name: "longer than forty truncated", in: "CV Review for " + long, want: strings.Repeat("x", 40) + "..."},
		{name: "crlf line ending excluded", in: "% CV Review for Go Engineer\r\n\\begin{document}", want: "Go Engineer"},
		{name: "line separator ends title", in: "CV Review for Acme\u2028more", want: "Acme"},
		{name: "empty capture", in: "CV Review for \nrest", want: ""},
		{name: "multibyte counted as characters", in: "CV Review for " + strings.Repeat("é", 41), want: strings.Repeat("é", 40) + "..."},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveLabel(tt.in); got != tt.want {
				t.Fatalf("DeriveLabel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, time.January, 17, 22, 5, 0, 0, time.UTC)
	if got := FormatTimestamp(ts, time.UTC); got != "Jan 17, 10:05 PM" {
		t.Fatalf("unexpected timestamp %q", got)
	}
	morning := time.Date(2026, time.March, 3, 9, 7, 0, 0, time.UTC)
	if got := FormatTimestamp(morning, time.UTC); got != "Mar 3, 9:07 AM" {
		t.Fatalf("unexpected timestamp %q", got)
	}
}
