package main

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestColorizeStatisticHighlightsLiveness(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = prev }()

	in := "Tx: 0 Rx: 2 Host: 10.0.0.1:5000 ONLINE\nTx: 0 Rx: 1 Host: 10.0.0.2:5000 OFFLINE: \n"
	out := colorizeStatistic(in)

	if want := color.New(color.FgGreen).Sprint("ONLINE"); !strings.Contains(out, want) {
		t.Errorf("ONLINE not highlighted: %q", out)
	}
	if want := color.New(color.FgRed).Sprint("OFFLINE:"); !strings.Contains(out, want) {
		t.Errorf("OFFLINE: not highlighted: %q", out)
	}

	if !strings.Contains(out, "10.0.0.1:5000") || !strings.Contains(out, "10.0.0.2:5000") {
		t.Fatalf("colorizeStatistic must not touch the non-liveness parts of the line: %q", out)
	}
	if strings.Count(out, "\n") != 2 {
		t.Errorf("line count changed: %q", out)
	}
}

func TestKindsCoverAllCommandTokens(t *testing.T) {
	for _, token := range []string{"ok", "status", "statistic", "quit", "any"} {
		if _, ok := kinds[token]; !ok {
			t.Errorf("kinds missing entry for %q", token)
		}
	}
}
