package cli

import "testing"

func TestStateDisplayKnownStatuses(t *testing.T) {
	tests := []struct {
		status string
		symbol string
	}{
		{"pending", "◯"},
		{"running", "⟳"},
		{"idle", "·"},
		{"completed", "✓"},
		{"failed", "✗"},
		{"shutdown", "⊘"},
	}
	for _, tt := range tests {
		symbol, style := stateDisplay(tt.status)
		if symbol != tt.symbol {
			t.Errorf("stateDisplay(%q) symbol = %q, want %q", tt.status, symbol, tt.symbol)
		}
		if style.Render("x") == "" {
			t.Errorf("stateDisplay(%q) returned a style that renders empty output", tt.status)
		}
	}
}

func TestStateDisplayUnknownStatusFallsBack(t *testing.T) {
	symbol, style := stateDisplay("something-new")
	if symbol != "◯" {
		t.Errorf("stateDisplay(unknown) symbol = %q, want %q", symbol, "◯")
	}
	if style.Render("x") != "x" {
		t.Errorf("stateDisplay(unknown) style should be a plain passthrough, got %q", style.Render("x"))
	}
}
