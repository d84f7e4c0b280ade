package types

// Palette is the fixed rotation of display colors assigned to agents in
// roster order. Names match the ANSI/lipgloss color vocabulary used by the
// CLI and reporter layers.
var Palette = []string{
	"cyan", "magenta", "yellow", "green", "blue", "red", "orange", "purple",
}

// ColorFor returns the palette entry for the i-th agent, wrapping around
// once the palette is exhausted.
func ColorFor(i int) string {
	if len(Palette) == 0 {
		return ""
	}
	return Palette[i%len(Palette)]
}
