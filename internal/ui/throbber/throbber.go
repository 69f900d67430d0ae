// Package throbber implements the startup spinner: a pure function of
// elapsed time, so it needs no ticking goroutine of its own — the
// caller just re-renders on whatever cadence it already ticks at.
package throbber

import "time"

// frames is the spinner's glyph sequence; any consistent braille-dot
// cycle works, this one matches the ⌊(millis×10)/N⌋ mod N formula's N=10.
var frames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// Caption is shown alongside the spinner while the connector isn't
// ready yet.
const Caption = "Establishing connection with the database…"

// Frame returns the spinner glyph for elapsed: step = floor((millis *
// 10) / N) mod N, with N = len(frames).
func Frame(elapsed time.Duration) rune {
	n := int64(len(frames))
	millis := elapsed.Milliseconds()
	step := (millis * 10 / n) % n
	if step < 0 {
		step += n
	}
	return frames[step]
}

// Render returns the spinner glyph and caption joined for display.
func Render(elapsed time.Duration) string {
	return string(Frame(elapsed)) + "  " + Caption
}
