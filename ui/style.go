package ui

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Colorize applies the given color to the text using lipgloss.
// color is a 0xRRGGBB integer.
func Colorize(text string, color int) string {
	hexColor := fmt.Sprintf("#%06x", color&0xffffff)
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor))
	return style.Render(text)
}

// NameColor derives a stable, readable color from an instance name.
func NameColor(name string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	sum := h.Sum32()
	// keep every channel in the upper half so names stay legible on dark terminals
	r := 0x80 | int(sum>>16)&0x7f
	g := 0x80 | int(sum>>8)&0x7f
	b := 0x80 | int(sum)&0x7f
	return r<<16 | g<<8 | b
}

// FormatPlaytime renders a playtime as hours and minutes.
func FormatPlaytime(d time.Duration) string {
	if d <= 0 {
		return "never played"
	}
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h == 0 && m == 0:
		return "<1m"
	case h == 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%dh %02dm", h, m)
	}
}

// FormatLastPlayed renders a last-played time relative to now.
func FormatLastPlayed(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return humanize.Time(*t)
}

// FormatBytes renders a byte count for humans.
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
