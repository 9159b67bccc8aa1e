package views

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pigeonchat/pigeon/internal/store"
)

// deliveryMark renders a message's delivery state as a trailing glyph.
func deliveryMark(state store.DeliveryState) string {
	switch state {
	case store.StatePending:
		return "…"
	case store.StateSent:
		return "✓"
	case store.StateDelivered:
		return "✓✓"
	case store.StateRead:
		return "✓✓"
	default:
		return ""
	}
}

// formatStamp renders an ISO timestamp as clock time for today, or a
// short date otherwise. Unparseable stamps render as-is.
func formatStamp(iso string) string {
	if iso == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	t = t.Local()
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}

// sanitizeForTerminal strips codepoints that break tcell cell-width
// accounting: skin tone modifiers, zero width joiners, and variation
// selectors. Composite emoji degrade to their base glyph.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isProblematicRune(r) {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tone modifiers
		return true
	case r == 0x200D: // zero width joiner
		return true
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		return true
	case r >= 0xE0100 && r <= 0xE01EF: // variation selectors supplement
		return true
	default:
		return false
	}
}
