// internal/driver/escpos/text.go
package escpos

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const replacementByte = '?'

// EncodeText converts UTF-8 text to code page 437. Runes without a
// PC437 glyph and invalid UTF-8 bytes become '?'.
func EncodeText(text string) []byte {
	out := make([]byte, 0, len(text))
	for len(text) > 0 {
		r, size := utf8.DecodeRuneInString(text)
		text = text[size:]

		if r == utf8.RuneError && size == 1 {
			out = append(out, replacementByte)
			continue
		}
		if r < utf8.RuneSelf {
			out = append(out, byte(r))
			continue
		}
		if b, ok := charmap.CodePage437.EncodeRune(r); ok {
			out = append(out, b)
			continue
		}
		out = append(out, replacementByte)
	}
	return out
}

// wrapText greedily wraps text to width runes. The first line starts with
// prefix and continuation lines are indented by len(prefix) spaces.
func wrapText(text, prefix string, width int) []string {
	indent := strings.Repeat(" ", utf8.RuneCountInString(prefix))
	avail := width - utf8.RuneCountInString(prefix)
	if avail < 1 {
		avail = 1
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{strings.TrimRight(prefix, " ")}
	}

	var (
		lines []string
		cur   []rune
	)
	lead := prefix
	flush := func() {
		lines = append(lines, lead+string(cur))
		lead = indent
		cur = cur[:0]
	}

	for _, word := range words {
		w := []rune(word)
		for len(w) > avail {
			// a word longer than the line is split hard
			if len(cur) > 0 {
				flush()
			}
			cur = append(cur, w[:avail]...)
			flush()
			w = w[avail:]
		}

		need := len(w)
		if len(cur) > 0 {
			need++
		}
		if len(cur)+need > avail {
			flush()
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, w...)
	}
	if len(cur) > 0 {
		flush()
	}

	return lines
}
