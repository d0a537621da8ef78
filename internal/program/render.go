// internal/program/render.go
package program

import (
	"fmt"
	"strconv"
	"strings"
)

// Render serializes a program back to canonical DSL text, one command per line.
// Parse(Render(p)) yields p for every program Parse can produce.
func Render(p Program) string {
	var b strings.Builder
	for _, cmd := range p {
		b.WriteString(RenderCommand(cmd))
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderCommand returns the canonical line for a single command
func RenderCommand(cmd Command) string {
	switch c := cmd.(type) {
	case Justify:
		return "justify " + c.Mode.String()
	case Bold:
		return "bold " + strconv.FormatBool(c.On)
	case Size:
		return fmt.Sprintf("size %d,%d", c.Width, c.Height)
	case ResetSize:
		return "reset_size"
	case Underline:
		return "underline " + c.Mode.String()
	case DoubleStrike:
		return "double_strike " + strconv.FormatBool(c.On)
	case Font:
		return "font " + c.Font.String()
	case Flip:
		return "flip " + strconv.FormatBool(c.On)
	case Reverse:
		return "reverse " + strconv.FormatBool(c.On)
	case Write:
		return "write " + Quote(c.Text)
	case WriteLine:
		return "writeln " + Quote(c.Text)
	case Feed:
		return "feed " + strconv.Itoa(c.Lines)
	case QRCode:
		return "qr_code " + Quote(c.Payload)
	case EAN13:
		return "ean13 " + c.Digits
	case EAN8:
		return "ean8 " + c.Digits
	case Todo:
		return "todo " + Quote(c.Text)
	case Cut:
		return "cut"
	default:
		return cmd.Name()
	}
}

// Quote wraps text in double quotes, escaping quotes and backslashes
func Quote(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	b.WriteByte('"')
	for i := 0; i < len(text); i++ {
		if text[i] == '"' || text[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(text[i])
	}
	b.WriteByte('"')
	return b.String()
}
