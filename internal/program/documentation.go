// internal/program/documentation.go
package program

import (
	"fmt"
	"strings"
)

// Category groups commands in the DSL reference
type Category int

const (
	CategoryText Category = iota
	CategoryFormatting
	CategoryLayout
	CategoryBarcodes
	CategorySpecial
)

// Categories lists categories in reference order
var Categories = []Category{
	CategoryText,
	CategoryFormatting,
	CategoryLayout,
	CategoryBarcodes,
	CategorySpecial,
}

// Title returns the section heading of the category
func (c Category) Title() string {
	switch c {
	case CategoryText:
		return "Text Output"
	case CategoryFormatting:
		return "Text Formatting"
	case CategoryLayout:
		return "Layout & Spacing"
	case CategoryBarcodes:
		return "Barcodes & QR Codes"
	case CategorySpecial:
		return "Special Commands"
	default:
		return "Other"
	}
}

// CommandDoc is the reference entry of one signature
type CommandDoc struct {
	Name        string   `json:"name"`
	Syntax      string   `json:"syntax"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Examples    []string `json:"examples"`
}

// Docs returns one entry per signature in table order
func Docs() []CommandDoc {
	docs := make([]CommandDoc, 0, len(signatures))
	for _, sig := range signatures {
		docs = append(docs, CommandDoc{
			Name:        sig.Name,
			Syntax:      sig.Syntax,
			Description: sig.Description,
			Category:    sig.Category.Title(),
			Examples:    append([]string(nil), sig.Examples...),
		})
	}
	return docs
}

const completeExample = `justify center
bold true
size 2,2
writeln "RECEIPT"
reset_size
bold false
feed 1
justify left
writeln "Item 1          $10.00"
writeln "Item 2          $15.00"
underline single
writeln "Total:          $25.00"
underline none
feed 2
justify center
qr_code "https://example.com/receipt/12345"
feed 2
cut`

// CompleteExample returns the sample receipt shown at the end of the reference
func CompleteExample() string {
	return completeExample
}

// MarkdownReference renders the DSL reference as markdown
func MarkdownReference() string {
	var b strings.Builder

	b.WriteString("# ESC/POS DSL Reference\n\n")
	b.WriteString("This document describes the Domain Specific Language (DSL) used to send printing commands to ESC/POS-compatible printers.\n\n")
	b.WriteString("## Overview\n\n")
	b.WriteString("The DSL consists of commands that are executed sequentially. Each command must be on its own line.\n")
	b.WriteString("Empty lines are ignored. String arguments must be enclosed in double quotes; use `\\\"` for a literal quote and `\\\\` for a backslash.\n")
	b.WriteString("Multiple arguments are separated by commas. A program that fails to parse on any line is rejected as a whole.\n\n")

	for _, cat := range Categories {
		fmt.Fprintf(&b, "## %s\n\n", cat.Title())

		for _, sig := range signatures {
			if sig.Category != cat {
				continue
			}
			fmt.Fprintf(&b, "### `%s`\n\n", sig.Name)
			fmt.Fprintf(&b, "**Syntax:** `%s`\n\n", sig.Syntax)
			fmt.Fprintf(&b, "%s\n\n", sig.Description)

			if len(sig.Examples) > 0 {
				b.WriteString("**Examples:**\n\n```\n")
				for _, ex := range sig.Examples {
					b.WriteString(ex)
					b.WriteByte('\n')
				}
				b.WriteString("```\n\n")
			}
		}
	}

	b.WriteString("## Complete Example\n\n```\n")
	b.WriteString(completeExample)
	b.WriteString("\n```\n")

	return b.String()
}

// TextReference renders a plain-text command reference
func TextReference() string {
	var b strings.Builder

	b.WriteString("ESC/POS DSL COMMAND REFERENCE\n")
	b.WriteString("==============================\n\n")

	for _, sig := range signatures {
		fmt.Fprintf(&b, "%s\n", strings.ToUpper(sig.Name))
		fmt.Fprintf(&b, "  Syntax: %s\n", sig.Syntax)
		fmt.Fprintf(&b, "  %s\n", sig.Description)
		if len(sig.Examples) > 0 {
			b.WriteString("  Examples:\n")
			for _, ex := range sig.Examples {
				fmt.Fprintf(&b, "    %s\n", ex)
			}
		}
		b.WriteByte('\n')
	}

	return b.String()
}
