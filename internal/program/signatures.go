// internal/program/signatures.go
package program

import (
	"strings"
)

// ArgType describes how a raw argument token is interpreted
type ArgType int

const (
	ArgString ArgType = iota // double-quoted text
	ArgBool                  // true|false
	ArgUint                  // decimal integer within [Min, Max]
	ArgEnum                  // one of Values, case-insensitive
	ArgDigits                // decimal digits, length within [Min, Max]
)

// ArgSpec is one positional argument of a signature
type ArgSpec struct {
	Name   string
	Type   ArgType
	Values []string
	Min    int
	Max    int
}

// value holds one converted argument
type value struct {
	text string
	num  int
	flag bool
}

// Signature describes one accepted form of a command.
// A command keyword may have several signatures that differ in arity.
type Signature struct {
	Name        string
	Syntax      string
	Description string
	Category    Category
	Examples    []string
	Args        []ArgSpec

	build func(args []value) Command
}

var (
	boolArg = func(name string) ArgSpec { return ArgSpec{Name: name, Type: ArgBool} }
	textArg = func(name string) ArgSpec { return ArgSpec{Name: name, Type: ArgString} }
)

// SignatureVersion is bumped whenever a signature is added or changed
const SignatureVersion = 2

// signatures is the fixed command table. Entries are append-only.
var signatures = []Signature{
	{
		Name:        "write",
		Syntax:      `write "<text>"`,
		Description: "Outputs text to the printer without a line break at the end",
		Category:    CategoryText,
		Examples:    []string{`write "Hello World"`, `write "Price: $19.99"`},
		Args:        []ArgSpec{textArg("text")},
		build:       func(a []value) Command { return Write{Text: a[0].text} },
	},
	{
		Name:        "writeln",
		Syntax:      `writeln "<text>"`,
		Description: "Outputs text to the printer followed by a line break",
		Category:    CategoryText,
		Examples:    []string{`writeln "Hello World"`, `writeln "Order #12345"`},
		Args:        []ArgSpec{textArg("text")},
		build:       func(a []value) Command { return WriteLine{Text: a[0].text} },
	},
	{
		Name:        "bold",
		Syntax:      "bold <true|false>",
		Description: "Enables or disables bold text",
		Category:    CategoryFormatting,
		Examples:    []string{"bold true", "bold false"},
		Args:        []ArgSpec{boolArg("enabled")},
		build:       func(a []value) Command { return Bold{On: a[0].flag} },
	},
	{
		Name:        "underline",
		Syntax:      "underline <none|single|double>",
		Description: "Sets the underline mode for text",
		Category:    CategoryFormatting,
		Examples:    []string{"underline none", "underline single", "underline double"},
		Args:        []ArgSpec{{Name: "mode", Type: ArgEnum, Values: []string{"none", "single", "double"}}},
		build:       func(a []value) Command { return Underline{Mode: UnderlineMode(a[0].num)} },
	},
	{
		Name:        "double_strike",
		Syntax:      "double_strike <true|false>",
		Description: "Enables or disables double-strike for text",
		Category:    CategoryFormatting,
		Examples:    []string{"double_strike true", "double_strike false"},
		Args:        []ArgSpec{boolArg("enabled")},
		build:       func(a []value) Command { return DoubleStrike{On: a[0].flag} },
	},
	{
		Name:        "font",
		Syntax:      "font <a|b|c>",
		Description: "Sets the font type. Available fonts depend on printer model and might fallback to another font if unavailable.",
		Category:    CategoryFormatting,
		Examples:    []string{"font a", "font b", "font c"},
		Args:        []ArgSpec{{Name: "font", Type: ArgEnum, Values: []string{"a", "b", "c"}}},
		build:       func(a []value) Command { return Font{Font: FontType(a[0].num)} },
	},
	{
		Name:        "flip",
		Syntax:      "flip <true|false>",
		Description: "Flips text 180 degrees",
		Category:    CategoryFormatting,
		Examples:    []string{"flip true", "flip false"},
		Args:        []ArgSpec{boolArg("enabled")},
		build:       func(a []value) Command { return Flip{On: a[0].flag} },
	},
	{
		Name:        "justify",
		Syntax:      "justify <left|center|right>",
		Description: "Sets text justification/alignment",
		Category:    CategoryLayout,
		Examples:    []string{"justify left", "justify center", "justify right"},
		Args:        []ArgSpec{{Name: "mode", Type: ArgEnum, Values: []string{"left", "center", "right"}}},
		build:       func(a []value) Command { return Justify{Mode: JustifyMode(a[0].num)} },
	},
	{
		Name:        "reverse",
		Syntax:      "reverse <true|false>",
		Description: "Enables or disables inverted text colors (white text on black background)",
		Category:    CategoryFormatting,
		Examples:    []string{"reverse true", "reverse false"},
		Args:        []ArgSpec{boolArg("enabled")},
		build:       func(a []value) Command { return Reverse{On: a[0].flag} },
	},
	{
		Name:        "feed",
		Syntax:      "feed <lines>",
		Description: "Feeds paper forward by the specified number of lines",
		Category:    CategoryLayout,
		Examples:    []string{"feed 1", "feed 3", "feed 10"},
		Args:        []ArgSpec{{Name: "lines", Type: ArgUint, Min: 0, Max: 255}},
		build:       func(a []value) Command { return Feed{Lines: a[0].num} },
	},
	{
		Name:        "feed",
		Syntax:      "feed",
		Description: "Feeds paper forward by 1 line (default)",
		Category:    CategoryLayout,
		Examples:    []string{"feed"},
		build:       func([]value) Command { return Feed{Lines: 1} },
	},
	{
		Name:        "ean13",
		Syntax:      "ean13 <12-13 digits>",
		Description: "Prints an EAN-13 barcode (12 or 13 digits)",
		Category:    CategoryBarcodes,
		Examples:    []string{"ean13 1234567890123", "ean13 123456789012"},
		Args:        []ArgSpec{{Name: "digits", Type: ArgDigits, Min: 12, Max: 13}},
		build:       func(a []value) Command { return EAN13{Digits: a[0].text} },
	},
	{
		Name:        "ean8",
		Syntax:      "ean8 <7-8 digits>",
		Description: "Prints an EAN-8 barcode (7 or 8 digits)",
		Category:    CategoryBarcodes,
		Examples:    []string{"ean8 12345678", "ean8 1234567"},
		Args:        []ArgSpec{{Name: "digits", Type: ArgDigits, Min: 7, Max: 8}},
		build:       func(a []value) Command { return EAN8{Digits: a[0].text} },
	},
	{
		Name:        "qr_code",
		Syntax:      `qr_code "<data>"`,
		Description: "Prints a QR code with the specified data",
		Category:    CategoryBarcodes,
		Examples:    []string{`qr_code "https://example.com"`, `qr_code "Hello World"`},
		Args:        []ArgSpec{textArg("data")},
		build:       func(a []value) Command { return QRCode{Payload: a[0].text} },
	},
	{
		Name:        "size",
		Syntax:      "size <width>,<height>",
		Description: "Sets character size multiplier (1-8 for both width and height)",
		Category:    CategoryFormatting,
		Examples:    []string{"size 1,1", "size 2,2", "size 3,1"},
		Args: []ArgSpec{
			{Name: "width", Type: ArgUint, Min: MinCharSize, Max: MaxCharSize},
			{Name: "height", Type: ArgUint, Min: MinCharSize, Max: MaxCharSize},
		},
		build: func(a []value) Command { return Size{Width: a[0].num, Height: a[1].num} },
	},
	{
		Name:        "reset_size",
		Syntax:      "reset_size",
		Description: "Resets text size to default (1,1)",
		Category:    CategoryFormatting,
		Examples:    []string{"reset_size"},
		build:       func([]value) Command { return ResetSize{} },
	},
	{
		Name:        "cut",
		Syntax:      "cut",
		Description: "Cuts the paper (if printer has auto-cutter)",
		Category:    CategorySpecial,
		Examples:    []string{"cut"},
		build:       func([]value) Command { return Cut{} },
	},
	{
		Name:        "todo",
		Syntax:      `todo "<task>"`,
		Description: "Adds a line rendered as a todo item",
		Category:    CategorySpecial,
		Examples:    []string{`todo "Buy groceries"`, `todo "Call dentist"`},
		Args:        []ArgSpec{textArg("task")},
		build:       func(a []value) Command { return Todo{Text: a[0].text} },
	},
}

// byName indexes signatures by keyword, preserving table order for overloads
var byName = func() map[string][]*Signature {
	index := make(map[string][]*Signature)
	for i := range signatures {
		sig := &signatures[i]
		index[sig.Name] = append(index[sig.Name], sig)
	}
	return index
}()

// Signatures returns a copy of the command table
func Signatures() []Signature {
	out := make([]Signature, len(signatures))
	copy(out, signatures)
	return out
}

// Lookup returns every signature registered for a keyword
func Lookup(name string) []Signature {
	sigs := byName[name]
	out := make([]Signature, 0, len(sigs))
	for _, s := range sigs {
		out = append(out, *s)
	}
	return out
}

// expectedSyntax joins all overloads of a command for error messages
func expectedSyntax(sigs []*Signature) string {
	forms := make([]string, 0, len(sigs))
	for _, s := range sigs {
		forms = append(forms, s.Syntax)
	}
	return strings.Join(forms, " | ")
}
