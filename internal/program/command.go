// internal/program/command.go
package program

// Program is an ordered list of commands. Order matters because encoding is stateful.
type Program []Command

// Command is one parsed DSL instruction
type Command interface {
	// Name returns the DSL keyword of the command
	Name() string
	command()
}

// JustifyMode represents text alignment
type JustifyMode int

const (
	JustifyLeft JustifyMode = iota
	JustifyCenter
	JustifyRight
)

func (m JustifyMode) String() string {
	switch m {
	case JustifyCenter:
		return "center"
	case JustifyRight:
		return "right"
	default:
		return "left"
	}
}

// UnderlineMode represents the underline thickness
type UnderlineMode int

const (
	UnderlineNone UnderlineMode = iota
	UnderlineSingle
	UnderlineDouble
)

func (m UnderlineMode) String() string {
	switch m {
	case UnderlineSingle:
		return "single"
	case UnderlineDouble:
		return "double"
	default:
		return "none"
	}
}

// FontType selects one of the printer's built-in fonts
type FontType int

const (
	FontA FontType = iota
	FontB
	FontC
)

func (f FontType) String() string {
	switch f {
	case FontB:
		return "b"
	case FontC:
		return "c"
	default:
		return "a"
	}
}

// Size limits for character width and height multipliers
const (
	MinCharSize = 1
	MaxCharSize = 8
)

type (
	// Justify sets text alignment
	Justify struct{ Mode JustifyMode }

	// Bold toggles emphasized printing
	Bold struct{ On bool }

	// Size sets the character width and height multipliers
	Size struct{ Width, Height int }

	// ResetSize restores width and height to 1,1
	ResetSize struct{}

	// Underline sets the underline mode
	Underline struct{ Mode UnderlineMode }

	// DoubleStrike toggles double-strike printing
	DoubleStrike struct{ On bool }

	// Font selects font a, b or c
	Font struct{ Font FontType }

	// Flip toggles upside-down printing
	Flip struct{ On bool }

	// Reverse toggles white-on-black printing
	Reverse struct{ On bool }

	// Write outputs text without a line terminator
	Write struct{ Text string }

	// WriteLine outputs text followed by a line terminator
	WriteLine struct{ Text string }

	// Feed advances the paper by Lines lines
	Feed struct{ Lines int }

	// QRCode prints a QR symbol holding Payload
	QRCode struct{ Payload string }

	// EAN13 prints an EAN-13 barcode from 12 or 13 digits
	EAN13 struct{ Digits string }

	// EAN8 prints an EAN-8 barcode from 7 or 8 digits
	EAN8 struct{ Digits string }

	// Todo prints a checklist item wrapped to the paper width
	Todo struct{ Text string }

	// Cut cuts the paper
	Cut struct{}
)

func (Justify) Name() string      { return "justify" }
func (Bold) Name() string         { return "bold" }
func (Size) Name() string         { return "size" }
func (ResetSize) Name() string    { return "reset_size" }
func (Underline) Name() string    { return "underline" }
func (DoubleStrike) Name() string { return "double_strike" }
func (Font) Name() string         { return "font" }
func (Flip) Name() string         { return "flip" }
func (Reverse) Name() string      { return "reverse" }
func (Write) Name() string        { return "write" }
func (WriteLine) Name() string    { return "writeln" }
func (Feed) Name() string         { return "feed" }
func (QRCode) Name() string       { return "qr_code" }
func (EAN13) Name() string        { return "ean13" }
func (EAN8) Name() string         { return "ean8" }
func (Todo) Name() string         { return "todo" }
func (Cut) Name() string          { return "cut" }

func (Justify) command()      {}
func (Bold) command()         {}
func (Size) command()         {}
func (ResetSize) command()    {}
func (Underline) command()    {}
func (DoubleStrike) command() {}
func (Font) command()         {}
func (Flip) command()         {}
func (Reverse) command()      {}
func (Write) command()        {}
func (WriteLine) command()    {}
func (Feed) command()         {}
func (QRCode) command()       {}
func (EAN13) command()        {}
func (EAN8) command()         {}
func (Todo) command()         {}
func (Cut) command()          {}
