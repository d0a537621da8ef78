package program

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ValidCommands(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Command
	}{
		{"justify center", "justify center", Justify{Mode: JustifyCenter}},
		{"justify case insensitive value", "justify RIGHT", Justify{Mode: JustifyRight}},
		{"bold true", "bold true", Bold{On: true}},
		{"bold False", "bold False", Bold{On: false}},
		{"size", "size 2,3", Size{Width: 2, Height: 3}},
		{"size with spaces", "size 2 , 3", Size{Width: 2, Height: 3}},
		{"reset_size", "reset_size", ResetSize{}},
		{"underline double", "underline double", Underline{Mode: UnderlineDouble}},
		{"double_strike", "double_strike true", DoubleStrike{On: true}},
		{"font b", "font b", Font{Font: FontB}},
		{"flip", "flip true", Flip{On: true}},
		{"reverse", "reverse false", Reverse{On: false}},
		{"write", `write "Hello"`, Write{Text: "Hello"}},
		{"writeln", `writeln "HI"`, WriteLine{Text: "HI"}},
		{"writeln with comma", `writeln "a, b"`, WriteLine{Text: "a, b"}},
		{"writeln escaped quote", `writeln "say \"hi\""`, WriteLine{Text: `say "hi"`}},
		{"writeln escaped backslash", `writeln "C:\\temp"`, WriteLine{Text: `C:\temp`}},
		{"writeln empty", `writeln ""`, WriteLine{Text: ""}},
		{"writeln keeps inner spaces", `writeln "  padded  "`, WriteLine{Text: "  padded  "}},
		{"feed", "feed 3", Feed{Lines: 3}},
		{"feed zero", "feed 0", Feed{Lines: 0}},
		{"feed default", "feed", Feed{Lines: 1}},
		{"qr_code", `qr_code "https://example.com"`, QRCode{Payload: "https://example.com"}},
		{"ean13", "ean13 123456789012", EAN13{Digits: "123456789012"}},
		{"ean8", "ean8 12345678", EAN8{Digits: "12345678"}},
		{"todo", `todo "Buy milk"`, Todo{Text: "Buy milk"}},
		{"cut", "cut", Cut{}},
		{"surrounding whitespace", "   cut\t ", Cut{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := Parse(tt.input)
			require.NoError(t, err)
			require.Len(t, prog, 1)
			assert.Equal(t, tt.want, prog[0])
		})
	}
}

func TestParse_SkipsBlankLinesAndCRLF(t *testing.T) {
	prog, err := Parse("justify center\r\n\r\n   \nbold true\r\nwriteln \"HI\"\r\n\ncut")
	require.NoError(t, err)

	assert.Equal(t, Program{
		Justify{Mode: JustifyCenter},
		Bold{On: true},
		WriteLine{Text: "HI"},
		Cut{},
	}, prog)
}

func TestParse_Empty(t *testing.T) {
	prog, err := Parse("\n\n  \n")
	require.NoError(t, err)
	assert.Empty(t, prog)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sentinel error
		line     int
		expected string
	}{
		{"unknown command", "justify left\nbeep", ErrUnknownCommand, 2, ""},
		{"command names are case sensitive", "Bold true", ErrUnknownCommand, 1, ""},
		{"unterminated quote", `writeln "oops`, ErrSyntax, 1, `writeln "<text>"`},
		{"text after closing quote", `writeln "a" b`, ErrSyntax, 1, `writeln "<text>"`},
		{"unknown escape", `writeln "a\nb"`, ErrSyntax, 1, `writeln "<text>"`},
		{"trailing comma", "size 2,", ErrSyntax, 1, "size <width>,<height>"},
		{"missing argument", "bold", ErrArgumentMismatch, 1, "bold <true|false>"},
		{"too many arguments", "size 1,2,3", ErrArgumentMismatch, 1, "size <width>,<height>"},
		{"bad bool", "bold yes", ErrArgumentMismatch, 1, "bold <true|false>"},
		{"size out of range", "size 9,1", ErrArgumentMismatch, 1, "size <width>,<height>"},
		{"size zero", "size 0,1", ErrArgumentMismatch, 1, "size <width>,<height>"},
		{"unquoted text", "writeln hello", ErrArgumentMismatch, 1, `writeln "<text>"`},
		{"quoted scalar", `feed "2"`, ErrArgumentMismatch, 1, "feed <lines> | feed"},
		{"negative feed", "feed -1", ErrArgumentMismatch, 1, "feed <lines> | feed"},
		{"bad enum", "underline triple", ErrArgumentMismatch, 1, "underline <none|single|double>"},
		{"ean13 too short", "ean13 12345", ErrArgumentMismatch, 1, "ean13 <12-13 digits>"},
		{"ean8 letters", "ean8 1234567a", ErrArgumentMismatch, 1, "ean8 <7-8 digits>"},
		{"cut with argument", "cut now", ErrArgumentMismatch, 1, "cut"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := Parse(tt.input)
			require.Error(t, err)
			assert.Nil(t, prog)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.line, perr.Line)
			assert.Equal(t, tt.expected, perr.Expected)
			assert.NotEmpty(t, perr.Source)
		})
	}
}

func TestParse_AllOrNothing(t *testing.T) {
	prog, err := Parse("justify center\nbold true\nwriteln \"ok\"\nsize 12,1\ncut")
	require.Error(t, err)
	assert.Nil(t, prog)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 4, perr.Line)
	assert.Equal(t, "size 12,1", perr.Source)
}

func TestParseError_Message(t *testing.T) {
	_, err := Parse("bold maybe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
	assert.Contains(t, err.Error(), "bold <true|false>")
	assert.Contains(t, err.Error(), "bold maybe")
}

func TestParseLine(t *testing.T) {
	cmd, err := ParseLine("  qr_code \"x\"  ")
	require.NoError(t, err)
	assert.Equal(t, QRCode{Payload: "x"}, cmd)

	_, err = ParseLine("nope")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
