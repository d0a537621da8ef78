// internal/driver/escpos/encoder.go
package escpos

import (
	"bytes"
	"fmt"

	"escpos-bridge/internal/program"
)

const (
	defaultColumns      = 42
	defaultQRModuleSize = 6
	todoPrefix          = "- [ ] "
)

// Encoder turns a Program into the ESC/POS byte stream. It holds only
// static paper parameters and is safe for concurrent use.
type Encoder struct {
	columns      int
	qrModuleSize byte
}

// Option configures an Encoder
type Option func(*Encoder)

// WithColumns sets the number of font A characters per line used for wrapping
func WithColumns(columns int) Option {
	return func(e *Encoder) {
		if columns > 0 {
			e.columns = columns
		}
	}
}

// WithQRModuleSize sets the QR module size in dots (1..16)
func WithQRModuleSize(dots int) Option {
	return func(e *Encoder) {
		if dots >= 1 && dots <= 16 {
			e.qrModuleSize = byte(dots)
		}
	}
}

// NewEncoder creates a new encoder
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{
		columns:      defaultColumns,
		qrModuleSize: defaultQRModuleSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Columns returns the configured line width
func (e *Encoder) Columns() int {
	return e.columns
}

// Encode returns the byte stream of the program body
func (e *Encoder) Encode(p program.Program) ([]byte, error) {
	out, _, err := e.Fold(p)
	return out, err
}

// EncodeJob returns Preamble followed by the program body
func (e *Encoder) EncodeJob(p program.Program) ([]byte, error) {
	body, err := e.Encode(p)
	if err != nil {
		return nil, err
	}
	return append(Preamble(), body...), nil
}

// Fold encodes the program starting from DefaultFormatState and returns the
// bytes together with the final state. Nothing is returned on error.
func (e *Encoder) Fold(p program.Program) ([]byte, FormatState, error) {
	var buf bytes.Buffer
	state := DefaultFormatState()

	for i, cmd := range p {
		if err := e.encodeCommand(&buf, state, cmd); err != nil {
			err.Index = i
			err.Command = cmd.Name()
			return nil, DefaultFormatState(), err
		}
		state = state.Apply(cmd)
	}

	return buf.Bytes(), state, nil
}

// encodeCommand writes the sequence for one command given the state before it
func (e *Encoder) encodeCommand(buf *bytes.Buffer, state FormatState, cmd program.Command) *EncodeError {
	switch c := cmd.(type) {
	case program.Justify:
		if c.Mode < program.JustifyLeft || c.Mode > program.JustifyRight {
			return outOfRange("justify mode %d", c.Mode)
		}
		buf.Write(withArg(ESC_POS_COMMANDS.TEXT_ALIGN_PREFIX, byte(c.Mode)))

	case program.Bold:
		if c.On {
			buf.Write(ESC_POS_COMMANDS.TEXT_BOLD_ON)
		} else {
			buf.Write(ESC_POS_COMMANDS.TEXT_BOLD_OFF)
		}

	case program.Underline:
		if c.Mode < program.UnderlineNone || c.Mode > program.UnderlineDouble {
			return outOfRange("underline mode %d", c.Mode)
		}
		buf.Write(withArg(ESC_POS_COMMANDS.TEXT_UNDERLINE_PREFIX, byte(c.Mode)))

	case program.DoubleStrike:
		buf.Write(withArg(ESC_POS_COMMANDS.TEXT_DOUBLE_STRIKE, boolByte(c.On)))

	case program.Font:
		if c.Font < program.FontA || c.Font > program.FontC {
			return outOfRange("font %d", c.Font)
		}
		buf.Write(withArg(ESC_POS_COMMANDS.TEXT_FONT, byte(c.Font)))

	case program.Flip:
		buf.Write(withArg(ESC_POS_COMMANDS.TEXT_UPSIDE_DOWN, boolByte(c.On)))

	case program.Reverse:
		buf.Write(withArg(ESC_POS_COMMANDS.TEXT_REVERSE, boolByte(c.On)))

	case program.Size:
		if !validSize(c.Width) || !validSize(c.Height) {
			return outOfRange("size %d,%d not within %d..%d", c.Width, c.Height, program.MinCharSize, program.MaxCharSize)
		}
		buf.Write(withArg(ESC_POS_COMMANDS.TEXT_SIZE, sizeByte(c.Width, c.Height)))

	case program.ResetSize:
		buf.Write(ESC_POS_COMMANDS.TEXT_SIZE_NORMAL)

	case program.Write:
		buf.Write(EncodeText(c.Text))

	case program.WriteLine:
		buf.Write(EncodeText(c.Text))
		buf.Write(ESC_POS_COMMANDS.LINE_FEED)

	case program.Feed:
		if c.Lines < 0 {
			return outOfRange("feed %d lines", c.Lines)
		}
		buf.Write(bytes.Repeat(ESC_POS_COMMANDS.LINE_FEED, c.Lines))

	case program.QRCode:
		return e.encodeQR(buf, c.Payload)

	case program.EAN13:
		return encodeEAN(buf, ESC_POS_COMMANDS.BARCODE_EAN13, c.Digits, 12, 13)

	case program.EAN8:
		return encodeEAN(buf, ESC_POS_COMMANDS.BARCODE_EAN8, c.Digits, 7, 8)

	case program.Todo:
		buf.Write(withArg(ESC_POS_COMMANDS.TEXT_ALIGN_PREFIX, byte(program.JustifyLeft)))
		width := e.columns / state.Width
		for _, line := range wrapText(c.Text, todoPrefix, width) {
			buf.Write(EncodeText(line))
			buf.Write(ESC_POS_COMMANDS.LINE_FEED)
		}

	case program.Cut:
		buf.Write(ESC_POS_COMMANDS.CUT_FULL)

	default:
		return &EncodeError{Kind: KindOutOfRange, Detail: fmt.Sprintf("unsupported command %T", cmd)}
	}

	return nil
}

// encodeQR stores the payload in the symbol buffer and prints it
func (e *Encoder) encodeQR(buf *bytes.Buffer, payload string) *EncodeError {
	data := []byte(payload)
	if len(data) == 0 {
		return outOfRange("empty QR payload")
	}
	if len(data) > MaxQRPayload {
		return &EncodeError{
			Kind:   KindPayloadTooLarge,
			Detail: fmt.Sprintf("%d bytes exceeds %d", len(data), MaxQRPayload),
		}
	}

	n := len(data) + len(ESC_POS_COMMANDS.QR_CODE_STORE_FUNCTION)

	buf.Write(ESC_POS_COMMANDS.QR_CODE_MODEL_2)
	buf.Write(withArg(ESC_POS_COMMANDS.QR_CODE_MODULE_SIZE, e.qrModuleSize))
	buf.Write(ESC_POS_COMMANDS.QR_CODE_ERROR_LEVEL_M)
	buf.Write(ESC_POS_COMMANDS.QR_CODE_START)
	buf.WriteByte(byte(n & 0xFF))
	buf.WriteByte(byte(n >> 8))
	buf.Write(ESC_POS_COMMANDS.QR_CODE_STORE_FUNCTION)
	buf.Write(data)
	buf.Write(ESC_POS_COMMANDS.QR_CODE_PRINT)

	return nil
}

func encodeEAN(buf *bytes.Buffer, prefix []byte, digits string, min, max int) *EncodeError {
	if len(digits) < min || len(digits) > max {
		return outOfRange("%d digits, want %d or %d", len(digits), min, max)
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return outOfRange("non-digit %q", digits[i])
		}
	}

	buf.Write(ESC_POS_COMMANDS.BARCODE_HRI_BELOW)
	buf.Write(prefix)
	buf.WriteByte(byte(len(digits)))
	buf.WriteString(digits)

	return nil
}

func validSize(n int) bool {
	return n >= program.MinCharSize && n <= program.MaxCharSize
}

func outOfRange(format string, args ...interface{}) *EncodeError {
	return &EncodeError{Kind: KindOutOfRange, Detail: fmt.Sprintf(format, args...)}
}
