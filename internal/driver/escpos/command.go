// internal/driver/escpos/command.go
package escpos

// ESC_POS_COMMANDS contains the fixed ESC/POS sequences used by the encoder
var ESC_POS_COMMANDS = struct {
	// Basic commands
	INITIALIZE     []byte
	SMOOTHING_OFF  []byte
	GET_MODEL_NAME []byte

	// Text formatting
	TEXT_BOLD_ON           []byte
	TEXT_BOLD_OFF          []byte
	TEXT_UNDERLINE_PREFIX  []byte // + mode byte
	TEXT_DOUBLE_STRIKE     []byte // + on/off byte
	TEXT_FONT              []byte // + font byte
	TEXT_UPSIDE_DOWN       []byte // + on/off byte
	TEXT_REVERSE           []byte // + on/off byte
	TEXT_SIZE              []byte // + size byte
	TEXT_SIZE_NORMAL       []byte
	TEXT_ALIGN_PREFIX      []byte // + mode byte
	SELECT_CHARSET_PC437   []byte
	LINE_FEED              []byte
	CUT_FULL               []byte
	BARCODE_HRI_BELOW      []byte
	BARCODE_EAN13          []byte // + length + digits
	BARCODE_EAN8           []byte // + length + digits
	QR_CODE_START          []byte // GS ( k, followed by pL pH cn fn ...
	QR_CODE_MODEL_2        []byte
	QR_CODE_MODULE_SIZE    []byte // + size byte
	QR_CODE_ERROR_LEVEL_M  []byte
	QR_CODE_STORE_FUNCTION []byte // cn fn m after pL pH
	QR_CODE_PRINT          []byte
}{
	// Basic commands
	INITIALIZE:     []byte{0x1B, 0x40},       // ESC @
	SMOOTHING_OFF:  []byte{0x1D, 0x62, 0x00}, // GS b 0
	GET_MODEL_NAME: []byte{0x1D, 0x49, 0x43}, // GS I 67

	// Text formatting
	TEXT_BOLD_ON:          []byte{0x1B, 0x45, 0x01}, // ESC E 1
	TEXT_BOLD_OFF:         []byte{0x1B, 0x45, 0x00}, // ESC E 0
	TEXT_UNDERLINE_PREFIX: []byte{0x1B, 0x2D},       // ESC - n
	TEXT_DOUBLE_STRIKE:    []byte{0x1B, 0x47},       // ESC G n
	TEXT_FONT:             []byte{0x1B, 0x4D},       // ESC M n
	TEXT_UPSIDE_DOWN:      []byte{0x1B, 0x7B},       // ESC { n
	TEXT_REVERSE:          []byte{0x1D, 0x42},       // GS B n
	TEXT_SIZE:             []byte{0x1D, 0x21},       // GS ! n
	TEXT_SIZE_NORMAL:      []byte{0x1D, 0x21, 0x00}, // GS ! 0
	TEXT_ALIGN_PREFIX:     []byte{0x1B, 0x61},       // ESC a n
	SELECT_CHARSET_PC437:  []byte{0x1B, 0x74, 0x00}, // ESC t 0
	LINE_FEED:             []byte{0x0A},             // LF
	CUT_FULL:              []byte{0x1D, 0x56, 0x00}, // GS V 0

	// Barcodes
	BARCODE_HRI_BELOW: []byte{0x1D, 0x48, 0x02}, // GS H 2
	BARCODE_EAN13:     []byte{0x1D, 0x6B, 0x43}, // GS k 67
	BARCODE_EAN8:      []byte{0x1D, 0x6B, 0x44}, // GS k 68

	// QR code, GS ( k functions 165, 167, 169, 180 and 181
	QR_CODE_START:          []byte{0x1D, 0x28, 0x6B},
	QR_CODE_MODEL_2:        []byte{0x1D, 0x28, 0x6B, 0x04, 0x00, 0x31, 0x41, 0x32, 0x00},
	QR_CODE_MODULE_SIZE:    []byte{0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x43},
	QR_CODE_ERROR_LEVEL_M:  []byte{0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x45, 0x31},
	QR_CODE_STORE_FUNCTION: []byte{0x31, 0x50, 0x30},
	QR_CODE_PRINT:          []byte{0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x51, 0x30},
}

// MaxQRPayload is the byte-mode capacity of a version 40 symbol at level M
const MaxQRPayload = 2331

// Preamble returns the sequence sent before every job: initialize,
// select PC437 and disable smoothing
func Preamble() []byte {
	out := make([]byte, 0, 8)
	out = append(out, ESC_POS_COMMANDS.INITIALIZE...)
	out = append(out, ESC_POS_COMMANDS.SELECT_CHARSET_PC437...)
	out = append(out, ESC_POS_COMMANDS.SMOOTHING_OFF...)
	return out
}

func withArg(prefix []byte, n byte) []byte {
	out := make([]byte, 0, len(prefix)+1)
	out = append(out, prefix...)
	return append(out, n)
}

func boolByte(on bool) byte {
	if on {
		return 1
	}
	return 0
}

// sizeByte packs width and height multipliers (1..8) for GS !
func sizeByte(width, height int) byte {
	return byte((width-1)<<4 | (height - 1))
}
