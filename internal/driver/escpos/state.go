// internal/driver/escpos/state.go
package escpos

import (
	"escpos-bridge/internal/program"
)

// FormatState is the formatting context threaded through one encoding pass
type FormatState struct {
	Justify      program.JustifyMode   `json:"justify"`
	Bold         bool                  `json:"bold"`
	Underline    program.UnderlineMode `json:"underline"`
	Width        int                   `json:"width"`
	Height       int                   `json:"height"`
	DoubleStrike bool                  `json:"double_strike"`
	Font         program.FontType      `json:"font"`
	Flip         bool                  `json:"flip"`
	Reverse      bool                  `json:"reverse"`
}

// DefaultFormatState returns the state every program starts from
func DefaultFormatState() FormatState {
	return FormatState{
		Justify:   program.JustifyLeft,
		Underline: program.UnderlineNone,
		Width:     1,
		Height:    1,
		Font:      program.FontA,
	}
}

// Apply returns the state after cmd. Commands that do not touch formatting
// leave the state unchanged.
func (s FormatState) Apply(cmd program.Command) FormatState {
	switch c := cmd.(type) {
	case program.Justify:
		s.Justify = c.Mode
	case program.Bold:
		s.Bold = c.On
	case program.Underline:
		s.Underline = c.Mode
	case program.Size:
		s.Width, s.Height = c.Width, c.Height
	case program.ResetSize:
		s.Width, s.Height = 1, 1
	case program.DoubleStrike:
		s.DoubleStrike = c.On
	case program.Font:
		s.Font = c.Font
	case program.Flip:
		s.Flip = c.On
	case program.Reverse:
		s.Reverse = c.On
	case program.Todo:
		s.Justify = program.JustifyLeft
	}
	return s
}
