package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabase_Resolve(t *testing.T) {
	db := NewDatabase()

	p := db.Resolve("tm-t88v")
	assert.Equal(t, "TM-T88V", p.Model)
	assert.Equal(t, 42, p.Columns)

	fallback := db.Resolve("unknown-9000")
	assert.Equal(t, DefaultModel, fallback.Model)

	def, ok := db.Get("default")
	require.True(t, ok)
	assert.True(t, def.Has(CapabilityCut))
}

func TestDatabase_Match(t *testing.T) {
	db := NewDatabase()

	tests := []struct {
		desc  string
		model string
		ok    bool
	}{
		{"EPSON TM-T88VI ver 1.02", "TM-T88VI", true},
		{"EPSON Built-in 10Base-T/100Base-TX Print Server TM-T88V", "TM-T88V", true},
		{"EPSON TM-T20II-58", "TM-T20II-58", true},
		{"Some Laser Printer", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			p, ok := db.Match(tt.desc)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.model, p.Model)
		})
	}
}

func TestDatabase_Models(t *testing.T) {
	models := NewDatabase().Models()
	assert.Contains(t, models, DefaultModel)
	assert.IsIncreasing(t, models)
}
