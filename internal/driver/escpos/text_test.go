package escpos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeText(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"plain", []byte("plain")},
		{"Ü", []byte{0x9A}},
		{"£5", []byte{0x9C, '5'}},
		{"½", []byte{0xAB}},
		{"€", []byte{'?'}},
		{"a\xffb", []byte{'a', '?', 'b'}},
		{"", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeText(tt.in))
		})
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"fits", "short", 20, []string{"- [ ] short"}},
		{"empty", "", 20, []string{"- [ ]"}},
		{"collapses spaces", "a   b", 20, []string{"- [ ] a b"}},
		{"hard split", "abcdefghij", 10, []string{"- [ ] abcd", "      efgh", "      ij"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wrapText(tt.text, todoPrefix, tt.width))
		})
	}
}
