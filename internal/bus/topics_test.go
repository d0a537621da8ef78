package bus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinterFromTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  string
		ok    bool
	}{
		{"escpos/kitchen/print", "kitchen", true},
		{"escpos/10.0.0.5/print", "10.0.0.5", true},
		{"escpos/kitchen/result", "", false},
		{"escpos//print", "", false},
		{"escpos/a/b/print", "", false},
		{"other/kitchen/print", "", false},
		{"escpos/available", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, ok := PrinterFromTopic("escpos", tt.topic)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrinterFromSubject(t *testing.T) {
	tests := []struct {
		subject string
		want    string
		ok      bool
	}{
		{"escpos.kitchen.print", "kitchen", true},
		{"escpos.10.0.0.5.print", "10.0.0.5", true},
		{"escpos.kitchen.result", "", false},
		{"escpos.print", "", false},
		{"other.kitchen.print", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			got, ok := PrinterFromSubject("escpos", tt.subject)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTopicsRoundTrip(t *testing.T) {
	id, ok := PrinterFromTopic("escpos", PrintTopic("escpos", "bar"))
	assert.True(t, ok)
	assert.Equal(t, "bar", id)

	id, ok = PrinterFromSubject("escpos", PrintSubject("escpos", "bar"))
	assert.True(t, ok)
	assert.Equal(t, "bar", id)

	assert.Equal(t, "escpos/+/print", PrintFilter("escpos"))
	assert.Equal(t, "escpos/bar/result", ResultTopic("escpos", "bar"))
	assert.Equal(t, "escpos/available", AvailabilityTopic("escpos"))
	assert.Equal(t, "homeassistant/notify/bar/config", HomeAssistantTopic("homeassistant", "bar"))
	assert.Equal(t, "escpos.bar.result", ResultSubject("escpos", "bar"))
}

func TestClientID(t *testing.T) {
	id := ClientID("escpos")
	assert.True(t, strings.HasPrefix(id, "escpos_"))
	assert.Len(t, id, len("escpos_")+8)
	assert.NotEqual(t, id, ClientID("escpos"))
	assert.Len(t, ClientID(""), 8)
}
