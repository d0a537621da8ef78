// internal/bus/homeassistant.go
package bus

import (
	"strings"

	"escpos-bridge/internal/model"
)

// HomeAssistantDevice groups the notify entity under one device
type HomeAssistantDevice struct {
	Identifiers []string `json:"identifiers"`
	Name        string   `json:"name"`
	Model       string   `json:"model"`
}

// HomeAssistantConfig is the MQTT discovery payload announcing a printer as
// a notify entity. Notifications sent to the entity land on the print topic.
type HomeAssistantConfig struct {
	Name              string              `json:"name"`
	CommandTopic      string              `json:"command_topic"`
	AvailabilityTopic string              `json:"availability_topic"`
	UniqueID          string              `json:"unique_id"`
	Device            HomeAssistantDevice `json:"device"`
}

// NewHomeAssistantConfig builds the discovery payload for p
func NewHomeAssistantConfig(topicPrefix string, p model.Printer) HomeAssistantConfig {
	name := p.Name
	if name == "" {
		name = p.ID
	}

	deviceModel := p.Model
	if p.Description != "" {
		deviceModel = strings.TrimSpace(p.Model + " - " + p.Description)
	}

	return HomeAssistantConfig{
		Name:              "Receipt",
		CommandTopic:      PrintTopic(topicPrefix, p.ID),
		AvailabilityTopic: AvailabilityTopic(topicPrefix),
		UniqueID:          p.ID,
		Device: HomeAssistantDevice{
			Identifiers: []string{p.ID},
			Name:        name,
			Model:       deviceModel,
		},
	}
}
