// internal/bus/topics.go
package bus

import (
	"strings"

	"github.com/google/uuid"
)

// Availability payloads published to the availability topic
const (
	AvailabilityOnline  = "online"
	AvailabilityOffline = "offline"
)

// PrintFilter is the MQTT subscription matching every printer's print topic
func PrintFilter(prefix string) string {
	return prefix + "/+/print"
}

// PrintTopic is where programs for printerID are submitted
func PrintTopic(prefix, printerID string) string {
	return prefix + "/" + printerID + "/print"
}

// ResultTopic is where delivery results for printerID are published
func ResultTopic(prefix, printerID string) string {
	return prefix + "/" + printerID + "/result"
}

// AvailabilityTopic carries the bridge's online/offline state
func AvailabilityTopic(prefix string) string {
	return prefix + "/available"
}

// HomeAssistantTopic is the notify discovery config topic for printerID
func HomeAssistantTopic(discoveryPrefix, printerID string) string {
	return discoveryPrefix + "/notify/" + printerID + "/config"
}

// PrinterFromTopic extracts the printer id from "{prefix}/{id}/print"
func PrinterFromTopic(prefix, topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/print")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// PrintSubjectFilter is the NATS subscription for print subjects. Printer ids
// may contain dots, so the full wildcard is used and the suffix checked.
func PrintSubjectFilter(prefix string) string {
	return prefix + ".>"
}

// PrintSubject is the NATS subject for programs sent to printerID
func PrintSubject(prefix, printerID string) string {
	return prefix + "." + printerID + ".print"
}

// ResultSubject is the NATS subject for delivery results of printerID
func ResultSubject(prefix, printerID string) string {
	return prefix + "." + printerID + ".result"
}

// PrinterFromSubject extracts the printer id from "{prefix}.{id}.print"
func PrinterFromSubject(prefix, subject string) (string, bool) {
	rest, ok := strings.CutPrefix(subject, prefix+".")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, ".print")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// ClientID returns prefix_xxxxxxxx with a random suffix
func ClientID(prefix string) string {
	suffix := uuid.NewString()[:8]
	if prefix == "" {
		return suffix
	}
	return prefix + "_" + suffix
}
