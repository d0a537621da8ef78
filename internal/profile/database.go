// internal/profile/database.go
package profile

import (
	"sort"
	"strings"
)

// DefaultModel is the profile used when a printer cannot be identified
const DefaultModel = "default"

// Capability names
const (
	CapabilityCut    = "CUT"
	CapabilityQRCode = "QR"
	CapabilityEAN    = "EAN"
	CapabilityFontC  = "FONT_C"
)

// Profile holds the static paper parameters of a printer model
type Profile struct {
	Model        string   `json:"model"`
	Vendor       string   `json:"vendor"`
	Columns      int      `json:"columns"`
	DPI          int      `json:"dpi"`
	PaperWidthMM int      `json:"paper_width_mm"`
	QRModuleSize int      `json:"qr_module_size"`
	Capabilities []string `json:"capabilities"`
}

// Has reports whether the profile lists a capability
func (p Profile) Has(capability string) bool {
	for _, c := range p.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// Database contains known printer models for identification
type Database struct {
	profiles map[string]Profile
}

// NewDatabase creates and initializes the profile database
func NewDatabase() *Database {
	db := &Database{
		profiles: make(map[string]Profile),
	}
	db.initializeDatabase()
	return db
}

// initializeDatabase populates the known models
func (db *Database) initializeDatabase() {
	all := []string{CapabilityCut, CapabilityQRCode, CapabilityEAN}

	db.add(Profile{Model: DefaultModel, Vendor: "Generic", Columns: 42, DPI: 180, PaperWidthMM: 80, QRModuleSize: 6, Capabilities: all})

	// EPSON 80mm
	db.add(Profile{Model: "TM-T88IV", Vendor: "EPSON", Columns: 42, DPI: 180, PaperWidthMM: 80, QRModuleSize: 6, Capabilities: all})
	db.add(Profile{Model: "TM-T88V", Vendor: "EPSON", Columns: 42, DPI: 180, PaperWidthMM: 80, QRModuleSize: 6, Capabilities: all})
	db.add(Profile{Model: "TM-T88VI", Vendor: "EPSON", Columns: 42, DPI: 180, PaperWidthMM: 80, QRModuleSize: 6, Capabilities: all})
	db.add(Profile{Model: "TM-T20II", Vendor: "EPSON", Columns: 42, DPI: 203, PaperWidthMM: 80, QRModuleSize: 6, Capabilities: all})
	db.add(Profile{Model: "TM-T20III", Vendor: "EPSON", Columns: 42, DPI: 203, PaperWidthMM: 80, QRModuleSize: 6, Capabilities: all})
	db.add(Profile{Model: "TM-T82III", Vendor: "EPSON", Columns: 42, DPI: 203, PaperWidthMM: 80, QRModuleSize: 6, Capabilities: all})
	db.add(Profile{Model: "TM-M30", Vendor: "EPSON", Columns: 48, DPI: 203, PaperWidthMM: 80, QRModuleSize: 6, Capabilities: append(all, CapabilityFontC)})
	db.add(Profile{Model: "TM-M30II", Vendor: "EPSON", Columns: 48, DPI: 203, PaperWidthMM: 80, QRModuleSize: 6, Capabilities: append(all, CapabilityFontC)})

	// EPSON 58mm
	db.add(Profile{Model: "TM-T20II-58", Vendor: "EPSON", Columns: 32, DPI: 203, PaperWidthMM: 58, QRModuleSize: 4, Capabilities: all})
	db.add(Profile{Model: "TM-P20", Vendor: "EPSON", Columns: 32, DPI: 203, PaperWidthMM: 58, QRModuleSize: 4, Capabilities: []string{CapabilityQRCode, CapabilityEAN}})
}

func (db *Database) add(p Profile) {
	db.profiles[strings.ToLower(p.Model)] = p
}

// Get returns the profile for an exact model name, case-insensitive
func (db *Database) Get(model string) (Profile, bool) {
	p, ok := db.profiles[strings.ToLower(strings.TrimSpace(model))]
	return p, ok
}

// Resolve returns the profile for model, falling back to the default profile
func (db *Database) Resolve(model string) Profile {
	if p, ok := db.Get(model); ok {
		return p
	}
	return db.profiles[DefaultModel]
}

// Match finds the longest known model name contained in a free-form
// description such as an SNMP sysDescr
func (db *Database) Match(description string) (Profile, bool) {
	desc := strings.ToLower(description)

	var (
		best  Profile
		found bool
	)
	for key, p := range db.profiles {
		if key == DefaultModel {
			continue
		}
		if strings.Contains(desc, key) && len(p.Model) > len(best.Model) {
			best, found = p, true
		}
	}
	return best, found
}

// Models returns all known model names, sorted
func (db *Database) Models() []string {
	out := make([]string, 0, len(db.profiles))
	for _, p := range db.profiles {
		out = append(out, p.Model)
	}
	sort.Strings(out)
	return out
}
