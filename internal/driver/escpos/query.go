// internal/driver/escpos/query.go
package escpos

import "strings"

// ModelNameResponseLen is the buffer size read after GS I 67
const ModelNameResponseLen = 82

// ModelNameQuery returns the GS I 67 request for the printer model name
func ModelNameQuery() []byte {
	return append([]byte(nil), ESC_POS_COMMANDS.GET_MODEL_NAME...)
}

// ParseModelName extracts the model from a GS I 67 response. The printer
// answers with a header byte followed by a NUL-terminated name.
func ParseModelName(resp []byte) string {
	if len(resp) < 2 {
		return ""
	}
	name := resp[1:]
	if i := strings.IndexByte(string(name), 0); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(string(name))
}
