package snmp

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// startAgent answers SNMP v1 GET requests from values. A request naming an
// unknown OID gets a noSuchName error like a real v1 agent.
func startAgent(t *testing.T, values map[string]string) uint16 {
	t.Helper()

	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	go func() {
		decoder := &gosnmp.GoSNMP{Version: gosnmp.Version1, Community: "public"}
		buf := make([]byte, 4096)
		for {
			n, addr, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			req, err := decoder.SnmpDecodePacket(buf[:n])
			if err != nil {
				continue
			}

			resp := &gosnmp.SnmpPacket{
				Version:   gosnmp.Version1,
				Community: req.Community,
				PDUType:   gosnmp.GetResponse,
				RequestID: req.RequestID,
			}
			for i, v := range req.Variables {
				value, ok := values[strings.TrimPrefix(v.Name, ".")]
				if !ok {
					resp.Error = gosnmp.NoSuchName
					resp.ErrorIndex = uint8(i + 1)
					resp.Variables = req.Variables
					break
				}
				resp.Variables = append(resp.Variables, gosnmp.SnmpPDU{
					Name:  v.Name,
					Type:  gosnmp.OctetString,
					Value: []byte(value),
				})
			}

			out, err := resp.MarshalMsg()
			if err != nil {
				continue
			}
			_, _ = conn.WriteTo(out, addr)
		}
	}()

	return uint16(conn.LocalAddr().(*net.UDPAddr).Port)
}

func TestIdentify_FullIdentity(t *testing.T) {
	port := startAgent(t, map[string]string{
		OIDSysDescr:      "EPSON Built-in 10Base-T/100Base-TX Print Server",
		OIDSysName:       "TM-T88VI-KITCHEN",
		OIDHrDeviceDescr: "EPSON TM-T88VI",
	})

	id := NewIdentifier(Config{Port: port, Timeout: time.Second}, zaptest.NewLogger(t))
	identity, err := id.Identify(context.Background(), "127.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", identity.Host)
	assert.Equal(t, "TM-T88VI-KITCHEN", identity.Name)
	assert.Equal(t, "EPSON Built-in 10Base-T/100Base-TX Print Server", identity.Description)
	assert.Equal(t, "EPSON TM-T88VI", identity.HardwareDescription)
}

func TestIdentify_WithoutPrinterMIB(t *testing.T) {
	port := startAgent(t, map[string]string{
		OIDSysDescr: "Generic printer",
		OIDSysName:  "front",
	})

	id := NewIdentifier(Config{Port: port, Timeout: time.Second}, zaptest.NewLogger(t))
	identity, err := id.Identify(context.Background(), "127.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "front", identity.Name)
	assert.Empty(t, identity.HardwareDescription)
}

func TestIdentify_NoAgent(t *testing.T) {
	// bind and release a port so nothing answers on it
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	port := uint16(conn.LocalAddr().(*net.UDPAddr).Port)
	conn.Close()

	id := NewIdentifier(Config{Port: port, Timeout: 50 * time.Millisecond}, zaptest.NewLogger(t))
	_, err = id.Identify(context.Background(), "127.0.0.1")
	assert.Error(t, err)
}
