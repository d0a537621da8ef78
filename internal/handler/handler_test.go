package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"escpos-bridge/internal/config"
	"escpos-bridge/internal/discovery"
	"escpos-bridge/internal/model"
	"escpos-bridge/internal/profile"
	"escpos-bridge/internal/protocol"
	"escpos-bridge/internal/registry"
	"escpos-bridge/internal/repository"
	"escpos-bridge/internal/service"
	"escpos-bridge/internal/session"
	"escpos-bridge/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDeliverer struct {
	mu   sync.Mutex
	sent map[string]int
	err  error
}

func (f *fakeDeliverer) Deliver(_ context.Context, printerID string, payload []byte) (*session.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = make(map[string]int)
	}
	f.sent[printerID]++
	return &session.Receipt{PrinterID: printerID, Bytes: len(payload), Attempts: 1, Duration: time.Millisecond}, nil
}

func (f *fakeDeliverer) count(printerID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[printerID]
}

type noSessions struct{}

func (noSessions) State(string) (session.State, bool) { return session.State{}, false }
func (noSessions) Snapshot() []session.Status         { return []session.Status{} }

type stubPorts struct {
	ports []string
	err   error
}

func (s stubPorts) ListPorts() ([]string, error) { return s.ports, s.err }

type fixture struct {
	router    *gin.Engine
	registry  *registry.Registry
	deliverer *fakeDeliverer
	jobs      repository.JobRepository
}

func newFixture(t *testing.T) *fixture {
	logger := zaptest.NewLogger(t)
	cfg := &config.Config{}
	cfg.App.Name = "escpos-bridge"
	cfg.App.Version = "test"
	cfg.Printer.DefaultModel = profile.DefaultModel

	reg := registry.New(logger)
	reg.Upsert(model.Printer{ID: "kitchen", Host: "10.0.0.5", Port: 9100, Model: "TM-T20III", Origin: model.OriginDiscovered})

	profiles := profile.NewDatabase()
	deliverer := &fakeDeliverer{}
	jobs := repository.NewMemoryJobRepository(50, logger)
	dialer := protocol.NewFactory(protocol.DefaultOptions(), logger)

	dispatcher := service.NewDispatcher(reg, profiles, deliverer, jobs, nil, nil, logger)
	printers := service.NewPrinterService(reg, noSessions{}, profiles, dialer, time.Second, logger)
	discoveries := service.NewDiscoveryService(cfg, discovery.NewScannerManager(logger), nil, reg, profiles, nil, nil, nil, logger)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(utils.RequestIDKey, "req-1")
		c.Next()
	})

	ph := NewPrinterHandler(printers, dispatcher, logger)
	r.GET("/printers", ph.ListPrinters)
	r.GET("/printers/:printer_id", ph.GetPrinter)
	r.POST("/printers/:printer_id/print", ph.Print)
	r.POST("/printers/:printer_id/validate", ph.Validate)
	r.GET("/sessions", ph.ListSessions)
	r.GET("/profiles", ph.ListProfiles)

	jh := NewJobHandler(service.NewJobService(jobs, logger), logger)
	r.GET("/jobs", jh.ListJobs)
	r.GET("/jobs/stats", jh.GetStats)
	r.GET("/jobs/:job_id", jh.GetJob)

	dh := NewDiscoveryHandler(discoveries, stubPorts{ports: []string{"/dev/ttyUSB0"}}, logger)
	r.POST("/discovery/scan", dh.Scan)
	r.GET("/discovery/last", dh.LastReport)
	r.GET("/discovery/scanners", dh.GetScanners)
	r.GET("/discovery/serial-ports", dh.SerialPorts)

	dsl := NewDSLHandler()
	r.GET("/dsl", dsl.Reference)
	r.GET("/dsl/commands", dsl.Commands)

	return &fixture{router: r, registry: reg, deliverer: deliverer, jobs: jobs}
}

func (f *fixture) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
	Error     *utils.APIError `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestPrint(t *testing.T) {
	tests := []struct {
		name        string
		printer     string
		contentType string
		body        string
		status      int
		code        string
		sent        int
	}{
		{"plain text", "kitchen", "text/plain", "bold true\nwriteln \"HI\"\ncut", http.StatusOK, "", 1},
		{"json body", "kitchen", "application/json", `{"program":"writeln \"HI\"\ncut"}`, http.StatusOK, "", 1},
		{"parse error", "kitchen", "text/plain", "writeln \"ok\"\nsize 12,1", http.StatusUnprocessableEntity, "PARSE_ERROR", 0},
		{"unknown printer", "ghost", "text/plain", "cut", http.StatusNotFound, "PRINTER_NOT_FOUND", 0},
		{"empty body", "kitchen", "text/plain", "  \n", http.StatusBadRequest, "BAD_REQUEST", 0},
		{"json without program", "kitchen", "application/json", `{}`, http.StatusBadRequest, "BAD_REQUEST", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.do(http.MethodPost, "/printers/"+tt.printer+"/print", tt.contentType, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())

			env := decode(t, w)
			assert.Equal(t, "req-1", env.RequestID)
			if tt.code != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.code, env.Error.Code)
			} else {
				assert.True(t, env.Success)
			}
			assert.Equal(t, tt.sent, f.deliverer.count(tt.printer))
		})
	}
}

func TestPrint_ParseErrorCarriesLine(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/printers/kitchen/print", "text/plain", "writeln \"ok\"\nbogus 1")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var result service.Result
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &result))
	assert.Equal(t, 2, result.Line)
	assert.Equal(t, model.JobStatusRejected, result.Status)
}

func TestPrint_DeliveryFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"busy", &session.DeliveryError{Kind: session.KindBusy, PrinterID: "kitchen"}, http.StatusServiceUnavailable, "PRINTER_BUSY"},
		{"closed", &session.DeliveryError{Kind: session.KindClosed, PrinterID: "kitchen"}, http.StatusServiceUnavailable, "SHUTTING_DOWN"},
		{"unreachable", &session.DeliveryError{Kind: session.KindUnreachable, LastKind: session.KindConnectTimeout, PrinterID: "kitchen", Attempts: 3}, http.StatusBadGateway, "PRINTER_UNREACHABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.deliverer.err = tt.err

			w := f.do(http.MethodPost, "/printers/kitchen/print", "text/plain", "cut")
			require.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w).Error.Code)
		})
	}
}

func TestValidate(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/printers/kitchen/validate", "text/plain", "bold true\ncut")
	require.Equal(t, http.StatusOK, w.Code)
	var v service.Validation
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &v))
	assert.True(t, v.Valid)
	assert.Equal(t, 2, v.Commands)
	assert.Zero(t, f.deliverer.count("kitchen"), "validation never prints")

	w = f.do(http.MethodPost, "/printers/kitchen/validate", "text/plain", "bold maybe")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &v))
	assert.False(t, v.Valid)
	assert.Equal(t, 1, v.Line)

	w = f.do(http.MethodPost, "/printers/ghost/validate", "text/plain", "cut")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPrinters(t *testing.T) {
	f := newFixture(t)
	f.registry.Upsert(model.Printer{ID: model.ManualPrinterID, Host: "10.0.0.9", Port: 9100, Origin: model.OriginManual})

	w := f.do(http.MethodGet, "/printers", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Printers []service.PrinterView `json:"printers"`
		Count    int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &list))
	assert.Equal(t, 2, list.Count)

	w = f.do(http.MethodGet, "/printers?origin=manual", "", "")
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, model.ManualPrinterID, list.Printers[0].ID)

	w = f.do(http.MethodGet, "/printers/kitchen", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var view service.PrinterView
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &view))
	assert.Equal(t, "tcp://10.0.0.5:9100", view.Endpoint)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/printers/ghost", "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/sessions", "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/profiles", "", "").Code)
}

func TestJobs(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.do(http.MethodPost, "/printers/kitchen/print", "text/plain", "cut")
	}
	f.do(http.MethodPost, "/printers/kitchen/print", "text/plain", "size 12,1")

	w := f.do(http.MethodGet, "/jobs?per_page=2&status=printed", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Jobs       []model.PrintJob         `json:"jobs"`
		Pagination service.PaginationResult `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &page))
	assert.Len(t, page.Jobs, 2)
	assert.Equal(t, 3, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	w = f.do(http.MethodGet, "/jobs/"+page.Jobs[0].ID.String(), "", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/jobs/not-a-uuid", "", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/jobs/6f1c7a52-0000-4000-8000-000000000000", "", "").Code)

	w = f.do(http.MethodGet, "/jobs/stats?printer_id=kitchen", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats repository.JobStats
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &stats))
	assert.Equal(t, 4, stats.TotalJobs)
}

func TestDiscovery(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/discovery/last", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPost, "/discovery/scan", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodGet, "/discovery/last", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/discovery/scanners", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/discovery/serial-ports", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/dev/ttyUSB0")
}

func TestSerialPorts_Errors(t *testing.T) {
	logger := zaptest.NewLogger(t)
	r := gin.New()
	r.GET("/off", NewDiscoveryHandler(nil, nil, logger).SerialPorts)
	r.GET("/broken", NewDiscoveryHandler(nil, stubPorts{err: errors.New("no sysfs")}, logger).SerialPorts)

	for path, want := range map[string]int{"/off": http.StatusNotImplemented, "/broken": http.StatusInternalServerError} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Code, path)
	}
}

func TestDSLReference(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/dsl", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, w.Body.String(), "writeln")

	w = f.do(http.MethodGet, "/dsl?format=text", "", "")
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	w = f.do(http.MethodGet, "/dsl/commands", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"commands"`)
}
