// internal/handler/discovery_handler.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escpos-bridge/internal/service"
	"escpos-bridge/internal/utils"
)

// PortLister enumerates local serial ports
type PortLister interface {
	ListPorts() ([]string, error)
}

// DiscoveryHandler handles printer discovery requests
type DiscoveryHandler struct {
	discoveryService *service.DiscoveryService
	ports            PortLister
	logger           *utils.ServiceLogger
}

// NewDiscoveryHandler creates a new discovery handler. ports may be nil.
func NewDiscoveryHandler(discoveryService *service.DiscoveryService, ports PortLister, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryService: discoveryService,
		ports:            ports,
		logger:           utils.NewServiceLogger(logger, "discovery-handler"),
	}
}

// Scan runs one discovery round
// @Summary Run discovery
// @Description Broadcast the Epson discovery probe, scan configured TCP targets and upsert the printers that answer
// @Tags Discovery
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.DiscoveryReport} "Discovery completed"
// @Failure 409 {object} utils.APIResponse "Discovery already running"
// @Router /api/v1/discovery/scan [post]
func (h *DiscoveryHandler) Scan(c *gin.Context) {
	report, err := h.discoveryService.DiscoverOnce(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrScanInProgress) {
			utils.ErrorResponse(c, http.StatusConflict, "Discovery already running", err)
			return
		}
		h.logger.Error("Discovery failed", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Discovery failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Discovery completed", report)
}

// LastReport returns the most recent discovery round
// @Summary Last discovery report
// @Tags Discovery
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.DiscoveryReport} "Discovery report retrieved"
// @Failure 404 {object} utils.APIResponse "No discovery has run"
// @Router /api/v1/discovery/last [get]
func (h *DiscoveryHandler) LastReport(c *gin.Context) {
	report := h.discoveryService.LastReport()
	if report == nil {
		utils.ErrorResponse(c, http.StatusNotFound, "No discovery has run", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Discovery report retrieved", report)
}

// GetScanners lists the enabled scanners
// @Summary Get available scanners
// @Tags Discovery
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{scanners=[]string}} "Scanners retrieved"
// @Router /api/v1/discovery/scanners [get]
func (h *DiscoveryHandler) GetScanners(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Scanners retrieved", gin.H{
		"scanners": h.discoveryService.GetAvailableScanners(),
	})
}

// SerialPorts lists local serial ports a manual printer could use
// @Summary List serial ports
// @Description Serial printers do not answer discovery. The list helps pick printer.host for the manual printer.
// @Tags Discovery
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{ports=[]string}} "Serial ports retrieved"
// @Failure 500 {object} utils.APIResponse "Port enumeration failed"
// @Failure 501 {object} utils.APIResponse "Serial listing disabled"
// @Router /api/v1/discovery/serial-ports [get]
func (h *DiscoveryHandler) SerialPorts(c *gin.Context) {
	if h.ports == nil {
		utils.ErrorResponse(c, http.StatusNotImplemented, "Serial listing disabled", nil)
		return
	}

	ports, err := h.ports.ListPorts()
	if err != nil {
		h.logger.Error("Failed to list serial ports", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list serial ports", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Serial ports retrieved", gin.H{"ports": ports})
}
