// internal/handler/printer_handler.go
package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escpos-bridge/internal/model"
	"escpos-bridge/internal/service"
	"escpos-bridge/internal/session"
	"escpos-bridge/internal/utils"
)

// maxProgramSize bounds HTTP print bodies
const maxProgramSize = 1 << 20

// PrinterHandler handles printer and print requests
type PrinterHandler struct {
	printerService *service.PrinterService
	dispatcher     *service.Dispatcher
	logger         *utils.ServiceLogger
}

// PrintRequest is the JSON form of a print body. A text/plain body is taken
// as the program itself.
type PrintRequest struct {
	Program string `json:"program" binding:"required"`
}

// NewPrinterHandler creates a new printer handler
func NewPrinterHandler(printerService *service.PrinterService, dispatcher *service.Dispatcher, logger *zap.Logger) *PrinterHandler {
	return &PrinterHandler{
		printerService: printerService,
		dispatcher:     dispatcher,
		logger:         utils.NewServiceLogger(logger, "printer-handler"),
	}
}

// ListPrinters lists registry entries
// @Summary List printers
// @Description Get every known printer with its profile and session state
// @Tags Printers
// @Produce json
// @Param origin query string false "Filter by origin" Enums(discovered, manual)
// @Success 200 {object} utils.APIResponse{data=object{printers=[]service.PrinterView,count=int}} "Printers retrieved successfully"
// @Router /api/v1/printers [get]
func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	origin := model.PrinterOrigin(c.Query("origin"))
	printers := h.printerService.ListPrinters(origin)

	utils.SuccessResponse(c, http.StatusOK, "Printers retrieved successfully", gin.H{
		"printers": printers,
		"count":    len(printers),
	})
}

// GetPrinter retrieves one printer
// @Summary Get printer details
// @Tags Printers
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Success 200 {object} utils.APIResponse{data=service.PrinterView} "Printer retrieved successfully"
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Router /api/v1/printers/{printer_id} [get]
func (h *PrinterHandler) GetPrinter(c *gin.Context) {
	printer, err := h.printerService.GetPrinter(c.Param("printer_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Printer not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Printer retrieved successfully", printer)
}

// TestPrinter checks that the printer answers a model query
// @Summary Test printer
// @Description Connect to the printer and ask for its model name. Nothing is printed.
// @Tags Printers
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Success 200 {object} utils.APIResponse{data=service.TestResult} "Printer test completed"
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Router /api/v1/printers/{printer_id}/test [post]
func (h *PrinterHandler) TestPrinter(c *gin.Context) {
	result, err := h.printerService.TestPrinter(c.Request.Context(), c.Param("printer_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Printer not found", err)
		return
	}

	message := "Printer test succeeded"
	if !result.Success {
		message = "Printer test failed"
	}
	utils.SuccessResponse(c, http.StatusOK, message, result)
}

// Print parses, encodes and delivers a program
// @Summary Print program
// @Description Submit a DSL program. The body is the program text, or JSON {"program": "..."}.
// @Tags Printers
// @Accept plain
// @Accept json
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Param program body string true "DSL program"
// @Success 200 {object} utils.APIResponse{data=service.Result} "Printed"
// @Failure 400 {object} utils.APIResponse "Empty or unreadable body"
// @Failure 404 {object} utils.APIResponse{data=service.Result} "Printer not found"
// @Failure 422 {object} utils.APIResponse{data=service.Result} "Program rejected"
// @Failure 502 {object} utils.APIResponse{data=service.Result} "Printer unreachable"
// @Failure 503 {object} utils.APIResponse{data=service.Result} "Printer busy"
// @Router /api/v1/printers/{printer_id}/print [post]
func (h *PrinterHandler) Print(c *gin.Context) {
	text, err := readProgram(c)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result := h.dispatcher.Dispatch(c.Request.Context(), c.Param("printer_id"), text, model.SourceHTTP)
	if result.OK() {
		utils.SuccessResponse(c, http.StatusOK, "Program printed", result)
		return
	}

	status, code := resultStatus(result)
	utils.CodedErrorResponse(c, status, code, "Program not printed", result.Err, result)
}

// Validate parses and encodes a program without printing it
// @Summary Validate program
// @Description Parse and encode a program with the printer's profile. Nothing is sent.
// @Tags Printers
// @Accept plain
// @Accept json
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Param program body string true "DSL program"
// @Success 200 {object} utils.APIResponse{data=service.Validation} "Validation completed"
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Router /api/v1/printers/{printer_id}/validate [post]
func (h *PrinterHandler) Validate(c *gin.Context) {
	text, err := readProgram(c)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	validation, err := h.dispatcher.Validate(c.Param("printer_id"), text)
	if err != nil {
		if errors.Is(err, session.ErrUnknownPrinter) {
			utils.ErrorResponse(c, http.StatusNotFound, "Printer not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Validation failed", err)
		return
	}

	message := "Program is valid"
	if !validation.Valid {
		message = "Program is invalid"
	}
	utils.SuccessResponse(c, http.StatusOK, message, validation)
}

// ListSessions returns per-printer session state
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]session.Status} "Sessions retrieved successfully"
// @Router /api/v1/sessions [get]
func (h *PrinterHandler) ListSessions(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Sessions retrieved successfully", h.printerService.Sessions())
}

// ListProfiles returns the known model profiles
// @Summary List printer profiles
// @Tags Printers
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]profile.Profile} "Profiles retrieved successfully"
// @Router /api/v1/profiles [get]
func (h *PrinterHandler) ListProfiles(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Profiles retrieved successfully", h.printerService.Profiles())
}

// readProgram returns the program text of a print or validate request
func readProgram(c *gin.Context) (string, error) {
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req PrintRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return "", err
		}
		return req.Program, nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxProgramSize))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(string(body)) == "" {
		return "", errors.New("empty program")
	}
	return string(body), nil
}

// resultStatus maps a failed dispatch to an HTTP status and error code
func resultStatus(result *service.Result) (int, string) {
	switch {
	case result.Stage == model.StageLookup:
		return http.StatusNotFound, "PRINTER_NOT_FOUND"
	case result.Stage == model.StageParse:
		return http.StatusUnprocessableEntity, "PARSE_ERROR"
	case result.Stage == model.StageEncode:
		return http.StatusUnprocessableEntity, "ENCODE_ERROR"
	case errors.Is(result.Err, session.ErrBusy):
		return http.StatusServiceUnavailable, "PRINTER_BUSY"
	case errors.Is(result.Err, session.ErrClosed):
		return http.StatusServiceUnavailable, "SHUTTING_DOWN"
	default:
		return http.StatusBadGateway, "PRINTER_UNREACHABLE"
	}
}
