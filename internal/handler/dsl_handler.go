// internal/handler/dsl_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"escpos-bridge/internal/program"
	"escpos-bridge/internal/utils"
)

// DSLHandler serves the print language reference
type DSLHandler struct{}

// NewDSLHandler creates a new DSL handler
func NewDSLHandler() *DSLHandler {
	return &DSLHandler{}
}

// Reference renders the command reference
// @Summary Print language reference
// @Description The command reference as markdown, or plain text with format=text
// @Tags DSL
// @Produce plain
// @Produce markdown
// @Param format query string false "Output format" Enums(markdown, text) default(markdown)
// @Success 200 {string} string "Reference"
// @Router /api/v1/dsl [get]
func (h *DSLHandler) Reference(c *gin.Context) {
	if c.Query("format") == "text" {
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(program.TextReference()))
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(program.MarkdownReference()))
}

// Commands lists every command with its signature
// @Summary List DSL commands
// @Tags DSL
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{commands=[]program.CommandDoc,example=string}} "Commands retrieved"
// @Router /api/v1/dsl/commands [get]
func (h *DSLHandler) Commands(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Commands retrieved", gin.H{
		"commands": program.Docs(),
		"example":  program.CompleteExample(),
	})
}
