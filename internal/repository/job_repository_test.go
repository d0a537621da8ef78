package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"escpos-bridge/internal/model"
)

func TestBuildWhere(t *testing.T) {
	where, args := buildWhere(&JobFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	printer := "kitchen"
	status := model.JobStatusFailed
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	where, args = buildWhere(&JobFilter{PrinterID: &printer, Status: &status, StartDate: &since})
	assert.Equal(t, "WHERE printer_id = $1 AND status = $2 AND created_at >= $3", where)
	assert.Equal(t, []interface{}{"kitchen", model.JobStatusFailed, since}, args)
}
