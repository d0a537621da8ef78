// internal/model/job.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the outcome of a print request
type JobStatus string

const (
	JobStatusPrinted  JobStatus = "PRINTED"
	JobStatusRejected JobStatus = "REJECTED" // parse or encode failure, nothing sent
	JobStatusFailed   JobStatus = "FAILED"   // delivery failure
)

// JobStage is the pipeline step that produced the outcome
type JobStage string

const (
	StageLookup  JobStage = "lookup"
	StageParse   JobStage = "parse"
	StageEncode  JobStage = "encode"
	StageDeliver JobStage = "deliver"
)

// JobSource tells which surface submitted the job
type JobSource string

const (
	SourceBus  JobSource = "bus"
	SourceHTTP JobSource = "http"
)

// PrintJob is the journal record of one dispatched program
type PrintJob struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	PrinterID    string     `json:"printer_id" db:"printer_id"`
	Source       JobSource  `json:"source" db:"source"`
	Status       JobStatus  `json:"status" db:"status"`
	Stage        JobStage   `json:"stage" db:"stage"`
	ErrorKind    *string    `json:"error_kind,omitempty" db:"error_kind"`
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`
	ErrorLine    *int       `json:"error_line,omitempty" db:"error_line"`
	Commands     int        `json:"commands" db:"commands"`
	Bytes        int        `json:"bytes" db:"bytes"`
	Attempts     int        `json:"attempts" db:"attempts"`
	Metadata     JSONObject `json:"metadata,omitempty" db:"metadata"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	CompletedAt  time.Time  `json:"completed_at" db:"completed_at"`
}

// Duration returns how long the dispatch took
func (j *PrintJob) Duration() time.Duration {
	return j.CompletedAt.Sub(j.CreatedAt)
}
