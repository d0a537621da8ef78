// internal/service/dispatcher.go
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpos-bridge/internal/driver/escpos"
	"escpos-bridge/internal/model"
	"escpos-bridge/internal/profile"
	"escpos-bridge/internal/program"
	"escpos-bridge/internal/repository"
	"escpos-bridge/internal/session"
	"escpos-bridge/internal/utils"
)

// PrinterLookup resolves registry entries
type PrinterLookup interface {
	Get(id string) (model.Printer, bool)
}

// Deliverer hands an encoded stream to the printer's session
type Deliverer interface {
	Deliver(ctx context.Context, printerID string, payload []byte) (*session.Receipt, error)
}

// EventPublisher receives job and printer events
type EventPublisher interface {
	Publish(event model.Event)
}

// JobMetrics records dispatch outcomes
type JobMetrics interface {
	RecordJob(status model.JobStatus, stage model.JobStage)
	RecordDelivery(d time.Duration)
}

// Result is the outcome of one dispatched program
type Result struct {
	JobID      uuid.UUID       `json:"job_id"`
	PrinterID  string          `json:"printer_id"`
	Status     model.JobStatus `json:"status"`
	Stage      model.JobStage  `json:"stage"`
	Commands   int             `json:"commands"`
	Bytes      int             `json:"bytes"`
	Attempts   int             `json:"attempts,omitempty"`
	ErrorKind  string          `json:"error_kind,omitempty"`
	Error      string          `json:"error,omitempty"`
	Line       int             `json:"line,omitempty"`
	Expected   string          `json:"expected,omitempty"`
	DurationMs int64           `json:"duration_ms"`

	Err error `json:"-"`
}

// OK reports whether the program was printed
func (r *Result) OK() bool {
	return r.Status == model.JobStatusPrinted
}

// Validation is the outcome of parsing and encoding without delivery
type Validation struct {
	PrinterID string `json:"printer_id"`
	Model     string `json:"model"`
	Valid     bool   `json:"valid"`
	Commands  int    `json:"commands"`
	Bytes     int    `json:"bytes"`
	Canonical string `json:"canonical,omitempty"`
	Stage     string `json:"stage,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
	Line      int    `json:"line,omitempty"`
	Expected  string `json:"expected,omitempty"`
}

// Dispatcher runs the lookup, parse, encode and deliver pipeline for one
// program and records the outcome. A program is parsed completely before
// anything is sent, so a malformed program never produces partial output.
type Dispatcher struct {
	printers PrinterLookup
	profiles *profile.Database
	sessions Deliverer
	jobs     repository.JobRepository
	events   EventPublisher
	metrics  JobMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewDispatcher creates a dispatcher. events and metrics may be nil.
func NewDispatcher(
	printers PrinterLookup,
	profiles *profile.Database,
	sessions Deliverer,
	jobs repository.JobRepository,
	events EventPublisher,
	metrics JobMetrics,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		printers: printers,
		profiles: profiles,
		sessions: sessions,
		jobs:     jobs,
		events:   events,
		metrics:  metrics,
		logger:   logger.With(zap.String("component", "dispatcher")),
		now:      time.Now,
	}
}

// Dispatch prints text on printerID. Failures are reported in the result,
// never returned as errors.
func (d *Dispatcher) Dispatch(ctx context.Context, printerID, text string, source model.JobSource) *Result {
	job := &model.PrintJob{
		ID:        uuid.New(),
		PrinterID: printerID,
		Source:    source,
		CreatedAt: d.now(),
	}
	jobLogger := utils.NewJobLogger(d.logger, string(source), job.ID.String())
	jobLogger.Start(zap.String("printer_id", printerID), zap.Int("text_bytes", len(text)))

	result := d.run(ctx, job, text)
	job.CompletedAt = d.now()
	result.DurationMs = job.Duration().Milliseconds()

	d.record(ctx, job, result)

	if result.OK() {
		jobLogger.Success(zap.Int("bytes", result.Bytes), zap.Int("attempts", result.Attempts))
	} else if result.Stage == model.StageLookup {
		jobLogger.Error(result.Err, zap.String("stage", string(result.Stage)))
	}
	return result
}

func (d *Dispatcher) run(ctx context.Context, job *model.PrintJob, text string) *Result {
	result := &Result{JobID: job.ID, PrinterID: job.PrinterID}

	printer, ok := d.printers.Get(job.PrinterID)
	if !ok {
		err := &session.DeliveryError{Kind: session.KindUnknownPrinter, PrinterID: job.PrinterID}
		return d.reject(result, model.StageLookup, string(session.KindUnknownPrinter), err)
	}
	plog := utils.NewPrinterLogger(d.logger, printer.ID, string(printer.Origin), printer.Model)

	prog, payload, err := d.compile(printer, text)
	result.Commands = len(prog)
	if err != nil {
		var perr *program.ParseError
		if errors.As(err, &perr) {
			result.Line = perr.Line
			result.Expected = perr.Expected
			d.reject(result, model.StageParse, string(perr.Kind), err)
		} else {
			var eerr *escpos.EncodeError
			kind := ""
			if errors.As(err, &eerr) {
				kind = string(eerr.Kind)
			}
			d.reject(result, model.StageEncode, kind, err)
		}
		plog.LogRejected(job.ID.String(), string(result.Stage), err)
		return result
	}
	result.Bytes = len(payload)
	result.Stage = model.StageDeliver

	receipt, err := d.sessions.Deliver(ctx, printer.ID, payload)
	if err != nil {
		result.Status = model.JobStatusFailed
		result.Err = err
		result.Error = err.Error()
		var derr *session.DeliveryError
		if errors.As(err, &derr) {
			result.ErrorKind = string(derr.Kind)
			result.Attempts = derr.Attempts
		}
		plog.LogDelivery(job.ID.String(), result.Bytes, result.Attempts, d.now().Sub(job.CreatedAt), err)
		return result
	}

	result.Status = model.JobStatusPrinted
	result.Attempts = receipt.Attempts
	if d.metrics != nil {
		d.metrics.RecordDelivery(receipt.Duration)
	}
	plog.LogDelivery(job.ID.String(), result.Bytes, receipt.Attempts, receipt.Duration, nil)
	return result
}

// compile parses and encodes text with the printer's profile
func (d *Dispatcher) compile(printer model.Printer, text string) (program.Program, []byte, error) {
	prog, err := program.Parse(text)
	if err != nil {
		return nil, nil, err
	}

	p := d.profiles.Resolve(printer.Model)
	encoder := escpos.NewEncoder(
		escpos.WithColumns(p.Columns),
		escpos.WithQRModuleSize(p.QRModuleSize),
	)
	payload, err := encoder.EncodeJob(prog)
	if err != nil {
		return prog, nil, err
	}
	return prog, payload, nil
}

func (d *Dispatcher) reject(result *Result, stage model.JobStage, kind string, err error) *Result {
	result.Status = model.JobStatusRejected
	result.Stage = stage
	result.ErrorKind = kind
	result.Error = err.Error()
	result.Err = err
	return result
}

// Validate parses and encodes text for printerID without sending anything
func (d *Dispatcher) Validate(printerID, text string) (*Validation, error) {
	printer, ok := d.printers.Get(printerID)
	if !ok {
		return nil, &session.DeliveryError{Kind: session.KindUnknownPrinter, PrinterID: printerID}
	}

	v := &Validation{PrinterID: printer.ID, Model: d.profiles.Resolve(printer.Model).Model}
	prog, payload, err := d.compile(printer, text)
	v.Commands = len(prog)

	var perr *program.ParseError
	var eerr *escpos.EncodeError
	switch {
	case err == nil:
		v.Valid = true
		v.Bytes = len(payload)
		v.Canonical = program.Render(prog)
	case errors.As(err, &perr):
		v.Stage = string(model.StageParse)
		v.ErrorKind = string(perr.Kind)
		v.Line = perr.Line
		v.Expected = perr.Expected
		v.Error = err.Error()
	case errors.As(err, &eerr):
		v.Stage = string(model.StageEncode)
		v.ErrorKind = string(eerr.Kind)
		v.Error = err.Error()
	default:
		return nil, err
	}
	return v, nil
}

func (d *Dispatcher) record(ctx context.Context, job *model.PrintJob, result *Result) {
	job.Status = result.Status
	job.Stage = result.Stage
	job.Commands = result.Commands
	job.Bytes = result.Bytes
	job.Attempts = result.Attempts
	if result.Err != nil {
		msg := result.Error
		job.ErrorMessage = &msg
		if result.ErrorKind != "" {
			kind := result.ErrorKind
			job.ErrorKind = &kind
		}
		if result.Line > 0 {
			line := result.Line
			job.ErrorLine = &line
		}
	}

	if d.jobs != nil {
		// the journal outlives the request context
		if err := d.jobs.Create(context.WithoutCancel(ctx), job); err != nil {
			d.logger.Warn("Failed to record job", zap.String("job_id", job.ID.String()), zap.Error(err))
		}
	}

	if d.metrics != nil {
		d.metrics.RecordJob(result.Status, result.Stage)
	}

	if d.events != nil {
		d.events.Publish(model.NewEvent(eventType(result.Status), result.PrinterID, string(job.Source), model.JSONObject{
			"job_id":     result.JobID.String(),
			"status":     string(result.Status),
			"stage":      string(result.Stage),
			"bytes":      result.Bytes,
			"attempts":   result.Attempts,
			"error_kind": result.ErrorKind,
			"error":      result.Error,
		}))
	}
}

func eventType(status model.JobStatus) model.EventType {
	switch status {
	case model.JobStatusPrinted:
		return model.EventJobPrinted
	case model.JobStatusRejected:
		return model.EventJobRejected
	default:
		return model.EventJobFailed
	}
}
