package printer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a print job
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobPrinting  JobStatus = "printing"
	JobFailed    JobStatus = "failed"
	JobCompleted JobStatus = "completed"
)

// ErrPrinterUnknown is returned when a job names a printer that is not detected
var ErrPrinterUnknown = errors.New("printer not found")

// PrintJob represents a print job
type PrintJob struct {
	ID        string    `json:"id"`
	PrinterID string    `json:"printer_id"`
	Label     string    `json:"label,omitempty"`
	Payload   []byte    `json:"-"`
	Bytes     int       `json:"bytes"`
	Retries   int       `json:"retries"`
	Status    JobStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transport is the connection side the queue drives
type Transport interface {
	IsConnected(printerID string) bool
	Connect(printer *Printer) error
	Write(printerID string, data []byte) error
	Disconnect(printerID string) error
}

// Directory resolves printer IDs to printers
type Directory interface {
	GetPrinter(id string) *Printer
}

// PrintQueue delivers raw jobs to printers one at a time. Only connection
// failures are retried; a failed write fails the job outright so a receipt
// is never printed twice.
type PrintQueue struct {
	jobs       []*PrintJob
	mu         sync.Mutex
	transport  Transport
	printers   Directory
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration
	onUpdate   func(PrintJob)
	wake       chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewPrintQueue creates a new print queue and starts its worker
func NewPrintQueue(transport Transport, printers Directory, maxRetries int, logger *slog.Logger) *PrintQueue {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	if maxRetries < 1 {
		maxRetries = 1
	}

	q := &PrintQueue{
		jobs:       make([]*PrintJob, 0),
		transport:  transport,
		printers:   printers,
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: time.Second,
		wake:       make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
	}

	q.wg.Add(1)
	go q.worker()

	return q
}

// OnJobUpdate sets a callback invoked with a snapshot after every status change
func (q *PrintQueue) OnJobUpdate(callback func(PrintJob)) {
	q.mu.Lock()
	q.onUpdate = callback
	q.mu.Unlock()
}

// Enqueue adds a raw payload for printerID and returns the job ID
func (q *PrintQueue) Enqueue(printerID, label string, payload []byte) string {
	now := time.Now()
	job := &PrintJob{
		ID:        uuid.New().String(),
		PrinterID: printerID,
		Label:     label,
		Payload:   payload,
		Bytes:     len(payload),
		Status:    JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	q.emit(*job)

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	q.signal()

	return job.ID
}

func (q *PrintQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *PrintQueue) worker() {
	defer q.wg.Done()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
		case <-ticker.C:
		}
		for q.processNextJob() {
		}
	}
}

// processNextJob runs one queued job and reports whether it found one
func (q *PrintQueue) processNextJob() bool {
	q.mu.Lock()
	var job *PrintJob
	for _, j := range q.jobs {
		if j.Status == JobQueued {
			job = j
			job.Status = JobPrinting
			job.UpdatedAt = time.Now()
			break
		}
	}
	var snapshot PrintJob
	if job != nil {
		snapshot = *job
	}
	q.mu.Unlock()

	if job == nil {
		return false
	}
	q.emit(snapshot)

	retry, err := q.printJob(job)

	q.mu.Lock()
	job.UpdatedAt = time.Now()
	switch {
	case err == nil:
		job.Status = JobCompleted
		job.Error = ""
		q.logger.Info("print job completed", "job", job.ID, "printer", job.PrinterID, "bytes", job.Bytes)
	case retry && job.Retries+1 < q.maxRetries:
		job.Retries++
		job.Error = err.Error()
		job.Status = JobQueued
		q.logger.Warn("print job connect failed, retrying",
			"job", job.ID, "attempt", job.Retries, "max", q.maxRetries, "err", err)
	default:
		if retry {
			job.Retries++
		}
		job.Error = err.Error()
		job.Status = JobFailed
		q.logger.Error("print job failed", "job", job.ID, "retries", job.Retries, "err", err)
	}
	requeued := job.Status == JobQueued
	snapshot = *job
	q.mu.Unlock()

	q.emit(snapshot)

	if requeued {
		select {
		case <-q.ctx.Done():
		case <-time.After(q.retryDelay):
		}
	}
	return true
}

// printJob reports whether a failure may be retried
func (q *PrintQueue) printJob(job *PrintJob) (bool, error) {
	if !q.transport.IsConnected(job.PrinterID) {
		printer := q.printers.GetPrinter(job.PrinterID)
		if printer == nil {
			return false, fmt.Errorf("%w: %s", ErrPrinterUnknown, job.PrinterID)
		}

		if err := q.transport.Connect(printer); err != nil {
			return true, fmt.Errorf("connecting to printer: %w", err)
		}
	}

	if err := q.transport.Write(job.PrinterID, job.Payload); err != nil {
		// Drop the connection so the next job reconnects
		q.transport.Disconnect(job.PrinterID)
		return false, err
	}
	return false, nil
}

func (q *PrintQueue) emit(snapshot PrintJob) {
	q.mu.Lock()
	callback := q.onUpdate
	q.mu.Unlock()

	snapshot.Payload = nil
	if callback != nil {
		callback(snapshot)
	}
}

// GetJob returns a copy of a job by ID
func (q *PrintQueue) GetJob(jobID string) *PrintJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, job := range q.jobs {
		if job.ID == jobID {
			jobCopy := *job
			return &jobCopy
		}
	}

	return nil
}

// GetAllJobs returns copies of all jobs
func (q *PrintQueue) GetAllJobs() []*PrintJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]*PrintJob, len(q.jobs))
	for i, job := range q.jobs {
		jobCopy := *job
		jobs[i] = &jobCopy
	}

	return jobs
}

// ClearCompleted removes completed jobs from the queue
func (q *PrintQueue) ClearCompleted() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	filtered := make([]*PrintJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		if job.Status != JobCompleted {
			filtered = append(filtered, job)
		}
	}

	removed := len(q.jobs) - len(filtered)
	q.jobs = filtered
	return removed
}

// Stop stops the print queue worker
func (q *PrintQueue) Stop() {
	q.cancel()
	q.wg.Wait()
}
