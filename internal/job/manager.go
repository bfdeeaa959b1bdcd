package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/itamaramsalem1/hppdauto-web/constants"
	"github.com/itamaramsalem1/hppdauto-web/internal/archive"
	"github.com/itamaramsalem1/hppdauto-web/internal/common"
	"github.com/itamaramsalem1/hppdauto-web/internal/compare"
	"github.com/itamaramsalem1/hppdauto-web/internal/entity"
	"github.com/itamaramsalem1/hppdauto-web/internal/report"
	"github.com/itamaramsalem1/hppdauto-web/internal/sheet"
)

// SubmitRequest carries everything one comparison run needs.
type SubmitRequest struct {
	JobID        string
	TargetDate   time.Time
	TemplateName string
	TemplateData []byte
	ActualName   string
	ActualData   []byte
}

// task is the unit of work handed to the pool. Archives are validated and
// unpacked at submit time, so workers start from extracted files.
type task struct {
	jobID      string
	targetDate time.Time
	templates  []archive.File
	actuals    []archive.File
	warnings   []entity.Warning
}

// Manager drives the extract -> parse -> match -> write pipeline for each
// submitted job and owns progress, artifacts, and retention.
type Manager struct {
	registry Registry
	parser   *sheet.Parser
	writer   *report.Writer
	logger   *zap.Logger

	workers     int
	jobTimeout  time.Duration
	retention   time.Duration
	artifactDir string

	ch   chan task
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool

	janitorStop chan struct{}
}

type Option func(*Manager)

func WithWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.ch = make(chan task, n)
		}
	}
}

func WithJobTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.jobTimeout = d
		}
	}
}

func WithRetention(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.retention = d
		}
	}
}

func WithArtifactDir(dir string) Option {
	return func(m *Manager) {
		if dir != "" {
			m.artifactDir = dir
		}
	}
}

func NewManager(registry Registry, parser *sheet.Parser, writer *report.Writer, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		registry:    registry,
		parser:      parser,
		writer:      writer,
		logger:      logger,
		workers:     4,
		jobTimeout:  5 * time.Minute,
		retention:   time.Hour,
		artifactDir: os.TempDir(),
		ch:          make(chan task, 64),
		janitorStop: make(chan struct{}),
	}
	for _, o := range opts {
		o(m)
	}
	m.start()
	return m
}

func (m *Manager) start() {
	m.once.Do(func() {
		for i := 0; i < m.workers; i++ {
			m.wg.Add(1)
			go func(workerID int) {
				defer m.wg.Done()
				m.logger.Info("worker started", zap.Int("worker_id", workerID))
				for t := range m.ch {
					ctx, cancel := context.WithTimeout(context.Background(), m.jobTimeout)
					m.run(ctx, t)
					cancel()
				}
				m.logger.Info("worker stopped", zap.Int("worker_id", workerID))
			}(i + 1)
		}
		go m.janitor()
	})
}

// Submit validates the request synchronously and, only if everything
// checks out, creates the job and queues it. A validation failure never
// touches the registry.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) error {
	if strings.TrimSpace(req.JobID) == "" {
		return common.NewAppError("SUBMIT_ID", "job id is required", common.ErrInvalidInput)
	}
	if req.TargetDate.IsZero() {
		return common.NewAppError("SUBMIT_DATE", "target date is required", common.ErrInvalidInput)
	}

	templates, templateWarnings, err := archive.Extract(req.TemplateName, req.TemplateData)
	if err != nil {
		return common.WrapError(err, "template archive")
	}
	actuals, actualWarnings, err := archive.Extract(req.ActualName, req.ActualData)
	if err != nil {
		return common.WrapError(err, "actual archive")
	}

	now := nowUTC()
	j := entity.Job{
		ID:            req.JobID,
		State:         constants.JobStatePending,
		Percent:       0,
		StatusMessage: "Queued",
		TargetDate:    req.TargetDate,
		CreatedAt:     now,
	}
	if err := m.registry.Create(ctx, j); err != nil {
		return err
	}

	t := task{
		jobID:      req.JobID,
		targetDate: req.TargetDate,
		templates:  templates,
		actuals:    actuals,
		warnings:   append(templateWarnings, actualWarnings...),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		_ = m.registry.Delete(ctx, req.JobID)
		return common.NewAppError("SUBMIT_SHUTDOWN", "manager is shutting down", common.ErrInternal)
	}
	m.ch <- t

	m.logger.Info("job.submit.ok",
		zap.String("job_id", req.JobID),
		zap.String("date", req.TargetDate.Format("2006-01-02")),
		zap.Int("template_files", len(templates)),
		zap.Int("actual_files", len(actuals)),
	)
	return nil
}

// Status returns the poller view of one job. Read-only; never blocks on
// the job's execution.
func (m *Manager) Status(ctx context.Context, id string) (entity.Progress, error) {
	j, err := m.registry.Get(ctx, id)
	if err != nil {
		return entity.Progress{}, err
	}
	return entity.Progress{
		Percent:           j.Percent,
		StatusMessage:     j.StatusMessage,
		Completed:         j.State == constants.JobStateCompleted,
		ArtifactAvailable: j.State == constants.JobStateCompleted && j.ResultPath != "",
		Error:             j.Error,
	}, nil
}

// Artifact returns the workbook path for a completed job. The same single
// file backs every fetch, so concurrent downloads see identical bytes.
func (m *Manager) Artifact(ctx context.Context, id string) (string, error) {
	j, err := m.registry.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if j.State != constants.JobStateCompleted || j.ResultPath == "" {
		return "", common.ErrNotReady
	}
	return j.ResultPath, nil
}

// run executes the pipeline for one job. Checkpoints: 10% extracted, 40%
// parsed, 70% matched and computed, 100% written.
func (m *Manager) run(ctx context.Context, t task) {
	log := m.logger.With(zap.String("job_id", t.jobID))

	m.progress(t.jobID, constants.JobStateRunning, 10, "Extracted archives")

	var (
		templates []entity.StaffingRecord
		actuals   []entity.StaffingRecord
		warnings  = t.warnings
	)
	parseAll := func(files []archive.File, source constants.RecordSource) []entity.StaffingRecord {
		var out []entity.StaffingRecord
		for _, file := range files {
			records, fileWarnings, err := m.parser.ParseFile(file.Name, file.Data, source, t.targetDate)
			if err != nil {
				// Per-file failure: record it and keep going.
				warnings = append(warnings, entity.Warning{
					File:     file.Name,
					Reason:   err.Error(),
					Category: entity.WarnCategoryFileError,
				})
				continue
			}
			warnings = append(warnings, fileWarnings...)
			out = append(out, records...)
		}
		return out
	}
	templates = parseAll(t.templates, constants.SourceTemplate)
	if ctx.Err() != nil {
		m.fail(t.jobID, log, fmt.Errorf("job timed out during parsing: %w", common.ErrInternal))
		return
	}
	actuals = parseAll(t.actuals, constants.SourceActual)
	if ctx.Err() != nil {
		m.fail(t.jobID, log, fmt.Errorf("job timed out during parsing: %w", common.ErrInternal))
		return
	}

	if len(templates)+len(actuals) == 0 {
		m.fail(t.jobID, log, common.NewAppError("JOB_NO_DATA",
			fmt.Sprintf("no staffing records for %s survived parsing", t.targetDate.Format("2006-01-02")),
			common.ErrNoUsableData))
		return
	}
	m.progress(t.jobID, constants.JobStateRunning, 40, "Parsed spreadsheets")

	comparisons := compare.Match(templates, actuals)
	m.progress(t.jobID, constants.JobStateRunning, 70, "Computed HPPD variance")

	result := entity.RunResult{
		TargetDate:    t.targetDate,
		Comparisons:   comparisons,
		Warnings:      warnings,
		TemplateFiles: len(t.templates),
		ActualFiles:   len(t.actuals),
		RecordCount:   len(templates) + len(actuals),
	}
	data, err := m.writer.WriteWorkbook(result)
	if err != nil {
		m.fail(t.jobID, log, fmt.Errorf("writing workbook: %w", errors.Join(err, common.ErrInternal)))
		return
	}

	path, err := m.saveArtifact(t, data)
	if err != nil {
		m.fail(t.jobID, log, fmt.Errorf("saving artifact: %w", errors.Join(err, common.ErrInternal)))
		return
	}

	m.complete(t.jobID, path)
	log.Info("job.complete",
		zap.Int("comparisons", len(comparisons)),
		zap.Int("warnings", len(warnings)),
		zap.String("artifact", path),
	)
}

// saveArtifact writes the workbook under a job-scoped directory so purge
// can remove everything for the job in one call.
func (m *Manager) saveArtifact(t task, data []byte) (string, error) {
	dir := filepath.Join(m.artifactDir, "hppd-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("HPPD_Comparison_%s.xlsx", t.targetDate.Format("20060102"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return "", err
	}
	return path, nil
}

// updateContext backs registry state writes. It is detached from the
// job's pipeline context so a timed-out pipeline can still record its
// terminal state instead of leaking a forever-Running row.
func updateContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// progress records a checkpoint. Percent is clamped monotonic and
// terminal states are never overwritten, so a stale update can only be a
// no-op.
func (m *Manager) progress(id string, state constants.JobState, percent int, message string) {
	ctx, cancel := updateContext()
	defer cancel()
	j, err := m.registry.Get(ctx, id)
	if err != nil {
		m.logger.Warn("job.progress.lookup_failed", zap.String("job_id", id), zap.Error(err))
		return
	}
	if j.State.Terminal() {
		return
	}
	if percent < j.Percent {
		percent = j.Percent
	}
	j.State = state
	j.Percent = percent
	j.StatusMessage = message
	if err := m.registry.Update(ctx, j); err != nil {
		m.logger.Warn("job.progress.update_failed", zap.String("job_id", id), zap.Error(err))
	}
}

func (m *Manager) complete(id, resultPath string) {
	ctx, cancel := updateContext()
	defer cancel()
	j, err := m.registry.Get(ctx, id)
	if err != nil || j.State.Terminal() {
		return
	}
	finished := nowUTC()
	j.State = constants.JobStateCompleted
	j.Percent = 100
	j.StatusMessage = "Report ready"
	j.ResultPath = resultPath
	j.FinishedAt = &finished
	if err := m.registry.Update(ctx, j); err != nil {
		m.logger.Warn("job.complete.update_failed", zap.String("job_id", id), zap.Error(err))
	}
}

func (m *Manager) fail(id string, log *zap.Logger, cause error) {
	log.Error("job.failed", zap.Error(cause))
	ctx, cancel := updateContext()
	defer cancel()
	j, err := m.registry.Get(ctx, id)
	if err != nil || j.State.Terminal() {
		return
	}
	finished := nowUTC()
	j.State = constants.JobStateFailed
	j.StatusMessage = "Failed"
	j.Error = cause.Error()
	j.FinishedAt = &finished
	if err := m.registry.Update(ctx, j); err != nil {
		m.logger.Warn("job.fail.update_failed", zap.String("job_id", id), zap.Error(err))
	}
}

// janitor purges terminal jobs and their artifacts once the retention
// window elapses.
func (m *Manager) janitor() {
	interval := m.retention / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.janitorStop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	jobs, err := m.registry.List(ctx)
	if err != nil {
		m.logger.Warn("janitor.list_failed", zap.Error(err))
		return
	}
	cutoff := nowUTC().Add(-m.retention)
	for _, j := range jobs {
		if !j.State.Terminal() || j.FinishedAt == nil || j.FinishedAt.After(cutoff) {
			continue
		}
		if j.ResultPath != "" {
			if err := os.RemoveAll(filepath.Dir(j.ResultPath)); err != nil {
				m.logger.Warn("janitor.artifact_remove_failed",
					zap.String("job_id", j.ID), zap.Error(err))
			}
		}
		if err := m.registry.Delete(ctx, j.ID); err != nil && !errors.Is(err, common.ErrNotFound) {
			m.logger.Warn("janitor.delete_failed", zap.String("job_id", j.ID), zap.Error(err))
			continue
		}
		m.logger.Info("job.purged", zap.String("job_id", j.ID))
	}
}

// Shutdown stops accepting submissions, drains queued jobs, and stops the
// janitor. Jobs already queued still run to a terminal state.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.ch)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); m.wg.Wait() }()

	select {
	case <-ctx.Done():
		m.logger.Warn("shutdown interrupted by context")
	case <-done:
		m.logger.Info("queue drained, shutdown complete")
	}
	close(m.janitorStop)
}
