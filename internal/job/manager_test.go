package job_test

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/itamaramsalem1/hppdauto-web/constants"
	"github.com/itamaramsalem1/hppdauto-web/internal/common"
	"github.com/itamaramsalem1/hppdauto-web/internal/job"
	"github.com/itamaramsalem1/hppdauto-web/internal/report"
	"github.com/itamaramsalem1/hppdauto-web/internal/sheet"
)

var targetDate = time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)

func buildXLSX(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheetName := f.GetSheetName(0)
	for i, row := range rows {
		for j, cell := range row {
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheetName, ref, cell))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func buildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func staffingSheet(t *testing.T, hours, patientDays string) []byte {
	return buildXLSX(t, [][]string{
		{"Unit", "Shift", "Date", "Hours", "Patient Days"},
		{"ICU", "Day", "2024-01-10", hours, patientDays},
	})
}

func newTestManager(t *testing.T, opts ...job.Option) (*job.Manager, *job.MemoryRegistry) {
	t.Helper()
	registry := job.NewMemoryRegistry()
	parser := sheet.NewParser(sheet.DefaultColumnMap(), 10, zap.NewNop())
	writer := report.NewWriter(zap.NewNop())
	base := []job.Option{
		job.WithWorkers(1),
		job.WithArtifactDir(t.TempDir()),
		job.WithJobTimeout(30 * time.Second),
	}
	m := job.NewManager(registry, parser, writer, zap.NewNop(), append(base, opts...)...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m.Shutdown(ctx)
	})
	return m, registry
}

func waitTerminal(t *testing.T, m *job.Manager, id string) {
	t.Helper()
	require.Eventually(t, func() bool {
		p, err := m.Status(context.Background(), id)
		if err != nil {
			return false
		}
		return p.Completed || p.Error != ""
	}, 10*time.Second, 20*time.Millisecond)
}

func TestManager_SubmitRunsPipelineToCompletion(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)
	ctx := context.Background()

	templates := buildZip(t, map[string][]byte{"icu.xlsx": staffingSheet(t, "48", "12")})
	actuals := buildZip(t, map[string][]byte{"icu.xlsx": staffingSheet(t, "54", "12")})

	require.NoError(t, m.Submit(ctx, job.SubmitRequest{
		JobID:        "run-1",
		TargetDate:   targetDate,
		TemplateName: "templates.zip",
		TemplateData: templates,
		ActualName:   "actuals.zip",
		ActualData:   actuals,
	}))
	waitTerminal(t, m, "run-1")

	p, err := m.Status(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, p.Completed)
	assert.Equal(t, 100, p.Percent)
	assert.Equal(t, "Report ready", p.StatusMessage)
	assert.True(t, p.ArtifactAvailable)
	assert.Empty(t, p.Error)

	path, err := m.Artifact(ctx, "run-1")
	require.NoError(t, err)
	assert.Contains(t, path, "HPPD_Comparison_20240110.xlsx")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()
	assert.ElementsMatch(t, []string{"Summary", "Detail", "Roles", "Exceptions"}, wb.GetSheetList())
}

func TestManager_ArtifactFetchesAreIdempotent(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)
	ctx := context.Background()

	archive := buildZip(t, map[string][]byte{"icu.xlsx": staffingSheet(t, "48", "12")})
	require.NoError(t, m.Submit(ctx, job.SubmitRequest{
		JobID:        "idem-1",
		TargetDate:   targetDate,
		TemplateName: "t.zip",
		TemplateData: archive,
		ActualName:   "a.zip",
		ActualData:   archive,
	}))
	waitTerminal(t, m, "idem-1")

	first, err := m.Artifact(ctx, "idem-1")
	require.NoError(t, err)
	second, err := m.Artifact(ctx, "idem-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestManager_InvalidArchiveFailsSynchronously(t *testing.T) {
	t.Parallel()
	m, registry := newTestManager(t)
	ctx := context.Background()

	err := m.Submit(ctx, job.SubmitRequest{
		JobID:        "bad-1",
		TargetDate:   targetDate,
		TemplateName: "t.zip",
		TemplateData: []byte("not a zip"),
		ActualName:   "a.zip",
		ActualData:   buildZip(t, map[string][]byte{"icu.xlsx": staffingSheet(t, "48", "12")}),
	})
	require.ErrorIs(t, err, common.ErrInvalidArchive)

	// Rejected submissions never reach the registry.
	_, err = registry.Get(ctx, "bad-1")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestManager_ZeroEligibleFilesFailsSynchronously(t *testing.T) {
	t.Parallel()
	m, registry := newTestManager(t)
	ctx := context.Background()

	empty := buildZip(t, map[string][]byte{"notes.txt": []byte("nothing here")})
	err := m.Submit(ctx, job.SubmitRequest{
		JobID:        "empty-1",
		TargetDate:   targetDate,
		TemplateName: "t.zip",
		TemplateData: empty,
		ActualName:   "a.zip",
		ActualData:   empty,
	})
	require.ErrorIs(t, err, common.ErrInvalidArchive)

	_, err = registry.Get(ctx, "empty-1")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestManager_AllOffDateRowsFailWithNoUsableData(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)
	ctx := context.Background()

	offDate := buildXLSX(t, [][]string{
		{"Unit", "Shift", "Date", "Hours", "Patient Days"},
		{"ICU", "Day", "2024-02-01", "48", "12"},
	})
	archive := buildZip(t, map[string][]byte{"icu.xlsx": offDate})

	require.NoError(t, m.Submit(ctx, job.SubmitRequest{
		JobID:        "nodata-1",
		TargetDate:   targetDate,
		TemplateName: "t.zip",
		TemplateData: archive,
		ActualName:   "a.zip",
		ActualData:   archive,
	}))
	waitTerminal(t, m, "nodata-1")

	p, err := m.Status(ctx, "nodata-1")
	require.NoError(t, err)
	assert.False(t, p.Completed)
	assert.Contains(t, p.Error, "no staffing records")

	_, err = m.Artifact(ctx, "nodata-1")
	require.ErrorIs(t, err, common.ErrNotReady)
}

func TestManager_TimedOutJobStillReachesFailed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry := openSQLiteRegistry(t)
	parser := sheet.NewParser(sheet.DefaultColumnMap(), 10, zap.NewNop())
	writer := report.NewWriter(zap.NewNop())
	m := job.NewManager(registry, parser, writer, zap.NewNop(),
		job.WithWorkers(1),
		job.WithArtifactDir(t.TempDir()),
		job.WithJobTimeout(time.Nanosecond))
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m.Shutdown(shutdownCtx)
	})

	archive := buildZip(t, map[string][]byte{"icu.xlsx": staffingSheet(t, "48", "12")})
	require.NoError(t, m.Submit(ctx, job.SubmitRequest{
		JobID:        "timeout-1",
		TargetDate:   targetDate,
		TemplateName: "t.zip",
		TemplateData: archive,
		ActualName:   "a.zip",
		ActualData:   archive,
	}))

	// The expired pipeline context must not stop the failure from being
	// recorded; the job has to land in a terminal state with an error.
	require.Eventually(t, func() bool {
		j, err := registry.Get(ctx, "timeout-1")
		return err == nil && j.State.Terminal()
	}, 10*time.Second, 20*time.Millisecond)

	j, err := registry.Get(ctx, "timeout-1")
	require.NoError(t, err)
	assert.Equal(t, constants.JobStateFailed, j.State)
	assert.Contains(t, j.Error, "timed out")
	require.NotNil(t, j.FinishedAt)

	_, err = m.Artifact(ctx, "timeout-1")
	require.ErrorIs(t, err, common.ErrNotReady)
}

func TestManager_SubmitRejectsMissingFields(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)
	ctx := context.Background()

	err := m.Submit(ctx, job.SubmitRequest{JobID: "  ", TargetDate: targetDate})
	require.ErrorIs(t, err, common.ErrInvalidInput)

	err = m.Submit(ctx, job.SubmitRequest{JobID: "no-date"})
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestManager_DuplicateJobIDRejected(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)
	ctx := context.Background()

	archive := buildZip(t, map[string][]byte{"icu.xlsx": staffingSheet(t, "48", "12")})
	req := job.SubmitRequest{
		JobID:        "dup-1",
		TargetDate:   targetDate,
		TemplateName: "t.zip",
		TemplateData: archive,
		ActualName:   "a.zip",
		ActualData:   archive,
	}
	require.NoError(t, m.Submit(ctx, req))
	require.ErrorIs(t, m.Submit(ctx, req), common.ErrInvalidInput)
}

func TestManager_UnknownJob_ReturnsNotFound(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Status(ctx, "ghost")
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = m.Artifact(ctx, "ghost")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestManager_ArtifactBeforeCompletion_ReturnsNotReady(t *testing.T) {
	t.Parallel()
	registry := job.NewMemoryRegistry()
	require.NoError(t, registry.Create(context.Background(), pendingJob("pending-1")))

	parser := sheet.NewParser(sheet.DefaultColumnMap(), 10, zap.NewNop())
	writer := report.NewWriter(zap.NewNop())
	m := job.NewManager(registry, parser, writer, zap.NewNop(), job.WithWorkers(1))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m.Shutdown(ctx)
	})

	_, err := m.Artifact(context.Background(), "pending-1")
	require.ErrorIs(t, err, common.ErrNotReady)
}

func TestManager_ShutdownDrainsQueuedJobs(t *testing.T) {
	t.Parallel()
	registry := job.NewMemoryRegistry()
	parser := sheet.NewParser(sheet.DefaultColumnMap(), 10, zap.NewNop())
	writer := report.NewWriter(zap.NewNop())
	m := job.NewManager(registry, parser, writer, zap.NewNop(),
		job.WithWorkers(1), job.WithArtifactDir(t.TempDir()))

	ctx := context.Background()
	archive := buildZip(t, map[string][]byte{"icu.xlsx": staffingSheet(t, "48", "12")})
	require.NoError(t, m.Submit(ctx, job.SubmitRequest{
		JobID:        "drain-1",
		TargetDate:   targetDate,
		TemplateName: "t.zip",
		TemplateData: archive,
		ActualName:   "a.zip",
		ActualData:   archive,
	}))

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	m.Shutdown(shutdownCtx)

	j, err := registry.Get(ctx, "drain-1")
	require.NoError(t, err)
	assert.True(t, j.State.Terminal(), "queued work must reach a terminal state before shutdown returns")

	// Submissions after shutdown are refused and leave no registry entry.
	err = m.Submit(ctx, job.SubmitRequest{
		JobID:        "late-1",
		TargetDate:   targetDate,
		TemplateName: "t.zip",
		TemplateData: archive,
		ActualName:   "a.zip",
		ActualData:   archive,
	})
	require.Error(t, err)
	_, err = registry.Get(ctx, "late-1")
	require.ErrorIs(t, err, common.ErrNotFound)
}
