// hppdctl runs a comparison offline: two local archives in, one workbook
// out, no server required.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/itamaramsalem1/hppdauto-web/internal/common"
	"github.com/itamaramsalem1/hppdauto-web/internal/job"
	"github.com/itamaramsalem1/hppdauto-web/internal/report"
	"github.com/itamaramsalem1/hppdauto-web/internal/sheet"
)

func main() {
	root := &cobra.Command{
		Use:           "hppdctl",
		Short:         "HPPD staffing comparison tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(compareCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func compareCmd() *cobra.Command {
	var (
		templatesPath string
		actualsPath   string
		dateStr       string
		outPath       string
		columnMapPath string
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare a template archive against an actual-report archive for one date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
			}
			if outPath == "" {
				outPath = fmt.Sprintf("HPPD_Comparison_%s.xlsx", date.Format("20060102"))
			}

			logger, _ := zap.NewDevelopment()
			defer func() { _ = logger.Sync() }()

			templateData, err := os.ReadFile(templatesPath)
			if err != nil {
				return fmt.Errorf("read templates archive: %w", err)
			}
			actualData, err := os.ReadFile(actualsPath)
			if err != nil {
				return fmt.Errorf("read actuals archive: %w", err)
			}

			columns, err := sheet.LoadColumnMap(columnMapPath)
			if err != nil {
				return err
			}

			cfg := common.LoadConfig()
			registry := job.NewMemoryRegistry()
			parser := sheet.NewParser(columns, cfg.Sheets.HeaderScanRows, logger)
			writer := report.NewWriter(logger)
			manager := job.NewManager(registry, parser, writer, logger,
				job.WithWorkers(1),
				job.WithJobTimeout(cfg.Jobs.JobTimeout),
			)

			ctx := cmd.Context()
			jobID := uuid.NewString()
			err = manager.Submit(ctx, job.SubmitRequest{
				JobID:        jobID,
				TargetDate:   date.UTC(),
				TemplateName: templatesPath,
				TemplateData: templateData,
				ActualName:   actualsPath,
				ActualData:   actualData,
			})
			if err != nil {
				return err
			}

			path, err := waitForArtifact(ctx, manager, jobID)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read artifact: %w", err)
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			manager.Shutdown(shutdownCtx)

			fmt.Printf("wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&templatesPath, "templates", "", "labor template archive (required)")
	cmd.Flags().StringVar(&actualsPath, "actuals", "", "actual report archive (required)")
	cmd.Flags().StringVar(&dateStr, "date", "", "target date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "output workbook path")
	cmd.Flags().StringVar(&columnMapPath, "column-map", "", "JSON column map overriding the built-in header synonyms")
	_ = cmd.MarkFlagRequired("templates")
	_ = cmd.MarkFlagRequired("actuals")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

// waitForArtifact polls the manager the same way an HTTP client would.
func waitForArtifact(ctx context.Context, manager *job.Manager, jobID string) (string, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			progress, err := manager.Status(ctx, jobID)
			if err != nil {
				return "", err
			}
			if progress.Error != "" {
				return "", fmt.Errorf("comparison failed: %s", progress.Error)
			}
			if progress.Completed {
				return manager.Artifact(ctx, jobID)
			}
		}
	}
}
