// =============================================================================
// XML Invoice Converter - Process Command
// =============================================================================
//
// This file defines the 'process' command, the main command for converting
// XML invoices to XLSX. It orchestrates the batch around the per-document
// pipeline.
//
// COMMAND USAGE:
//   invoiceconv process [flags]
//
// FLAGS:
//   --dry-run       : Parse and validate without writing output files
//   --file          : Process only the given file instead of the input dir
//   --grouping      : Enable grouping for this run (overrides config)
//   --propagation   : Enable reference propagation for this run (overrides config)
//
// PROCESSING:
//   1. Load configuration
//   2. Discover XML files in the input directory
//   3. For each file (concurrently, bounded by max_concurrency):
//      a. Run the per-document pipeline
//      b. Write the XLSX workbook
//      c. Archive the input file
//      d. Append the usage-log event
//   4. Print a summary
//
//   Each document runs in its own goroutine with fully isolated pipeline
//   state; a failure in one file never affects the others.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/officina-data/invoiceconv/internal/audit"
	"github.com/officina-data/invoiceconv/internal/config"
	"github.com/officina-data/invoiceconv/internal/converter"
	"github.com/officina-data/invoiceconv/internal/errors"
	"github.com/officina-data/invoiceconv/internal/exporter"
	"github.com/officina-data/invoiceconv/internal/logger"
	"github.com/officina-data/invoiceconv/pkg/utils"
)

// dryRun parses and validates without writing output files.
var dryRun bool

// singleFile is the path to one specific file to process.
var singleFile string

// groupingFlag and propagationFlag override the config for this run.
var groupingFlag bool
var propagationFlag bool

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process XML invoices and convert them to XLSX",
	Long: `The process command scans the input directory for XML invoice files,
runs each through the security-validation and extraction pipeline, and writes
one XLSX workbook per invoice.

On successful processing:
  - The generated workbook is placed in the output directory
  - The original XML is moved to the archive directory
  - A usage-log line is appended

On error:
  - The specific rejection reason is reported and logged
  - The original XML remains in the input directory
  - Processing continues for other files (unless continue_on_error is off)`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Parse and validate without writing output files",
	)

	processCmd.Flags().StringVar(
		&singleFile,
		"file",
		"",
		"Process only the given file instead of scanning the input directory",
	)

	processCmd.Flags().BoolVar(
		&groupingFlag,
		"grouping",
		false,
		"Enable grouping of lines sharing the same reference key",
	)

	processCmd.Flags().BoolVar(
		&propagationFlag,
		"propagation",
		false,
		"Enable carry-forward of drawing/order/DDT references",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess orchestrates the batch conversion.
func runProcess(cmd *cobra.Command) error {
	startTime := time.Now()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// CLI flags override the config only when explicitly set.
	if cmd.Flags().Changed("grouping") {
		cfg.GroupingEnabled = groupingFlag
	}
	if cmd.Flags().Changed("propagation") {
		cfg.PropagationEnabled = propagationFlag
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	usageLog, err := audit.NewWriter(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to open usage log: %w", err)
	}

	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.ArchiveDir)
	if err := fm.EnsureDirectories(); err != nil {
		return err
	}

	inputFiles, err := collectInputs(fm)
	if err != nil {
		return err
	}
	if len(inputFiles) == 0 {
		fmt.Println("No XML files found in the input directory.")
		return nil
	}

	fmt.Printf("Found %d file(s) to process\n", len(inputFiles))

	conv := converter.New(cfg, log)

	// Process files concurrently, bounded by max_concurrency. Each document
	// gets isolated pipeline state; the only shared inputs are read-only.
	var wg sync.WaitGroup
	results := make(chan fileResult, len(inputFiles))
	sem := make(chan struct{}, cfg.MaxConcurrency)

	for _, file := range inputFiles {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results <- processFile(conv, fm, usageLog, cfg, path)
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var successCount, errorCount int
	for res := range results {
		if res.err == nil {
			successCount++
			fmt.Printf("  ✓ %s -> %s (%d rows)\n", filepath.Base(res.input), filepath.Base(res.output), res.rows)
		} else {
			errorCount++
			fmt.Printf("  ✗ %s: %s\n", filepath.Base(res.input), failureReason(res.err))
		}
	}

	elapsed := time.Since(startTime)
	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total files:     %d\n", len(inputFiles))
	fmt.Printf("Successful:      %d\n", successCount)
	fmt.Printf("Errors:          %d\n", errorCount)
	fmt.Printf("Time elapsed:    %s\n", elapsed)

	if errorCount > 0 && !cfg.ContinueOnError {
		return fmt.Errorf("%d file(s) failed", errorCount)
	}
	return nil
}

// =============================================================================
// PER-FILE PROCESSING
// =============================================================================

type fileResult struct {
	input  string
	output string
	rows   int
	err    error
}

// processFile runs one document end to end: pipeline, workbook, archive,
// usage log.
func processFile(conv *converter.Converter, fm *utils.FileManager, usageLog *audit.Writer, cfg *config.Config, path string) fileResult {
	res := fileResult{input: path}

	data, err := os.ReadFile(path)
	if err != nil {
		res.err = fmt.Errorf("failed to read file: %w", err)
		return res
	}

	outcome := conv.Run(context.Background(), data, filepath.Base(path))

	// The usage log records every attempt, success or failure.
	if err := usageLog.Write(outcome.Event); err != nil {
		logger.L.Warnw("failed to write usage log", "error", err)
	}

	if !outcome.Success {
		res.err = outcome.Error
		return res
	}

	res.rows = len(outcome.Rows)
	if dryRun {
		res.output = "(dry run)"
		return res
	}

	outputPath := fm.OutputPath(cfg.OutputNameFormat, path, time.Now())
	if err := exporter.Save(outcome.Rows, outputPath); err != nil {
		res.err = err
		return res
	}
	res.output = outputPath

	if err := fm.ArchiveInput(path); err != nil {
		res.err = err
		return res
	}

	return res
}

// collectInputs returns the files for this run: the --file argument when
// given, the input directory scan otherwise.
func collectInputs(fm *utils.FileManager) ([]string, error) {
	if singleFile != "" {
		if _, err := os.Stat(singleFile); err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", singleFile, err)
		}
		return []string{singleFile}, nil
	}
	return fm.DiscoverInputFiles("*.xml")
}

// failureReason renders the most specific reason available: the user-facing
// hint when one was attached, the raw error otherwise.
func failureReason(err error) string {
	if hint := errors.Hint(err); hint != "" {
		return hint
	}
	return err.Error()
}
