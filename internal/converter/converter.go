// =============================================================================
// XML Invoice Converter - Converter Module
// =============================================================================
//
// This module contains the per-document pipeline. It orchestrates the stages
// for a single invoice, strictly forward:
//
//   1. Security validation (size, filename, depth pre-scan, entity ban, hash)
//   2. Safe XML parsing into a structural tree
//   3. Invoice extraction (header + ordered lines)
//   4. Propagation of the reference fields (when enabled)
//   5. Table assembly into the fixed 18-column schema
//   6. Aggregation by reference key (when enabled)
//
// The whole run is bounded by the configured wall-clock timeout. A timed-out
// document yields processing_timeout and nothing else — partial rows are
// discarded, never returned.
//
// CONCURRENCY:
//   A Converter is safe for concurrent use. All per-document state lives in
//   the Run call; the only shared inputs are the read-only configuration and
//   the logger.
//
// =============================================================================

package converter

import (
	"context"
	"strconv"
	"time"

	"github.com/officina-data/invoiceconv/internal/aggregator"
	"github.com/officina-data/invoiceconv/internal/assembler"
	"github.com/officina-data/invoiceconv/internal/audit"
	"github.com/officina-data/invoiceconv/internal/config"
	"github.com/officina-data/invoiceconv/internal/errors"
	"github.com/officina-data/invoiceconv/internal/extractor"
	"github.com/officina-data/invoiceconv/internal/logger"
	"github.com/officina-data/invoiceconv/internal/propagation"
	"github.com/officina-data/invoiceconv/internal/security"
	"github.com/officina-data/invoiceconv/internal/types"
	"github.com/officina-data/invoiceconv/internal/xmltree"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single document.
type Result struct {
	// Filename is the original input file name.
	Filename string

	// ContentHash is the hex SHA-256 of the raw input. Empty when the input
	// was rejected before it was accepted for processing.
	ContentHash string

	// Rows is the final output table. Nil unless Success.
	Rows []types.OutputRow

	// Success indicates whether the document was fully processed.
	Success bool

	// Error contains the terminal error when Success is false.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats

	// Event is the audit record for this run, ready for the usage log.
	Event audit.Event
}

// ProcessingStats contains statistics about one document run.
type ProcessingStats struct {
	// LinesExtracted is the number of line items found in the document.
	LinesExtracted int

	// RowsEmitted is the number of output rows (post-aggregation).
	RowsEmitted int

	// ProcessingTime is the wall-clock time spent on the document.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter processes single invoice documents.
type Converter struct {
	cfg       *config.Config
	log       *logger.Logger
	validator *security.Validator
	extract   *extractor.Extractor
	propagate *propagation.Engine
	aggregate *aggregator.Aggregator
}

// New creates a Converter bound to the given configuration.
func New(cfg *config.Config, log *logger.Logger) *Converter {
	return &Converter{
		cfg:       cfg,
		log:       log,
		validator: security.NewValidator(cfg.Limits),
		extract:   extractor.New(cfg),
		propagate: propagation.New(cfg.PropagationEnabled),
		aggregate: aggregator.New(cfg.GroupingEnabled),
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline for one document under the configured timeout.
// It always returns a Result whose Event is ready for the usage log.
func (c *Converter) Run(ctx context.Context, data []byte, filename string) Result {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Limits.Timeout())
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		done <- c.pipeline(ctx, data, filename)
	}()

	select {
	case <-ctx.Done():
		// The pipeline goroutine will notice the context at its next stage
		// boundary and its partial work is discarded with it.
		err := errors.NewErrorf("processing exceeded %s", c.cfg.Limits.Timeout()).
			WithHintf("the document could not be processed within %d seconds", c.cfg.Limits.TimeoutSeconds).
			Mark(errors.ErrProcessingTimeout)
		return c.failure(filename, "", start, err)

	case out := <-done:
		if out.err != nil {
			return c.failure(filename, out.hash, start, out.err)
		}
		return c.success(filename, out, start)
	}
}

type outcome struct {
	hash  string
	lines int
	rows  []types.OutputRow
	err   error
}

// pipeline runs the stages sequentially, checking the context at every stage
// boundary so a timed-out run stops doing work promptly.
func (c *Converter) pipeline(ctx context.Context, data []byte, filename string) outcome {
	accepted, err := c.validator.Validate(data, filename)
	if err != nil {
		return outcome{err: err}
	}

	if err := stageBoundary(ctx); err != nil {
		return outcome{hash: accepted.ContentHash, err: err}
	}

	tree, err := xmltree.Parse(data, c.cfg.Limits.MaxXMLDepth)
	if err != nil {
		return outcome{hash: accepted.ContentHash, err: err}
	}

	if err := stageBoundary(ctx); err != nil {
		return outcome{hash: accepted.ContentHash, err: err}
	}

	doc, err := c.extract.Extract(tree, accepted.Filename, accepted.ContentHash)
	if err != nil {
		return outcome{hash: accepted.ContentHash, err: err}
	}

	if err := stageBoundary(ctx); err != nil {
		return outcome{hash: accepted.ContentHash, err: err}
	}

	c.propagate.Apply(doc)
	rows := c.aggregate.Apply(assembler.Assemble(doc))

	return outcome{
		hash:  accepted.ContentHash,
		lines: len(doc.Lines),
		rows:  rows,
	}
}

// stageBoundary converts an expired context into the timeout error.
func stageBoundary(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	return errors.WithError(ctx.Err()).Mark(errors.ErrProcessingTimeout)
}

// =============================================================================
// RESULT BUILDING
// =============================================================================

func (c *Converter) success(filename string, out outcome, start time.Time) Result {
	elapsed := time.Since(start)
	c.log.Infow("document processed",
		"filename", filename,
		"lines", out.lines,
		"rows", len(out.rows),
		"elapsed", elapsed,
	)

	return Result{
		Filename:    filename,
		ContentHash: out.hash,
		Rows:        out.rows,
		Success:     true,
		Stats: ProcessingStats{
			LinesExtracted: out.lines,
			RowsEmitted:    len(out.rows),
			ProcessingTime: elapsed,
		},
		Event: audit.Event{
			Timestamp:   time.Now().In(c.cfg.Location()),
			Action:      audit.ActionProcess,
			Filename:    filename,
			Status:      audit.StatusCompleted,
			Elapsed:     elapsed,
			ContentHash: out.hash,
			Message:     messageFor(out),
		},
	}
}

func (c *Converter) failure(filename, hash string, start time.Time, err error) Result {
	elapsed := time.Since(start)
	c.log.Warnw("document rejected",
		"filename", filename,
		"code", errors.CodeOf(err),
		"category", errors.CategoryOf(err),
		"elapsed", elapsed,
	)

	return Result{
		Filename:    filename,
		ContentHash: hash,
		Success:     false,
		Error:       err,
		Stats: ProcessingStats{
			ProcessingTime: elapsed,
		},
		Event: audit.Event{
			Timestamp:   time.Now().In(c.cfg.Location()),
			Action:      audit.ActionProcess,
			Filename:    filename,
			Status:      audit.StatusFailed,
			Elapsed:     elapsed,
			ContentHash: hash,
			Message:     string(errors.CategoryOf(err)) + ": " + errors.CodeOf(err),
		},
	}
}

func messageFor(out outcome) string {
	if out.lines == len(out.rows) {
		return strconv.Itoa(len(out.rows)) + " rows"
	}
	return strconv.Itoa(out.lines) + " lines grouped into " + strconv.Itoa(len(out.rows)) + " rows"
}
