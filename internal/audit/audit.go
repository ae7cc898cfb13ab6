// =============================================================================
// XML Invoice Converter - Usage Audit Trail
// =============================================================================
//
// One structured event per processed document. The conversion core only
// builds the event; writing it is the caller's job (the CLI appends it to the
// usage log). The serialized form is a single pipe-delimited line:
//
//   2026-01-15 10:42:03 | XML_CONVERTER | XMLC_v2 | PROCESS | in.xml | COMPLETED | 412ms | <hash> | 12 rows
//
// =============================================================================

package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// AppName and AppCode identify this application in shared usage logs.
	AppName = "XML_CONVERTER"
	AppCode = "XMLC_v2"

	// ActionProcess is the only action the converter emits.
	ActionProcess = "PROCESS"

	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Event is the audit record for one document.
type Event struct {
	Timestamp   time.Time
	Action      string
	Filename    string
	Status      string
	Elapsed     time.Duration
	ContentHash string
	Message     string
}

// Line serializes the event as the pipe-delimited usage-log format. Pipe
// characters inside fields are replaced so the line stays parseable.
func (e Event) Line() string {
	fields := []string{
		e.Timestamp.Format("2006-01-02 15:04:05"),
		AppName,
		AppCode,
		e.Action,
		sanitize(e.Filename),
		e.Status,
		e.Elapsed.Round(time.Millisecond).String(),
		e.ContentHash,
		sanitize(e.Message),
	}
	return strings.Join(fields, " | ")
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, "|", "/")
}

// =============================================================================
// WRITER
// =============================================================================

// Writer appends events to the usage log file.
type Writer struct {
	path string
}

// NewWriter creates a writer for the given log path, creating the parent
// directory if needed.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &Writer{path: path}, nil
}

// Write appends one event line. The file is opened per write so concurrent
// batch workers each get an atomic O_APPEND write.
func (w *Writer) Write(event Event) error {
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open usage log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(event.Line() + "\n"); err != nil {
		return fmt.Errorf("failed to write usage log: %w", err)
	}
	return nil
}
