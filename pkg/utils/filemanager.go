// =============================================================================
// XML Invoice Converter - File Manager Utility
// =============================================================================
//
// File management for the batch CLI:
//   - Discovery of XML invoice files in the input directory
//   - Archival of successfully processed inputs
//   - Output file naming from the configured format
//   - Directory management
//
// ARCHIVAL STRATEGY:
//   Input files are moved to the archive directory after successful
//   processing. Failed files remain where they are so a fixed configuration
//   or corrected file can be retried.
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the batch converter.
type FileManager struct {
	// InputDir is the directory scanned for invoice files.
	InputDir string

	// OutputDir is the directory where workbooks are written.
	OutputDir string

	// ArchiveDir is the directory processed inputs are moved to.
	ArchiveDir string
}

// NewFileManager creates a FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, archiveDir string) *FileManager {
	return &FileManager{
		InputDir:   inputDir,
		OutputDir:  outputDir,
		ArchiveDir: archiveDir,
	}
}

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.OutputDir, fm.ArchiveDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles scans the input directory for files matching the
// pattern. An empty pattern defaults to "*.xml". Directories are skipped.
func (fm *FileManager) DiscoverInputFiles(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*.xml"
	}

	matches, err := filepath.Glob(filepath.Join(fm.InputDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var files []string
	for _, file := range matches {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			files = append(files, file)
		}
	}

	return files, nil
}

// =============================================================================
// ARCHIVAL
// =============================================================================

// ArchiveInput moves a processed input file to the archive directory. A name
// collision in the archive gets a timestamp suffix instead of overwriting.
func (fm *FileManager) ArchiveInput(path string) error {
	base := filepath.Base(path)
	target := filepath.Join(fm.ArchiveDir, base)

	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		target = filepath.Join(fm.ArchiveDir, fmt.Sprintf("%s_%s%s", stem, time.Now().Format("20060102_150405"), ext))
	}

	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("failed to archive %s: %w", base, err)
	}
	return nil
}

// =============================================================================
// OUTPUT NAMING
// =============================================================================

// BuildOutputName expands the configured output name format for one input
// file. Supported placeholders:
//
//	{name}      - input file name without extension
//	{uuid}      - a random UUID
//	{timestamp} - now, formatted YYYYMMDD_HHMMSS
func BuildOutputName(format, inputName string, now time.Time) string {
	stem := strings.TrimSuffix(filepath.Base(inputName), filepath.Ext(inputName))

	name := format
	name = strings.ReplaceAll(name, "{name}", stem)
	name = strings.ReplaceAll(name, "{uuid}", uuid.NewString())
	name = strings.ReplaceAll(name, "{timestamp}", now.Format("20060102_150405"))
	return name
}

// OutputPath joins the output directory with the expanded output name.
func (fm *FileManager) OutputPath(format, inputName string, now time.Time) string {
	return filepath.Join(fm.OutputDir, BuildOutputName(format, inputName, now))
}
