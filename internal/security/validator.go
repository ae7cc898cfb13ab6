// =============================================================================
// XML Invoice Converter - Security Validator
// =============================================================================
//
// This module gatekeeps raw input before any XML tree construction is
// attempted. Checks run in a fixed order and fail fast — the first failure
// wins and is the reason reported to the caller:
//
//   1. Size         : byte length against the configured cap
//   2. Filename     : no path separators or traversal sequences
//   3. Depth        : streaming pre-scan with a depth counter, no DOM
//   4. Entities     : any DOCTYPE or entity declaration is refused outright
//
// Steps 3 and 4 share one streaming pass (xmltree.Scan); a bomb document is
// rejected without ever being materialized. The processing timeout of the
// remaining pipeline is owned by the converter, not by this validator.
//
// On acceptance the validator hands back the SHA-256 digest of the raw bytes,
// computed exactly once and passed through unchanged to the output envelope.
//
// =============================================================================

package security

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/officina-data/invoiceconv/internal/config"
	"github.com/officina-data/invoiceconv/internal/errors"
	"github.com/officina-data/invoiceconv/internal/xmltree"
)

// Accepted is the handle returned for input that passed all checks.
type Accepted struct {
	// Filename is the validated original file name.
	Filename string

	// ContentHash is the hex SHA-256 digest of the raw bytes.
	ContentHash string

	// Size is the input length in bytes.
	Size int64
}

// Validator performs the pre-parse security checks.
type Validator struct {
	limits config.Limits
}

// NewValidator creates a validator bound to the configured limits.
func NewValidator(limits config.Limits) *Validator {
	return &Validator{limits: limits}
}

// Validate runs all checks against the raw file bytes. It returns an accepted
// handle, or the specific rejection reason for the first failed check.
func (v *Validator) Validate(data []byte, filename string) (*Accepted, error) {
	if int64(len(data)) > v.limits.MaxFileSizeBytes() {
		return nil, errors.NewErrorf("file is %d bytes, limit is %d MB", len(data), v.limits.MaxFileSizeMB).
			WithHintf("the file exceeds the %d MB size limit", v.limits.MaxFileSizeMB).
			Mark(errors.ErrFileTooLarge)
	}

	if err := checkFilename(filename); err != nil {
		return nil, err
	}

	// Depth and entity checks in a single streaming pass.
	if err := xmltree.Scan(data, v.limits.MaxXMLDepth); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	return &Accepted{
		Filename:    filename,
		ContentHash: hex.EncodeToString(sum[:]),
		Size:        int64(len(data)),
	}, nil
}

// checkFilename refuses names that could escape the upload directory when
// echoed into output or archive paths.
func checkFilename(filename string) error {
	unsafe := filename == "" ||
		strings.ContainsAny(filename, "/\\") ||
		strings.Contains(filename, "..") ||
		strings.ContainsRune(filename, 0)

	if unsafe {
		return errors.NewErrorf("unsafe filename %q", filename).
			WithHint("the filename must not contain path separators or traversal sequences").
			Mark(errors.ErrUnsafeFilename)
	}
	return nil
}
