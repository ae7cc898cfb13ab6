// =============================================================================
// XML Invoice Converter - Main Entry Point
// =============================================================================
//
// CLI tool that converts XML B2B invoices (FatturaPA format) into flat XLSX
// tables for accounting reconciliation.
//
// USAGE:
//   invoiceconv process       - Process all XML invoices in the input directory
//   invoiceconv version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Core pipeline (security, parsing, extraction,
//                      propagation, aggregation, assembly, export)
//   - pkg/           : Shared utilities
//
// =============================================================================

package main

import (
	"github.com/officina-data/invoiceconv/cmd"
)

func main() {
	cmd.Execute()
}
