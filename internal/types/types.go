// =============================================================================
// XML Invoice Converter - Shared Types
// =============================================================================
//
// This package contains the data model shared across the pipeline stages to
// avoid import cycles. Types defined here are used by:
//   - extractor
//   - propagation
//   - aggregator
//   - assembler
//   - converter
//
// =============================================================================

package types

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// INVOICE TYPES
// =============================================================================

// InvoiceHeader holds the document-level fields of one invoice.
// It is immutable once extracted; every output row of the document carries
// the same header values.
type InvoiceHeader struct {
	// Filename is the original input file name (no path).
	Filename string

	// ContentHash is the hex SHA-256 digest of the raw input bytes,
	// computed once before parsing and passed through for audit purposes.
	ContentHash string

	// SupplierVAT is the supplier's VAT identifier.
	SupplierVAT string

	// SupplierName is the supplier's registered name.
	SupplierName string

	// DocNumber is the invoice document number.
	DocNumber string

	// DocDate is the invoice document date, as written in the source.
	DocDate string

	// DocAmount is the total document amount. Zero when the source omits it.
	DocAmount decimal.Decimal
}

// LineItem is a single invoice line. Lines are owned exclusively by their
// parent document; document order is semantically significant because the
// propagation engine depends on it.
type LineItem struct {
	// Number is the line number: positive, unique within the document,
	// taken from the source when present and assigned sequentially from 1
	// otherwise.
	Number int

	// ArticleCode is the supplier article code. Empty when absent.
	ArticleCode string

	// Description is the line description. Empty when absent.
	Description string

	// Quantity is the invoiced quantity. Zero when absent.
	Quantity decimal.Decimal

	// Unit is the unit of measure. Empty when absent.
	Unit string

	// UnitPrice is the price per unit. Zero when absent.
	UnitPrice decimal.Decimal

	// TotalPrice is the line total. Zero when absent.
	TotalPrice decimal.Decimal

	// VATCode is the VAT rate or code for the line.
	VATCode string

	// DrawingNumber, OrderNumber and DDTNumber are the reference fields
	// subject to carry-forward propagation. Empty when absent.
	DrawingNumber string
	OrderNumber   string
	DDTNumber     string

	// Intent is the declaration-of-intent reference. Empty when absent.
	Intent string
}

// InvoiceDocument is one parsed invoice: a header plus its ordered lines.
// The propagation engine mutates only the three propagated line fields;
// afterwards the document is read-only.
type InvoiceDocument struct {
	Header InvoiceHeader
	Lines  []LineItem
}

// =============================================================================
// OUTPUT TYPES
// =============================================================================

// OutputRow is the flattened join of header fields (T_ prefix) and one line's
// fields (P_ prefix). The schema and column order are fixed; the external
// exporter consumes it verbatim.
type OutputRow struct {
	Filein     string          // T_filein
	PivaMitt   string          // T_piva_mitt
	RagsocMitt string          // T_ragsoc_mitt
	NumDoc     string          // T_num_doc
	DataDoc    string          // T_data_doc
	ImportoDoc decimal.Decimal // T_importo_doc
	NrLinea    int             // P_nr_linea
	Codart     string          // P_codart
	DescLinea  string          // P_desc_linea
	Qta        decimal.Decimal // P_qta
	Um         string          // P_um
	Przunit    decimal.Decimal // P_przunit
	PrezzoTot  decimal.Decimal // P_prezzo_tot
	Codiva     string          // P_codiva
	Nrdisegno  string          // P_nrdisegno
	Commessa   string          // P_commessa
	Nrddt      string          // P_nrddt
	Intento    string          // P_intento
}

// OutputColumns is the fixed, order-sensitive schema of the output table.
var OutputColumns = []string{
	"T_filein",
	"T_piva_mitt",
	"T_ragsoc_mitt",
	"T_num_doc",
	"T_data_doc",
	"T_importo_doc",
	"P_nr_linea",
	"P_codart",
	"P_desc_linea",
	"P_qta",
	"P_um",
	"P_przunit",
	"P_prezzo_tot",
	"P_codiva",
	"P_nrdisegno",
	"P_commessa",
	"P_nrddt",
	"P_intento",
}

// Values returns the row's cell values in column order. Numeric fields keep
// their native types so the exporter can write real numbers.
func (r OutputRow) Values() []any {
	return []any{
		r.Filein,
		r.PivaMitt,
		r.RagsocMitt,
		r.NumDoc,
		r.DataDoc,
		r.ImportoDoc.InexactFloat64(),
		r.NrLinea,
		r.Codart,
		r.DescLinea,
		r.Qta.InexactFloat64(),
		r.Um,
		r.Przunit.InexactFloat64(),
		r.PrezzoTot.InexactFloat64(),
		r.Codiva,
		r.Nrdisegno,
		r.Commessa,
		r.Nrddt,
		r.Intento,
	}
}
