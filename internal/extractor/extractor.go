// =============================================================================
// XML Invoice Converter - Invoice Extractor
// =============================================================================
//
// This module maps the parsed XML tree onto the invoice data model. The
// extraction paths are fixed and follow the FatturaPA layout:
//
//   <root>
//     FatturaElettronicaHeader
//       CedentePrestatore/DatiAnagrafici/IdFiscaleIVA/IdCodice   -> supplier VAT
//       CedentePrestatore/DatiAnagrafici/Anagrafica/Denominazione-> supplier name
//     FatturaElettronicaBody
//       DatiGenerali/DatiGeneraliDocumento/Numero                -> doc number
//       DatiGenerali/DatiGeneraliDocumento/Data                  -> doc date
//       DatiGenerali/DatiGeneraliDocumento/ImportoTotaleDocumento-> doc amount
//       DatiBeniServizi/DettaglioLinee (repeated)                -> lines
//
// Per line, the reference fields (drawing, order, DDT, intent) come from
// AltriDatiGestionali entries keyed by TipoDato:
//
//   DISEGNO -> drawing number     COMMESSA -> order number
//   N01     -> DDT number         INTENTO  -> intent
//
// Numeric coercion is locale-aware: the decimal separator is a configuration
// input, and a value that is ambiguous under the configured separator is
// rejected as invalid_numeric_field rather than guessed at.
//
// =============================================================================

package extractor

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/officina-data/invoiceconv/internal/config"
	"github.com/officina-data/invoiceconv/internal/errors"
	"github.com/officina-data/invoiceconv/internal/types"
	"github.com/officina-data/invoiceconv/internal/xmltree"
)

// Required header fields, reported by these names when missing.
const (
	FieldSupplierVAT  = "supplier_vat"
	FieldSupplierName = "supplier_name"
	FieldDocNumber    = "doc_number"
	FieldDocDate      = "doc_date"
)

// TipoDato keys used for the per-line reference fields.
const (
	tipoDrawing = "DISEGNO"
	tipoOrder   = "COMMESSA"
	tipoDDT     = "N01"
	tipoIntent  = "INTENTO"
)

// Extractor turns a structural tree into an InvoiceDocument.
type Extractor struct {
	maxLines  int
	separator string
}

// New creates an extractor bound to the configured line cap and numeric
// locale.
func New(cfg *config.Config) *Extractor {
	return &Extractor{
		maxLines:  cfg.Limits.MaxLines,
		separator: cfg.DecimalSeparator,
	}
}

// Extract locates the header section and the repeated line section and builds
// the document. filename and contentHash are carried into the header
// unchanged for traceability.
func (e *Extractor) Extract(root *xmltree.Node, filename, contentHash string) (*types.InvoiceDocument, error) {
	headerNode := root.Child("FatturaElettronicaHeader")
	bodyNode := root.Child("FatturaElettronicaBody")
	if headerNode == nil || bodyNode == nil {
		return nil, errors.NewError("document is not a FatturaPA invoice").
			WithHint("expected FatturaElettronicaHeader and FatturaElettronicaBody sections").
			Mark(errors.ErrMissingHeaderField)
	}

	header, err := e.extractHeader(headerNode, bodyNode, filename, contentHash)
	if err != nil {
		return nil, err
	}

	lines, err := e.extractLines(bodyNode)
	if err != nil {
		return nil, err
	}

	return &types.InvoiceDocument{
		Header: *header,
		Lines:  lines,
	}, nil
}

// =============================================================================
// HEADER EXTRACTION
// =============================================================================

func (e *Extractor) extractHeader(headerNode, bodyNode *xmltree.Node, filename, contentHash string) (*types.InvoiceHeader, error) {
	supplierVAT := headerNode.FindText("CedentePrestatore", "DatiAnagrafici", "IdFiscaleIVA", "IdCodice")
	supplierName := headerNode.FindText("CedentePrestatore", "DatiAnagrafici", "Anagrafica", "Denominazione")

	general := bodyNode.Find("DatiGenerali", "DatiGeneraliDocumento")
	var docNumber, docDate, rawAmount string
	if general != nil {
		docNumber = general.FindText("Numero")
		docDate = general.FindText("Data")
		rawAmount = general.FindText("ImportoTotaleDocumento")
	}

	// Required header fields: first missing one wins.
	for _, f := range []struct {
		name  string
		value string
	}{
		{FieldSupplierVAT, supplierVAT},
		{FieldSupplierName, supplierName},
		{FieldDocNumber, docNumber},
		{FieldDocDate, docDate},
	} {
		if strings.TrimSpace(f.value) == "" {
			return nil, errors.NewErrorf("header field %s is missing", f.name).
				WithHintf("the invoice is missing the required %s field", f.name).
				Mark(errors.ErrMissingHeaderField)
		}
	}

	// The document amount is optional; absent means zero, unparseable is an
	// error.
	amount := decimal.Zero
	if strings.TrimSpace(rawAmount) != "" {
		var err error
		amount, err = e.parseDecimal(rawAmount, 0, "ImportoTotaleDocumento")
		if err != nil {
			return nil, err
		}
	}

	return &types.InvoiceHeader{
		Filename:     filename,
		ContentHash:  contentHash,
		SupplierVAT:  supplierVAT,
		SupplierName: supplierName,
		DocNumber:    docNumber,
		DocDate:      docDate,
		DocAmount:    amount,
	}, nil
}

// =============================================================================
// LINE EXTRACTION
// =============================================================================

func (e *Extractor) extractLines(bodyNode *xmltree.Node) ([]types.LineItem, error) {
	container := bodyNode.Child("DatiBeniServizi")
	var lineNodes []*xmltree.Node
	if container != nil {
		lineNodes = container.ChildrenNamed("DettaglioLinee")
	}

	// Zero lines is a hard rejection, never an empty result.
	if len(lineNodes) == 0 {
		return nil, errors.NewError("no DettaglioLinee elements found").
			WithHint("the invoice contains no line items").
			Mark(errors.ErrNoLineItemsFound)
	}

	if len(lineNodes) > e.maxLines {
		return nil, errors.NewErrorf("document has %d lines, limit is %d", len(lineNodes), e.maxLines).
			WithHintf("the invoice exceeds the %d line limit", e.maxLines).
			Mark(errors.ErrTooManyLines)
	}

	lines := make([]types.LineItem, 0, len(lineNodes))
	for i, node := range lineNodes {
		line, err := e.extractLine(node, i)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}

	return lines, nil
}

// extractLine parses one DettaglioLinee element. idx is the zero-based
// document-order position, used for the line number fallback and for error
// reporting.
func (e *Extractor) extractLine(node *xmltree.Node, idx int) (*types.LineItem, error) {
	number, err := e.lineNumber(node, idx)
	if err != nil {
		return nil, err
	}

	quantity, err := e.optionalDecimal(node.FindText("Quantita"), number, "Quantita")
	if err != nil {
		return nil, err
	}
	unitPrice, err := e.optionalDecimal(node.FindText("PrezzoUnitario"), number, "PrezzoUnitario")
	if err != nil {
		return nil, err
	}
	totalPrice, err := e.optionalDecimal(node.FindText("PrezzoTotale"), number, "PrezzoTotale")
	if err != nil {
		return nil, err
	}

	line := &types.LineItem{
		Number:      number,
		ArticleCode: node.FindText("CodiceArticolo", "CodiceValore"),
		Description: node.FindText("Descrizione"),
		Quantity:    quantity,
		Unit:        node.FindText("UnitaMisura"),
		UnitPrice:   unitPrice,
		TotalPrice:  totalPrice,
		VATCode:     node.FindText("AliquotaIVA"),
	}

	e.applyReferences(node, line)
	return line, nil
}

// lineNumber takes the source NumeroLinea when present. When absent, numbers
// are assigned sequentially starting at 1 in document order: an explicit
// fallback policy, not an accident.
func (e *Extractor) lineNumber(node *xmltree.Node, idx int) (int, error) {
	raw := strings.TrimSpace(node.FindText("NumeroLinea"))
	if raw == "" {
		return idx + 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.NewErrorf("line %d: NumeroLinea %q is not a positive integer", idx+1, raw).
			WithHintf("line %d has an invalid line number", idx+1).
			Mark(errors.ErrInvalidNumericField)
	}
	return n, nil
}

// applyReferences fills the drawing/order/DDT/intent fields from the line's
// AltriDatiGestionali entries. Unknown TipoDato values are ignored.
func (e *Extractor) applyReferences(node *xmltree.Node, line *types.LineItem) {
	for _, extra := range node.ChildrenNamed("AltriDatiGestionali") {
		value := extra.FindText("RiferimentoTesto")
		switch extra.FindText("TipoDato") {
		case tipoDrawing:
			line.DrawingNumber = value
		case tipoOrder:
			line.OrderNumber = value
		case tipoDDT:
			line.DDTNumber = value
		case tipoIntent:
			line.Intent = value
		}
	}
}

// =============================================================================
// NUMERIC COERCION
// =============================================================================

// optionalDecimal treats an absent value as zero and a present but
// unparseable value as an error.
func (e *Extractor) optionalDecimal(raw string, line int, field string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	return e.parseDecimal(raw, line, field)
}

// parseDecimal coerces a numeric string under the configured decimal
// separator. A string containing the other locale's separator is ambiguous
// and rejected, never reinterpreted.
func (e *Extractor) parseDecimal(raw string, line int, field string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)

	switch e.separator {
	case "comma":
		if strings.Contains(value, ".") {
			return decimal.Zero, e.numericError(raw, line, field)
		}
		value = strings.ReplaceAll(value, ",", ".")
	default: // point
		if strings.Contains(value, ",") {
			return decimal.Zero, e.numericError(raw, line, field)
		}
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, e.numericError(raw, line, field)
	}
	return d, nil
}

func (e *Extractor) numericError(raw string, line int, field string) error {
	return errors.NewErrorf("line %d: field %s value %q is not numeric", line, field, raw).
		WithHintf("line %d has an invalid value in %s", line, field).
		Mark(errors.ErrInvalidNumericField)
}
