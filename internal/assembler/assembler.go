// =============================================================================
// XML Invoice Converter - Table Assembler
// =============================================================================
//
// Pure mapping from an invoice document to the fixed 18-column output schema:
// header fields prefixed T_, line fields prefixed P_, one row per line. No
// business logic lives here — only field renaming and column ordering. The
// resulting rows go to the aggregator and then unchanged to the exporter.
//
// =============================================================================

package assembler

import (
	"github.com/samber/lo"

	"github.com/officina-data/invoiceconv/internal/types"
)

// Assemble flattens the document into output rows, one per line, in document
// order. Every row carries identical header fields.
func Assemble(doc *types.InvoiceDocument) []types.OutputRow {
	return lo.Map(doc.Lines, func(line types.LineItem, _ int) types.OutputRow {
		return types.OutputRow{
			Filein:     doc.Header.Filename,
			PivaMitt:   doc.Header.SupplierVAT,
			RagsocMitt: doc.Header.SupplierName,
			NumDoc:     doc.Header.DocNumber,
			DataDoc:    doc.Header.DocDate,
			ImportoDoc: doc.Header.DocAmount,
			NrLinea:    line.Number,
			Codart:     line.ArticleCode,
			DescLinea:  line.Description,
			Qta:        line.Quantity,
			Um:         line.Unit,
			Przunit:    line.UnitPrice,
			PrezzoTot:  line.TotalPrice,
			Codiva:     line.VATCode,
			Nrdisegno:  line.DrawingNumber,
			Commessa:   line.OrderNumber,
			Nrddt:      line.DDTNumber,
			Intento:    line.Intent,
		}
	})
}
