// =============================================================================
// XML Invoice Converter - Propagation Engine
// =============================================================================
//
// Carry-forward of the three reference fields (drawing number, order number,
// DDT number) within one invoice document. Suppliers often fill these only on
// the first line of a block and leave the following lines empty; back office
// reconciliation needs every line stamped.
//
// The engine is a small explicit state machine: three independent slots,
// initialized empty at document start, advanced strictly forward through the
// lines in document order. State lives in a per-document value passed through
// the loop — there is no package-level storage, so any number of documents
// can be processed concurrently and results never leak across documents.
//
// =============================================================================

package propagation

import (
	"github.com/officina-data/invoiceconv/internal/types"
)

// state holds the three carry-forward slots for one document.
type state struct {
	drawing string
	order   string
	ddt     string
}

// Engine applies the carry-forward rule to a document's lines.
type Engine struct {
	enabled bool
}

// New creates an engine. When enabled is false, Apply passes every line
// through verbatim.
func New(enabled bool) *Engine {
	return &Engine{enabled: enabled}
}

// Apply walks the document's lines in order, mutating only the three
// propagated fields. For each tracked field on each line:
//
//   - non-empty value: the slot is updated, the line is unchanged
//   - empty value, slot holds one: the line takes the slot value
//   - empty value, empty slot: the line stays empty (not an error)
//
// The pass is single and strictly forward; it never looks ahead.
func (e *Engine) Apply(doc *types.InvoiceDocument) {
	if !e.enabled {
		return
	}

	st := state{}
	for i := range doc.Lines {
		line := &doc.Lines[i]
		line.DrawingNumber = carry(&st.drawing, line.DrawingNumber)
		line.OrderNumber = carry(&st.order, line.OrderNumber)
		line.DDTNumber = carry(&st.ddt, line.DDTNumber)
	}
}

// carry advances one slot and returns the value the line should hold.
func carry(slot *string, value string) string {
	if value != "" {
		*slot = value
		return value
	}
	return *slot
}
