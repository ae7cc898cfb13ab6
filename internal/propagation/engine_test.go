package propagation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/officina-data/invoiceconv/internal/types"
)

func docWithDrawings(drawings ...string) *types.InvoiceDocument {
	doc := &types.InvoiceDocument{
		Header: types.InvoiceHeader{Filename: "a.xml", DocNumber: "1"},
	}
	for i, d := range drawings {
		doc.Lines = append(doc.Lines, types.LineItem{Number: i + 1, DrawingNumber: d})
	}
	return doc
}

func drawings(doc *types.InvoiceDocument) []string {
	out := make([]string, len(doc.Lines))
	for i, l := range doc.Lines {
		out[i] = l.DrawingNumber
	}
	return out
}

func TestCarryForward(t *testing.T) {
	doc := docWithDrawings("D1", "", "")

	New(true).Apply(doc)

	assert.Equal(t, []string{"D1", "D1", "D1"}, drawings(doc))
}

func TestDisabledPassesThrough(t *testing.T) {
	doc := docWithDrawings("D1", "", "")

	New(false).Apply(doc)

	assert.Equal(t, []string{"D1", "", ""}, drawings(doc))
}

func TestNewValueReplacesSlot(t *testing.T) {
	doc := docWithDrawings("D1", "", "D2", "")

	New(true).Apply(doc)

	assert.Equal(t, []string{"D1", "D1", "D2", "D2"}, drawings(doc))
}

func TestEmptySlotStaysEmpty(t *testing.T) {
	// No non-empty value ever precedes the empty lines; nothing to carry and
	// no error.
	doc := docWithDrawings("", "", "D3")

	New(true).Apply(doc)

	assert.Equal(t, []string{"", "", "D3"}, drawings(doc))
}

func TestSlotsAreIndependent(t *testing.T) {
	doc := &types.InvoiceDocument{
		Lines: []types.LineItem{
			{Number: 1, DrawingNumber: "D1", OrderNumber: "", DDTNumber: "T1"},
			{Number: 2, DrawingNumber: "", OrderNumber: "C1", DDTNumber: ""},
			{Number: 3, DrawingNumber: "", OrderNumber: "", DDTNumber: ""},
		},
	}

	New(true).Apply(doc)

	assert.Equal(t, "D1", doc.Lines[2].DrawingNumber)
	assert.Equal(t, "C1", doc.Lines[2].OrderNumber)
	assert.Equal(t, "T1", doc.Lines[2].DDTNumber)
	// Line 1 never gets a commessa: nothing preceded it.
	assert.Equal(t, "", doc.Lines[0].OrderNumber)
}

func TestDocumentIsolation(t *testing.T) {
	engine := New(true)

	// Document A ends with a live slot value.
	docA := docWithDrawings("D9", "")
	engine.Apply(docA)
	assert.Equal(t, []string{"D9", "D9"}, drawings(docA))

	// Document B starts empty and must stay empty: state never crosses
	// document boundaries.
	docB := docWithDrawings("", "")
	engine.Apply(docB)
	assert.Equal(t, []string{"", ""}, drawings(docB))
}

func TestOnlyPropagatedFieldsTouched(t *testing.T) {
	doc := &types.InvoiceDocument{
		Lines: []types.LineItem{
			{Number: 1, DrawingNumber: "D1", Intent: "INT-1", Description: "a"},
			{Number: 2, DrawingNumber: "", Intent: "", Description: ""},
		},
	}

	New(true).Apply(doc)

	// Intent and description are not carry-forward fields.
	assert.Equal(t, "", doc.Lines[1].Intent)
	assert.Equal(t, "", doc.Lines[1].Description)
	assert.Equal(t, "D1", doc.Lines[1].DrawingNumber)
}
