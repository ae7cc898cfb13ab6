// =============================================================================
// XML Invoice Converter - Aggregator
// =============================================================================
//
// Optional grouping of output rows. Rows sharing the exact key tuple
// {filename, doc number, doc date, drawing number, order number, DDT number,
// intent} collapse into a single row: quantities and total prices are summed,
// the unit price is recomputed from the sums, and every other field is taken
// from the first member of the group. First-seen group order is preserved.
//
// Aggregation runs after propagation and assembly: propagation requires
// document-ordered lines, which grouping would destroy.
//
// Aggregating a table with no duplicate keys is a no-op, so applying the
// aggregator to already-aggregated output yields an identical table.
//
// =============================================================================

package aggregator

import (
	"strings"

	"github.com/officina-data/invoiceconv/internal/types"
)

// Aggregator groups output rows by their reference key tuple.
type Aggregator struct {
	enabled bool
}

// New creates an aggregator. When enabled is false, Apply returns its input
// unchanged.
func New(enabled bool) *Aggregator {
	return &Aggregator{enabled: enabled}
}

// Apply collapses rows sharing a group key. The input is not modified.
func (a *Aggregator) Apply(rows []types.OutputRow) []types.OutputRow {
	if !a.enabled {
		return rows
	}

	index := make(map[string]int, len(rows))
	grouped := make([]types.OutputRow, 0, len(rows))

	for _, row := range rows {
		key := groupKey(row)
		at, seen := index[key]
		if !seen {
			index[key] = len(grouped)
			grouped = append(grouped, row)
			continue
		}

		first := &grouped[at]
		first.Qta = first.Qta.Add(row.Qta)
		first.PrezzoTot = first.PrezzoTot.Add(row.PrezzoTot)
		if !first.Qta.IsZero() {
			first.Przunit = first.PrezzoTot.Div(first.Qta)
		}
		// All other fields stay as the first member set them.
	}

	return grouped
}

// groupKey builds the exact key tuple. The unit separator keeps adjacent
// fields from colliding.
func groupKey(row types.OutputRow) string {
	return strings.Join([]string{
		row.Filein,
		row.NumDoc,
		row.DataDoc,
		row.Nrdisegno,
		row.Commessa,
		row.Nrddt,
		row.Intento,
	}, "\x1f")
}
