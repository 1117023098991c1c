// Package reconcile checks an advertising targets plan against a bulk campaign export.
//
// The targets plan is a workbook whose sheets list planned (Ad ASIN, Target ASIN)
// pairings. The bulk export is a workbook whose Sponsored Display sheet carries one
// row per campaign, with both ASINs embedded in the campaign name.
//
// # Matching
//
// Both ASINs are lower-cased before comparison. Campaign names are scanned for
// b0 followed by 8 alphanumerics; the first hit is the Ad ASIN and the second the
// Target ASIN. Matching is an exact join on the pair. A pair with a missing side
// never matches.
//
// # Output columns
//
// Matched rows keep every bulk column in bulk order, with Ad ASIN and Target ASIN
// overwritten in place or appended when absent. The plan's other columns follow in
// plan order, ending with Source Tab. A plan column whose name is already a bulk
// column gets a "_target" suffix; the bulk column keeps its name. Rows are
// deduplicated on every cell, so values differing only in cell type stay distinct.
//
// Missing rows carry the plan columns unchanged.
//
// # Usage
//
//	result, err := reconcile.Reconcile(targets, bulk)
//	if errors.Is(err, reconcile.ErrMissingSheet) {
//	    // bulk export has no Display sheet
//	}
//	fmt.Println(result.Stats.MatchedRows, result.Stats.MissingRows)
//
// Reconcile is a pure function of its inputs. It holds no state between calls and
// is safe to call from several goroutines on distinct inputs.
package reconcile
