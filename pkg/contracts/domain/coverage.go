package domain

// Column names shared by the targets plan and the bulk export
const (
	ColumnAdASIN       = "Ad ASIN"
	ColumnTargetASIN   = "Target ASIN"
	ColumnSourceTab    = "Source Tab"
	ColumnCampaignName = "Campaign Name (Informational only)"
)

// BulkSheetMarker is the substring identifying the Sponsored Display sheet of a bulk export
const BulkSheetMarker = "Display"

// AsinPair is the lower-cased (Ad ASIN, Target ASIN) join key.
// Either side may be null when it could not be extracted.
type AsinPair struct {
	Ad     Cell
	Target Cell
}

// Complete reports whether both ASINs are present. Only complete pairs take part in matching.
func (p AsinPair) Complete() bool {
	return p.Ad.Valid && p.Target.Valid
}

// Key returns a comparable form of a complete pair
func (p AsinPair) Key() PairKey {
	return PairKey{Ad: p.Ad.Value, Target: p.Target.Value}
}

// PairKey is the map key form of a complete AsinPair
type PairKey struct {
	Ad     string
	Target string
}

// TargetRow is one planned pairing from the targets workbook
type TargetRow struct {
	AdASIN     Cell
	TargetASIN Cell
	SourceTab  string
}

// CoverageStats summarises one reconciliation run
type CoverageStats struct {
	BulkSheet         string `json:"bulk_sheet"`
	TargetSheets      int    `json:"target_sheets"`
	TargetRows        int    `json:"target_rows"`
	BulkRows          int    `json:"bulk_rows"`
	MatchedRows       int    `json:"matched_rows"`
	DuplicatesDropped int    `json:"duplicates_dropped"`
	MissingRows       int    `json:"missing_rows"`
}

// CoverageResult holds the two derived views of a run: bulk rows matched to a
// planned target, and planned targets with no bulk row at all.
type CoverageResult struct {
	Matched Table
	Missing Table
	Stats   CoverageStats
}
