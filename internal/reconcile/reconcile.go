package reconcile

import (
	"strconv"
	"strings"

	"covcheck/pkg/contracts/domain"
)

// targetSuffix is appended to target columns whose name collides with a bulk column
const targetSuffix = "_target"

// Reconcile matches the bulk export against the targets plan.
//
// Matched holds every distinct bulk row whose extracted (Ad ASIN, Target ASIN)
// pair equals a planned pair, annotated with the Source Tab of the plan sheet
// that defined it. Missing holds every planned row whose pair was not extracted
// from any bulk row. The two views are derived independently and are not
// row-level complements.
func Reconcile(targets, bulk domain.Workbook) (*domain.CoverageResult, error) {
	plan, err := FlattenTargets(targets)
	if err != nil {
		return nil, err
	}

	sheet, err := SelectBulkSheet(bulk)
	if err != nil {
		return nil, err
	}

	bulkTable, pairs, err := withAsinPairs(sheet)
	if err != nil {
		return nil, err
	}

	matched, dropped := joinMatched(bulkTable, pairs, plan)
	missing := missingTargets(plan, pairs)

	return &domain.CoverageResult{
		Matched: matched,
		Missing: missing,
		Stats: domain.CoverageStats{
			BulkSheet:         sheet.Name,
			TargetSheets:      len(targets.Sheets),
			TargetRows:        plan.Table.Len(),
			BulkRows:          bulkTable.Len(),
			MatchedRows:       matched.Len(),
			DuplicatesDropped: dropped,
			MissingRows:       missing.Len(),
		},
	}, nil
}

// Plan is the targets workbook flattened into one table
type Plan struct {
	Table domain.Table
	Rows  []domain.TargetRow
}

// FlattenTargets concatenates every sheet of the targets workbook in sheet
// order, tagging each row with its sheet name in a Source Tab column and
// lower-casing both ASIN columns. Columns are the ordered union of all sheet
// columns followed by Source Tab; a sheet without a column contributes nulls.
func FlattenTargets(targets domain.Workbook) (*Plan, error) {
	var columns []string
	seen := make(map[string]bool)
	for _, s := range targets.Sheets {
		for _, c := range s.Columns {
			if c == domain.ColumnSourceTab || seen[c] {
				continue
			}
			seen[c] = true
			columns = append(columns, c)
		}
	}
	columns = append(columns, domain.ColumnSourceTab)

	combined := domain.Table{Name: targets.Name, Columns: columns}
	adIdx := combined.ColumnIndex(domain.ColumnAdASIN)
	if adIdx < 0 {
		return nil, &MissingColumnError{Table: tableLabel(targets.Name, "targets"), Column: domain.ColumnAdASIN}
	}
	targetIdx := combined.ColumnIndex(domain.ColumnTargetASIN)
	if targetIdx < 0 {
		return nil, &MissingColumnError{Table: tableLabel(targets.Name, "targets"), Column: domain.ColumnTargetASIN}
	}
	tabIdx := len(columns) - 1

	plan := &Plan{}
	for _, s := range targets.Sheets {
		// position of each combined column in this sheet, -1 when absent
		src := make([]int, len(columns))
		for i, c := range columns {
			src[i] = s.ColumnIndex(c)
		}

		for _, row := range s.Rows {
			out := make([]domain.Cell, len(columns))
			for i, j := range src {
				if j >= 0 && j < len(row) {
					out[i] = row[j]
				}
			}
			out[adIdx] = normalizeAsin(out[adIdx])
			out[targetIdx] = normalizeAsin(out[targetIdx])
			out[tabIdx] = domain.NewCell(s.Name)

			combined.Rows = append(combined.Rows, out)
			plan.Rows = append(plan.Rows, domain.TargetRow{
				AdASIN:     out[adIdx],
				TargetASIN: out[targetIdx],
				SourceTab:  s.Name,
			})
		}
	}
	plan.Table = combined

	return plan, nil
}

// SelectBulkSheet returns the first sheet whose name contains the Display marker
func SelectBulkSheet(bulk domain.Workbook) (domain.Table, error) {
	for _, s := range bulk.Sheets {
		if strings.Contains(s.Name, domain.BulkSheetMarker) {
			return s, nil
		}
	}
	return domain.Table{}, &MissingSheetError{Marker: domain.BulkSheetMarker, Sheets: bulk.SheetNames()}
}

// withAsinPairs extracts the ASIN pair of every bulk row and writes it into
// Ad ASIN and Target ASIN columns, replacing same-named columns in place or
// appending them.
func withAsinPairs(sheet domain.Table) (domain.Table, []domain.AsinPair, error) {
	nameIdx := sheet.ColumnIndex(domain.ColumnCampaignName)
	if nameIdx < 0 {
		return domain.Table{}, nil, &MissingColumnError{Table: sheet.Name, Column: domain.ColumnCampaignName}
	}

	columns := append([]string(nil), sheet.Columns...)
	adIdx := sheet.ColumnIndex(domain.ColumnAdASIN)
	if adIdx < 0 {
		adIdx = len(columns)
		columns = append(columns, domain.ColumnAdASIN)
	}
	targetIdx := sheet.ColumnIndex(domain.ColumnTargetASIN)
	if targetIdx < 0 {
		targetIdx = len(columns)
		columns = append(columns, domain.ColumnTargetASIN)
	}

	out := domain.Table{Name: sheet.Name, Columns: columns, Rows: make([][]domain.Cell, len(sheet.Rows))}
	pairs := make([]domain.AsinPair, len(sheet.Rows))
	for i, row := range sheet.Rows {
		cells := make([]domain.Cell, len(columns))
		copy(cells, row)

		var name domain.Cell
		if nameIdx < len(row) {
			name = row[nameIdx]
		}
		pair := extractCell(name)
		cells[adIdx] = pair.Ad
		cells[targetIdx] = pair.Target

		out.Rows[i] = cells
		pairs[i] = pair
	}

	return out, pairs, nil
}

// joinMatched left-joins bulk rows onto the plan by ASIN pair and keeps only the
// rows that found a plan row, dropping exact duplicates. It returns the matched
// table and the number of duplicates dropped.
func joinMatched(bulk domain.Table, pairs []domain.AsinPair, plan *Plan) (domain.Table, int) {
	// plan columns carried onto the bulk rows, keys excluded
	var carried []int
	columns := append([]string(nil), bulk.Columns...)
	for i, c := range plan.Table.Columns {
		if c == domain.ColumnAdASIN || c == domain.ColumnTargetASIN {
			continue
		}
		carried = append(carried, i)
		if bulk.HasColumn(c) {
			c += targetSuffix
		}
		columns = append(columns, c)
	}

	byKey := make(map[domain.PairKey][]int)
	for i, r := range plan.Rows {
		p := domain.AsinPair{Ad: r.AdASIN, Target: r.TargetASIN}
		if !p.Complete() {
			continue
		}
		byKey[p.Key()] = append(byKey[p.Key()], i)
	}

	matched := domain.Table{Name: bulk.Name, Columns: columns}
	seen := make(map[string]bool)
	dropped := 0
	for i, row := range bulk.Rows {
		if !pairs[i].Complete() {
			continue
		}
		for _, pi := range byKey[pairs[i].Key()] {
			joined := make([]domain.Cell, 0, len(columns))
			joined = append(joined, row...)
			for _, ci := range carried {
				joined = append(joined, plan.Table.Rows[pi][ci])
			}

			k := rowKey(joined)
			if seen[k] {
				dropped++
				continue
			}
			seen[k] = true
			matched.Rows = append(matched.Rows, joined)
		}
	}

	return matched, dropped
}

// missingTargets returns plan rows whose pair was never extracted from the bulk
// sheet. Plan rows with an incomplete pair can never be covered.
func missingTargets(plan *Plan, pairs []domain.AsinPair) domain.Table {
	covered := make(map[domain.PairKey]bool)
	for _, p := range pairs {
		if p.Complete() {
			covered[p.Key()] = true
		}
	}

	missing := domain.Table{Name: plan.Table.Name, Columns: append([]string(nil), plan.Table.Columns...)}
	for i, r := range plan.Rows {
		p := domain.AsinPair{Ad: r.AdASIN, Target: r.TargetASIN}
		if p.Complete() && covered[p.Key()] {
			continue
		}
		missing.Rows = append(missing.Rows, plan.Table.Rows[i])
	}
	return missing
}

// rowKey encodes a row so that two rows share a key only when every cell,
// including nullness and kind, is identical.
func rowKey(row []domain.Cell) string {
	var b strings.Builder
	for _, c := range row {
		if !c.Valid {
			b.WriteString("-|")
			continue
		}
		b.WriteString(strconv.Itoa(int(c.Kind)))
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(len(c.Value)))
		b.WriteByte(':')
		b.WriteString(c.Value)
		b.WriteByte('|')
	}
	return b.String()
}

func tableLabel(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
