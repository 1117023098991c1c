package reconcile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covcheck/pkg/contracts/domain"
)

const (
	asinA = "b0aaaaaaaa"
	asinB = "b0bbbbbbbb"
	asinC = "b0cccccccc"
	asinD = "b0dddddddd"
)

// sheet builds a table where an empty string is a null cell
func sheet(name string, columns []string, rows ...[]string) domain.Table {
	t := domain.Table{Name: name, Columns: columns}
	for _, r := range rows {
		cells := make([]domain.Cell, len(columns))
		for i := range columns {
			if i < len(r) && r[i] != "" {
				cells[i] = domain.NewCell(r[i])
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

func targetsBook(sheets ...domain.Table) domain.Workbook {
	return domain.Workbook{Name: "targets.xlsx", Sheets: sheets}
}

func bulkBook(campaigns ...string) domain.Workbook {
	rows := make([][]string, len(campaigns))
	for i, c := range campaigns {
		rows[i] = []string{"Campaign", c, "enabled"}
	}
	return domain.Workbook{
		Name: "bulk.xlsx",
		Sheets: []domain.Table{
			sheet("Sponsored Products Campaigns", []string{"Entity"}, []string{"Campaign"}),
			sheet("Sponsored Display Campaigns", []string{"Entity", domain.ColumnCampaignName, "State"}, rows...),
		},
	}
}

var planColumns = []string{domain.ColumnAdASIN, domain.ColumnTargetASIN}

func column(t domain.Table, name string) []string {
	idx := t.ColumnIndex(name)
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		if idx >= 0 && r[idx].Valid {
			out[i] = r[idx].Value
		} else {
			out[i] = "<null>"
		}
	}
	return out
}

func TestExtractAsinPair(t *testing.T) {
	tests := []struct {
		name       string
		campaign   string
		wantAd     *string
		wantTarget *string
	}{
		{
			name:       "three matches keeps first two",
			campaign:   "Camp b0aaaaaaaa b0bbbbbbbb b0cccccccc",
			wantAd:     strPtr(asinA),
			wantTarget: strPtr(asinB),
		},
		{
			name:     "single match",
			campaign: "Camp b0aaaaaaaa",
			wantAd:   strPtr(asinA),
		},
		{
			name:     "no match",
			campaign: "Camp none",
		},
		{
			name:       "upper case is lowered before matching",
			campaign:   "SD | B0AAAAAAAA > B0BBBBBBBB | PRD",
			wantAd:     strPtr(asinA),
			wantTarget: strPtr(asinB),
		},
		{
			name:       "adjacent asins without separator",
			campaign:   "b0aaaaaaaab0bbbbbbbb",
			wantAd:     strPtr(asinA),
			wantTarget: strPtr(asinB),
		},
		{
			name:     "too short is not an asin",
			campaign: "Camp b0aaaa",
		},
		{
			name:     "empty",
			campaign: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractAsinPair(tt.campaign)
			assert.Equal(t, tt.wantAd, got.Ad.Ptr())
			assert.Equal(t, tt.wantTarget, got.Target.Ptr())
		})
	}
}

func TestReconcile_EndToEnd(t *testing.T) {
	targets := targetsBook(sheet("TabA", planColumns, []string{"B0AAAAAAAA", "B0BBBBBBBB"}))
	bulk := bulkBook("X b0aaaaaaaa b0bbbbbbbb Y")

	res, err := Reconcile(targets, bulk)
	require.NoError(t, err)

	require.Equal(t, 1, res.Matched.Len())
	assert.Equal(t, []string{"TabA"}, column(res.Matched, domain.ColumnSourceTab))
	assert.Equal(t, []string{asinA}, column(res.Matched, domain.ColumnAdASIN))
	assert.Equal(t, []string{asinB}, column(res.Matched, domain.ColumnTargetASIN))
	assert.Equal(t, 0, res.Missing.Len())

	assert.Equal(t, "Sponsored Display Campaigns", res.Stats.BulkSheet)
	assert.Equal(t, 1, res.Stats.TargetRows)
	assert.Equal(t, 1, res.Stats.BulkRows)
	assert.Equal(t, 1, res.Stats.MatchedRows)
	assert.Equal(t, 0, res.Stats.MissingRows)
}

func TestReconcile_MatchedColumns(t *testing.T) {
	targets := targetsBook(sheet("TabA", []string{domain.ColumnAdASIN, domain.ColumnTargetASIN, "State", "Notes"},
		[]string{asinA, asinB, "planned", "launch"}))
	bulk := bulkBook("X b0aaaaaaaa b0bbbbbbbb")

	res, err := Reconcile(targets, bulk)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Entity", domain.ColumnCampaignName, "State",
		domain.ColumnAdASIN, domain.ColumnTargetASIN,
		"State_target", "Notes", domain.ColumnSourceTab,
	}, res.Matched.Columns)
	require.Equal(t, 1, res.Matched.Len())
	assert.Equal(t, []string{"enabled"}, column(res.Matched, "State"))
	assert.Equal(t, []string{"planned"}, column(res.Matched, "State_target"))
}

func TestReconcile_ReplacesExistingBulkAsinColumns(t *testing.T) {
	bulk := domain.Workbook{Sheets: []domain.Table{
		sheet("SD Display", []string{domain.ColumnAdASIN, domain.ColumnCampaignName},
			[]string{"stale", "b0aaaaaaaa b0bbbbbbbb"}),
	}}
	targets := targetsBook(sheet("TabA", planColumns, []string{asinA, asinB}))

	res, err := Reconcile(targets, bulk)
	require.NoError(t, err)

	assert.Equal(t, []string{domain.ColumnAdASIN, domain.ColumnCampaignName, domain.ColumnTargetASIN, domain.ColumnSourceTab},
		res.Matched.Columns)
	assert.Equal(t, []string{asinA}, column(res.Matched, domain.ColumnAdASIN))
}

func TestReconcile_CaseInsensitive(t *testing.T) {
	targets := targetsBook(sheet("Upper", planColumns, []string{"B0ABCDEFGH", "B0HGFEDCBA"}))
	bulk := bulkBook("campaign b0abcdefgh b0hgfedcba")

	res, err := Reconcile(targets, bulk)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Matched.Len())
	assert.Equal(t, 0, res.Missing.Len())
	// plan keys are lower-cased in the missing/matched output as well
	assert.Equal(t, []string{"b0abcdefgh"}, column(res.Matched, domain.ColumnAdASIN))
}

func TestReconcile_DropsDuplicateRows(t *testing.T) {
	targets := targetsBook(sheet("TabA", planColumns, []string{asinA, asinB}))
	bulk := bulkBook(
		"Camp b0aaaaaaaa b0bbbbbbbb",
		"Camp b0aaaaaaaa b0bbbbbbbb",
		"Other b0aaaaaaaa b0bbbbbbbb",
	)

	res, err := Reconcile(targets, bulk)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Matched.Len())
	assert.Equal(t, 1, res.Stats.DuplicatesDropped)
	assert.Equal(t, []string{"Camp b0aaaaaaaa b0bbbbbbbb", "Other b0aaaaaaaa b0bbbbbbbb"},
		column(res.Matched, domain.ColumnCampaignName))
}

func TestReconcile_DuplicatesComparedByValueAndKind(t *testing.T) {
	name := domain.NewCell("Camp b0aaaaaaaa b0bbbbbbbb")
	bulk := domain.Workbook{Sheets: []domain.Table{{
		Name:    "Sponsored Display Campaigns",
		Columns: []string{"Campaign ID", domain.ColumnCampaignName},
		Rows: [][]domain.Cell{
			{domain.NewTypedCell("123456789012345678", domain.KindNumber), name},
			{domain.NewTypedCell("123456789012345679", domain.KindNumber), name},
			{domain.NewCell("123456789012345679"), name},
			{domain.NewTypedCell("123456789012345679", domain.KindNumber), name},
		},
	}}}
	targets := targetsBook(sheet("TabA", planColumns, []string{asinA, asinB}))

	res, err := Reconcile(targets, bulk)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Matched.Len())
	assert.Equal(t, 1, res.Stats.DuplicatesDropped)
	assert.Equal(t, domain.KindNumber, res.Matched.Rows[1][0].Kind)
	assert.Equal(t, domain.KindText, res.Matched.Rows[2][0].Kind)
}

func TestReconcile_PairInSeveralSheets(t *testing.T) {
	targets := targetsBook(
		sheet("TabA", planColumns, []string{asinA, asinB}),
		sheet("TabB", planColumns, []string{asinA, asinB}),
	)
	bulk := bulkBook("Camp b0aaaaaaaa b0bbbbbbbb")

	res, err := Reconcile(targets, bulk)
	require.NoError(t, err)

	assert.Equal(t, []string{"TabA", "TabB"}, column(res.Matched, domain.ColumnSourceTab))
	assert.Equal(t, 0, res.Missing.Len())
}

func TestReconcile_MissingTargets(t *testing.T) {
	targets := targetsBook(
		sheet("TabA", planColumns,
			[]string{asinA, asinB},
			[]string{asinC, asinD},
		),
		sheet("TabB", []string{domain.ColumnTargetASIN, domain.ColumnAdASIN, "Owner"},
			[]string{asinA, asinD, "kim"},
		),
	)
	bulk := bulkBook(
		"Camp b0aaaaaaaa b0bbbbbbbb",
		"Camp b0aaaaaaaa only",
		"Camp nothing here",
		"Camp b0bbbbbbbb b0aaaaaaaa",
	)

	res, err := Reconcile(targets, bulk)
	require.NoError(t, err)

	assert.Equal(t, []string{domain.ColumnAdASIN, domain.ColumnTargetASIN, "Owner", domain.ColumnSourceTab}, res.Missing.Columns)
	assert.Equal(t, []string{asinC, asinD}, column(res.Missing, domain.ColumnAdASIN))
	assert.Equal(t, []string{asinD, asinA}, column(res.Missing, domain.ColumnTargetASIN))
	assert.Equal(t, []string{"<null>", "kim"}, column(res.Missing, "Owner"))
	assert.Equal(t, []string{"TabA", "TabB"}, column(res.Missing, domain.ColumnSourceTab))
}

func TestReconcile_MissingKeepsPlanDuplicates(t *testing.T) {
	targets := targetsBook(
		sheet("TabA", planColumns, []string{asinC, asinD}),
		sheet("TabA copy", planColumns, []string{asinC, asinD}),
	)
	bulk := bulkBook("Camp b0aaaaaaaa b0bbbbbbbb", "Camp b0aaaaaaaa b0cccccccc")

	res, err := Reconcile(targets, bulk)
	require.NoError(t, err)

	// once per plan row, no matter how many bulk rows lack the pair
	assert.Equal(t, []string{"TabA", "TabA copy"}, column(res.Missing, domain.ColumnSourceTab))
}

func TestReconcile_IncompletePairsNeverMatch(t *testing.T) {
	targets := targetsBook(sheet("TabA", planColumns,
		[]string{asinA, ""},
		[]string{"", ""},
		[]string{asinA, asinB},
	))
	bulk := bulkBook("Camp b0aaaaaaaa", "Camp none", "Camp b0aaaaaaaa b0bbbbbbbb")

	res, err := Reconcile(targets, bulk)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Matched.Len())
	assert.Equal(t, []string{"Camp b0aaaaaaaa b0bbbbbbbb"}, column(res.Matched, domain.ColumnCampaignName))
	assert.Equal(t, []string{asinA, "<null>"}, column(res.Missing, domain.ColumnAdASIN))
	assert.Equal(t, []string{"<null>", "<null>"}, column(res.Missing, domain.ColumnTargetASIN))
}

func TestReconcile_NullCampaignName(t *testing.T) {
	targets := targetsBook(sheet("TabA", planColumns, []string{asinA, asinB}))
	bulk := bulkBook("", "Camp b0aaaaaaaa b0bbbbbbbb")

	res, err := Reconcile(targets, bulk)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched.Len())
	assert.Equal(t, 2, res.Stats.BulkRows)
}

func TestReconcile_CoverageCompleteness(t *testing.T) {
	targets := targetsBook(
		sheet("TabA", planColumns, []string{asinA, asinB}, []string{asinB, asinC}),
		sheet("TabB", planColumns, []string{asinC, asinD}, []string{asinA, ""}),
	)
	bulk := bulkBook("x b0aaaaaaaa b0bbbbbbbb", "x b0cccccccc b0dddddddd b0aaaaaaaa", "x b0dddddddd")

	res, err := Reconcile(targets, bulk)
	require.NoError(t, err)

	plan, err := FlattenTargets(targets)
	require.NoError(t, err)

	all := make(map[string]bool)
	for _, r := range plan.Rows {
		all[r.AdASIN.Value+"/"+r.TargetASIN.Value] = true
	}
	union := make(map[string]bool)
	for _, r := range res.Matched.Rows {
		ad := r[res.Matched.ColumnIndex(domain.ColumnAdASIN)].Value
		tg := r[res.Matched.ColumnIndex(domain.ColumnTargetASIN)].Value
		union[ad+"/"+tg] = true
	}
	for _, r := range res.Missing.Rows {
		ad := r[res.Missing.ColumnIndex(domain.ColumnAdASIN)].Value
		tg := r[res.Missing.ColumnIndex(domain.ColumnTargetASIN)].Value
		union[ad+"/"+tg] = true
	}
	assert.Equal(t, all, union)
}

func TestReconcile_Deterministic(t *testing.T) {
	targets := targetsBook(
		sheet("TabA", planColumns, []string{asinA, asinB}, []string{asinC, asinD}),
		sheet("TabB", planColumns, []string{asinB, asinA}),
	)
	bulk := bulkBook("x b0aaaaaaaa b0bbbbbbbb", "y b0bbbbbbbb b0aaaaaaaa", "x b0aaaaaaaa b0bbbbbbbb")

	first, err := Reconcile(targets, bulk)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Reconcile(targets, bulk)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestReconcile_DoesNotMutateInputs(t *testing.T) {
	targets := targetsBook(sheet("TabA", planColumns, []string{"B0AAAAAAAA", "B0BBBBBBBB"}))
	bulk := bulkBook("x b0aaaaaaaa b0bbbbbbbb")

	_, err := Reconcile(targets, bulk)
	require.NoError(t, err)

	assert.Equal(t, "B0AAAAAAAA", targets.Sheets[0].Rows[0][0].Value)
	assert.Equal(t, []string{"Entity", domain.ColumnCampaignName, "State"}, bulk.Sheets[1].Columns)
}

func TestReconcile_Errors(t *testing.T) {
	validTargets := targetsBook(sheet("TabA", planColumns, []string{asinA, asinB}))

	tests := []struct {
		name       string
		targets    domain.Workbook
		bulk       domain.Workbook
		wantIs     error
		wantColumn string
	}{
		{
			name:    "no display sheet",
			targets: validTargets,
			bulk: domain.Workbook{Sheets: []domain.Table{
				sheet("Sponsored Products Campaigns", []string{domain.ColumnCampaignName}),
			}},
			wantIs: ErrMissingSheet,
		},
		{
			name:    "sheet match is case sensitive",
			targets: validTargets,
			bulk: domain.Workbook{Sheets: []domain.Table{
				sheet("sponsored display campaigns", []string{domain.ColumnCampaignName}),
			}},
			wantIs: ErrMissingSheet,
		},
		{
			name:    "empty bulk workbook",
			targets: validTargets,
			bulk:    domain.Workbook{},
			wantIs:  ErrMissingSheet,
		},
		{
			name:    "bulk without campaign name",
			targets: validTargets,
			bulk: domain.Workbook{Sheets: []domain.Table{
				sheet("Sponsored Display Campaigns", []string{"Campaign Name"}),
			}},
			wantIs:     ErrMissingColumn,
			wantColumn: domain.ColumnCampaignName,
		},
		{
			name:       "targets without ad asin",
			targets:    targetsBook(sheet("TabA", []string{domain.ColumnTargetASIN})),
			bulk:       bulkBook(),
			wantIs:     ErrMissingColumn,
			wantColumn: domain.ColumnAdASIN,
		},
		{
			name:       "targets without target asin",
			targets:    targetsBook(sheet("TabA", []string{domain.ColumnAdASIN})),
			bulk:       bulkBook(),
			wantIs:     ErrMissingColumn,
			wantColumn: domain.ColumnTargetASIN,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Reconcile(tt.targets, tt.bulk)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantIs)

			if tt.wantColumn != "" {
				var colErr *MissingColumnError
				require.True(t, errors.As(err, &colErr))
				assert.Equal(t, tt.wantColumn, colErr.Column)
			}
		})
	}
}

func TestSelectBulkSheet_FirstDisplaySheetWins(t *testing.T) {
	bulk := domain.Workbook{Sheets: []domain.Table{
		sheet("Portfolios", nil),
		sheet("Sponsored Display Campaigns", []string{domain.ColumnCampaignName}),
		sheet("Display Archive", []string{domain.ColumnCampaignName}),
	}}

	got, err := SelectBulkSheet(bulk)
	require.NoError(t, err)
	assert.Equal(t, "Sponsored Display Campaigns", got.Name)
}

func TestMissingSheetError_Message(t *testing.T) {
	err := &MissingSheetError{Marker: "Display", Sheets: []string{"A", "B"}}
	assert.Equal(t, `no sheet name contains "Display" (sheets: A, B)`, err.Error())
	assert.True(t, errors.Is(err, ErrMissingSheet))
	assert.False(t, errors.Is(err, ErrMissingColumn))
}

func strPtr(s string) *string {
	return &s
}
