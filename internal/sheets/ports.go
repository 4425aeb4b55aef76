package sheets

import (
	"context"
	"strings"

	"famreport/internal/export"
)

// StatementWriter replaces the contents of a named sheet with a statement.
type StatementWriter interface {
	WriteStatement(ctx context.Context, sheet string, st export.Statement) (ref string, err error)
}

// Rows lays a statement out as spreadsheet rows: a title block, one block
// per section with indented item names and a total row, then the summary.
// Amounts stay numeric so the sheet can compute with them.
func Rows(st export.Statement) [][]any {
	rows := [][]any{
		{export.ReportTitle},
		{st.Title, st.TitleEN},
		{"报表期间", st.Period},
		{},
	}
	for _, sec := range st.Sections {
		rows = append(rows, []any{sec.Label, "金额 (元)"})
		for _, ln := range sec.Lines {
			rows = append(rows, []any{indent(ln.Depth) + ln.Name, ln.Amount})
		}
		rows = append(rows, []any{sec.Label + "合计", sec.Total}, []any{})
	}
	rows = append(rows, []any{"财务汇总"})
	for _, t := range st.Totals {
		rows = append(rows, []any{t.Label, t.Amount})
	}
	rows = append(rows, []any{}, []any{"生成时间", st.GeneratedAt.Format("2006-01-02 15:04:05")})
	return rows
}

func indent(depth int) string { return strings.Repeat("    ", depth) }
