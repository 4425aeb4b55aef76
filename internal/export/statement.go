// Package export turns a report view into printable statements: the income
// statement for year and month views, the balance sheet for day views.
package export

import (
	"fmt"
	"time"

	"famreport/internal/core"
)

const (
	ReportTitle   = "家庭财务报表"
	ReportTitleEN = "FAMILY FINANCIAL REPORT"
)

// Line is one item row of a section, flattened from the item tree.
type Line struct {
	ItemID    string
	Name      string
	Note      string
	Depth     int
	Amount    float64
	Aggregate bool
	Last      bool
}

type Section struct {
	GroupID string
	Type    core.GroupType
	Name    string
	Label   string
	LabelEN string
	Lines   []Line
	Total   float64
}

// TotalLine is a row of the closing summary block.
type TotalLine struct {
	Label   string
	LabelEN string
	Amount  float64
	Final   bool
}

type Statement struct {
	Title       string
	TitleEN     string
	View        core.ViewMode
	Period      string
	Sections    []Section
	Summary     core.Summary
	Totals      []TotalLine
	GeneratedAt time.Time
}

var groupLabels = map[core.GroupType][2]string{
	core.Income:    {"收入", "Income"},
	core.Expense:   {"支出", "Expenses"},
	core.Asset:     {"资产", "Assets"},
	core.Liability: {"负债", "Liabilities"},
}

// Build resolves the statement for mode and period. An empty period selects
// the latest period of the mode.
func Build(r core.Report, mode core.ViewMode, period string, now time.Time) (Statement, error) {
	if !mode.Valid() {
		return Statement{}, fmt.Errorf("%w: %q", core.ErrInvalidView, mode)
	}
	if period == "" {
		period = r.LatestPeriod(mode)
	}
	if kind, ok := core.KindOf(period); !ok || kind != mode {
		return Statement{}, fmt.Errorf("%w: %q for %s view", core.ErrInvalidPeriod, period, mode)
	}

	st := Statement{
		View:        mode,
		Period:      period,
		Summary:     r.Summary(mode, period),
		GeneratedAt: now,
	}
	if mode == core.ViewDay {
		st.Title, st.TitleEN = "资产负债表", "BALANCE SHEET"
		st.Totals = []TotalLine{
			{Label: "资产总额", LabelEN: "Total assets", Amount: st.Summary.Asset},
			{Label: "负债总额", LabelEN: "Total liabilities", Amount: st.Summary.Liability},
			{Label: "所有者权益（净资产）", LabelEN: "Net worth", Amount: st.Summary.NetWorth, Final: true},
		}
	} else {
		st.Title, st.TitleEN = "利润表", "INCOME STATEMENT"
		st.Totals = []TotalLine{
			{Label: "本期收入", LabelEN: "Income", Amount: st.Summary.Income},
			{Label: "本期支出", LabelEN: "Expenses", Amount: st.Summary.Expense},
			{Label: "本期利润（结余）", LabelEN: "Cash flow", Amount: st.Summary.Cashflow, Final: true},
		}
	}

	for _, g := range r.DisplayGroups(mode) {
		labels := groupLabels[g.Type]
		if labels[0] == "" {
			labels = [2]string{g.Name, g.Name}
		}
		st.Sections = append(st.Sections, Section{
			GroupID: g.ID,
			Type:    g.Type,
			Name:    g.Name,
			Label:   labels[0],
			LabelEN: labels[1],
			Lines:   flatten(g.Items, period, 0, nil),
			Total:   core.RoundCents(g.Total(period)),
		})
	}
	return st, nil
}

func flatten(items []core.Item, period string, depth int, out []Line) []Line {
	for i, it := range items {
		out = append(out, Line{
			ItemID:    it.ID,
			Name:      it.Name,
			Note:      it.Note,
			Depth:     depth,
			Amount:    core.RoundCents(it.Value(period)),
			Aggregate: it.IsAggregate(),
			Last:      i == len(items)-1,
		})
		if it.IsAggregate() {
			out = flatten(it.Children, period, depth+1, out)
		}
	}
	return out
}

// PeriodLabel renders a period key for headings: 2025年, 2025年01月,
// 2025年01月01日.
func PeriodLabel(period string) string {
	kind, ok := core.KindOf(period)
	if !ok {
		return period
	}
	switch kind {
	case core.ViewYear:
		return period + "年"
	case core.ViewMonth:
		return period[:4] + "年" + period[5:7] + "月"
	default:
		return period[:4] + "年" + period[5:7] + "月" + period[8:10] + "日"
	}
}
