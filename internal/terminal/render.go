package terminal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"famreport/internal/core"
	"famreport/internal/export"
)

type Styles struct {
	Title    lipgloss.Style
	Group    lipgloss.Style
	Income   lipgloss.Style
	Spent    lipgloss.Style
	Muted    lipgloss.Style
	Summary  lipgloss.Style
	TreeRoot lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true),
		Group:    lipgloss.NewStyle().Foreground(lipgloss.Color("#bbbbbb")).Bold(true),
		Income:   lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff00")),
		Spent:    lipgloss.NewStyle().Foreground(lipgloss.Color("#ff0000")),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")),
		Summary:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		TreeRoot: lipgloss.NewStyle().Foreground(lipgloss.Color("#d29b1d")),
	}
}

// renderGroups draws the display groups of one period as a tree, one branch
// per group with its total.
func renderGroups(s Styles, r core.Report, mode core.ViewMode, period string) string {
	root := tree.Root(s.TreeRoot.Render(fmt.Sprintf("%s %s", mode, period)))
	for _, g := range r.DisplayGroups(mode) {
		branch := tree.Root(fmt.Sprintf("%s  %s  %s",
			s.Group.Render(g.Name), s.Muted.Render("["+g.ID+"]"), amountStyle(s, g.Type).Render(export.FormatAmount(g.Total(period)))))
		addItems(s, branch, g.Items, period)
		root.Child(branch)
	}
	return root.String()
}

func addItems(s Styles, t *tree.Tree, items []core.Item, period string) {
	for _, it := range items {
		label := fmt.Sprintf("%s  %s  %s", it.Name, s.Muted.Render("["+it.ID+"]"), export.FormatPlain(it.Value(period)))
		if q, ok := it.Quantities[period]; ok && !it.IsAggregate() && q != 1 {
			label += s.Muted.Render(fmt.Sprintf("  (%g x %s)", q, export.FormatPlain(it.UnitPrices[period])))
		}
		if it.Note != "" {
			label += s.Muted.Render("  # " + it.Note)
		}
		if len(it.Children) == 0 {
			t.Child(label)
			continue
		}
		sub := tree.Root(label)
		addItems(s, sub, it.Children, period)
		t.Child(sub)
	}
}

func amountStyle(s Styles, t core.GroupType) lipgloss.Style {
	switch t {
	case core.Income, core.Asset:
		return s.Income
	case core.Expense, core.Liability:
		return s.Spent
	default:
		return s.Muted
	}
}

func renderSummary(s Styles, mode core.ViewMode, sum core.Summary) string {
	var lines []string
	if mode == core.ViewDay {
		lines = []string{
			"Assets      " + export.FormatAmount(sum.Asset),
			"Liabilities " + export.FormatAmount(sum.Liability),
			s.Title.Render("Net worth   " + export.FormatAmount(sum.NetWorth)),
		}
	} else {
		lines = []string{
			"Income      " + export.FormatAmount(sum.Income),
			"Expenses    " + export.FormatAmount(sum.Expense),
			s.Title.Render("Cash flow   " + export.FormatAmount(sum.Cashflow)),
		}
	}
	return s.Summary.Render(strings.Join(lines, "\n"))
}

func renderNotes(s Styles, notes []core.Note) string {
	if len(notes) == 0 {
		return s.Muted.Render("no notes")
	}
	var b strings.Builder
	for _, n := range notes {
		fmt.Fprintf(&b, "%s  %s: %s\n", s.Muted.Render("["+n.ID+"]"), n.Label, n.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSnapshots(s Styles, snaps []core.Snapshot) string {
	if len(snaps) == 0 {
		return s.Muted.Render("no snapshots")
	}
	var b strings.Builder
	for _, snap := range snaps {
		fmt.Fprintf(&b, "%s  %s  net worth %s", s.Muted.Render("["+snap.ID+"]"), snap.Date, export.FormatAmount(snap.NetWorth))
		if snap.Note != "" {
			b.WriteString(s.Muted.Render("  # " + snap.Note))
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
