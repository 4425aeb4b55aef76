package core

import "slices"

// Report is the aggregate root. It holds one canonical, ordered group
// collection; the flow, balance and legacy collections of the persisted
// payload are views over it. A Report is immutable: every operation returns
// a new value, and accessors return copies of the top-level slices.
type Report struct {
	years     []string
	months    []string
	days      []string
	groups    []Group
	notes     []Note
	snapshots []Snapshot
}

func (r Report) Years() []string  { return slices.Clone(r.years) }
func (r Report) Months() []string { return slices.Clone(r.months) }
func (r Report) Days() []string   { return slices.Clone(r.days) }

// Periods returns the keys of the namespace used by mode.
func (r Report) Periods(mode ViewMode) []string {
	switch mode {
	case ViewYear:
		return r.Years()
	case ViewMonth:
		return r.Months()
	case ViewDay:
		return r.Days()
	}
	return nil
}

// LatestPeriod is the most recently inserted key of the namespace, or "".
func (r Report) LatestPeriod(mode ViewMode) string {
	periods := r.Periods(mode)
	if len(periods) == 0 {
		return ""
	}
	return periods[len(periods)-1]
}

// AllPeriods returns years, months and days in that order.
func (r Report) AllPeriods() []string {
	return mergePeriods(r.years, r.months, r.days)
}

func (r Report) HasPeriod(mode ViewMode, key string) bool {
	switch mode {
	case ViewYear:
		return slices.Contains(r.years, key)
	case ViewMonth:
		return slices.Contains(r.months, key)
	case ViewDay:
		return slices.Contains(r.days, key)
	}
	return false
}

// WithYear inserts a pre-validated key. An existing key leaves the report
// unchanged.
func (r Report) WithYear(year string) Report {
	r.years = insertPeriod(r.years, year)
	return r
}

func (r Report) WithMonth(month string) Report {
	r.months = insertPeriod(r.months, month)
	return r
}

func (r Report) WithDay(day string) Report {
	r.days = insertPeriod(r.days, day)
	return r
}

func (r Report) withPeriod(mode ViewMode, key string) Report {
	switch mode {
	case ViewYear:
		return r.WithYear(key)
	case ViewMonth:
		return r.WithMonth(key)
	case ViewDay:
		return r.WithDay(key)
	}
	return r
}

func insertPeriod(list []string, key string) []string {
	if slices.Contains(list, key) {
		return list
	}
	out := make([]string, 0, len(list)+1)
	out = append(out, list...)
	return append(out, key)
}

// Groups returns every group in canonical order. This is also the legacy
// flat collection.
func (r Report) Groups() []Group { return slices.Clone(r.groups) }

func (r Report) LegacyGroups() []Group { return r.Groups() }

// FlowGroups returns income and expense groups.
func (r Report) FlowGroups() []Group {
	return filterGroups(r.groups, GroupType.IsFlow)
}

// BalanceGroups returns asset and liability groups.
func (r Report) BalanceGroups() []Group {
	return filterGroups(r.groups, GroupType.IsBalance)
}

// DisplayGroups returns the groups rendered for mode: balance groups for the
// day view, flow groups otherwise.
func (r Report) DisplayGroups(mode ViewMode) []Group {
	if mode == ViewDay {
		return r.BalanceGroups()
	}
	return r.FlowGroups()
}

func (r Report) Group(id string) (Group, bool) {
	i := r.groupIndex(id)
	if i < 0 {
		return Group{}, false
	}
	return r.groups[i], true
}

func (r Report) groupIndex(id string) int {
	return slices.IndexFunc(r.groups, func(g Group) bool { return g.ID == id })
}

// UpdateGroup applies fn to the group with the given id. Since every view
// derives from the same collection, the edit shows up in all of them. The
// group's id and type cannot be changed by fn.
func (r Report) UpdateGroup(id string, fn func(Group) Group) Report {
	i := r.groupIndex(id)
	if i < 0 {
		return r
	}
	prev := r.groups[i]
	next := fn(prev)
	next.ID, next.Type = prev.ID, prev.Type
	groups := slices.Clone(r.groups)
	groups[i] = next
	r.groups = groups
	return r
}

// FindItem locates an item anywhere in the report.
func (r Report) FindItem(id string) (Group, Item, bool) {
	for _, g := range r.groups {
		if it, ok := g.FindItem(id); ok {
			return g, it, true
		}
	}
	return Group{}, Item{}, false
}

func (r Report) hasItemID(id string) bool {
	_, _, ok := r.FindItem(id)
	return ok
}

// mapAllItems rebuilds every item tree of every group through fn.
func (r Report) mapAllItems(fn func(Item) Item) Report {
	groups := make([]Group, len(r.groups))
	for i, g := range r.groups {
		g.Items = mapItems(g.Items, fn)
		groups[i] = g
	}
	r.groups = groups
	return r
}

func (r Report) Notes() []Note { return slices.Clone(r.notes) }

func (r Report) Note(id string) (Note, bool) {
	i := slices.IndexFunc(r.notes, func(n Note) bool { return n.ID == id })
	if i < 0 {
		return Note{}, false
	}
	return r.notes[i], true
}

func (r Report) Snapshots() []Snapshot { return slices.Clone(r.snapshots) }

func mergePeriods(lists ...[]string) []string {
	var n int
	for _, l := range lists {
		n += len(l)
	}
	out := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for _, l := range lists {
		for _, p := range l {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
