package core

import (
	"fmt"
	"maps"
	"slices"
)

// PeriodDefaults are used for namespaces that can be neither read nor
// derived from a payload.
type PeriodDefaults struct {
	Year  string
	Month string
	Day   string
}

var DefaultPeriods = PeriodDefaults{Year: "2025", Month: "2025-01", Day: "2025-01-01"}

// Migrate normalizes any payload into a complete Report. It has no failure
// mode and is idempotent: Migrate(Migrate(p).Payload()) equals Migrate(p).
func Migrate(p Payload) Report {
	return MigrateWithDefaults(p, DefaultPeriods)
}

// MigrateWithDefaults is Migrate with caller-chosen fallback periods.
//
// Periods: supplied lists win. Otherwise months derive from day prefixes,
// years from month prefixes (or day prefixes), and days from months as the
// first of the month (or years as January 1st). Lists are deduplicated in
// first-seen order.
//
// Items: every node gets a zero value for each known period it lacks, and a
// quantity of 1 and a unit price equal to its value for every valued period
// missing one. Existing entries, explicit zeros included, are kept.
//
// Groups: the legacy flat list and the flow and balance lists are merged into
// one collection in legacy order. A legacy group and a typed group with the
// same id and type are one group and the typed copy wins. Other id
// collisions are renumbered.
func MigrateWithDefaults(p Payload, d PeriodDefaults) Report {
	years, months, days := resolvePeriods(p, d)
	periods := mergePeriods(years, months, days)
	return Report{
		years:     years,
		months:    months,
		days:      days,
		groups:    resolveGroups(p, periods),
		notes:     nonNil(slices.Clone(p.Notes)),
		snapshots: nonNil(slices.Clone(p.Snapshots)),
	}
}

func resolvePeriods(p Payload, d PeriodDefaults) (years, months, days []string) {
	yearsIn, monthsIn, daysIn := cleanPeriods(p.Years), cleanPeriods(p.Months), cleanPeriods(p.Days)

	months = monthsIn
	if len(months) == 0 {
		months = mapPeriods(daysIn, func(day string) string { return prefix(day, 7) })
	}

	years = yearsIn
	if len(years) == 0 {
		if len(monthsIn) > 0 {
			years = mapPeriods(monthsIn, func(m string) string { return prefix(m, 4) })
		} else {
			years = mapPeriods(daysIn, func(day string) string { return prefix(day, 4) })
		}
	}

	days = daysIn
	if len(days) == 0 {
		if len(monthsIn) > 0 {
			days = mapPeriods(monthsIn, func(m string) string { return m + "-01" })
		} else {
			days = mapPeriods(yearsIn, func(y string) string { return y + "-01-01" })
		}
	}

	if len(years) == 0 {
		years = []string{d.Year}
	}
	if len(months) == 0 {
		months = []string{d.Month}
	}
	if len(days) == 0 {
		days = []string{d.Day}
	}
	return years, months, days
}

func cleanPeriods(in []string) []string {
	return mapPeriods(in, func(s string) string { return s })
}

// mapPeriods applies fn, drops empty keys and deduplicates.
func mapPeriods(in []string, fn func(string) string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = fn(s); s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

// resolveGroups builds the canonical list. A legacy group collapses into the
// typed group with the same id and type, which wins. Any other id collision
// gets a fresh id so no group is dropped.
func resolveGroups(p Payload, periods []string) []Group {
	type key struct {
		id  string
		typ GroupType
	}
	keyOf := func(g Group) key {
		t, _ := ParseGroupType(string(g.Type))
		return key{g.ID, t}
	}

	split := make([]Group, 0, len(p.FlowGroups)+len(p.BalanceGroups))
	split = append(split, p.FlowGroups...)
	split = append(split, p.BalanceGroups...)

	typed := make(map[key]int, len(split))
	for i, g := range split {
		if _, ok := typed[keyOf(g)]; g.ID != "" && !ok {
			typed[keyOf(g)] = i
		}
	}

	merged := make([]Group, 0, len(p.Groups)+len(split))
	used := make([]bool, len(split))
	for _, g := range p.Groups {
		if i, ok := typed[keyOf(g)]; ok && g.ID != "" && !used[i] {
			used[i] = true
			merged = append(merged, split[i])
			continue
		}
		merged = append(merged, g)
	}
	for i, g := range split {
		if !used[i] {
			merged = append(merged, g)
		}
	}

	taken := make(map[string]struct{}, len(merged))
	for _, g := range merged {
		if g.ID != "" {
			taken[g.ID] = struct{}{}
		}
	}
	assigned := make(map[string]struct{}, len(merged))
	out := make([]Group, len(merged))
	for i, g := range merged {
		if _, dup := assigned[g.ID]; g.ID == "" || dup {
			g.ID = freeGroupID(taken)
		}
		assigned[g.ID] = struct{}{}
		out[i] = normalizeGroup(g, periods)
	}
	return out
}

func freeGroupID(seen map[string]struct{}) string {
	for n := 1; ; n++ {
		id := fmt.Sprintf("group_%d", n)
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			return id
		}
	}
}

func normalizeGroup(g Group, periods []string) Group {
	g.Type, _ = ParseGroupType(string(g.Type))
	g.Items = nonNil(normalizeItems(g.Items, periods))
	return g
}

func normalizeItems(items []Item, periods []string) []Item {
	if len(items) == 0 {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = normalizeItem(it, periods)
	}
	return out
}

func normalizeItem(it Item, periods []string) Item {
	values := make(map[string]float64, len(it.Values)+len(periods))
	for k, v := range it.Values {
		if k != "" {
			values[k] = v
		}
	}
	for _, p := range periods {
		if _, ok := values[p]; !ok {
			values[p] = 0
		}
	}

	quantities := maps.Clone(it.Quantities)
	if quantities == nil {
		quantities = make(map[string]float64, len(values))
	}
	unitPrices := maps.Clone(it.UnitPrices)
	if unitPrices == nil {
		unitPrices = make(map[string]float64, len(values))
	}
	for k, v := range values {
		if _, ok := quantities[k]; !ok {
			quantities[k] = 1
		}
		if _, ok := unitPrices[k]; !ok {
			unitPrices[k] = v
		}
	}

	it.Values = values
	it.Quantities = quantities
	it.UnitPrices = unitPrices
	it.Children = normalizeItems(it.Children, periods)
	return it
}
