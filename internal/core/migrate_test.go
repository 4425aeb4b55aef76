package core

import (
	"encoding/json"
	"reflect"
	"slices"
	"testing"
)

func TestMigrateLegacyPayload(t *testing.T) {
	r := Migrate(Payload{
		Groups: []Group{{ID: "g1", Type: Income, Items: []Item{{ID: "i1", Name: "X", Values: map[string]float64{"2025": 10}}}}},
	})

	if !slices.Equal(r.Years(), []string{"2025"}) {
		t.Fatalf("years = %v", r.Years())
	}
	if !slices.Equal(r.Months(), []string{"2025-01"}) || !slices.Equal(r.Days(), []string{"2025-01-01"}) {
		t.Fatalf("months = %v, days = %v", r.Months(), r.Days())
	}
	flow := r.FlowGroups()
	if len(flow) != 1 || flow[0].ID != "g1" {
		t.Fatalf("flow groups = %+v", flow)
	}
	if len(r.BalanceGroups()) != 0 {
		t.Fatalf("balance groups should be empty")
	}
	it := flow[0].Items[0]
	for _, p := range []string{"2025", "2025-01", "2025-01-01"} {
		if _, ok := it.Values[p]; !ok {
			t.Fatalf("missing backfilled period %s", p)
		}
	}
	if it.Values["2025"] != 10 {
		t.Fatalf("existing value overwritten: %v", it.Values["2025"])
	}
	if it.Quantities["2025"] != 1 || it.UnitPrices["2025"] != 10 {
		t.Fatalf("quantity/price not backfilled: %v %v", it.Quantities, it.UnitPrices)
	}
}

func TestMigrateDerivesPeriods(t *testing.T) {
	cases := []struct {
		name                string
		in                  Payload
		years, months, days []string
	}{
		{
			name:   "from days",
			in:     Payload{Days: []string{"2024-03-05", "2024-03-20", "2025-01-01"}},
			years:  []string{"2024", "2025"},
			months: []string{"2024-03", "2025-01"},
			days:   []string{"2024-03-05", "2024-03-20", "2025-01-01"},
		},
		{
			name:   "from months",
			in:     Payload{Months: []string{"2023-11", "2024-02"}},
			years:  []string{"2023", "2024"},
			months: []string{"2023-11", "2024-02"},
			days:   []string{"2023-11-01", "2024-02-01"},
		},
		{
			name:   "from years",
			in:     Payload{Years: []string{"2022", "2022", "2023"}},
			years:  []string{"2022", "2023"},
			months: []string{"2025-01"},
			days:   []string{"2022-01-01", "2023-01-01"},
		},
		{
			name:   "empty strings dropped",
			in:     Payload{Years: []string{"", "2024"}, Months: []string{""}, Days: []string{""}},
			years:  []string{"2024"},
			months: []string{"2025-01"},
			days:   []string{"2024-01-01"},
		},
		{
			name:   "nothing",
			in:     Payload{},
			years:  []string{"2025"},
			months: []string{"2025-01"},
			days:   []string{"2025-01-01"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Migrate(tc.in)
			if !slices.Equal(r.Years(), tc.years) {
				t.Fatalf("years = %v, want %v", r.Years(), tc.years)
			}
			if !slices.Equal(r.Months(), tc.months) {
				t.Fatalf("months = %v, want %v", r.Months(), tc.months)
			}
			if !slices.Equal(r.Days(), tc.days) {
				t.Fatalf("days = %v, want %v", r.Days(), tc.days)
			}
		})
	}
}

func TestMigrateWithDefaults(t *testing.T) {
	r := MigrateWithDefaults(Payload{}, PeriodDefaults{Year: "2030", Month: "2030-06", Day: "2030-06-15"})
	if r.LatestPeriod(ViewYear) != "2030" || r.LatestPeriod(ViewMonth) != "2030-06" || r.LatestPeriod(ViewDay) != "2030-06-15" {
		t.Fatalf("defaults not applied: %v %v %v", r.Years(), r.Months(), r.Days())
	}
}

func TestMigrateKeepsExplicitEntries(t *testing.T) {
	r := Migrate(Payload{
		Years: []string{"2025"},
		Groups: []Group{{ID: "a", Type: Asset, Items: []Item{{
			ID:         "x",
			Values:     map[string]float64{"2025": 0, "2025-01-01": 30},
			Quantities: map[string]float64{"2025-01-01": 3},
			UnitPrices: map[string]float64{"2025-01-01": 10},
			Note:       "keep me",
			Children:   []Item{},
		}}}},
	})
	it := r.Groups()[0].Items[0]
	if it.Values["2025"] != 0 || it.Values["2025-01-01"] != 30 {
		t.Fatalf("values changed: %v", it.Values)
	}
	if it.Quantities["2025-01-01"] != 3 || it.UnitPrices["2025-01-01"] != 10 {
		t.Fatalf("quantity/price overwritten: %v %v", it.Quantities, it.UnitPrices)
	}
	if it.Note != "keep me" {
		t.Fatalf("note dropped")
	}
	if it.IsAggregate() {
		t.Fatalf("empty children must stay a leaf")
	}
}

func TestMigrateBackfillsNestedItems(t *testing.T) {
	r := Migrate(Payload{
		Months: []string{"2025-01", "2025-02"},
		FlowGroups: []Group{{ID: "e", Type: Expense, Items: []Item{{
			ID:       "p",
			Children: []Item{{ID: "c", Children: []Item{{ID: "gc"}}}},
		}}}},
	})
	periods := r.AllPeriods()
	walkItems(r.Groups()[0].Items, func(it Item) {
		for _, p := range periods {
			if _, ok := it.Values[p]; !ok {
				t.Fatalf("item %s missing period %s", it.ID, p)
			}
			if _, ok := it.Quantities[p]; !ok {
				t.Fatalf("item %s missing quantity for %s", it.ID, p)
			}
		}
	})
}

func TestMigrateMergesCollections(t *testing.T) {
	stale := Group{ID: "inc", Type: Income, Name: "stale"}
	fresh := Group{ID: "inc", Type: Income, Name: "fresh"}
	r := Migrate(Payload{
		Groups:        []Group{{ID: "misc", Type: "Other", Name: "Misc"}, stale, {ID: "old", Type: "LIABILITY", Name: "Loan"}},
		FlowGroups:    []Group{fresh},
		BalanceGroups: []Group{{ID: "bank", Type: Asset, Name: "Bank"}},
	})

	var ids []string
	for _, g := range r.Groups() {
		ids = append(ids, g.ID)
	}
	if !slices.Equal(ids, []string{"misc", "inc", "old", "bank"}) {
		t.Fatalf("canonical order = %v", ids)
	}
	if g, _ := r.Group("inc"); g.Name != "fresh" {
		t.Fatalf("type-specific copy should win, got %q", g.Name)
	}
	if g, _ := r.Group("old"); g.Type != Liability {
		t.Fatalf("type not normalized: %q", g.Type)
	}
	if len(r.BalanceGroups()) != 2 {
		t.Fatalf("legacy liability group should join the balance view: %+v", r.BalanceGroups())
	}
	for _, g := range append(r.FlowGroups(), r.BalanceGroups()...) {
		if g.ID == "misc" {
			t.Fatalf("unknown type must stay out of typed views")
		}
	}
}

func TestMigrateKeepsGroupsWithCollidingIDs(t *testing.T) {
	p := Payload{
		Groups: []Group{
			{ID: "dup", Type: Expense, Name: "Food"},
			{ID: "dup", Type: Expense, Name: "Rent"},
			{ID: "x", Type: Liability, Name: "Loan", Items: []Item{{ID: "l", Values: map[string]float64{"2025-01-01": 7}}}},
		},
		FlowGroups: []Group{{ID: "x", Type: Income, Name: "Salary"}},
		BalanceGroups: []Group{{ID: "x", Type: Asset, Name: "Bank", Items: []Item{
			{ID: "a", Values: map[string]float64{"2025-01-01": 5}},
		}}},
		Days: []string{"2025-01-01"},
	}
	r := Migrate(p)

	ids := map[string]bool{}
	var names []string
	for _, g := range r.Groups() {
		if ids[g.ID] {
			t.Fatalf("duplicate group id %q in %+v", g.ID, r.Groups())
		}
		ids[g.ID] = true
		names = append(names, g.Name)
	}
	if len(names) != 5 {
		t.Fatalf("expected 5 groups, got %+v", r.Groups())
	}
	for _, want := range []string{"Food", "Rent", "Loan", "Salary", "Bank"} {
		if !slices.Contains(names, want) {
			t.Errorf("group %q dropped: %v", want, names)
		}
	}

	s := r.Summary(ViewDay, "2025-01-01")
	if s.Asset != 5 || s.Liability != 7 {
		t.Errorf("balance items lost: %+v", s)
	}
	if !reflect.DeepEqual(Migrate(r.Payload()).Payload(), r.Payload()) {
		t.Error("renamed groups must be stable across migrations")
	}
}

func TestMigrateAssignsMissingGroupIDs(t *testing.T) {
	r := Migrate(Payload{Groups: []Group{{Type: Income}, {ID: "group_1", Type: Expense}, {Type: Asset}}})
	seen := map[string]bool{}
	for _, g := range r.Groups() {
		if g.ID == "" || seen[g.ID] {
			t.Fatalf("ids must be present and unique: %+v", r.Groups())
		}
		seen[g.ID] = true
	}
}

func TestMigrateIdempotent(t *testing.T) {
	inputs := map[string]Payload{
		"empty":   {},
		"default": Default().Payload(),
		"legacy": {
			Days:   []string{"2024-05-01"},
			Groups: []Group{{ID: "g1", Type: "Income", Items: []Item{{ID: "i1", Values: map[string]float64{"2024": 5}, Children: []Item{{ID: "c"}}}}}},
			Notes:  []Note{{ID: "n", Label: "l", Value: "v"}},
		},
		"split only": {
			Years:         []string{"2025"},
			FlowGroups:    []Group{{ID: "f", Type: Expense, Items: []Item{{ID: "x", Quantities: map[string]float64{"2030": 2}}}}},
			BalanceGroups: []Group{{ID: "b", Type: Asset}},
		},
		"missing ids": {Groups: []Group{{Type: Income}, {Type: Asset}}},
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			once := Migrate(in)
			twice := Migrate(once.Payload())
			if !reflect.DeepEqual(once, twice) {
				t.Fatalf("migration is not idempotent\nonce:  %+v\ntwice: %+v", once.Payload(), twice.Payload())
			}

			data, err := json.Marshal(once)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var decoded Report
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !reflect.DeepEqual(once, decoded) {
				t.Fatalf("JSON round trip changed the report\nwant: %s", data)
			}
		})
	}
}

func TestPayloadListsNeverNull(t *testing.T) {
	data, err := json.Marshal(Migrate(Payload{}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"years", "months", "days", "groups", "flowGroups", "balanceGroups", "notes", "snapshots"} {
		if _, ok := m[key].([]any); !ok {
			t.Fatalf("%s is %T, want a list", key, m[key])
		}
	}
}
