package core

import "slices"

type (
	SnapshotItem struct {
		ID       string         `json:"id"`
		Name     string         `json:"name"`
		Value    float64        `json:"value"`
		Children []SnapshotItem `json:"children,omitempty"`
	}

	SnapshotGroup struct {
		ID    string         `json:"id"`
		Type  GroupType      `json:"type"`
		Name  string         `json:"name"`
		Items []SnapshotItem `json:"items"`
		Total float64        `json:"total"`
	}

	// Snapshot freezes every group's resolved values at one day.
	Snapshot struct {
		ID       string                `json:"id"`
		Date     string                `json:"date"`
		Note     string                `json:"note,omitempty"`
		Groups   []SnapshotGroup       `json:"groups"`
		Totals   map[GroupType]float64 `json:"totals"`
		NetWorth float64               `json:"netWorth"`
		Cashflow float64               `json:"cashflow"`
	}
)

// TakeSnapshot records the report's values at day and appends the snapshot.
func TakeSnapshot(r Report, day, note string) (Report, Snapshot, error) {
	if err := ValidateDay(day); err != nil {
		return r, Snapshot{}, err
	}
	snap := Snapshot{
		ID:     newID("snap"),
		Date:   day,
		Note:   note,
		Groups: make([]SnapshotGroup, 0, len(r.groups)),
		Totals: map[GroupType]float64{Income: 0, Expense: 0, Asset: 0, Liability: 0},
	}
	for _, g := range r.groups {
		total := g.Total(day)
		snap.Groups = append(snap.Groups, SnapshotGroup{
			ID:    g.ID,
			Type:  g.Type,
			Name:  g.Name,
			Items: snapshotItems(g.Items, day),
			Total: total,
		})
		if g.Type.Valid() {
			snap.Totals[g.Type] = sumAmounts(snap.Totals[g.Type], total)
		}
	}
	snap.NetWorth = subAmounts(snap.Totals[Asset], snap.Totals[Liability])
	snap.Cashflow = subAmounts(snap.Totals[Income], snap.Totals[Expense])

	snapshots := make([]Snapshot, 0, len(r.snapshots)+1)
	snapshots = append(snapshots, r.snapshots...)
	r.snapshots = append(snapshots, snap)
	return r, snap, nil
}

// DeleteSnapshot removes the snapshot with the given id. Unknown ids are a
// no-op.
func DeleteSnapshot(r Report, id string) Report {
	i := slices.IndexFunc(r.snapshots, func(s Snapshot) bool { return s.ID == id })
	if i < 0 {
		return r
	}
	r.snapshots = slices.Delete(slices.Clone(r.snapshots), i, i+1)
	return r
}

func snapshotItems(items []Item, period string) []SnapshotItem {
	out := make([]SnapshotItem, len(items))
	for i, it := range items {
		out[i] = SnapshotItem{ID: it.ID, Name: it.Name, Value: it.Value(period)}
		if it.IsAggregate() {
			out[i].Children = snapshotItems(it.Children, period)
		}
	}
	return out
}
