package core

import "slices"

// Group is a named, typed container of item trees.
type Group struct {
	ID    string    `json:"id"`
	Type  GroupType `json:"type"`
	Name  string    `json:"name"`
	Items []Item    `json:"items"`
}

// Total sums the top-level items, which transitively covers every
// descendant.
func (g Group) Total(period string) float64 {
	vals := make([]float64, len(g.Items))
	for i, it := range g.Items {
		vals[i] = it.Value(period)
	}
	return sumAmounts(vals...)
}

func (g Group) WithItem(item Item) Group {
	items := make([]Item, 0, len(g.Items)+1)
	items = append(items, g.Items...)
	g.Items = append(items, item)
	return g
}

func (g Group) UpdateItem(id string, fn func(Item) Item) Group {
	g.Items, _ = UpdateItem(g.Items, id, fn)
	return g
}

func (g Group) RemoveItem(id string) Group {
	g.Items, _ = RemoveItem(g.Items, id)
	return g
}

// AddSubItem appends child under parentID. An unknown parent leaves the
// group unchanged.
func (g Group) AddSubItem(parentID string, child Item) Group {
	g.Items, _ = UpdateItem(g.Items, parentID, func(parent Item) Item {
		return parent.WithChild(child)
	})
	return g
}

func (g Group) FindItem(id string) (Item, bool) {
	return FindItem(g.Items, id)
}

func (g Group) Clone() Group {
	if g.Items != nil {
		items := make([]Item, len(g.Items))
		for i, it := range g.Items {
			items[i] = it.Clone()
		}
		g.Items = items
	}
	return g
}

func filterGroups(groups []Group, keep func(GroupType) bool) []Group {
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		if keep(g.Type) {
			out = append(out, g)
		}
	}
	return slices.Clip(out)
}
