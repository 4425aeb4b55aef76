package core

import (
	"maps"
	"slices"
)

// Item is a node of a line-item tree. A node with children is an aggregate
// and its own Values are ignored; a node without children is a leaf and its
// Values are authoritative. Items are values: every method returns a copy and
// never touches the receiver's maps or slices.
type Item struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Values     map[string]float64 `json:"values"`
	Quantities map[string]float64 `json:"quantities,omitempty"`
	UnitPrices map[string]float64 `json:"unitPrices,omitempty"`
	Note       string             `json:"note,omitempty"`
	Children   []Item             `json:"children,omitempty"`
}

// IsAggregate reports whether the item derives its value from children.
// An empty children list means leaf.
func (it Item) IsAggregate() bool {
	return len(it.Children) > 0
}

// Value returns the children-sum for aggregates, otherwise Values[period]
// with a missing entry counting as zero.
func (it Item) Value(period string) float64 {
	if !it.IsAggregate() {
		return it.Values[period]
	}
	vals := make([]float64, len(it.Children))
	for i, c := range it.Children {
		vals[i] = c.Value(period)
	}
	return sumAmounts(vals...)
}

// WithValue sets the amount for a period. When a non-zero quantity is
// recorded for the period the unit price is re-derived from it.
func (it Item) WithValue(period string, amount float64) Item {
	it.Values = setEntry(it.Values, period, amount)
	if q := it.Quantities[period]; q != 0 {
		it.UnitPrices = setEntry(it.UnitPrices, period, divAmounts(amount, q))
	}
	return it
}

// WithQuantity sets the quantity for a period and recomputes the amount from
// the unit price, falling back to the current amount as the price. The price
// used is recorded so that values == quantity * unitPrice afterwards.
func (it Item) WithQuantity(period string, qty float64) Item {
	price, ok := it.UnitPrices[period]
	if !ok {
		price = it.Values[period]
		it.UnitPrices = setEntry(it.UnitPrices, period, price)
	}
	it.Quantities = setEntry(it.Quantities, period, qty)
	it.Values = setEntry(it.Values, period, mulAmounts(price, qty))
	return it
}

// WithUnitPrice sets the unit price for a period and recomputes the amount
// from the recorded quantity, which defaults to one.
func (it Item) WithUnitPrice(period string, price float64) Item {
	qty, ok := it.Quantities[period]
	if !ok {
		qty = 1
		it.Quantities = setEntry(it.Quantities, period, qty)
	}
	it.UnitPrices = setEntry(it.UnitPrices, period, price)
	it.Values = setEntry(it.Values, period, mulAmounts(price, qty))
	return it
}

func (it Item) Renamed(name string) Item {
	it.Name = name
	return it
}

func (it Item) WithNote(note string) Item {
	it.Note = note
	return it
}

// WithChild appends child. The receiver's own values stay in place but are
// no longer read.
func (it Item) WithChild(child Item) Item {
	children := make([]Item, 0, len(it.Children)+1)
	children = append(children, it.Children...)
	it.Children = append(children, child)
	return it
}

// Clone returns a deep copy.
func (it Item) Clone() Item {
	it.Values = maps.Clone(it.Values)
	it.Quantities = maps.Clone(it.Quantities)
	it.UnitPrices = maps.Clone(it.UnitPrices)
	if it.Children != nil {
		children := make([]Item, len(it.Children))
		for i, c := range it.Children {
			children[i] = c.Clone()
		}
		it.Children = children
	}
	return it
}

func setEntry(m map[string]float64, key string, v float64) map[string]float64 {
	out := maps.Clone(m)
	if out == nil {
		out = make(map[string]float64, 1)
	}
	out[key] = v
	return out
}

// FindItem searches the forest depth-first and returns the first match.
func FindItem(items []Item, id string) (Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
		if found, ok := FindItem(it.Children, id); ok {
			return found, true
		}
	}
	return Item{}, false
}

// UpdateItem applies fn to the first node matching id at any depth. Only the
// path from the root to that node is rebuilt; untouched siblings are shared
// with the input. When nothing matches the input slice is returned.
func UpdateItem(items []Item, id string, fn func(Item) Item) ([]Item, bool) {
	for i, it := range items {
		var next Item
		if it.ID == id {
			next = fn(it)
		} else {
			children, ok := UpdateItem(it.Children, id, fn)
			if !ok {
				continue
			}
			next = it
			next.Children = children
		}
		out := slices.Clone(items)
		out[i] = next
		return out, true
	}
	return items, false
}

// RemoveItem drops the first node matching id together with its subtree.
func RemoveItem(items []Item, id string) ([]Item, bool) {
	for i, it := range items {
		if it.ID == id {
			out := make([]Item, 0, len(items)-1)
			out = append(out, items[:i]...)
			return append(out, items[i+1:]...), true
		}
		children, ok := RemoveItem(it.Children, id)
		if !ok {
			continue
		}
		next := it
		next.Children = children
		out := slices.Clone(items)
		out[i] = next
		return out, true
	}
	return items, false
}

// walkItems visits every node of the forest in depth-first order.
func walkItems(items []Item, fn func(Item)) {
	for _, it := range items {
		fn(it)
		walkItems(it.Children, fn)
	}
}

// mapItems rebuilds the forest bottom-up through fn.
func mapItems(items []Item, fn func(Item) Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		it.Children = mapItems(it.Children, fn)
		out[i] = fn(it)
	}
	return out
}
