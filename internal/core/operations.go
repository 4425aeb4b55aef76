package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Edit operators. Each takes the current report and an edit intent and
// returns the next report. A rejected intent returns the input unchanged
// with a validation error; an intent naming an unknown group, item or note
// returns the input unchanged with a nil error.

func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

func AddYear(r Report, year string) (Report, error) {
	return AddPeriod(r, ViewYear, year)
}

func AddMonth(r Report, month string) (Report, error) {
	return AddPeriod(r, ViewMonth, month)
}

func AddDay(r Report, day string) (Report, error) {
	return AddPeriod(r, ViewDay, day)
}

// AddPeriod validates and appends key to the namespace of mode, then gives
// every item a zero value for it unless one is already recorded.
func AddPeriod(r Report, mode ViewMode, key string) (Report, error) {
	key = strings.TrimSpace(key)
	if err := mode.validate(key); err != nil {
		return r, err
	}
	if r.HasPeriod(mode, key) {
		return r, fmt.Errorf("%w: %s", ErrDuplicatePeriod, key)
	}
	r = r.withPeriod(mode, key)
	return r.mapAllItems(func(it Item) Item {
		if _, ok := it.Values[key]; ok {
			return it
		}
		it.Values = setEntry(it.Values, key, 0)
		return it
	}), nil
}

// AddItem appends a new top-level item to the group, valued at zero for
// every known period.
func AddItem(r Report, groupID, name string) (Report, Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return r, Item{}, ErrEmptyName
	}
	if _, ok := r.Group(groupID); !ok {
		return r, Item{}, nil
	}
	item := r.blankItem(newID(groupID), name)
	next, err := InsertItem(r, groupID, "", item)
	if err != nil {
		return r, Item{}, err
	}
	return next, item, nil
}

// AddSubItem appends a new child under parentID, turning the parent into an
// aggregate.
func AddSubItem(r Report, groupID, parentID, name string) (Report, Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return r, Item{}, ErrEmptyName
	}
	g, ok := r.Group(groupID)
	if !ok {
		return r, Item{}, nil
	}
	if _, ok := g.FindItem(parentID); !ok {
		return r, Item{}, nil
	}
	item := r.blankItem(newID(parentID), name)
	next, err := InsertItem(r, groupID, parentID, item)
	if err != nil {
		return r, Item{}, err
	}
	return next, item, nil
}

// InsertItem places a caller-built item at the top of the group, or under
// parentID when it is not empty. The item and all of its descendants must
// carry ids that are not used anywhere in the report.
func InsertItem(r Report, groupID, parentID string, item Item) (Report, error) {
	if strings.TrimSpace(item.Name) == "" {
		return r, ErrEmptyName
	}
	if err := r.checkNewIDs(item); err != nil {
		return r, err
	}
	g, ok := r.Group(groupID)
	if !ok {
		return r, nil
	}
	if parentID == "" {
		return r.UpdateGroup(groupID, func(g Group) Group { return g.WithItem(item) }), nil
	}
	if _, ok := g.FindItem(parentID); !ok {
		return r, nil
	}
	return r.UpdateGroup(groupID, func(g Group) Group { return g.AddSubItem(parentID, item) }), nil
}

func (r Report) checkNewIDs(item Item) error {
	ids := make(map[string]struct{})
	var err error
	walkItems([]Item{item}, func(it Item) {
		if err != nil {
			return
		}
		if it.ID == "" {
			err = fmt.Errorf("%w: empty id", ErrDuplicateID)
			return
		}
		if _, dup := ids[it.ID]; dup || r.hasItemID(it.ID) {
			err = fmt.Errorf("%w: %s", ErrDuplicateID, it.ID)
			return
		}
		ids[it.ID] = struct{}{}
	})
	return err
}

func (r Report) blankItem(id, name string) Item {
	periods := r.AllPeriods()
	values := make(map[string]float64, len(periods))
	for _, p := range periods {
		values[p] = 0
	}
	return Item{ID: id, Name: name, Values: values}
}

func RenameItem(r Report, groupID, itemID, name string) (Report, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return r, ErrEmptyName
	}
	return r.UpdateGroup(groupID, func(g Group) Group {
		return g.UpdateItem(itemID, func(it Item) Item { return it.Renamed(name) })
	}), nil
}

func SetItemNote(r Report, groupID, itemID, note string) Report {
	return r.UpdateGroup(groupID, func(g Group) Group {
		return g.UpdateItem(itemID, func(it Item) Item { return it.WithNote(note) })
	})
}

// DeleteItem removes the item and everything below it.
func DeleteItem(r Report, groupID, itemID string) Report {
	return r.UpdateGroup(groupID, func(g Group) Group { return g.RemoveItem(itemID) })
}

func UpdateItemValue(r Report, groupID, itemID, period string, amount float64) (Report, error) {
	return r.editLeaf(groupID, itemID, period, amount, func(it Item) Item {
		return it.WithValue(period, amount)
	})
}

func UpdateItemQuantity(r Report, groupID, itemID, period string, qty float64) (Report, error) {
	return r.editLeaf(groupID, itemID, period, qty, func(it Item) Item {
		return it.WithQuantity(period, qty)
	})
}

func UpdateItemUnitPrice(r Report, groupID, itemID, period string, price float64) (Report, error) {
	return r.editLeaf(groupID, itemID, period, price, func(it Item) Item {
		return it.WithUnitPrice(period, price)
	})
}

func (r Report) editLeaf(groupID, itemID, period string, n float64, fn func(Item) Item) (Report, error) {
	if err := ValidatePeriod(period); err != nil {
		return r, err
	}
	if !finite(n) {
		return r, ErrInvalidAmount
	}
	g, ok := r.Group(groupID)
	if !ok {
		return r, nil
	}
	it, ok := g.FindItem(itemID)
	if !ok {
		return r, nil
	}
	if it.IsAggregate() {
		return r, ErrAggregateItem
	}
	return r.UpdateGroup(groupID, func(g Group) Group { return g.UpdateItem(itemID, fn) }), nil
}

// AddNote appends a note. Blank notes are allowed; they are filled in later.
func AddNote(r Report, label, value string) (Report, Note) {
	n := Note{ID: newID("note"), Label: label, Value: value}
	notes := make([]Note, 0, len(r.notes)+1)
	notes = append(notes, r.notes...)
	r.notes = append(notes, n)
	return r, n
}

func UpdateNote(r Report, id, label, value string) Report {
	i := slices.IndexFunc(r.notes, func(n Note) bool { return n.ID == id })
	if i < 0 {
		return r
	}
	notes := slices.Clone(r.notes)
	notes[i].Label, notes[i].Value = label, value
	r.notes = notes
	return r
}

func DeleteNote(r Report, id string) Report {
	i := slices.IndexFunc(r.notes, func(n Note) bool { return n.ID == id })
	if i < 0 {
		return r
	}
	r.notes = slices.Delete(slices.Clone(r.notes), i, i+1)
	return r
}
