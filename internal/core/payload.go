package core

import (
	"encoding/json"
	"errors"
	"strconv"
)

// Payload is the persisted shape of a report. Groups is the legacy flat
// collection; FlowGroups and BalanceGroups are the type-specific copies.
// Any Payload, however incomplete, can be turned into a Report by Migrate.
type Payload struct {
	Years         []string   `json:"years"`
	Months        []string   `json:"months"`
	Days          []string   `json:"days"`
	Groups        []Group    `json:"groups"`
	FlowGroups    []Group    `json:"flowGroups"`
	BalanceGroups []Group    `json:"balanceGroups"`
	Notes         []Note     `json:"notes"`
	Snapshots     []Snapshot `json:"snapshots"`
}

var ErrMalformedPayload = errors.New("payload is not a JSON object")

// Payload expands the report into the triplicated wire shape. Every list is
// non-nil.
func (r Report) Payload() Payload {
	return Payload{
		Years:         nonNil(r.Years()),
		Months:        nonNil(r.Months()),
		Days:          nonNil(r.Days()),
		Groups:        nonNil(r.LegacyGroups()),
		FlowGroups:    nonNil(r.FlowGroups()),
		BalanceGroups: nonNil(r.BalanceGroups()),
		Notes:         nonNil(r.Notes()),
		Snapshots:     nonNil(r.Snapshots()),
	}
}

func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Payload())
}

// UnmarshalJSON decodes and migrates any payload shape.
func (r *Report) UnmarshalJSON(data []byte) error {
	p, err := DecodePayload(data)
	if err != nil {
		return err
	}
	*r = Migrate(p)
	return nil
}

// DecodePayload reads a stored payload leniently. Fields of the wrong JSON
// type are dropped, list elements that cannot be read are skipped, numbers
// stored as strings are parsed and null amounts read as zero. The only
// failure is input that is not a JSON object.
func DecodePayload(data []byte) (Payload, error) {
	var raw struct {
		Years         json.RawMessage `json:"years"`
		Months        json.RawMessage `json:"months"`
		Days          json.RawMessage `json:"days"`
		Groups        json.RawMessage `json:"groups"`
		FlowGroups    json.RawMessage `json:"flowGroups"`
		BalanceGroups json.RawMessage `json:"balanceGroups"`
		Notes         json.RawMessage `json:"notes"`
		Snapshots     json.RawMessage `json:"snapshots"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Payload{}, errors.Join(ErrMalformedPayload, err)
	}
	return Payload{
		Years:         flexStrings(decodeEach[flexString](raw.Years)),
		Months:        flexStrings(decodeEach[flexString](raw.Months)),
		Days:          flexStrings(decodeEach[flexString](raw.Days)),
		Groups:        rawGroups(raw.Groups),
		FlowGroups:    rawGroups(raw.FlowGroups),
		BalanceGroups: rawGroups(raw.BalanceGroups),
		Notes:         rawNotes(raw.Notes),
		Snapshots:     decodeEach[Snapshot](raw.Snapshots),
	}, nil
}

type (
	flexString string
	flexNumber float64

	rawGroup struct {
		ID    flexString      `json:"id"`
		Type  flexString      `json:"type"`
		Name  flexString      `json:"name"`
		Items json.RawMessage `json:"items"`
	}

	rawItem struct {
		ID         flexString            `json:"id"`
		Name       flexString            `json:"name"`
		Values     map[string]flexNumber `json:"values"`
		Quantities map[string]flexNumber `json:"quantities"`
		UnitPrices map[string]flexNumber `json:"unitPrices"`
		Note       flexString            `json:"note"`
		Children   json.RawMessage       `json:"children"`
	}

	rawNote struct {
		ID    flexString `json:"id"`
		Label flexString `json:"label"`
		Value flexString `json:"value"`
	}
)

func (s *flexString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case string:
		*s = flexString(x)
	case float64:
		*s = flexString(strconv.FormatFloat(x, 'f', -1, 64))
	case bool:
		*s = flexString(strconv.FormatBool(x))
	default:
		*s = ""
	}
	return nil
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = 0
	switch x := v.(type) {
	case float64:
		*n = flexNumber(x)
	case string:
		if f, err := ParseAmount(x); err == nil {
			*n = flexNumber(f)
		}
	}
	return nil
}

func decodeEach[T any](raw json.RawMessage) []T {
	if len(raw) == 0 {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || elems == nil {
		return nil
	}
	out := make([]T, 0, len(elems))
	for _, e := range elems {
		var v T
		if err := json.Unmarshal(e, &v); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func flexStrings(in []flexString) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

func flexAmounts(in map[string]flexNumber) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		if k == "" {
			continue
		}
		out[k] = float64(v)
	}
	return out
}

func rawGroups(raw json.RawMessage) []Group {
	in := decodeEach[rawGroup](raw)
	if in == nil {
		return nil
	}
	out := make([]Group, len(in))
	for i, g := range in {
		out[i] = Group{
			ID:    string(g.ID),
			Type:  GroupType(g.Type),
			Name:  string(g.Name),
			Items: rawItems(g.Items),
		}
	}
	return out
}

func rawItems(raw json.RawMessage) []Item {
	in := decodeEach[rawItem](raw)
	if in == nil {
		return nil
	}
	out := make([]Item, len(in))
	for i, it := range in {
		out[i] = Item{
			ID:         string(it.ID),
			Name:       string(it.Name),
			Values:     flexAmounts(it.Values),
			Quantities: flexAmounts(it.Quantities),
			UnitPrices: flexAmounts(it.UnitPrices),
			Note:       string(it.Note),
			Children:   rawItems(it.Children),
		}
	}
	return out
}

func rawNotes(raw json.RawMessage) []Note {
	in := decodeEach[rawNote](raw)
	if in == nil {
		return nil
	}
	out := make([]Note, len(in))
	for i, n := range in {
		out[i] = Note{ID: string(n.ID), Label: string(n.Label), Value: string(n.Value)}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
