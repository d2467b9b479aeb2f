package restriction

import (
	"fmt"
	"strings"

	"rowsynth/internal/util"
)

// WeightedElement is one whitelist member.
type WeightedElement struct {
	Value  any
	Weight float64
}

// DistributedList is an ordered, weighted whitelist with unique values.
type DistributedList struct {
	elements []WeightedElement
	keys     map[string]int
}

func newList(elements []WeightedElement) *DistributedList {
	keys := make(map[string]int, len(elements))
	for i, e := range elements {
		keys[ValueKey(e.Value)] = i
	}
	return &DistributedList{elements: elements, keys: keys}
}

// NewDistributedList builds a list, dropping later duplicates. Non-positive
// weights are treated as 1.
func NewDistributedList(elements []WeightedElement) *DistributedList {
	keys := make(map[string]int, len(elements))
	out := make([]WeightedElement, 0, len(elements))
	for _, e := range elements {
		v := NormalizeValue(e.Value)
		k := ValueKey(v)
		if _, ok := keys[k]; ok {
			continue
		}
		keys[k] = len(out)
		w := e.Weight
		if w <= 0 {
			w = 1
		}
		out = append(out, WeightedElement{Value: v, Weight: w})
	}
	return &DistributedList{elements: out, keys: keys}
}

// Uniform builds a list where every value has weight 1.
func Uniform(values ...any) *DistributedList {
	elements := make([]WeightedElement, len(values))
	for i, v := range values {
		elements[i] = WeightedElement{Value: v, Weight: 1}
	}
	return NewDistributedList(elements)
}

// Len returns the number of members.
func (d *DistributedList) Len() int {
	return len(d.elements)
}

// Elements returns the members in order.
func (d *DistributedList) Elements() []WeightedElement {
	return d.elements
}

// Values returns member values in order.
func (d *DistributedList) Values() []any {
	out := make([]any, len(d.elements))
	for i, e := range d.elements {
		out[i] = e.Value
	}
	return out
}

// Contains reports membership by canonical key.
func (d *DistributedList) Contains(v any) bool {
	_, ok := d.keys[ValueKey(v)]
	return ok
}

// Intersect keeps values present in both lists, in d's order. A shared value
// keeps the weight of the side that set one; when both did, the larger wins.
func (d *DistributedList) Intersect(other *DistributedList) *DistributedList {
	out := make([]WeightedElement, 0, min(len(d.elements), len(other.elements)))
	for _, e := range d.elements {
		i, ok := other.keys[ValueKey(e.Value)]
		if !ok {
			continue
		}
		out = append(out, WeightedElement{Value: e.Value, Weight: keptWeight(e.Weight, other.elements[i].Weight)})
	}
	return newList(out)
}

// keptWeight treats 1 as unset, so the choice is commutative and associative.
func keptWeight(a, b float64) float64 {
	switch {
	case a == 1:
		return b
	case b == 1:
		return a
	}
	return max(a, b)
}

// Filter keeps the members accepted by keep.
func (d *DistributedList) Filter(keep func(any) bool) *DistributedList {
	out := make([]WeightedElement, 0, len(d.elements))
	for _, e := range d.elements {
		if keep(e.Value) {
			out = append(out, e)
		}
	}
	return newList(out)
}

// PickRandom draws one value by weight.
func (d *DistributedList) PickRandom(r util.RandomSource) any {
	if len(d.elements) == 0 {
		util.Invariantf("pick from empty whitelist")
	}
	weights := make([]float64, len(d.elements))
	for i, e := range d.elements {
		weights[i] = e.Weight
	}
	return d.elements[util.PickWeightedFloat(r, weights)].Value
}

// Equal compares as a weighted set.
func (d *DistributedList) Equal(other *DistributedList) bool {
	if d == nil || other == nil {
		return d == other
	}
	if len(d.elements) != len(other.elements) {
		return false
	}
	for _, e := range other.elements {
		i, ok := d.keys[ValueKey(e.Value)]
		if !ok || d.elements[i].Weight != e.Weight {
			return false
		}
	}
	return true
}

func (d *DistributedList) String() string {
	parts := make([]string, len(d.elements))
	for i, e := range d.elements {
		if e.Weight == 1 {
			parts[i] = fmt.Sprint(e.Value)
			continue
		}
		parts[i] = fmt.Sprintf("%v@%g", e.Value, e.Weight)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
