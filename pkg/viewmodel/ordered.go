package viewmodel

import (
	"slices"

	"github.com/recera/tmcanvas/pkg/topicmap"
)

// ordered is a map that remembers insertion order.
type ordered[V any] struct {
	items map[topicmap.ID]V
	order []topicmap.ID
}

func newOrdered[V any]() ordered[V] {
	return ordered[V]{items: make(map[topicmap.ID]V)}
}

func (o *ordered[V]) get(id topicmap.ID) (V, bool) {
	v, ok := o.items[id]
	return v, ok
}

func (o *ordered[V]) put(id topicmap.ID, v V) {
	if _, ok := o.items[id]; !ok {
		o.order = append(o.order, id)
	}
	o.items[id] = v
}

func (o *ordered[V]) remove(id topicmap.ID) (V, bool) {
	v, ok := o.items[id]
	if !ok {
		return v, false
	}
	delete(o.items, id)
	if i := slices.Index(o.order, id); i >= 0 {
		o.order = slices.Delete(o.order, i, i+1)
	}
	return v, true
}

// rekey moves the value stored under from to to, keeping its slot.
func (o *ordered[V]) rekey(from, to topicmap.ID) bool {
	v, ok := o.items[from]
	if !ok {
		return false
	}
	if _, taken := o.items[to]; taken {
		return false
	}
	delete(o.items, from)
	o.items[to] = v
	if i := slices.Index(o.order, from); i >= 0 {
		o.order[i] = to
	}
	return true
}

// each visits values in insertion order until visit returns true.
func (o *ordered[V]) each(visit func(V) bool) (V, bool) {
	for _, id := range o.order {
		v := o.items[id]
		if visit(v) {
			return v, true
		}
	}
	var zero V
	return zero, false
}

func (o *ordered[V]) len() int {
	return len(o.order)
}

func (o *ordered[V]) values() []V {
	out := make([]V, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.items[id])
	}
	return out
}

func (o *ordered[V]) clear() {
	o.items = make(map[topicmap.ID]V)
	o.order = nil
}
