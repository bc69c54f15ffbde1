package alloc

import "sort"

// BTreeMap is an ordered, integer-keyed map with fallible growth. It is
// implemented as a sorted slice rather than a real B-tree node structure;
// the contract (ordered iteration, fallible growth) is what matters, not
// the node fan-out. No other package of the module uses it at present.
type BTreeMap[V any] struct {
	keys []int
	vals []V
	Inj  Injector
}

// NewBTreeMap returns an empty ordered map.
func NewBTreeMap[V any]() *BTreeMap[V] {
	return &BTreeMap[V]{}
}

// Len reports the number of entries. Infallible.
func (m *BTreeMap[V]) Len() int { return len(m.keys) }

func (m *BTreeMap[V]) search(key int) (int, bool) {
	i := sort.SearchInts(m.keys, key)
	return i, i < len(m.keys) && m.keys[i] == key
}

// Get returns the value for key and whether it was present. Infallible.
func (m *BTreeMap[V]) Get(key int) (V, bool) {
	var zero V
	i, ok := m.search(key)
	if !ok {
		return zero, false
	}
	return m.vals[i], true
}

// TryInsert inserts or overwrites key with val.
func (m *BTreeMap[V]) TryInsert(key int, val V) error {
	i, ok := m.search(key)
	if ok {
		m.vals[i] = val
		return nil
	}
	if m.Inj.trip() {
		return newError(AllocFailed, "try_insert")
	}
	m.keys = append(m.keys, 0)
	m.vals = append(m.vals, val)
	copy(m.keys[i+1:], m.keys[i:])
	copy(m.vals[i+1:], m.vals[i:])
	m.keys[i] = key
	m.vals[i] = val
	return nil
}

// Each calls fn for every entry in ascending key order.
func (m *BTreeMap[V]) Each(fn func(key int, val V)) {
	for i, k := range m.keys {
		fn(k, m.vals[i])
	}
}
