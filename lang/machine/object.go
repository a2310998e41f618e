package machine

import "github.com/dolthub/swiss"

// objectMap is a hidden class: an immutable-once-published descriptor of an
// object's field layout. Every object's map is one of:
//   - the single process-wide empty map (emptyMap), or
//   - a map reached from it by zero or more SET_FIELD transitions.
//
// Grounded on the teacher's lang/machine/map.go, which backs its Map type
// with a swiss.Map[Value,Value]; here the same library backs the two
// hidden-class tables instead.
type objectMap struct {
	fieldIndexes *swiss.Map[string, int]
	transitions  *swiss.Map[string, *objectMap]
}

func newObjectMap() *objectMap {
	return &objectMap{
		fieldIndexes: swiss.NewMap[string, int](0),
		transitions:  swiss.NewMap[string, *objectMap](0),
	}
}

// emptyMap is the one shared process-wide empty map: every newly constructed
// object starts out pointing at it.
var emptyMap = newObjectMap()

// indexOf returns the value-vector slot for name, if this map's field
// layout has one.
func (m *objectMap) indexOf(name string) (int, bool) {
	return m.fieldIndexes.Get(name)
}

// transition returns the successor map that adds name as its next field,
// creating and caching it on first use. Two objects that evolve through the
// same sequence of field insertions converge on a pointer-identical map.
func (m *objectMap) transition(name string) *objectMap {
	if next, ok := m.transitions.Get(name); ok {
		return next
	}
	next := newObjectMap()
	m.fieldIndexes.Iter(func(k string, v int) (stop bool) {
		next.fieldIndexes.Put(k, v)
		return false
	})
	next.fieldIndexes.Put(name, int(m.fieldIndexes.Count()))
	m.transitions.Put(name, next)
	return next
}

// object is a map pointer plus a dense vector of field values.
type object struct {
	shape  *objectMap
	values []Value
}

func newObject() *object {
	return &object{shape: emptyMap}
}

func (o *object) get(name string) (Value, bool) {
	idx, ok := o.shape.indexOf(name)
	if !ok {
		return nil, false
	}
	return o.values[idx], true
}

func (o *object) set(name string, v Value) {
	if idx, ok := o.shape.indexOf(name); ok {
		o.values[idx] = v
		return
	}
	o.shape = o.shape.transition(name)
	o.values = append(o.values, v)
}
