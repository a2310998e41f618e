package machine

import "testing"

// Two objects constructed by the same sequence of SET_FIELD names starting
// from empty end up with pointer-identical maps.
func TestShapeSharing(t *testing.T) {
	a := newObject()
	a.set("x", Int(1))
	a.set("y", Int(2))

	b := newObject()
	b.set("x", Int(10))
	b.set("y", Int(20))

	if a.shape != b.shape {
		t.Fatalf("expected shared shape, got distinct maps %p and %p", a.shape, b.shape)
	}

	c := newObject()
	c.set("y", Int(1))
	c.set("x", Int(2))
	if a.shape == c.shape {
		t.Fatalf("expected distinct shape for different field insertion order")
	}
}

func TestObjectFieldOverwriteKeepsShape(t *testing.T) {
	a := newObject()
	a.set("x", Int(1))
	shape := a.shape
	a.set("x", Int(99))
	if a.shape != shape {
		t.Fatalf("overwriting an existing field must not change the object's shape")
	}
	v, ok := a.get("x")
	if !ok || v != Value(Int(99)) {
		t.Fatalf("got %v, %v; want Int(99), true", v, ok)
	}
}

func TestAllObjectsStartAtTheSharedEmptyMap(t *testing.T) {
	a, b := newObject(), newObject()
	if a.shape != emptyMap || b.shape != emptyMap {
		t.Fatalf("new objects must start at the process-wide empty map")
	}
}
