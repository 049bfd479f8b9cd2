package collections

import (
	"reflect"
	"testing"
)

func TestBitset_Basic(t *testing.T) {
	b := NewBitset(100)

	b.Set(0)
	b.Set(50)
	b.Set(99)

	if !b.Test(0) {
		t.Error("Expected bit 0 to be set")
	}
	if !b.Test(50) {
		t.Error("Expected bit 50 to be set")
	}
	if !b.Test(99) {
		t.Error("Expected bit 99 to be set")
	}
	if b.Test(1) {
		t.Error("Expected bit 1 to be clear")
	}
	if b.Count() != 3 {
		t.Errorf("Expected count 3, got %d", b.Count())
	}

	b.Clear(50)
	if b.Test(50) {
		t.Error("Expected bit 50 to be clear after Clear")
	}
	if b.Count() != 2 {
		t.Errorf("Expected count 2 after Clear, got %d", b.Count())
	}
}

func TestBitset_OutOfRange(t *testing.T) {
	b := NewBitset(10)

	if b.Test(-1) || b.Test(10) || b.Test(1000) {
		t.Error("Expected out of range bits to read as clear")
	}

	b.Clear(500)
	b.Set(-3)
	if b.Count() != 0 {
		t.Errorf("Expected count 0, got %d", b.Count())
	}
}

func TestBitset_Grow(t *testing.T) {
	b := NewBitset(0)
	b.Set(200)

	if b.Size() != 201 {
		t.Errorf("Expected size 201, got %d", b.Size())
	}
	if !b.Test(200) {
		t.Error("Expected bit 200 to be set after grow")
	}
}

func TestBitset_TestAndSet(t *testing.T) {
	b := NewBitset(8)

	if b.TestAndSet(3) {
		t.Error("Expected first TestAndSet to report clear")
	}
	if !b.TestAndSet(3) {
		t.Error("Expected second TestAndSet to report set")
	}
}

func TestBitset_Complement(t *testing.T) {
	b := NewBitset(70)
	b.Set(1)
	b.Set(65)

	c := b.Complement()
	if c.Count() != 68 {
		t.Errorf("Expected complement count 68, got %d", c.Count())
	}
	if c.Test(1) || c.Test(65) {
		t.Error("Expected set bits to be clear in complement")
	}
	if c.Test(70) {
		t.Error("Expected complement to stay inside the universe")
	}
	if b.Intersects(c) {
		t.Error("Expected a set and its complement to be disjoint")
	}

	union := b.Clone()
	union.Or(c)
	if union.Count() != 70 {
		t.Errorf("Expected union to cover the universe, got %d", union.Count())
	}
}

func TestBitset_AndNotAndClone(t *testing.T) {
	a := NewBitset(64)
	a.Set(1)
	a.Set(2)
	a.Set(3)

	clone := a.Clone()
	other := NewBitset(64)
	other.Set(2)
	a.AndNot(other)

	if !reflect.DeepEqual(a.ToSlice(), []int{1, 3}) {
		t.Errorf("Expected [1 3], got %v", a.ToSlice())
	}
	if clone.Count() != 3 {
		t.Error("Expected clone to be independent")
	}
}

func TestBitset_IterateStops(t *testing.T) {
	b := NewBitset(200)
	for _, i := range []int{5, 70, 140, 199} {
		b.Set(i)
	}

	var seen []int
	b.Iterate(func(i int) bool {
		seen = append(seen, i)
		return len(seen) < 2
	})
	if !reflect.DeepEqual(seen, []int{5, 70}) {
		t.Errorf("Expected [5 70], got %v", seen)
	}
}
