package variation

import (
	"reflect"
	"testing"
)

func collect(o *Odometer) [][]int {
	var out [][]int
	for {
		digits, ok := o.Next()
		if !ok {
			return out
		}
		out = append(out, digits)
	}
}

func TestOdometerOrder(t *testing.T) {
	o := NewOdometer([]int{3, 1, 1})

	expected := [][]int{
		{0, 0, 0},
		{1, 0, 0},
		{2, 0, 0},
		{3, 0, 0},
		{0, 1, 0},
		{1, 1, 0},
		{2, 1, 0},
		{3, 1, 0},
		{0, 0, 1},
		{1, 0, 1},
		{2, 0, 1},
		{3, 0, 1},
		{0, 1, 1},
		{1, 1, 1},
		{2, 1, 1},
		{3, 1, 1},
	}

	got := collect(o)
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	if o.Total() != len(expected) {
		t.Fatalf("expected total %d, got %d", len(expected), o.Total())
	}
}

func TestOdometerPinnedZeroBase(t *testing.T) {
	o := NewOdometer([]int{2, 0, 1})

	expected := [][]int{
		{0, 0, 0},
		{1, 0, 0},
		{2, 0, 0},
		{0, 0, 1},
		{1, 0, 1},
		{2, 0, 1},
	}

	got := collect(o)
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for _, digits := range got {
		if digits[1] != 0 {
			t.Fatalf("pinned digit moved in %v", digits)
		}
	}
	if o.Total() != 6 {
		t.Fatalf("expected total 6, got %d", o.Total())
	}
}

func TestOdometerEmpty(t *testing.T) {
	o := NewOdometer(nil)
	if _, ok := o.Next(); ok {
		t.Fatal("expected empty base list to yield no vectors")
	}
	if o.Total() != 0 {
		t.Fatalf("expected total 0, got %d", o.Total())
	}
}

func TestOdometerNegativeBasesBehaveAsZero(t *testing.T) {
	o := NewOdometer([]int{-3, 2})

	expected := [][]int{
		{0, 0},
		{0, 1},
		{0, 2},
	}
	if got := collect(o); !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

func TestOdometerSingleDigit(t *testing.T) {
	o := NewOdometer([]int{4})

	got := collect(o)
	if len(got) != 5 {
		t.Fatalf("expected 5 vectors for base 4, got %d", len(got))
	}
	for i, digits := range got {
		if digits[0] != i {
			t.Fatalf("expected vector %d to be [%d], got %v", i, i, digits)
		}
	}
}

func TestOdometerReset(t *testing.T) {
	o := NewOdometer([]int{1, 1})
	first := collect(o)

	o.Reset()
	second := collect(o)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical sequences after reset, got %v then %v", first, second)
	}
	if len(first) != 4 {
		t.Fatalf("expected 4 vectors, got %d", len(first))
	}
}

func TestOdometerNextAfterExhaustionStaysDone(t *testing.T) {
	o := NewOdometer([]int{1})
	collect(o)
	if _, ok := o.Next(); ok {
		t.Fatal("expected exhausted odometer to keep returning ok=false")
	}
}
