// Package variation enumerates every combination of stage variants for one
// image as a sequence of mixed-radix digit-vectors.
package variation

// Odometer walks every digit-vector [d_0..d_{n-1}] where d_i ranges over
// 0..bases[i] inclusive. Digit 0 increments fastest and carries upward, so the
// sequence starts at the all-zero vector and ends once the carry passes the
// last digit. A base of zero (or below) pins its digit at 0 and multiplies the
// total by one, not zero: the stage still participates, just with nothing to
// choose. With every base set to 1 this degenerates to the power set over n
// binary choices.
type Odometer struct {
	bases    []int
	current  []int
	started  bool
	finished bool
}

// NewOdometer copies bases, clamping negative entries to zero. An empty base
// list produces an empty sequence (zero vectors, not one all-zero vector).
func NewOdometer(bases []int) *Odometer {
	clamped := make([]int, len(bases))
	for i, b := range bases {
		if b > 0 {
			clamped[i] = b
		}
	}
	return &Odometer{
		bases:   clamped,
		current: make([]int, len(bases)),
	}
}

// Next returns the next digit-vector, or ok=false once the sequence is
// exhausted. The returned slice is owned by the caller.
func (o *Odometer) Next() ([]int, bool) {
	if o.finished || len(o.bases) == 0 {
		return nil, false
	}

	if !o.started {
		o.started = true
		return o.snapshot(), true
	}

	o.current[0]++
	for i, base := range o.bases {
		if o.current[i] <= base {
			break
		}
		o.current[i] = 0
		if i == len(o.current)-1 {
			o.finished = true
			return nil, false
		}
		o.current[i+1]++
	}

	return o.snapshot(), true
}

// Reset restarts the sequence from the all-zero vector.
func (o *Odometer) Reset() {
	for i := range o.current {
		o.current[i] = 0
	}
	o.started = false
	o.finished = false
}

// Total is the number of vectors the full sequence yields: the product of
// (base+1) over all digits, or zero for an empty base list.
func (o *Odometer) Total() int {
	if len(o.bases) == 0 {
		return 0
	}
	total := 1
	for _, base := range o.bases {
		total *= base + 1
	}
	return total
}

func (o *Odometer) snapshot() []int {
	out := make([]int, len(o.current))
	copy(out, o.current)
	return out
}
