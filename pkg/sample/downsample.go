package sample

// Decimator retains at most maxPoints samples out of a run of known length
// by keeping every stride-th one. It bounds the memory the noise histogram
// needs on long runs.
type Decimator struct {
	stride uint64
	n      uint64
	values []float64
}

// NewDecimator sizes the stride so that total samples fit in maxPoints.
func NewDecimator(total, maxPoints int) *Decimator {
	if maxPoints <= 0 {
		maxPoints = 1
	}
	stride := 1
	if total > maxPoints {
		// ceil(total / maxPoints)
		stride = (total + maxPoints - 1) / maxPoints
	}
	capacity := maxPoints
	if total > 0 && total < capacity {
		capacity = total
	}
	return &Decimator{
		stride: uint64(stride),
		values: make([]float64, 0, capacity),
	}
}

// Add offers one sample.
func (d *Decimator) Add(x int32) {
	if d.n%d.stride == 0 {
		d.values = append(d.values, float64(x))
	}
	d.n++
}

// Values returns the retained samples in arrival order.
func (d *Decimator) Values() []float64 {
	return d.values
}

// Reset drops retained samples but keeps the stride.
func (d *Decimator) Reset() {
	d.n = 0
	d.values = d.values[:0]
}
