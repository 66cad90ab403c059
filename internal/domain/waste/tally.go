package waste

import "math"

// Tally counts detections per category for a single request.
type Tally struct {
	counts map[Category]int
	total  int
}

func NewTally() *Tally {
	return &Tally{counts: make(map[Category]int)}
}

func (t *Tally) Add(c Category) {
	t.counts[c]++
	t.total++
}

func (t *Tally) Total() int {
	return t.total
}

func (t *Tally) Count(c Category) int {
	return t.counts[c]
}

// Percentages returns each category's share of the total, rounded to two
// decimals. The map is empty when nothing was counted.
func (t *Tally) Percentages() map[Category]float64 {
	out := make(map[Category]float64, len(t.counts))
	if t.total == 0 {
		return out
	}
	for c, n := range t.counts {
		out[c] = round2(float64(n) / float64(t.total) * 100)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
