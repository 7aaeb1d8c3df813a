package signal

import "math"

// mean returns the arithmetic mean, or 0 for an empty slice.
func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// stdev returns the sample standard deviation with Bessel's correction.
func stdev(vs []float64) float64 {
	if len(vs) < 2 {
		return 0
	}
	avg := mean(vs)
	var variance float64
	for _, v := range vs {
		variance += math.Pow(v-avg, 2)
	}
	variance /= float64(len(vs) - 1)
	return math.Sqrt(variance)
}

// variability is the coefficient of variation (stdev/mean), 0 when the
// mean is 0 so sparse windows never divide by zero.
func variability(vs []float64) float64 {
	avg := mean(vs)
	if avg == 0 {
		return 0
	}
	return stdev(vs) / avg
}

// appendBounded appends keeping at most capN entries, evicting oldest.
func appendBounded(vs []float64, v float64, capN int) []float64 {
	vs = append(vs, v)
	if len(vs) > capN {
		vs = vs[len(vs)-capN:]
	}
	return vs
}

func dist(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}
